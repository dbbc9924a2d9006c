package main

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/scansort/scansort/internal/config"
	"github.com/scansort/scansort/internal/pipeline"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the intake directory and process batches as they settle",
	Long: `Watch runs until interrupted, triggering a batch whenever the intake
directory has been quiet for the configured settle window. Scanners
write large PDFs incrementally, so a file is not touched until writes
have stopped.

Examples:
  scansort watch
  SCANSORT_INTAKE_SETTLE_SECONDS=30 scansort watch`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cfgFile, homeDir)
		if err != nil {
			return err
		}
		defer a.Close()

		a.manager.OnChange(func(cfg *config.Config) {
			a.logger.Info("configuration file reloaded", "categories", cfg.Categories)
		})
		a.manager.WatchConfig()

		return watchIntake(cmd.Context(), a)
	},
}

func watchIntake(ctx context.Context, a *app) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(a.home.IntakePath()); err != nil {
		return err
	}
	a.logger.Info("watching intake directory",
		"dir", a.home.IntakePath(), "settle", a.cfg.SettleDelay())

	// Arm the timer at startup so PDFs already sitting in intake get
	// processed without requiring a new event.
	settle := time.NewTimer(a.cfg.SettleDelay())
	defer settle.Stop()

	for {
		select {
		case <-ctx.Done():
			a.logger.Info("watch stopped")
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !strings.HasSuffix(strings.ToLower(event.Name), ".pdf") {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			a.logger.Debug("intake activity, resetting settle timer", "file", event.Name)
			if !settle.Stop() {
				select {
				case <-settle.C:
				default:
				}
			}
			settle.Reset(a.cfg.SettleDelay())

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			a.logger.Warn("watcher error", "error", err)

		case <-settle.C:
			if err := a.refresh(); err != nil {
				a.logger.Error("config reload failed, keeping previous configuration", "error", err)
			}
			result, err := a.pipeline.Run(ctx)
			switch {
			case errors.Is(err, pipeline.ErrEmptyIntake):
				// Nothing arrived; keep waiting.
			case err != nil:
				if ctx.Err() != nil {
					return nil
				}
				a.logger.Error("batch failed", "error", err)
			default:
				a.logger.Info("batch finished",
					"batch_id", result.BatchID, "status", result.Status,
					"documents", len(result.Exported), "failed", result.Failed)
			}
		}
	}
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
