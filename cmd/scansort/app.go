package main

import (
	"fmt"
	"log/slog"
	"os"
	"reflect"
	"time"

	"github.com/scansort/scansort/internal/classify"
	"github.com/scansort/scansort/internal/config"
	"github.com/scansort/scansort/internal/export"
	"github.com/scansort/scansort/internal/extract"
	"github.com/scansort/scansort/internal/home"
	"github.com/scansort/scansort/internal/intake"
	"github.com/scansort/scansort/internal/order"
	"github.com/scansort/scansort/internal/pipeline"
	"github.com/scansort/scansort/internal/providers"
	"github.com/scansort/scansort/internal/retry"
	"github.com/scansort/scansort/internal/state"
)

// app wires the pipeline's collaborators together from configuration.
type app struct {
	cfg      *config.Config
	manager  *config.Manager
	home     *home.Dir
	store    *state.Store
	scanner  *intake.Scanner
	pipeline *pipeline.Pipeline
	logger   *slog.Logger
}

func newApp(cfgFile, homeDir string) (*app, error) {
	h, err := home.New(homeDir)
	if err != nil {
		return nil, err
	}
	if err := h.EnsureExists(); err != nil {
		return nil, err
	}

	manager, err := config.NewManager(cfgFile)
	if err != nil {
		return nil, err
	}
	cfg := manager.Get()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel(cfg.Log.Level),
	}))
	slog.SetDefault(logger)

	store, err := state.Open(h.StateDBPath())
	if err != nil {
		return nil, err
	}

	a := &app{
		manager: manager,
		home:    h,
		store:   store,
		logger:  logger,
	}
	if err := a.buildPipeline(cfg); err != nil {
		store.Close()
		return nil, err
	}
	return a, nil
}

// buildPipeline constructs the pipeline collaborators from cfg. Watch
// mode calls it again when the configuration changes between batches.
func (a *app) buildPipeline(cfg *config.Config) error {
	llm, err := providers.NewOpenAIClient(providers.OpenAIConfig{
		APIKey:  config.ResolveEnvVars(cfg.LLM.APIKey),
		BaseURL: cfg.LLM.BaseURL,
		Model:   cfg.LLM.Model,
		Timeout: cfg.LLMTimeout(),
	})
	if err != nil {
		return fmt.Errorf("failed to create LLM client: %w", err)
	}

	engine := providers.NewTesseractEngine(providers.TesseractConfig{
		Language: cfg.OCR.Language,
		DPI:      cfg.OCR.DPI,
	})

	policy := retryPolicy(cfg)
	a.scanner = intake.NewScanner(a.home, a.logger)

	a.pipeline = pipeline.New(pipeline.Deps{
		Home:   a.home,
		Store:  a.store,
		Intake: a.scanner,
		Extractor: extract.NewExtractor(extract.Config{
			Pdftotext: cfg.OCR.Pdftotext,
			Pdftoppm:  cfg.OCR.Pdftoppm,
			DPI:       cfg.OCR.DPI,
			TmpDir:    a.home.TmpPath(),
		}, engine, a.logger),
		Classifier: classify.New(llm, policy, cfg.Categories, cfg.LLM.MaxClassifyChars, a.logger),
		Orderer:    order.New(llm, policy, a.logger),
		Titler:     export.NewTitler(llm, policy, a.logger),
		Exporter:   export.NewExporter(a.home, a.logger),
		Logger:     a.logger,
	})
	a.cfg = cfg
	return nil
}

// refresh re-reads the config file and rebuilds the pipeline when the
// active configuration has changed since the last batch.
func (a *app) refresh() error {
	cfg, err := a.manager.Reload()
	if err != nil {
		return err
	}
	if reflect.DeepEqual(a.cfg, cfg) {
		return nil
	}
	a.logger.Info("configuration changed, rebuilding pipeline", "categories", cfg.Categories)
	return a.buildPipeline(cfg)
}

func (a *app) Close() error {
	return a.store.Close()
}

func retryPolicy(cfg *config.Config) retry.Policy {
	return retry.Policy{
		MaxAttempts:   cfg.Retry.MaxAttempts,
		BaseDelay:     time.Duration(cfg.Retry.BaseDelayMS) * time.Millisecond,
		Multiplier:    cfg.Retry.Multiplier,
		MaxDelay:      time.Duration(cfg.Retry.MaxDelayMS) * time.Millisecond,
		JitterPercent: cfg.Retry.JitterPercent,
	}
}

func logLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
