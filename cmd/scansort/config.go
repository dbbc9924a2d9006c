package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/scansort/scansort/internal/config"
	"github.com/scansort/scansort/internal/home"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage scansort configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default config file to the home directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		h, err := home.New(homeDir)
		if err != nil {
			return err
		}
		if err := h.EnsureExists(); err != nil {
			return err
		}

		if err := config.WriteDefault(h.ConfigPath()); err != nil {
			return err
		}
		fmt.Printf("wrote %s\n", h.ConfigPath())
		return nil
	},
}

func init() {
	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(configCmd)
}
