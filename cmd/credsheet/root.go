package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/medienwerk/credsheet/internal/config"
	"github.com/medienwerk/credsheet/internal/logger"
)

var (
	configPath string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "credsheet",
	Short: "Customer credential sheet provisioning for the vault",
	Long: `credsheet provisions per-customer credential documentation in the vault:
it creates the customer's folder hierarchy and credential records from a
structure template, renders a credential sheet, converts it to PDF,
uploads it next to the records and issues a one-time share link.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "credsheet.yaml", "path to the YAML config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
}

// loadConfig reads the config file, applies env overrides and builds the
// logger at the requested level.
func loadConfig() (*config.Options, *logger.Logger, error) {
	options, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	if logLevel != "" {
		options.LogLevel = logLevel
	}
	log := logger.New()
	if err := log.Init(options.LogLevel); err != nil {
		return nil, nil, err
	}
	return options, log, nil
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
