// Package main provides the plantrec CLI entry point.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/plantrec/plantrec/internal/config"
	"github.com/plantrec/plantrec/internal/logging"
)

// Version is set at build time via ldflags
var Version = "dev"

var (
	// humanOutput controls whether to use human-readable output
	humanOutput bool

	// configPath overrides the global config file location
	configPath string

	// logLevel overrides logging.level from config
	logLevel string

	// cfg is loaded before every command runs
	cfg *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		// Print the error since we have SilenceErrors: true
		// This ensures Cobra errors (like missing required flags) are visible
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(ExitError)
	}
}

var rootCmd = &cobra.Command{
	Use:   "plantrec",
	Short: "Recommend plants similar to a set of growing preferences",
	Long: `plantrec recommends plant species that match a set of preferences.

It appends the preferences to a species table as a synthetic row, encodes
every row into a numeric feature space, clusters the rows spectrally, and
samples species from the cluster the preferences landed in.

Datasets can be CSV, JSONL, SQLite or PostgreSQL.
All commands output JSON by default; use --human for readable output.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&humanOutput, "human", false, "Use human-readable output instead of JSON")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default $XDG_CONFIG_HOME/plantrec/config.yml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: trace, debug, info, warn, error")
	rootCmd.Version = Version
}

// setup loads .env, configuration and logging for every command.
func setup(cmd *cobra.Command, _ []string) error {
	_ = godotenv.Load()

	var err error
	if configPath != "" {
		cfg, err = config.LoadFile(configPath)
		if err == nil {
			err = cfg.ApplyEnv(os.LookupEnv)
		}
		if err == nil {
			err = cfg.Validate()
		}
	} else {
		cfg, err = config.LoadGlobalConfig()
	}
	if err != nil {
		exitWithError(ExitConfigError, "loading config: %v", err)
	}

	logCfg := cfg.Logging
	logCfg.Output = os.Stderr
	if logLevel != "" {
		logCfg.Level = logLevel
	}
	logging.Init(logCfg)

	return nil
}
