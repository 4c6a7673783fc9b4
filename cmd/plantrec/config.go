package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/plantrec/plantrec/internal/config"
)

func init() {
	rootCmd.AddCommand(configCmd)
}

var configCmd = &cobra.Command{
	Use:   "config [key] [value]",
	Short: "Show or change global configuration",
	Long: `Show or change global configuration.

With no arguments, prints every setting. With a key, prints its value.
With a key and a value, updates the config file.

Examples:
  plantrec config
  plantrec config cluster.cluster_count
  plantrec config dataset.source ~/data/plants.csv`,
	Args: cobra.MaximumNArgs(2),
	RunE: runConfig,
}

func runConfig(cmd *cobra.Command, args []string) error {
	switch len(args) {
	case 0:
		return showConfig()
	case 1:
		v, err := cfg.Get(args[0])
		if err != nil {
			exitWithError(ExitConfigError, "%v", err)
		}
		if humanOutput {
			outputHuman("%s\n", v)
		} else {
			outputJSON(map[string]string{args[0]: v})
		}
		return nil
	default:
		return setConfig(args[0], args[1])
	}
}

func showConfig() error {
	values := make(map[string]string)
	for _, key := range config.Keys() {
		v, _ := cfg.Get(key)
		values[key] = v
	}

	if humanOutput {
		for _, key := range config.Keys() {
			outputHuman("%-28s %s\n", key, values[key])
		}
	} else {
		outputJSON(values)
	}
	return nil
}

func setConfig(key, value string) error {
	path := configPath
	if path == "" {
		path = config.GlobalConfigPath()
	}

	// Start from the file rather than cfg so env overrides aren't persisted.
	fileCfg, err := config.LoadFile(path)
	if err != nil {
		exitWithError(ExitConfigError, "%v", err)
	}
	if err := fileCfg.Set(key, value); err != nil {
		if errors.Is(err, config.ErrUnknownKey) {
			exitWithError(ExitConfigError, "%v (run 'plantrec config' to list keys)", err)
		}
		exitWithError(ExitConfigError, "%v", err)
	}
	if err := fileCfg.Validate(); err != nil {
		exitWithError(ExitConfigError, "%v", err)
	}
	if err := fileCfg.Save(path); err != nil {
		exitWithError(ExitError, "%v", err)
	}
	config.ResetGlobalConfigCache()

	if humanOutput {
		outputHuman("Set %s = %s\n", key, value)
	} else {
		outputJSON(UpdateResponse{Status: "updated", Key: key, Value: value})
	}
	return nil
}
