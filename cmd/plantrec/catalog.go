package main

import (
	"os"

	"github.com/spf13/cobra"
)

var catalogFile string

func init() {
	rootCmd.AddCommand(catalogCmd)
	catalogCmd.Flags().StringVar(&catalogFile, "file", "", "YAML field catalog to load instead of the configured one")
}

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Show the field catalog",
	Long: `Show the field catalog: every column the recommender reads, its kind
and, for ordinal and categorical fields, its allowed values.`,
	Args: cobra.NoArgs,
	RunE: runCatalog,
}

func runCatalog(cmd *cobra.Command, args []string) error {
	cat := mustLoadCatalog(catalogFile)

	if humanOutput {
		printCatalogHuman(os.Stdout, cat)
	} else {
		outputJSON(map[string]any{"fields": cat.Fields()})
	}
	return nil
}
