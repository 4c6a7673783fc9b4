package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/plantrec/plantrec/internal/catalog"
	"github.com/plantrec/plantrec/internal/dataset"
	"github.com/plantrec/plantrec/internal/logging"
	"github.com/plantrec/plantrec/internal/normalize"
)

var (
	cleanDataset  datasetFlags
	cleanCatalog  string
	cleanOutput   string
	cleanOutTable string
	cleanEncode   bool
)

func init() {
	rootCmd.AddCommand(cleanCmd)

	cleanCmd.Flags().StringVar(&cleanDataset.source, "dataset", "", "Raw species table to clean")
	cleanCmd.Flags().StringVar(&cleanDataset.table, "table", "", "SQL table name for database sources")
	cleanCmd.Flags().StringVar(&cleanCatalog, "catalog", "", "YAML field catalog (default: built-in USDA PLANTS catalog)")
	cleanCmd.Flags().StringVarP(&cleanOutput, "output", "o", "", "Destination (.csv, .jsonl, .db or postgres:// DSN)")
	cleanCmd.Flags().StringVar(&cleanOutTable, "out-table", "", "SQL table name for database destinations")
	cleanCmd.Flags().BoolVar(&cleanEncode, "encode", false, "Write the normalized numeric feature table instead")
	_ = cleanCmd.MarkFlagRequired("output")
}

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Reduce a raw species table to the catalog's fields",
	Long: `Reduce a raw species table to the catalog's fields.

Keeps only catalog columns, drops species with no minimum temperature and
writes the result. With --encode the normalized feature table is written
instead, with identifier columns first.

Examples:
  plantrec clean --dataset raw.csv -o plants.csv
  plantrec clean --dataset raw.csv -o features.jsonl --encode`,
	Args: cobra.NoArgs,
	RunE: runClean,
}

func runClean(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cat := mustLoadCatalog(cleanCatalog)
	raw := mustLoadDataset(ctx, cleanDataset)

	out, err := cleanTable(raw, cat)
	if err != nil {
		exitWithError(exitCodeFor(err), "%v", err)
	}
	dropped := raw.Len() - out.Len()

	if cleanEncode {
		out, err = normalize.EncodeTable(out, cat)
		if err != nil {
			exitWithError(exitCodeFor(err), "encoding: %v", err)
		}
	}

	if err := dataset.Save(ctx, cleanOutput, cleanOutTable, out); err != nil {
		exitWithError(exitCodeFor(err), "writing %s: %v", cleanOutput, err)
	}

	logger := logging.Logger()
	logger.Info().
		Int("rows", out.Len()).
		Int("dropped", dropped).
		Bool("encoded", cleanEncode).
		Msg("cleaned dataset")

	if humanOutput {
		outputHuman("Wrote %d species to %s (%d dropped)\n", out.Len(), cleanOutput, dropped)
	} else {
		outputJSON(StatusResponse{Status: "written", Path: cleanOutput, Rows: out.Len()})
	}
	return nil
}

// cleanTable keeps the catalog's columns and drops rows without a minimum
// temperature, when the catalog declares that field.
func cleanTable(t *dataset.Table, cat *catalog.Catalog) (*dataset.Table, error) {
	if err := cat.CheckColumns(t.Columns); err != nil {
		return nil, err
	}

	out, err := t.Select(cat.Names())
	if err != nil {
		return nil, err
	}

	if _, ok := cat.Field(catalog.FieldTempMinimum); !ok {
		return out, nil
	}
	return out.Filter(func(r dataset.Record) bool {
		return strings.TrimSpace(r[catalog.FieldTempMinimum]) != ""
	}), nil
}
