package main

import (
	"context"
	"fmt"
	"os"

	"github.com/plantrec/plantrec/internal/catalog"
	"github.com/plantrec/plantrec/internal/config"
	"github.com/plantrec/plantrec/internal/dataset"
	"github.com/plantrec/plantrec/internal/logging"
	"github.com/plantrec/plantrec/internal/recommend"
)

// datasetFlags are shared by every command that reads the species table.
type datasetFlags struct {
	source string
	table  string
}

// resolve returns the flag values, falling back to config.
func (f datasetFlags) resolve() (string, string) {
	source, table := f.source, f.table
	if source == "" {
		source = cfg.Dataset.Source
	}
	if table == "" {
		table = cfg.Dataset.Table
	}
	return config.ExpandPath(source), table
}

// mustLoadCatalog loads the configured catalog file, or the built-in plant
// catalog when none is set. Exits on error.
func mustLoadCatalog(path string) *catalog.Catalog {
	if path == "" {
		path = cfg.CatalogFile
	}
	if path == "" {
		return catalog.Plants()
	}
	cat, err := catalog.ParseCatalog(config.ExpandPath(path))
	if err != nil {
		exitWithError(ExitConfigError, "loading catalog: %v", err)
	}
	return cat
}

// mustLoadDataset opens the species table, exits on error.
func mustLoadDataset(ctx context.Context, flags datasetFlags) *dataset.Table {
	source, table := flags.resolve()
	if source == "" {
		fmt.Fprintln(os.Stderr, config.HelpfulConfigMessage())
		os.Exit(ExitConfigError)
	}

	t, err := dataset.Open(ctx, source, table)
	if err != nil {
		exitWithError(exitCodeFor(err), "loading dataset: %v", err)
	}
	logger := logging.Logger()
	logger.Debug().Str("source", source).Int("rows", t.Len()).Msg("dataset loaded")
	return t
}

// mustBuildPipeline assembles the recommendation pipeline, exits on error.
func mustBuildPipeline(cat *catalog.Catalog, base *dataset.Table, pc recommend.Config) *recommend.Pipeline {
	p, err := recommend.NewPipeline(cat, base, pc, logging.Logger())
	if err != nil {
		exitWithError(exitCodeFor(err), "%v", err)
	}
	return p
}
