package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/plantrec/plantrec/internal/logging"
	"github.com/plantrec/plantrec/internal/server"
)

var (
	serveDataset datasetFlags
	serveCatalog string
	serveAddr    string
)

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveDataset.source, "dataset", "", "Species table (.csv, .jsonl, .db or postgres:// DSN)")
	serveCmd.Flags().StringVar(&serveDataset.table, "table", "", "SQL table name for database sources")
	serveCmd.Flags().StringVar(&serveCatalog, "catalog", "", "YAML field catalog (default: built-in USDA PLANTS catalog)")
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default from config, 127.0.0.1:8080)")
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve recommendations over HTTP",
	Long: `Serve recommendations over HTTP.

Routes:
  GET  /healthz         liveness and dataset size
  GET  /api/catalog     field catalog
  POST /api/recommend   JSON preferences in, recommendations out
  GET  /metrics         Prometheus metrics

The dataset is loaded once at startup.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cat := mustLoadCatalog(serveCatalog)
	base := mustLoadDataset(ctx, serveDataset)
	p := mustBuildPipeline(cat, base, cfg.Pipeline())

	opts := server.Options{
		Addr:      cfg.Server.Addr,
		RateLimit: cfg.Server.RateLimit,
		Burst:     cfg.Server.Burst,
	}
	if serveAddr != "" {
		opts.Addr = serveAddr
	}

	srv := server.New(p, opts, logging.Logger())
	if err := srv.ListenAndServe(ctx); err != nil {
		exitWithError(ExitError, "server: %v", err)
	}
	return nil
}
