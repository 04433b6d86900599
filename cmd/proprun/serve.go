package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/alejandrodnm/proprun/internal/api"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Arranca la API HTTP.

Endpoints:
  GET  /health                - Health check
  POST /process_listings      - Evalúa y ordena listings
  GET  /runs?since=24h        - Histórico de ejecuciones
  GET  /runs/{id}/listings    - Listings de una ejecución`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides config)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}

	p, store, err := buildPipeline(cfg, nil)
	if err != nil {
		return err
	}
	defer store.Close()

	handler := api.NewHandler(p, store, api.Defaults{
		Assumptions: cfg.Assumptions(),
		NumListings: cfg.Defaults.NumListings,
	})
	router := api.NewRouter(handler, cfg.Server.CORSOrigins)
	server := api.NewServer(cfg.Server.Addr, router, time.Duration(cfg.Server.WriteTimeoutSeconds)*time.Second)

	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	slog.Info("proprun api ready",
		"addr", cfg.Server.Addr,
		"cache_only", cfg.RentCache.CacheOnly,
		"workers", cfg.Pipeline.Workers,
		"timeout", cfg.EvaluationTimeout(),
	)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	slog.Info("proprun stopped cleanly")
	return nil
}
