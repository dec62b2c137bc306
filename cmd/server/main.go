package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgallion1/docgraph/internal/api"
	"github.com/dgallion1/docgraph/internal/config"
	"github.com/dgallion1/docgraph/internal/extract"
	"github.com/dgallion1/docgraph/internal/pathstore"
	"github.com/dgallion1/docgraph/internal/pipeline"
	"github.com/dgallion1/docgraph/internal/rule"
	"github.com/dgallion1/docgraph/internal/section"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Extraction engine shared by the HTTP handlers and the ingest workers.
	classify := section.Heuristics{
		Bold:  cfg.SectionBoldParagraphs,
		Colon: cfg.SectionColonParagraphs,
	}.Classifier()
	ex := extract.New(rule.Standard(classify), extract.IsCode, log)
	ex.Workers = cfg.ExtractWorkers
	ex.Stats = extract.NewStats(cfg.StatsWindow)

	ps := pathstore.NewClient(cfg.PathstoreURL, cfg.PathstoreAPIKey)

	orch := pipeline.NewOrchestrator(cfg, ex, ps, log)
	orch.Start(ctx)

	srv, err := api.NewServer(orch, ps, ex, log, cfg)
	if err != nil {
		log.Error("failed to create server", "error", err)
		os.Exit(1)
	}

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	done := make(chan struct{})
	go func() {
		defer close(done)
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		orch.Stop()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Warn("http shutdown", "error", err)
		}

		ps.Close()
	}()

	log.Info("starting docgraph",
		"port", cfg.Port,
		"rules", ex.Pipeline.Names(),
		"extract_workers", ex.Workers,
		"ingest_workers", cfg.WorkerCount,
	)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
	<-done
}
