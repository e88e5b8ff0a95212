// Iris - Multi-domain health risk assessment engine.
// Copyright (c) 2025 Healthcatchers
// Licensed under the Apache License 2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/healthcatchers/iris/internal/api"
	"github.com/healthcatchers/iris/internal/assessment"
	"github.com/healthcatchers/iris/internal/bus"
	"github.com/healthcatchers/iris/internal/domain"
	"github.com/healthcatchers/iris/internal/metrics"
	"github.com/healthcatchers/iris/internal/model"
	"github.com/healthcatchers/iris/internal/repository"
	"github.com/healthcatchers/iris/internal/telemetry"
	"github.com/healthcatchers/iris/internal/worker"
)

// Version information (set via ldflags)
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

func main() {
	if err := run(); err != nil {
		slog.Error("iris failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg, err := domain.LoadConfig(os.Getenv("IRIS_CONFIG"), os.Getenv)
	if err != nil {
		return err
	}

	// Initialize structured logger
	slog.SetDefault(newLogger(cfg.Logging))

	slog.Info("starting iris",
		"version", Version,
		"commit", Commit,
		"build_date", BuildDate,
	)
	slog.Info("configuration loaded",
		"model_source", cfg.Model.Source,
		"repository", cfg.Repository.Driver,
		"eventbus", cfg.EventBus.Type,
		"eventbus_enabled", cfg.EventBus.Enabled,
		"tracing", cfg.Tracing.Enabled,
	)

	// Handle shutdown signals
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize tracing
	shutdownTracing, err := telemetry.Setup(ctx, cfg.Tracing, Version)
	if err != nil {
		return err
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			slog.Warn("failed to flush traces", "error", err)
		}
	}()

	// Load the classifier; the repository is only opened when it is the source
	var repo domain.ArtifactRepository
	var classifier *model.Ensemble
	switch cfg.Model.Source {
	case domain.ModelSourceRepository:
		sqlRepo, err := repository.New(cfg.Repository)
		if err != nil {
			return domain.NewConfigurationError("repository", err)
		}
		defer sqlRepo.Close()
		repo = sqlRepo
		slog.Info("repository initialized", "driver", cfg.Repository.Driver)

		classifier, err = repository.LoadEnsemble(ctx, sqlRepo, cfg.Model.Name, cfg.Model.Version)
		if err != nil {
			return err
		}
	default:
		classifier, err = model.LoadFile(cfg.Model.Path)
		if err != nil {
			return err
		}
	}
	info := classifier.Info()
	slog.Info("classifier loaded",
		"name", info.Name,
		"version", info.Version,
		"trees", info.Trees,
		"features", info.FeatureCount,
		"source", info.Source,
	)

	// Initialize the assessment pipeline
	m := metrics.New()
	service, err := assessment.NewService(classifier, assessment.Options{
		Derivations: cfg.Features.Derivations,
		TopK:        cfg.Explain.TopK,
		Info:        info,
		Metrics:     m,
	})
	if err != nil {
		return err
	}
	slog.Info("assessment service initialized", "derivations", len(cfg.Features.Derivations))

	// Initialize the bus responder
	var eventBus domain.EventBus
	var responder *worker.Worker
	if cfg.EventBus.Enabled {
		eventBus, err = bus.New(cfg.EventBus)
		if err != nil {
			return domain.NewConfigurationError("eventbus", err)
		}
		defer eventBus.Close()

		responder = worker.NewWorker(eventBus, service, m)
		if err := responder.Start(worker.Config{}); err != nil {
			return fmt.Errorf("failed to start bus worker: %w", err)
		}
		slog.Info("bus worker started", "type", cfg.EventBus.Type, "topic", domain.TopicAssessmentRequest)
	}

	// Initialize Server
	srv := api.NewServer(cfg.Server, api.Dependencies{
		Service:    service,
		Repository: repo,
		Bus:        eventBus,
		Metrics:    m,
		WebSocket:  cfg.WebSocket,
		Version:    Version,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("iris is ready", "host", cfg.Server.Host, "port", cfg.Server.Port)
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down...")

		// Stop the bus worker first
		if responder != nil {
			if err := responder.Stop(); err != nil {
				slog.Error("failed to stop bus worker", "error", err)
			}
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	slog.Info("iris shutdown complete")
	return nil
}

func newLogger(cfg domain.LoggingConfig) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}
