package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aluiziolira/go-scrape-catalog/archive"
	"github.com/aluiziolira/go-scrape-catalog/config"
	"github.com/aluiziolira/go-scrape-catalog/pipeline"
	"github.com/aluiziolira/go-scrape-catalog/scraper"
	"github.com/aluiziolira/go-scrape-catalog/storage"
	"github.com/aluiziolira/go-scrape-catalog/tracker"
)

// app holds the wired components shared by every subcommand.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	metrics *scraper.Metrics
	tracker *tracker.Tracker
	archive *archive.Archive
	orch    *pipeline.Orchestrator
	closers []func() error
}

func loadConfig(overrides func(*config.Config)) (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if verbose {
		cfg.Verbose = true
	}
	if overrides != nil {
		overrides(cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	logger, _ := newLogger(cfg.Verbose)
	slog.SetDefault(logger)

	arch, err := archive.New(cfg.ArchiveSize)
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:     cfg,
		logger:  logger,
		metrics: scraper.NewMetrics(),
		tracker: tracker.New(),
		archive: arch,
	}

	opts := []pipeline.Option{pipeline.WithArchive(arch)}
	if cfg.MongoURI != "" {
		store, err := storage.NewMongoJobStore(ctx, cfg.MongoURI, cfg.MongoDatabase, cfg.MongoCollection, logger)
		if err != nil {
			return nil, err
		}
		opts = append(opts, pipeline.WithRecorder(store))
		a.closers = append(a.closers, store.Close)
		logger.Info("job history enabled", slog.String("database", cfg.MongoDatabase), slog.String("collection", cfg.MongoCollection))
	}

	client := scraper.NewClient(cfg, a.metrics, logger)
	a.orch = pipeline.NewOrchestrator(cfg, client, a.tracker, a.metrics, logger, opts...)
	return a, nil
}

func (a *app) Close() {
	for _, closeFn := range a.closers {
		if err := closeFn(); err != nil {
			a.logger.Error("close failed", slog.Any("error", err))
		}
	}
}
