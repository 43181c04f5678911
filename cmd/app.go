package main

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/uptrace/bun"

	"medical-summary/internal/config"
	"medical-summary/internal/db"
	"medical-summary/internal/extractor"
	"medical-summary/internal/llmservice"
	"medical-summary/internal/pipeline"
	"medical-summary/internal/report"
	"medical-summary/internal/storage"
	"medical-summary/internal/summarizer"
)

// app holds the wired components shared by the commands.
type app struct {
	pipeline *pipeline.Pipeline
	store    storage.BlobStore
	reports  *db.ReportStore
	db       *bun.DB
}

// newApp wires the pipeline. localFiles lets document locations name local
// paths; only the summarize command sets it.
func newApp(ctx context.Context, cfg *config.Config, localFiles bool) (*app, error) {
	a := &app{}

	if cfg.Database.Enabled {
		sqldb, err := db.ConnectDB(&cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		a.db = db.NewDB(sqldb, cfg.Database.Debug)
		if err := db.InitDB(ctx, a.db); err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		a.reports = db.NewReportStore(a.db)
	}

	switch cfg.Storage.Driver {
	case "postgres":
		a.store = db.NewBlobStore(a.db, cfg.Server.PublicURL)
	default:
		local, err := storage.NewLocalStore(cfg.Storage.Dir, cfg.Server.PublicURL)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.store = local
	}

	model, err := llmservice.NewModel(&cfg.LLM)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}

	var opts []pipeline.Option
	if a.reports != nil {
		opts = append(opts, pipeline.WithHistory(a.reports))
	}
	fetcher := extractor.NewHTTPFetcher(time.Duration(cfg.Fetch.TimeoutSeconds) * time.Second)
	fetcher.AllowLocal = localFiles
	a.pipeline = pipeline.New(
		extractor.NewExtractor(fetcher),
		summarizer.NewFromConfig(model, cfg),
		report.NewRenderer(),
		a.store,
		opts...,
	)

	log.Info().
		Str("provider", cfg.LLM.Provider).
		Str("model", cfg.LLM.Model).
		Str("storage", cfg.Storage.Driver).
		Bool("database", cfg.Database.Enabled).
		Msg("Initialized pipeline")
	return a, nil
}

func (a *app) Close() {
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			log.Warn().Err(err).Msg("Error closing database")
		}
	}
}
