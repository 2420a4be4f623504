// Package daemon wires configuration into a running spendsort service.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ArionMiles/spendsort/internal/plugins"
	"github.com/ArionMiles/spendsort/internal/server"
	"github.com/ArionMiles/spendsort/internal/upload"
	"github.com/ArionMiles/spendsort/pkg/api"
	"github.com/ArionMiles/spendsort/pkg/archive/gcs"
	"github.com/ArionMiles/spendsort/pkg/categorize"
	"github.com/ArionMiles/spendsort/pkg/config"
	"github.com/ArionMiles/spendsort/pkg/ingest"
)

// App holds the long-lived dependencies built from configuration.
type App struct {
	Store    api.Store
	Uploads  *upload.Service
	archiver *gcs.Archiver
	logger   *slog.Logger
}

// Close releases the store and the archive client.
func (a *App) Close() {
	if a.archiver != nil {
		if err := a.archiver.Close(); err != nil {
			a.logger.Warn("failed to close archive client", "error", err)
		}
	}
	a.Store.Close()
}

// Runner manages the spendsort service lifecycle.
type Runner struct {
	registry *plugins.Registry
	logger   *slog.Logger
}

// New creates a new runner.
func New(registry *plugins.Registry, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}

	return &Runner{
		registry: registry,
		logger:   logger,
	}
}

// Build creates the store, pipeline, archiver and upload service for cfg.
// The caller must Close the returned App.
func (r *Runner) Build(ctx context.Context, cfg config.Config) (*App, error) {
	table := categorize.Default()
	if cfg.CategoriesFile != "" {
		var err error
		table, err = categorize.Load(cfg.CategoriesFile)
		if err != nil {
			return nil, fmt.Errorf("loading categories: %w", err)
		}
		r.logger.Info("loaded category table", "file", cfg.CategoriesFile, "categories", len(table.Categories()))
	}
	pipeline := ingest.New(categorize.New(table), r.logger.With("component", "pipeline"))

	storeCfg, err := cfg.StoreSettings()
	if err != nil {
		return nil, fmt.Errorf("building store config: %w", err)
	}

	store, err := r.registry.CreateStore(ctx, cfg.StoreBackend, storeCfg,
		r.logger.With("plugin", cfg.StoreBackend))
	if err != nil {
		return nil, fmt.Errorf("creating store: %w", err)
	}

	app := &App{Store: store, logger: r.logger}

	var opts []upload.Option
	if cfg.ArchiveBucket != "" {
		archiver, err := gcs.New(ctx, gcs.Config{
			Bucket:   cfg.ArchiveBucket,
			Prefix:   cfg.ArchivePrefix,
			Endpoint: cfg.ArchiveEndpoint,
		}, r.logger)
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("creating upload archive: %w", err)
		}
		app.archiver = archiver
		opts = append(opts, upload.WithArchiver(archiver))
	}

	app.Uploads = upload.New(pipeline, r.registry, store, r.logger, opts...)
	return app, nil
}

// Run serves the HTTP API with the given configuration.
// It blocks until the context is canceled or the server fails.
func (r *Runner) Run(ctx context.Context, cfg config.Config) error {
	r.logger.Info("starting spendsort",
		"addr", cfg.HTTPAddr,
		"store", cfg.StoreBackend,
		"archive", cfg.ArchiveBucket != "",
	)

	app, err := r.Build(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	srv := server.New(server.Config{
		Addr:           cfg.HTTPAddr,
		MaxUploadBytes: cfg.MaxUploadBytes,
	}, app.Uploads, app.Store, r.registry, r.logger)

	if err := srv.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("running server: %w", err)
	}

	r.logger.Info("spendsort stopped")
	return nil
}
