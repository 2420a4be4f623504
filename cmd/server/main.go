package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/ArionMiles/spendsort/internal/daemon"
	"github.com/ArionMiles/spendsort/internal/plugins"
	"github.com/ArionMiles/spendsort/pkg/config"
	"github.com/ArionMiles/spendsort/pkg/logging"
)

func main() {
	// A missing .env file is fine; the environment may already be set.
	_ = godotenv.Load()

	logger := logging.Setup(logging.DefaultConfig())

	registry, err := plugins.Builtin()
	if err != nil {
		logger.Error("failed to register plugins", "error", err)
		os.Exit(1)
	}

	logger.Info("plugins registered",
		"readers", len(registry.ListReaders()),
		"stores", len(registry.ListStores()),
		"extensions", registry.Extensions(),
	)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger = logging.Setup(cfg.Logging())

	logger.Info("configuration loaded",
		"addr", cfg.HTTPAddr,
		"store", cfg.StoreBackend,
		"max_upload_bytes", cfg.MaxUploadBytes,
	)

	runner := daemon.New(registry, logger)

	// Setup context with cancellation on SIGINT/SIGTERM
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	if err := runner.Run(ctx, cfg); err != nil {
		logger.Error("daemon failed", "error", err)
		os.Exit(1)
	}
}
