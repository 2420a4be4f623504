package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/ArionMiles/spendsort/internal/daemon"
	"github.com/ArionMiles/spendsort/internal/plugins"
	"github.com/ArionMiles/spendsort/pkg/config"
	"github.com/ArionMiles/spendsort/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// app carries what every subcommand needs once configuration is loaded.
type app struct {
	cfg      config.Config
	logger   *slog.Logger
	registry *plugins.Registry
	runner   *daemon.Runner
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "spendsort",
		Short: "Ingest bank statements into categorized transactions",
		Long: `spendsort reads CSV and Excel bank statement exports, reconciles their
column names, categorizes every row by keyword and stores each upload as
one batch.

Configuration comes from the environment (and an optional .env file or
the JSON file named by SPENDSORT_CONFIG).`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}

	root.AddCommand(
		newServeCmd(a),
		newIngestCmd(a),
		newListCmd(a),
		newStoresCmd(a),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logCfg := cfg.Logging()
	logCfg.Output = cmd.ErrOrStderr()
	a.logger = logging.Setup(logCfg)

	registry, err := plugins.Builtin()
	if err != nil {
		return fmt.Errorf("registering plugins: %w", err)
	}

	a.cfg = cfg
	a.registry = registry
	a.runner = daemon.New(registry, a.logger)
	return nil
}
