package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ArionMiles/spendsort/pkg/api"
	"github.com/ArionMiles/spendsort/pkg/ingest"
)

func newIngestCmd(a *app) *cobra.Command {
	var (
		dryRun  bool
		showAll bool
	)

	cmd := &cobra.Command{
		Use:   "ingest FILE",
		Short: "Ingest one statement file",
		Long: `Ingest runs FILE through header reconciliation, normalization and
categorization, then commits the accepted rows as one batch.
With --dry-run nothing is stored.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("reading %s: %w", path, err)
			}
			name := filepath.Base(path)

			built, err := a.runner.Build(cmd.Context(), a.cfg)
			if err != nil {
				return err
			}
			defer built.Close()

			var batch *api.BatchResult
			if dryRun {
				batch, err = built.Uploads.Preview(name, data)
			} else {
				batch, err = built.Uploads.Upload(cmd.Context(), name, data)
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if showAll {
				for _, t := range batch.Transactions {
					fmt.Fprintf(out, "%s\t%s\t%s\t%s\n",
						t.Date.Format(api.DateLayout), api.FormatAmount(t.Amount), t.Category, t.Description)
				}
			}
			fmt.Fprintln(out, ingest.Summary(batch))
			if dryRun {
				fmt.Fprintln(out, "dry run: nothing stored")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "parse and categorize without storing")
	cmd.Flags().BoolVarP(&showAll, "verbose", "v", false, "print every accepted transaction")
	return cmd
}
