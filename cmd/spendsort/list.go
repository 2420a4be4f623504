package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ArionMiles/spendsort/pkg/export"
)

func newListCmd(a *app) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print committed transactions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			exporter, err := a.registry.GetExporter(format)
			if err != nil {
				return err
			}
			if _, ok := exporter.(export.JSON); ok {
				exporter = export.JSON{Indent: true}
			}

			built, err := a.runner.Build(cmd.Context(), a.cfg)
			if err != nil {
				return err
			}
			defer built.Close()

			transactions, err := built.Store.ListTransactions(cmd.Context())
			if err != nil {
				return fmt.Errorf("listing transactions: %w", err)
			}
			return exporter.Export(cmd.OutOrStdout(), transactions)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "json", "output format (json or csv)")
	return cmd
}
