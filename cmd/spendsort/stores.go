package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newStoresCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stores",
		Short: "List store backends and their configuration schema",
		Long: `List every registered store backend with its description and the JSON
schema of the STORE_CONFIG it accepts. The backend selected by
STORE_BACKEND is marked active. No backend is opened.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			for i, plugin := range a.registry.ListStores() {
				schema, err := json.MarshalIndent(plugin.ConfigSchema(), "  ", "  ")
				if err != nil {
					return fmt.Errorf("encoding %s config schema: %w", plugin.Name(), err)
				}

				if i > 0 {
					fmt.Fprintln(out)
				}
				name := plugin.Name()
				if name == a.cfg.StoreBackend {
					name += " (active)"
				}
				fmt.Fprintln(out, name)
				fmt.Fprintf(out, "  %s\n", plugin.Description())
				fmt.Fprintf(out, "  %s\n", schema)
			}
			return nil
		},
	}
}
