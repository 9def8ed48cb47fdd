package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var healthCmd = &cobra.Command{
	Use:     "health",
	Short:   "Check the health of the hands service",
	GroupID: "system",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		h, err := handsClient.Health(cmd.Context())
		if err != nil {
			return fmt.Errorf("checking health: %w", err)
		}
		if jsonOutput {
			if err := printJSON(cmd.OutOrStdout(), h); err != nil {
				return err
			}
		} else if h.Directory != "" {
			fmt.Fprintf(cmd.OutOrStdout(), "Health: %s (cache %s, directory %s)\n", h.Status, h.Cache, h.Directory)
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "Health: %s (cache %s)\n", h.Status, h.Cache)
		}
		if h.Status != "ok" || h.Cache != "ok" {
			return fmt.Errorf("unhealthy: status %s, cache %s", h.Status, h.Cache)
		}
		if h.Directory != "" && h.Directory != "ok" {
			return fmt.Errorf("unhealthy: directory %s", h.Directory)
		}
		return nil
	},
}
