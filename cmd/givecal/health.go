package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/givecal/internal/client"
)

var healthCmd = &cobra.Command{
	Use:     "health",
	Short:   "Check the health and mode of the givecal server",
	GroupID: "system",
	RunE: func(cmd *cobra.Command, args []string) error {
		h, err := client.NewHTTPClient(settings.HTTPURL, settings.Token).Health(cmd.Context())
		if err != nil {
			return fmt.Errorf("checking health: %w", err)
		}

		if jsonOutput {
			if err := printJSON(h); err != nil {
				return err
			}
		} else {
			fmt.Printf("Health:  %s\nMode:    %s\nViewers: %d\n", h.Status, h.Mode, h.Viewers)
		}

		if h.Status != "ok" {
			return fmt.Errorf("unhealthy: %s", h.Status)
		}
		return nil
	},
}
