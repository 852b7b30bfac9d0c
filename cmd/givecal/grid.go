package main

import (
	"encoding/json"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/givecal/internal/board"
	"github.com/alfredjeanlab/givecal/internal/config"
	"github.com/alfredjeanlab/givecal/internal/grid"
	"github.com/alfredjeanlab/givecal/internal/model"
	"github.com/alfredjeanlab/givecal/internal/paylink"
	"github.com/alfredjeanlab/givecal/internal/ui"
)

var gridCmd = &cobra.Command{
	Use:     "grid",
	Short:   "Print the calendar with taken cells marked",
	GroupID: "calendar",
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := loadFundraiser()
		if err != nil {
			return err
		}
		b := board.New(grid.Build(f.Layout), board.LocalOnly(), board.Config{OwnerHandle: f.VenmoUsername})

		if settings.Transport != config.TransportLocal {
			c, err := newPledgeClient()
			if err != nil {
				return err
			}
			defer c.Close()
			recs, err := c.List(cmd.Context())
			if err != nil {
				return fmt.Errorf("listing pledges: %w", err)
			}
			for _, rec := range recs {
				b.Apply(rec.ID, *rec)
			}
		}

		rows := b.Rows()
		n, total := b.Totals()
		if jsonOutput {
			return printJSON(struct {
				Title   string         `json:"title"`
				Rows    [][]model.Cell `json:"rows"`
				Pledged int            `json:"pledged"`
				Total   string         `json:"total"`
			}{f.Title, rows, n, paylink.FormatUSD(total)})
		}

		fmt.Fprintln(color.Output, ui.RenderAccent(f.Title))
		fmt.Fprint(color.Output, ui.RenderGrid(rows))
		fmt.Fprintln(color.Output, ui.RenderMuted(fmt.Sprintf("%d of %d pledged · %s", n, len(b.Snapshot()), paylink.FormatUSD(total))))
		return nil
	},
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	fmt.Println(string(data))
	return nil
}
