package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/gosuri/uitable"
	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/givecal/internal/grid"
	"github.com/alfredjeanlab/givecal/internal/paylink"
	"github.com/alfredjeanlab/givecal/internal/selection"
)

var linkCmd = &cobra.Command{
	Use:     "link <cell-id> [amount]",
	Short:   "Compose the payment links for a cell",
	GroupID: "calendar",
	Args:    cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := loadFundraiser()
		if err != nil {
			return err
		}
		cell, ok := grid.Build(f.Layout).Lookup(args[0])
		if !ok {
			return fmt.Errorf("no cell %q in this calendar", args[0])
		}
		name, _ := cmd.Flags().GetString("name")

		ctrl := selection.New(paylink.New(f.VenmoUsername, f.NotePrefix), true)
		if err := ctrl.Open(*cell); err != nil {
			return err
		}
		if len(args) == 2 {
			ctrl.SetAmount(args[1])
		}
		ctrl.SetName(name)
		if _, err := selection.ParseAmount(ctrl.Amount()); err != nil {
			return err
		}
		links := ctrl.Links()

		if jsonOutput {
			return printJSON(links)
		}
		tbl := uitable.New()
		tbl.Separator = "  "
		tbl.Wrap = false
		tbl.AddRow("Note:", links.Note)
		tbl.AddRow("App:", links.Deep)
		tbl.AddRow("Web:", links.Web)
		tbl.AddRow("Profile:", links.Profile)
		fmt.Fprintln(color.Output, ctrl.Subtitle())
		fmt.Fprintln(color.Output, tbl)
		return nil
	},
}

func init() {
	linkCmd.Flags().String("name", "", "pledger name for the payment note")
}
