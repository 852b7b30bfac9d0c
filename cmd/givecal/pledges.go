package main

import (
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/fatih/color"
	"github.com/gosuri/uitable"
	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/givecal/internal/grid"
	"github.com/alfredjeanlab/givecal/internal/model"
	"github.com/alfredjeanlab/givecal/internal/paylink"
	"github.com/alfredjeanlab/givecal/internal/selection"
	"github.com/alfredjeanlab/givecal/internal/ui"
)

var pledgesCmd = &cobra.Command{
	Use:     "pledges",
	Short:   "List, record and watch pledges on the server",
	GroupID: "pledges",
}

var pledgesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every pledge",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newPledgeClient()
		if err != nil {
			return err
		}
		defer c.Close()

		recs, err := c.List(cmd.Context())
		if err != nil {
			return fmt.Errorf("listing pledges: %w", err)
		}
		if jsonOutput {
			if recs == nil {
				recs = []*model.PledgeRecord{}
			}
			return printJSON(recs)
		}
		printPledgeTable(recs)
		return nil
	},
}

var pledgesPutCmd = &cobra.Command{
	Use:   "put <cell-id> [amount]",
	Short: "Record a pledge for a cell",
	Long: `Record a pledge for a cell. The amount defaults to the cell's day number;
any-amount cells need one. The fundraiser file supplies the calendar layout
and the payment handle stamped on the record.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := loadFundraiser()
		if err != nil {
			return err
		}
		cell, ok := grid.Build(f.Layout).Lookup(args[0])
		if !ok {
			return fmt.Errorf("no cell %q in this calendar", args[0])
		}
		amountText := ""
		if nominal, ok := cell.Nominal(); ok {
			amountText = nominal.String()
		}
		if len(args) == 2 {
			amountText = args[1]
		}
		amount, err := selection.ParseAmount(amountText)
		if err != nil {
			return err
		}
		name, _ := cmd.Flags().GetString("name")
		clientID, err := clientIdentity()
		if err != nil {
			return err
		}

		c, err := newPledgeClient()
		if err != nil {
			return err
		}
		defer c.Close()

		rec := model.NewPledgeRecord(cell, amount, name, f.VenmoUsername, clientID)
		stored, err := c.Put(cmd.Context(), cell.ID, rec)
		if err != nil {
			return fmt.Errorf("recording pledge: %w", err)
		}
		if jsonOutput {
			return printJSON(stored)
		}
		fmt.Printf("Pledged %s for %s\n", paylink.FormatUSD(amount), cell.ID)
		return nil
	},
}

var pledgesWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print pledges as they arrive",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newPledgeClient()
		if err != nil {
			return err
		}
		defer c.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		return c.Subscribe(ctx, func(id string, rec model.PledgeRecord) {
			if jsonOutput {
				_ = printJSON(rec)
				return
			}
			line := fmt.Sprintf("%s  %-8s %8s  %s", rec.CreatedAt.Local().Format(time.TimeOnly), id, paylink.FormatUSD(rec.Amount), rec.PledgerName())
			fmt.Fprintln(color.Output, ui.RenderPledged(line))
		})
	},
}

func printPledgeTable(recs []*model.PledgeRecord) {
	tbl := uitable.New()
	tbl.Separator = "  "
	tbl.MaxColWidth = 40
	tbl.AddRow(ui.RenderAccent("CELL"), ui.RenderAccent("AMOUNT"), ui.RenderAccent("NAME"), ui.RenderAccent("CREATED"))
	for _, rec := range recs {
		name := rec.PledgerName()
		if name == "" {
			name = ui.RenderMuted("anonymous")
		}
		created := ""
		if !rec.CreatedAt.IsZero() {
			created = rec.CreatedAt.Local().Format("2006-01-02 15:04")
		}
		tbl.AddRow(rec.ID, paylink.FormatUSD(rec.Amount), name, created)
	}
	tbl.RightAlign(1)
	fmt.Fprintln(color.Output, tbl)
	fmt.Fprintf(color.Output, "\n%d pledges\n", len(recs))
}

func init() {
	pledgesPutCmd.Flags().String("name", "", "pledger name")

	pledgesCmd.AddCommand(pledgesListCmd)
	pledgesCmd.AddCommand(pledgesPutCmd)
	pledgesCmd.AddCommand(pledgesWatchCmd)
}
