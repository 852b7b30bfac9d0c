package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/givecal/internal/config"
	"github.com/alfredjeanlab/givecal/internal/store"
	pledgesync "github.com/alfredjeanlab/givecal/internal/sync"
)

var exportCmd = &cobra.Command{
	Use:     "export",
	Short:   "Write every stored pledge as JSONL",
	GroupID: "system",
	Long: `Write every stored pledge as JSONL, in the same format the sync scheduler
uploads. The store comes from --database-url, GIVECAL_DATABASE_URL or the
fundraiser file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		dbURL, _ := cmd.Flags().GetString("database-url")
		if dbURL == "" {
			dbURL = os.Getenv("GIVECAL_DATABASE_URL")
		}
		f, err := config.LoadFundraiser(settings.Fundraiser)
		if err != nil {
			return err
		}
		storeURL := f.StoreURL(dbURL)
		if storeURL == "" {
			return fmt.Errorf("no store configured; pass --database-url")
		}

		st, err := store.Open(storeURL)
		if err != nil {
			return err
		}
		defer st.Close()

		out := cmd.OutOrStdout()
		if path, _ := cmd.Flags().GetString("output"); path != "" {
			file, err := os.Create(path)
			if err != nil {
				return err
			}
			defer file.Close()
			out = file
		}
		return pledgesync.ExportJSONL(cmd.Context(), st, out)
	},
}

func init() {
	exportCmd.Flags().String("database-url", "", "store URL (postgres://, sqlite:// or file://)")
	exportCmd.Flags().StringP("output", "o", "", "write to a file instead of stdout")
}
