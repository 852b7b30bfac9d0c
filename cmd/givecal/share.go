package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/givecal/internal/client"
	"github.com/alfredjeanlab/givecal/internal/config"
	"github.com/alfredjeanlab/givecal/internal/share"
	"github.com/alfredjeanlab/givecal/internal/ui"
)

var shareCmd = &cobra.Command{
	Use:     "share",
	Short:   "Copy the calendar invitation link",
	GroupID: "calendar",
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := sharePayload(cmd)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(p)
		}
		msg, err := share.Share(cmd.Context(), p, nil, nil)
		if err != nil {
			// No clipboard: print the link so it can be copied by hand.
			fmt.Println(p.URL)
			return nil
		}
		fmt.Println(msg)
		return nil
	},
}

var copyLinkCmd = &cobra.Command{
	Use:     "copy-link",
	Short:   "Copy the calendar link to the clipboard",
	GroupID: "calendar",
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := sharePayload(cmd)
		if err != nil {
			return err
		}
		msg, err := share.CopyLink(p.URL, nil)
		if err != nil {
			fmt.Println(p.URL)
			return nil
		}
		fmt.Println(ui.RenderMuted(msg))
		return nil
	},
}

// sharePayload asks the HTTP server for its share payload, or builds one
// from the fundraiser file and --url.
func sharePayload(cmd *cobra.Command) (share.Payload, error) {
	if u, _ := cmd.Flags().GetString("url"); u != "" || settings.Transport != config.TransportHTTP {
		f, err := loadFundraiser()
		if err != nil {
			return share.Payload{}, err
		}
		if u == "" {
			u = calendarURL()
		}
		return share.Payload{Title: f.Title, Text: f.ShareText, URL: u}, nil
	}
	p, err := client.NewHTTPClient(settings.HTTPURL, settings.Token).Share(cmd.Context())
	if err != nil {
		return share.Payload{}, fmt.Errorf("fetching share link: %w", err)
	}
	return p, nil
}

func init() {
	shareCmd.Flags().String("url", "", "calendar link (default: ask the server)")
	copyLinkCmd.Flags().String("url", "", "calendar link (default: ask the server)")
}
