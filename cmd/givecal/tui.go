package main

import (
	"fmt"
	"os/exec"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/givecal/internal/board"
	"github.com/alfredjeanlab/givecal/internal/config"
	"github.com/alfredjeanlab/givecal/internal/grid"
	"github.com/alfredjeanlab/givecal/internal/idgen"
	"github.com/alfredjeanlab/givecal/internal/paylink"
	"github.com/alfredjeanlab/givecal/internal/tui"
)

var tuiCmd = &cobra.Command{
	Use:     "tui",
	Short:   "Open the calendar in the terminal",
	GroupID: "calendar",
	Long: `Open the calendar in the terminal.

With the local transport pledges only mark cells in this session. With http
or grpc the calendar follows the server and pledges are shared. The
fundraiser file must describe the same layout the server uses.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := loadFundraiser()
		if err != nil {
			return err
		}
		app, _ := cmd.Flags().GetBool("app")
		delay, _ := cmd.Flags().GetDuration("fallback-delay")
		noOpen, _ := cmd.Flags().GetBool("no-open")

		clientID, err := clientIdentity()
		if err != nil {
			return err
		}

		mode := board.LocalOnly()
		shareURL, _ := cmd.Flags().GetString("share-url")
		if settings.Transport != config.TransportLocal {
			c, err := dialPledgeClient(clientID)
			if err != nil {
				return err
			}
			defer c.Close()
			mode = board.Synced(c)
			if shareURL == "" {
				shareURL = calendarURL()
			}
		}

		b := board.New(grid.Build(f.Layout), mode, board.Config{
			OwnerHandle: f.VenmoUsername,
			ClientID:    clientID,
		})

		opts := tui.Options{
			Fundraiser:    f,
			Board:         b,
			ShareURL:      shareURL,
			FallbackDelay: delay,
		}
		if app {
			opts.Client = paylink.Mobile
		}
		if !noOpen {
			opts.Open = openURL
		}
		return tui.Run(cmd.Context(), opts)
	},
}

func init() {
	tuiCmd.Flags().Bool("app", false, "open the payment app first, then the profile page if it does not take over")
	tuiCmd.Flags().Duration("fallback-delay", paylink.DefaultFallbackDelay, "how long to wait for the payment app")
	tuiCmd.Flags().Bool("no-open", false, "show payment links instead of opening them")
	tuiCmd.Flags().String("share-url", "", "calendar link to share (default: the server URL)")
}

// clientIdentity returns the anonymous id stamped on this client's pledges.
func clientIdentity() (string, error) {
	if settings.ClientID != "" {
		return settings.ClientID, nil
	}
	path, err := config.StatePath("client-id")
	if err != nil {
		return idgen.Generate()
	}
	return idgen.LoadOrCreate(path)
}

// openURL hands url to the desktop's default handler.
func openURL(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("opening link: %w", err)
	}
	return cmd.Process.Release()
}
