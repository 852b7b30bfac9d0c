package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/givecal/internal/client"
	"github.com/alfredjeanlab/givecal/internal/config"
	"github.com/alfredjeanlab/givecal/internal/ui"
)

var (
	settingsPath string
	jsonOutput   bool

	// Flag values; empty means "use the settings file".
	flagHTTPURL    string
	flagServer     string
	flagTransport  string
	flagToken      string
	flagFundraiser string

	settings *config.Settings
)

var rootCmd = &cobra.Command{
	Use:           "givecal <command>",
	Short:         "Giving calendar: pick a day, give that amount",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		ui.ConfigureColor()
		s, err := config.LoadSettings(settingsPath)
		if err != nil {
			return err
		}
		overrideString(&s.HTTPURL, flagHTTPURL)
		overrideString(&s.Server, flagServer)
		overrideString(&s.Transport, flagTransport)
		overrideString(&s.Token, flagToken)
		overrideString(&s.Fundraiser, flagFundraiser)
		switch s.Transport {
		case config.TransportHTTP, config.TransportGRPC, config.TransportLocal:
		default:
			return fmt.Errorf("unknown transport %q (must be http, grpc or local)", s.Transport)
		}
		settings = s
		return nil
	},
}

func overrideString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// newPledgeClient connects to the configured server. It fails for the local
// transport, which has no server.
func newPledgeClient() (client.PledgeClient, error) {
	return dialPledgeClient(settings.ClientID)
}

// dialPledgeClient is newPledgeClient with the viewer id sent on pledge feeds.
func dialPledgeClient(clientID string) (client.PledgeClient, error) {
	if settings.Transport == config.TransportLocal {
		return nil, fmt.Errorf("this command needs a server; set --transport http or grpc")
	}
	c, err := client.New(client.Options{
		Transport: settings.Transport,
		HTTPURL:   settings.HTTPURL,
		GRPCAddr:  settings.Server,
		Token:     settings.Token,
		ClientID:  clientID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to server: %w", err)
	}
	return c, nil
}

// calendarURL is the public calendar page of the configured server.
func calendarURL() string {
	return strings.TrimRight(settings.HTTPURL, "/") + "/"
}

func loadFundraiser() (*config.Fundraiser, error) {
	f, err := config.LoadFundraiser(settings.Fundraiser)
	if err != nil {
		return nil, err
	}
	return f, nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&settingsPath, "config", "", "settings file (default ~/.givecal.yaml)")
	rootCmd.PersistentFlags().StringVar(&flagHTTPURL, "http-url", "", "HTTP server URL")
	rootCmd.PersistentFlags().StringVar(&flagServer, "server", "", "gRPC server address")
	rootCmd.PersistentFlags().StringVar(&flagTransport, "transport", "", "transport (http, grpc or local)")
	rootCmd.PersistentFlags().StringVar(&flagToken, "token", "", "bearer token for writes")
	rootCmd.PersistentFlags().StringVar(&flagFundraiser, "fundraiser", "", "fundraiser file")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output as JSON")

	rootCmd.AddGroup(
		&cobra.Group{ID: "calendar", Title: "Calendar:"},
		&cobra.Group{ID: "pledges", Title: "Pledges:"},
		&cobra.Group{ID: "system", Title: "System:"},
	)

	cobra.EnableCommandSorting = false
	rootCmd.SetHelpFunc(colorizedHelpFunc())

	// Calendar
	rootCmd.AddCommand(tuiCmd)
	rootCmd.AddCommand(gridCmd)
	rootCmd.AddCommand(linkCmd)
	rootCmd.AddCommand(shareCmd)
	rootCmd.AddCommand(copyLinkCmd)

	// Pledges
	rootCmd.AddCommand(pledgesCmd)

	// System
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(exportCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, ui.RenderWarning("Error: ")+err.Error())
		os.Exit(1)
	}
}
