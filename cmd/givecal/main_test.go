package main

import (
	"strings"
	"testing"

	"github.com/alfredjeanlab/givecal/internal/config"
	"github.com/alfredjeanlab/givecal/internal/ui"
)

func TestColorizeHelp_NoColorIsIdentity(t *testing.T) {
	ui.ForceNoColor()
	in := "Usage:\n  givecal <command>\n\nCalendar:\n  tui         Open the calendar\n\nFlags:\n      --server string   gRPC server address (default \"x\")\n"
	if got := colorizeHelp(in); got != in {
		t.Fatalf("expected unchanged text without color, got %q", got)
	}
}

func TestHelpRulesMatch(t *testing.T) {
	cases := []struct {
		rule int
		text string
		want bool
	}{
		{0, "Pledges:", true},
		{0, "  not a header:", false},
		{1, "  copy-link   Copy the calendar link", true},
		{2, "--fallback-delay duration", true},
		{3, `(default "http://localhost:8080")`, true},
	}
	for _, tc := range cases {
		if got := helpRules[tc.rule].re.MatchString(tc.text); got != tc.want {
			t.Errorf("rule %d on %q: got %v, want %v", tc.rule, tc.text, got, tc.want)
		}
	}
}

func TestOverrideString(t *testing.T) {
	s := "settings"
	overrideString(&s, "")
	if s != "settings" {
		t.Fatalf("empty flag must not override, got %q", s)
	}
	overrideString(&s, "flag")
	if s != "flag" {
		t.Fatalf("expected flag value, got %q", s)
	}
}

func TestCalendarURL(t *testing.T) {
	settings = &config.Settings{HTTPURL: "https://give.example/"}
	t.Cleanup(func() { settings = nil })
	if got := calendarURL(); got != "https://give.example/" {
		t.Fatalf("calendarURL = %q", got)
	}
}

func TestNewPledgeClient_Local(t *testing.T) {
	settings = &config.Settings{Transport: config.TransportLocal}
	t.Cleanup(func() { settings = nil })
	if _, err := newPledgeClient(); err == nil || !strings.Contains(err.Error(), "needs a server") {
		t.Fatalf("expected local transport error, got %v", err)
	}
}

func TestCommandGroups(t *testing.T) {
	for _, cmd := range rootCmd.Commands() {
		if cmd.GroupID == "" && cmd.Name() != "help" && cmd.Name() != "completion" {
			t.Errorf("command %q has no group", cmd.Name())
		}
	}
}
