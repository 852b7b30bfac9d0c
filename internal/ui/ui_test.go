package ui

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/alfredjeanlab/givecal/internal/model"
)

func TestColorDecision(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		tty  bool
		want bool
	}{
		{"tty default", nil, true, true},
		{"pipe default", nil, false, false},
		{"NO_COLOR wins over force", map[string]string{"NO_COLOR": "1", "CLICOLOR_FORCE": "1", ColorEnv: "always"}, true, false},
		{"always on a pipe", map[string]string{ColorEnv: "always"}, false, true},
		{"never on a tty", map[string]string{ColorEnv: " Never "}, true, false},
		{"auto defers", map[string]string{ColorEnv: "auto", "CLICOLOR": "0"}, true, false},
		{"CLICOLOR_FORCE", map[string]string{"CLICOLOR_FORCE": "1"}, false, true},
		{"CLICOLOR off", map[string]string{"CLICOLOR": "0"}, true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			getenv := func(k string) string { return tt.env[k] }
			if got := colorDecision(getenv, tt.tty); got != tt.want {
				t.Errorf("colorDecision() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestShouldUseColor_NoColor(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	t.Setenv(ColorEnv, "always")
	if ShouldUseColor() {
		t.Fatal("NO_COLOR must win")
	}
}

func TestRenderGrid(t *testing.T) {
	ForceNoColor()

	rows := [][]model.Cell{{
		{ID: "day-1", Kind: model.KindNumbered, Day: 1, Status: model.Open()},
		{ID: "day-2", Kind: model.KindNumbered, Day: 2, Status: model.Pledged(decimal.RequireFromString("2"), "Sam")},
		{ID: "any-1", Kind: model.KindAny, Status: model.Open()},
	}}
	got := RenderGrid(rows)
	want := "1 $1      ✓ $2      $ any    \n"
	if got != want {
		t.Fatalf("RenderGrid:\n got %q\nwant %q", got, want)
	}
}

func TestRenderNoColor(t *testing.T) {
	ForceNoColor()
	for _, fn := range []func(string) string{RenderAccent, RenderMuted, RenderCommand, RenderPledged, RenderAny, RenderWarning} {
		if got := fn("x"); got != "x" || strings.Contains(got, "\x1b") {
			t.Fatalf("expected plain text, got %q", got)
		}
	}
}
