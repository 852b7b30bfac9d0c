package ui

import (
	"os"
	"strings"

	"golang.org/x/term"
)

// ColorEnv names the givecal override: "always", "never" or "auto".
const ColorEnv = "GIVECAL_COLOR"

// ShouldUseColor reports whether stdout gets ANSI colors.
func ShouldUseColor() bool {
	return colorDecision(os.Getenv, term.IsTerminal(int(os.Stdout.Fd())))
}

// colorDecision applies, in order: NO_COLOR, GIVECAL_COLOR, CLICOLOR_FORCE,
// CLICOLOR and finally whether stdout is a terminal.
func colorDecision(getenv func(string) string, tty bool) bool {
	if getenv("NO_COLOR") != "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(getenv(ColorEnv))) {
	case "always":
		return true
	case "never":
		return false
	}
	if strings.TrimSpace(getenv("CLICOLOR_FORCE")) == "1" {
		return true
	}
	if strings.TrimSpace(getenv("CLICOLOR")) == "0" {
		return false
	}
	return tty
}
