package ui

import "github.com/fatih/color"

var (
	accent    = color.New(color.FgBlue)
	muted     = color.New(color.FgHiBlack)
	command   = color.New(color.FgWhite)
	pledged   = color.New(color.FgGreen, color.Bold)
	anyAmount = color.New(color.FgYellow)
	warning   = color.New(color.FgRed)
)

// RenderAccent returns s in the accent (blue) color.
func RenderAccent(s string) string {
	return accent.Sprint(s)
}

// RenderMuted returns s in the muted (gray) color.
func RenderMuted(s string) string {
	return muted.Sprint(s)
}

// RenderCommand returns s styled as a command name (light gray).
func RenderCommand(s string) string {
	return command.Sprint(s)
}

// RenderPledged returns s styled as a taken cell.
func RenderPledged(s string) string {
	return pledged.Sprint(s)
}

// RenderAny returns s styled as an open any-amount cell.
func RenderAny(s string) string {
	return anyAmount.Sprint(s)
}

// RenderWarning returns s in red.
func RenderWarning(s string) string {
	return warning.Sprint(s)
}

// ForceNoColor disables color output globally.
func ForceNoColor() {
	color.NoColor = true
}

// ConfigureColor applies ShouldUseColor to all rendering in this package.
func ConfigureColor() {
	color.NoColor = !ShouldUseColor()
}
