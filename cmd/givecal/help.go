package main

import (
	"bytes"
	"fmt"
	"regexp"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/givecal/internal/ui"
)

// helpRule restyles one kind of token in cobra's plain help text.
type helpRule struct {
	re     *regexp.Regexp
	render func(groups []string) string
}

var helpRules = []helpRule{
	// Group headers such as "Pledges:" or "Flags:". "Usage:" stays plain.
	{
		re: regexp.MustCompile(`(?m)^([A-Z][A-Za-z ]*:)[ \t]*$`),
		render: func(g []string) string {
			if g[1] == "Usage:" {
				return g[0]
			}
			return ui.RenderAccent(g[1])
		},
	},
	// Subcommand names in command listings.
	{
		re:     regexp.MustCompile(`(?m)^(  )([a-z][\w-]*)(  +)`),
		render: func(g []string) string { return g[1] + ui.RenderCommand(g[2]) + g[3] },
	},
	// Flag value types.
	{
		re:     regexp.MustCompile(`(--[\w-]+ )(string|duration|int|bool)\b`),
		render: func(g []string) string { return g[1] + ui.RenderMuted(g[2]) },
	},
	// Defaults.
	{
		re:     regexp.MustCompile(`\(default [^)]*\)`),
		render: func(g []string) string { return ui.RenderMuted(g[0]) },
	},
}

func colorizeHelp(s string) string {
	for _, rule := range helpRules {
		s = rule.re.ReplaceAllStringFunc(s, func(m string) string {
			return rule.render(rule.re.FindStringSubmatch(m))
		})
	}
	return s
}

// colorizedHelpFunc renders cobra's usage text through colorizeHelp when
// color is enabled.
func colorizedHelpFunc() func(*cobra.Command, []string) {
	return func(cmd *cobra.Command, _ []string) {
		out := cmd.OutOrStdout()
		if !ui.ShouldUseColor() {
			_ = cmd.Usage()
			return
		}
		var buf bytes.Buffer
		cmd.SetOut(&buf)
		_ = cmd.Usage()
		cmd.SetOut(out)
		fmt.Fprint(out, colorizeHelp(buf.String()))
	}
}
