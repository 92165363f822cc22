package main

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/foundry/internal/ui"
)

// helpRule restyles every match of re in cobra's plain help text.
type helpRule struct {
	re    *regexp.Regexp
	style func(parts []string) string
}

var helpRules = []helpRule{
	// Section headers: "Records:", "Flags:". "Usage:" is left plain.
	{
		re: regexp.MustCompile(`(?m)^([A-Z][^\n]*:)[ \t]*$`),
		style: func(p []string) string {
			if p[1] == "Usage:" {
				return p[0]
			}
			return ui.RenderAccent(strings.TrimSpace(p[1]))
		},
	},
	// Command names: two-space indent, a word, then the description.
	{
		re:    regexp.MustCompile(`(?m)^(  )(\S+)(  )`),
		style: func(p []string) string { return p[1] + ui.RenderCommand(p[2]) + p[3] },
	},
	// Flag types: "--server string", "--sort stringArray".
	{
		re:    regexp.MustCompile(`(--?\S+\s+)(string|int|duration|stringArray|stringSlice)\b`),
		style: func(p []string) string { return p[1] + ui.RenderMuted(p[2]) },
	},
	{
		re:    regexp.MustCompile(`\(default "[^"]*"\)`),
		style: func(p []string) string { return ui.RenderMuted(p[0]) },
	},
}

// colorizedHelpFunc returns a cobra help function that colors the default
// help text when stdout supports it.
func colorizedHelpFunc() func(*cobra.Command, []string) {
	return func(cmd *cobra.Command, args []string) {
		if !ui.ShouldUseColor() {
			_ = cmd.Usage()
			return
		}
		orig := cmd.OutOrStdout()
		var buf bytes.Buffer
		cmd.SetOut(&buf)
		_ = cmd.Usage()
		cmd.SetOut(orig)
		fmt.Fprint(orig, colorizeHelpOutput(buf.String()))
	}
}

func colorizeHelpOutput(s string) string {
	for _, rule := range helpRules {
		s = rule.re.ReplaceAllStringFunc(s, func(match string) string {
			return rule.style(rule.re.FindStringSubmatch(match))
		})
	}
	return s
}
