package ui

import (
	"os"
	"strings"

	"golang.org/x/term"
)

// stdoutIsTerminal is swapped in tests.
var stdoutIsTerminal = func() bool { return term.IsTerminal(int(os.Stdout.Fd())) }

// ShouldUseColor reports whether stdout should get ANSI colors.
//
// FOUNDRY_COLOR=always|never overrides everything else. Otherwise NO_COLOR
// (any value) disables color, CLICOLOR_FORCE=1 forces it, CLICOLOR=0
// disables it, and a terminal on stdout enables it.
func ShouldUseColor() bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("FOUNDRY_COLOR"))) {
	case "always":
		return true
	case "never":
		return false
	}
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	if strings.TrimSpace(os.Getenv("CLICOLOR_FORCE")) == "1" {
		return true
	}
	if strings.TrimSpace(os.Getenv("CLICOLOR")) == "0" {
		return false
	}
	return stdoutIsTerminal()
}
