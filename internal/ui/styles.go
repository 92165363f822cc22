package ui

import "fmt"

// ANSI256 color codes.
const (
	colorAccent = 74  // blue: headings, categories
	colorKey    = 180 // sand: field names
	colorCmd    = 250 // light gray: command names
	colorMuted  = 245 // gray: nulls, counts, notes
	colorError  = 167 // red
)

var noColor bool

func paint(code int, s string) string {
	if noColor {
		return s
	}
	return fmt.Sprintf("\x1b[38;5;%dm%s\x1b[0m", code, s)
}

// RenderAccent returns s in the accent (blue) color.
func RenderAccent(s string) string { return paint(colorAccent, s) }

// RenderKey returns s styled as a record field name.
func RenderKey(s string) string { return paint(colorKey, s) }

// RenderCommand returns s styled as a command name (light gray).
func RenderCommand(s string) string { return paint(colorCmd, s) }

// RenderMuted returns s in the muted (gray) color.
func RenderMuted(s string) string { return paint(colorMuted, s) }

// RenderError returns s in the error (red) color.
func RenderError(s string) string { return paint(colorError, s) }

// ForceNoColor disables color output globally.
func ForceNoColor() {
	noColor = true
}

// Init disables color when ShouldUseColor says stdout cannot show it.
func Init() {
	if !ShouldUseColor() {
		ForceNoColor()
	}
}
