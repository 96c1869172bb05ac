package main

import (
	"fmt"
	"io"
	"os"
)

// ANSI styles for terminal output.
const (
	ansiReset  = "\033[0m"
	ansiRed    = "\033[31m"
	ansiGreen  = "\033[32m"
	ansiYellow = "\033[33m"
	ansiCyan   = "\033[36m"
	ansiBold   = "\033[1m"
)

// stderr receives all human-readable output; stdout is kept for results so
// they can be piped.
var stderr io.Writer = os.Stderr

// colorEnabled reports whether styling is on. --no-color and a non-empty
// NO_COLOR environment variable both turn it off.
func colorEnabled() bool {
	return !noColor && os.Getenv("NO_COLOR") == ""
}

func colorize(style, text string) string {
	if !colorEnabled() {
		return text
	}
	return style + text + ansiReset
}

func notify(style, symbol, format string, args []any) {
	fmt.Fprintln(stderr, colorize(style, symbol+" "+fmt.Sprintf(format, args...)))
}

func printSuccess(format string, args ...any) { notify(ansiGreen, "✓", format, args) }
func printError(format string, args ...any) { notify(ansiRed, "✗", format, args) }
func printWarning(format string, args ...any) { notify(ansiYellow, "⚠", format, args) }
func printStep(format string, args ...any) { notify(ansiCyan, "→", format, args) }

// printStatus writes an indented "label: value" line.
func printStatus(label, format string, args ...any) {
	fmt.Fprintf(stderr, "  %s %s\n", colorize(ansiBold, label+":"), fmt.Sprintf(format, args...))
}
