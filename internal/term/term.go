// Package term resolves the color mode and terminal detection.
//
// Colored output itself goes through fatih/color; [Configure] sets
// color.NoColor once during startup so every package (logging, display,
// check) sees the same decision.
package term

import (
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"github.com/backmassage/reframe/internal/config"
)

// Configure resolves mode against stderr and applies it globally. It
// returns whether colors ended up enabled.
func Configure(mode config.ColorMode) bool {
	enabled := Resolve(mode, os.Stderr)
	color.NoColor = !enabled
	return enabled
}

// Enabled reports whether colors are currently active.
func Enabled() bool { return !color.NoColor }

// Resolve determines whether colors should be enabled for f based on the
// configured mode, TTY detection, and the NO_COLOR env var
// (https://no-color.org).
func Resolve(mode config.ColorMode, f *os.File) bool {
	switch mode {
	case config.ColorAlways:
		return true
	case config.ColorNever:
		return false
	default: // ColorAuto
		return IsTerminal(f) &&
			os.Getenv("NO_COLOR") == "" &&
			strings.ToLower(os.Getenv("TERM")) != "dumb"
	}
}

// IsTerminal reports whether f is attached to a TTY.
func IsTerminal(f *os.File) bool {
	if f == nil {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
