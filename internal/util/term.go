package util

import (
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

// IsTerminal reports whether stdout is attached to a TTY.
func IsTerminal() bool {
	return isatty.IsTerminal(os.Stdout.Fd())
}

// ShouldUseColors decides whether terminal output gets ANSI colouring.
// NO_COLOR (https://no-color.org/) wins over everything; FORCE_COLOR
// and BLAZE_FORCE_COLORS override TTY detection in either direction.
func ShouldUseColors() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	if forceColor := os.Getenv("FORCE_COLOR"); forceColor != "" {
		return forceColor != "0"
	}
	if blazeColors := os.Getenv("BLAZE_FORCE_COLORS"); blazeColors != "" {
		return strings.EqualFold(blazeColors, "true")
	}
	return IsTerminal()
}
