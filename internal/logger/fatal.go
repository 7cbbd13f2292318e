package logger

import (
	"log/slog"
	"os"
)

// FatalWithLogger logs at error level on the given logger and exits
// with status 1. Reserved for startup failures (bad config, unusable
// endpoints) before the run pipeline owns shutdown.
func FatalWithLogger(logger *slog.Logger, msg string, args ...any) {
	logger.Error(msg, args...)
	os.Exit(1)
}
