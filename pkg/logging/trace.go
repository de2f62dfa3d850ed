package logging

import (
	"context"
	"log/slog"
)

// Trace logs msg at LevelTrace. It is only written when the user picked the
// Trace log level.
func Trace(logger *slog.Logger, msg string, args ...any) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Log(context.Background(), LevelTrace, msg, args...)
}
