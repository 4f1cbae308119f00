package logger

import (
	"log/slog"
	"os"
)

// New returns the process-wide structured logger writing JSON to stdout.
func New() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, nil))
}
