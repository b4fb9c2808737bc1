package logger

import (
	"log/slog"
	"os"
)

// New returns the process logger. JSON output keeps log lines machine-parsable
// for the operators who triage import and audit write failures.
func New() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, nil))
}
