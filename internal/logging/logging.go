package logging

import (
	"io"
	"strings"

	"github.com/charmbracelet/log"
)

// New returns a leveled logger writing to w.
// Valid levels: "debug", "info", "warn", "error". Unknown levels fall back to "info".
func New(w io.Writer, level string) *log.Logger {
	l, err := log.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		l = log.InfoLevel
	}
	return log.NewWithOptions(w, log.Options{
		Level:           l,
		ReportTimestamp: true,
	})
}

// Setup initializes the default logger on w at the given level.
func Setup(w io.Writer, level string) *log.Logger {
	logger := New(w, level)
	log.SetDefault(logger)
	return logger
}

// Discard returns a logger that drops everything.
func Discard() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{Level: log.FatalLevel})
}
