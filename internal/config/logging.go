package config

import (
	"io"
	"log/slog"
	"os"

	slogmulti "github.com/samber/slog-multi"
)

// SetupLogger creates the process logger: JSON to stdout (the log
// collector ingests structured lines), optionally fanned out to a file.
// Returns the logger and a cleanup function to close the file.
func SetupLogger(level slog.Level, logFile string) (*slog.Logger, func() error) {
	stdoutHandler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	})

	if logFile == "" {
		return slog.New(stdoutHandler), func() error { return nil }
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		// Fall back to stdout-only if the file fails
		slog.Error("failed to open log file, using stdout only", "error", err, "file", logFile)
		return slog.New(stdoutHandler), func() error { return nil }
	}

	fileHandler := slog.NewJSONHandler(file, &slog.HandlerOptions{
		Level: level,
	})

	// Fanout to both handlers
	logger := slog.New(slogmulti.Fanout(stdoutHandler, fileHandler))

	cleanup := func() error {
		return file.Close()
	}

	return logger, cleanup
}

// SetupLoggerWithWriters creates a logger with custom writers (for testing).
func SetupLoggerWithWriters(stdout, file io.Writer, level slog.Level) *slog.Logger {
	stdoutHandler := slog.NewJSONHandler(stdout, &slog.HandlerOptions{Level: level})
	fileHandler := slog.NewJSONHandler(file, &slog.HandlerOptions{Level: level})
	return slog.New(slogmulti.Fanout(stdoutHandler, fileHandler))
}
