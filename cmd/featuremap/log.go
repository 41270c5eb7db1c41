package main

import (
	"io"
	"log/slog"

	charmlog "github.com/charmbracelet/log"

	"featuremap/internal/slogutil"
)

// newConsoleHandler writes human-oriented logs to w. charmbracelet levels
// share slog's numeric values.
func newConsoleHandler(w io.Writer, level slog.Level) *charmlog.Logger {
	return charmlog.NewWithOptions(w, charmlog.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           charmlog.Level(level),
	})
}

// newLogger combines console logging at the CLI verbosity with an optional
// line-format file log at the configured level. The returned func closes the
// log file.
func newLogger(w io.Writer, verbosity int, quiet bool, logFile, fileLevel string) (*slog.Logger, func(), error) {
	console := newConsoleHandler(w, slogutil.LevelFromVerbosity(verbosity, quiet))
	if logFile == "" {
		return slog.New(console), func() {}, nil
	}

	fileLogger, f, err := slogutil.NewFileLogger(logFile, slogutil.LevelFromString(fileLevel))
	if err != nil {
		return nil, nil, err
	}
	logger := slog.New(slogutil.NewTeeHandler(console, fileLogger.Handler()))
	return logger, func() { _ = f.Close() }, nil
}
