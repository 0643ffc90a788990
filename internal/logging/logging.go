// Package logging builds the process-wide slog.Logger.
package logging

import (
	"io"
	"log/slog"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Rotation limits for LOG_FILE.
const (
	maxSizeMB  = 100
	maxBackups = 5
	maxAgeDays = 28
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// New returns a JSON logger writing to stdout and, when file is set, to a
// rotated log file. An unknown level falls back to info. The returned Closer
// releases the log file and must be closed on shutdown.
func New(level, file string, stdout io.Writer) (*slog.Logger, io.Closer) {
	var logLevel slog.Level
	if err := logLevel.UnmarshalText([]byte(level)); err != nil {
		logLevel = slog.LevelInfo
	}

	out := stdout
	var closer io.Closer = nopCloser{}
	if file != "" {
		lj := &lumberjack.Logger{
			Filename:   file,
			MaxSize:    maxSizeMB,
			MaxBackups: maxBackups,
			MaxAge:     maxAgeDays,
			Compress:   true,
		}
		out = io.MultiWriter(stdout, lj)
		closer = lj
	}

	return slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{Level: logLevel})), closer
}
