package logger

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Setup configures the process-wide zerolog logger and returns it. Format is
// "console" for human-readable output or anything else for JSON.
func Setup(level, format string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	zerolog.TimeFieldFormat = time.RFC3339

	var out = os.Stdout
	logger := zerolog.New(out).With().Timestamp().Logger()
	if format == "console" {
		logger = logger.Output(zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05"})
	}
	return logger
}
