package gatectl

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// logger is shared by the subcommands; SetLogOutput and SetLogLevel adjust it.
var logger = newLogger(os.Stderr, envStr("GATECTL_LOG_LEVEL", "info"))

func newLogger(w io.Writer, level string) zerolog.Logger {
	out := zerolog.ConsoleWriter{Out: w, TimeFormat: time.TimeOnly, NoColor: true}
	return zerolog.New(out).Level(parseLevel(level)).With().Timestamp().Logger()
}

// SetLogLevel accepts debug|info|warn|error; anything else means info.
func SetLogLevel(level string) { logger = logger.Level(parseLevel(level)) }

// SetLogOutput redirects log lines, keeping the current level.
func SetLogOutput(w io.Writer) { logger = newLogger(w, logger.GetLevel().String()) }

func parseLevel(s string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error", "err":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

func envStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envBool(key string, def bool) bool {
	switch strings.ToLower(os.Getenv(key)) {
	case "":
		return def
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

func envDuration(key string, def time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return d
	}
	return def
}
