package httpapi

import (
	"bytes"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// zlog is the structured logger of the HTTP layer. Disabled until SetLogger.
var zlog = zerolog.Nop()

// SetLogger installs a structured logger used by the HTTP layer.
func SetLogger(l zerolog.Logger) { zlog = l.With().Str("component", "http").Logger() }

// parseLevel maps a request log level name; "" and "off" silence the request.
func parseLevel(s string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "off", "none":
		return zerolog.Disabled
	case "error":
		return zerolog.ErrorLevel
	case "debug", "1":
		return zerolog.DebugLevel
	default:
		return zerolog.InfoLevel
	}
}

var defaultRequestLevel = zerolog.InfoLevel

// SetRequestLogLevel sets how much each chat request logs by default.
// Clients override it with ?log=<level> or the X-Log-Level header.
func SetRequestLogLevel(s string) { defaultRequestLevel = parseLevel(s) }

func requestLevel(r *http.Request) zerolog.Level {
	if v := r.URL.Query().Get("log"); v != "" {
		return parseLevel(v)
	}
	if v := r.Header.Get("X-Log-Level"); v != "" {
		return parseLevel(v)
	}
	return defaultRequestLevel
}

// requestLogger is zlog scoped to one request and filtered at its level.
func requestLogger(r *http.Request) zerolog.Logger {
	c := zlog.With().Str("path", r.URL.Path)
	if rid := middleware.GetReqID(r.Context()); rid != "" {
		c = c.Str("request_id", rid)
	}
	return c.Logger().Level(requestLevel(r))
}

func logEnd(l zerolog.Logger, status int, start time.Time, err error) {
	ev := l.Info()
	if err != nil {
		ev = l.Error().Err(err)
	}
	ev.Int("status", status).Dur("dur", time.Since(start)).Msg("chat end")
}

// frameLogger logs complete SSE lines at debug level.
type frameLogger struct {
	log zerolog.Logger
	buf []byte
}

func (fl *frameLogger) Write(p []byte) (int, error) {
	fl.buf = append(fl.buf, p...)
	for {
		idx := bytes.IndexByte(fl.buf, '\n')
		if idx < 0 {
			break
		}
		if line := string(fl.buf[:idx]); line != "" {
			fl.log.Debug().Msg("stream> " + line)
		}
		fl.buf = fl.buf[idx+1:]
	}
	return len(p), nil
}
