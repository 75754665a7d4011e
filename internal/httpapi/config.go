package httpapi

import (
	"context"

	"github.com/go-chi/cors"
)

const defaultMaxBody int64 = 1 << 20

// Process-wide knobs set once by the binary before NewMux.
var (
	maxBodyBytes  = defaultMaxBody
	corsPolicy    *cors.Options
	serverBaseCtx = context.Background()
)

// SetMaxBodyBytes caps JSON request bodies; n <= 0 restores the 1 MiB default.
func SetMaxBodyBytes(n int64) {
	if n <= 0 {
		n = defaultMaxBody
	}
	maxBodyBytes = n
}

// SetCORSOptions turns the CORS layer on or off. Empty lists mean "any
// origin" and the methods/headers chat clients send.
func SetCORSOptions(enabled bool, origins, methods, headers []string) {
	if !enabled {
		corsPolicy = nil
		return
	}
	orDefault := func(in []string, def ...string) []string {
		if len(in) == 0 {
			return def
		}
		return append([]string(nil), in...)
	}
	corsPolicy = &cors.Options{
		AllowedOrigins: orDefault(origins, "*"),
		AllowedMethods: orDefault(methods, "GET", "POST", "OPTIONS"),
		AllowedHeaders: orDefault(headers, "Accept", "Authorization", "Content-Type", "X-Request-ID", "X-Log-Level"),
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}
}

// SetBaseContext ties in-flight chat requests to the process lifetime.
func SetBaseContext(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	serverBaseCtx = ctx
}

// joinContexts derives from req and is also canceled when base ends.
func joinContexts(base, req context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(req)
	stop := context.AfterFunc(base, cancel)
	return ctx, func() { stop(); cancel() }
}
