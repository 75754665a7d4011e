package httpapi

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"modelgate/internal/stream"
	"modelgate/pkg/types"
)

// NewMux builds the gateway's router.
func NewMux(svc Service) http.Handler {
	r := chi.NewRouter()
	// Basic middlewares: request id, real ip, recoverer
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(MetricsMiddleware)
	if corsPolicy != nil {
		r.Use(cors.Handler(*corsPolicy))
	}
	// Compression for JSON endpoints; event streams are not in the compressible set.
	r.Use(middleware.Compress(5))
	// Security headers
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})

	h := &handlers{svc: svc}
	r.Get("/v1/models", h.listModels)
	r.Post("/v1/chat/completions", h.chatCompletions)
	r.Get("/status", h.status)
	r.Post("/models/load", h.loadModel)
	r.Post("/models/unload", h.unloadModel)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if svc.Ready() {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ready"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("shutting down"))
	})

	// Prometheus metrics endpoint
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	MountSwagger(r)
	return r
}

type handlers struct {
	svc Service
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// decodeJSON enforces the content type and body limit and decodes into v.
// It writes the error response itself and reports whether decoding succeeded.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	ct := r.Header.Get("Content-Type")
	if ct == "" || !strings.HasPrefix(strings.ToLower(ct), "application/json") {
		writeJSONError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
		return false
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		// Oversized bodies also land here; keep the message generic.
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

// listModels godoc
// @Summary      List models
// @Description  Models discovered at startup, in registry order.
// @Tags         models
// @Produce      json
// @Success      200  {object}  types.ModelList
// @Router       /v1/models [get]
func (h *handlers) listModels(w http.ResponseWriter, r *http.Request) {
	models := h.svc.ListModels()
	out := types.ModelList{Object: "list", Data: make([]types.ModelCard, 0, len(models))}
	for _, m := range models {
		out.Data = append(out.Data, types.ModelCard{ID: m.ID, Created: m.Created, Object: "model", OwnedBy: "system"})
	}
	writeJSON(w, http.StatusOK, out)
}

// status godoc
// @Summary      Backend status
// @Tags         ops
// @Produce      json
// @Success      200  {object}  types.StatusResponse
// @Router       /status [get]
func (h *handlers) status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Status())
}

// modelRef is the body of the load/unload endpoints.
type modelRef struct {
	Model string `json:"model" example:"LGAI/EXAONE-3.0-7.8B-Instruct"`
}

// loadModel godoc
// @Summary      Start loading a backend
// @Description  Returns immediately; poll /status for the outcome.
// @Tags         ops
// @Accept       json
// @Produce      json
// @Param        body  body      modelRef  true  "Model to load"
// @Success      202   {object}  modelRef
// @Failure      400   {object}  types.ErrorResponse
// @Router       /models/load [post]
func (h *handlers) loadModel(w http.ResponseWriter, r *http.Request) {
	var ref modelRef
	if !decodeJSON(w, r, &ref) {
		return
	}
	if err := h.svc.Preload(ref.Model); err != nil {
		status, msg := errorStatus(err)
		writeJSONError(w, status, msg)
		return
	}
	writeJSON(w, http.StatusAccepted, ref)
}

// unloadModel godoc
// @Summary      Drain and unload a backend
// @Tags         ops
// @Accept       json
// @Produce      json
// @Param        body  body      modelRef  true  "Model to unload"
// @Success      200   {object}  modelRef
// @Failure      400   {object}  types.ErrorResponse
// @Router       /models/unload [post]
func (h *handlers) unloadModel(w http.ResponseWriter, r *http.Request) {
	var ref modelRef
	if !decodeJSON(w, r, &ref) {
		return
	}
	if err := h.svc.Unload(r.Context(), ref.Model); err != nil {
		status, msg := errorStatus(err)
		writeJSONError(w, status, msg)
		return
	}
	writeJSON(w, http.StatusOK, ref)
}

// chatCompletions godoc
// @Summary      Create a chat completion
// @Description  Loads the model's backend on first use. With "stream": true the response is a text/event-stream of chat.completion.chunk frames ending with "data: [DONE]".
// @Tags         chat
// @Accept       json
// @Produce      json
// @Produce      text/event-stream
// @Param        body  body      types.ChatCompletionRequest  true  "Chat request"
// @Success      200   {object}  types.ChatCompletion
// @Failure      400   {object}  types.ErrorResponse
// @Failure      415   {object}  types.ErrorResponse
// @Failure      429   {object}  types.ErrorResponse
// @Failure      500   {object}  types.ErrorResponse
// @Failure      503   {object}  types.ErrorResponse
// @Router       /v1/chat/completions [post]
func (h *handlers) chatCompletions(w http.ResponseWriter, r *http.Request) {
	var req types.ChatCompletionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	// Unknown ids are rejected before anything else about the request.
	if !h.known(req.Model) {
		countRejection(http.StatusBadRequest)
		writeJSONError(w, http.StatusBadRequest, invalidModelDetail)
		return
	}
	if len(req.Messages) == 0 {
		writeJSONError(w, http.StatusBadRequest, "messages is required")
		return
	}

	start := time.Now()
	rl := requestLogger(r)
	rl.Info().Str("model", req.Model).Bool("stream", req.Stream).Msg("chat start")
	// Join server base context with request context so shutdown cancels work too.
	ctx, cancel := joinContexts(serverBaseCtx, r.Context())
	defer cancel()

	fail := func(err error) {
		// Client went away: nothing to write.
		if r.Context().Err() != nil {
			logEnd(rl, 499, start, err)
			return
		}
		status, msg := errorStatus(err)
		countRejection(status)
		writeJSONError(w, status, msg)
		logEnd(rl, status, start, err)
	}

	if !req.Stream {
		out, err := h.svc.Complete(ctx, req)
		if err != nil {
			fail(err)
			return
		}
		writeJSON(w, http.StatusOK, out)
		logEnd(rl, http.StatusOK, start, nil)
		return
	}

	st, err := h.svc.Stream(ctx, req)
	if err != nil {
		fail(err)
		return
	}
	defer st.Close()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	out := io.Writer(w)
	if rl.GetLevel() <= zerolog.DebugLevel {
		fl, _ := w.(http.Flusher)
		out = teeFlusher{Writer: io.MultiWriter(w, &frameLogger{log: rl}), f: fl}
	}
	emit := countingEmit(req.Model, start, stream.Writer(out))
	if err := stream.Translate(st, st.Meta(), emit); err != nil {
		// Headers are sent; the stream just ends without the sentinel.
		logEnd(rl, http.StatusOK, start, err)
		return
	}
	logEnd(rl, http.StatusOK, start, nil)
}

func (h *handlers) known(id string) bool {
	for _, m := range h.svc.ListModels() {
		if m.ID == id {
			return true
		}
	}
	return false
}

// teeFlusher keeps the response flushable when frames are also copied elsewhere.
type teeFlusher struct {
	io.Writer
	f http.Flusher
}

func (t teeFlusher) Flush() {
	if t.f != nil {
		t.f.Flush()
	}
}
