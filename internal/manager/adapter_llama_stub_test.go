//go:build !llama

package manager

import (
	"errors"
	"net/http"
	"testing"

	"github.com/rs/zerolog"

	"modelgate/internal/config"
)

func TestLlamaStub_LoadIsUnavailable(t *testing.T) {
	m := newTestManager(t, NewLlamaAdapter(LlamaConfig{}, zerolog.Nop()))
	h := mustHandle(t, m, "acme/alpha")
	_, err := h.EnsureReady(testCtx(t))
	if !IsDependencyUnavailable(err) {
		t.Fatalf("want dependency unavailable, got %v", err)
	}
	var le *LoadError
	if !errors.As(err, &le) || le.StatusCode() != http.StatusServiceUnavailable {
		t.Fatalf("want 503 LoadError, got %v", err)
	}
	if h.State() != StateUnloaded {
		t.Fatalf("state=%v", h.State())
	}
	if SanityCheck(config.ModeInProcess, "").OK() {
		t.Fatalf("sanity check should fail without llama support")
	}
}
