package e2e

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"modelgate/internal/httpapi"
	"modelgate/internal/manager"
	"modelgate/internal/registry"
	"modelgate/pkg/types"
)

const testSuffix = ".gguf"

// createModelsTree lays out <root>/<owner>/<name>.gguf for each "owner/name" id.
func createModelsTree(t *testing.T, ids ...string) string {
	t.Helper()
	root := t.TempDir()
	for _, id := range ids {
		owner, name, _ := strings.Cut(id, "/")
		dir := filepath.Join(root, owner)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", dir, err)
		}
		p := filepath.Join(dir, name+testSuffix)
		if err := os.WriteFile(p, nil, 0o644); err != nil {
			t.Fatalf("write temp model %s: %v", p, err)
		}
	}
	return root
}

// echoAdapter answers every chat by echoing the last user message word by word.
type echoAdapter struct {
	acquired atomic.Int32
	released atomic.Int32
	// hold, when set, blocks every stream before its first chunk until closed.
	hold chan struct{}
}

func (a *echoAdapter) Acquire(ctx context.Context, desc types.Model, slot int) (manager.Resource, error) {
	a.acquired.Add(1)
	return &echoResource{a: a, port: 9000 + slot}, nil
}

type echoResource struct {
	a    *echoAdapter
	port int
}

func (r *echoResource) Chat(ctx context.Context, req types.ChatCompletionRequest) (manager.ChunkStream, error) {
	last := ""
	if n := len(req.Messages); n > 0 {
		last = req.Messages[n-1].Content
	}
	var chunks []types.Chunk
	words := strings.Fields(last)
	for i, w := range words {
		if i < len(words)-1 {
			w += " "
		}
		chunks = append(chunks, types.Chunk{Content: w})
	}
	chunks = append(chunks, types.Chunk{FinishReason: "stop"})
	return &echoStream{ctx: ctx, hold: r.a.hold, chunks: chunks}, nil
}

func (r *echoResource) Release(ctx context.Context) error {
	r.a.released.Add(1)
	return nil
}

func (r *echoResource) Kill() error                { return r.Release(context.Background()) }
func (r *echoResource) Info() manager.ResourceInfo { return manager.ResourceInfo{Port: r.port} }

type echoStream struct {
	ctx    context.Context
	hold   chan struct{}
	chunks []types.Chunk
}

func (s *echoStream) Recv() (types.Chunk, error) {
	if s.hold != nil {
		select {
		case <-s.hold:
			s.hold = nil
		case <-s.ctx.Done():
			return types.Chunk{}, s.ctx.Err()
		}
	}
	if len(s.chunks) == 0 {
		return types.Chunk{}, io.EOF
	}
	c := s.chunks[0]
	s.chunks = s.chunks[1:]
	return c, nil
}

func (s *echoStream) Close() error { return nil }

// newGateway scans root and serves it through the real manager and mux.
func newGateway(t *testing.T, root string, cfg manager.ManagerConfig) (*httptest.Server, *manager.Manager) {
	t.Helper()
	reg, err := registry.Discover(root, testSuffix)
	if err != nil {
		t.Fatalf("scan models: %v", err)
	}
	cfg.Registry = reg
	cfg.Logger = zerolog.Nop()
	mgr := manager.NewWithConfig(cfg)
	srv := httptest.NewServer(httpapi.NewMux(httpapi.FromManager(mgr)))
	t.Cleanup(func() {
		srv.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = mgr.Shutdown(ctx)
	})
	return srv, mgr
}

func httpGet(t *testing.T, url string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, url, nil)
	if err != nil {
		t.Fatalf("new req: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do req: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	return resp, body
}

func httpPostJSON(t *testing.T, url string, payload string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, url, bytes.NewBufferString(payload))
	if err != nil {
		t.Fatalf("new req: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do req: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	return resp, body
}

// sseData returns the payloads of all "data:" lines in an event stream body.
func sseData(body []byte) []string {
	var out []string
	for _, ln := range strings.Split(string(body), "\n") {
		if d, ok := strings.CutPrefix(ln, "data: "); ok {
			out = append(out, d)
		}
	}
	return out
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(10 * time.Millisecond)
	}
}
