package manager

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"modelgate/pkg/types"
)

// fakeAdapter is a lightweight in-memory adapter used for tests.
type fakeAdapter struct {
	acquires atomic.Int32
	// gate, when non-nil, blocks Acquire until closed.
	gate       chan struct{}
	acquireErr error
	panicMsg   string
	chunks     []types.Chunk
	chatErr    error
	releaseErr error
	// onChat, when set, runs at the start of every Chat call.
	onChat func()
	// exitable makes Acquire return resources that can die on their own.
	exitable bool

	mu        sync.Mutex
	resources []*fakeResource
}

func (f *fakeAdapter) Acquire(ctx context.Context, desc types.Model, slot int) (Resource, error) {
	f.acquires.Add(1)
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.panicMsg != "" {
		panic(f.panicMsg)
	}
	if f.acquireErr != nil {
		return nil, f.acquireErr
	}
	r := &fakeResource{f: f, port: 9000 + slot, exited: make(chan struct{})}
	f.mu.Lock()
	f.resources = append(f.resources, r)
	f.mu.Unlock()
	if f.exitable {
		return exitingResource{r}, nil
	}
	return r, nil
}

func (f *fakeAdapter) lastResource() *fakeResource {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.resources) == 0 {
		return nil
	}
	return f.resources[len(f.resources)-1]
}

type fakeResource struct {
	f        *fakeAdapter
	port     int
	released atomic.Int32
	killed   atomic.Int32
	exited   chan struct{}
	// lastReq records the last request seen by Chat.
	mu      sync.Mutex
	lastReq types.ChatCompletionRequest
}

func (r *fakeResource) Chat(ctx context.Context, req types.ChatCompletionRequest) (ChunkStream, error) {
	r.mu.Lock()
	r.lastReq = req
	r.mu.Unlock()
	if r.f.onChat != nil {
		r.f.onChat()
	}
	select {
	case <-r.exited:
		return nil, fmt.Errorf("%w: signal: killed", ErrBackendExited)
	default:
	}
	if r.f.chatErr != nil {
		return nil, r.f.chatErr
	}
	return &sliceStream{ctx: ctx, chunks: append([]types.Chunk(nil), r.f.chunks...)}, nil
}

func (r *fakeResource) Release(ctx context.Context) error {
	r.released.Add(1)
	return r.f.releaseErr
}

func (r *fakeResource) Kill() error {
	r.killed.Add(1)
	return nil
}

func (r *fakeResource) Info() ResourceInfo { return ResourceInfo{PID: 4242, Port: r.port} }

// crash simulates the backend dying.
func (r *fakeResource) crash() { close(r.exited) }

// exitingResource exposes the fake's exit channel, like a spawned process.
type exitingResource struct{ *fakeResource }

func (r exitingResource) Exited() <-chan struct{} { return r.exited }

// sliceStream replays chunks and then returns io.EOF, or err if set.
type sliceStream struct {
	ctx    context.Context
	chunks []types.Chunk
	err    error
	closed atomic.Bool
}

func (s *sliceStream) Recv() (types.Chunk, error) {
	if err := s.ctx.Err(); err != nil {
		return types.Chunk{}, err
	}
	if len(s.chunks) == 0 {
		if s.err != nil {
			return types.Chunk{}, s.err
		}
		return types.Chunk{}, io.EOF
	}
	c := s.chunks[0]
	s.chunks = s.chunks[1:]
	return c, nil
}

func (s *sliceStream) Close() error {
	s.closed.Store(true)
	return nil
}

// fakeClock is a settable clock for reaper tests.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock { return &fakeClock{now: time.Unix(1_700_000_000, 0)} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

var errBoom = errors.New("boom")

func testRegistry() []types.Model {
	return []types.Model{
		{ID: "acme/alpha", Owner: "acme", Name: "alpha", Path: "/models/acme/alpha.gguf"},
		{ID: "acme/beta", Owner: "acme", Name: "beta", Path: "/models/acme/beta.gguf"},
	}
}

// newTestManager builds a Manager over testRegistry with the given adapter.
func newTestManager(t *testing.T, a Adapter, opts ...func(*ManagerConfig)) *Manager {
	t.Helper()
	cfg := ManagerConfig{
		Registry:  testRegistry(),
		Adapter:   a,
		Logger:    zerolog.Nop(),
		MaxWait:   2 * time.Second,
		Publisher: &eventLog{},
	}
	for _, o := range opts {
		o(&cfg)
	}
	m := NewWithConfig(cfg)
	t.Cleanup(func() { _ = m.Shutdown(context.Background()) })
	return m
}

// testCtx returns a context with a short timeout, canceled on test cleanup.
func testCtx(t *testing.T) context.Context {
	t.Helper()
	c, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)
	return c
}

func mustHandle(t *testing.T, m *Manager, id string) *Handle {
	t.Helper()
	h, err := m.Lookup(id)
	if err != nil {
		t.Fatalf("lookup %s: %v", id, err)
	}
	return h
}

// eventLog records published events so tests can assert on lifecycle order.
type eventLog struct {
	mu  sync.Mutex
	all []Event
}

func (l *eventLog) Publish(e Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.all = append(l.all, e)
}

func (l *eventLog) names() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, 0, len(l.all))
	for _, e := range l.all {
		out = append(out, e.Name)
	}
	return out
}

// count reports how many events called name were seen for model ("" = any).
func (l *eventLog) count(name, model string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, e := range l.all {
		if e.Name == name && (model == "" || e.ModelID == model) {
			n++
		}
	}
	return n
}

func (l *eventLog) last() Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.all) == 0 {
		return Event{}
	}
	return l.all[len(l.all)-1]
}
