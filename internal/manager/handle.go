package manager

import (
	"context"
	"sync"
	"time"

	"modelgate/pkg/types"
)

// Handle tracks one model's backend. Transitions (load, evict) are
// serialized by lock; the fields under mu are what readers observe.
type Handle struct {
	m    *Manager
	desc types.Model
	slot int

	// lock is the transition lock. A 1-slot channel so acquisition can honor
	// a context and the reaper can try it without blocking.
	lock chan struct{}

	// Admission: queueCh bounds waiters, genCh allows one generation at a time.
	queueCh chan struct{}
	genCh   chan struct{}

	mu       sync.RWMutex
	state    State
	lastUsed time.Time
	res      Resource
	attempts uint64
	loadErr  error
}

func newHandle(m *Manager, desc types.Model, slot int) *Handle {
	return &Handle{
		m:       m,
		desc:    desc,
		slot:    slot,
		lock:    make(chan struct{}, 1),
		queueCh: make(chan struct{}, m.maxQueueDepth),
		genCh:   make(chan struct{}, 1),
		state:   StateUnloaded,
	}
}

func (h *Handle) acquireLock(ctx context.Context) error {
	select {
	case h.lock <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *Handle) tryLock() bool {
	select {
	case h.lock <- struct{}{}:
		return true
	default:
		return false
	}
}

func (h *Handle) releaseLock() { <-h.lock }

// ID returns the model id.
func (h *Handle) ID() string { return h.desc.ID }

// Model returns the descriptor this handle serves.
func (h *Handle) Model() types.Model { return h.desc }

// State returns the current lifecycle state.
func (h *Handle) State() State {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.state
}

// LastUsed returns the last time the handle served or was made ready.
// Zero while unloaded.
func (h *Handle) LastUsed() time.Time {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.lastUsed
}

// Status returns a consistent snapshot for reporting.
func (h *Handle) Status() HandleStatus {
	h.mu.RLock()
	defer h.mu.RUnlock()
	st := HandleStatus{
		ModelID:  h.desc.ID,
		State:    h.state,
		Inflight: len(h.genCh),
		QueueLen: len(h.queueCh),
	}
	if !h.lastUsed.IsZero() {
		st.LastUsed = h.lastUsed.Unix()
	}
	if h.res != nil {
		info := h.res.Info()
		st.PID, st.Port = info.PID, info.Port
	}
	if h.loadErr != nil {
		st.LastError = h.loadErr.Error()
	}
	return st
}

// touch refreshes lastUsed if the handle is still ready.
func (h *Handle) touch() {
	h.mu.Lock()
	if h.state == StateReady {
		h.lastUsed = h.m.now()
	}
	h.mu.Unlock()
}

// busy reports whether requests are queued or generating on this handle.
func (h *Handle) busy() bool {
	return len(h.queueCh) > 0 || len(h.genCh) > 0
}
