package manager

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"modelgate/pkg/types"
)

// Manager owns one Handle per discovered model. The set of handles is fixed
// at construction; only their state changes afterwards.
type Manager struct {
	adapter   Adapter
	log       zerolog.Logger
	publisher EventPublisher
	now       func() time.Time

	handles map[string]*Handle
	order   []*Handle

	// Queue config
	maxQueueDepth int
	maxWait       time.Duration
	drainTimeout  time.Duration

	// lifetime is the context backend acquisitions and generations run under.
	// Shutdown cancels it.
	lifetime context.Context
	stop     context.CancelFunc
	closed   atomic.Bool
	// draining flips readiness off ahead of Shutdown.
	draining atomic.Bool

	startTime      time.Time
	loadsTotal     atomic.Uint64
	evictionsTotal atomic.Uint64
}

// New builds a Manager over reg with default admission settings.
func New(reg []types.Model, adapter Adapter, log zerolog.Logger) *Manager {
	return NewWithConfig(ManagerConfig{Registry: reg, Adapter: adapter, Logger: log})
}

// Ready reports whether the gateway can accept requests. Backends load
// lazily, so this is true from construction until Drain or Shutdown.
func (m *Manager) Ready() bool {
	return !m.draining.Load() && !m.closed.Load()
}

// Drain marks the manager not ready while it keeps serving the requests
// already admitted. Shutdown follows.
func (m *Manager) Drain() {
	if m.draining.CompareAndSwap(false, true) {
		m.log.Info().Msg("manager event=drain")
	}
}

// ListModels returns the registry in discovery order.
func (m *Manager) ListModels() []types.Model {
	out := make([]types.Model, 0, len(m.order))
	for _, h := range m.order {
		out = append(out, h.desc)
	}
	return out
}

// Lookup returns the handle for id or an UnknownModelError.
func (m *Manager) Lookup(id string) (*Handle, error) {
	h, ok := m.handles[id]
	if !ok {
		return nil, ErrUnknownModel(id)
	}
	return h, nil
}

// Handles returns all handles in registry order.
func (m *Manager) Handles() []*Handle {
	out := make([]*Handle, len(m.order))
	copy(out, m.order)
	return out
}

// Shutdown cancels in-flight acquisitions and generations, then evicts every
// handle in parallel. Handles whose eviction does not finish before ctx is
// done are force-killed. Safe to call more than once.
func (m *Manager) Shutdown(ctx context.Context) error {
	if !m.closed.CompareAndSwap(false, true) {
		return nil
	}
	m.draining.Store(true)
	m.stop()
	m.log.Info().Int("backends", len(m.order)).Msg("manager event=shutdown_start")

	var (
		mu   sync.Mutex
		errs error
		g    errgroup.Group
	)
	for _, h := range m.order {
		g.Go(func() error {
			err := h.Evict(ctx, ReasonShutdown)
			if err != nil && ctx.Err() != nil {
				// Grace period over: the lock is still held or Release hung.
				err = multierr.Append(err, h.forceRelease())
			}
			if err != nil {
				mu.Lock()
				errs = multierr.Append(errs, fmt.Errorf("evict %s: %w", h.desc.ID, err))
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	if errs != nil {
		m.log.Warn().Err(errs).Msg("manager event=shutdown_done with errors")
	} else {
		m.log.Info().Msg("manager event=shutdown_done")
	}
	return errs
}
