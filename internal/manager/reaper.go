package manager

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"go.uber.org/multierr"
)

// Reaper periodically evicts backends that have been idle for longer than
// the configured timeout.
type Reaper struct {
	m        *Manager
	interval time.Duration
	idle     time.Duration
	log      zerolog.Logger
	done     chan struct{}
}

// SweepResult summarizes one pass over the handles.
type SweepResult struct {
	Evicted []string
	// Skipped counts handles whose transition lock was held.
	Skipped int
	// Err aggregates per-handle ReaperErrors.
	Err error
}

// NewReaper builds a reaper for m. Run must be called to start it.
func NewReaper(m *Manager, interval, idle time.Duration) *Reaper {
	return &Reaper{
		m:        m,
		interval: interval,
		idle:     idle,
		log:      m.log.With().Str("component", "reaper").Logger(),
		done:     make(chan struct{}),
	}
}

// Run sweeps every interval until ctx is canceled.
func (r *Reaper) Run(ctx context.Context) {
	defer close(r.done)
	t := time.NewTicker(r.interval)
	defer t.Stop()
	r.log.Info().Dur("interval", r.interval).Dur("idle_timeout", r.idle).Msg("reaper event=start")
	for {
		select {
		case <-ctx.Done():
			r.log.Info().Msg("reaper event=stop")
			return
		case <-t.C:
			res := r.Sweep(r.m.now())
			if len(res.Evicted) > 0 || res.Err != nil {
				r.log.Debug().Strs("evicted", res.Evicted).Int("skipped", res.Skipped).Msg("reaper event=sweep")
			}
		}
	}
}

// Done is closed once Run has returned.
func (r *Reaper) Done() <-chan struct{} { return r.done }

// Sweep evicts every handle that is ready, unused, and idle as of now.
// Failures on one handle never stop the sweep.
func (r *Reaper) Sweep(now time.Time) SweepResult {
	var out SweepResult
	for _, h := range r.m.order {
		evicted, locked, err := h.tryEvictIdle(now, r.idle)
		if locked {
			out.Skipped++
			continue
		}
		if err != nil {
			reaperFailuresTotal.Inc()
			rerr := &ReaperError{Model: h.desc.ID, Err: err}
			r.log.Error().Err(rerr).Str("model", h.desc.ID).Msg("reaper event=evict_failed")
			out.Err = multierr.Append(out.Err, rerr)
		}
		if evicted {
			out.Evicted = append(out.Evicted, h.desc.ID)
		}
	}
	return out
}
