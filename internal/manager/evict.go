package manager

import (
	"context"
	"time"
)

// Evict releases the handle's resource and resets it to unloaded. Evicting
// an unloaded handle is a no-op. The handle is reset even when Release
// fails; the error is returned.
func (h *Handle) Evict(ctx context.Context, reason string) error {
	if err := h.acquireLock(ctx); err != nil {
		return err
	}
	defer h.releaseLock()
	return h.evictLocked(ctx, reason)
}

// TryEvictIdle evicts the handle when it is ready, has no queued or running
// generation, and has been idle for at least idle. It never waits for the
// transition lock: a busy handle is skipped.
func (h *Handle) TryEvictIdle(now time.Time, idle time.Duration) (bool, error) {
	evicted, _, err := h.tryEvictIdle(now, idle)
	return evicted, err
}

func (h *Handle) tryEvictIdle(now time.Time, idle time.Duration) (evicted, locked bool, err error) {
	if !h.tryLock() {
		return false, true, nil
	}
	defer h.releaseLock()

	h.mu.RLock()
	eligible := h.state == StateReady && !h.busy() && now.Sub(h.lastUsed) >= idle
	h.mu.RUnlock()
	if !eligible {
		return false, false, nil
	}
	return true, false, h.evictLocked(context.Background(), ReasonIdle)
}

func (h *Handle) evictLocked(ctx context.Context, reason string) error {
	h.mu.RLock()
	res := h.res
	ready := h.state == StateReady
	h.mu.RUnlock()
	if !ready || res == nil {
		return nil
	}

	err := res.Release(ctx)

	h.mu.Lock()
	// forceRelease may have reset the handle while Release was running.
	owned := h.res == res
	if owned {
		h.state = StateUnloaded
		h.res = nil
		h.lastUsed = time.Time{}
	}
	h.mu.Unlock()
	if !owned {
		return err
	}

	h.m.evictionsTotal.Add(1)
	backendEvictionsTotal.WithLabelValues(reason).Inc()
	backendsReady.Dec()
	ev := h.m.log.Info()
	if err != nil {
		ev = h.m.log.Warn().Err(err)
	}
	ev.Str("model", h.desc.ID).Str("reason", reason).Msg("manager event=evict")
	h.m.publisher.Publish(Event{Name: EventEvict, ModelID: h.desc.ID, Fields: map[string]any{"reason": reason}})
	return err
}

// forceRelease kills the resource without taking the transition lock. Used
// only by Shutdown once the grace period is over.
func (h *Handle) forceRelease() error {
	h.mu.Lock()
	res := h.res
	wasReady := h.state == StateReady
	h.state = StateUnloaded
	h.res = nil
	h.lastUsed = time.Time{}
	h.mu.Unlock()
	if res == nil {
		return nil
	}
	if wasReady {
		backendsReady.Dec()
	}
	backendEvictionsTotal.WithLabelValues(ReasonForced).Inc()
	h.m.log.Warn().Str("model", h.desc.ID).Msg("manager event=evict reason=forced")
	return res.Kill()
}

// watchExit evicts res once it exits on its own, so the next request loads a
// fresh backend instead of failing against a dead one.
func (h *Handle) watchExit(res Resource, exited <-chan struct{}) {
	select {
	case <-exited:
	case <-h.m.lifetime.Done():
		return
	}
	_ = h.evictExited(res)
}

// evictExited resets the handle if it still owns res. No-op otherwise.
func (h *Handle) evictExited(res Resource) error {
	if err := h.acquireLock(h.m.lifetime); err != nil {
		return err
	}
	defer h.releaseLock()
	h.mu.RLock()
	owned := h.res == res && h.state == StateReady
	h.mu.RUnlock()
	if !owned {
		return nil
	}
	h.m.log.Warn().Str("model", h.desc.ID).Msg("manager event=backend_exited")
	return h.evictLocked(h.m.lifetime, ReasonCrashed)
}

// hasExited reports whether res is an Exiter whose backend is gone.
func hasExited(res Resource) bool {
	ex, ok := res.(Exiter)
	if !ok {
		return false
	}
	select {
	case <-ex.Exited():
		return true
	default:
		return false
	}
}
