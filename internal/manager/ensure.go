package manager

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// EnsureReady returns the handle's resource, loading it first when the
// handle is unloaded. Concurrent callers share a single acquisition: callers
// that were waiting while an attempt failed receive that attempt's error
// instead of starting another one.
func (h *Handle) EnsureReady(ctx context.Context) (Resource, error) {
	if h.m.closed.Load() {
		return nil, ErrShuttingDown
	}
	h.mu.RLock()
	seen := h.attempts
	h.mu.RUnlock()

	if err := h.acquireLock(ctx); err != nil {
		return nil, err
	}

	h.mu.Lock()
	switch {
	case h.state == StateReady:
		h.lastUsed = h.m.now()
		res := h.res
		h.mu.Unlock()
		h.releaseLock()
		return res, nil
	case h.attempts != seen && h.loadErr != nil:
		err := h.loadErr
		h.mu.Unlock()
		h.releaseLock()
		return nil, err
	}
	if h.m.closed.Load() {
		h.mu.Unlock()
		h.releaseLock()
		return nil, ErrShuttingDown
	}
	h.state = StateLoading
	h.mu.Unlock()

	return h.load()
}

// load runs one acquisition. The caller holds the transition lock and has
// set state to loading; load releases the lock on every path.
func (h *Handle) load() (res Resource, err error) {
	m := h.m
	start := time.Now()
	log := m.log.With().Str("model", h.desc.ID).Int("slot", h.slot).Logger()
	log.Info().Msg("manager event=load_start")
	m.publisher.Publish(Event{Name: EventLoadStart, ModelID: h.desc.ID})

	defer h.releaseLock()
	defer func() {
		h.mu.Lock()
		h.attempts++
		if err == nil {
			h.state = StateReady
			h.res = res
			h.lastUsed = m.now()
			h.loadErr = nil
		} else {
			h.state = StateUnloaded
			h.res = nil
			h.lastUsed = time.Time{}
			h.loadErr = err
		}
		h.mu.Unlock()

		elapsed := time.Since(start)
		backendLoadDuration.Observe(elapsed.Seconds())
		if err == nil {
			m.loadsTotal.Add(1)
			backendLoadsTotal.WithLabelValues("ok").Inc()
			backendsReady.Inc()
			if ex, ok := res.(Exiter); ok {
				go h.watchExit(res, ex.Exited())
			}
			log.Info().Dur("took", elapsed).Msg("manager event=load_ready")
			m.publisher.Publish(Event{Name: EventLoadReady, ModelID: h.desc.ID, Fields: map[string]any{"took_ms": elapsed.Milliseconds()}})
			return
		}
		result := "error"
		var te *LoadTimeoutError
		if errors.As(err, &te) {
			result = "timeout"
		}
		backendLoadsTotal.WithLabelValues(result).Inc()
		log.Error().Err(err).Dur("took", elapsed).Msg("manager event=load_error")
		m.publisher.Publish(Event{Name: EventLoadError, ModelID: h.desc.ID, Fields: map[string]any{"error": err.Error()}})
	}()
	defer func() {
		if r := recover(); r != nil {
			res = nil
			err = &LoadError{Model: h.desc.ID, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	if m.adapter == nil {
		return nil, &LoadError{Model: h.desc.ID, Err: errors.New("no adapter configured")}
	}
	res, err = m.adapter.Acquire(m.lifetime, h.desc, h.slot)
	if err != nil {
		return nil, wrapLoadError(h.desc.ID, err)
	}
	if res == nil {
		return nil, &LoadError{Model: h.desc.ID, Err: errors.New("adapter returned no resource")}
	}
	if m.closed.Load() {
		// Shutdown began while acquiring; nothing will evict this resource.
		_ = res.Kill()
		return nil, ErrShuttingDown
	}
	return res, nil
}

func wrapLoadError(model string, err error) error {
	var le *LoadError
	var te *LoadTimeoutError
	if errors.As(err, &le) || errors.As(err, &te) {
		return err
	}
	return &LoadError{Model: model, Err: err}
}
