package manager

import (
	"context"
	"sync"
	"time"
)

// admit reserves a queue slot, makes the backend ready, and then takes the
// single in-flight generation slot. The returned release func must be called
// once the generation is finished; ok=false skips refreshing last_used so a
// failing backend still ages out.
func (h *Handle) admit(ctx context.Context) (Resource, func(ok bool), error) {
	m := h.m
	if err := waitSlot(ctx, h.queueCh, m.maxWait, h.desc.ID); err != nil {
		return nil, nil, err
	}
	queued := true
	defer func() {
		if queued {
			<-h.queueCh
		}
	}()

	// A queued request keeps the reaper away, so the load done here is the one
	// the generation will use unless the handle is unloaded explicitly.
	if _, err := h.EnsureReady(ctx); err != nil {
		return nil, nil, err
	}
	if err := waitSlot(ctx, h.genCh, m.maxWait, h.desc.ID); err != nil {
		return nil, nil, err
	}
	res, err := h.EnsureReady(ctx)
	if err != nil {
		<-h.genCh
		return nil, nil, err
	}
	queued = false
	inferenceInflight.Inc()

	var once sync.Once
	release := func(ok bool) {
		once.Do(func() {
			inferenceInflight.Dec()
			if ok {
				h.touch()
			}
			<-h.genCh
			<-h.queueCh
		})
	}
	return res, release, nil
}

func waitSlot(ctx context.Context, ch chan struct{}, maxWait time.Duration, modelID string) error {
	select {
	case ch <- struct{}{}:
		return nil
	default:
	}
	timer := time.NewTimer(maxWait)
	defer timer.Stop()
	select {
	case ch <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return tooBusyError{modelID: modelID}
	}
}
