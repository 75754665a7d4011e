package manager

import (
	"context"
	"time"
)

// Unload drains a backend and evicts it. It waits up to the drain timeout
// for queued and running generations to finish; work still pending after
// that sees the backend go away.
func (m *Manager) Unload(ctx context.Context, modelID string) error {
	h, err := m.Lookup(modelID)
	if err != nil {
		return err
	}
	if h.State() == StateUnloaded {
		return nil
	}
	m.publisher.Publish(Event{Name: EventUnloadStart, ModelID: modelID})

	deadline := time.Now().Add(m.drainTimeout)
	t := time.NewTicker(10 * time.Millisecond)
	defer t.Stop()
	for h.busy() {
		if time.Now().After(deadline) {
			m.publisher.Publish(Event{Name: EventUnloadTimeout, ModelID: modelID, Fields: map[string]any{"inflight": len(h.genCh), "queue": len(h.queueCh)}})
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}

	if err := h.Evict(ctx, ReasonManual); err != nil {
		return err
	}
	m.publisher.Publish(Event{Name: EventUnloadDone, ModelID: modelID})
	return nil
}
