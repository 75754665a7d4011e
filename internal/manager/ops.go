package manager

// Preload starts loading modelID in the background and returns immediately.
// Callers poll Status to observe the transition; the outcome of the load is
// recorded on the handle.
func (m *Manager) Preload(modelID string) error {
	h, err := m.Lookup(modelID)
	if err != nil {
		return err
	}
	if m.closed.Load() {
		return ErrShuttingDown
	}
	go func() {
		// Loads run under the manager lifetime, so a detached caller context is fine here.
		_, _ = h.EnsureReady(m.lifetime)
	}()
	return nil
}
