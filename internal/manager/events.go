package manager

// Event is one backend lifecycle transition, keyed by model id.
type Event struct {
	Name    string
	ModelID string
	Fields  map[string]any
}

// Load and eviction.
const (
	EventLoadStart = "load_start"
	EventLoadReady = "load_ready"
	EventLoadError = "load_error"
	EventEvict     = "evict"
)

// Explicit unload with drain.
const (
	EventUnloadStart   = "unload_start"
	EventUnloadTimeout = "unload_timeout"
	EventUnloadDone    = "unload_done"
)

// Subprocess backends only.
const (
	EventSpawnStart = "spawn_start"
	EventSpawnExit  = "spawn_exit"
	EventSpawnStop  = "spawn_stop"
)

// EventPublisher observes lifecycle events. Publish runs on the transition
// path and must return quickly.
type EventPublisher interface {
	Publish(Event)
}

type discardEvents struct{}

func (discardEvents) Publish(Event) {}
