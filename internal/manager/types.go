package manager

// State is the lifecycle state of a backend handle.
type State string

const (
	StateUnloaded State = "unloaded"
	StateLoading  State = "loading"
	StateReady    State = "ready"
)

// Eviction reasons, used for metrics and events.
const (
	ReasonIdle     = "idle"
	ReasonManual   = "manual"
	ReasonShutdown = "shutdown"
	ReasonForced   = "forced"
	ReasonCrashed  = "crashed"
)

// HandleStatus is a consistent snapshot of one handle.
type HandleStatus struct {
	ModelID   string
	State     State
	LastUsed  int64
	Inflight  int
	QueueLen  int
	Port      int
	PID       int
	LastError string
}
