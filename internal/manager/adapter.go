package manager

import (
	"fmt"

	"github.com/rs/zerolog"

	"modelgate/internal/config"
)

// LlamaConfig configures the in-process adapter.
type LlamaConfig struct {
	ContextSize int
	Threads     int
	// GPULayers is how many layers to offload; negative means all, 0 none.
	GPULayers int
}

// offload reports the GPU layer count to request, if any.
func (c LlamaConfig) offload() (layers int, ok bool) {
	return c.GPULayers, c.GPULayers != 0
}

// NewAdapter returns the adapter for mode.
func NewAdapter(mode string, sub SubprocessConfig, ll LlamaConfig, log zerolog.Logger, pub EventPublisher) (Adapter, error) {
	switch mode {
	case config.ModeSubprocess, "":
		return NewSubprocessAdapter(sub, log, pub), nil
	case config.ModeInProcess:
		return NewLlamaAdapter(ll, log), nil
	default:
		return nil, fmt.Errorf("unknown backend mode %q", mode)
	}
}
