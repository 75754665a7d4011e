//go:build !llama

package manager

import (
	"context"

	"github.com/rs/zerolog"

	"modelgate/pkg/types"
)

// llamaBuilt is false in default (CGO-free) builds.
var llamaBuilt = false

// llamaAdapter refuses to load models without the 'llama' build tag. The
// resulting LoadError maps to 503.
type llamaAdapter struct{}

func NewLlamaAdapter(cfg LlamaConfig, log zerolog.Logger) Adapter {
	return llamaAdapter{}
}

func (llamaAdapter) Acquire(ctx context.Context, desc types.Model, slot int) (Resource, error) {
	return nil, &LoadError{Model: desc.ID, Err: ErrDependencyUnavailable("llama support not built (missing 'llama' build tag)")}
}
