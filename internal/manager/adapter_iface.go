package manager

import (
	"context"

	"modelgate/pkg/types"
)

// Adapter acquires the resource that serves one model. Concrete
// implementations spawn an OpenAI-compatible server per model or load the
// model in-process through llama.cpp.
type Adapter interface {
	// Acquire starts the backend for desc and returns once it can serve.
	// slot is the model's index in the registry. Implementations must honor
	// ctx and leave nothing running when they return an error.
	Acquire(ctx context.Context, desc types.Model, slot int) (Resource, error)
}

// Resource is an acquired backend owned by exactly one Handle.
type Resource interface {
	// Chat starts a generation for req. The caller must Close the stream.
	Chat(ctx context.Context, req types.ChatCompletionRequest) (ChunkStream, error)
	// Release stops the backend gracefully, escalating to a forced stop when
	// the graceful path does not finish in time or ctx is done.
	Release(ctx context.Context) error
	// Kill tears the backend down immediately.
	Kill() error
	// Info reports process details for /status. Zero values for in-process backends.
	Info() ResourceInfo
}

// Exiter is implemented by resources that can go away on their own, such as
// a spawned server process. Exited is closed once that has happened.
type Exiter interface {
	Exited() <-chan struct{}
}

// ResourceInfo describes where a resource runs.
type ResourceInfo struct {
	PID  int
	Port int
}

// ChunkStream is a forward-only, single-use sequence of partial results.
// Recv returns io.EOF after the last chunk.
type ChunkStream interface {
	Recv() (types.Chunk, error)
	Close() error
}
