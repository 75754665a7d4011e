package manager

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"modelgate/pkg/types"
)

// Stream is an in-progress generation. Recv yields backend chunks until
// io.EOF; Close cancels the upstream call and frees the backend for the next
// request. Close is safe to call more than once.
type Stream struct {
	ID      string
	Model   string
	Created int64

	src     ChunkStream
	cancel  context.CancelFunc
	stop    func() bool
	release func(ok bool)
	failed  atomic.Bool
	once    sync.Once
}

// Recv returns the next chunk. Backend failures are wrapped in InferenceError.
func (s *Stream) Recv() (types.Chunk, error) {
	c, err := s.src.Recv()
	if err != nil && !errors.Is(err, io.EOF) {
		s.failed.Store(true)
		return c, &InferenceError{Model: s.Model, Err: err}
	}
	return c, err
}

// Close aborts the upstream call if it is still running and releases the
// generation slot.
func (s *Stream) Close() error {
	var err error
	s.once.Do(func() {
		s.cancel()
		s.stop()
		err = s.src.Close()
		s.release(!s.failed.Load())
	})
	return err
}

// Stream starts a generation for req and returns the chunk stream.
func (m *Manager) Stream(ctx context.Context, req types.ChatCompletionRequest) (*Stream, error) {
	h, err := m.Lookup(req.Model)
	if err != nil {
		return nil, err
	}
	res, release, err := h.admit(ctx)
	if err != nil {
		return nil, err
	}

	// The generation ends with the request or with the manager.
	gctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(m.lifetime, cancel)

	src, err := res.Chat(gctx, req)
	if err != nil {
		stop()
		cancel()
		if hasExited(res) {
			_ = h.evictExited(res)
		}
		release(false)
		m.log.Error().Err(err).Str("model", req.Model).Msg("manager event=chat_error")
		return nil, &InferenceError{Model: req.Model, Err: err}
	}
	return &Stream{
		ID:      "chatcmpl-" + uuid.NewString(),
		Model:   req.Model,
		Created: m.now().Unix(),
		src:     src,
		cancel:  cancel,
		stop:    stop,
		release: release,
	}, nil
}

// Complete runs a generation to the end and returns the aggregated response.
func (m *Manager) Complete(ctx context.Context, req types.ChatCompletionRequest) (types.ChatCompletion, error) {
	s, err := m.Stream(ctx, req)
	if err != nil {
		return types.ChatCompletion{}, err
	}
	defer s.Close()

	var b strings.Builder
	finish := ""
	for {
		c, err := s.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return types.ChatCompletion{}, err
		}
		b.WriteString(c.Content)
		if c.Terminal() {
			finish = c.FinishReason
			break
		}
	}
	if finish == "" {
		finish = "stop"
	}
	return types.ChatCompletion{
		ID:      s.ID,
		Object:  "chat.completion",
		Created: s.Created,
		Model:   s.Model,
		Choices: []types.Choice{{
			Index:        0,
			Message:      types.ChatMessage{Role: "assistant", Content: b.String()},
			FinishReason: finish,
		}},
	}, nil
}
