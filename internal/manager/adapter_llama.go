//go:build llama

package manager

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"

	llama "github.com/go-skynet/go-llama.cpp"
	"github.com/rs/zerolog"

	"modelgate/pkg/types"
)

// llamaBuilt indicates this binary was compiled with real llama support.
var llamaBuilt = true

// llamaAdapter loads models into this process through go-llama.cpp.
type llamaAdapter struct {
	cfg LlamaConfig
	log zerolog.Logger
}

func NewLlamaAdapter(cfg LlamaConfig, log zerolog.Logger) Adapter {
	return &llamaAdapter{cfg: cfg, log: log.With().Str("adapter", "llama").Logger()}
}

func (a *llamaAdapter) Acquire(ctx context.Context, desc types.Model, slot int) (Resource, error) {
	if strings.TrimSpace(desc.Path) == "" {
		return nil, &LoadError{Model: desc.ID, Err: errors.New("model path is empty")}
	}
	if err := ctx.Err(); err != nil {
		return nil, &LoadError{Model: desc.ID, Err: err}
	}
	mo := []llama.ModelOption{llama.SetContext(a.cfg.ContextSize)}
	if n, ok := a.cfg.offload(); ok {
		mo = append(mo, llama.SetGPULayers(n))
	}
	// llama.New cannot be interrupted; a canceled ctx is observed after it returns.
	m, err := llama.New(desc.Path, mo...)
	if err != nil {
		return nil, &LoadError{Model: desc.ID, Err: err}
	}
	if err := ctx.Err(); err != nil {
		m.Free()
		return nil, &LoadError{Model: desc.ID, Err: err}
	}
	a.log.Info().Str("model", desc.ID).Msg("adapter event=ready")
	return &llamaResource{model: m, threads: a.cfg.Threads}, nil
}

// llamaResource owns the loaded model. The model is freed only once no
// Predict call is running on it.
type llamaResource struct {
	model   *llama.LLama
	threads int
	gens    genTracker
	free    sync.Once
}

type llamaEvent struct {
	chunk types.Chunk
	err   error
}

func (r *llamaResource) Chat(ctx context.Context, req types.ChatCompletionRequest) (ChunkStream, error) {
	ctx, cancel, done, err := r.gens.start(ctx)
	if err != nil {
		return nil, err
	}
	ch := make(chan llamaEvent, 16)
	prompt := renderPrompt(req.Messages)
	po := predictOptions(req, r.threads)
	r.model.SetTokenCallback(func(tok string) bool {
		select {
		case ch <- llamaEvent{chunk: types.Chunk{Content: tok}}:
			return true
		case <-ctx.Done():
			return false
		}
	})
	go func() {
		defer close(ch)
		defer done()
		_, err := r.model.Predict(prompt, po...)
		ev := llamaEvent{chunk: types.Chunk{FinishReason: "stop"}}
		if ctx.Err() != nil {
			ev = llamaEvent{err: ctx.Err()}
		} else if err != nil {
			ev = llamaEvent{err: err}
		}
		select {
		case ch <- ev:
		case <-ctx.Done():
		}
	}()
	return &llamaStream{ch: ch, cancel: cancel}, nil
}

// Release lets a running generation finish, canceling it once ctx ends,
// and then frees the model.
func (r *llamaResource) Release(ctx context.Context) error {
	r.gens.drain(ctx)
	r.free.Do(r.model.Free)
	return nil
}

// Kill cancels any running generation and frees the model once it returns.
func (r *llamaResource) Kill() error {
	r.gens.close()
	r.gens.cancelAll()
	r.gens.wait(context.Background())
	r.free.Do(r.model.Free)
	return nil
}

func (r *llamaResource) Info() ResourceInfo { return ResourceInfo{} }

type llamaStream struct {
	ch     chan llamaEvent
	cancel context.CancelFunc
}

func (s *llamaStream) Recv() (types.Chunk, error) {
	ev, ok := <-s.ch
	if !ok {
		return types.Chunk{}, io.EOF
	}
	return ev.chunk, ev.err
}

func (s *llamaStream) Close() error {
	s.cancel()
	// Drain so the predictor goroutine can exit.
	for range s.ch {
	}
	return nil
}

func predictOptions(req types.ChatCompletionRequest, threads int) []llama.PredictOption {
	po := []llama.PredictOption{
		llama.SetThreads(max(1, threads)),
		llama.SetTopK(llama.DefaultOptions.TopK),
		llama.SetPenalty(llama.DefaultOptions.Penalty),
	}
	tokens := llama.DefaultOptions.Tokens
	if req.MaxTokens != nil && *req.MaxTokens > 0 {
		tokens = *req.MaxTokens
	}
	po = append(po, llama.SetTokens(tokens))
	topP := llama.DefaultOptions.TopP
	if req.TopP != nil {
		topP = float32(*req.TopP)
	}
	po = append(po, llama.SetTopP(topP))
	temp := llama.DefaultOptions.Temperature
	if req.Temperature != nil {
		temp = float32(*req.Temperature)
	}
	po = append(po, llama.SetTemperature(temp))
	if req.Seed != nil {
		po = append(po, llama.SetSeed(*req.Seed))
	}
	if len(req.Stop) > 0 {
		po = append(po, llama.SetStopWords(req.Stop...))
	}
	return po
}
