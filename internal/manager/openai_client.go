package manager

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"modelgate/pkg/types"
)

// openAIClient speaks the subset of the OpenAI HTTP API that spawned
// backends expose: the model list (readiness) and streamed chat completions.
type openAIClient struct {
	http *http.Client
}

func newOpenAIClient() *openAIClient {
	// Timeout=0: every call carries a context deadline or is bounded by the
	// request's own context. Streaming bodies must not be cut by a client timeout.
	tr := &http.Transport{
		MaxIdleConnsPerHost: 4,
		IdleConnTimeout:     90 * time.Second,
	}
	return &openAIClient{http: &http.Client{Timeout: 0, Transport: tr}}
}

// healthy reports whether the backend at baseURL answers GET /v1/models with 2xx.
func (c *openAIClient) healthy(ctx context.Context, baseURL string, timeout time.Duration) bool {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/v1/models", nil)
	if err != nil {
		return false
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return false
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	_ = resp.Body.Close()
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

type openAIChatRequest struct {
	Model       string              `json:"model"`
	Messages    []types.ChatMessage `json:"messages"`
	Stream      bool                `json:"stream"`
	MaxTokens   *int                `json:"max_tokens,omitempty"`
	Temperature *float64            `json:"temperature,omitempty"`
	TopP        *float64            `json:"top_p,omitempty"`
	Stop        []string            `json:"stop,omitempty"`
	Seed        *int                `json:"seed,omitempty"`
}

type openAIStreamResponse struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
}

// chat posts a streaming chat completion and returns the parsed event stream.
func (c *openAIClient) chat(ctx context.Context, baseURL string, req types.ChatCompletionRequest) (ChunkStream, error) {
	payload := openAIChatRequest{
		Model:       req.Model,
		Messages:    req.Messages,
		Stream:      true,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		TopP:        req.TopP,
		Stop:        req.Stop,
		Seed:        req.Seed,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	hreq, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	hreq.Header.Set("Content-Type", "application/json")
	hreq.Header.Set("Accept", "text/event-stream")
	resp, err := c.http.Do(hreq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		_ = resp.Body.Close()
		return nil, fmt.Errorf("backend http error: %s: %s", resp.Status, strings.TrimSpace(string(b)))
	}
	return &sseStream{ctx: ctx, body: resp.Body, r: bufio.NewReader(resp.Body)}, nil
}

// sseStream parses "data: {...}" events into chunks. "data: [DONE]" and a
// clean end of body both end the stream with io.EOF.
type sseStream struct {
	ctx  context.Context
	body io.ReadCloser
	r    *bufio.Reader
	done bool
}

func (s *sseStream) Recv() (types.Chunk, error) {
	for {
		if s.done {
			return types.Chunk{}, io.EOF
		}
		line, err := s.r.ReadString('\n')
		if chunk, ok, perr := s.parseLine(line); perr != nil {
			return types.Chunk{}, perr
		} else if ok {
			return chunk, nil
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				s.done = true
				return types.Chunk{}, io.EOF
			}
			if s.ctx.Err() != nil {
				return types.Chunk{}, s.ctx.Err()
			}
			return types.Chunk{}, err
		}
	}
}

func (s *sseStream) parseLine(line string) (types.Chunk, bool, error) {
	l := strings.TrimSpace(line)
	if l == "" || !strings.HasPrefix(strings.ToLower(l), "data:") {
		return types.Chunk{}, false, nil
	}
	data := strings.TrimSpace(l[len("data:"):])
	if data == "[DONE]" {
		s.done = true
		return types.Chunk{}, false, nil
	}
	var msg openAIStreamResponse
	if err := json.Unmarshal([]byte(data), &msg); err != nil {
		return types.Chunk{}, false, fmt.Errorf("malformed stream event: %w", err)
	}
	if len(msg.Choices) == 0 {
		return types.Chunk{}, false, nil
	}
	ch := types.Chunk{Content: msg.Choices[0].Delta.Content}
	if fr := msg.Choices[0].FinishReason; fr != nil {
		ch.FinishReason = *fr
	}
	return ch, true, nil
}

func (s *sseStream) Close() error { return s.body.Close() }
