// Package stream turns a backend's chunk sequence into Server-Sent Events
// frames in the OpenAI chat.completion.chunk format.
package stream

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"modelgate/pkg/types"
)

// Done is the end-of-stream sentinel frame.
const Done = "data: [DONE]\n\n"

// Source is a single-use chunk sequence that ends with io.EOF.
type Source interface {
	Recv() (types.Chunk, error)
}

// Meta identifies the completion every frame belongs to.
type Meta struct {
	ID      string
	Model   string
	Created int64
}

// Frame encodes one content frame.
func Frame(meta Meta, c types.Chunk) ([]byte, error) {
	chunk := types.ChatCompletionChunk{
		ID:      meta.ID,
		Object:  "chat.completion.chunk",
		Created: meta.Created,
		Model:   meta.Model,
		Choices: []types.ChunkChoice{{
			Index: 0,
			Delta: types.ChunkDelta{Content: c.Content},
		}},
	}
	if c.Terminal() {
		fr := c.FinishReason
		chunk.Choices[0].FinishReason = &fr
	}
	b, err := json.Marshal(chunk)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(b)+8)
	out = append(out, "data: "...)
	out = append(out, b...)
	out = append(out, "\n\n"...)
	return out, nil
}

// Translate consumes src and emits frames:
//   - a chunk with non-blank content yields one frame; blank chunks yield none
//   - a terminal chunk yields its content frame (when it has content) and then Done
//   - io.EOF without a terminal chunk yields Done
//
// Any other error from src or emit is returned as is and nothing further is
// emitted.
func Translate(src Source, meta Meta, emit func([]byte) error) error {
	for {
		c, err := src.Recv()
		if errors.Is(err, io.EOF) {
			return emit([]byte(Done))
		}
		if err != nil {
			return err
		}
		if c.Terminal() {
			if c.Content != "" {
				if err := emitFrame(meta, c, emit); err != nil {
					return err
				}
			}
			return emit([]byte(Done))
		}
		if strings.TrimSpace(c.Content) == "" {
			continue
		}
		if err := emitFrame(meta, c, emit); err != nil {
			return err
		}
	}
}

func emitFrame(meta Meta, c types.Chunk, emit func([]byte) error) error {
	b, err := Frame(meta, c)
	if err != nil {
		return err
	}
	return emit(b)
}

// Writer returns an emit func that writes each frame to w and flushes it
// when w supports flushing.
func Writer(w io.Writer) func([]byte) error {
	fl, _ := w.(http.Flusher)
	return func(b []byte) error {
		if _, err := w.Write(b); err != nil {
			return err
		}
		if fl != nil {
			fl.Flush()
		}
		return nil
	}
}
