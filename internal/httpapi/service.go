package httpapi

import (
	"context"

	"modelgate/internal/manager"
	"modelgate/internal/stream"
	"modelgate/pkg/types"
)

// Service defines the methods required by the HTTP API layer.
type Service interface {
	ListModels() []types.Model
	Status() types.StatusResponse
	Ready() bool
	Complete(ctx context.Context, req types.ChatCompletionRequest) (types.ChatCompletion, error)
	Stream(ctx context.Context, req types.ChatCompletionRequest) (ChatStream, error)
	Preload(modelID string) error
	Unload(ctx context.Context, modelID string) error
}

// ChatStream is a running streamed completion.
type ChatStream interface {
	stream.Source
	Meta() stream.Meta
	Close() error
}

// FromManager adapts a manager to Service.
func FromManager(m *manager.Manager) Service { return managerService{m} }

type managerService struct{ *manager.Manager }

func (s managerService) Stream(ctx context.Context, req types.ChatCompletionRequest) (ChatStream, error) {
	st, err := s.Manager.Stream(ctx, req)
	if err != nil {
		return nil, err
	}
	return managedStream{st}, nil
}

type managedStream struct{ *manager.Stream }

func (s managedStream) Meta() stream.Meta {
	return stream.Meta{ID: s.ID, Model: s.Model, Created: s.Created}
}
