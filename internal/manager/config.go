package manager

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"modelgate/pkg/types"
)

// Defaults applied when corresponding ManagerConfig fields are unset.
const (
	defaultMaxQueueDepth = 32
	defaultMaxWait       = 300 * time.Second
	defaultDrainTimeout  = 30 * time.Second
)

// ManagerConfig encapsulates all tunables for Manager construction.
type ManagerConfig struct {
	Registry []types.Model
	// Adapter acquires backends. Required.
	Adapter       Adapter
	MaxQueueDepth int
	MaxWait       time.Duration
	// DrainTimeout bounds how long Unload waits for queued work.
	DrainTimeout time.Duration
	Logger       zerolog.Logger
	Publisher    EventPublisher
	// Clock overrides time.Now; used by tests driving the reaper.
	Clock func() time.Time
}

// NewWithConfig constructs a Manager from ManagerConfig.
func NewWithConfig(cfg ManagerConfig) *Manager {
	if cfg.MaxQueueDepth <= 0 {
		cfg.MaxQueueDepth = defaultMaxQueueDepth
	}
	if cfg.MaxWait <= 0 {
		cfg.MaxWait = defaultMaxWait
	}
	if cfg.DrainTimeout <= 0 {
		cfg.DrainTimeout = defaultDrainTimeout
	}
	if cfg.Publisher == nil {
		cfg.Publisher = discardEvents{}
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	m := &Manager{
		adapter:       cfg.Adapter,
		log:           cfg.Logger.With().Str("component", "manager").Logger(),
		publisher:     cfg.Publisher,
		now:           cfg.Clock,
		maxQueueDepth: cfg.MaxQueueDepth,
		maxWait:       cfg.MaxWait,
		drainTimeout:  cfg.DrainTimeout,
		handles:       make(map[string]*Handle, len(cfg.Registry)),
		startTime:     time.Now(),
	}
	m.lifetime, m.stop = context.WithCancel(context.Background())
	for slot, desc := range cfg.Registry {
		h := newHandle(m, desc, slot)
		m.handles[desc.ID] = h
		m.order = append(m.order, h)
	}
	return m
}
