package manager

import (
	"context"
	"errors"
	"sync"
)

var errResourceClosed = errors.New("backend is being released")

// genTracker counts the generations running on an in-process resource so
// the model is freed only after the last one has left native code.
type genTracker struct {
	mu      sync.Mutex
	closed  bool
	next    int
	cancels map[int]context.CancelFunc
	wg      sync.WaitGroup
}

// start registers a generation. The returned ctx ends on cancel or
// cancelAll; done must be called once the generation has fully returned.
func (g *genTracker) start(parent context.Context) (ctx context.Context, cancel context.CancelFunc, done func(), err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return nil, nil, nil, errResourceClosed
	}
	if g.cancels == nil {
		g.cancels = make(map[int]context.CancelFunc)
	}
	ctx, cancel = context.WithCancel(parent)
	id := g.next
	g.next++
	g.cancels[id] = cancel
	g.wg.Add(1)
	var once sync.Once
	done = func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.cancels, id)
			g.mu.Unlock()
			cancel()
			g.wg.Done()
		})
	}
	return ctx, cancel, done, nil
}

// close refuses new generations. Running ones continue.
func (g *genTracker) close() {
	g.mu.Lock()
	g.closed = true
	g.mu.Unlock()
}

func (g *genTracker) cancelAll() {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, cancel := range g.cancels {
		cancel()
	}
}

// wait blocks until every started generation is done or ctx ends, and
// reports whether they all finished. Call close first.
func (g *genTracker) wait(ctx context.Context) bool {
	idle := make(chan struct{})
	go func() {
		g.wg.Wait()
		close(idle)
	}()
	select {
	case <-idle:
		return true
	case <-ctx.Done():
		return false
	}
}

// drain closes the tracker and waits for running generations, canceling
// them once ctx ends. It always returns with nothing running.
func (g *genTracker) drain(ctx context.Context) {
	g.close()
	if g.wait(ctx) {
		return
	}
	g.cancelAll()
	g.wait(context.Background())
}
