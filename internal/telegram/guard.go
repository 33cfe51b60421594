package telegram

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrInitialization is returned for every event once client setup has failed.
// Failure is sticky for the life of the process.
var ErrInitialization = errors.New("telegram client initialization failed")

// State is the lifecycle of a lazily created client.
type State int

// Client lifecycle states.
const (
	StateUninitialized State = iota
	StateInitializing
	StateReady
	StateFailed
)

// String returns the lower-case state name.
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitializing:
		return "initializing"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// InitFunc creates the guarded client.
type InitFunc[T any] func(ctx context.Context) (T, error)

// Guard creates a client on first use, exactly once, no matter how many
// callers arrive before setup completes. Callers that arrive during setup
// wait for its result instead of starting their own.
type Guard[T any] struct {
	init InitFunc[T]

	mu     sync.Mutex
	state  State
	done   chan struct{}
	client T
	err    error
}

// NewGuard returns a guard in StateUninitialized.
func NewGuard[T any](init InitFunc[T]) *Guard[T] {
	return &Guard[T]{init: init, done: make(chan struct{})}
}

// Get returns the client, running init if this is the first call. Setup runs
// detached from the caller's cancellation so one abandoned request cannot fail
// it for everybody; a waiting caller still returns early when its own ctx ends.
func (g *Guard[T]) Get(ctx context.Context) (T, error) {
	g.mu.Lock()
	switch g.state {
	case StateReady:
		defer g.mu.Unlock()
		return g.client, nil
	case StateFailed:
		defer g.mu.Unlock()
		var zero T
		return zero, g.err
	case StateUninitialized:
		g.state = StateInitializing
		g.mu.Unlock()
		g.run(context.WithoutCancel(ctx))
	default:
		g.mu.Unlock()
	}

	select {
	case <-g.done:
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state == StateFailed {
		var zero T
		return zero, g.err
	}
	return g.client, nil
}

func (g *Guard[T]) run(ctx context.Context) {
	var (
		client T
		err    error
	)
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic during initialization: %v", r)
		}

		g.mu.Lock()
		defer g.mu.Unlock()
		if err != nil {
			g.state = StateFailed
			g.err = fmt.Errorf("%w: %w", ErrInitialization, err)
		} else {
			g.state = StateReady
			g.client = client
		}
		close(g.done)
	}()

	client, err = g.init(ctx)
}

// State returns the current lifecycle state.
func (g *Guard[T]) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}
