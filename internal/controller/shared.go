package controller

import (
	"context"
	"sync"
	"time"
)

// DefaultKeepAlive is how long an upstream outlives its last observer.
const DefaultKeepAlive = 5 * time.Second

// Upstream feeds a Shared state until ctx is done.
type Upstream[T any] func(ctx context.Context, emit func(T))

// Shared is a State whose upstream runs only while it is observed.
//
// The first Observe starts the upstream. When the last observer releases,
// the upstream keeps running for the keep-alive window; an Observe inside
// that window reuses it. The last value survives an upstream restart.
//
// # Thread Safety
//
// All methods are safe for concurrent use.
type Shared[T any] struct {
	state     *State[T]
	upstream  Upstream[T]
	keepAlive time.Duration

	mu        sync.Mutex
	observers int
	cancel    context.CancelFunc // non-nil while upstream runs
	done      chan struct{}      // closed when the running upstream returns
	timer     *time.Timer
	gen       uint64 // bumped whenever a pending timer becomes stale
	starts    int
	closed    bool
}

// NewShared creates a Shared state. A negative keepAlive means DefaultKeepAlive;
// zero stops the upstream as soon as the last observer leaves.
func NewShared[T any](initial T, keepAlive time.Duration, upstream Upstream[T]) *Shared[T] {
	if keepAlive < 0 {
		keepAlive = DefaultKeepAlive
	}
	return &Shared[T]{
		state:     NewState(initial),
		upstream:  upstream,
		keepAlive: keepAlive,
	}
}

// Value returns the current snapshot.
func (s *Shared[T]) Value() T {
	return s.state.Value()
}

// Observe subscribes to the state, starting the upstream if needed.
// The returned func releases the observation.
func (s *Shared[T]) Observe() (<-chan T, func()) {
	s.mu.Lock()
	s.observers++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
		s.gen++
	}
	if s.cancel == nil && !s.closed {
		s.startLocked()
	}
	s.mu.Unlock()

	ch, unsubscribe := s.state.Subscribe()
	var once sync.Once
	return ch, func() {
		once.Do(func() {
			unsubscribe()
			s.release()
		})
	}
}

// Active reports whether the upstream is running.
func (s *Shared[T]) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancel != nil
}

// Starts returns how many times the upstream has been started.
func (s *Shared[T]) Starts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.starts
}

// Close stops the upstream immediately and prevents restarts.
// It waits for the upstream to return.
func (s *Shared[T]) Close() {
	s.mu.Lock()
	s.closed = true
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	done := s.stopLocked()
	s.mu.Unlock()

	if done != nil {
		<-done
	}
}

func (s *Shared[T]) release() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.observers--
	if s.observers > 0 || s.cancel == nil {
		return
	}
	if s.keepAlive == 0 {
		s.stopLocked()
		return
	}
	gen := s.gen
	s.timer = time.AfterFunc(s.keepAlive, func() { s.expire(gen) })
}

// expire runs when the keep-alive window armed at generation gen ends.
// A timer that fired while Observe was stopping it finds a newer generation
// and does nothing.
func (s *Shared[T]) expire(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen || s.observers != 0 {
		return
	}
	s.timer = nil
	s.stopLocked()
}

// startLocked launches the upstream. Caller must hold s.mu.
func (s *Shared[T]) startLocked() {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	s.cancel = cancel
	s.done = done
	s.starts++

	go func() {
		defer close(done)
		s.upstream(ctx, func(v T) {
			// Drop values produced after cancellation.
			if ctx.Err() == nil {
				s.state.Set(v)
			}
		})
	}()
}

// stopLocked cancels the upstream and returns its done channel.
// Caller must hold s.mu.
func (s *Shared[T]) stopLocked() chan struct{} {
	if s.cancel == nil {
		return nil
	}
	s.cancel()
	done := s.done
	s.cancel = nil
	s.done = nil
	return done
}
