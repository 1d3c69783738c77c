package controller

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// counter emits 1, 2, 3... every tick until cancelled.
func counter(running *atomic.Int32) Upstream[int] {
	return func(ctx context.Context, emit func(int)) {
		running.Add(1)
		defer running.Add(-1)
		n := 0
		ticker := time.NewTicker(5 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				n++
				emit(n)
			}
		}
	}
}

func eventually(t *testing.T, cond func() bool) {
	t.Helper()
	require.Eventually(t, cond, waitTimeout, 5*time.Millisecond)
}

func TestSharedLazyStart(t *testing.T) {
	var running atomic.Int32
	s := NewShared(0, time.Hour, counter(&running))
	defer s.Close()

	assert.False(t, s.Active())
	assert.Equal(t, 0, s.Starts())

	ch, release := s.Observe()
	defer release()

	assert.Equal(t, 0, recv(t, ch), "initial value first")
	assert.True(t, s.Active())
	eventually(t, func() bool { return s.Value() > 0 })
}

func TestSharedStopsAfterKeepAlive(t *testing.T) {
	var running atomic.Int32
	s := NewShared(0, 200*time.Millisecond, counter(&running))
	defer s.Close()

	_, release := s.Observe()
	eventually(t, func() bool { return running.Load() == 1 })
	release()

	assert.True(t, s.Active(), "upstream lingers during keep-alive")
	eventually(t, func() bool { return !s.Active() && running.Load() == 0 })
}

func TestSharedReusesUpstreamWithinKeepAlive(t *testing.T) {
	var running atomic.Int32
	s := NewShared(0, time.Hour, counter(&running))
	defer s.Close()

	_, release := s.Observe()
	release()
	_, release = s.Observe()
	defer release()

	assert.Equal(t, 1, s.Starts())
	assert.True(t, s.Active())
}

func TestSharedRestartKeepsLastValue(t *testing.T) {
	var running atomic.Int32
	s := NewShared(0, 0, counter(&running))
	defer s.Close()

	_, release := s.Observe()
	eventually(t, func() bool { return s.Value() >= 3 })
	release()
	eventually(t, func() bool { return running.Load() == 0 })

	assert.GreaterOrEqual(t, s.Value(), 3, "value survives upstream stop")

	_, release = s.Observe()
	defer release()
	assert.Equal(t, 2, s.Starts())
}

func TestSharedMultipleObservers(t *testing.T) {
	var running atomic.Int32
	s := NewShared(0, 0, counter(&running))
	defer s.Close()

	_, r1 := s.Observe()
	_, r2 := s.Observe()
	r1()
	assert.True(t, s.Active(), "one observer still attached")
	r2()
	eventually(t, func() bool { return !s.Active() })
	assert.Equal(t, 1, s.Starts())
}

func TestSharedCloseWaitsForUpstream(t *testing.T) {
	var running atomic.Int32
	s := NewShared(0, time.Hour, counter(&running))

	_, release := s.Observe()
	defer release()
	eventually(t, func() bool { return running.Load() == 1 })

	s.Close()
	assert.Equal(t, int32(0), running.Load())
	assert.False(t, s.Active())

	_, r := s.Observe()
	defer r()
	assert.False(t, s.Active(), "closed state does not restart")
}

func TestSharedStaleTimerDoesNotStopUpstream(t *testing.T) {
	var running atomic.Int32
	s := NewShared(0, time.Hour, counter(&running))
	defer s.Close()

	_, release := s.Observe()
	release()
	s.mu.Lock()
	stale := s.gen
	s.mu.Unlock()

	// Re-observe and leave again: a new keep-alive window starts.
	_, release = s.Observe()
	release()

	// The first window's timer fires late, after losing the race to Observe.
	s.expire(stale)
	assert.True(t, s.Active(), "stale expiry must not stop the upstream")
	assert.Equal(t, 1, s.Starts())

	s.mu.Lock()
	current := s.gen
	s.mu.Unlock()
	s.expire(current)
	assert.False(t, s.Active())
}
