package controller

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const waitTimeout = 2 * time.Second

func recv[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v, ok := <-ch:
		require.True(t, ok, "channel closed")
		return v
	case <-time.After(waitTimeout):
		t.Fatal("timeout waiting for value")
	}
	var zero T
	return zero
}

func TestStateSubscribeReceivesCurrent(t *testing.T) {
	s := NewState(7)
	ch, cancel := s.Subscribe()
	defer cancel()

	assert.Equal(t, 7, recv(t, ch))
	assert.Equal(t, 7, s.Value())
}

func TestStateSetDelivers(t *testing.T) {
	s := NewState("a")
	ch, cancel := s.Subscribe()
	defer cancel()
	recv(t, ch)

	s.Set("b")
	assert.Equal(t, "b", recv(t, ch))
	assert.Equal(t, "b", s.Value())
}

func TestStateSlowSubscriberSeesLatest(t *testing.T) {
	s := NewState(0)
	ch, cancel := s.Subscribe()
	defer cancel()

	for i := 1; i <= 100; i++ {
		s.Set(i)
	}
	assert.Equal(t, 100, recv(t, ch))

	select {
	case v := <-ch:
		t.Fatalf("unexpected extra value %d", v)
	default:
	}
}

func TestStateUpdate(t *testing.T) {
	s := NewState(1)
	got := s.Update(func(v int) int { return v + 41 })
	assert.Equal(t, 42, got)
	assert.Equal(t, 42, s.Value())
}

func TestStateCancelClosesChannel(t *testing.T) {
	s := NewState(0)
	ch, cancel := s.Subscribe()
	require.Equal(t, 1, s.Subscribers())

	cancel()
	cancel() // idempotent

	assert.Equal(t, 0, s.Subscribers())
	<-ch // initial value still buffered
	_, ok := <-ch
	assert.False(t, ok)

	s.Set(1) // no panic on closed subscriber
}

func TestPostDetailsValid(t *testing.T) {
	tests := []struct {
		name string
		d    PostDetails
		want bool
	}{
		{"empty title", PostDetails{Title: "", Description: "x", Author: "y"}, false},
		{"all set", PostDetails{Title: "a", Description: "b", Author: "c"}, true},
		{"blank author", PostDetails{Title: "a", Description: "b", Author: "   "}, false},
		{"blank description", PostDetails{Title: "a", Description: "\t\n", Author: "c"}, false},
		{"zero", PostDetails{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.d.Valid())
		})
	}
}

func TestPostDetailsConversion(t *testing.T) {
	d := PostDetails{ID: 3, Title: "Apples", Description: "10.0", Author: "20"}
	assert.Equal(t, d, DetailsFromPost(d.Post()))
}
