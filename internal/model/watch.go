package model

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/abelbrown/postbook/internal/logging"
	"github.com/abelbrown/postbook/internal/otel"
	"golang.org/x/time/rate"
)

// notifier fans a "something changed" signal out to watchers.
//
// Each watcher owns a 1-slot channel. broadcast never blocks: if the slot is
// already full the watcher has a pending re-query that will see this change
// too, so the extra signal is dropped.
type notifier struct {
	mu   sync.Mutex
	next uint64
	subs map[uint64]chan struct{}
}

func newNotifier() *notifier {
	return &notifier{subs: make(map[uint64]chan struct{})}
}

func (n *notifier) subscribe() (uint64, <-chan struct{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.next++
	ch := make(chan struct{}, 1)
	n.subs[n.next] = ch
	return n.next, ch
}

func (n *notifier) unsubscribe(id uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.subs, id)
}

func (n *notifier) broadcast() {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, ch := range n.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// watchers returns the number of live subscriptions.
func (n *notifier) watchers() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.subs)
}

// WatchAll returns a live stream of the whole table, ordered by id.
//
// The first value is the current table. A new snapshot follows every committed
// mutation, except that a snapshot equal to the previous one is skipped and
// writes that land while the subscriber is busy collapse into one snapshot.
// The channel is closed when ctx is done.
func (s *Store) WatchAll(ctx context.Context) <-chan []Post {
	return watch(ctx, s, "all", s.All, func(a, b []Post) bool { return slices.Equal(a, b) })
}

// WatchByID returns a live stream for a single row.
//
// The first value reflects the current row (Found=false if it does not
// exist). A new value follows whenever the row changes or disappears.
// The channel is closed when ctx is done.
func (s *Store) WatchByID(ctx context.Context, id int64) <-chan Lookup {
	query := func(ctx context.Context) (Lookup, error) {
		p, err := s.Get(ctx, id)
		if errors.Is(err, ErrNotFound) {
			return Lookup{}, nil
		}
		if err != nil {
			return Lookup{}, err
		}
		return Lookup{Post: p, Found: true}, nil
	}
	return watch(ctx, s, "by-id", query, func(a, b Lookup) bool { return a == b })
}

// watch runs one live query. The goroutine subscribes before the first read
// so no commit between the read and the subscription can be missed, and it
// delivers strictly in order: the next re-query starts only after the previous
// snapshot was handed over. It ends when ctx is done or the store closes, and
// does nothing observable after that.
func watch[T any](ctx context.Context, s *Store, name string, query func(context.Context) (T, error), equal func(a, b T) bool) <-chan T {
	out := make(chan T)

	// Registering under s.mu orders every Add before Close's Wait.
	s.mu.Lock()
	if s.closing.Err() != nil {
		s.mu.Unlock()
		close(out)
		return out
	}
	s.watchers.Add(1)
	s.mu.Unlock()

	subID, changed := s.notify.subscribe()
	ctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(s.closing, cancel)

	limiter := rate.NewLimiter(rate.Inf, 1)
	if s.minInterval > 0 {
		limiter = rate.NewLimiter(rate.Every(s.minInterval), 1)
	}

	go func() {
		defer s.watchers.Done()
		defer close(out)
		defer s.notify.unsubscribe(subID)
		defer stop()
		defer cancel()

		var last T
		sent := false
		for {
			v, err := query(ctx)
			switch {
			case err != nil:
				if ctx.Err() != nil {
					return
				}
				logging.Warn("Live query failed", "query", name, "error", err)
				if s.events != nil {
					s.events.Error(otel.KindStoreError, "live", err)
				}
			case !sent || !equal(last, v):
				select {
				case out <- v:
				case <-ctx.Done():
					return
				}
				if ctx.Err() != nil {
					return
				}
				last, sent = v, true
				if s.events != nil {
					s.events.Emit(otel.Event{Level: otel.LevelDebug, Kind: otel.KindLiveEmit, Comp: "live", Msg: name, Count: size(v)})
				}
			}

			select {
			case <-changed:
			case <-ctx.Done():
				return
			}
			if err := limiter.Wait(ctx); err != nil {
				return
			}
		}
	}()

	return out
}

// size is the number of posts in a snapshot.
func size(v any) int {
	switch v := v.(type) {
	case []Post:
		return len(v)
	case Lookup:
		if v.Found {
			return 1
		}
	}
	return 0
}
