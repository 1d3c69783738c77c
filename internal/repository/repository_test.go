package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/abelbrown/postbook/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ ItemsRepository = (*OfflineRepository)(nil)

// recordingStore is an in-memory RecordStore that records calls, proving the
// repository works against any backend.
type recordingStore struct {
	calls  []string
	err    error
	posts  chan []model.Post
	lookup chan model.Lookup
}

func (s *recordingStore) Insert(ctx context.Context, p model.Post) (model.Post, error) {
	s.calls = append(s.calls, "insert")
	p.ID = 10
	return p, s.err
}

func (s *recordingStore) Update(ctx context.Context, p model.Post) error {
	s.calls = append(s.calls, "update")
	return s.err
}

func (s *recordingStore) Delete(ctx context.Context, p model.Post) (bool, error) {
	s.calls = append(s.calls, "delete")
	return s.err == nil, s.err
}

func (s *recordingStore) WatchAll(ctx context.Context) <-chan []model.Post {
	s.calls = append(s.calls, "watch-all")
	return s.posts
}

func (s *recordingStore) WatchByID(ctx context.Context, id int64) <-chan model.Lookup {
	s.calls = append(s.calls, "watch-by-id")
	return s.lookup
}

func TestRepositoryDelegates(t *testing.T) {
	backend := &recordingStore{
		posts:  make(chan []model.Post),
		lookup: make(chan model.Lookup),
	}
	repo := NewOfflineRepository(backend)
	ctx := context.Background()

	p, err := repo.InsertItem(ctx, model.Post{Title: "a"})
	require.NoError(t, err)
	assert.Equal(t, int64(10), p.ID)
	require.NoError(t, repo.UpdateItem(ctx, p))
	removed, err := repo.DeleteItem(ctx, p)
	require.NoError(t, err)
	assert.True(t, removed)
	assert.Equal(t, (<-chan []model.Post)(backend.posts), repo.GetAllItemsStream(ctx))
	assert.Equal(t, (<-chan model.Lookup)(backend.lookup), repo.GetItemStream(ctx, 1))

	assert.Equal(t, []string{"insert", "update", "delete", "watch-all", "watch-by-id"}, backend.calls)
}

func TestRepositoryPropagatesErrors(t *testing.T) {
	backend := &recordingStore{err: model.ErrStorage}
	repo := NewOfflineRepository(backend)
	ctx := context.Background()

	_, err := repo.InsertItem(ctx, model.Post{})
	assert.True(t, errors.Is(err, model.ErrStorage))
	assert.ErrorIs(t, repo.UpdateItem(ctx, model.Post{}), model.ErrStorage)
	_, err = repo.DeleteItem(ctx, model.Post{})
	assert.ErrorIs(t, err, model.ErrStorage)
}

func TestRepositoryOverSQLite(t *testing.T) {
	store, err := model.NewStore(":memory:")
	require.NoError(t, err)
	defer store.Close()

	repo := NewOfflineRepository(store)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stream := repo.GetAllItemsStream(ctx)
	select {
	case posts := <-stream:
		assert.Empty(t, posts)
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for initial snapshot")
	}

	inserted, err := repo.InsertItem(ctx, model.Post{Title: "Apples", Description: "10.0", Author: "20"})
	require.NoError(t, err)

	select {
	case posts := <-stream:
		require.Len(t, posts, 1)
		assert.Equal(t, inserted, posts[0])
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for insert snapshot")
	}

	err = repo.UpdateItem(ctx, model.Post{ID: 99, Title: "missing"})
	assert.ErrorIs(t, err, model.ErrNotFound)

	stale := inserted
	stale.Author = "someone else"
	removed, err := repo.DeleteItem(ctx, stale)
	require.NoError(t, err)
	assert.False(t, removed, "stale copy must not match")

	removed, err = repo.DeleteItem(ctx, inserted)
	require.NoError(t, err)
	assert.True(t, removed)
}
