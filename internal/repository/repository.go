// Package repository is the domain-facing facade over the record store.
//
// Consumers depend on ItemsRepository only, so the storage technology can be
// swapped for any backend that satisfies RecordStore.
package repository

import (
	"context"

	"github.com/abelbrown/postbook/internal/model"
)

// ItemsRepository exposes post streams and mutations in domain vocabulary.
type ItemsRepository interface {
	// GetAllItemsStream emits the full list on subscribe and after every change.
	GetAllItemsStream(ctx context.Context) <-chan []model.Post

	// GetItemStream emits the post with the given id, or an absent lookup.
	GetItemStream(ctx context.Context, id int64) <-chan model.Lookup

	// InsertItem stores a new post and returns it with its assigned id.
	InsertItem(ctx context.Context, post model.Post) (model.Post, error)

	// UpdateItem replaces the post with the same id.
	UpdateItem(ctx context.Context, post model.Post) error

	// DeleteItem removes the post matching every field and reports whether
	// a row was removed. No exact match is not an error.
	DeleteItem(ctx context.Context, post model.Post) (bool, error)
}

// RecordStore is what a storage backend must provide. *model.Store satisfies it.
type RecordStore interface {
	Insert(ctx context.Context, p model.Post) (model.Post, error)
	Update(ctx context.Context, p model.Post) error
	Delete(ctx context.Context, p model.Post) (bool, error)
	WatchAll(ctx context.Context) <-chan []model.Post
	WatchByID(ctx context.Context, id int64) <-chan model.Lookup
}

var _ RecordStore = (*model.Store)(nil)

// OfflineRepository delegates straight to an on-device RecordStore.
// It adds no validation and keeps no cache.
type OfflineRepository struct {
	store RecordStore
}

// NewOfflineRepository wraps store.
func NewOfflineRepository(store RecordStore) *OfflineRepository {
	return &OfflineRepository{store: store}
}

func (r *OfflineRepository) GetAllItemsStream(ctx context.Context) <-chan []model.Post {
	return r.store.WatchAll(ctx)
}

func (r *OfflineRepository) GetItemStream(ctx context.Context, id int64) <-chan model.Lookup {
	return r.store.WatchByID(ctx, id)
}

func (r *OfflineRepository) InsertItem(ctx context.Context, post model.Post) (model.Post, error) {
	return r.store.Insert(ctx, post)
}

func (r *OfflineRepository) UpdateItem(ctx context.Context, post model.Post) error {
	return r.store.Update(ctx, post)
}

func (r *OfflineRepository) DeleteItem(ctx context.Context, post model.Post) (bool, error) {
	return r.store.Delete(ctx, post)
}
