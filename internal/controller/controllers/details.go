package controllers

import (
	"context"
	"fmt"
	"time"

	"github.com/abelbrown/postbook/internal/controller"
	"github.com/abelbrown/postbook/internal/repository"
)

// DetailsState is what the details screen renders.
type DetailsState struct {
	// OutOfStock is true until a post arrives, then tracks Details.ID <= 0.
	OutOfStock bool
	Details    controller.PostDetails
}

// DetailsController follows a single post by id.
//
// Absent lookups are filtered out: once the post is deleted the state keeps
// showing the last version seen.
//
// # Mutations
//
// DecrementAndPersist and DeleteCurrent act on the current snapshot and run
// to completion even if ctx is cancelled mid-flight. Failures are returned to
// the caller and reported on the event channel; nothing is retried.
type DetailsController struct {
	*controller.Emitter
	repo  repository.ItemsRepository
	id    int64
	state *controller.Shared[DetailsState]
}

// NewDetailsController creates a details controller for post id.
func NewDetailsController(repo repository.ItemsRepository, id int64, cfg Config) *DetailsController {
	upstream := func(ctx context.Context, emit func(DetailsState)) {
		for l := range repo.GetItemStream(ctx, id) {
			if !l.Found {
				continue
			}
			emit(DetailsState{
				OutOfStock: l.Post.ID <= 0,
				Details:    controller.DetailsFromPost(l.Post),
			})
		}
	}
	return &DetailsController{
		Emitter: controller.NewEmitter("details", cfg.Events),
		repo:    repo,
		id:      id,
		state:   controller.NewShared(DetailsState{OutOfStock: true}, cfg.keepAlive(), upstream),
	}
}

// ID returns "details/<id>".
func (c *DetailsController) ID() string {
	return fmt.Sprintf("details/%d", c.id)
}

// PostID returns the id this controller follows.
func (c *DetailsController) PostID() int64 {
	return c.id
}

func (c *DetailsController) Observe() (<-chan DetailsState, func()) {
	return c.state.Observe()
}

func (c *DetailsController) State() DetailsState {
	return c.state.Value()
}

func (c *DetailsController) Close() {
	c.state.Close()
}

// DecrementAndPersist writes the current post back under id-1.
//
// This rewrites whichever row holds id-1 with the current fields; the row
// under the current id is left alone. Nothing happens when the current id
// is not positive.
func (c *DetailsController) DecrementAndPersist(ctx context.Context) error {
	current := c.state.Value().Details.Post()
	if current.ID <= 0 {
		return nil
	}
	start := time.Now()
	current.ID--
	err := c.repo.UpdateItem(context.WithoutCancel(ctx), current)
	return c.Record("decrement", current.ID, start, err)
}

// DeleteCurrent deletes the post exactly as currently shown.
// A stale snapshot matches no row and deletes nothing; the event for that
// case has NoMatch set.
func (c *DetailsController) DeleteCurrent(ctx context.Context) error {
	start := time.Now()
	current := c.state.Value().Details.Post()
	removed, err := c.repo.DeleteItem(context.WithoutCancel(ctx), current)
	if err == nil && !removed {
		c.RecordNoMatch("delete", current.ID, start)
		return nil
	}
	return c.Record("delete", current.ID, start, err)
}
