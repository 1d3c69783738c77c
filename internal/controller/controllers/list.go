package controllers

import (
	"context"

	"github.com/abelbrown/postbook/internal/controller"
	"github.com/abelbrown/postbook/internal/logging"
	"github.com/abelbrown/postbook/internal/model"
	"github.com/abelbrown/postbook/internal/repository"
)

// ListState is what the home screen renders.
type ListState struct {
	Items []model.Post
}

// ListController mirrors the full post table.
//
// The state is empty until the first emission of the all-posts stream.
type ListController struct {
	*controller.Emitter
	state *controller.Shared[ListState]
}

// NewListController creates the home screen controller.
func NewListController(repo repository.ItemsRepository, cfg Config) *ListController {
	upstream := func(ctx context.Context, emit func(ListState)) {
		logging.Debug("List stream started")
		for posts := range repo.GetAllItemsStream(ctx) {
			emit(ListState{Items: posts})
		}
		logging.Debug("List stream stopped")
	}
	return &ListController{
		Emitter: controller.NewEmitter("list", cfg.Events),
		state:   controller.NewShared(ListState{}, cfg.keepAlive(), upstream),
	}
}

// ID returns "list".
func (c *ListController) ID() string {
	return "list"
}

// Observe subscribes to the list state. The first value is the current one.
// Call the returned func when the screen goes away.
func (c *ListController) Observe() (<-chan ListState, func()) {
	return c.state.Observe()
}

// State returns the current snapshot.
func (c *ListController) State() ListState {
	return c.state.Value()
}

// Close stops the upstream stream.
func (c *ListController) Close() {
	c.state.Close()
}
