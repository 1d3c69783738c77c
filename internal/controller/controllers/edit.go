package controllers

import (
	"context"
	"fmt"
	"time"

	"github.com/abelbrown/postbook/internal/controller"
	"github.com/abelbrown/postbook/internal/repository"
)

// EditController backs the "edit post" screen. Load fills the form from the
// store; Update writes it back under the same id.
type EditController struct {
	*controller.Emitter
	form
	repo repository.ItemsRepository
	id   int64
}

// NewEditController creates an edit controller for post id.
func NewEditController(repo repository.ItemsRepository, id int64, cfg Config) *EditController {
	return &EditController{
		Emitter: controller.NewEmitter("edit", cfg.Events),
		form:    newForm(),
		repo:    repo,
		id:      id,
	}
}

func (c *EditController) ID() string { return fmt.Sprintf("edit/%d", c.id) }

// PostID returns the id being edited.
func (c *EditController) PostID() int64 { return c.id }

func (c *EditController) Close() {}

// Load waits for the post to exist and copies it into the form.
// It returns ctx.Err() if ctx ends first.
func (c *EditController) Load(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	for l := range c.repo.GetItemStream(ctx, c.id) {
		if l.Found {
			c.UpdateField(controller.DetailsFromPost(l.Post))
			return nil
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return fmt.Errorf("load post %d: stream ended", c.id)
}

// Update persists the form under the loaded id. Like Save on the entry
// screen, an invalid form is silently ignored.
func (c *EditController) Update(ctx context.Context) error {
	st := c.State()
	if !st.IsValid {
		return nil
	}
	start := time.Now()
	p := st.Details.Post()
	p.ID = c.id
	err := c.repo.UpdateItem(context.WithoutCancel(ctx), p)
	return c.Record("update", c.id, start, err)
}
