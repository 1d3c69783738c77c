package controllers

import (
	"context"
	"time"

	"github.com/abelbrown/postbook/internal/controller"
	"github.com/abelbrown/postbook/internal/repository"
)

// EntryState is the form state shared by the entry and edit screens.
type EntryState struct {
	Details controller.PostDetails
	IsValid bool
}

// form holds an EntryState and keeps IsValid in sync with Details.
type form struct {
	state *controller.State[EntryState]
}

func newForm() form {
	return form{state: controller.NewState(EntryState{})}
}

// UpdateField replaces the form contents and recomputes validity.
func (f form) UpdateField(d controller.PostDetails) {
	f.state.Set(EntryState{Details: d, IsValid: d.Valid()})
}

// State returns the current form snapshot.
func (f form) State() EntryState {
	return f.state.Value()
}

// Observe subscribes to form changes.
func (f form) Observe() (<-chan EntryState, func()) {
	return f.state.Subscribe()
}

// EntryController backs the "new post" screen.
type EntryController struct {
	*controller.Emitter
	form
	repo repository.ItemsRepository
}

// NewEntryController creates an entry controller with an empty form.
func NewEntryController(repo repository.ItemsRepository, cfg Config) *EntryController {
	return &EntryController{
		Emitter: controller.NewEmitter("entry", cfg.Events),
		form:    newForm(),
		repo:    repo,
	}
}

func (c *EntryController) ID() string { return "entry" }

// Close is a no-op; the entry form has no upstream.
func (c *EntryController) Close() {}

// Save inserts the form as a new post when it is valid. An invalid form is
// silently ignored. Any id typed into the form is discarded so the store
// always assigns a fresh one.
func (c *EntryController) Save(ctx context.Context) error {
	st := c.State()
	if !st.IsValid {
		return nil
	}
	start := time.Now()
	p := st.Details.Post()
	p.ID = 0
	saved, err := c.repo.InsertItem(context.WithoutCancel(ctx), p)
	return c.Record("save", saved.ID, start, err)
}
