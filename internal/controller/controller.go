// Package controller implements the view-state layer of postbook.
//
// Controllers sit between the repository (data) and the UI, holding derived,
// presentation-ready state and turning user intents into mutations.
//
// # Architecture
//
//	┌────────────┐     ┌────────────┐     ┌────────────┐     ┌─────┐
//	│   Store    │ ──> │ Repository │ ──> │ Controller │ ──> │ UI  │
//	│ (SQLite)   │     │  (facade)  │     │  (State)   │     │     │
//	└────────────┘     └────────────┘     └────────────┘     └─────┘
//
// Every committed mutation re-emits the affected live queries; controllers
// recompute their state from each emission and publish it through a State
// container. The UI re-renders on every published snapshot.
//
// # State containers
//
// [State] is a plain observable value: snapshot read plus subscribe. [Shared]
// adds "while subscribed" semantics on top: the upstream stream runs only
// while someone observes the state, and lingers for a short keep-alive after
// the last observer leaves so a quick resubscribe does not restart it.
//
// # Events
//
// Actions report their outcome on a buffered event channel so the UI can show
// a transient notification. Sends never block; if the UI is not draining the
// channel, events are dropped.
package controller

// Controller is implemented by every view-state controller.
type Controller interface {
	// ID names the screen this controller backs.
	ID() string

	// Events returns the action outcome channel.
	Events() <-chan Event

	// Close stops any upstream subscription. Further actions still work.
	Close()
}

// EventType categorizes controller events.
type EventType string

const (
	EventCompleted EventType = "completed"
	EventError     EventType = "error"
)

// Event is sent when an action finishes.
type Event struct {
	Type   EventType
	Action string // "save", "update", "delete", "decrement"
	PostID int64
	Err    error // Populated on EventError

	// NoMatch marks a completed action that found nothing to change, such
	// as deleting a post that was edited since it was shown.
	NoMatch bool
}
