package controller

import (
	"time"

	"github.com/abelbrown/postbook/internal/logging"
	"github.com/abelbrown/postbook/internal/otel"
)

// eventBuffer is the capacity of a controller's event channel.
const eventBuffer = 10

// Emitter reports action outcomes. Embed it in a controller to provide Events().
type Emitter struct {
	comp   string
	events chan Event
	log    *otel.Logger
}

// NewEmitter creates an emitter for the named component. log may be nil.
func NewEmitter(comp string, log *otel.Logger) *Emitter {
	return &Emitter{
		comp:   comp,
		events: make(chan Event, eventBuffer),
		log:    log,
	}
}

// Events returns the event channel. It is never closed.
func (e *Emitter) Events() <-chan Event {
	return e.events
}

// Record publishes the outcome of an action that started at start and
// returns err unchanged, so callers can `return e.Record(...)`.
func (e *Emitter) Record(action string, id int64, start time.Time, err error) error {
	ev := Event{Type: EventCompleted, Action: action, PostID: id}
	if err != nil {
		ev.Type = EventError
		ev.Err = err
		logging.Warn("Controller action failed", "comp", e.comp, "action", action, "id", id, "error", err)
	} else {
		logging.Debug("Controller action completed", "comp", e.comp, "action", action, "id", id)
	}
	if e.log != nil {
		e.log.Action(e.comp, action, id, time.Since(start), err)
	}
	e.send(ev)
	return err
}

// RecordNoMatch publishes an action that succeeded without changing anything.
func (e *Emitter) RecordNoMatch(action string, id int64, start time.Time) {
	logging.Info("Controller action matched nothing", "comp", e.comp, "action", action, "id", id)
	if e.log != nil {
		e.log.Emit(otel.Event{
			Level:  otel.LevelWarn,
			Kind:   otel.KindCtrlAction,
			Comp:   e.comp,
			Action: action,
			PostID: id,
			Dur:    time.Since(start),
			Msg:    "no match",
		})
	}
	e.send(Event{Type: EventCompleted, Action: action, PostID: id, NoMatch: true})
}

func (e *Emitter) send(ev Event) {
	select {
	case e.events <- ev:
	default:
		// Channel full, drop event (subscriber not keeping up)
	}
}
