// Package otel provides structured observability for postbook.
//
// Events are typed structs serialized as JSONL lines. The Logger writes
// events asynchronously via a buffered channel and a background drain
// goroutine. An optional RingBuffer keeps the most recent events in memory
// for the debug overlay.
package otel

import (
	"encoding/json"
	"time"
)

// Level defines event severity for filtering.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// EventKind identifies the category of an event.
// Dot-delimited: "<subsystem>.<action>".
type EventKind string

const (
	// Store events
	KindStoreInsert EventKind = "store.insert"
	KindStoreUpdate EventKind = "store.update"
	KindStoreDelete EventKind = "store.delete"
	KindStoreError  EventKind = "store.error"

	// Live query events
	KindLiveEmit EventKind = "live.emit"

	// Controller events
	KindCtrlAction EventKind = "ctrl.action"
	KindCtrlError  EventKind = "ctrl.error"

	// UI events
	KindKeyPress EventKind = "ui.key"

	// System events
	KindStartup  EventKind = "sys.startup"
	KindShutdown EventKind = "sys.shutdown"
)

// Event is the universal observability record. Every field except Kind and
// Time is optional. Serialized as a single JSONL line.
type Event struct {
	Time      time.Time     `json:"t"`
	Level     Level         `json:"level,omitempty"`
	Kind      EventKind     `json:"kind"`
	Comp      string        `json:"comp,omitempty"` // component: "store", "live", "ctrl", "ui", "main"
	SessionID string        `json:"session_id,omitempty"`
	PostID    int64         `json:"post_id,omitempty"`
	Action    string        `json:"action,omitempty"` // controller action name
	Dur       time.Duration `json:"-"`
	DurMs     float64       `json:"dur_ms,omitempty"` // computed from Dur at marshal time
	Count     int           `json:"count,omitempty"`
	Err       string        `json:"err,omitempty"`
	Msg       string        `json:"msg,omitempty"`
}

// MarshalJSON implements json.Marshaler, converting Dur to DurMs.
func (e Event) MarshalJSON() ([]byte, error) {
	type Alias Event
	a := struct {
		Alias
	}{Alias: Alias(e)}
	if e.Dur > 0 {
		a.DurMs = float64(e.Dur) / float64(time.Millisecond)
	}
	return json.Marshal(a)
}
