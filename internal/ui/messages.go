// Package ui provides the Bubble Tea TUI for postbook.
//
// The UI only talks to screen controllers. State snapshots arrive as
// messages produced by commands that read the next value from a controller
// subscription; user intents are forwarded as controller actions run inside
// commands.
package ui

import (
	"github.com/abelbrown/postbook/internal/controller"
	"github.com/abelbrown/postbook/internal/controller/controllers"
)

// listMsg carries a new home screen snapshot.
type listMsg controllers.ListState

// detailsMsg carries a details snapshot. ch identifies the subscription so
// snapshots from a screen that was already left are ignored.
type detailsMsg struct {
	ch    <-chan controllers.DetailsState
	state controllers.DetailsState
}

// editLoadedMsg is sent when the edit form has been filled from the store.
type editLoadedMsg struct {
	id  int64
	err error
}

// actionMsg reports the outcome of a controller action.
type actionMsg controller.Event

// clearNoticeMsg hides the notification with the same sequence number.
type clearNoticeMsg struct {
	seq int
}
