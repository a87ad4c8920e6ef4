// Package controller implements the list controller behind every list screen.
//
// A ListController owns one resource's record set and query state. It sits
// between the fetcher (data) and the UI (view), deciding what records are
// visible:
//
//	┌─────────┐     ┌────────────────┐     ┌──────┐
//	│ Fetcher │ ──> │ ListController │ ──> │  UI  │
//	│ (HTTP)  │     │filter/sort/page│     │      │
//	└─────────┘     └────────────────┘     └──────┘
//
// # Pagination modes
//
// Client mode fetches the whole list once per Refresh and recomputes the
// visible page locally on every query change. Server mode sends the query
// (page, per_page, search, filters, sort) to the backend and re-fetches on
// every change.
//
// # Concurrency
//
// Controllers are safe for concurrent use. Every fetch runs on its own
// goroutine with its own context; starting a new fetch cancels the previous
// one, and a response whose generation is not the latest is discarded.
// Query state and the record set change together under one mutex, so a View
// never pairs a new page number with an old record set.
//
// Event channels have buffers to prevent blocking. If a subscriber doesn't
// consume events fast enough, events are dropped; View always returns the
// current state.
package controller

// Controller is the part of a list controller the UI drives generically.
type Controller interface {
	// ID uniquely identifies this controller (the resource name).
	ID() string

	// Refresh re-fetches the resource. Results come back via Subscribe().
	Refresh()

	// Subscribe returns a channel of controller events.
	Subscribe() <-chan Event
}

// EventType categorizes controller events.
type EventType string

const (
	EventStarted   EventType = "started"   // a fetch began
	EventCompleted EventType = "completed" // a fetch succeeded
	EventError     EventType = "error"     // a fetch failed
	EventChanged   EventType = "changed"   // the view was recomputed without fetching
)

// Event is sent to subscribers when controller state changes.
type Event struct {
	Type EventType
	View View  // state after the change
	Err  error // Populated on EventError
}
