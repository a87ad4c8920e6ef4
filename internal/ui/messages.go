// Package ui provides the Bubble Tea TUI for fmconsole list screens.
package ui

import "github.com/abelbrown/fmconsole/internal/controller"

// ViewUpdated is sent when the list controller reports a state change.
type ViewUpdated struct {
	Type controller.EventType
	View controller.View
	Err  error
}

// ControllerClosed is sent when the controller's event channel closes.
type ControllerClosed struct{}
