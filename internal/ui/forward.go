package ui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/abelbrown/fmconsole/internal/controller"
)

// Sender delivers messages into a running program. *tea.Program implements it.
type Sender interface {
	Send(msg tea.Msg)
}

// Forward relays controller events to the program as ViewUpdated messages
// until events closes or ctx is cancelled. Run it on its own goroutine.
func Forward(ctx context.Context, program Sender, events <-chan controller.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-events:
			if !ok {
				program.Send(ControllerClosed{})
				return
			}
			program.Send(ViewUpdated{Type: e.Type, View: e.View, Err: e.Err})
		}
	}
}
