// Package tui provides the now-playing terminal interface.
package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/yks-player/yks/event"
	"github.com/yks-player/yks/session"
)

// subscriber is the bus owner name of the interface.
const subscriber = "tui"

// Options encapsulates the runtime configuration for the terminal user interface.
type Options struct {
	Runtime *session.Runtime
}

// Run shows the session until the user quits. It does not close the runtime.
func Run(ctx context.Context, options *Options) error {
	bubble := newBubble(ctx, options.Runtime)
	program := tea.NewProgram(bubble, tea.WithAltScreen(), tea.WithContext(ctx))

	bus := options.Runtime.Bus()
	for _, kind := range event.Kinds() {
		bus.Subscribe(subscriber, kind, func(e event.Event) {
			program.Send(busMsg(e))
		})
	}
	defer bus.Detach(subscriber)

	_, err := program.Run()
	if err == tea.ErrProgramKilled && ctx.Err() != nil {
		return nil
	}
	return err
}
