package tui

import (
	"github.com/charmbracelet/bubbles/key"
	"github.com/yks-player/yks/color"
	"github.com/yks-player/yks/style"
)

type statefulKeymap struct {
	state state

	quit, forceQuit,
	playPause, next, prev,
	up, down, selectItem, remove,
	repeat, mute,
	volumeUp, volumeDown,
	faster, slower,
	forward, backward,
	addURL, filter,
	acceptSuggestion,
	confirm, back,
	showHelp key.Binding
}

func (k *statefulKeymap) setState(newState state) {
	k.state = newState
}

func newStatefulKeymap() *statefulKeymap {
	return &statefulKeymap{
		quit: key.NewBinding(
			key.WithKeys("q"),
			key.WithHelp("q", "quit"),
		),
		forceQuit: key.NewBinding(
			key.WithKeys("ctrl+c", "ctrl+d"),
			key.WithHelp("ctrl+c", "quit"),
		),
		playPause: key.NewBinding(
			key.WithKeys(" "),
			key.WithHelp(style.Fg(color.Orange)("space"), style.Fg(color.Orange)("play/pause")),
		),
		next: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "next"),
		),
		prev: key.NewBinding(
			key.WithKeys("p"),
			key.WithHelp("p", "previous"),
		),
		up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑", "up"),
		),
		down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓", "down"),
		),
		selectItem: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "play selected"),
		),
		remove: key.NewBinding(
			key.WithKeys("d", "delete"),
			key.WithHelp("d", "remove"),
		),
		repeat: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "repeat"),
		),
		mute: key.NewBinding(
			key.WithKeys("m"),
			key.WithHelp("m", "mute"),
		),
		volumeUp: key.NewBinding(
			key.WithKeys("+", "="),
			key.WithHelp("+", "volume up"),
		),
		volumeDown: key.NewBinding(
			key.WithKeys("-"),
			key.WithHelp("-", "volume down"),
		),
		faster: key.NewBinding(
			key.WithKeys("]"),
			key.WithHelp("]", "faster"),
		),
		slower: key.NewBinding(
			key.WithKeys("["),
			key.WithHelp("[", "slower"),
		),
		forward: key.NewBinding(
			key.WithKeys("right", "l"),
			key.WithHelp("→", "seek +10s"),
		),
		backward: key.NewBinding(
			key.WithKeys("left", "h"),
			key.WithHelp("←", "seek -10s"),
		),
		addURL: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "add url"),
		),
		filter: key.NewBinding(
			key.WithKeys("/"),
			key.WithHelp("/", "filter"),
		),
		acceptSuggestion: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "accept suggestion"),
		),
		confirm: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "confirm"),
		),
		back: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "back"),
		),
		showHelp: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
	}
}

func (k *statefulKeymap) help() ([]key.Binding, []key.Binding) {
	h := func(bindings ...key.Binding) []key.Binding {
		return bindings
	}

	switch k.state {
	case inputState:
		bindings := h(k.confirm, k.acceptSuggestion, k.back, k.forceQuit)
		return bindings, bindings
	default:
		return h(k.playPause, k.next, k.prev, k.addURL, k.showHelp, k.quit),
			h(
				k.playPause, k.next, k.prev, k.up, k.down, k.selectItem, k.remove,
				k.forward, k.backward, k.repeat, k.mute, k.volumeUp, k.volumeDown,
				k.faster, k.slower, k.addURL, k.filter, k.back, k.quit,
			)
	}
}

// ShortHelp returns the bindings shown in the collapsed help line.
func (k *statefulKeymap) ShortHelp() []key.Binding {
	short, _ := k.help()
	return short
}

// FullHelp returns every binding of the current state, in columns.
func (k *statefulKeymap) FullHelp() [][]key.Binding {
	_, full := k.help()

	var columns [][]key.Binding
	for len(full) > 0 {
		n := min(len(full), 5)
		columns = append(columns, full[:n])
		full = full[n:]
	}
	return columns
}
