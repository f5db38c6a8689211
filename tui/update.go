package tui

import (
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/samber/mo"
	"github.com/yks-player/yks/event"
	"github.com/yks-player/yks/media"
	"github.com/yks-player/yks/query"
	"github.com/yks-player/yks/util"
)

const seekStep = 10 * time.Second

// Update routes messages to the handler of the current state.
func (b *statefulBubble) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		b.resize(msg.Width, msg.Height)
		return b, nil
	case tickMsg:
		b.sync()
		return b, tick()
	case spinner.TickMsg:
		var cmd tea.Cmd
		b.spinnerC, cmd = b.spinnerC.Update(msg)
		return b, cmd
	case busMsg:
		return b, b.handleEvent(event.Event(msg))
	case clearMsg:
		if msg.at.Equal(b.noticeAt) {
			b.notice = ""
		}
		return b, nil
	case resultMsg:
		b.sync()
		if msg.err != nil {
			b.raiseError(msg.err)
			return b, nil
		}
		b.lastError = nil
		if msg.notice != "" {
			return b, b.notify(msg.notice)
		}
		return b, nil
	case matchesMsg:
		b.matches = mo.Some([]media.Match(msg))
		b.cursor = 0
		return b, nil
	case tea.KeyMsg:
		if key.Matches(msg, b.keymap.forceQuit) {
			return b, tea.Quit
		}
	}

	switch b.state {
	case inputState:
		return b.updateInput(msg)
	default:
		return b.updatePlayer(msg)
	}
}

func (b *statefulBubble) handleEvent(e event.Event) tea.Cmd {
	b.sync()

	switch e.Kind {
	case event.ItemLoaded:
		if b.matches.IsAbsent() {
			b.cursor = e.Index
		}
		return b.notify("now playing " + e.Item.Name)
	case event.QueueChanged:
		if b.matches.IsPresent() {
			b.matches = mo.None[[]media.Match]()
			b.cursor = util.Clamp(e.Index, 0, max(e.Length-1, 0))
		}
	case event.Acquisition:
		b.trackDownload(e)
	}
	return nil
}

func (b *statefulBubble) updatePlayer(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return b, nil
	}

	rows := b.rows()

	switch {
	case key.Matches(keyMsg, b.keymap.quit):
		return b, tea.Quit
	case key.Matches(keyMsg, b.keymap.showHelp):
		b.helpC.ShowAll = !b.helpC.ShowAll
	case key.Matches(keyMsg, b.keymap.back):
		b.matches = mo.None[[]media.Match]()
		b.lastError = nil
		b.cursor = max(b.snapshot.CurrentIndex, 0)
	case key.Matches(keyMsg, b.keymap.up):
		b.cursor = max(b.cursor-1, 0)
	case key.Matches(keyMsg, b.keymap.down):
		b.cursor = min(b.cursor+1, max(len(rows)-1, 0))
	case key.Matches(keyMsg, b.keymap.selectItem):
		if b.cursor < len(rows) {
			return b, b.selectIndex(rows[b.cursor].Index)
		}
	case key.Matches(keyMsg, b.keymap.remove):
		if b.cursor < len(rows) {
			return b, b.remove(rows[b.cursor].Index)
		}
	case key.Matches(keyMsg, b.keymap.playPause):
		return b, b.playPause()
	case key.Matches(keyMsg, b.keymap.next):
		return b, b.next()
	case key.Matches(keyMsg, b.keymap.prev):
		return b, b.prev()
	case key.Matches(keyMsg, b.keymap.repeat):
		return b, b.toggleRepeat()
	case key.Matches(keyMsg, b.keymap.mute):
		return b, b.toggleMute()
	case key.Matches(keyMsg, b.keymap.volumeUp):
		return b, b.changeVolume(5)
	case key.Matches(keyMsg, b.keymap.volumeDown):
		return b, b.changeVolume(-5)
	case key.Matches(keyMsg, b.keymap.faster):
		return b, b.changeRate(1)
	case key.Matches(keyMsg, b.keymap.slower):
		return b, b.changeRate(-1)
	case key.Matches(keyMsg, b.keymap.forward):
		return b, b.seekBy(seekStep)
	case key.Matches(keyMsg, b.keymap.backward):
		return b, b.seekBy(-seekStep)
	case key.Matches(keyMsg, b.keymap.addURL):
		return b, b.prompt(addURLPurpose, "https://www.youtube.com/watch?v=...")
	case key.Matches(keyMsg, b.keymap.filter):
		return b, b.prompt(filterPurpose, "filter the queue")
	}

	return b, nil
}

func (b *statefulBubble) prompt(p purpose, placeholder string) tea.Cmd {
	b.purpose = p
	b.suggestion = mo.None[string]()
	b.inputC.SetValue("")
	b.inputC.Placeholder = placeholder
	b.setState(inputState)
	return b.inputC.Focus()
}

func (b *statefulBubble) updateInput(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(keyMsg, b.keymap.back):
			b.inputC.Blur()
			b.setState(playerState)
			return b, nil
		case key.Matches(keyMsg, b.keymap.acceptSuggestion) && b.suggestion.IsPresent():
			b.inputC.SetValue(b.suggestion.MustGet())
			b.inputC.CursorEnd()
			b.suggestion = mo.None[string]()
			return b, nil
		case key.Matches(keyMsg, b.keymap.confirm):
			value := strings.TrimSpace(b.inputC.Value())
			b.inputC.Blur()
			b.setState(playerState)

			switch b.purpose {
			case addURLPurpose:
				if value == "" {
					return b, nil
				}
				return b, b.addURL(value)
			case filterPurpose:
				if value == "" {
					b.matches = mo.None[[]media.Match]()
					return b, nil
				}
				return b, b.filter(value)
			}
			return b, nil
		}
	}

	var cmd tea.Cmd
	b.inputC, cmd = b.inputC.Update(msg)

	b.suggestion = mo.None[string]()
	if value := b.inputC.Value(); b.purpose == addURLPurpose && value != "" {
		if suggestion, ok := query.Suggest(value).Get(); ok && suggestion != value {
			b.suggestion = mo.Some(suggestion)
		}
	}

	return b, cmd
}
