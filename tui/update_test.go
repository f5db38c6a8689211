package tui

import (
	"context"
	"testing"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/samber/mo"
	. "github.com/smartystreets/goconvey/convey"
	"github.com/yks-player/yks/media"
)

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestKeys(t *testing.T) {
	Convey("Given the player screen over a queue of three items", t, func() {
		b := &statefulBubble{
			ctx:       context.Background(),
			keymap:    newStatefulKeymap(),
			inputC:    textinput.New(),
			helpC:     help.New(),
			downloads: make(map[string]download),
			snapshot: media.Snapshot{
				Items:        []media.Item{{Name: "one"}, {Name: "two"}, {Name: "three"}},
				CurrentIndex: 0,
			},
		}
		b.setState(playerState)

		Convey("Help expands and collapses", func() {
			b.updatePlayer(runes("?"))
			So(b.helpC.ShowAll, ShouldBeTrue)
			b.updatePlayer(runes("?"))
			So(b.helpC.ShowAll, ShouldBeFalse)
		})

		Convey("The cursor moves within the queue", func() {
			b.updatePlayer(tea.KeyMsg{Type: tea.KeyDown})
			b.updatePlayer(tea.KeyMsg{Type: tea.KeyDown})
			b.updatePlayer(tea.KeyMsg{Type: tea.KeyDown})
			So(b.cursor, ShouldEqual, 2)

			b.updatePlayer(tea.KeyMsg{Type: tea.KeyUp})
			So(b.cursor, ShouldEqual, 1)
		})

		Convey("Quitting ends the program", func() {
			_, cmd := b.updatePlayer(runes("q"))
			So(cmd, ShouldNotBeNil)
			So(cmd(), ShouldResemble, tea.Quit())
		})

		Convey("Adding a url opens the prompt", func() {
			b.updatePlayer(runes("a"))
			So(b.state, ShouldEqual, inputState)
			So(b.purpose, ShouldEqual, addURLPurpose)

			Convey("Tab accepts the suggestion", func() {
				b.suggestion = mo.Some("https://www.youtube.com/watch?v=dQw4w9WgXcQ")
				b.updateInput(tea.KeyMsg{Type: tea.KeyTab})
				So(b.inputC.Value(), ShouldEqual, "https://www.youtube.com/watch?v=dQw4w9WgXcQ")
				So(b.suggestion.IsPresent(), ShouldBeFalse)
			})

			Convey("Escape goes back without adding anything", func() {
				_, cmd := b.updateInput(tea.KeyMsg{Type: tea.KeyEsc})
				So(cmd, ShouldBeNil)
				So(b.state, ShouldEqual, playerState)
			})
		})
	})
}
