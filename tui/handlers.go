package tui

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/samber/lo"
	"github.com/yks-player/yks/constant"
	"github.com/yks-player/yks/log"
	"github.com/yks-player/yks/query"
	"github.com/yks-player/yks/util"
)

// Runtime operations wait for the session actor, which in turn publishes events that
// are sent back into the program. They therefore always run as commands.

func (b *statefulBubble) run(fn func() error) tea.Cmd {
	return func() tea.Msg {
		return resultMsg{err: fn()}
	}
}

func (b *statefulBubble) playPause() tea.Cmd {
	return b.run(b.runtime.PlayPause)
}

func (b *statefulBubble) next() tea.Cmd {
	return b.run(b.runtime.Next)
}

func (b *statefulBubble) prev() tea.Cmd {
	return b.run(b.runtime.Prev)
}

func (b *statefulBubble) selectIndex(index int) tea.Cmd {
	return b.run(func() error { return b.runtime.Select(index) })
}

func (b *statefulBubble) remove(index int) tea.Cmd {
	return b.run(func() error { return b.runtime.Remove(index) })
}

func (b *statefulBubble) toggleRepeat() tea.Cmd {
	return func() tea.Msg {
		repeat, err := b.runtime.ToggleRepeat()
		return resultMsg{notice: "repeat " + lo.Ternary(repeat, "on", "off"), err: err}
	}
}

func (b *statefulBubble) toggleMute() tea.Cmd {
	return func() tea.Msg {
		muted, err := b.runtime.ToggleMute()
		return resultMsg{notice: lo.Ternary(muted, "muted", "unmuted"), err: err}
	}
}

func (b *statefulBubble) changeVolume(delta int) tea.Cmd {
	volume := util.Clamp(b.status.Settings.Volume+delta, 0, 100)
	return func() tea.Msg {
		return resultMsg{notice: fmt.Sprintf("volume %d%%", volume), err: b.runtime.SetVolume(volume)}
	}
}

func (b *statefulBubble) changeRate(delta int) tea.Cmd {
	rate := stepRate(b.status.Settings.Rate, delta)
	return func() tea.Msg {
		return resultMsg{notice: fmt.Sprintf("speed %gx", rate), err: b.runtime.SetRate(rate)}
	}
}

func (b *statefulBubble) seekBy(delta time.Duration) tea.Cmd {
	position := max(b.status.Position+delta, 0)
	return b.run(func() error { return b.runtime.Seek(position) })
}

func (b *statefulBubble) addURL(url string) tea.Cmd {
	return func() tea.Msg {
		task, err := b.runtime.AddRemote(b.ctx, url)
		if err != nil {
			return resultMsg{err: err}
		}
		if err := query.Remember(url, 1); err != nil {
			log.Warn(err)
		}
		return resultMsg{notice: "downloading " + task.SourceURL}
	}
}

func (b *statefulBubble) filter(pattern string) tea.Cmd {
	return func() tea.Msg {
		matches, err := b.runtime.Filter(pattern)
		if err != nil {
			return resultMsg{err: err}
		}
		return matchesMsg(matches)
	}
}

// stepRate moves delta steps along the offered playback rates from the one
// closest to current.
func stepRate(current float64, delta int) float64 {
	rates := constant.PlaybackRates
	closest := 0
	for i, rate := range rates {
		if abs(rate-current) < abs(rates[closest]-current) {
			closest = i
		}
	}
	return rates[util.Clamp(closest+delta, 0, len(rates)-1)]
}

func abs(f float64) float64 {
	return lo.Ternary(f < 0, -f, f)
}
