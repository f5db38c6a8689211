package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/truncate"
	"github.com/muesli/reflow/wrap"
	"github.com/samber/lo"
	"github.com/yks-player/yks/acquire"
	"github.com/yks-player/yks/color"
	"github.com/yks-player/yks/icon"
	"github.com/yks-player/yks/playback"
	"github.com/yks-player/yks/style"
	"github.com/yks-player/yks/util"
)

var (
	paddingStyle  = lipgloss.NewStyle().Padding(1, 2)
	currentStyle  = lipgloss.NewStyle().Foreground(style.AccentColor).Bold(true)
	cursorStyle   = lipgloss.NewStyle().Foreground(style.SecondaryColor)
	settingsStyle = lipgloss.NewStyle().Foreground(style.FaintColor)
)

// maxDownloads is how many acquisitions are listed at once, newest last.
const maxDownloads = 3

func (b *statefulBubble) View() string {
	lines := []string{
		style.Title("Now Playing"),
		"",
		b.viewItem(),
		b.viewProgress(),
		settingsStyle.Render(b.viewSettings()),
	}

	if downloads := b.viewDownloads(); len(downloads) > 0 {
		lines = append(lines, "")
		lines = append(lines, downloads...)
	}

	lines = append(lines, "", b.viewQueueTitle())
	lines = append(lines, b.viewQueue()...)

	if b.state == inputState {
		lines = append(lines, "", b.inputC.View())
		if suggestion, ok := b.suggestion.Get(); ok {
			lines = append(lines, style.Faint("tab "+truncate.StringWithTail(suggestion, uint(max(b.width-4, 10)), "…")))
		}
	}

	lines = append(lines, "", b.viewFooter())

	return b.renderLines(lines)
}

func (b *statefulBubble) viewItem() string {
	item, ok := b.status.Item.Get()
	if !ok {
		return style.Faint("nothing playing")
	}

	var glyph string
	switch b.status.State {
	case playback.Playing:
		glyph = icon.Get(icon.Play)
	case playback.Paused:
		glyph = icon.Get(icon.Pause)
	case playback.External:
		glyph = icon.Get(icon.Web)
	default:
		glyph = icon.Get(icon.Stop)
	}

	name := truncate.StringWithTail(item.Name, uint(max(b.width-8, 10)), "…")
	return fmt.Sprintf("%s %s %s", glyph, style.Fg(color.Purple)(name), style.Faint(b.status.State.String()))
}

func (b *statefulBubble) viewProgress() string {
	if b.status.State == playback.External {
		return style.Faint("playing in the browser")
	}

	var ratio float64
	if b.status.Duration > 0 {
		ratio = float64(b.status.Position) / float64(b.status.Duration)
	}

	return fmt.Sprintf(
		"%s %s / %s",
		b.progressC.ViewAs(util.Clamp(ratio, 0, 1)),
		util.FormatClock(b.status.Position),
		util.FormatClock(b.status.Duration),
	)
}

func (b *statefulBubble) viewSettings() string {
	settings := b.status.Settings

	parts := []string{
		fmt.Sprintf("volume %d%%", settings.Volume),
		fmt.Sprintf("speed %gx", settings.Rate),
	}
	if settings.Muted {
		parts = append(parts, icon.Get(icon.Muted)+" muted")
	}
	if b.status.Repeat {
		parts = append(parts, icon.Get(icon.Repeat)+" repeat")
	}

	return strings.Join(parts, "  ")
}

func (b *statefulBubble) viewDownloads() []string {
	order := b.order
	if len(order) > maxDownloads {
		order = order[len(order)-maxDownloads:]
	}

	return lo.Map(order, func(id string, _ int) string {
		d := b.downloads[id]

		var prefix string
		switch d.status {
		case acquire.Done.String():
			prefix = style.Fg(color.Green)(icon.Get(icon.Success))
		case acquire.Failed.String(), acquire.Cancelled.String():
			prefix = style.Fg(color.Red)(icon.Get(icon.Fail))
		default:
			prefix = b.spinnerC.View()
		}

		line := fmt.Sprintf("%s %s %s %3.0f%% %s", prefix, icon.Get(icon.Download), d.status, d.percent, d.message)
		return truncate.StringWithTail(line, uint(max(b.width, 10)), "…")
	})
}

func (b *statefulBubble) viewQueueTitle() string {
	count := util.Quantify(len(b.snapshot.Items), "item", "items")
	if matches, ok := b.matches.Get(); ok {
		return style.Bold(fmt.Sprintf("Queue  %d of %s match", len(matches), count))
	}
	return style.Bold("Queue  " + count)
}

// viewQueue lists the rows that fit, keeping the cursor in view.
func (b *statefulBubble) viewQueue() []string {
	rows := b.rows()
	if len(rows) == 0 {
		return []string{style.Faint("empty, press a to add a url")}
	}

	visible := max(b.height-16, 3)
	start := util.Clamp(b.cursor-visible/2, 0, max(len(rows)-visible, 0))
	end := min(start+visible, len(rows))

	lines := make([]string, 0, end-start)
	for i := start; i < end; i++ {
		row := rows[i]

		name := truncate.StringWithTail(row.Item.Name, uint(max(b.width-10, 10)), "…")
		line := fmt.Sprintf("%3d. %s", row.Index+1, name)

		switch {
		case row.Index == b.snapshot.CurrentIndex:
			line = currentStyle.Render(line)
		case i == b.cursor:
			line = cursorStyle.Render(line)
		}

		lines = append(lines, lo.Ternary(i == b.cursor, "> ", "  ")+line)
	}

	return lines
}

func (b *statefulBubble) viewFooter() string {
	if b.lastError != nil {
		return style.Fg(color.Red)(wrap.String(icon.Get(icon.Fail)+" "+b.lastError.Error(), b.width))
	}
	if b.notice != "" {
		return style.Faint(wrap.String(b.notice, b.width))
	}
	return ""
}

func (b *statefulBubble) renderLines(lines []string) string {
	lines = append(lines, "", b.helpC.View(b.keymap))
	return paddingStyle.Render(strings.Join(lines, "\n"))
}
