package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/samber/mo"
	"github.com/yks-player/yks/event"
	"github.com/yks-player/yks/media"
	"github.com/yks-player/yks/playback"
	"github.com/yks-player/yks/session"
	"github.com/yks-player/yks/style"
	"github.com/yks-player/yks/util"
)

type state int

const (
	playerState state = iota + 1
	inputState
)

type purpose int

const (
	addURLPurpose purpose = iota + 1
	filterPurpose
)

// pollInterval is how often the position is refreshed between events.
const pollInterval = 500 * time.Millisecond

type (
	busMsg     event.Event
	tickMsg    time.Time
	matchesMsg []media.Match
	clearMsg   struct{ at time.Time }
	resultMsg  struct {
		notice string
		err    error
	}
)

// noticeTTL is how long a notice stays in the footer.
const noticeTTL = 3 * time.Second

type download struct {
	status  string
	percent float64
	message string
}

type statefulBubble struct {
	ctx     context.Context
	runtime *session.Runtime

	state  state
	keymap *statefulKeymap

	// components
	progressC progress.Model
	spinnerC  spinner.Model
	inputC    textinput.Model
	helpC     help.Model

	purpose    purpose
	suggestion mo.Option[string]
	snapshot   media.Snapshot
	status     playback.Status
	cursor     int

	// matches replaces the queue listing while a filter is active.
	matches mo.Option[[]media.Match]

	downloads map[string]download
	order     []string

	notice    string
	noticeAt  time.Time
	lastError error

	width, height int
}

func newBubble(ctx context.Context, runtime *session.Runtime) *statefulBubble {
	keymap := newStatefulKeymap()
	bubble := &statefulBubble{
		ctx:       ctx,
		runtime:   runtime,
		keymap:    keymap,
		progressC: progress.New(progress.WithDefaultGradient()),
		spinnerC:  spinner.New(),
		inputC:    textinput.New(),
		helpC:     help.New(),
		downloads: make(map[string]download),
	}

	bubble.spinnerC.Spinner = spinner.Dot
	bubble.spinnerC.Style = lipgloss.NewStyle().Foreground(style.AccentColor)
	bubble.inputC.Prompt = "> "
	bubble.inputC.CharLimit = 2048

	if w, h, err := util.TerminalSize(); err == nil {
		bubble.resize(w, h)
	}

	bubble.setState(playerState)
	bubble.sync()
	bubble.cursor = max(bubble.snapshot.CurrentIndex, 0)
	return bubble
}

func (b *statefulBubble) setState(s state) {
	b.state = s
	b.keymap.setState(s)
}

func (b *statefulBubble) resize(width, height int) {
	x, y := paddingStyle.GetFrameSize()
	b.width = width - x
	b.height = height - y
	b.progressC.Width = max(b.width-16, 10)
	b.helpC.Width = b.width
	b.inputC.Width = max(b.width-4, 10)
}

// sync copies the runtime's current view into the model.
func (b *statefulBubble) sync() {
	b.snapshot = b.runtime.Snapshot()
	b.status = b.runtime.Status()

	if rows := b.rows(); b.cursor >= len(rows) {
		b.cursor = max(len(rows)-1, 0)
	}
}

// rows is what the listing shows: the filter matches, or the whole queue.
func (b *statefulBubble) rows() []media.Match {
	if matches, ok := b.matches.Get(); ok {
		return matches
	}

	rows := make([]media.Match, len(b.snapshot.Items))
	for i, item := range b.snapshot.Items {
		rows[i] = media.Match{Index: i, Item: item}
	}
	return rows
}

func (b *statefulBubble) raiseError(err error) {
	b.lastError = err
	b.notice = ""
}

// notify shows msg in the footer until it expires or another notice replaces it.
func (b *statefulBubble) notify(msg string) tea.Cmd {
	at := time.Now()
	b.notice, b.noticeAt = msg, at
	return tea.Tick(noticeTTL, func(time.Time) tea.Msg {
		return clearMsg{at: at}
	})
}

func (b *statefulBubble) trackDownload(e event.Event) {
	if _, ok := b.downloads[e.Task]; !ok {
		b.order = append(b.order, e.Task)
	}

	b.downloads[e.Task] = download{status: e.Status, percent: e.Percent, message: e.Message}
}

// Init starts the position poll and the spinner.
func (b *statefulBubble) Init() tea.Cmd {
	return tea.Batch(tick(), b.spinnerC.Tick)
}

func tick() tea.Cmd {
	return tea.Tick(pollInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}
