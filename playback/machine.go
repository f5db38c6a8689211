package playback

import (
	"errors"
	"fmt"
	"time"

	"github.com/samber/lo"
	"github.com/samber/mo"
	"github.com/sirupsen/logrus"
	"github.com/yks-player/yks/media"
	"github.com/yks-player/yks/util"
)

// State of the Machine.
type State int

const (
	Idle State = iota
	Loading
	Playing
	Paused
	Ended
	// External means the current item is embedded and shown by an external surface.
	// Transport controls are disabled.
	External
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	case Ended:
		return "ended"
	case External:
		return "external"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

var (
	ErrExternal = errors.New("transport controls are disabled for embedded media")
	ErrNoMedia  = errors.New("nothing is loaded")
	ErrRate     = errors.New("playback rate must be positive")
)

// Opener shows an embedded item outside of the player.
type Opener func(url string) error

// Settings survive item changes and are applied on every load.
type Settings struct {
	Volume int
	Muted  bool
	Rate   float64
}

// Status is a read-only view of the Machine.
type Status struct {
	State    State
	Item     mo.Option[media.Item]
	Position time.Duration
	Duration time.Duration
	Settings Settings
	Repeat   bool
}

// Decision tells the owner of the queue what to do after an event.
type Decision struct {
	// Ended is set when the current item played to its end, including a repeat restart.
	Ended bool
	// Advance is set when another index must be loaded. Index is media.NoSelection when
	// the queue is empty and the machine went idle.
	Advance bool
	Index   int
}

// Machine is the playback state machine. It is not safe for concurrent use; a single
// owner drives it.
type Machine struct {
	player   Player
	open     Opener
	logger   logrus.FieldLogger
	state    State
	item     mo.Option[media.Item]
	position time.Duration
	duration time.Duration
	settings Settings
	repeat   bool
}

func NewMachine(player Player, open Opener, settings Settings, logger logrus.FieldLogger) *Machine {
	settings.Volume = util.Clamp(settings.Volume, 0, 100)
	if settings.Rate <= 0 {
		settings.Rate = 1
	}

	return &Machine{
		player:   player,
		open:     open,
		logger:   logger,
		settings: settings,
		item:     mo.None[media.Item](),
	}
}

func (m *Machine) State() State {
	return m.state
}

func (m *Machine) Status() Status {
	return Status{
		State:    m.state,
		Item:     m.item,
		Position: m.position,
		Duration: m.duration,
		Settings: m.settings,
		Repeat:   m.repeat,
	}
}

// Load makes item the active media. Local media starts playing right away; embedded
// media stops the player and is handed to the opener.
func (m *Machine) Load(item media.Item) error {
	m.state = Loading
	m.item = mo.Some(item)
	m.position, m.duration = 0, 0

	if !item.Kind.IsLocal() {
		if err := m.player.Stop(); err != nil {
			m.logger.WithError(err).Warn("stop player")
		}

		m.state = External
		if m.open != nil {
			if err := m.open(item.URL); err != nil {
				m.logger.WithError(err).Errorf("open %s", item.URL)
				return err
			}
		}
		return nil
	}

	if err := m.player.SetSource(item); err != nil {
		m.fail(err)
		return err
	}

	m.applySettings()

	if err := m.player.Play(); err != nil {
		m.fail(err)
		return err
	}

	m.state = Playing
	return nil
}

// Unload stops the player and clears the current media.
func (m *Machine) Unload() error {
	err := m.player.Stop()
	m.reset()
	return err
}

// PlayPause toggles between Playing and Paused. It does nothing in other states.
func (m *Machine) PlayPause() error {
	switch m.state {
	case Playing:
		if err := m.player.Pause(); err != nil {
			return err
		}
		m.state = Paused
	case Paused, Ended:
		if m.state == Ended {
			if err := m.player.Seek(0); err != nil {
				return err
			}
		}
		if err := m.player.Play(); err != nil {
			return err
		}
		m.state = Playing
	}
	return nil
}

func (m *Machine) Seek(position time.Duration) error {
	switch m.state {
	case External:
		return ErrExternal
	case Idle, Loading:
		return ErrNoMedia
	}

	position = lo.Max([]time.Duration{position, 0})
	if m.duration > 0 {
		position = lo.Min([]time.Duration{position, m.duration})
	}

	if err := m.player.Seek(position); err != nil {
		return err
	}
	m.position = position
	return nil
}

func (m *Machine) SetVolume(volume int) error {
	if m.state == External {
		return ErrExternal
	}

	m.settings.Volume = util.Clamp(volume, 0, 100)
	return m.player.SetVolume(m.settings.Volume)
}

func (m *Machine) SetMuted(muted bool) error {
	if m.state == External {
		return ErrExternal
	}

	m.settings.Muted = muted
	return m.player.SetMuted(muted)
}

func (m *Machine) SetRate(rate float64) error {
	if m.state == External {
		return ErrExternal
	}
	if rate <= 0 {
		return ErrRate
	}

	m.settings.Rate = rate
	return m.player.SetRate(rate)
}

func (m *Machine) Repeat() bool {
	return m.repeat
}

func (m *Machine) SetRepeat(repeat bool) {
	m.repeat = repeat
}

// HandleEvent applies a player event. current and length describe the queue and are
// used to decide what follows the end of the current item.
func (m *Machine) HandleEvent(event Event, current, length int) Decision {
	switch event.Kind {
	case PositionChanged:
		m.position = event.Position
	case DurationChanged:
		m.duration = event.Duration
	case PauseChanged:
		switch {
		case event.Paused && m.state == Playing:
			m.state = Paused
		case !event.Paused && m.state == Paused:
			m.state = Playing
		}
	case ErrorOccurred:
		m.logger.Errorf("player: %s", event.Message)
		if m.state != External {
			_ = m.player.Stop()
			m.reset()
		}
	case EndOfMedia:
		// mpv pauses at the end of a kept-open file, and the pause may be reported first
		if m.state != Playing && m.state != Paused {
			return Decision{}
		}

		if m.repeat {
			if err := m.player.Seek(0); err != nil {
				m.logger.WithError(err).Warn("restart")
			}
			if err := m.player.Play(); err != nil {
				m.fail(err)
				return Decision{Ended: true}
			}
			m.state = Playing
			m.position = 0
			return Decision{Ended: true}
		}

		m.state = Ended
		next := Next(current, length, false)
		if next == media.NoSelection {
			_ = m.player.Stop()
			m.reset()
		}
		return Decision{Ended: true, Advance: true, Index: next}
	}

	return Decision{}
}

// Next returns the index to play after current. Repeat keeps the index, the end of the
// queue wraps to the start, and an empty queue yields media.NoSelection.
func Next(current, length int, repeat bool) int {
	switch {
	case length <= 0:
		return media.NoSelection
	case current < 0 || current >= length:
		return 0
	case repeat:
		return current
	case current+1 < length:
		return current + 1
	default:
		return 0
	}
}

// Prev returns the index before current, wrapping to the end.
func Prev(current, length int) int {
	switch {
	case length <= 0:
		return media.NoSelection
	case current <= 0 || current >= length:
		return length - 1
	default:
		return current - 1
	}
}

func (m *Machine) applySettings() {
	if err := m.player.SetVolume(m.settings.Volume); err != nil {
		m.logger.WithError(err).Warn("apply volume")
	}
	if err := m.player.SetMuted(m.settings.Muted); err != nil {
		m.logger.WithError(err).Warn("apply mute")
	}
	if err := m.player.SetRate(m.settings.Rate); err != nil {
		m.logger.WithError(err).Warn("apply rate")
	}
}

func (m *Machine) fail(err error) {
	m.logger.WithError(err).Error("load media")
	_ = m.player.Stop()
	m.reset()
}

func (m *Machine) reset() {
	m.state = Idle
	m.item = mo.None[media.Item]()
	m.position, m.duration = 0, 0
}
