// Package playback drives a media player through the lifecycle of the queue's current item.
package playback

import (
	"time"

	"github.com/yks-player/yks/media"
)

// EventKind identifies what a player reported.
type EventKind int

const (
	PositionChanged EventKind = iota
	DurationChanged
	PauseChanged
	EndOfMedia
	ErrorOccurred
)

func (k EventKind) String() string {
	switch k {
	case PositionChanged:
		return "position"
	case DurationChanged:
		return "duration"
	case PauseChanged:
		return "pause"
	case EndOfMedia:
		return "end of media"
	case ErrorOccurred:
		return "error"
	default:
		return "unknown"
	}
}

// Event is a notification from a Player.
type Event struct {
	Kind     EventKind
	Position time.Duration
	Duration time.Duration
	Paused   bool
	Message  string
}

// Player is the capability the Machine needs from a media backend.
type Player interface {
	SetSource(item media.Item) error
	Play() error
	Pause() error
	Stop() error
	Seek(position time.Duration) error
	SetRate(rate float64) error
	// SetVolume takes a value between 0 and 100.
	SetVolume(volume int) error
	SetMuted(muted bool) error

	// Events delivers notifications until the player is closed.
	Events() <-chan Event

	Close() error
}
