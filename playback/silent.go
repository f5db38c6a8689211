package playback

import (
	"sync"
	"time"

	"github.com/yks-player/yks/media"
)

// Silent is a Player that plays nothing. Commands that only edit the queue use it so
// they go through the same state machine without starting a player.
type Silent struct {
	once   sync.Once
	events chan Event
}

func NewSilent() *Silent {
	return &Silent{events: make(chan Event)}
}

func (*Silent) SetSource(media.Item) error { return nil }
func (*Silent) Play() error                { return nil }
func (*Silent) Pause() error               { return nil }
func (*Silent) Stop() error                { return nil }
func (*Silent) Seek(time.Duration) error   { return nil }
func (*Silent) SetRate(float64) error      { return nil }
func (*Silent) SetVolume(int) error        { return nil }
func (*Silent) SetMuted(bool) error        { return nil }
func (s *Silent) Events() <-chan Event     { return s.events }

func (s *Silent) Close() error {
	s.once.Do(func() { close(s.events) })
	return nil
}
