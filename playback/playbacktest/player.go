// Package playbacktest provides an in-memory playback.Player for tests.
package playbacktest

import (
	"fmt"
	"sync"
	"time"

	"github.com/yks-player/yks/media"
	"github.com/yks-player/yks/playback"
)

// Player records every call it receives. Events pushed with Emit are delivered on Events.
type Player struct {
	mu       sync.Mutex
	calls    []string
	source   media.Item
	playing  bool
	volume   int
	muted    bool
	rate     float64
	position time.Duration
	events   chan playback.Event
	closed   bool

	// FailSource makes SetSource return an error.
	FailSource error
}

func New() *Player {
	return &Player{events: make(chan playback.Event, 64), rate: 1}
}

func (p *Player) record(format string, args ...any) {
	p.calls = append(p.calls, fmt.Sprintf(format, args...))
}

func (p *Player) SetSource(item media.Item) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.record("source %s", item.Name)
	if p.FailSource != nil {
		return p.FailSource
	}
	p.source = item
	p.playing = false
	p.position = 0
	return nil
}

func (p *Player) Play() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("play")
	p.playing = true
	return nil
}

func (p *Player) Pause() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("pause")
	p.playing = false
	return nil
}

func (p *Player) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("stop")
	p.playing = false
	p.source = media.Item{}
	return nil
}

func (p *Player) Seek(position time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("seek %s", position)
	p.position = position
	return nil
}

func (p *Player) SetRate(rate float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("rate %g", rate)
	p.rate = rate
	return nil
}

func (p *Player) SetVolume(volume int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("volume %d", volume)
	p.volume = volume
	return nil
}

func (p *Player) SetMuted(muted bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("muted %t", muted)
	p.muted = muted
	return nil
}

func (p *Player) Events() <-chan playback.Event {
	return p.events
}

func (p *Player) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.closed {
		p.closed = true
		close(p.events)
	}
	return nil
}

// Emit delivers event as if the backend had reported it.
func (p *Player) Emit(event playback.Event) {
	p.events <- event
}

// Calls returns the recorded calls and forgets them.
func (p *Player) Calls() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	calls := p.calls
	p.calls = nil
	return calls
}

func (p *Player) Source() media.Item {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.source
}

func (p *Player) Playing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playing
}

func (p *Player) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}
