// Package event carries session notifications from the runtime to observers such as plugins and the TUI.
package event

import (
	"fmt"

	"github.com/samber/lo"
	"github.com/yks-player/yks/media"
)

// Kind names a session event.
type Kind string

const (
	ItemLoaded   Kind = "item_loaded"
	ItemEnded    Kind = "item_ended"
	QueueChanged Kind = "queue_changed"
	StateChanged Kind = "state_changed"
	Acquisition  Kind = "acquisition"
)

// Kinds lists every event kind observers may subscribe to.
func Kinds() []Kind {
	return []Kind{ItemLoaded, ItemEnded, QueueChanged, StateChanged, Acquisition}
}

// ParseKind validates an event name coming from outside the process, e.g. a plugin.
func ParseKind(name string) (Kind, error) {
	kind := Kind(name)
	if !lo.Contains(Kinds(), kind) {
		return "", fmt.Errorf("unknown event %q", name)
	}
	return kind, nil
}

// Event is a single notification. Only the fields relevant to Kind are set.
type Event struct {
	Kind Kind

	// Item and Index describe the affected entry for item_loaded and item_ended.
	Item  media.Item
	Index int

	// Length is the queue length after a queue_changed.
	Length int

	// State is the playback state name for state_changed.
	State string

	// Task, Status, Percent and Message describe acquisition progress.
	Task    string
	Status  string
	Percent float64
	Message string
}
