// Package media defines queue entries and the ordered playback queue.
package media

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/yks-player/yks/constant"
)

// Kind decides how an item's URL is treated.
type Kind string

const (
	LocalVideo     Kind = constant.KindLocalVideo
	LocalAudio     Kind = constant.KindLocalAudio
	RemoteEmbedded Kind = constant.KindRemoteEmbedded
)

// IsLocal reports whether the URL of an item of this kind is a filesystem path.
func (k Kind) IsLocal() bool {
	return k == LocalVideo || k == LocalAudio
}

func (k Kind) valid() bool {
	return k.IsLocal() || k == RemoteEmbedded
}

// ErrUnsupported is returned for files whose extension is not playable.
var ErrUnsupported = errors.New("unsupported media type")

// Item is a single queue entry. Items are immutable once constructed.
// ID is assigned at construction, is never persisted and survives filtering,
// so it is what "the same item" means across reloads.
type Item struct {
	ID   string `json:"-"`
	Name string `json:"name"`
	URL  string `json:"url"`
	Kind Kind   `json:"type" jsonschema:"enum=local_video,enum=local_audio,enum=youtube_video"`
}

// NewItem constructs an item with a fresh identity.
func NewItem(name, url string, kind Kind) Item {
	return Item{ID: uuid.NewString(), Name: name, URL: url, Kind: kind}
}

// WithURL returns a copy of the item pointing at a different location, keeping its identity.
func (i Item) WithURL(url string) Item {
	i.URL = url
	return i
}

func (i *Item) UnmarshalJSON(data []byte) error {
	type plain Item
	var decoded plain
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}

	if !decoded.Kind.valid() {
		return fmt.Errorf("item %q: unknown type %q", decoded.Name, decoded.Kind)
	}
	if decoded.URL == "" {
		return fmt.Errorf("item %q: empty url", decoded.Name)
	}

	*i = Item(decoded)
	i.ID = uuid.NewString()
	return nil
}

func (i Item) String() string {
	return i.Name
}

// Classify decides the kind of a local file by its extension.
func Classify(path string) (Kind, error) {
	ext := strings.ToLower(filepath.Ext(path))

	switch {
	case lo.Contains(constant.AudioExtensions, ext):
		return LocalAudio, nil
	case lo.Contains(constant.VideoExtensions, ext):
		return LocalVideo, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupported, filepath.Base(path))
	}
}

// FromFile builds a local item named after the file's base name.
func FromFile(path string) (Item, error) {
	kind, err := Classify(path)
	if err != nil {
		return Item{}, err
	}

	return NewItem(filepath.Base(path), path, kind), nil
}

var videoIDPattern = regexp.MustCompile(`(?:v=|/)([0-9A-Za-z_-]{11})`)

// VideoID extracts the 11 character video id from a watch, short or embed URL.
func VideoID(url string) (string, bool) {
	match := videoIDPattern.FindStringSubmatch(url)
	if match == nil {
		return "", false
	}
	return match[1], true
}

// FromEmbed builds an embedded item for a video URL.
func FromEmbed(url string) (Item, error) {
	id, ok := VideoID(url)
	if !ok {
		return Item{}, fmt.Errorf("no video id in %q", url)
	}

	return NewItem(
		fmt.Sprintf(constant.EmbedNameFormat, id),
		fmt.Sprintf(constant.EmbedURLFormat, id),
		RemoteEmbedded,
	), nil
}
