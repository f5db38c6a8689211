// Package history remembers which remote media has already been acquired and where it was stored.
package history

import (
	"sync"
	"time"

	"github.com/metafates/gache"
	"github.com/samber/mo"
	"github.com/yks-player/yks/filesystem"
	"github.com/yks-player/yks/where"
)

// Entry records a completed acquisition.
type Entry struct {
	URL        string    `json:"url"`
	Path       string    `json:"path"`
	Title      string    `json:"title,omitempty"`
	AcquiredAt time.Time `json:"acquired_at"`
}

// mu serializes read-modify-write cycles of the history file.
var mu sync.Mutex

var cacher = gache.New[map[string]*Entry](
	&gache.Options{
		Path:       where.History(),
		FileSystem: &filesystem.GacheFs{},
	},
)

// Get returns every recorded acquisition keyed by source URL.
func Get() (map[string]*Entry, error) {
	cached, expired, err := cacher.Get()
	if err != nil {
		return nil, err
	}
	if expired || cached == nil {
		return make(map[string]*Entry), nil
	}
	return cached, nil
}

// Remember records that url was acquired into path.
func Remember(url, path, title string) error {
	mu.Lock()
	defer mu.Unlock()

	saved, err := Get()
	if err != nil {
		return err
	}

	saved[url] = &Entry{URL: url, Path: path, Title: title, AcquiredAt: time.Now()}
	return cacher.Set(saved)
}

// Lookup returns the entry for url if its file still exists.
func Lookup(url string) mo.Option[*Entry] {
	saved, err := Get()
	if err != nil {
		return mo.None[*Entry]()
	}

	entry, ok := saved[url]
	if !ok || !filesystem.Exists(entry.Path) {
		return mo.None[*Entry]()
	}
	return mo.Some(entry)
}

// Forget drops the entry for url.
func Forget(url string) error {
	mu.Lock()
	defer mu.Unlock()

	saved, err := Get()
	if err != nil {
		return err
	}

	delete(saved, url)
	return cacher.Set(saved)
}

// Prune drops the entries whose file no longer exists and returns how many were dropped.
func Prune() (int, error) {
	mu.Lock()
	defer mu.Unlock()

	saved, err := Get()
	if err != nil {
		return 0, err
	}

	var pruned int
	for url, entry := range saved {
		if !filesystem.Exists(entry.Path) {
			delete(saved, url)
			pruned++
		}
	}

	if pruned == 0 {
		return 0, nil
	}
	return pruned, cacher.Set(saved)
}

// Registry exposes the package-level store through the interface the acquisition pipeline consumes.
type Registry struct{}

func (Registry) Lookup(url string) (string, bool) {
	entry, ok := Lookup(url).Get()
	if !ok {
		return "", false
	}
	return entry.Path, true
}

func (Registry) Remember(url, path, title string) error {
	return Remember(url, path, title)
}
