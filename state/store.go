// Package state persists the session queue and packs it into shareable bundles.
package state

import (
	"encoding/json"
	"errors"
	"os"
	"sync"

	"github.com/invopop/jsonschema"
	"github.com/sirupsen/logrus"
	"github.com/yks-player/yks/filesystem"
	"github.com/yks-player/yks/media"
)

// Store reads and writes the session state file.
type Store struct {
	path   string
	logger logrus.FieldLogger
	mu     sync.Mutex
}

// NewStore returns a store for the state file at path.
func NewStore(path string, logger logrus.FieldLogger) *Store {
	return &Store{path: path, logger: logger}
}

// Path returns the location of the state file.
func (s *Store) Path() string {
	return s.path
}

// Load reads the state file. A missing or unreadable file yields an empty snapshot;
// corrupt state never prevents startup.
func (s *Store) Load() media.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := filesystem.API().ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.logger.WithError(err).Errorf("read state %s", s.path)
		}
		return media.EmptySnapshot()
	}

	var snapshot media.Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		s.logger.WithError(err).Errorf("malformed state %s, starting with an empty queue", s.path)
		return media.EmptySnapshot()
	}

	if snapshot.Items == nil {
		snapshot.Items = []media.Item{}
	}
	if _, ok := snapshot.Current(); !ok {
		snapshot.CurrentIndex = media.NoSelection
	}

	return snapshot
}

// Validate drops local entries whose files no longer exist. The current entry keeps
// its selection if it survives, otherwise the selection is cleared.
func (s *Store) Validate(snapshot media.Snapshot) media.Snapshot {
	current, hasCurrent := snapshot.Current()

	valid := media.Snapshot{Items: make([]media.Item, 0, len(snapshot.Items)), CurrentIndex: media.NoSelection}
	for _, item := range snapshot.Items {
		if item.Kind.IsLocal() && !filesystem.Exists(item.URL) {
			s.logger.Warn(&ValidationError{Item: item})
			continue
		}
		valid.Items = append(valid.Items, item)
	}

	if hasCurrent {
		valid.CurrentIndex = valid.IndexOf(current.ID)
	}

	return valid
}

// Save writes the snapshot atomically. Concurrent saves are serialized.
func (s *Store) Save(snapshot media.Snapshot) error {
	if snapshot.Items == nil {
		snapshot.Items = []media.Item{}
	}

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return &PersistenceError{Path: s.path, Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := filesystem.WriteAtomic(s.path, data, 0o644); err != nil {
		return &PersistenceError{Path: s.path, Err: err}
	}

	return nil
}

// Schema describes the state file and the bundle manifest.
func Schema() *jsonschema.Schema {
	reflector := new(jsonschema.Reflector)
	reflector.DoNotReference = true
	return reflector.Reflect(&media.Snapshot{})
}
