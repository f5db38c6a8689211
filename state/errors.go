package state

import (
	"errors"
	"fmt"

	"github.com/yks-player/yks/media"
)

var (
	ErrEmptyQueue      = errors.New("queue is empty")
	ErrManifestMissing = errors.New("bundle has no manifest")
	ErrNoValidMedia    = errors.New("bundle contains no valid media")
)

// ValidationError describes a persisted entry dropped because its file is gone.
type ValidationError struct {
	Item media.Item
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("media file not found: %s", e.Item.URL)
}

// PersistenceError is returned when the state file cannot be written.
type PersistenceError struct {
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("save state to %s: %v", e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// ExportError is returned when a share bundle cannot be written.
type ExportError struct {
	Path string
	Err  error
}

func (e *ExportError) Error() string {
	return fmt.Sprintf("export bundle %s: %v", e.Path, e.Err)
}

func (e *ExportError) Unwrap() error {
	return e.Err
}

// ImportError is returned when a share bundle cannot be read or holds nothing usable.
type ImportError struct {
	Path string
	Err  error
}

func (e *ImportError) Error() string {
	return fmt.Sprintf("import bundle %s: %v", e.Path, e.Err)
}

func (e *ImportError) Unwrap() error {
	return e.Err
}
