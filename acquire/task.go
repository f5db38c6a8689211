// Package acquire downloads remote media into local files the queue can play.
package acquire

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/yks-player/yks/media"
)

// Status is the lifecycle state of a Task.
type Status int

const (
	Pending Status = iota
	Downloading
	Converting
	Done
	Cancelled
	Failed
)

func (s Status) String() string {
	switch s {
	case Pending:
		return "pending"
	case Downloading:
		return "downloading"
	case Converting:
		return "converting"
	case Done:
		return "done"
	case Cancelled:
		return "cancelled"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// IsTerminal reports whether no further transitions can happen.
func (s Status) IsTerminal() bool {
	return s == Done || s == Cancelled || s == Failed
}

// Reason classifies a failed acquisition.
type Reason string

const (
	ReasonMissingDependency Reason = "missing dependency"
	ReasonNetwork           Reason = "network"
	ReasonOutputMissing     Reason = "output missing"
	ReasonUnsupported       Reason = "unsupported output"
	ReasonCancelled         Reason = "cancelled"
	ReasonFilesystem        Reason = "filesystem"
)

// AcquisitionError reports why a task did not finish with Done.
// errors.Is matches on Reason.
type AcquisitionError struct {
	Reason Reason
	URL    string
	Err    error
}

func (e *AcquisitionError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("acquire %s: %s", e.URL, e.Reason)
	}
	return fmt.Sprintf("acquire %s: %s: %v", e.URL, e.Reason, e.Err)
}

func (e *AcquisitionError) Unwrap() error {
	return e.Err
}

func (e *AcquisitionError) Is(target error) bool {
	t, ok := target.(*AcquisitionError)
	return ok && t.Reason == e.Reason
}

// Update is a progress notification. Updates of one task arrive in order and the
// last one is the only one with a terminal Status.
type Update struct {
	Task    string
	Status  Status
	Percent float64
	Rate    string
	// Installing marks Pending updates that report the conversion tool download.
	Installing bool
	Err        error
}

// Task is a single acquisition.
type Task struct {
	ID             string
	SourceURL      string
	DestinationDir string

	mu       sync.Mutex
	status   Status
	percent  float64
	rate     string
	err      error
	item     media.Item
	notify   func(Update)
	canceled atomic.Bool
	abort    context.CancelFunc
	done     chan struct{}
}

func newTask(id, url, dest string, notify func(Update)) *Task {
	return &Task{
		ID:             id,
		SourceURL:      url,
		DestinationDir: dest,
		notify:         notify,
		done:           make(chan struct{}),
	}
}

// Cancel requests cooperative cancellation. It is checked on every progress callback.
func (t *Task) Cancel() {
	t.canceled.Store(true)
	t.abortNow()
}

// Cancelled reports whether cancellation was requested.
func (t *Task) Cancelled() bool {
	return t.canceled.Load()
}

// Status returns the current state.
func (t *Task) Status() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

// Progress returns the last reported percentage and rate.
func (t *Task) Progress() (float64, string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.percent, t.rate
}

// Done is closed once the task reaches a terminal state.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Result returns the acquired item, or the error the task failed with.
// It is only meaningful after Done is closed.
func (t *Task) Result() (media.Item, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.item, t.err
}

// Wait blocks until the task settles or ctx is done.
func (t *Task) Wait(ctx context.Context) (media.Item, error) {
	select {
	case <-t.done:
		return t.Result()
	case <-ctx.Done():
		return media.Item{}, ctx.Err()
	}
}

func (t *Task) setAbort(abort context.CancelFunc) {
	t.mu.Lock()
	t.abort = abort
	t.mu.Unlock()

	if t.Cancelled() {
		abort()
	}
}

func (t *Task) abortNow() {
	t.mu.Lock()
	abort := t.abort
	t.mu.Unlock()

	if abort != nil {
		abort()
	}
}

func (t *Task) notifyPending() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.notify != nil && t.status == Pending {
		t.notify(Update{Task: t.ID, Status: Pending})
	}
}

// installing reports progress of the conversion tool download while the task is pending.
func (t *Task) installing(percent float64, rate string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.notify != nil && t.status == Pending {
		t.notify(Update{Task: t.ID, Status: Pending, Percent: percent, Rate: rate, Installing: true})
	}
}

// advance records a non-terminal transition and notifies. Regressions to an earlier
// stage and anything after a terminal state are dropped.
func (t *Task) advance(status Status, percent float64, rate string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.status.IsTerminal() || status < t.status {
		return
	}

	t.status = status
	t.percent = percent
	if rate != "" {
		t.rate = rate
	}

	if t.notify != nil {
		t.notify(Update{Task: t.ID, Status: status, Percent: percent, Rate: t.rate})
	}
}

// settle records the single terminal transition.
func (t *Task) settle(item media.Item, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.status.IsTerminal() {
		return
	}

	switch {
	case err == nil:
		t.status = Done
		t.percent = 100
		t.item = item
	case t.canceled.Load():
		t.status = Cancelled
		err = cancelled(t.SourceURL, err)
	default:
		t.status = Failed
	}
	t.err = err

	if t.notify != nil {
		t.notify(Update{Task: t.ID, Status: t.status, Percent: t.percent, Rate: t.rate, Err: err})
	}
	close(t.done)
}

// cancelled reclassifies err as a cancellation without nesting acquisition errors,
// so errors.Is matches ReasonCancelled only.
func cancelled(url string, err error) error {
	var acquisition *AcquisitionError
	if errors.As(err, &acquisition) {
		if acquisition.Reason == ReasonCancelled {
			return acquisition
		}
		err = acquisition.Err
	}
	return &AcquisitionError{Reason: ReasonCancelled, URL: url, Err: err}
}
