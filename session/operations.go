package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/yks-player/yks/acquire"
	"github.com/yks-player/yks/event"
	"github.com/yks-player/yks/filesystem"
	"github.com/yks-player/yks/media"
	"github.com/yks-player/yks/playback"
	"github.com/yks-player/yks/state"
)

var (
	ErrNoPipeline = errors.New("remote acquisition is not configured")
	ErrIndex      = errors.New("index out of range")
)

// Mutating operations return a *state.PersistenceError when the change was applied
// but could not be saved. The in-memory queue stays authoritative.

// AddFiles appends the playable files among paths. Unsupported or missing files are
// skipped with a warning. When the queue was empty the first added item is loaded.
func (r *Runtime) AddFiles(paths ...string) (int, error) {
	items := make([]media.Item, 0, len(paths))
	for _, path := range paths {
		if !filesystem.Exists(path) {
			r.logger.Warnf("skipping %s: file not found", path)
			continue
		}

		item, err := media.FromFile(path)
		if err != nil {
			r.logger.WithError(err).Warnf("skipping %s", path)
			continue
		}
		items = append(items, item)
	}

	if len(items) == 0 {
		return 0, nil
	}

	return len(items), r.do(func() error {
		r.append(items...)
		return r.save()
	})
}

// AddEmbedded appends an embedded video. It is loaded when nothing is selected.
func (r *Runtime) AddEmbedded(url string) (media.Item, error) {
	item, err := media.FromEmbed(url)
	if err != nil {
		return media.Item{}, err
	}

	return item, r.do(func() error {
		r.append(item)
		return r.save()
	})
}

func (r *Runtime) append(items ...media.Item) {
	first := r.queue.Len()
	r.queue.Append(items...)

	if r.queue.CurrentIndex() == media.NoSelection {
		r.load(first)
	}
	r.changed()
}

// AddRemote acquires url in the background. The result is appended like a local file
// once the task is done; progress is published as acquisition events.
func (r *Runtime) AddRemote(ctx context.Context, url string) (*acquire.Task, error) {
	if r.options.Pipeline == nil {
		return nil, ErrNoPipeline
	}

	r.closeMu.RLock()
	closed := r.closed
	r.closeMu.RUnlock()
	if closed {
		return nil, ErrClosed
	}

	r.pending.Add(1)
	task := r.options.Pipeline.Start(ctx, url, func(update acquire.Update) {
		e := event.Event{
			Kind:    event.Acquisition,
			Task:    update.Task,
			Status:  update.Status.String(),
			Percent: update.Percent,
			Message: update.Rate,
		}
		if update.Installing {
			e.Message = strings.TrimSpace("installing ffmpeg " + update.Rate)
		}
		if update.Err != nil {
			e.Message = update.Err.Error()
		}
		_ = r.post(func() { r.bus.Publish(e) })
	})

	r.tasksMu.Lock()
	r.tasks[task.ID] = task
	r.tasksMu.Unlock()

	go func() {
		defer r.pending.Done()
		<-task.Done()

		r.tasksMu.Lock()
		delete(r.tasks, task.ID)
		r.tasksMu.Unlock()

		item, err := task.Result()
		if err != nil {
			return
		}
		_ = r.do(func() error {
			r.append(item)
			return r.save()
		})
	}()

	return task, nil
}

// Remove deletes the items at indices. Removing the current item stops playback and
// loads its replacement, if any remains.
func (r *Runtime) Remove(indices ...int) error {
	return r.do(func() error {
		result := r.queue.Remove(indices...)
		if result.Removed == 0 {
			return nil
		}

		if result.RemovedCurrent {
			if err := r.machine.Unload(); err != nil {
				r.logger.WithError(err).Warn("stop")
			}
			if result.Replacement != media.NoSelection {
				r.load(result.Replacement)
			} else {
				r.stateChanged()
			}
		}

		r.changed()
		return r.save()
	})
}

// Select loads the item at index.
func (r *Runtime) Select(index int) error {
	return r.do(func() error {
		if _, ok := r.queue.At(index); !ok {
			return fmt.Errorf("%w: %d", ErrIndex, index)
		}

		r.load(index)
		r.changed()
		return r.save()
	})
}

// Next loads the following item, wrapping to the first.
func (r *Runtime) Next() error {
	return r.step(func(current, length int) int {
		return playback.Next(current, length, false)
	})
}

// Prev loads the preceding item, wrapping to the last.
func (r *Runtime) Prev() error {
	return r.step(playback.Prev)
}

func (r *Runtime) step(pick func(current, length int) int) error {
	return r.do(func() error {
		index := pick(r.queue.CurrentIndex(), r.queue.Len())
		if index == media.NoSelection {
			return nil
		}

		r.load(index)
		r.changed()
		return r.save()
	})
}

func (r *Runtime) PlayPause() error {
	return r.control(r.machine.PlayPause)
}

// ToggleRepeat flips repeat and returns the new value.
func (r *Runtime) ToggleRepeat() (bool, error) {
	var repeat bool
	err := r.do(func() error {
		repeat = !r.machine.Repeat()
		r.machine.SetRepeat(repeat)
		r.stateChanged()
		return nil
	})
	return repeat, err
}

func (r *Runtime) SetVolume(volume int) error {
	return r.control(func() error { return r.machine.SetVolume(volume) })
}

func (r *Runtime) SetMuted(muted bool) error {
	return r.control(func() error { return r.machine.SetMuted(muted) })
}

// ToggleMute flips mute and returns the new value.
func (r *Runtime) ToggleMute() (bool, error) {
	var muted bool
	err := r.control(func() error {
		muted = !r.machine.Status().Settings.Muted
		return r.machine.SetMuted(muted)
	})
	return muted, err
}

func (r *Runtime) SetRate(rate float64) error {
	return r.control(func() error { return r.machine.SetRate(rate) })
}

func (r *Runtime) Seek(position time.Duration) error {
	return r.control(func() error { return r.machine.Seek(position) })
}

func (r *Runtime) control(fn func() error) error {
	return r.do(func() error {
		before := r.machine.State()
		if err := fn(); err != nil {
			return err
		}
		if r.machine.State() != before {
			r.stateChanged()
		}
		return nil
	})
}

// Filter returns the queue entries matching query.
func (r *Runtime) Filter(query string) ([]media.Match, error) {
	var matches []media.Match
	err := r.do(func() error {
		matches = r.queue.Filter(query)
		return nil
	})
	return matches, err
}

// Export writes the queue to a share bundle. Packing runs on the calling goroutine.
func (r *Runtime) Export(ctx context.Context, path string) (state.ExportReport, error) {
	return state.ExportBundle(ctx, r.Snapshot(), path, r.logger)
}

// Import replaces the queue with the contents of a share bundle and loads its current
// item, or the first one.
func (r *Runtime) Import(ctx context.Context, path string) (media.Snapshot, error) {
	snapshot, err := state.ImportBundle(ctx, path, r.options.ShareRoot, r.logger)
	if err != nil {
		return media.EmptySnapshot(), err
	}

	return snapshot, r.do(func() error {
		if err := r.machine.Unload(); err != nil {
			r.logger.WithError(err).Warn("stop")
		}

		r.queue.Restore(snapshot)
		index := lo.Ternary(r.queue.CurrentIndex() == media.NoSelection, 0, r.queue.CurrentIndex())
		r.load(index)
		r.changed()
		return r.save()
	})
}

// load selects index and hands the item to the machine. Failures are logged and leave
// the machine idle with the selection in place.
func (r *Runtime) load(index int) {
	if !r.queue.Select(index) {
		return
	}

	item, _ := r.queue.Current()
	if err := r.machine.Load(item); err != nil {
		r.logger.WithError(err).Errorf("load %s", item)
		r.stateChanged()
		return
	}

	r.bus.Publish(event.Event{Kind: event.ItemLoaded, Item: item, Index: index})
	r.stateChanged()
}

func (r *Runtime) handlePlayerEvent(e playback.Event) {
	before := r.machine.State()
	current, hasCurrent := r.queue.Current()
	index := r.queue.CurrentIndex()

	decision := r.machine.HandleEvent(e, index, r.queue.Len())

	if decision.Ended && hasCurrent {
		r.bus.Publish(event.Event{Kind: event.ItemEnded, Item: current, Index: index})
	}

	if decision.Advance {
		if decision.Index == media.NoSelection {
			r.queue.Select(media.NoSelection)
			r.stateChanged()
		} else {
			r.load(decision.Index)
		}
		r.changed()
		if err := r.save(); err != nil {
			r.logger.WithError(err).Error("save")
		}
		return
	}

	if r.machine.State() != before {
		r.stateChanged()
		if e.Kind == playback.ErrorOccurred {
			if err := r.save(); err != nil {
				r.logger.WithError(err).Error("save")
			}
		}
	}
}

func (r *Runtime) changed() {
	r.bus.Publish(event.Event{Kind: event.QueueChanged, Length: r.queue.Len(), Index: r.queue.CurrentIndex()})
}

func (r *Runtime) stateChanged() {
	r.bus.Publish(event.Event{Kind: event.StateChanged, State: r.machine.State().String()})
}

func (r *Runtime) save() error {
	if err := r.options.Store.Save(r.queue.Snapshot()); err != nil {
		r.logger.WithError(err).Error("save")
		return err
	}
	return nil
}
