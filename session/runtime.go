// Package session owns the queue and the playback machine and serializes every change to them.
package session

import (
	"context"
	"errors"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/yks-player/yks/acquire"
	"github.com/yks-player/yks/event"
	"github.com/yks-player/yks/log"
	"github.com/yks-player/yks/media"
	"github.com/yks-player/yks/playback"
	"github.com/yks-player/yks/plugin"
	"github.com/yks-player/yks/state"
)

// ErrClosed is returned by operations on a closed Runtime.
var ErrClosed = errors.New("session closed")

// Options configure a Runtime.
type Options struct {
	Store    *state.Store
	Player   playback.Player
	Opener   playback.Opener
	Settings playback.Settings
	Repeat   bool

	// Autoplay loads the restored current item, or the first one, on start.
	Autoplay bool

	// Pipeline acquires remote media. AddRemote fails without it.
	Pipeline *acquire.Pipeline

	// PluginDir enables the plugin host when set.
	PluginDir string

	// ShareRoot receives unpacked bundles.
	ShareRoot string

	Logger logrus.FieldLogger
}

// Runtime is the single writer of the queue, the playback machine and the state file.
// All of them are touched only by the actor goroutine; public methods send it jobs.
type Runtime struct {
	options Options
	logger  logrus.FieldLogger

	queue   *media.Queue
	machine *playback.Machine
	bus     *event.Bus
	plugins *plugin.Host

	inbox chan func()
	quit  chan struct{}
	done  chan struct{}

	// closeMu guards closed against jobs being sent during shutdown.
	closeMu sync.RWMutex
	closed  bool

	// view is what readers on other goroutines see. It is refreshed after every job.
	viewMu sync.RWMutex
	view   media.Snapshot
	status playback.Status

	tasksMu sync.Mutex
	tasks   map[string]*acquire.Task
	pending sync.WaitGroup
}

// Start restores the saved queue and starts the actor.
func Start(ctx context.Context, options Options) *Runtime {
	if options.Logger == nil {
		options.Logger = log.Component("session")
	}

	r := &Runtime{
		options: options,
		logger:  options.Logger,
		queue:   media.NewQueue(),
		bus:     event.NewBus(options.Logger.WithField("component", "bus")),
		inbox:   make(chan func(), 64),
		quit:    make(chan struct{}),
		done:    make(chan struct{}),
		tasks:   make(map[string]*acquire.Task),
	}

	r.machine = playback.NewMachine(options.Player, options.Opener, options.Settings, options.Logger.WithField("component", "playback"))
	r.machine.SetRepeat(options.Repeat)

	snapshot := options.Store.Validate(options.Store.Load())
	r.queue.Restore(snapshot)
	r.refresh()

	go r.loop()
	go r.forward()

	// plugins subscribe before the restored item is announced.
	if options.PluginDir != "" {
		r.plugins = plugin.NewHost(plugin.Options{
			Dir:     options.PluginDir,
			Bus:     r.bus,
			Session: r,
			Logger:  options.Logger.WithField("component", "plugin"),
		})
		if err := r.plugins.LoadAll(ctx); err != nil {
			r.logger.WithError(err).Warn("some plugins failed to load")
		}
	}

	_ = r.do(func() error {
		if r.options.Autoplay && r.queue.Len() > 0 {
			index := r.queue.CurrentIndex()
			if index == media.NoSelection {
				index = 0
			}
			r.load(index)
		}
		r.changed()
		return r.save()
	})

	return r
}

// Bus is where session events are published.
func (r *Runtime) Bus() *event.Bus {
	return r.bus
}

// Plugins returns the plugin host, or nil when plugins are disabled.
func (r *Runtime) Plugins() *plugin.Host {
	return r.plugins
}

func (r *Runtime) loop() {
	defer close(r.done)

	for {
		select {
		case job := <-r.inbox:
			job()
			r.refresh()
		case <-r.quit:
			return
		}
	}
}

// forward feeds player events into the actor until the player closes its channel.
func (r *Runtime) forward() {
	for e := range r.options.Player.Events() {
		e := e
		if err := r.post(func() { r.handlePlayerEvent(e) }); err != nil {
			return
		}
	}
}

// do runs fn on the actor and waits for its result.
func (r *Runtime) do(fn func() error) error {
	result := make(chan error, 1)
	if err := r.post(func() { result <- fn() }); err != nil {
		return err
	}

	select {
	case err := <-result:
		return err
	case <-r.done:
		return ErrClosed
	}
}

// post queues fn on the actor without waiting.
func (r *Runtime) post(fn func()) error {
	r.closeMu.RLock()
	defer r.closeMu.RUnlock()

	if r.closed {
		return ErrClosed
	}

	select {
	case r.inbox <- fn:
		return nil
	case <-r.done:
		return ErrClosed
	}
}

func (r *Runtime) refresh() {
	snapshot := r.queue.Snapshot()
	status := r.machine.Status()

	r.viewMu.Lock()
	r.view = snapshot
	r.status = status
	r.viewMu.Unlock()
}

// Snapshot returns a copy of the queue as of the last completed operation.
func (r *Runtime) Snapshot() media.Snapshot {
	r.viewMu.RLock()
	defer r.viewMu.RUnlock()

	items := make([]media.Item, len(r.view.Items))
	copy(items, r.view.Items)
	return media.Snapshot{Items: items, CurrentIndex: r.view.CurrentIndex}
}

// Status returns the playback status as of the last completed operation.
func (r *Runtime) Status() playback.Status {
	r.viewMu.RLock()
	defer r.viewMu.RUnlock()
	return r.status
}

// Items is part of the read-only view offered to plugins.
func (r *Runtime) Items() []media.Item {
	return r.Snapshot().Items
}

// Current is part of the read-only view offered to plugins.
func (r *Runtime) Current() (media.Item, int, bool) {
	snapshot := r.Snapshot()
	item, ok := snapshot.Current()
	return item, snapshot.CurrentIndex, ok
}

// Close cancels running acquisitions, saves the queue, unloads plugins and closes the player.
func (r *Runtime) Close(ctx context.Context) error {
	r.tasksMu.Lock()
	for _, task := range r.tasks {
		task.Cancel()
	}
	r.tasksMu.Unlock()
	r.pending.Wait()

	if r.plugins != nil {
		r.plugins.Close(ctx)
	}

	saveErr := r.do(r.save)

	r.closeMu.Lock()
	if r.closed {
		r.closeMu.Unlock()
		return ErrClosed
	}
	r.closed = true
	close(r.quit)
	r.closeMu.Unlock()
	<-r.done

	return errors.Join(saveErr, r.options.Player.Close())
}
