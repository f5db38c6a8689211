package plugin

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	lua "github.com/yuin/gopher-lua"
)

const mailboxSize = 128

var errDetached = errors.New("unit detached")

// unit is one loaded plugin. Its LState is touched only by the mailbox goroutine.
type unit struct {
	id       string
	path     string
	state    *lua.LState
	handle   *lua.LTable
	inert    bool
	timeout  time.Duration
	logger   logrus.FieldLogger
	done     chan struct{}
	detached atomic.Bool

	// mu guards sends on mailbox against its close.
	mu      sync.RWMutex
	closed  bool
	mailbox chan func()
}

func newUnit(id, path string, state *lua.LState, timeout time.Duration, logger logrus.FieldLogger) *unit {
	u := &unit{
		id:      id,
		path:    path,
		state:   state,
		timeout: timeout,
		logger:  logger,
		mailbox: make(chan func(), mailboxSize),
		done:    make(chan struct{}),
	}
	go u.work()
	return u
}

func (u *unit) work() {
	defer close(u.done)
	for job := range u.mailbox {
		job()
	}
}

// call runs fn on the mailbox goroutine and waits for it.
func (u *unit) call(ctx context.Context, fn func() error) error {
	result := make(chan error, 1)
	job := func() { result <- fn() }

	u.mu.RLock()
	if u.closed {
		u.mu.RUnlock()
		return errDetached
	}
	select {
	case u.mailbox <- job:
		u.mu.RUnlock()
	case <-ctx.Done():
		u.mu.RUnlock()
		return ctx.Err()
	}

	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// post queues fn without waiting. Jobs queued after detach are dropped.
func (u *unit) post(fn func()) {
	u.mu.RLock()
	defer u.mu.RUnlock()

	if u.closed || u.detached.Load() {
		return
	}

	select {
	case u.mailbox <- func() {
		if !u.detached.Load() {
			fn()
		}
	}:
	default:
		u.logger.Warn("mailbox full, event dropped")
	}
}

// invoke calls a global Lua function with the session handle in protected mode.
// It runs on the mailbox goroutine. A missing function is not an error.
func (u *unit) invoke(name string) (bool, error) {
	fn := u.state.GetGlobal(name)
	if fn.Type() != lua.LTFunction {
		return false, nil
	}

	return true, u.protected(fn, u.handle)
}

// protected calls fn with a deadline so a runaway unit cannot stall its mailbox forever.
func (u *unit) protected(fn lua.LValue, args ...lua.LValue) error {
	ctx, cancel := context.WithTimeout(context.Background(), u.timeout)
	defer cancel()

	u.state.SetContext(ctx)
	defer u.state.RemoveContext()

	return u.state.CallByParam(lua.P{Fn: fn, NRet: 0, Protect: true}, args...)
}

// stop drops queued events, waits for the running job and closes the state.
func (u *unit) stop() {
	u.detached.Store(true)

	u.mu.Lock()
	if u.closed {
		u.mu.Unlock()
		return
	}
	u.closed = true
	close(u.mailbox)
	u.mu.Unlock()

	<-u.done
	u.state.Close()
}
