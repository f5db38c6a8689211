package plugin

import (
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/yks-player/yks/event"
	"github.com/yks-player/yks/media"
	lua "github.com/yuin/gopher-lua"
)

// Session is the read-only view of the running session offered to plugins.
type Session interface {
	Items() []media.Item
	Current() (media.Item, int, bool)
}

// newHandle builds the table passed to setup and teardown. It exposes logging, event
// subscriptions and copies of the queue; nothing in it can mutate the session.
func (h *Host) newHandle(u *unit) *lua.LTable {
	L := u.state
	handle := L.NewTable()

	handle.RawSetString("id", lua.LString(u.id))

	handle.RawSetString("log", L.NewFunction(func(L *lua.LState) int {
		message := L.CheckString(1)
		level, err := logrus.ParseLevel(L.OptString(2, "info"))
		if err != nil {
			L.ArgError(2, err.Error())
			return 0
		}

		switch level {
		case logrus.TraceLevel, logrus.DebugLevel:
			u.logger.Debug(message)
		case logrus.InfoLevel:
			u.logger.Info(message)
		case logrus.WarnLevel:
			u.logger.Warn(message)
		default:
			u.logger.Error(message)
		}
		return 0
	}))

	handle.RawSetString("subscribe", L.NewFunction(func(L *lua.LState) int {
		kind, err := event.ParseKind(L.CheckString(1))
		if err != nil {
			L.ArgError(1, err.Error())
			return 0
		}
		fn := L.CheckFunction(2)

		token := h.options.Bus.Subscribe(u.id, kind, func(e event.Event) {
			u.post(func() {
				if err := u.protected(fn, eventTable(u.state, e)); err != nil {
					u.logger.WithError(&PluginError{ID: u.id, Op: OpHandler, Err: err}).Errorf("%s handler failed", e.Kind)
				}
			})
		})

		L.Push(lua.LNumber(token))
		return 1
	}))

	handle.RawSetString("unsubscribe", L.NewFunction(func(L *lua.LState) int {
		token := event.Token(L.CheckInt64(1))
		L.Push(lua.LBool(h.options.Bus.Unsubscribe(u.id, token)))
		return 1
	}))

	handle.RawSetString("items", L.NewFunction(func(L *lua.LState) int {
		list := L.NewTable()
		if h.options.Session != nil {
			for _, item := range h.options.Session.Items() {
				list.Append(itemTable(L, item))
			}
		}
		L.Push(list)
		return 1
	}))

	handle.RawSetString("current", L.NewFunction(func(L *lua.LState) int {
		if h.options.Session == nil {
			L.Push(lua.LNil)
			return 1
		}

		item, index, ok := h.options.Session.Current()
		if !ok {
			L.Push(lua.LNil)
			return 1
		}

		L.Push(itemTable(L, item))
		// Lua indices start at 1
		L.Push(lua.LNumber(index + 1))
		return 2
	}))

	return handle
}

func itemTable(L *lua.LState, item media.Item) *lua.LTable {
	table := L.NewTable()
	table.RawSetString("id", lua.LString(item.ID))
	table.RawSetString("name", lua.LString(item.Name))
	table.RawSetString("url", lua.LString(item.URL))
	table.RawSetString("type", lua.LString(item.Kind))
	return table
}

func eventTable(L *lua.LState, e event.Event) *lua.LTable {
	table := L.NewTable()
	table.RawSetString("kind", lua.LString(e.Kind))

	switch e.Kind {
	case event.ItemLoaded, event.ItemEnded:
		table.RawSetString("item", itemTable(L, e.Item))
		table.RawSetString("index", lua.LNumber(e.Index+1))
	case event.QueueChanged:
		table.RawSetString("length", lua.LNumber(e.Length))
		table.RawSetString("index", lua.LNumber(e.Index+1))
	case event.StateChanged:
		table.RawSetString("state", lua.LString(e.State))
	case event.Acquisition:
		table.RawSetString("task", lua.LString(e.Task))
		table.RawSetString("status", lua.LString(e.Status))
		table.RawSetString("percent", lua.LNumber(e.Percent))
		if e.Message != "" {
			table.RawSetString("message", lua.LString(e.Message))
		}
	}

	return table
}

// packagePath puts dir first on the module search path so units can require shared modules.
func packagePath(L *lua.LState, dir string) {
	pkg, ok := L.GetGlobal("package").(*lua.LTable)
	if !ok {
		return
	}

	current := lua.LVAsString(pkg.RawGetString("path"))
	paths := []string{filepath.Join(dir, "?.lua")}
	if current != "" {
		paths = append(paths, current)
	}
	pkg.RawSetString("path", lua.LString(strings.Join(paths, ";")))
}
