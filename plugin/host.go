// Package plugin hosts Lua extension units that observe the session without restarting it.
package plugin

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	libs "github.com/metafates/mangal-lua-libs"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
	"github.com/yks-player/yks/constant"
	"github.com/yks-player/yks/event"
	"github.com/yks-player/yks/filesystem"
	"github.com/yks-player/yks/log"
	"github.com/yks-player/yks/util"
	lua "github.com/yuin/gopher-lua"
)

const defaultTimeout = 5 * time.Second

// Options configure a Host.
type Options struct {
	// Dir is scanned for units.
	Dir     string
	Bus     *event.Bus
	Session Session
	Logger  logrus.FieldLogger
	// Timeout bounds every call into a unit. Defaults to five seconds.
	Timeout time.Duration
}

// Host is the registry of loaded units. Every unit runs in its own LState, so units
// share no globals, and every subscription a unit made is detached before its state
// is closed.
type Host struct {
	options Options
	mu      sync.Mutex
	units   map[string]*unit
}

func NewHost(options Options) *Host {
	if options.Timeout <= 0 {
		options.Timeout = defaultTimeout
	}
	if options.Logger == nil {
		options.Logger = log.Component("plugin")
	}

	return &Host{
		options: options,
		units:   make(map[string]*unit),
	}
}

// Discover lists the ids of the units in the plugin directory. init.lua and files
// starting with an underscore are shared modules, not units.
func (h *Host) Discover() ([]string, error) {
	entries, err := filesystem.API().ReadDir(h.options.Dir)
	if err != nil {
		return nil, err
	}

	var ids []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || filepath.Ext(name) != constant.PluginExtension {
			continue
		}
		if name == "init"+constant.PluginExtension || strings.HasPrefix(name, "_") {
			continue
		}
		ids = append(ids, util.FileStem(name))
	}

	sort.Strings(ids)
	return ids, nil
}

// Path returns the file of unit id.
func (h *Host) Path(id string) string {
	return filepath.Join(h.options.Dir, id+constant.PluginExtension)
}

// LoadAll unloads every unit and loads everything discovered. A failing unit does not
// stop the others; the returned error joins every failure.
func (h *Host) LoadAll(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, id := range h.loaded() {
		h.unload(ctx, id)
	}

	ids, err := h.Discover()
	if err != nil {
		return fmt.Errorf("discover plugins: %w", err)
	}

	var errs []error
	for _, id := range ids {
		if err := h.load(ctx, id); err != nil {
			errs = append(errs, err)
		}
	}

	h.options.Logger.Infof("loaded %s", util.Quantify(len(h.units), "plugin", "plugins"))
	return errors.Join(errs...)
}

// Load loads unit id, replacing it if already loaded.
func (h *Host) Load(ctx context.Context, id string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.load(ctx, id)
}

// Unload tears unit id down. It reports whether the unit was loaded.
func (h *Host) Unload(ctx context.Context, id string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.unload(ctx, id)
}

// Loaded returns the ids of every loaded unit, inert ones included.
func (h *Host) Loaded() []string {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.loaded()
}

// Active reports whether id is loaded and ran its setup.
func (h *Host) Active(id string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	u, ok := h.units[id]
	return ok && !u.inert
}

// Close unloads every unit.
func (h *Host) Close(ctx context.Context) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, id := range h.loaded() {
		h.unload(ctx, id)
	}
}

func (h *Host) loaded() []string {
	ids := lo.Keys(h.units)
	sort.Strings(ids)
	return ids
}

func (h *Host) load(ctx context.Context, id string) error {
	if _, ok := h.units[id]; ok {
		h.unload(ctx, id)
	}

	path := h.Path(id)
	logger := h.options.Logger.WithField("plugin", id)

	proto, err := compile(path)
	if err != nil {
		logger.WithError(err).Error("compile")
		return &PluginError{ID: id, Op: OpLoad, Err: err}
	}

	state := lua.NewState()
	libs.Preload(state)
	packagePath(state, h.options.Dir)

	u := newUnit(id, path, state, h.options.Timeout, logger)
	u.handle = h.newHandle(u)

	err = u.call(ctx, func() error {
		if err := u.protected(state.NewFunctionFromProto(proto)); err != nil {
			return &PluginError{ID: id, Op: OpLoad, Err: err}
		}

		found, err := u.invoke(constant.PluginSetupFn)
		if err != nil {
			return &PluginError{ID: id, Op: OpSetup, Err: err}
		}
		u.inert = !found
		return nil
	})
	if err != nil {
		logger.WithError(err).Error("load failed")
		h.options.Bus.Detach(id)
		u.stop()
		return err
	}

	if u.inert {
		logger.Warnf("no %s function, plugin is inert", constant.PluginSetupFn)
	} else {
		logger.Info("loaded")
	}

	h.units[id] = u
	return nil
}

func (h *Host) unload(ctx context.Context, id string) bool {
	u, ok := h.units[id]
	if !ok {
		return false
	}
	delete(h.units, id)

	err := u.call(ctx, func() error {
		_, err := u.invoke(constant.PluginTeardownFn)
		return err
	})
	if err != nil {
		u.logger.WithError(&PluginError{ID: id, Op: OpTeardown, Err: err}).Error("teardown failed")
	}

	if detached := h.options.Bus.Detach(id); detached > 0 {
		u.logger.Debugf("detached %s", util.Quantify(detached, "subscription", "subscriptions"))
	}
	u.stop()

	u.logger.Info("unloaded")
	return true
}
