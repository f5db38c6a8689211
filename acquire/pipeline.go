package acquire

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/yks-player/yks/bootstrap"
	"github.com/yks-player/yks/filesystem"
	"github.com/yks-player/yks/log"
	"github.com/yks-player/yks/media"
)

// Stage is the phase a backend reports progress for.
type Stage int

const (
	StageDownloading Stage = iota
	StageConverting
)

// BackendProgress is reported by a Backend while it works.
type BackendProgress struct {
	Stage   Stage
	Percent float64
	Rate    string
}

// Request tells a Backend what to fetch and where to put it.
type Request struct {
	URL string
	// Dir is a scratch directory owned by this request alone.
	Dir            string
	FFmpeg         string
	Format         string
	OutputTemplate string
}

// Output is what a Backend reports on success. Path is the file the backend says it
// produced; a task whose reported file does not exist fails with ReasonOutputMissing.
type Output struct {
	Path  string
	Title string
}

// ErrToolMissing is wrapped by backends whose own executable could not be made available.
var ErrToolMissing = errors.New("download tool unavailable")

// Backend downloads and converts a single remote reference.
type Backend interface {
	Fetch(ctx context.Context, request Request, onProgress func(BackendProgress)) (Output, error)
}

// Dependencies makes the conversion tool available.
type Dependencies interface {
	EnsureAvailable(ctx context.Context, onProgress func(bootstrap.Progress)) (bool, error)
	Path() string
}

// Registry remembers completed acquisitions.
type Registry interface {
	Lookup(url string) (string, bool)
	Remember(url, path, title string) error
}

// Options configure a Pipeline.
type Options struct {
	Backend      Backend
	Dependencies Dependencies
	// Registry is optional. When set, a URL acquired before whose file still exists
	// completes immediately.
	Registry       Registry
	DownloadsDir   string
	ScratchRoot    string
	Format         string
	OutputTemplate string
	Logger         logrus.FieldLogger
}

// Pipeline runs acquisitions. Concurrent acquisitions are allowed; each owns its scratch directory.
type Pipeline struct {
	options Options
}

// NewPipeline returns a Pipeline. The logger defaults to the application log.
func NewPipeline(options Options) *Pipeline {
	if options.Logger == nil {
		options.Logger = log.Component("acquire")
	}
	return &Pipeline{options: options}
}

// Start begins acquiring url in the background and returns its task immediately.
func (p *Pipeline) Start(ctx context.Context, url string, onUpdate func(Update)) *Task {
	task := newTask(uuid.NewString(), url, p.options.DownloadsDir, onUpdate)
	go p.run(ctx, task)
	return task
}

// Acquire runs an acquisition to completion.
func (p *Pipeline) Acquire(ctx context.Context, url string, onUpdate func(Update)) (media.Item, error) {
	task := newTask(uuid.NewString(), url, p.options.DownloadsDir, onUpdate)
	p.run(ctx, task)
	return task.Result()
}

func (p *Pipeline) run(ctx context.Context, task *Task) {
	ctx, abort := context.WithCancel(ctx)
	defer abort()
	task.setAbort(abort)

	logger := p.options.Logger.WithFields(logrus.Fields{"task": task.ID, "url": task.SourceURL})

	task.notifyPending()

	item, err := p.acquire(ctx, task)
	if err != nil && ctx.Err() != nil {
		task.canceled.Store(true)
	}

	switch {
	case err == nil:
		logger.Infof("acquired %s", item.URL)
	case task.Cancelled():
		logger.Info("acquisition cancelled")
	default:
		logger.WithError(err).Error("acquisition failed")
	}

	task.settle(item, err)
}

// acquire does the work of a task. Its scratch directory is gone by the time it returns.
func (p *Pipeline) acquire(ctx context.Context, task *Task) (media.Item, error) {
	fail := func(reason Reason, err error) (media.Item, error) {
		return media.Item{}, &AcquisitionError{Reason: reason, URL: task.SourceURL, Err: err}
	}

	if p.options.Registry != nil {
		if path, ok := p.options.Registry.Lookup(task.SourceURL); ok {
			if item, err := media.FromFile(path); err == nil {
				return item, nil
			}
		}
	}

	available, err := p.options.Dependencies.EnsureAvailable(ctx, func(progress bootstrap.Progress) {
		task.installing(progress.Fraction*100, progress.Rate)
	})
	if err != nil || !available {
		if err == nil {
			err = errors.New("conversion tool unavailable")
		}
		if task.Cancelled() || ctx.Err() != nil {
			return fail(ReasonCancelled, err)
		}
		return fail(ReasonMissingDependency, err)
	}

	if task.Cancelled() {
		return fail(ReasonCancelled, context.Canceled)
	}

	fs := filesystem.API()
	scratch := filepath.Join(p.options.ScratchRoot, "acquire-"+task.ID)
	if err := fs.MkdirAll(scratch, os.ModePerm); err != nil {
		return fail(ReasonFilesystem, err)
	}
	defer func() {
		_ = fs.RemoveAll(scratch)
	}()

	task.advance(Downloading, 0, "")

	output, err := p.options.Backend.Fetch(ctx, Request{
		URL:            task.SourceURL,
		Dir:            scratch,
		FFmpeg:         p.options.Dependencies.Path(),
		Format:         p.options.Format,
		OutputTemplate: p.options.OutputTemplate,
	}, func(progress BackendProgress) {
		if task.Cancelled() {
			task.abortNow()
			return
		}

		status := Downloading
		if progress.Stage == StageConverting {
			status = Converting
		}
		task.advance(status, progress.Percent, progress.Rate)
	})
	if err != nil {
		switch {
		case task.Cancelled() || ctx.Err() != nil:
			return fail(ReasonCancelled, err)
		case errors.Is(err, ErrToolMissing):
			return fail(ReasonMissingDependency, err)
		default:
			return fail(ReasonNetwork, err)
		}
	}
	if task.Cancelled() {
		return fail(ReasonCancelled, context.Canceled)
	}

	task.advance(Converting, 100, "")

	produced, ok := resolveOutput(scratch, output.Path)
	if !ok {
		return fail(ReasonOutputMissing, errors.New("conversion reported success but the reported file does not exist"))
	}

	if _, err := media.Classify(produced); err != nil {
		return fail(ReasonUnsupported, err)
	}

	dest := filepath.Join(p.options.DownloadsDir, filepath.Base(produced))
	if err := filesystem.Move(produced, dest); err != nil {
		return fail(ReasonFilesystem, err)
	}
	if !filesystem.Exists(dest) {
		return fail(ReasonOutputMissing, errors.New("output vanished after move"))
	}

	item, err := media.FromFile(dest)
	if err != nil {
		return fail(ReasonUnsupported, err)
	}

	if p.options.Registry != nil {
		if err := p.options.Registry.Remember(task.SourceURL, dest, output.Title); err != nil {
			p.options.Logger.WithError(err).Warn("remember acquisition")
		}
	}

	return item, nil
}

// resolveOutput accepts the path the backend reported only when it lies inside the
// scratch directory and exists.
func resolveOutput(scratch, reported string) (string, bool) {
	if reported == "" {
		return "", false
	}
	if !filepath.IsAbs(reported) {
		reported = filepath.Join(scratch, reported)
	}

	rel, err := filepath.Rel(scratch, reported)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", false
	}
	return reported, filesystem.Exists(reported)
}
