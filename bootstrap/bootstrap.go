// Package bootstrap makes sure the external transcode tool is installed before remote media is acquired.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"runtime"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/yks-player/yks/constant"
	"github.com/yks-player/yks/filesystem"
	"github.com/yks-player/yks/log"
	"github.com/yks-player/yks/network"
	"golang.org/x/sync/singleflight"
)

// Reason classifies a bootstrap failure.
type Reason string

const (
	ReasonDeclined  Reason = "declined"
	ReasonNetwork   Reason = "network"
	ReasonCancelled Reason = "cancelled"
	ReasonExtract   Reason = "extract"
	ReasonNotFound  Reason = "not found in archive"
	ReasonInstall   Reason = "install"
)

// BootstrapError reports why the tool could not be made available.
// errors.Is matches on Reason, so callers can test against &BootstrapError{Reason: ReasonCancelled}.
type BootstrapError struct {
	Reason Reason
	Err    error
}

func (e *BootstrapError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("bootstrap: %s", e.Reason)
	}
	return fmt.Sprintf("bootstrap: %s: %v", e.Reason, e.Err)
}

func (e *BootstrapError) Unwrap() error {
	return e.Err
}

func (e *BootstrapError) Is(target error) bool {
	t, ok := target.(*BootstrapError)
	return ok && t.Reason == e.Reason
}

// Consent asks whether the tool may be downloaded.
type Consent func(ctx context.Context) bool

// Progress is reported for every received chunk of the archive.
type Progress struct {
	Fraction float64
	Rate     string
}

// BinaryName returns the executable name of the tool on the running platform.
func BinaryName(tool string) string {
	if runtime.GOOS == constant.Windows {
		return tool + ".exe"
	}
	return tool
}

// Options configure a Bootstrapper.
type Options struct {
	// Path is where the executable is expected to live.
	Path string
	// URL points at a zip archive containing the executable somewhere inside.
	URL string
	// Consent gates the download. A nil Consent always declines.
	Consent Consent
	// ScratchRoot holds per-call scratch directories.
	ScratchRoot string
	Client      *http.Client
	Logger      logrus.FieldLogger
}

// Bootstrapper installs a single executable from a zip archive on demand.
// It is the only writer of the tool path.
type Bootstrapper struct {
	options Options
	group   singleflight.Group
}

// New returns a Bootstrapper. The HTTP client defaults to network.Client and the logger to the application log.
func New(options Options) *Bootstrapper {
	if options.Client == nil {
		options.Client = network.Client
	}
	if options.Logger == nil {
		options.Logger = log.Component("bootstrap")
	}
	return &Bootstrapper{options: options}
}

// Path returns the expected location of the executable.
func (b *Bootstrapper) Path() string {
	return b.options.Path
}

// Installed reports whether the executable is present.
func (b *Bootstrapper) Installed() bool {
	return filesystem.Exists(b.options.Path)
}

// EnsureAvailable returns true when the executable exists, installing it first if needed.
// Concurrent callers wait for a single shared installation attempt; only the caller that
// starts it receives progress, is asked for consent and can cancel it.
func (b *Bootstrapper) EnsureAvailable(ctx context.Context, onProgress func(Progress)) (bool, error) {
	if b.Installed() {
		return true, nil
	}

	installed, err, _ := b.group.Do(b.options.Path, func() (any, error) {
		return b.install(ctx, onProgress)
	})
	if err != nil {
		return false, err
	}
	return installed.(bool), nil
}

func (b *Bootstrapper) install(ctx context.Context, onProgress func(Progress)) (bool, error) {
	logger := b.options.Logger.WithField("tool", filepath.Base(b.options.Path))

	if b.Installed() {
		return true, nil
	}

	if b.options.Consent == nil || !b.options.Consent(ctx) {
		logger.Info("tool download declined")
		return false, &BootstrapError{Reason: ReasonDeclined}
	}

	fsys := filesystem.API()
	scratch := filepath.Join(b.options.ScratchRoot, "bootstrap-"+uuid.NewString())
	if err := fsys.MkdirAll(scratch, os.ModePerm); err != nil {
		return false, &BootstrapError{Reason: ReasonInstall, Err: err}
	}
	defer func() {
		if err := fsys.RemoveAll(scratch); err != nil {
			logger.WithError(err).Warnf("remove scratch %s", scratch)
		}
	}()

	archive := filepath.Join(scratch, "archive.zip")
	logger.Infof("downloading %s", b.options.URL)
	if err := b.download(ctx, archive, onProgress); err != nil {
		if ctx.Err() != nil {
			return false, &BootstrapError{Reason: ReasonCancelled, Err: ctx.Err()}
		}
		return false, &BootstrapError{Reason: ReasonNetwork, Err: err}
	}

	extracted := filepath.Join(scratch, "extracted")
	if _, err := filesystem.Unzip(ctx, archive, extracted); err != nil {
		if ctx.Err() != nil {
			return false, &BootstrapError{Reason: ReasonCancelled, Err: ctx.Err()}
		}
		return false, &BootstrapError{Reason: ReasonExtract, Err: err}
	}

	binary, err := locate(extracted, filepath.Base(b.options.Path))
	if err != nil {
		return false, &BootstrapError{Reason: ReasonNotFound, Err: err}
	}

	if err := place(binary, b.options.Path); err != nil {
		return false, &BootstrapError{Reason: ReasonInstall, Err: err}
	}

	logger.Infof("installed %s", b.options.Path)
	return true, nil
}

func (b *Bootstrapper) download(ctx context.Context, dest string, onProgress func(Progress)) error {
	file, err := filesystem.API().Create(dest)
	if err != nil {
		return err
	}
	defer file.Close()

	return network.Stream(ctx, b.options.Client, b.options.URL, file, func(p network.Progress) error {
		if onProgress != nil {
			onProgress(Progress{Fraction: p.Fraction(), Rate: p.Rate()})
		}
		return ctx.Err()
	})
}

var errFound = errors.New("found")

// locate finds a regular file called name anywhere under root.
func locate(root, name string) (string, error) {
	var found string
	err := filesystem.API().Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && info.Name() == name {
			found = path
			return errFound
		}
		return nil
	})

	switch {
	case errors.Is(err, errFound):
		return found, nil
	case err != nil:
		return "", err
	default:
		return "", fmt.Errorf("%s not found", name)
	}
}

// place copies src next to dest and renames it into place, so dest never holds a partial file.
func place(src, dest string) error {
	fsys := filesystem.API()
	if err := fsys.MkdirAll(filepath.Dir(dest), os.ModePerm); err != nil {
		return err
	}

	partial := fmt.Sprintf("%s.%s.part", dest, uuid.NewString())
	if err := copyFile(src, partial); err != nil {
		_ = fsys.Remove(partial)
		return err
	}

	if err := fsys.Chmod(partial, 0o755); err != nil {
		_ = fsys.Remove(partial)
		return err
	}

	if err := fsys.Rename(partial, dest); err != nil {
		_ = fsys.Remove(partial)
		return err
	}
	return nil
}

func copyFile(src, dest string) error {
	fsys := filesystem.API()

	in, err := fsys.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := fsys.Create(dest)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
