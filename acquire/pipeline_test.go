package acquire

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	. "github.com/smartystreets/goconvey/convey"
	"github.com/yks-player/yks/bootstrap"
	"github.com/yks-player/yks/filesystem"
	"github.com/yks-player/yks/media"
)

type fakeDeps struct {
	available bool
	err       error
	progress  []bootstrap.Progress
	// started, when set, is closed and the call then blocks until ctx is done.
	started chan struct{}
}

func (f fakeDeps) EnsureAvailable(ctx context.Context, onProgress func(bootstrap.Progress)) (bool, error) {
	for _, p := range f.progress {
		onProgress(p)
	}
	if f.started != nil {
		close(f.started)
		<-ctx.Done()
		return false, &bootstrap.BootstrapError{Reason: bootstrap.ReasonCancelled, Err: ctx.Err()}
	}
	return f.available, f.err
}

func (fakeDeps) Path() string { return "/tools/ffmpeg" }

type fakeBackend struct {
	fetch func(ctx context.Context, request Request, onProgress func(BackendProgress)) (Output, error)
	calls int
}

func (f *fakeBackend) Fetch(ctx context.Context, request Request, onProgress func(BackendProgress)) (Output, error) {
	f.calls++
	return f.fetch(ctx, request, onProgress)
}

type fakeRegistry struct {
	paths map[string]string
}

func (f *fakeRegistry) Lookup(url string) (string, bool) {
	path, ok := f.paths[url]
	return path, ok && filesystem.Exists(path)
}

func (f *fakeRegistry) Remember(url, path, _ string) error {
	f.paths[url] = path
	return nil
}

type recorder struct {
	mu      sync.Mutex
	updates []Update
}

func (r *recorder) record(u Update) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates = append(r.updates, u)
}

func (r *recorder) statuses() []Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	statuses := make([]Status, len(r.updates))
	for i, u := range r.updates {
		statuses[i] = u.Status
	}
	return statuses
}

func (r *recorder) installing() []Update {
	r.mu.Lock()
	defer r.mu.Unlock()
	var updates []Update
	for _, u := range r.updates {
		if u.Installing {
			updates = append(updates, u)
		}
	}
	return updates
}

func (r *recorder) terminals() int {
	n := 0
	for _, s := range r.statuses() {
		if s.IsTerminal() {
			n++
		}
	}
	return n
}

// writeOutput runs on the backend's goroutine, so failures surface as a missing file
// rather than an assertion.
func writeOutput(request Request, name string) string {
	path := filepath.Join(request.Dir, name)
	_ = filesystem.API().WriteFile(path, []byte("media"), 0o644)
	return path
}

func scratchEmpty() bool {
	entries, err := filesystem.API().ReadDir("/tmp/yks")
	return err == nil && len(entries) == 0
}

const url = "https://www.youtube.com/watch?v=dQw4w9WgXcQ"

func TestPipeline(t *testing.T) {
	Convey("Given a pipeline with an available conversion tool", t, func() {
		filesystem.SetMemMapFs()
		So(filesystem.API().MkdirAll("/tmp/yks", 0o755), ShouldBeNil)
		logger, _ := test.NewNullLogger()

		backend := &fakeBackend{}
		registry := &fakeRegistry{paths: map[string]string{}}
		options := Options{
			Backend:      backend,
			Dependencies: fakeDeps{available: true},
			Registry:     registry,
			DownloadsDir: "/downloads",
			ScratchRoot:  "/tmp/yks",
			Logger:       logger,
		}
		rec := &recorder{}

		Convey("A successful fetch moves the output into downloads", func() {
			backend.fetch = func(_ context.Context, request Request, onProgress func(BackendProgress)) (Output, error) {
				onProgress(BackendProgress{Stage: StageDownloading, Percent: 40, Rate: "1 MB/s"})
				onProgress(BackendProgress{Stage: StageDownloading, Percent: 100})
				onProgress(BackendProgress{Stage: StageConverting, Percent: 100})
				return Output{Path: writeOutput(request, "song.mp4"), Title: "song"}, nil
			}

			item, err := NewPipeline(options).Acquire(context.Background(), url, rec.record)
			So(err, ShouldBeNil)
			So(item.Kind, ShouldEqual, media.LocalVideo)
			So(item.URL, ShouldEqual, "/downloads/song.mp4")
			So(filesystem.Exists("/downloads/song.mp4"), ShouldBeTrue)
			So(scratchEmpty(), ShouldBeTrue)

			So(rec.statuses(), ShouldResemble, []Status{Pending, Downloading, Downloading, Downloading, Converting, Converting, Done})
			So(rec.terminals(), ShouldEqual, 1)

			Convey("And a second acquisition of the same URL is served from the registry", func() {
				again, err := NewPipeline(options).Acquire(context.Background(), url, nil)
				So(err, ShouldBeNil)
				So(again.URL, ShouldEqual, "/downloads/song.mp4")
				So(backend.calls, ShouldEqual, 1)
			})
		})

		Convey("A backend that reports no path fails with OutputMissing", func() {
			backend.fetch = func(_ context.Context, request Request, _ func(BackendProgress)) (Output, error) {
				writeOutput(request, "clip.mp4")
				return Output{}, nil
			}

			_, err := NewPipeline(options).Acquire(context.Background(), url, rec.record)
			So(errors.Is(err, &AcquisitionError{Reason: ReasonOutputMissing}), ShouldBeTrue)
			So(filesystem.Exists("/downloads/clip.mp4"), ShouldBeFalse)
			So(scratchEmpty(), ShouldBeTrue)
		})

		Convey("Only the reported file is accepted, not other files next to it", func() {
			backend.fetch = func(_ context.Context, request Request, _ func(BackendProgress)) (Output, error) {
				writeOutput(request, "clip.f137.mp4")
				return Output{Path: filepath.Join(request.Dir, "clip.mp4")}, nil
			}

			item, err := NewPipeline(options).Acquire(context.Background(), url, nil)
			So(errors.Is(err, &AcquisitionError{Reason: ReasonOutputMissing}), ShouldBeTrue)
			So(item, ShouldResemble, media.Item{})
			So(filesystem.Exists("/downloads/clip.f137.mp4"), ShouldBeFalse)
		})

		Convey("A reported path outside the scratch directory is rejected", func() {
			So(filesystem.API().WriteFile("/elsewhere/clip.mp4", []byte("media"), 0o644), ShouldBeNil)
			backend.fetch = func(context.Context, Request, func(BackendProgress)) (Output, error) {
				return Output{Path: "/elsewhere/clip.mp4"}, nil
			}

			_, err := NewPipeline(options).Acquire(context.Background(), url, nil)
			So(errors.Is(err, &AcquisitionError{Reason: ReasonOutputMissing}), ShouldBeTrue)
		})

		Convey("Success without an output file fails with OutputMissing", func() {
			backend.fetch = func(context.Context, Request, func(BackendProgress)) (Output, error) {
				return Output{Path: "/tmp/yks/nowhere.mp4"}, nil
			}

			item, err := NewPipeline(options).Acquire(context.Background(), url, rec.record)
			So(errors.Is(err, &AcquisitionError{Reason: ReasonOutputMissing}), ShouldBeTrue)
			So(item, ShouldResemble, media.Item{})
			So(rec.statuses()[len(rec.statuses())-1], ShouldEqual, Failed)
			So(rec.terminals(), ShouldEqual, 1)
			So(scratchEmpty(), ShouldBeTrue)
		})

		Convey("An unplayable output fails with Unsupported", func() {
			backend.fetch = func(_ context.Context, request Request, _ func(BackendProgress)) (Output, error) {
				return Output{Path: writeOutput(request, "notes.txt")}, nil
			}

			_, err := NewPipeline(options).Acquire(context.Background(), url, nil)
			So(err, ShouldNotBeNil)
		})

		Convey("A missing tool fails before anything is fetched", func() {
			options.Dependencies = fakeDeps{err: &bootstrap.BootstrapError{Reason: bootstrap.ReasonDeclined}}

			_, err := NewPipeline(options).Acquire(context.Background(), url, rec.record)
			So(errors.Is(err, &AcquisitionError{Reason: ReasonMissingDependency}), ShouldBeTrue)
			So(backend.calls, ShouldEqual, 0)
			So(rec.statuses(), ShouldResemble, []Status{Pending, Failed})
		})

		Convey("A tool that is simply unavailable fails with MissingDependency", func() {
			options.Dependencies = fakeDeps{available: false}

			_, err := NewPipeline(options).Acquire(context.Background(), url, rec.record)
			So(errors.Is(err, &AcquisitionError{Reason: ReasonMissingDependency}), ShouldBeTrue)
			So(backend.calls, ShouldEqual, 0)
			So(rec.statuses(), ShouldResemble, []Status{Pending, Failed})
		})

		Convey("Tool download progress is reported while the task is pending", func() {
			options.Dependencies = fakeDeps{
				available: true,
				progress:  []bootstrap.Progress{{Fraction: 0.25, Rate: "2 MB/s"}, {Fraction: 1}},
			}
			backend.fetch = func(_ context.Context, request Request, _ func(BackendProgress)) (Output, error) {
				return Output{Path: writeOutput(request, "song.mp4")}, nil
			}

			_, err := NewPipeline(options).Acquire(context.Background(), url, rec.record)
			So(err, ShouldBeNil)

			installing := rec.installing()
			So(len(installing), ShouldEqual, 2)
			So(installing[0].Status, ShouldEqual, Pending)
			So(installing[0].Percent, ShouldEqual, 25)
			So(installing[0].Rate, ShouldEqual, "2 MB/s")
			So(installing[1].Percent, ShouldEqual, 100)
		})

		Convey("Cancelling while the tool is being installed reports Cancelled only", func() {
			started := make(chan struct{})
			options.Dependencies = fakeDeps{started: started}

			task := NewPipeline(options).Start(context.Background(), url, rec.record)
			<-started
			task.Cancel()
			_, err := task.Wait(context.Background())

			So(task.Status(), ShouldEqual, Cancelled)
			So(errors.Is(err, &AcquisitionError{Reason: ReasonCancelled}), ShouldBeTrue)
			So(errors.Is(err, &AcquisitionError{Reason: ReasonMissingDependency}), ShouldBeFalse)
			So(errors.Is(err, &bootstrap.BootstrapError{Reason: bootstrap.ReasonCancelled}), ShouldBeTrue)
			So(backend.calls, ShouldEqual, 0)
			So(rec.terminals(), ShouldEqual, 1)
		})

		Convey("A backend whose own tool cannot be installed fails with MissingDependency", func() {
			backend.fetch = func(context.Context, Request, func(BackendProgress)) (Output, error) {
				return Output{}, fmt.Errorf("%w: install yt-dlp: connection reset", ErrToolMissing)
			}

			_, err := NewPipeline(options).Acquire(context.Background(), url, nil)
			So(errors.Is(err, &AcquisitionError{Reason: ReasonMissingDependency}), ShouldBeTrue)
		})

		Convey("A backend error is a network failure", func() {
			backend.fetch = func(context.Context, Request, func(BackendProgress)) (Output, error) {
				return Output{}, errors.New("HTTP Error 403")
			}

			_, err := NewPipeline(options).Acquire(context.Background(), url, nil)
			So(errors.Is(err, &AcquisitionError{Reason: ReasonNetwork}), ShouldBeTrue)
		})

		Convey("Cancelling a running task cleans up before reporting Cancelled", func() {
			started := make(chan struct{})
			var sawScratch bool
			backend.fetch = func(ctx context.Context, request Request, onProgress func(BackendProgress)) (Output, error) {
				writeOutput(request, "song.mp4.part")
				sawScratch = filesystem.Exists(filepath.Join(request.Dir, "song.mp4.part"))
				close(started)
				<-ctx.Done()
				onProgress(BackendProgress{Stage: StageDownloading, Percent: 10})
				return Output{}, ctx.Err()
			}

			var cleanAtTerminal bool
			task := NewPipeline(options).Start(context.Background(), url, func(u Update) {
				if u.Status.IsTerminal() {
					cleanAtTerminal = scratchEmpty()
				}
				rec.record(u)
			})

			<-started
			task.Cancel()
			_, err := task.Wait(context.Background())

			So(sawScratch, ShouldBeTrue)
			So(errors.Is(err, &AcquisitionError{Reason: ReasonCancelled}), ShouldBeTrue)
			So(task.Status(), ShouldEqual, Cancelled)
			So(cleanAtTerminal, ShouldBeTrue)
			So(rec.terminals(), ShouldEqual, 1)
			So(filesystem.Exists("/downloads/song.mp4"), ShouldBeFalse)
		})
	})
}

func TestTask(t *testing.T) {
	Convey("Given a task", t, func() {
		rec := &recorder{}
		task := newTask("t", url, "/downloads", rec.record)

		Convey("Progress never moves back to an earlier stage", func() {
			task.advance(Converting, 50, "")
			task.advance(Downloading, 90, "")
			So(task.Status(), ShouldEqual, Converting)
		})

		Convey("Only the first terminal transition is reported", func() {
			task.settle(media.Item{}, errors.New("boom"))
			task.settle(media.Item{}, nil)
			task.advance(Downloading, 1, "")

			So(task.Status(), ShouldEqual, Failed)
			So(rec.statuses(), ShouldResemble, []Status{Failed})
		})

		Convey("Status names are stable", func() {
			So(Pending.String(), ShouldEqual, "pending")
			So(Cancelled.String(), ShouldEqual, "cancelled")
			So(Done.IsTerminal(), ShouldBeTrue)
			So(Converting.IsTerminal(), ShouldBeFalse)
		})
	})
}

func TestYTDLP(t *testing.T) {
	Convey("Given a yt-dlp backend whose first install fails", t, func() {
		attempts := 0
		backend := &YTDLP{installer: func(ctx context.Context) error {
			attempts++
			if attempts == 1 {
				return context.Canceled
			}
			return nil
		}}

		Convey("The failure is a missing tool and the next call installs again", func() {
			err := backend.ensureInstalled(context.Background())
			So(errors.Is(err, ErrToolMissing), ShouldBeTrue)
			So(errors.Is(err, context.Canceled), ShouldBeTrue)

			So(backend.ensureInstalled(context.Background()), ShouldBeNil)
			So(attempts, ShouldEqual, 2)

			Convey("And a successful install is not repeated", func() {
				So(backend.ensureInstalled(context.Background()), ShouldBeNil)
				So(attempts, ShouldEqual, 2)
			})
		})
	})

	Convey("The reported output is the last line yt-dlp printed", t, func() {
		So(reportedPath("/tmp/yks/acquire-1/clip [x].mp4\n"), ShouldEqual, "/tmp/yks/acquire-1/clip [x].mp4")
		So(reportedPath("[info] note\n/tmp/a.mp4\n\n"), ShouldEqual, "/tmp/a.mp4")
		So(reportedPath(""), ShouldBeEmpty)
	})
}
