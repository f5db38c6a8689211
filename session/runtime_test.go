package session

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	. "github.com/smartystreets/goconvey/convey"
	"github.com/yks-player/yks/acquire"
	"github.com/yks-player/yks/bootstrap"
	"github.com/yks-player/yks/event"
	"github.com/yks-player/yks/filesystem"
	"github.com/yks-player/yks/media"
	"github.com/yks-player/yks/playback"
	"github.com/yks-player/yks/playback/playbacktest"
	"github.com/yks-player/yks/state"
)

const statePath = "/config/queue_state.json"

func touch(paths ...string) {
	for _, path := range paths {
		So(filesystem.API().MkdirAll(filepath.Dir(path), 0o755), ShouldBeNil)
		So(filesystem.API().WriteFile(path, []byte(path), 0o644), ShouldBeNil)
	}
}

func eventually(condition func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if condition() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return false
}

type recorder struct {
	mu     sync.Mutex
	events []event.Event
}

func (r *recorder) record(e event.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) kinds() []event.Kind {
	r.mu.Lock()
	defer r.mu.Unlock()
	kinds := make([]event.Kind, len(r.events))
	for i, e := range r.events {
		kinds[i] = e.Kind
	}
	return kinds
}

type readyTool struct{}

func (readyTool) EnsureAvailable(context.Context, func(bootstrap.Progress)) (bool, error) {
	return true, nil
}

func (readyTool) Path() string { return "/tools/ffmpeg" }

type fileBackend struct{}

func (fileBackend) Fetch(_ context.Context, request acquire.Request, onProgress func(acquire.BackendProgress)) (acquire.Output, error) {
	onProgress(acquire.BackendProgress{Stage: acquire.StageDownloading, Percent: 50})
	path := filepath.Join(request.Dir, "remote.mp4")
	if err := filesystem.API().WriteFile(path, []byte("video"), 0o644); err != nil {
		return acquire.Output{}, err
	}
	return acquire.Output{Path: path}, nil
}

func TestRuntime(t *testing.T) {
	Convey("Given a session over a fake player", t, func() {
		filesystem.SetMemMapFs()
		touch("/music/a.mp4", "/music/b.mp3", "/music/c.flac")
		So(filesystem.API().MkdirAll("/tmp/yks", 0o755), ShouldBeNil)

		logger, hook := test.NewNullLogger()
		store := state.NewStore(statePath, logger)
		player := playbacktest.New()
		ctx := context.Background()

		options := Options{
			Store:     store,
			Player:    player,
			Settings:  playback.Settings{Volume: 80, Rate: 1},
			Autoplay:  true,
			ShareRoot: "/cache/shared",
			Logger:    logger,
			Pipeline: acquire.NewPipeline(acquire.Options{
				Backend:      fileBackend{},
				Dependencies: readyTool{},
				DownloadsDir: "/downloads",
				ScratchRoot:  "/tmp/yks",
				Logger:       logger,
			}),
		}

		start := func() *Runtime {
			return Start(ctx, options)
		}

		Convey("A malformed state file starts an empty queue", func() {
			touch(statePath)
			So(filesystem.API().WriteFile(statePath, []byte("{not json"), 0o644), ShouldBeNil)

			r := start()
			defer r.Close(ctx)

			So(r.Snapshot().Items, ShouldBeEmpty)
			So(r.Snapshot().CurrentIndex, ShouldEqual, media.NoSelection)
			So(r.Status().State, ShouldEqual, playback.Idle)
		})

		Convey("A saved queue is validated, restored and its current item loaded", func() {
			a, _ := media.FromFile("/music/a.mp4")
			gone, _ := media.FromFile("/music/gone.mp3")
			b, _ := media.FromFile("/music/b.mp3")
			So(store.Save(media.Snapshot{Items: []media.Item{a, gone, b}, CurrentIndex: 2}), ShouldBeNil)

			r := start()
			defer r.Close(ctx)

			snapshot := r.Snapshot()
			So(snapshot.Items, ShouldHaveLength, 2)
			So(snapshot.CurrentIndex, ShouldEqual, 1)
			So(player.Source().Name, ShouldEqual, "b.mp3")
			So(r.Status().State, ShouldEqual, playback.Playing)
			So(store.Load().Items, ShouldHaveLength, 2)
		})

		Convey("Plugins see the restored item being loaded", func() {
			a, _ := media.FromFile("/music/a.mp4")
			b, _ := media.FromFile("/music/b.mp3")
			So(store.Save(media.Snapshot{Items: []media.Item{a, b}, CurrentIndex: 1}), ShouldBeNil)

			So(filesystem.API().MkdirAll("/plugins", 0o755), ShouldBeNil)
			So(filesystem.API().WriteFile("/plugins/watch.lua", []byte(`
function setup(session)
	session.subscribe("item_loaded", function(e)
		session.log("loaded " .. e.item.name)
	end)
end
`), 0o644), ShouldBeNil)
			options.PluginDir = "/plugins"

			r := start()
			defer r.Close(ctx)

			So(eventually(func() bool {
				for _, entry := range hook.AllEntries() {
					if entry.Message == "loaded b.mp3" {
						return true
					}
				}
				return false
			}), ShouldBeTrue)
		})

		Convey("With an empty queue", func() {
			r := start()
			defer r.Close(ctx)

			events := &recorder{}
			for _, kind := range event.Kinds() {
				r.Bus().Subscribe("test", kind, events.record)
			}

			Convey("Adding files loads the first one and skips what cannot play", func() {
				added, err := r.AddFiles("/music/a.mp4", "/music/notes.txt", "/music/missing.mp3", "/music/b.mp3")
				So(err, ShouldBeNil)
				So(added, ShouldEqual, 2)

				So(r.Snapshot().CurrentIndex, ShouldEqual, 0)
				So(player.Source().Name, ShouldEqual, "a.mp4")
				So(events.kinds(), ShouldResemble, []event.Kind{event.ItemLoaded, event.StateChanged, event.QueueChanged})
				So(store.Load().Items, ShouldHaveLength, 2)

				Convey("Adding more keeps the current item", func() {
					_, err := r.AddFiles("/music/c.flac")
					So(err, ShouldBeNil)
					So(r.Snapshot().CurrentIndex, ShouldEqual, 0)
					So(r.Snapshot().Items, ShouldHaveLength, 3)
				})

				Convey("The end of an item advances to the next one", func() {
					player.Emit(playback.Event{Kind: playback.EndOfMedia})

					So(eventually(func() bool { return r.Snapshot().CurrentIndex == 1 }), ShouldBeTrue)
					So(eventually(func() bool { return player.Source().Name == "b.mp3" }), ShouldBeTrue)
					So(events.kinds(), ShouldContain, event.ItemEnded)
					So(store.Load().CurrentIndex, ShouldEqual, 1)

					Convey("And the end of the last one wraps to the first", func() {
						player.Emit(playback.Event{Kind: playback.EndOfMedia})
						So(eventually(func() bool { return r.Snapshot().CurrentIndex == 0 }), ShouldBeTrue)
					})
				})

				Convey("A player error goes idle and the queue is saved", func() {
					So(filesystem.API().Remove(statePath), ShouldBeNil)

					player.Emit(playback.Event{Kind: playback.ErrorOccurred, Message: "broken"})

					So(eventually(func() bool { return r.Status().State == playback.Idle }), ShouldBeTrue)
					So(eventually(func() bool { return filesystem.Exists(statePath) }), ShouldBeTrue)
					So(store.Load().Items, ShouldHaveLength, 2)
					So(events.kinds(), ShouldContain, event.StateChanged)
				})

				Convey("With repeat on the end of an item restarts it", func() {
					repeat, err := r.ToggleRepeat()
					So(err, ShouldBeNil)
					So(repeat, ShouldBeTrue)
					player.Calls()

					player.Emit(playback.Event{Kind: playback.EndOfMedia})
					So(eventually(func() bool {
						for _, kind := range events.kinds() {
							if kind == event.ItemEnded {
								return true
							}
						}
						return false
					}), ShouldBeTrue)
					So(r.Snapshot().CurrentIndex, ShouldEqual, 0)
					So(player.Calls(), ShouldResemble, []string{"seek 0s", "play"})
				})

				Convey("Removing the current item loads the one that shifted into its place", func() {
					_, err := r.AddFiles("/music/c.flac")
					So(err, ShouldBeNil)

					So(r.Remove(0), ShouldBeNil)
					So(r.Snapshot().CurrentIndex, ShouldEqual, 0)
					So(player.Source().Name, ShouldEqual, "b.mp3")
				})

				Convey("Removing another item keeps the current one selected", func() {
					So(r.Select(1), ShouldBeNil)
					So(r.Remove(0), ShouldBeNil)
					So(r.Snapshot().CurrentIndex, ShouldEqual, 0)
					So(player.Source().Name, ShouldEqual, "b.mp3")
				})

				Convey("Next and previous wrap around", func() {
					So(r.Prev(), ShouldBeNil)
					So(r.Snapshot().CurrentIndex, ShouldEqual, 1)
					So(r.Next(), ShouldBeNil)
					So(r.Snapshot().CurrentIndex, ShouldEqual, 0)
				})

				Convey("Selecting outside the queue fails", func() {
					So(errors.Is(r.Select(7), ErrIndex), ShouldBeTrue)
				})

				Convey("Transport controls reach the player", func() {
					So(r.PlayPause(), ShouldBeNil)
					So(r.Status().State, ShouldEqual, playback.Paused)
					So(r.SetVolume(30), ShouldBeNil)
					muted, err := r.ToggleMute()
					So(err, ShouldBeNil)
					So(muted, ShouldBeTrue)
					So(r.SetRate(1.5), ShouldBeNil)
					So(r.Seek(time.Second), ShouldBeNil)

					status := r.Status()
					So(status.Settings, ShouldResemble, playback.Settings{Volume: 30, Muted: true, Rate: 1.5})
					So(status.Position, ShouldEqual, time.Second)
				})

				Convey("The queue survives a bundle round trip", func() {
					report, err := r.Export(ctx, "/share/mix")
					So(err, ShouldBeNil)
					So(report.Path, ShouldEqual, "/share/mix.zip")

					So(r.Remove(0, 1), ShouldBeNil)
					So(r.Snapshot().Items, ShouldBeEmpty)

					imported, err := r.Import(ctx, report.Path)
					So(err, ShouldBeNil)
					So(imported.Items, ShouldHaveLength, 2)

					snapshot := r.Snapshot()
					So(snapshot.CurrentIndex, ShouldEqual, 0)
					So(snapshot.Items[0].Name, ShouldEqual, "a.mp4")
					So(snapshot.Items[1].URL, ShouldStartWith, "/cache/shared/")
					So(player.Source().Name, ShouldEqual, "a.mp4")
				})
			})

			Convey("Removing the only item goes idle with nothing selected", func() {
				_, err := r.AddFiles("/music/a.mp4")
				So(err, ShouldBeNil)

				So(r.Remove(0), ShouldBeNil)
				So(r.Snapshot().Items, ShouldBeEmpty)
				So(r.Snapshot().CurrentIndex, ShouldEqual, media.NoSelection)
				So(r.Status().State, ShouldEqual, playback.Idle)
				So(store.Load().CurrentIndex, ShouldEqual, media.NoSelection)
			})

			Convey("An embedded item is handed to the external surface", func() {
				item, err := r.AddEmbedded("https://www.youtube.com/watch?v=dQw4w9WgXcQ")
				So(err, ShouldBeNil)
				So(item.Kind, ShouldEqual, media.RemoteEmbedded)
				So(r.Status().State, ShouldEqual, playback.External)
				So(r.SetVolume(10), ShouldEqual, playback.ErrExternal)
			})

			Convey("A remote item is appended once acquired", func() {
				task, err := r.AddRemote(ctx, "https://www.youtube.com/watch?v=dQw4w9WgXcQ")
				So(err, ShouldBeNil)

				item, err := task.Wait(ctx)
				So(err, ShouldBeNil)
				So(item.URL, ShouldEqual, "/downloads/remote.mp4")

				So(eventually(func() bool { return len(r.Snapshot().Items) == 1 }), ShouldBeTrue)
				So(player.Source().Name, ShouldEqual, "remote.mp4")
				So(events.kinds(), ShouldContain, event.Acquisition)
			})
		})

		Convey("Closing saves, closes the player and rejects further work", func() {
			r := start()
			_, err := r.AddFiles("/music/a.mp4")
			So(err, ShouldBeNil)

			So(r.Close(ctx), ShouldBeNil)
			So(player.Closed(), ShouldBeTrue)
			So(store.Load().Items, ShouldHaveLength, 1)

			_, err = r.AddFiles("/music/b.mp3")
			So(err, ShouldEqual, ErrClosed)
		})
	})
}
