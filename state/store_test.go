package state

import (
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	. "github.com/smartystreets/goconvey/convey"
	"github.com/yks-player/yks/filesystem"
	"github.com/yks-player/yks/media"
)

func init() {
	filesystem.SetMemMapFs()
}

func touch(path string) {
	So(filesystem.API().WriteFile(path, []byte("media:"+path), 0o644), ShouldBeNil)
}

func TestStoreLoad(t *testing.T) {
	Convey("Given a store", t, func() {
		filesystem.SetMemMapFs()
		logger, hook := test.NewNullLogger()
		store := NewStore("/config/queue_state.json", logger)

		Convey("A missing file loads as an empty queue without logging", func() {
			snapshot := store.Load()
			So(snapshot.Items, ShouldBeEmpty)
			So(snapshot.CurrentIndex, ShouldEqual, media.NoSelection)
			So(hook.Entries, ShouldBeEmpty)
		})

		Convey("A malformed file loads as an empty queue and is logged", func() {
			So(filesystem.API().WriteFile(store.Path(), []byte(`{"media_list": [`), 0o644), ShouldBeNil)

			snapshot := store.Load()
			So(snapshot.Items, ShouldBeEmpty)
			So(snapshot.CurrentIndex, ShouldEqual, media.NoSelection)
			So(hook.LastEntry().Level, ShouldEqual, logrus.ErrorLevel)
		})

		Convey("An out of range index is cleared", func() {
			data := `{"media_list":[{"name":"a","url":"/a.mp4","type":"local_video"}],"current_index":3}`
			So(filesystem.API().WriteFile(store.Path(), []byte(data), 0o644), ShouldBeNil)

			snapshot := store.Load()
			So(snapshot.Items, ShouldHaveLength, 1)
			So(snapshot.CurrentIndex, ShouldEqual, media.NoSelection)
		})

		Convey("Saved state loads back", func() {
			saved := media.Snapshot{
				Items: []media.Item{
					media.NewItem("a.mp4", "/m/a.mp4", media.LocalVideo),
					media.NewItem("[YouTube] dQw4w9WgXcQ", "https://www.youtube.com/embed/dQw4w9WgXcQ?autoplay=1", media.RemoteEmbedded),
				},
				CurrentIndex: 1,
			}
			So(store.Save(saved), ShouldBeNil)

			loaded := store.Load()
			So(loaded.CurrentIndex, ShouldEqual, 1)
			So(loaded.Items, ShouldHaveLength, 2)
			So(loaded.Items[0].URL, ShouldEqual, "/m/a.mp4")
			So(loaded.Items[1].Kind, ShouldEqual, media.RemoteEmbedded)

			raw, err := filesystem.API().ReadFile(store.Path())
			So(err, ShouldBeNil)
			So(string(raw), ShouldContainSubstring, `"media_list"`)
			So(string(raw), ShouldContainSubstring, `"current_index": 1`)
		})

		Convey("An empty queue saves as an empty list", func() {
			So(store.Save(media.Snapshot{CurrentIndex: media.NoSelection}), ShouldBeNil)
			raw, _ := filesystem.API().ReadFile(store.Path())
			So(string(raw), ShouldContainSubstring, `"media_list": []`)
		})
	})
}

func TestStoreSaveFailure(t *testing.T) {
	Convey("Given a read-only filesystem", t, func() {
		filesystem.SetMemMapFs()
		So(filesystem.API().WriteFile("/ro/queue_state.json", []byte("{}"), 0o644), ShouldBeNil)
		filesystem.SetReadOnly()
		defer filesystem.SetMemMapFs()

		logger, _ := test.NewNullLogger()
		store := NewStore("/ro/queue_state.json", logger)

		Convey("Save reports a persistence error", func() {
			err := store.Save(media.EmptySnapshot())
			var persistErr *PersistenceError
			So(errors.As(err, &persistErr), ShouldBeTrue)
			So(persistErr.Path, ShouldEqual, "/ro/queue_state.json")
		})
	})
}

func TestValidate(t *testing.T) {
	Convey("Given persisted entries, some of which are gone", t, func() {
		filesystem.SetMemMapFs()
		logger, hook := test.NewNullLogger()
		store := NewStore("/config/queue_state.json", logger)

		touch("/m/a.mp4")
		touch("/m/c.mp3")

		a := media.NewItem("a.mp4", "/m/a.mp4", media.LocalVideo)
		b := media.NewItem("b.mp4", "/m/b.mp4", media.LocalVideo)
		c := media.NewItem("c.mp3", "/m/c.mp3", media.LocalAudio)
		web := media.NewItem("[YouTube] x", "https://www.youtube.com/embed/xxxxxxxxxxx?autoplay=1", media.RemoteEmbedded)

		Convey("The surviving current item keeps its selection at its new index", func() {
			valid := store.Validate(media.Snapshot{Items: []media.Item{a, b, c, web}, CurrentIndex: 2})
			So(valid.Items, ShouldHaveLength, 3)
			So(valid.CurrentIndex, ShouldEqual, 1)
			So(valid.Items[1].ID, ShouldEqual, c.ID)
			So(hook.Entries, ShouldHaveLength, 1)
			So(hook.LastEntry().Level, ShouldEqual, logrus.WarnLevel)
		})

		Convey("A removed current item clears the selection", func() {
			valid := store.Validate(media.Snapshot{Items: []media.Item{a, b, c}, CurrentIndex: 1})
			So(valid.Items, ShouldHaveLength, 2)
			So(valid.CurrentIndex, ShouldEqual, media.NoSelection)
		})

		Convey("Remote entries are never dropped", func() {
			valid := store.Validate(media.Snapshot{Items: []media.Item{web}, CurrentIndex: 0})
			So(valid.CurrentIndex, ShouldEqual, 0)
		})
	})
}

func TestSchema(t *testing.T) {
	Convey("The state schema names the persisted fields", t, func() {
		schema := Schema()
		So(schema, ShouldNotBeNil)
		_, ok := schema.Properties.Get("media_list")
		So(ok, ShouldBeTrue)
		_, ok = schema.Properties.Get("current_index")
		So(ok, ShouldBeTrue)
	})
}
