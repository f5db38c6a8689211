package state

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/sirupsen/logrus/hooks/test"
	. "github.com/smartystreets/goconvey/convey"
	"github.com/yks-player/yks/filesystem"
	"github.com/yks-player/yks/media"
)

func writeZip(path string, entries map[string]string) {
	file, err := filesystem.API().Create(path)
	So(err, ShouldBeNil)
	archive := zip.NewWriter(file)
	for name, content := range entries {
		w, err := archive.Create(name)
		So(err, ShouldBeNil)
		_, err = w.Write([]byte(content))
		So(err, ShouldBeNil)
	}
	So(archive.Close(), ShouldBeNil)
	So(file.Close(), ShouldBeNil)
}

func TestBundleRoundTrip(t *testing.T) {
	Convey("Given a queue with local and remote entries", t, func() {
		filesystem.SetMemMapFs()
		logger, hook := test.NewNullLogger()
		ctx := context.Background()

		touch("/music/song.mp3")
		touch("/videos/song.mp3")
		touch("/videos/clip.mp4")

		song := media.NewItem("song.mp3", "/music/song.mp3", media.LocalAudio)
		again := media.NewItem("song.mp3 (again)", "/music/song.mp3", media.LocalAudio)
		other := media.NewItem("other song", "/videos/song.mp3", media.LocalAudio)
		clip := media.NewItem("clip.mp4", "/videos/clip.mp4", media.LocalVideo)
		web := media.NewItem("[YouTube] dQw4w9WgXcQ", "https://www.youtube.com/embed/dQw4w9WgXcQ?autoplay=1", media.RemoteEmbedded)

		snapshot := media.Snapshot{Items: []media.Item{song, again, other, clip, web}, CurrentIndex: 3}

		Convey("Exporting appends the extension and dedups by source path", func() {
			report, err := ExportBundle(ctx, snapshot, "/share/mix", logger)
			So(err, ShouldBeNil)
			So(report.Path, ShouldEqual, "/share/mix.zip")
			So(report.Items, ShouldEqual, 5)
			So(report.Files, ShouldEqual, 3)
			So(report.Skipped, ShouldBeEmpty)

			Convey("Importing restores an equivalent queue", func() {
				imported, err := ImportBundle(ctx, report.Path, "/cache/shared", logger)
				So(err, ShouldBeNil)
				So(imported.Items, ShouldHaveLength, 5)
				So(imported.CurrentIndex, ShouldEqual, 3)

				for i, item := range imported.Items {
					So(item.Name, ShouldEqual, snapshot.Items[i].Name)
					So(item.Kind, ShouldEqual, snapshot.Items[i].Kind)
				}

				So(imported.Items[4].URL, ShouldEqual, web.URL)
				So(imported.Items[0].URL, ShouldEqual, imported.Items[1].URL)
				So(imported.Items[0].URL, ShouldNotEqual, imported.Items[2].URL)
				So(strings.HasPrefix(imported.Items[0].URL, "/cache/shared/share-"), ShouldBeTrue)

				data, err := filesystem.API().ReadFile(imported.Items[2].URL)
				So(err, ShouldBeNil)
				So(string(data), ShouldEqual, "media:/videos/song.mp3")
			})

			Convey("Each import gets its own directory", func() {
				first, err := ImportBundle(ctx, report.Path, "/cache/shared", logger)
				So(err, ShouldBeNil)
				second, err := ImportBundle(ctx, report.Path, "/cache/shared", logger)
				So(err, ShouldBeNil)
				So(filepath.Dir(first.Items[0].URL), ShouldNotEqual, filepath.Dir(second.Items[0].URL))
			})
		})

		Convey("A vanished local file is skipped with a warning", func() {
			So(filesystem.API().Remove("/videos/clip.mp4"), ShouldBeNil)

			report, err := ExportBundle(ctx, snapshot, "/share/mix.zip", logger)
			So(err, ShouldBeNil)
			So(report.Skipped, ShouldResemble, []string{"/videos/clip.mp4"})
			So(report.Items, ShouldEqual, 4)
			So(hook.LastEntry().Message, ShouldContainSubstring, "/videos/clip.mp4")

			imported, err := ImportBundle(ctx, report.Path, "/cache/shared", logger)
			So(err, ShouldBeNil)
			So(imported.CurrentIndex, ShouldEqual, media.NoSelection)
		})

		Convey("An empty queue cannot be exported", func() {
			_, err := ExportBundle(ctx, media.EmptySnapshot(), "/share/none.zip", logger)
			var exportErr *ExportError
			So(errors.As(err, &exportErr), ShouldBeTrue)
			So(errors.Is(err, ErrEmptyQueue), ShouldBeTrue)
		})

		Convey("A cancelled export leaves nothing behind", func() {
			cancelled, cancel := context.WithCancel(ctx)
			cancel()

			_, err := ExportBundle(cancelled, snapshot, "/share/cancelled.zip", logger)
			So(errors.Is(err, context.Canceled), ShouldBeTrue)

			entries, _ := filesystem.API().ReadDir("/share")
			for _, entry := range entries {
				So(entry.Name(), ShouldNotStartWith, "cancelled")
			}
		})
	})
}

func TestImportBundleFailures(t *testing.T) {
	Convey("Given malformed bundles", t, func() {
		filesystem.SetMemMapFs()
		logger, _ := test.NewNullLogger()
		ctx := context.Background()

		Convey("A bundle without a manifest is rejected", func() {
			writeZip("/in/bare.zip", map[string]string{"a.mp3": "x"})
			_, err := ImportBundle(ctx, "/in/bare.zip", "/cache", logger)
			var importErr *ImportError
			So(errors.As(err, &importErr), ShouldBeTrue)
			So(errors.Is(err, ErrManifestMissing), ShouldBeTrue)
		})

		Convey("An unparsable manifest is rejected", func() {
			writeZip("/in/broken.zip", map[string]string{"playlist.json": "{nope"})
			_, err := ImportBundle(ctx, "/in/broken.zip", "/cache", logger)
			So(err, ShouldHaveSameTypeAs, &ImportError{})
		})

		Convey("A bundle whose files are all missing holds no valid media", func() {
			manifest := `{"media_list":[{"name":"a","url":"a.mp3","type":"local_audio"}],"current_index":0}`
			writeZip("/in/hollow.zip", map[string]string{"playlist.json": manifest})
			_, err := ImportBundle(ctx, "/in/hollow.zip", "/cache", logger)
			So(errors.Is(err, ErrNoValidMedia), ShouldBeTrue)
		})

		Convey("Entries escaping the bundle directory are ignored", func() {
			manifest := `{"media_list":[
				{"name":"evil","url":"../../etc/evil.mp3","type":"local_audio"},
				{"name":"good","url":"good.mp3","type":"local_audio"}
			],"current_index":1}`
			writeZip("/in/slip.zip", map[string]string{
				"playlist.json": manifest,
				"good.mp3":      "y",
			})

			imported, err := ImportBundle(ctx, "/in/slip.zip", "/cache", logger)
			So(err, ShouldBeNil)
			So(imported.Items, ShouldHaveLength, 1)
			So(imported.Items[0].Name, ShouldEqual, "good")
			So(imported.CurrentIndex, ShouldEqual, 0)
			So(filesystem.Exists("/etc/evil.mp3"), ShouldBeFalse)
		})

		Convey("A missing archive is an import error", func() {
			_, err := ImportBundle(ctx, "/in/nothing.zip", "/cache", logger)
			So(err, ShouldHaveSameTypeAs, &ImportError{})
		})
	})
}
