package filesystem

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestApi(t *testing.T) {
	Convey("Filesystem API", t, func() {
		Convey("Should default to OsFs", func() {
			SetOsFs()
			So(API().Name(), ShouldEqual, "OsFs")
		})

		Convey("Should switch to MemMapFs", func() {
			SetMemMapFs()
			So(API().Name(), ShouldEqual, "MemMapFS")
		})
	})
}

func TestWriteAtomic(t *testing.T) {
	Convey("Given an in-memory filesystem", t, func() {
		SetMemMapFs()

		Convey("WriteAtomic creates parents and leaves no temporary files", func() {
			So(WriteAtomic("/a/b/state.json", []byte("one"), 0o644), ShouldBeNil)
			So(WriteAtomic("/a/b/state.json", []byte("two"), 0o644), ShouldBeNil)

			data, err := API().ReadFile("/a/b/state.json")
			So(err, ShouldBeNil)
			So(string(data), ShouldEqual, "two")

			entries, err := API().ReadDir("/a/b")
			So(err, ShouldBeNil)
			So(entries, ShouldHaveLength, 1)
			So(Exists("/a/b/state.json"), ShouldBeTrue)
			So(Exists("/a/b"), ShouldBeFalse)
		})
	})
}
