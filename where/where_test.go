package where

import (
	"path/filepath"
	"testing"

	"github.com/samber/lo"
	. "github.com/smartystreets/goconvey/convey"
	"github.com/yks-player/yks/filesystem"
)

func init() {
	filesystem.SetMemMapFs()
}

func TestPaths(t *testing.T) {
	Convey("Directories are created on first use", t, func() {
		for _, dir := range []func() string{Config, Cache, Logs, Plugins, Downloads, Tools, Temp} {
			path := dir()
			So(path, ShouldNotBeEmpty)
			So(lo.Must(filesystem.API().IsDir(path)), ShouldBeTrue)
		}
	})

	Convey("Records live next to the config or the cache", t, func() {
		So(filepath.Dir(URLs()), ShouldEqual, Cache())
		So(filepath.Dir(History()), ShouldEqual, Config())
	})
}
