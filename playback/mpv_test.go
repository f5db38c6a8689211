package playback

import (
	"bufio"
	"strings"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestSanitizeMediaTarget(t *testing.T) {
	Convey("Media targets", t, func() {
		Convey("Local paths are cleaned", func() {
			target, err := sanitizeMediaTarget(" /music/../music/a.mp4 ")
			So(err, ShouldBeNil)
			So(target, ShouldEqual, "/music/a.mp4")
		})

		Convey("Flags are rejected", func() {
			_, err := sanitizeMediaTarget("--script=evil.lua")
			So(err, ShouldNotBeNil)
		})

		Convey("Only web and file schemes pass", func() {
			_, err := sanitizeMediaTarget("https://example.com/a.mp4")
			So(err, ShouldBeNil)
			_, err = sanitizeMediaTarget("ytdl://whatever")
			So(err, ShouldNotBeNil)
		})

		Convey("Control characters are rejected", func() {
			_, err := sanitizeMediaTarget("a.mp4\nquit")
			So(err, ShouldNotBeNil)
		})
	})

	Convey("Titles lose control characters", t, func() {
		So(sanitizeTitle("a\tb\nc\x00"), ShouldEqual, "a b c")
	})
}

func TestArguments(t *testing.T) {
	Convey("mpv is started idle with a kept-open window and the socket", t, func() {
		args := arguments("/tmp/yks.sock")
		So(args, ShouldContain, "--input-ipc-server=/tmp/yks.sock")
		So(args, ShouldContain, "--idle=yes")
		So(args, ShouldContain, "--keep-open=yes")
	})
}

func TestParseEvent(t *testing.T) {
	Convey("mpv events map to player events", t, func() {
		event, ok := parseEvent([]byte(`{"event":"property-change","id":1,"name":"time-pos","data":1.5}`))
		So(ok, ShouldBeTrue)
		So(event, ShouldResemble, Event{Kind: PositionChanged, Position: 1500 * time.Millisecond})

		event, ok = parseEvent([]byte(`{"event":"property-change","id":2,"name":"duration","data":60}`))
		So(ok, ShouldBeTrue)
		So(event.Duration, ShouldEqual, time.Minute)

		event, ok = parseEvent([]byte(`{"event":"property-change","id":3,"name":"pause","data":true}`))
		So(ok, ShouldBeTrue)
		So(event.Paused, ShouldBeTrue)

		event, ok = parseEvent([]byte(`{"event":"property-change","id":4,"name":"eof-reached","data":true}`))
		So(ok, ShouldBeTrue)
		So(event.Kind, ShouldEqual, EndOfMedia)

		event, ok = parseEvent([]byte(`{"event":"end-file","reason":"error","file_error":"unrecognized file format"}`))
		So(ok, ShouldBeTrue)
		So(event, ShouldResemble, Event{Kind: ErrorOccurred, Message: "unrecognized file format"})

		Convey("Irrelevant lines are dropped", func() {
			_, ok := parseEvent([]byte(`{"event":"property-change","id":4,"name":"eof-reached","data":false}`))
			So(ok, ShouldBeFalse)
			_, ok = parseEvent([]byte(`{"event":"property-change","id":1,"name":"time-pos","data":null}`))
			So(ok, ShouldBeFalse)
			_, ok = parseEvent([]byte(`{"data":null,"error":"success","request_id":1}`))
			So(ok, ShouldBeFalse)
		})
	})
}

func TestReadReply(t *testing.T) {
	Convey("Replies are matched by request id", t, func() {
		stream := strings.Join([]string{
			`{"event":"playback-restart"}`,
			`{"data":1,"error":"success","request_id":6}`,
			`{"data":"ok","error":"success","request_id":7}`,
		}, "\n")

		data, err := readReply(bufio.NewScanner(strings.NewReader(stream)), 7)
		So(err, ShouldBeNil)
		So(data, ShouldEqual, "ok")

		Convey("An mpv error is returned", func() {
			_, err := readReply(bufio.NewScanner(strings.NewReader(`{"error":"property unavailable","request_id":2}`)), 2)
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "property unavailable")
		})

		Convey("A closed connection without a reply fails", func() {
			_, err := readReply(bufio.NewScanner(strings.NewReader("")), 1)
			So(err, ShouldNotBeNil)
		})
	})
}
