package network

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestStream(t *testing.T) {
	Convey("Given a server with a payload", t, func() {
		payload := strings.Repeat("x", 3*ChunkSize+10)
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/missing":
				w.WriteHeader(http.StatusNotFound)
				return
			case "/unsized":
				w.Header().Set("Transfer-Encoding", "chunked")
			default:
				w.Header().Set("Content-Length", strconv.Itoa(len(payload)))
			}
			_, _ = w.Write([]byte(payload))
		}))
		defer server.Close()

		Convey("The whole body is written and progress reaches one", func() {
			var buf bytes.Buffer
			var last Progress
			calls := 0

			err := Stream(context.Background(), Client, server.URL, &buf, func(p Progress) error {
				calls++
				last = p
				return nil
			})
			So(err, ShouldBeNil)
			So(buf.String(), ShouldEqual, payload)
			So(calls, ShouldBeGreaterThanOrEqualTo, 4)
			So(last.Total, ShouldEqual, int64(len(payload)))
			So(last.Fraction(), ShouldEqual, 1)
		})

		Convey("A body of unknown length is streamed without a fraction", func() {
			var buf bytes.Buffer
			var last Progress

			err := Stream(context.Background(), Client, server.URL+"/unsized", &buf, func(p Progress) error {
				last = p
				return nil
			})
			So(err, ShouldBeNil)
			So(buf.String(), ShouldEqual, payload)
			So(last.Total, ShouldEqual, int64(-1))
			So(last.Downloaded, ShouldEqual, int64(len(payload)))
			So(last.Fraction(), ShouldEqual, 0)
		})

		Convey("The callback can abort the transfer", func() {
			stop := errors.New("stop")
			err := Stream(context.Background(), Client, server.URL, &bytes.Buffer{}, func(Progress) error {
				return stop
			})
			So(errors.Is(err, stop), ShouldBeTrue)
		})

		Convey("Error statuses are reported", func() {
			err := Stream(context.Background(), Client, server.URL+"/missing", &bytes.Buffer{}, nil)
			var statusErr *StatusError
			So(errors.As(err, &statusErr), ShouldBeTrue)
			So(statusErr.Status, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestProgress(t *testing.T) {
	Convey("Progress", t, func() {
		So(Progress{Downloaded: 5, Total: -1}.Fraction(), ShouldEqual, 0)
		So(Progress{Downloaded: 5, Total: 10}.Fraction(), ShouldEqual, 0.5)
		So(Progress{Downloaded: 2000, Elapsed: time.Second}.Rate(), ShouldEqual, "2.0 kB/s")
		So(Progress{}.Rate(), ShouldBeEmpty)
	})
}
