// Package network provides the HTTP client and streaming download used for tool archives.
package network

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/yks-player/yks/constant"
)

// ChunkSize is the read granularity of Stream; progress and cancellation are checked once per chunk.
const ChunkSize = 32 * 1024

// PhaseTimeout bounds connecting and waiting for response headers. The body itself is
// streamed without an overall deadline, so large archives are not cut off.
const PhaseTimeout = 15 * time.Second

// Client is the shared HTTP client for downloads.
var Client = &http.Client{
	Transport: newTransport(),
}

func newTransport() *http.Transport {
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.DialContext = (&net.Dialer{Timeout: PhaseTimeout, KeepAlive: 30 * time.Second}).DialContext
	t.TLSHandshakeTimeout = PhaseTimeout
	t.ResponseHeaderTimeout = PhaseTimeout
	t.IdleConnTimeout = 30 * time.Second
	t.MaxIdleConnsPerHost = 4
	return t
}

// Progress is reported after every chunk.
type Progress struct {
	Downloaded int64
	// Total is -1 when the server did not announce a length.
	Total   int64
	Elapsed time.Duration
}

// Fraction returns the completed share in [0, 1], or 0 when the total is unknown.
func (p Progress) Fraction() float64 {
	if p.Total <= 0 {
		return 0
	}
	return min(float64(p.Downloaded)/float64(p.Total), 1)
}

// Rate returns the average transfer rate in human readable form, e.g. "4.2 MB/s".
func (p Progress) Rate() string {
	if p.Elapsed <= 0 {
		return ""
	}
	perSecond := float64(p.Downloaded) / p.Elapsed.Seconds()
	return humanize.Bytes(uint64(perSecond)) + "/s"
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	URL    string
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: unexpected status %d", e.URL, e.Status)
}

// Stream downloads url into w chunk by chunk. It stops with ctx.Err() as soon as the
// context is done, and with the callback's error if onChunk returns one.
func Stream(ctx context.Context, client *http.Client, url string, w io.Writer, onChunk func(Progress) error) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", constant.UserAgent)

	resp, err := client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{URL: url, Status: resp.StatusCode}
	}

	var (
		started  = time.Now()
		progress = Progress{Total: resp.ContentLength}
		buf      = make([]byte, ChunkSize)
	)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			if _, err := w.Write(buf[:n]); err != nil {
				return err
			}

			progress.Downloaded += int64(n)
			progress.Elapsed = time.Since(started)
			if onChunk != nil {
				if err := onChunk(progress); err != nil {
					return err
				}
			}
		}

		if readErr == io.EOF {
			return nil
		}
		if readErr != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return readErr
		}
	}
}
