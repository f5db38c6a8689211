package acquire

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/lrstanley/go-ytdlp"
	"github.com/yks-player/yks/constant"
)

// progressInterval is the finest interval go-ytdlp accepts; shorter ones are raised to it.
const progressInterval = 100 * time.Millisecond

// outputField makes yt-dlp print the final path once the file is in place.
const outputField = "after_move:filepath"

// YTDLP fetches remote media with yt-dlp, recoding the result into a locally playable container.
type YTDLP struct {
	mu        sync.Mutex
	installed bool
	// installer defaults to go-ytdlp's installer.
	installer func(ctx context.Context) error
}

// ensureInstalled installs yt-dlp once. Failures are not remembered, so a later
// acquisition retries the install.
func (y *YTDLP) ensureInstalled(ctx context.Context) error {
	y.mu.Lock()
	defer y.mu.Unlock()

	if y.installed {
		return nil
	}

	install := y.installer
	if install == nil {
		install = func(ctx context.Context) error {
			_, err := ytdlp.Install(ctx, nil)
			return err
		}
	}

	if err := install(ctx); err != nil {
		return fmt.Errorf("%w: install yt-dlp: %w", ErrToolMissing, err)
	}
	y.installed = true
	return nil
}

func (y *YTDLP) Fetch(ctx context.Context, request Request, onProgress func(BackendProgress)) (Output, error) {
	if err := y.ensureInstalled(ctx); err != nil {
		return Output{}, err
	}

	format := request.Format
	if format == "" {
		format = constant.DownloadFormat
	}
	template := request.OutputTemplate
	if template == "" {
		template = constant.DownloadOutputFormat
	}

	cmd := ytdlp.New().
		Format(format).
		Output(filepath.Join(request.Dir, template)).
		Print(outputField).
		NoPlaylist().
		NoCheckCertificates().
		ForceOverwrites().
		RecodeVideo(constant.ConvertContainer)

	if request.FFmpeg != "" {
		cmd = cmd.FFmpegLocation(request.FFmpeg)
	}

	var title string
	cmd.ProgressFunc(progressInterval, func(update ytdlp.ProgressUpdate) {
		if update.Info != nil && update.Info.Title != nil {
			title = *update.Info.Title
		}
		if onProgress != nil {
			onProgress(backendProgress(update))
		}
	})

	result, err := cmd.Run(ctx, request.URL)
	if err != nil {
		return Output{}, err
	}

	return Output{Path: reportedPath(result.Stdout), Title: title}, nil
}

// reportedPath returns the last path yt-dlp printed. Progress lines never reach stdout
// in the result, so what remains is the printed output field.
func reportedPath(stdout string) string {
	lines := strings.Split(stdout, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return ""
}

func backendProgress(update ytdlp.ProgressUpdate) BackendProgress {
	progress := BackendProgress{Stage: StageDownloading}

	switch string(update.Status) {
	case "post_processing", "finished":
		progress.Stage = StageConverting
		progress.Percent = 100
		return progress
	}

	if update.TotalBytes > 0 {
		progress.Percent = float64(update.DownloadedBytes) / float64(update.TotalBytes) * 100
	}

	if !update.Started.IsZero() {
		if elapsed := time.Since(update.Started).Seconds(); elapsed > 0 {
			progress.Rate = humanize.Bytes(uint64(float64(update.DownloadedBytes)/elapsed)) + "/s"
		}
	}

	return progress
}
