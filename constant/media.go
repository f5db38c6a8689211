package constant

import "time"

// Wire names of the supported media kinds, as stored in the state file and share bundles.
const (
	KindLocalVideo     = "local_video"
	KindLocalAudio     = "local_audio"
	KindRemoteEmbedded = "youtube_video"
)

// AudioExtensions and VideoExtensions decide the kind of a local file.
var (
	AudioExtensions = []string{".mp3", ".wav", ".aac", ".flac"}
	VideoExtensions = []string{".mp4", ".avi", ".mkv", ".mov"}
)

const (
	// EmbedURLFormat builds the embeddable player URL from a video id.
	EmbedURLFormat = "https://www.youtube.com/embed/%s?autoplay=1"

	// EmbedNameFormat is the display name of an embedded item.
	EmbedNameFormat = "[YouTube] %s"
)

// Acquisition and bootstrap defaults.
const (
	FFmpegArchiveURL     = "https://www.gyan.dev/ffmpeg/builds/ffmpeg-release-essentials.zip"
	DownloadFormat       = "bestvideo[ext=mp4]+bestaudio[ext=m4a]/best[ext=mp4]/best"
	DownloadOutputFormat = "%(title)s [%(id)s].%(ext)s"
	ConvertContainer     = "mp4"

	// ScratchTTL is how long a scratch directory may sit untouched before startup removes it.
	ScratchTTL = 24 * time.Hour
)

// Persistence file names.
const (
	StateFile      = "queue_state.json"
	BundleManifest = "playlist.json"
	BundleExt      = ".zip"
)

// Playback rates offered by the player controls.
var PlaybackRates = []float64{0.5, 1.0, 1.25, 1.5, 2.0}
