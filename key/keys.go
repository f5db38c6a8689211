// Package key defines the canonical set of configuration identifiers used for centralized settings management.
package key

// Playback - session settings restored on every start.
const (
	Player        = "player.default"
	PlayerVolume  = "player.volume"
	PlayerMuted   = "player.muted"
	PlayerRate    = "player.rate"
	PlayerRepeat  = "player.repeat"
	PlayerBrowser = "player.browser"
)

// Downloads - acquisition of remote media.
const (
	DownloadsPath           = "downloads.path"
	DownloadsFormat         = "downloads.format"
	DownloadsOutputTemplate = "downloads.output_template"
	DownloadsRemember       = "downloads.remember"
	DownloadsSuggest        = "downloads.suggest"
)

// FFmpeg - transcode tool bootstrap.
const (
	FFmpegURL         = "ffmpeg.url"
	FFmpegAutoInstall = "ffmpeg.auto_install"
)

// Plugins
const (
	PluginsEnable = "plugins.enable"
)

// Iconography
const (
	IconsVariant = "icons.variant"
)

// Logging Infrastructure - these keys manage the application's internal diagnostics.
const (
	LogsWrite = "logs.write"
	LogsLevel = "logs.level"
	LogsJson  = "logs.json"
)

// CLI Execution Environment
const (
	CliColored = "cli.colored"
)
