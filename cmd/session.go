package cmd

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/viper"
	"github.com/yks-player/yks/acquire"
	"github.com/yks-player/yks/bootstrap"
	"github.com/yks-player/yks/history"
	"github.com/yks-player/yks/key"
	"github.com/yks-player/yks/log"
	"github.com/yks-player/yks/open"
	"github.com/yks-player/yks/playback"
	"github.com/yks-player/yks/session"
	"github.com/yks-player/yks/state"
	"github.com/yks-player/yks/where"
)

// ffmpeg returns the bootstrapper of the transcode tool. A nil consent falls back
// to the auto install setting.
func ffmpeg(consent bootstrap.Consent) *bootstrap.Bootstrapper {
	if consent == nil {
		consent = func(context.Context) bool {
			return viper.GetBool(key.FFmpegAutoInstall)
		}
	}

	return bootstrap.New(bootstrap.Options{
		Path:        filepath.Join(where.Tools(), bootstrap.BinaryName("ffmpeg")),
		URL:         viper.GetString(key.FFmpegURL),
		Consent:     consent,
		ScratchRoot: where.Temp(),
	})
}

// askConsent prompts on the terminal unless auto install is enabled.
func askConsent(ctx context.Context) bool {
	if viper.GetBool(key.FFmpegAutoInstall) {
		return true
	}

	var response bool
	err := survey.AskOne(&survey.Confirm{
		Message: fmt.Sprintf("ffmpeg is required to convert downloads. Download it from %s?", viper.GetString(key.FFmpegURL)),
		Default: true,
	}, &response)
	if err != nil {
		log.Warn(err)
		return false
	}
	return response && ctx.Err() == nil
}

func pipeline(consent bootstrap.Consent) *acquire.Pipeline {
	options := acquire.Options{
		Backend:        &acquire.YTDLP{},
		Dependencies:   ffmpeg(consent),
		DownloadsDir:   where.Downloads(),
		ScratchRoot:    where.Temp(),
		Format:         viper.GetString(key.DownloadsFormat),
		OutputTemplate: viper.GetString(key.DownloadsOutputTemplate),
	}
	if viper.GetBool(key.DownloadsRemember) {
		options.Registry = history.Registry{}
	}

	return acquire.NewPipeline(options)
}

func store() *state.Store {
	return state.NewStore(where.State(), log.Component("state"))
}

func settings() playback.Settings {
	return playback.Settings{
		Volume: viper.GetInt(key.PlayerVolume),
		Muted:  viper.GetBool(key.PlayerMuted),
		Rate:   viper.GetFloat64(key.PlayerRate),
	}
}

// interactive starts a session that plays through mpv and, if enabled, runs plugins.
func interactive(ctx context.Context, plugins bool) *session.Runtime {
	options := session.Options{
		Store:     store(),
		Player:    playback.NewMPV(viper.GetString(key.Player), log.Component("mpv")),
		Opener:    open.Browser(viper.GetString(key.PlayerBrowser)),
		Settings:  settings(),
		Repeat:    viper.GetBool(key.PlayerRepeat),
		Autoplay:  true,
		Pipeline:  pipeline(nil),
		ShareRoot: filepath.Join(where.Cache(), "shared"),
	}
	if plugins {
		options.PluginDir = where.Plugins()
	}

	return session.Start(ctx, options)
}

// headless starts a session that edits the queue without playing anything.
func headless(ctx context.Context) *session.Runtime {
	return session.Start(ctx, session.Options{
		Store:     store(),
		Player:    playback.NewSilent(),
		Settings:  settings(),
		Pipeline:  pipeline(askConsent),
		ShareRoot: filepath.Join(where.Cache(), "shared"),
	})
}

// withHeadless runs fn against a headless session and closes it afterwards.
func withHeadless(ctx context.Context, fn func(*session.Runtime) error) error {
	runtime := headless(ctx)
	err := fn(runtime)
	if closeErr := runtime.Close(ctx); err == nil {
		err = closeErr
	}
	return err
}
