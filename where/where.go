// Package where implements a cross-platform resolver for application-specific filesystem paths.
package where

import (
	"os"
	"path/filepath"

	"github.com/samber/lo"
	"github.com/spf13/viper"
	"github.com/yks-player/yks/constant"
	"github.com/yks-player/yks/filesystem"
	"github.com/yks-player/yks/key"
)

// EnvConfigPath is the environment variable identifier used to override the default configuration directory.
const EnvConfigPath = "YKS_CONFIG_PATH"

// ensureDir guarantees the existence of a directory at the specified path, creating it if necessary.
func ensureDir(path string) string {
	lo.Must0(filesystem.API().MkdirAll(path, os.ModePerm))
	return path
}

// Config resolves the absolute path to the primary application configuration directory.
// The path can be overridden with the YKS_CONFIG_PATH environment variable.
func Config() string {
	if custom, ok := os.LookupEnv(EnvConfigPath); ok {
		return ensureDir(custom)
	}

	base := lo.Must(os.UserConfigDir())
	return ensureDir(filepath.Join(base, constant.App))
}

// Cache resolves the absolute path to the application's persistent cache directory.
func Cache() string {
	base, err := os.UserCacheDir()
	if err != nil {
		base = filepath.Join(".", "cache")
	}
	return ensureDir(filepath.Join(base, constant.App))
}

// Logs resolves the directory used for diagnostic logs.
func Logs() string {
	return ensureDir(filepath.Join(Config(), "logs"))
}

// Plugins resolves the directory scanned for plugin units.
func Plugins() string {
	return ensureDir(filepath.Join(Config(), "plugins"))
}

// State resolves the session state file.
func State() string {
	return filepath.Join(Config(), constant.StateFile)
}

// History resolves the registry of previously acquired remote media.
func History() string {
	return filepath.Join(Config(), "acquired.json")
}

// URLs resolves the record of entered media URLs used for suggestions.
func URLs() string {
	return filepath.Join(Cache(), "urls.json")
}

// Downloads resolves the directory acquired media is moved into.
// The downloads.path setting takes precedence over the default location.
func Downloads() string {
	if custom := viper.GetString(key.DownloadsPath); custom != "" {
		return ensureDir(custom)
	}
	return ensureDir(filepath.Join(Config(), "downloads"))
}

// Tools resolves the directory bootstrapped external binaries are installed into.
func Tools() string {
	return ensureDir(filepath.Join(Config(), "tools"))
}

// Temp resolves the root for per-task scratch directories.
func Temp() string {
	return ensureDir(filepath.Join(os.TempDir(), constant.App))
}
