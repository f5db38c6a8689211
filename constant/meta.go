// Package constant defines immutable application-level identifiers and configuration defaults.
package constant

const (
	// App is the canonical application identifier used for filesystem paths and CLI branding.
	App = "yks"

	// Version is the current application semantic version string.
	Version = "0.3.0"

	// UserAgent is sent with tool archive downloads.
	UserAgent = "yks/" + Version
)

// Build metadata, overridden with -ldflags at release time.
var (
	BuiltAt  = "unknown"
	BuiltBy  = "unknown"
	Revision = "unknown"
)
