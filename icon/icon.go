// Package icon provides a multi-variant rendering engine for UI symbols and feedback indicators.
//
// Icons can be displayed as emoji, nerd-font glyphs, plain ASCII, kaomoji,
// or Unicode squares depending on user preference.
package icon

import (
	"github.com/spf13/viper"
	"github.com/yks-player/yks/key"
)

const (
	emoji   = "emoji"
	nerd    = "nerd"
	plain   = "plain"
	kaomoji = "kaomoji"
	squares = "squares"
)

// AvailableVariants returns a slice of all registered icon style identifiers.
func AvailableVariants() []string {
	return []string{emoji, nerd, plain, kaomoji, squares}
}

// Icon identifies a symbol in the registry.
type Icon int

const (
	Lua Icon = iota + 1
	Success
	Fail
	Warn
	Progress
	Play
	Pause
	Stop
	Repeat
	Muted
	Download
	Web
)

type iconDef struct {
	emoji   string
	nerd    string
	plain   string
	kaomoji string
	squares string
}

func (d iconDef) get() string {
	switch viper.GetString(key.IconsVariant) {
	case emoji:
		return d.emoji
	case nerd:
		return d.nerd
	case plain:
		return d.plain
	case kaomoji:
		return d.kaomoji
	case squares:
		return d.squares
	default:
		return ""
	}
}

var icons = map[Icon]iconDef{
	Lua:      {emoji: "🌙", nerd: "\ue620", plain: "Lua", kaomoji: "(=^･ω･^=)", squares: "🟦"},
	Success:  {emoji: "🎉", nerd: "\uf00c", plain: "Success", kaomoji: "(ᵔ◡ᵔ)", squares: "🟩"},
	Fail:     {emoji: "💀", nerd: "\uf00d", plain: "Error", kaomoji: "(╯°□°)╯︵ ┻━┻", squares: "🟥"},
	Warn:     {emoji: "⚠️", nerd: "\uf071", plain: "Warning", kaomoji: "(・_・;)", squares: "🟨"},
	Progress: {emoji: "⏳", nerd: "\uf110", plain: "...", kaomoji: "(・ω・)", squares: "🟪"},
	Play:     {emoji: "▶️", nerd: "\uf04b", plain: ">", kaomoji: "(ﾉ◕ヮ◕)ﾉ", squares: "🟩"},
	Pause:    {emoji: "⏸️", nerd: "\uf04c", plain: "||", kaomoji: "(-_-)zzz", squares: "🟨"},
	Stop:     {emoji: "⏹️", nerd: "\uf04d", plain: "[]", kaomoji: "(￣ー￣)", squares: "⬛"},
	Repeat:   {emoji: "🔁", nerd: "\uf01e", plain: "R", kaomoji: "(↻)", squares: "🟦"},
	Muted:    {emoji: "🔇", nerd: "\uf6a9", plain: "M", kaomoji: "(´-ω-`)", squares: "⬜"},
	Download: {emoji: "📥", nerd: "\uf019", plain: "v", kaomoji: "(っ˘ڡ˘ς)", squares: "🟫"},
	Web:      {emoji: "🌐", nerd: "\uf0ac", plain: "@", kaomoji: "(◕‿◕)", squares: "🟧"},
}

// Get returns the rendered string for an icon under the configured variant.
func Get(i Icon) string {
	return icons[i].get()
}
