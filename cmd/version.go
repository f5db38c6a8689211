package cmd

import (
	"os"
	"runtime"
	"strings"
	"text/template"

	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/yks-player/yks/color"
	"github.com/yks-player/yks/constant"
	"github.com/yks-player/yks/key"
	"github.com/yks-player/yks/style"
)

var versionTemplate = lo.Must(template.New("version").Funcs(template.FuncMap{
	"faint":  style.Faint,
	"bold":   style.Bold,
	"accent": style.Fg(color.Purple),
	"state": func(ok bool) string {
		return lo.Ternary(ok, style.Fg(color.Green)("installed"), style.Fg(color.Yellow)("missing"))
	},
}).Parse(`{{ accent .App }} {{ bold .Version }} {{ faint .Platform }}

{{ faint "revision" }} {{ .Revision }}
{{ faint "built" }}    {{ .BuiltAt }} {{ faint "by" }} {{ .BuiltBy }}
{{ faint "player" }}   {{ .Player }}
{{ faint "ffmpeg" }}   {{ state .FFmpeg }}
`))

func init() {
	rootCmd.AddCommand(versionCmd)
	versionCmd.SetOut(os.Stdout)
	versionCmd.Flags().BoolP("short", "s", false, "Print the version number only")
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version, build details and tool status",
	Run: func(cmd *cobra.Command, args []string) {
		if lo.Must(cmd.Flags().GetBool("short")) {
			cmd.Println(constant.Version)
			return
		}

		handleErr(versionTemplate.Execute(cmd.OutOrStdout(), map[string]any{
			"App":      constant.App,
			"Version":  constant.Version,
			"Platform": runtime.GOOS + "/" + runtime.GOARCH,
			"Revision": constant.Revision,
			"BuiltAt":  strings.TrimSpace(constant.BuiltAt),
			"BuiltBy":  constant.BuiltBy,
			"Player":   viper.GetString(key.Player),
			"FFmpeg":   ffmpeg(nil).Installed(),
		}))
	},
}
