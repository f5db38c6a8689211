package cmd

import (
	"os"

	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/yks-player/yks/color"
	"github.com/yks-player/yks/style"
	"github.com/yks-player/yks/where"
)

type location struct {
	title string
	flag  string
	short string
	path  func() string
}

// locations lists what where prints. Entries without a short flag are hidden
// from the overview and only printed when asked for.
var locations = []location{
	{"Config", "config", "c", where.Config},
	{"Plugins", "plugins", "p", where.Plugins},
	{"Downloads", "downloads", "d", where.Downloads},
	{"State", "state", "s", where.State},
	{"Logs", "logs", "l", where.Logs},
	{"Tools", "tools", "", where.Tools},
	{"Cache", "cache", "", where.Cache},
	{"Temp", "temp", "", where.Temp},
	{"History", "history", "", where.History},
}

func init() {
	rootCmd.AddCommand(whereCmd)
	whereCmd.SetOut(os.Stdout)

	for _, l := range locations {
		whereCmd.Flags().BoolP(l.flag, l.short, false, l.title+" path")
		if l.short == "" {
			lo.Must0(whereCmd.Flags().MarkHidden(l.flag))
		}
	}

	whereCmd.MarkFlagsMutuallyExclusive(lo.Map(locations, func(l location, _ int) string {
		return l.flag
	})...)
}

var whereCmd = &cobra.Command{
	Use:   "where",
	Short: "Show where configuration, state, plugins and downloads are stored",
	Run: func(cmd *cobra.Command, args []string) {
		for _, l := range locations {
			if lo.Must(cmd.Flags().GetBool(l.flag)) {
				cmd.Println(l.path())
				return
			}
		}

		header := style.New().Bold(true).Foreground(color.HiPurple).Render
		visible := lo.Filter(locations, func(l location, _ int) bool {
			return l.short != ""
		})

		for i, l := range visible {
			cmd.Printf("%s %s\n", header(l.title), style.Fg(color.Yellow)("--"+l.flag))
			cmd.Println(l.path())

			if i < len(visible)-1 {
				cmd.Println()
			}
		}
	},
}
