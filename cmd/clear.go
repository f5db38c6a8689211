package cmd

import (
	"fmt"

	"github.com/AlecAivazis/survey/v2"
	"github.com/samber/lo"
	"github.com/samber/mo"
	"github.com/spf13/cobra"
	"github.com/yks-player/yks/filesystem"
	"github.com/yks-player/yks/icon"
	"github.com/yks-player/yks/util"
	"github.com/yks-player/yks/where"
)

// clearTarget is a file or directory the clear command can remove.
type clearTarget struct {
	name     string
	argLong  string
	argShort mo.Option[string]
	location func() string
	// confirm asks before removing user data.
	confirm bool
}

var clearTargets = []clearTarget{
	{"cache directory", "cache", mo.Some("c"), where.Cache, false},
	{"download history", "history", mo.Some("H"), where.History, false},
	{"saved queue", "state", mo.Some("s"), where.State, true},
	{"downloads directory", "downloads", mo.None[string](), where.Downloads, true},
	{"installed tools", "tools", mo.Some("t"), where.Tools, false},
}

func init() {
	rootCmd.AddCommand(clearCmd)

	for _, target := range clearTargets {
		help := fmt.Sprintf("clear %s", target.name)
		if short, ok := target.argShort.Get(); ok {
			clearCmd.Flags().BoolP(target.argLong, short, false, help)
		} else {
			clearCmd.Flags().Bool(target.argLong, false, help)
		}
	}

	clearCmd.Flags().BoolP("yes", "y", false, "Do not ask before removing the queue or downloads")
}

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Clear cached and saved application data",
	Run: func(cmd *cobra.Command, args []string) {
		yes := lo.Must(cmd.Flags().GetBool("yes"))

		selected := lo.Filter(clearTargets, func(target clearTarget, _ int) bool {
			return lo.Must(cmd.Flags().GetBool(target.argLong))
		})
		if len(selected) == 0 {
			handleErr(cmd.Help())
			return
		}

		for _, target := range selected {
			location := target.location()
			if !filesystem.Exists(location) {
				fmt.Printf("%s %s is already empty\n", icon.Get(icon.Success), util.Capitalize(target.name))
				continue
			}

			if target.confirm && !yes {
				var sure bool
				handleErr(survey.AskOne(&survey.Confirm{
					Message: fmt.Sprintf("Remove the %s at %s?", target.name, location),
				}, &sure))
				if !sure {
					continue
				}
			}

			erase := util.PrintErasable(fmt.Sprintf("%s Clearing %s...", icon.Get(icon.Progress), target.name))
			err := util.Delete(location)
			erase()
			handleErr(err)
			fmt.Printf("%s %s cleared\n", icon.Get(icon.Success), util.Capitalize(target.name))
		}
	},
}
