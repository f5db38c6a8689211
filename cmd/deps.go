package cmd

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"os/signal"

	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/yks-player/yks/bootstrap"
	"github.com/yks-player/yks/color"
	"github.com/yks-player/yks/icon"
	"github.com/yks-player/yks/key"
	"github.com/yks-player/yks/style"
	"github.com/yks-player/yks/util"
)

func init() {
	rootCmd.AddCommand(depsCmd)
}

var depsCmd = &cobra.Command{
	Use:   "deps",
	Short: "Inspect and install the external tools used for playback and downloads",
}

func init() {
	depsCmd.AddCommand(depsCheckCmd)
	depsCheckCmd.SetOut(os.Stdout)
}

var depsCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Report which external tools are available",
	Run: func(cmd *cobra.Command, args []string) {
		report := func(name, location string, ok bool) {
			mark := lo.Ternary(ok, style.Fg(color.Green)(icon.Get(icon.Success)), style.Fg(color.Red)(icon.Get(icon.Fail)))
			cmd.Printf("%s %s %s\n", mark, style.Bold(name), style.Faint(location))
		}

		player := viper.GetString(key.Player)
		path, err := exec.LookPath(player)
		report(player, lo.Ternary(err == nil, path, "not found in PATH"), err == nil)

		tool := ffmpeg(nil)
		report("ffmpeg", tool.Path(), tool.Installed())
	},
}

func init() {
	depsCmd.AddCommand(depsInstallCmd)
	depsInstallCmd.Flags().BoolP("yes", "y", false, "Install without asking")
}

var depsInstallCmd = &cobra.Command{
	Use:   "install",
	Short: "Download ffmpeg into the tools directory if it is missing",
	Run: func(cmd *cobra.Command, args []string) {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		consent := askConsent
		if lo.Must(cmd.Flags().GetBool("yes")) {
			consent = func(context.Context) bool { return true }
		}

		tool := ffmpeg(consent)
		if tool.Installed() {
			fmt.Printf("%s ffmpeg is already installed at %s\n", icon.Get(icon.Success), tool.Path())
			return
		}

		erase := func() {}
		installed, err := tool.EnsureAvailable(ctx, func(p bootstrap.Progress) {
			erase()
			erase = util.PrintErasable(fmt.Sprintf("%s downloading ffmpeg %3.0f%% %s", icon.Get(icon.Progress), p.Fraction*100, p.Rate))
		})
		erase()
		handleErr(err)

		if installed {
			fmt.Printf("%s installed ffmpeg to %s\n", style.Fg(color.Green)(icon.Get(icon.Success)), tool.Path())
		}
	},
}
