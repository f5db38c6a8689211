package cmd

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"runtime"

	"github.com/charmbracelet/lipgloss"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/yks-player/yks/icon"
	"github.com/yks-player/yks/key"
	"github.com/yks-player/yks/log"
	"github.com/yks-player/yks/style"
	"github.com/yks-player/yks/tui"
	"github.com/yks-player/yks/util"
)

func init() {
	rootCmd.AddCommand(playCmd)
}

var playCmd = &cobra.Command{
	Use:   "play [files...]",
	Short: "Open the player, adding the given files to the queue first",
	Args:  cobra.ArbitraryArgs,
	Run: func(cmd *cobra.Command, args []string) {
		handleErr(play(cmd, args))
	},
}

func play(cmd *cobra.Command, paths []string) error {
	CheckDependencies()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	plugins := viper.GetBool(key.PluginsEnable) && !lo.Must(cmd.Flags().GetBool("no-plugins"))
	session := interactive(ctx, plugins)

	if len(paths) > 0 {
		added, err := session.AddFiles(paths...)
		if err != nil {
			log.Warn(err)
		}
		if skipped := len(paths) - added; skipped > 0 {
			log.Warnf("%s skipped", util.Quantify(skipped, "file", "files"))
		}
	}

	err := tui.Run(ctx, &tui.Options{Runtime: session})
	if closeErr := session.Close(context.Background()); err == nil {
		err = closeErr
	}
	return err
}

// CheckDependencies exits when the configured player is not installed.
func CheckDependencies() {
	player := viper.GetString(key.Player)
	if _, err := exec.LookPath(player); err != nil {
		printMissingDependencyError(player)
		os.Exit(1)
	}
}

func printMissingDependencyError(dep string) {
	var installCmd string
	switch runtime.GOOS {
	case "darwin":
		installCmd = "brew install " + dep
	case "linux":
		installCmd = "sudo apt install " + dep
	case "windows":
		installCmd = "scoop install " + dep
	}

	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(style.HiRed).
		Padding(1, 2).
		Margin(1, 0)

	title := style.New().Bold(true).Foreground(style.HiRed).Render(fmt.Sprintf("%s Error: Missing Dependency", icon.Get(icon.Fail)))
	body := style.New().Foreground(style.Text).Render(fmt.Sprintf("The player '%s' was not found in your PATH.", dep))

	suggestion := ""
	if installCmd != "" {
		suggestion = fmt.Sprintf("\n\nTo install it, try running:\n  %s", style.New().Foreground(style.AccentColor).Bold(true).Render(installCmd))
	}

	fmt.Println(box.Render(
		lipgloss.JoinVertical(lipgloss.Left,
			title,
			"\n",
			body,
			suggestion,
		),
	))
}
