package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"sync"

	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/yks-player/yks/color"
	"github.com/yks-player/yks/event"
	"github.com/yks-player/yks/icon"
	"github.com/yks-player/yks/log"
	"github.com/yks-player/yks/media"
	"github.com/yks-player/yks/query"
	"github.com/yks-player/yks/session"
	"github.com/yks-player/yks/style"
	"github.com/yks-player/yks/util"
)

func init() {
	rootCmd.AddCommand(queueCmd)
}

var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Inspect and edit the saved queue without opening the player",
}

// positions parses 1-based queue positions into indices.
func positions(args []string) ([]int, error) {
	indices := make([]int, 0, len(args))
	for _, arg := range args {
		n, err := strconv.Atoi(arg)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("invalid position %q", arg)
		}
		indices = append(indices, n-1)
	}
	return indices, nil
}

func printMatches(cmd *cobra.Command, matches []media.Match, current int) {
	for _, m := range matches {
		line := fmt.Sprintf("%3d. %s %s", m.Index+1, m.Item.Name, style.Faint(string(m.Item.Kind)))
		if m.Index == current {
			line = style.Fg(color.Purple)(line + " " + icon.Get(icon.Play))
		}
		cmd.Println(line)
	}
}

func init() {
	queueCmd.AddCommand(queueListCmd)
	queueListCmd.Flags().StringP("filter", "f", "", "Only list items whose name fuzzily matches")
	queueListCmd.Flags().BoolP("json", "j", false, "Print the queue as JSON")
	queueListCmd.SetOut(os.Stdout)
}

var queueListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List the queue",
	Run: func(cmd *cobra.Command, args []string) {
		handleErr(withHeadless(context.Background(), func(r *session.Runtime) error {
			snapshot := r.Snapshot()

			if lo.Must(cmd.Flags().GetBool("json")) {
				encoder := json.NewEncoder(cmd.OutOrStdout())
				encoder.SetIndent("", "  ")
				return encoder.Encode(snapshot)
			}

			matches, err := r.Filter(lo.Must(cmd.Flags().GetString("filter")))
			if err != nil {
				return err
			}
			if len(snapshot.Items) == 0 {
				cmd.Println(style.Faint("the queue is empty"))
				return nil
			}

			printMatches(cmd, matches, snapshot.CurrentIndex)
			return nil
		}))
	},
}

func init() {
	queueCmd.AddCommand(queueRemoveCmd)
}

var queueRemoveCmd = &cobra.Command{
	Use:     "remove <position...>",
	Aliases: []string{"rm"},
	Short:   "Remove items by their 1-based position",
	Args:    cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		indices, err := positions(args)
		handleErr(err)

		handleErr(withHeadless(context.Background(), func(r *session.Runtime) error {
			before := len(r.Snapshot().Items)
			if err := r.Remove(indices...); err != nil {
				return err
			}
			removed := before - len(r.Snapshot().Items)
			fmt.Printf("%s removed %s\n", icon.Get(icon.Success), util.Quantify(removed, "item", "items"))
			return nil
		}))
	},
}

func init() {
	queueCmd.AddCommand(queueSelectCmd)
}

var queueSelectCmd = &cobra.Command{
	Use:   "select <position>",
	Short: "Make the item at position the current one",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		indices, err := positions(args)
		handleErr(err)

		handleErr(withHeadless(context.Background(), func(r *session.Runtime) error {
			if err := r.Select(indices[0]); err != nil {
				return err
			}
			item, _ := r.Snapshot().Current()
			fmt.Printf("%s selected %s\n", icon.Get(icon.Success), style.Fg(color.Yellow)(item.Name))
			return nil
		}))
	},
}

func init() {
	rootCmd.AddCommand(addCmd)
}

var addCmd = &cobra.Command{
	Use:   "add <files...>",
	Short: "Append local audio and video files to the queue",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		handleErr(withHeadless(context.Background(), func(r *session.Runtime) error {
			added, err := r.AddFiles(args...)
			fmt.Printf("%s added %s\n", icon.Get(icon.Success), util.Quantify(added, "item", "items"))
			if skipped := len(args) - added; skipped > 0 {
				fmt.Printf("%s skipped %s, see the log for details\n", icon.Get(icon.Warn), util.Quantify(skipped, "file", "files"))
			}
			return err
		}))
	},
}

func init() {
	rootCmd.AddCommand(addURLCmd)
	addURLCmd.Flags().BoolP("embed", "e", false, "Queue the video as an embedded item opened in the browser instead of downloading it")
}

var addURLCmd = &cobra.Command{
	Use:   "add-url <url>",
	Short: "Download an online video and append it to the queue",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		url := args[0]

		handleErr(withHeadless(ctx, func(r *session.Runtime) error {
			if lo.Must(cmd.Flags().GetBool("embed")) {
				item, err := r.AddEmbedded(url)
				if err != nil {
					return err
				}
				fmt.Printf("%s added %s\n", icon.Get(icon.Success), style.Fg(color.Yellow)(item.Name))
				return nil
			}

			var (
				mu    sync.Mutex
				erase = func() {}
			)
			r.Bus().Subscribe("cli", event.Acquisition, func(e event.Event) {
				mu.Lock()
				defer mu.Unlock()
				erase()
				erase = util.PrintErasable(fmt.Sprintf("%s %s %3.0f%% %s", icon.Get(icon.Download), e.Status, e.Percent, e.Message))
			})

			task, err := r.AddRemote(ctx, url)
			if err != nil {
				return err
			}
			if err := query.Remember(url, 1); err != nil {
				log.Warn(err)
			}

			item, err := task.Wait(ctx)
			r.Bus().Detach("cli")
			mu.Lock()
			erase()
			mu.Unlock()
			if err != nil {
				return err
			}

			fmt.Printf("%s added %s\n", icon.Get(icon.Success), style.Fg(color.Yellow)(item.Name))
			return nil
		}))
	},
}
