package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"

	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/yks-player/yks/color"
	"github.com/yks-player/yks/icon"
	"github.com/yks-player/yks/session"
	"github.com/yks-player/yks/state"
	"github.com/yks-player/yks/style"
	"github.com/yks-player/yks/util"
)

func init() {
	rootCmd.AddCommand(shareCmd)
}

var shareCmd = &cobra.Command{
	Use:   "share",
	Short: "Pack the queue with its files into a bundle, or replace it with one",
}

func init() {
	shareCmd.AddCommand(shareExportCmd)
}

var shareExportCmd = &cobra.Command{
	Use:   "export <path>",
	Short: "Write the queue and its local files to a zip bundle",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		handleErr(withHeadless(ctx, func(r *session.Runtime) error {
			report, err := r.Export(ctx, args[0])
			if err != nil {
				return err
			}

			for _, skipped := range report.Skipped {
				fmt.Printf("%s missing %s\n", icon.Get(icon.Warn), style.Faint(skipped))
			}
			fmt.Printf(
				"%s exported %s with %s to %s\n",
				style.Fg(color.Green)(icon.Get(icon.Success)),
				util.Quantify(report.Items, "item", "items"),
				util.Quantify(report.Files, "file", "files"),
				style.Fg(color.Yellow)(report.Path),
			)
			return nil
		}))
	},
}

func init() {
	shareCmd.AddCommand(shareImportCmd)
}

var shareImportCmd = &cobra.Command{
	Use:   "import <path>",
	Short: "Replace the queue with the contents of a bundle",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		handleErr(withHeadless(ctx, func(r *session.Runtime) error {
			snapshot, err := r.Import(ctx, args[0])
			if err != nil {
				return err
			}

			fmt.Printf(
				"%s imported %s\n",
				style.Fg(color.Green)(icon.Get(icon.Success)),
				util.Quantify(len(snapshot.Items), "item", "items"),
			)
			return nil
		}))
	},
}

func init() {
	rootCmd.AddCommand(stateCmd)
	stateCmd.AddCommand(stateSchemaCmd)
	stateSchemaCmd.Flags().BoolP("compact", "c", false, "Print the schema on a single line")
	stateSchemaCmd.SetOut(os.Stdout)
}

var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Inspect the saved session state",
}

var stateSchemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the JSON schema of the state file and bundle manifests",
	Run: func(cmd *cobra.Command, args []string) {
		encoder := json.NewEncoder(cmd.OutOrStdout())
		if !lo.Must(cmd.Flags().GetBool("compact")) {
			encoder.SetIndent("", "  ")
		}
		handleErr(encoder.Encode(state.Schema()))
	},
}
