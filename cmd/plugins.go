package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"strings"
	"text/template"

	levenshtein "github.com/ka-weihe/fast-levenshtein"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/yks-player/yks/color"
	"github.com/yks-player/yks/constant"
	"github.com/yks-player/yks/event"
	"github.com/yks-player/yks/filesystem"
	"github.com/yks-player/yks/icon"
	"github.com/yks-player/yks/log"
	"github.com/yks-player/yks/plugin"
	"github.com/yks-player/yks/session"
	"github.com/yks-player/yks/style"
	"github.com/yks-player/yks/util"
	"github.com/yks-player/yks/where"
)

func init() {
	rootCmd.AddCommand(pluginsCmd)
}

var pluginsCmd = &cobra.Command{
	Use:   "plugins",
	Short: "Manage Lua plugins that react to session events",
}

// discovered lists the plugin ids in the plugin directory.
func discovered() []string {
	ids, err := plugin.NewHost(plugin.Options{Dir: where.Plugins()}).Discover()
	if err != nil {
		log.Warn(err)
	}
	return ids
}

func errUnknownPlugin(id string, known []string) error {
	if len(known) == 0 {
		return fmt.Errorf("unknown plugin %s, no plugins are installed", style.Fg(color.Red)(id))
	}

	closest := lo.MinBy(known, func(a, b string) bool {
		return levenshtein.Distance(id, a) < levenshtein.Distance(id, b)
	})
	return fmt.Errorf("unknown plugin %s, did you mean %s?", style.Fg(color.Red)(id), style.Fg(color.Yellow)(closest))
}

func completionPlugins(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
	return discovered(), cobra.ShellCompDirectiveNoFileComp
}

func init() {
	pluginsCmd.AddCommand(pluginsListCmd)
	pluginsListCmd.SetOut(os.Stdout)
}

var pluginsListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List the installed plugins",
	Run: func(cmd *cobra.Command, args []string) {
		for _, id := range discovered() {
			cmd.Println(id)
		}
	},
}

func init() {
	pluginsCmd.AddCommand(pluginsCheckCmd)
	pluginsCheckCmd.SetOut(os.Stdout)
}

var pluginsCheckCmd = &cobra.Command{
	Use:     "check",
	Aliases: []string{"reload"},
	Short:   "Load every plugin against the saved queue and report failures",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		handleErr(withHeadless(ctx, func(r *session.Runtime) error {
			host := plugin.NewHost(plugin.Options{
				Dir:     where.Plugins(),
				Bus:     event.NewBus(log.Component("bus")),
				Session: r,
			})
			defer host.Close(ctx)

			err := host.LoadAll(ctx)

			failed := make(map[string]error)
			var pluginErr *plugin.PluginError
			for _, e := range unjoin(err) {
				if errors.As(e, &pluginErr) {
					failed[pluginErr.ID] = e
				}
			}

			for _, id := range discovered() {
				switch {
				case failed[id] != nil:
					cmd.Printf("%s %s %s\n", style.Fg(color.Red)(icon.Get(icon.Fail)), id, style.Faint(failed[id].Error()))
				case host.Active(id):
					cmd.Printf("%s %s\n", style.Fg(color.Green)(icon.Get(icon.Success)), id)
				default:
					cmd.Printf("%s %s %s\n", style.Fg(color.Yellow)(icon.Get(icon.Warn)), id, style.Faint("no "+constant.PluginSetupFn+" function"))
				}
			}

			return lo.Ternary(len(failed) > 0, fmt.Errorf("%s failed", util.Quantify(len(failed), "plugin", "plugins")), nil)
		}))
	},
}

// unjoin splits an errors.Join result back into its parts.
func unjoin(err error) []error {
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		return joined.Unwrap()
	}
	return lo.Ternary(err == nil, nil, []error{err})
}

func init() {
	pluginsCmd.AddCommand(pluginsRemoveCmd)
}

var pluginsRemoveCmd = &cobra.Command{
	Use:               "remove <name...>",
	Short:             "Delete installed plugins",
	Args:              cobra.MinimumNArgs(1),
	ValidArgsFunction: completionPlugins,
	Run: func(cmd *cobra.Command, args []string) {
		known := discovered()
		for _, id := range args {
			if !lo.Contains(known, id) {
				handleErr(errUnknownPlugin(id, known))
			}

			path := filepath.Join(where.Plugins(), id+constant.PluginExtension)
			handleErr(filesystem.API().Remove(path))
			fmt.Printf("%s removed %s\n", icon.Get(icon.Success), style.Fg(color.Yellow)(id))
		}
	},
}

func init() {
	pluginsCmd.AddCommand(pluginsGenCmd)
	pluginsGenCmd.Flags().StringP("name", "n", "", "Name of the new plugin")
	lo.Must0(pluginsGenCmd.MarkFlagRequired("name"))
	pluginsGenCmd.SetOut(os.Stdout)
}

var pluginsGenCmd = &cobra.Command{
	Use:   "gen",
	Short: "Scaffold a new plugin from the template",
	Run: func(cmd *cobra.Command, args []string) {
		author := "Anonymous"
		if usr, err := user.Current(); err == nil {
			author = usr.Username
		}

		s := struct {
			Name       string
			Author     string
			SetupFn    string
			TeardownFn string
		}{
			Name:       lo.Must(cmd.Flags().GetString("name")),
			Author:     author,
			SetupFn:    constant.PluginSetupFn,
			TeardownFn: constant.PluginTeardownFn,
		}

		funcMap := template.FuncMap{
			"repeat": strings.Repeat,
			"plus":   func(a, b int) int { return a + b },
			"max":    util.Max[int],
		}

		tmpl, err := template.New("plugin").Funcs(funcMap).Parse(constant.PluginTemplate)
		handleErr(err)

		name := strings.TrimLeft(util.SanitizeFilename(s.Name), "_")
		if name == "" || name == "init" {
			handleErr(fmt.Errorf("%q cannot be used as a plugin name", s.Name))
		}

		target := filepath.Join(where.Plugins(), name+constant.PluginExtension)
		if filesystem.Exists(target) {
			handleErr(fmt.Errorf("%s already exists", target))
		}

		f, err := filesystem.API().Create(target)
		handleErr(err)
		defer util.Ignore(f.Close)

		handleErr(tmpl.Execute(f, s))
		cmd.Println(target)
	},
}
