// Package plugins implements the pococtl commands that drive the daemon's
// plugin lifecycle: list, status, approve, start, stop, restart and rescan.
package plugins

import (
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	cmdutil "github.com/libreassistant/poco/internal/pococtl/cmd/util"
	"github.com/libreassistant/poco/pkg/cli/genericclioptions"
	"github.com/libreassistant/poco/pkg/utils/templates"
)

var pluginsLong = templates.LongDesc(`
	Manage the plugins supervised by the poco daemon.

	Plugins are local subprocesses described by a plugin.json manifest under
	the daemon's plugins root. The daemon refuses to start a plugin until its
	declared permissions have been approved.`)

// NewCmdPlugins groups the plugin lifecycle subcommands.
func NewCmdPlugins(f cmdutil.Factory, ioStreams genericclioptions.IOStreams) *cobra.Command {
	cmd := &cobra.Command{
		Use:                   "plugins SUBCOMMAND",
		DisableFlagsInUseLine: true,
		Short:                 "Manage the plugins supervised by the poco daemon",
		Long:                  pluginsLong,
		Run:                   cmdutil.DefaultSubCommandRun(ioStreams.ErrOut),
	}

	cmd.AddCommand(NewCmdList(f, ioStreams))
	cmd.AddCommand(NewCmdStatus(f, ioStreams))
	cmd.AddCommand(NewCmdApprove(f, ioStreams))
	cmd.AddCommand(NewCmdStart(f, ioStreams))
	cmd.AddCommand(NewCmdStop(f, ioStreams))
	cmd.AddCommand(NewCmdRestart(f, ioStreams))
	cmd.AddCommand(NewCmdRescan(f, ioStreams))

	return cmd
}

// colorState renders a plugin state with the conventional colors.
func colorState(state string) string {
	switch state {
	case "running":
		return color.GreenString(state)
	case "failed":
		return color.RedString(state)
	case "starting", "stopping":
		return color.YellowString(state)
	default:
		return state
	}
}
