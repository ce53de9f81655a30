// Package cmd assembles the pococtl command tree.
package cmd

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/libreassistant/poco/internal/pococtl/cmd/chat"
	"github.com/libreassistant/poco/internal/pococtl/cmd/info"
	"github.com/libreassistant/poco/internal/pococtl/cmd/plugins"
	"github.com/libreassistant/poco/internal/pococtl/cmd/usage"
	cmdutil "github.com/libreassistant/poco/internal/pococtl/cmd/util"
	"github.com/libreassistant/poco/internal/pococtl/cmd/version"
	"github.com/libreassistant/poco/internal/pococtl/types"
	genericapiserver "github.com/libreassistant/poco/internal/pkg/server"
	"github.com/libreassistant/poco/pkg/cli/genericclioptions"
	"github.com/libreassistant/poco/pkg/utils/cliflag"
	"github.com/libreassistant/poco/pkg/utils/templates"
	"github.com/libreassistant/poco/pkg/version/verflag"
)

// NewDefaultPocoCtlCommand creates the `pococtl` command with default arguments.
func NewDefaultPocoCtlCommand() *cobra.Command {
	return NewPocoCtlCommand(os.Stdin, os.Stdout, os.Stderr)
}

// NewPocoCtlCommand returns a new initialized instance of the pococtl root
// command, bound to the given streams.
func NewPocoCtlCommand(in io.Reader, out, err io.Writer) *cobra.Command {
	// Parent command to which all subcommands are added.
	cmds := &cobra.Command{
		Use:   "pococtl",
		Short: "pococtl controls a running poco daemon",
		Long: templates.LongDesc(fmt.Sprintf(`%s
		pococtl is the CLI companion of the poco daemon.

		It talks to the daemon's loopback HTTP API to approve and drive
		plugins, send chat turns through the dispatch loop, and read the
		plugin usage analytics. Run a daemon first with 'pocod'.`, Banner())),
		Run: runHelp,
		// Hook before and after Run initialize and write profiles to disk,
		// respectively.
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return initProfiling()
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			return flushProfiling()
		},
	}
	flags := cmds.PersistentFlags()
	flags.SetNormalizeFunc(cliflag.WarnWordSepNormalizeFunc) // Warn for "_" flags

	// Normalize all flags that are coming from other packages or pre-configurations
	flags.SetNormalizeFunc(cliflag.WordSepNormalizeFunc)

	addProfilingFlags(flags)
	addGlobalFlags(flags)

	_ = viper.BindPFlags(cmds.PersistentFlags())
	cobra.OnInitialize(func() {
		genericapiserver.LoadConfig(viper.GetString(types.FlagPocoConfig), "pococtl")
	})
	cmds.PersistentFlags().AddGoFlagSet(flag.CommandLine)

	// From this point and forward we get warnings on flags that contain "_" separators
	cmds.SetGlobalNormalizationFunc(cliflag.WarnWordSepNormalizeFunc)

	ioStreams := genericclioptions.IOStreams{In: in, Out: out, ErrOut: err}
	f := cmdutil.NewDefaultFactory()

	groups := templates.CommandGroups{
		{
			Message: "Basic Commands:",
			Commands: []*cobra.Command{
				chat.NewCmdChat(f, ioStreams),
				plugins.NewCmdPlugins(f, ioStreams),
				usage.NewCmdUsage(f, ioStreams),
			},
		},
		{
			Message: "Diagnostic Commands:",
			Commands: []*cobra.Command{
				info.NewCmdInfo(f, ioStreams),
				version.NewCmdVersion(f, ioStreams),
			},
		},
	}
	groups.Add(cmds)

	filters := []string{"options"}
	templates.ActsAsRootCommand(cmds, filters, groups...)

	verflag.AddFlags(cmds.PersistentFlags())

	return cmds
}

func runHelp(cmd *cobra.Command, args []string) {
	_ = cmd.Help()
}
