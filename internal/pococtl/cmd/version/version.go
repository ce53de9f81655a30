// Package version implements the 'pococtl version' command.
package version

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	cmdutil "github.com/libreassistant/poco/internal/pococtl/cmd/util"
	"github.com/libreassistant/poco/pkg/cli/genericclioptions"
	"github.com/libreassistant/poco/pkg/utils/templates"
	"github.com/libreassistant/poco/pkg/version"
)

var versionExample = templates.Examples(`
	# Print the client and daemon version information
	pococtl version

	# Print the client version only
	pococtl version --client`)

// Options holds the options for the 'version' sub command.
type Options struct {
	ClientOnly bool

	factory cmdutil.Factory
	genericclioptions.IOStreams
}

// NewCmdVersion returns the 'version' sub command.
func NewCmdVersion(f cmdutil.Factory, ioStreams genericclioptions.IOStreams) *cobra.Command {
	o := &Options{factory: f, IOStreams: ioStreams}

	cmd := &cobra.Command{
		Use:                   "version",
		DisableFlagsInUseLine: true,
		Short:                 "Print the client and daemon version information",
		Example:               versionExample,
		Args:                  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			cmdutil.CheckErr(o.Run(cmd.Context()))
		},
	}

	cmd.Flags().BoolVar(&o.ClientOnly, "client", o.ClientOnly, "Show the client version only; do not contact the daemon")

	return cmd
}

// Run executes the 'version' sub command.
func (o *Options) Run(ctx context.Context) error {
	client := version.Get()
	fmt.Fprintf(o.Out, "Client Version: %s (%s, %s)\n", client.GitVersion, client.GoVersion, client.Platform)

	if o.ClientOnly {
		return nil
	}

	server, err := o.factory.APIClient().Version(ctx)
	if err != nil {
		fmt.Fprintf(o.ErrOut, "Daemon unreachable: %v\n", err)

		return nil
	}

	fmt.Fprintf(o.Out, "Daemon Version: %s (%s, %s)\n", server.GitVersion, server.GoVersion, server.Platform)

	return nil
}
