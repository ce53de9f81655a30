package plugins

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	cmdutil "github.com/libreassistant/poco/internal/pococtl/cmd/util"
	"github.com/libreassistant/poco/pkg/cli/genericclioptions"
	"github.com/libreassistant/poco/pkg/utils/templates"
)

var rescanExample = templates.Examples(`
	# Reload the plugin manifests from disk
	pococtl plugins rescan`)

// RescanOptions holds the options for 'plugins rescan' sub command.
type RescanOptions struct {
	factory cmdutil.Factory
	genericclioptions.IOStreams
}

// NewCmdRescan returns the 'plugins rescan' sub command.
func NewCmdRescan(f cmdutil.Factory, ioStreams genericclioptions.IOStreams) *cobra.Command {
	o := &RescanOptions{factory: f, IOStreams: ioStreams}

	cmd := &cobra.Command{
		Use:                   "rescan",
		DisableFlagsInUseLine: true,
		Short:                 "Reload plugin manifests from the plugins root",
		Example:               rescanExample,
		Args:                  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			cmdutil.CheckErr(o.Run(cmd.Context()))
		},
	}

	return cmd
}

// Run executes the 'plugins rescan' sub command.
func (o *RescanOptions) Run(ctx context.Context) error {
	list, err := o.factory.APIClient().Rescan(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(o.Out, "scanned %d plugins, %d rejected\n", len(list.Plugins), len(list.Rejected))
	for dir, reason := range list.Rejected {
		fmt.Fprintf(o.Out, "  %s: %s\n", dir, reason)
	}

	return nil
}
