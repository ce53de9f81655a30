package plugins

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	cmdutil "github.com/libreassistant/poco/internal/pococtl/cmd/util"
	"github.com/libreassistant/poco/pkg/cli/genericclioptions"
	"github.com/libreassistant/poco/pkg/utils/templates"
)

var stopExample = templates.Examples(`
	# Stop the search plugin
	pococtl plugins stop search`)

// StopOptions holds the options for 'plugins stop' sub command.
type StopOptions struct {
	factory cmdutil.Factory
	genericclioptions.IOStreams
}

// NewCmdStop returns the 'plugins stop' sub command.
func NewCmdStop(f cmdutil.Factory, ioStreams genericclioptions.IOStreams) *cobra.Command {
	o := &StopOptions{factory: f, IOStreams: ioStreams}

	cmd := &cobra.Command{
		Use:                   "stop PLUGIN",
		DisableFlagsInUseLine: true,
		Short:                 "Stop a running plugin",
		Example:               stopExample,
		Args:                  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			cmdutil.CheckErr(o.Run(cmd.Context(), args[0]))
		},
	}

	return cmd
}

// Run executes the 'plugins stop' sub command.
func (o *StopOptions) Run(ctx context.Context, id string) error {
	p, err := o.factory.APIClient().StopPlugin(ctx, id)
	if err != nil {
		return err
	}

	fmt.Fprintf(o.Out, "plugin %s is %s\n", p.ID, colorState(p.State))

	return nil
}
