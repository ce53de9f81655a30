package plugins

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	cmdutil "github.com/libreassistant/poco/internal/pococtl/cmd/util"
	"github.com/libreassistant/poco/pkg/cli/genericclioptions"
	"github.com/libreassistant/poco/pkg/utils/templates"
)

var restartExample = templates.Examples(`
	# Restart the search plugin
	pococtl plugins restart search`)

// RestartOptions holds the options for 'plugins restart' sub command.
type RestartOptions struct {
	factory cmdutil.Factory
	genericclioptions.IOStreams
}

// NewCmdRestart returns the 'plugins restart' sub command.
func NewCmdRestart(f cmdutil.Factory, ioStreams genericclioptions.IOStreams) *cobra.Command {
	o := &RestartOptions{factory: f, IOStreams: ioStreams}

	cmd := &cobra.Command{
		Use:                   "restart PLUGIN",
		DisableFlagsInUseLine: true,
		Short:                 "Stop then start a plugin",
		Example:               restartExample,
		Args:                  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			cmdutil.CheckErr(o.Run(cmd.Context(), args[0]))
		},
	}

	return cmd
}

// Run executes the 'plugins restart' sub command.
func (o *RestartOptions) Run(ctx context.Context, id string) error {
	p, err := o.factory.APIClient().RestartPlugin(ctx, id)
	if err != nil {
		return err
	}

	fmt.Fprintf(o.Out, "plugin %s is %s on port %d\n", p.ID, colorState(p.State), p.Port)

	return nil
}
