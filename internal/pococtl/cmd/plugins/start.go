package plugins

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	cmdutil "github.com/libreassistant/poco/internal/pococtl/cmd/util"
	"github.com/libreassistant/poco/pkg/cli/genericclioptions"
	"github.com/libreassistant/poco/pkg/utils/templates"
)

var startExample = templates.Examples(`
	# Start the search plugin
	pococtl plugins start search

	# Start with per-run option overrides
	pococtl plugins start search --option region=eu --option depth=3`)

// StartOptions holds the options for 'plugins start' sub command.
type StartOptions struct {
	Options map[string]string

	factory cmdutil.Factory
	genericclioptions.IOStreams
}

// NewCmdStart returns the 'plugins start' sub command.
func NewCmdStart(f cmdutil.Factory, ioStreams genericclioptions.IOStreams) *cobra.Command {
	o := &StartOptions{factory: f, IOStreams: ioStreams}

	cmd := &cobra.Command{
		Use:                   "start PLUGIN",
		DisableFlagsInUseLine: true,
		Short:                 "Start a plugin subprocess and wait for readiness",
		Example:               startExample,
		Args:                  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			cmdutil.CheckErr(o.Run(cmd.Context(), args[0]))
		},
	}

	cmd.Flags().StringToStringVar(&o.Options, "option", nil, "Override a manifest option for this run (repeatable, key=value)")

	return cmd
}

// Run executes the 'plugins start' sub command.
func (o *StartOptions) Run(ctx context.Context, id string) error {
	p, err := o.factory.APIClient().StartPlugin(ctx, id, o.Options)
	if err != nil {
		return err
	}

	fmt.Fprintf(o.Out, "plugin %s is %s on port %d\n", p.ID, colorState(p.State), p.Port)

	return nil
}
