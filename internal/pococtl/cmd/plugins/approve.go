package plugins

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	cmdutil "github.com/libreassistant/poco/internal/pococtl/cmd/util"
	"github.com/libreassistant/poco/pkg/cli/genericclioptions"
	"github.com/libreassistant/poco/pkg/utils/templates"
)

var approveExample = templates.Examples(`
	# Approve every permission the search plugin declares
	pococtl plugins approve search`)

// ApproveOptions holds the options for 'plugins approve' sub command.
type ApproveOptions struct {
	factory cmdutil.Factory
	genericclioptions.IOStreams
}

// NewCmdApprove returns the 'plugins approve' sub command.
func NewCmdApprove(f cmdutil.Factory, ioStreams genericclioptions.IOStreams) *cobra.Command {
	o := &ApproveOptions{factory: f, IOStreams: ioStreams}

	cmd := &cobra.Command{
		Use:                   "approve PLUGIN",
		DisableFlagsInUseLine: true,
		Short:                 "Approve a plugin's declared permissions",
		Long: templates.LongDesc(`
			Approve every permission a plugin's manifest declares.

			The daemon refuses to start a plugin while any declared permission
			is missing from the approved set, so this is the step between
			discovering a plugin and starting it.`),
		Example: approveExample,
		Args:    cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			cmdutil.CheckErr(o.Run(cmd.Context(), args[0]))
		},
	}

	return cmd
}

// Run executes the 'plugins approve' sub command.
func (o *ApproveOptions) Run(ctx context.Context, id string) error {
	p, err := o.factory.APIClient().ApprovePlugin(ctx, id)
	if err != nil {
		return err
	}

	if len(p.Approved) > 0 {
		fmt.Fprintf(o.Out, "plugin %s approved for: %s\n", p.ID, strings.Join(p.Approved, ", "))
	} else {
		fmt.Fprintf(o.Out, "plugin %s declares no permissions; nothing to approve\n", p.ID)
	}

	return nil
}
