package plugins

import (
	"context"
	"fmt"

	"github.com/gosuri/uitable"
	"github.com/spf13/cobra"

	cmdutil "github.com/libreassistant/poco/internal/pococtl/cmd/util"
	"github.com/libreassistant/poco/pkg/cli/genericclioptions"
	"github.com/libreassistant/poco/pkg/utils/templates"
)

var listExample = templates.Examples(`
	# List every known plugin with its runtime state
	pococtl plugins list

	# Include manifests the daemon rejected during the last scan
	pococtl plugins list --rejected`)

// ListOptions holds the options for 'plugins list' sub command.
type ListOptions struct {
	Rejected bool

	factory cmdutil.Factory
	genericclioptions.IOStreams
}

// NewListOptions returns an initialized ListOptions instance.
func NewListOptions(f cmdutil.Factory, ioStreams genericclioptions.IOStreams) *ListOptions {
	return &ListOptions{
		factory:   f,
		IOStreams: ioStreams,
	}
}

// NewCmdList returns the 'plugins list' sub command.
func NewCmdList(f cmdutil.Factory, ioStreams genericclioptions.IOStreams) *cobra.Command {
	o := NewListOptions(f, ioStreams)

	cmd := &cobra.Command{
		Use:                   "list",
		DisableFlagsInUseLine: true,
		Aliases:               []string{"ls"},
		Short:                 "List known plugins with their runtime status",
		Example:               listExample,
		Run: func(cmd *cobra.Command, args []string) {
			cmdutil.CheckErr(o.Run(cmd.Context()))
		},
	}

	cmd.Flags().BoolVar(&o.Rejected, "rejected", o.Rejected, "Also list manifests rejected during the last scan")

	return cmd
}

// Run executes the 'plugins list' sub command.
func (o *ListOptions) Run(ctx context.Context) error {
	list, err := o.factory.APIClient().Plugins(ctx)
	if err != nil {
		return err
	}

	if len(list.Plugins) == 0 {
		fmt.Fprintln(o.Out, "No plugins found. Drop a plugin directory under the daemon's plugins root and run 'pococtl plugins rescan'.")
	} else {
		table := uitable.New()
		table.MaxColWidth = 60
		table.AddRow("ID", "NAME", "VERSION", "PORT", "STATE", "RESTARTS", "LAST ERROR")
		for _, p := range list.Plugins {
			table.AddRow(p.ID, p.Name, p.Version, p.Port, colorState(p.State), p.Restarts, p.LastError)
		}
		fmt.Fprintln(o.Out, table)
	}

	if o.Rejected && len(list.Rejected) > 0 {
		fmt.Fprintf(o.Out, "\nRejected manifests:\n")
		table := uitable.New()
		table.MaxColWidth = 100
		table.AddRow("DIRECTORY", "REASON")
		for dir, reason := range list.Rejected {
			table.AddRow(dir, reason)
		}
		fmt.Fprintln(o.Out, table)
	}

	return nil
}
