package plugins

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gosuri/uitable"
	"github.com/spf13/cobra"

	cmdutil "github.com/libreassistant/poco/internal/pococtl/cmd/util"
	"github.com/libreassistant/poco/internal/pococtl/api"
	"github.com/libreassistant/poco/pkg/cli/genericclioptions"
	"github.com/libreassistant/poco/pkg/utils/templates"
)

var statusExample = templates.Examples(`
	# Show the runtime status of the search plugin
	pococtl plugins status search`)

// StatusOptions holds the options for 'plugins status' sub command.
type StatusOptions struct {
	factory cmdutil.Factory
	genericclioptions.IOStreams
}

// NewCmdStatus returns the 'plugins status' sub command.
func NewCmdStatus(f cmdutil.Factory, ioStreams genericclioptions.IOStreams) *cobra.Command {
	o := &StatusOptions{factory: f, IOStreams: ioStreams}

	cmd := &cobra.Command{
		Use:                   "status PLUGIN",
		DisableFlagsInUseLine: true,
		Short:                 "Show one plugin's descriptor and runtime state",
		Example:               statusExample,
		Args:                  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			cmdutil.CheckErr(o.Run(cmd.Context(), args[0]))
		},
	}

	return cmd
}

// Run executes the 'plugins status' sub command.
func (o *StatusOptions) Run(ctx context.Context, id string) error {
	p, err := o.factory.APIClient().PluginStatus(ctx, id)
	if err != nil {
		return err
	}

	printPluginDetail(o.IOStreams, p)

	return nil
}

func printPluginDetail(streams genericclioptions.IOStreams, p *api.PluginInfo) {
	table := uitable.New()
	table.MaxColWidth = 100

	table.AddRow("ID:", p.ID)
	table.AddRow("Name:", p.Name)
	table.AddRow("Version:", p.Version)
	if p.Description != "" {
		table.AddRow("Description:", p.Description)
	}
	if p.Author != "" {
		table.AddRow("Author:", p.Author)
	}
	table.AddRow("Port:", fmt.Sprintf("%d", p.Port))
	table.AddRow("State:", colorState(p.State))
	if p.PID != 0 {
		table.AddRow("PID:", fmt.Sprintf("%d", p.PID))
	}
	if p.UptimeSeconds > 0 {
		table.AddRow("Uptime:", (time.Duration(p.UptimeSeconds) * time.Second).String())
	}
	table.AddRow("Restarts:", fmt.Sprintf("%d", p.Restarts))
	if p.Crashes > 0 {
		table.AddRow("Crashes:", fmt.Sprintf("%d", p.Crashes))
	}
	if p.LastError != "" {
		table.AddRow("Last error:", p.LastError)
	}
	if len(p.Permissions) > 0 {
		table.AddRow("Permissions:", strings.Join(p.Permissions, ", "))
	}
	if len(p.Approved) > 0 {
		table.AddRow("Approved:", strings.Join(p.Approved, ", "))
	}
	if len(p.Missing) > 0 {
		table.AddRow("Missing:", strings.Join(p.Missing, ", "))
	}

	fmt.Fprintln(streams.Out, table)
}
