// Package usage implements the 'pococtl usage' analytics command.
package usage

import (
	"context"
	"fmt"

	"github.com/gosuri/uitable"
	"github.com/spf13/cobra"

	cmdutil "github.com/libreassistant/poco/internal/pococtl/cmd/util"
	"github.com/libreassistant/poco/pkg/cli/genericclioptions"
	"github.com/libreassistant/poco/pkg/utils/templates"
)

var usageExample = templates.Examples(`
	# Show plugin usage analytics for recent sessions
	pococtl usage`)

// Options holds the options for the 'usage' sub command.
type Options struct {
	factory cmdutil.Factory
	genericclioptions.IOStreams
}

// NewCmdUsage returns the 'usage' sub command.
func NewCmdUsage(f cmdutil.Factory, ioStreams genericclioptions.IOStreams) *cobra.Command {
	o := &Options{factory: f, IOStreams: ioStreams}

	cmd := &cobra.Command{
		Use:                   "usage",
		DisableFlagsInUseLine: true,
		Short:                 "Show plugin usage analytics",
		Long: templates.LongDesc(`
			Show the daemon's plugin usage analytics: per-plugin invocation
			counts, success rates and average durations over the recent
			session archive.`),
		Example: usageExample,
		Args:    cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			cmdutil.CheckErr(o.Run(cmd.Context()))
		},
	}

	return cmd
}

// Run executes the 'usage' sub command.
func (o *Options) Run(ctx context.Context) error {
	report, err := o.factory.APIClient().Usage(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(o.Out, "Sessions: %d active, %d archived; %d invocations total\n",
		report.ActiveSessions, report.ArchivedSessions, report.TotalInvocations)
	if report.MostUsedPlugin != "" {
		fmt.Fprintf(o.Out, "Most used plugin: %s\n", report.MostUsedPlugin)
	}

	if len(report.Plugins) == 0 {
		fmt.Fprintln(o.Out, "No plugin invocations recorded yet.")

		return nil
	}

	fmt.Fprintln(o.Out)

	table := uitable.New()
	table.MaxColWidth = 60
	table.AddRow("PLUGIN", "CALLS", "OK", "FAILED", "BLOCKED", "SUCCESS", "AVG")
	for _, p := range report.Plugins {
		table.AddRow(
			p.PluginID,
			p.Invocations,
			p.Successes,
			p.Failures,
			p.Blocked,
			fmt.Sprintf("%.0f%%", p.SuccessRate*100),
			fmt.Sprintf("%.1fms", p.AvgDurationMS),
		)
	}
	fmt.Fprintln(o.Out, table)

	return nil
}
