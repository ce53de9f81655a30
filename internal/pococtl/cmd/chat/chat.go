// Package chat implements the one-shot 'pococtl chat' command.
package chat

import (
	"context"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/libreassistant/poco/internal/pococtl/api"
	cmdutil "github.com/libreassistant/poco/internal/pococtl/cmd/util"
	"github.com/libreassistant/poco/pkg/cli/genericclioptions"
	"github.com/libreassistant/poco/pkg/utils/templates"
)

var chatExample = templates.Examples(`
	# Send a single message through the daemon
	pococtl chat "What's the latest AI news?"

	# Continue a stored conversation
	pococtl chat --conversation 4f1f6dfc "And summarize it"

	# Answer without letting the model invoke plugins
	pococtl chat --no-plugins "Explain goroutines"`)

// ChatOptions holds the options for the 'chat' sub command.
type ChatOptions struct {
	Model          string
	ConversationID string
	NoPlugins      bool
	Plain          bool

	factory cmdutil.Factory
	genericclioptions.IOStreams
}

// NewChatOptions returns an initialized ChatOptions instance.
func NewChatOptions(f cmdutil.Factory, ioStreams genericclioptions.IOStreams) *ChatOptions {
	return &ChatOptions{
		factory:   f,
		IOStreams: ioStreams,
	}
}

// NewCmdChat returns the 'chat' sub command.
func NewCmdChat(f cmdutil.Factory, ioStreams genericclioptions.IOStreams) *cobra.Command {
	o := NewChatOptions(f, ioStreams)

	cmd := &cobra.Command{
		Use:                   "chat MESSAGE",
		DisableFlagsInUseLine: true,
		Short:                 "Send one chat turn through the poco daemon",
		Long: templates.LongDesc(`
			Send one message through the daemon's dispatch loop and print the
			final reply.

			The daemon may invoke running plugins while serving the turn; the
			plugin calls it made are listed after the reply. Markdown replies
			are rendered when standard output is a terminal.`),
		Example: chatExample,
		Args:    cobra.MinimumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			cmdutil.CheckErr(o.Run(cmd.Context(), args))
		},
	}

	cmd.Flags().StringVar(&o.Model, "model", o.Model, "Advisory model name passed with the turn")
	cmd.Flags().StringVar(&o.ConversationID, "conversation", o.ConversationID, "Stored conversation to continue")
	cmd.Flags().BoolVar(&o.NoPlugins, "no-plugins", o.NoPlugins, "Answer without invoking plugins")
	cmd.Flags().BoolVar(&o.Plain, "plain", o.Plain, "Print the raw reply without markdown rendering")

	return cmd
}

// Run executes the 'chat' sub command.
func (o *ChatOptions) Run(ctx context.Context, args []string) error {
	req := &api.ChatRequest{
		Message:        strings.Join(args, " "),
		Model:          o.Model,
		ConversationID: o.ConversationID,
	}
	if o.NoPlugins {
		enable := false
		req.EnablePlugins = &enable
	}

	resp, err := o.factory.APIClient().Chat(ctx, req)
	if err != nil {
		return err
	}

	reply := resp.Reply
	if resp.Markdown && !o.Plain {
		reply = renderMarkdown(o.Out, reply)
	}
	fmt.Fprintln(o.Out, reply)

	if resp.NonCompliant {
		fmt.Fprintf(o.ErrOut, "%s the model reply did not follow the response schema; raw text shown\n", color.YellowString("Warning:"))
	}

	for _, inv := range resp.Invocations {
		status := inv.Status
		if status == "success" {
			status = color.GreenString(status)
		} else if status != "" {
			status = color.RedString(status)
		}
		fmt.Fprintf(o.ErrOut, "  plugin %s: %s\n", inv.PluginID, status)
	}

	if resp.ConversationID != "" && o.ConversationID == "" {
		fmt.Fprintf(o.ErrOut, "conversation: %s\n", resp.ConversationID)
	}

	return nil
}
