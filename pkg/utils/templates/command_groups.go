package templates

import (
	"github.com/spf13/cobra"
)

// CommandGroup is a named set of related subcommands shown together in help
// output.
type CommandGroup struct {
	Message  string
	Commands []*cobra.Command
}

// CommandGroups is the ordered list of command groups of a root command.
type CommandGroups []CommandGroup

// Add attaches every grouped command to c.
func (g CommandGroups) Add(c *cobra.Command) {
	for _, group := range g {
		c.AddCommand(group.Commands...)
	}
}

// Has reports whether c belongs to any group.
func (g CommandGroups) Has(c *cobra.Command) bool {
	for _, group := range g {
		for _, command := range group.Commands {
			if command == c {
				return true
			}
		}
	}

	return false
}

// AddAdditionalCommands appends a trailing group holding every visible
// command not already placed in a group.
func AddAdditionalCommands(g CommandGroups, message string, cmds []*cobra.Command) CommandGroups {
	group := CommandGroup{Message: message}
	for _, c := range cmds {
		// Don't show commands that have no short description.
		if !g.Has(c) && len(c.Short) != 0 {
			group.Commands = append(group.Commands, c)
		}
	}

	if len(group.Commands) == 0 {
		return g
	}

	return append(g, group)
}

func filter(cmds []*cobra.Command, names ...string) []*cobra.Command {
	out := []*cobra.Command{}
	for _, c := range cmds {
		if c.Hidden {
			continue
		}

		skip := false
		for _, name := range names {
			if name == c.Name() {
				skip = true

				break
			}
		}
		if skip {
			continue
		}

		out = append(out, c)
	}

	return out
}
