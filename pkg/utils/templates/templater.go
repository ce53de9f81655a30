// Package templates renders grouped, kubectl-flavoured help output for the
// pococtl command tree.
package templates

import (
	"bytes"
	"fmt"
	"reflect"
	"strings"
	"text/template"
	"unicode"

	"github.com/spf13/cobra"
	flag "github.com/spf13/pflag"

	"github.com/libreassistant/poco/pkg/utils/term"
)

// ActsAsRootCommand installs the grouped usage and help renderer on cmd and
// its descendants. Commands named in filters are hidden from the listing.
func ActsAsRootCommand(cmd *cobra.Command, filters []string, groups ...CommandGroup) FlagExposer {
	if cmd == nil {
		panic("nil root command")
	}

	templater := &templater{
		RootCmd:       cmd,
		UsageTemplate: mainUsageTemplate(),
		HelpTemplate:  mainHelpTemplate(),
		CommandGroups: groups,
		Filtered:      filters,
	}
	cmd.SetUsageFunc(templater.UsageFunc())
	cmd.SetHelpFunc(templater.HelpFunc())

	return templater
}

// UseOptionsTemplates switches cmd to the bare renderer used by the hidden
// "options" command.
func UseOptionsTemplates(cmd *cobra.Command) {
	templater := &templater{
		UsageTemplate: optionsUsageTemplate(),
		HelpTemplate:  optionsHelpTemplate(),
	}
	cmd.SetUsageFunc(templater.UsageFunc())
	cmd.SetHelpFunc(templater.HelpFunc())
}

// FlagExposer marks additional inherited flags as visible in a command's
// help output.
type FlagExposer interface {
	ExposeFlags(cmd *cobra.Command, flags ...string) FlagExposer
}

type templater struct {
	UsageTemplate string
	HelpTemplate  string
	RootCmd       *cobra.Command
	CommandGroups
	Filtered []string
}

func (templater *templater) ExposeFlags(cmd *cobra.Command, flags ...string) FlagExposer {
	cmd.SetUsageFunc(templater.UsageFunc(flags...))

	return templater
}

func (templater *templater) HelpFunc() func(*cobra.Command, []string) {
	return func(c *cobra.Command, s []string) {
		t := template.New("help")
		t.Funcs(templater.templateFuncs())
		template.Must(t.Parse(templater.HelpTemplate))
		out := term.NewResponsiveWriter(c.OutOrStdout())
		if err := t.Execute(out, c); err != nil {
			c.Println(err)
		}
	}
}

func (templater *templater) UsageFunc(exposedFlags ...string) func(*cobra.Command) error {
	return func(c *cobra.Command) error {
		t := template.New("usage")
		t.Funcs(templater.templateFuncs(exposedFlags...))
		template.Must(t.Parse(templater.UsageTemplate))
		out := term.NewResponsiveWriter(c.OutOrStderr())

		return t.Execute(out, c)
	}
}

func (templater *templater) templateFuncs(exposedFlags ...string) template.FuncMap {
	return template.FuncMap{
		"trim":                strings.TrimSpace,
		"trimRight":           func(s string) string { return strings.TrimRightFunc(s, unicode.IsSpace) },
		"trimLeft":            func(s string) string { return strings.TrimLeftFunc(s, unicode.IsSpace) },
		"gt":                  gt,
		"eq":                  eq,
		"rpad":                rpad,
		"appendIfNotPresent":  appendIfNotPresent,
		"flagsNotIntersected": flagsNotIntersected,
		"visibleFlags":        visibleFlags,
		"flagsUsages":         flagsUsages,
		"cmdGroupsString":     templater.cmdGroupsString,
		"rootCmd":             templater.rootCmdName,
		"isRootCmd":           templater.isRootCmd,
		"optionsCmdFor":       templater.optionsCmdFor,
		"usageLine":           templater.usageLine,
		"exposed": func(c *cobra.Command) *flag.FlagSet {
			exposed := flag.NewFlagSet("exposed", flag.ContinueOnError)
			if len(exposedFlags) > 0 {
				for _, name := range exposedFlags {
					if flag := c.Flags().Lookup(name); flag != nil {
						exposed.AddFlag(flag)
					}
				}
			}

			return exposed
		},
	}
}

func (templater *templater) cmdGroups(c *cobra.Command, all []*cobra.Command) []CommandGroup {
	if len(templater.CommandGroups) > 0 && c == templater.RootCmd {
		all = filter(all, templater.Filtered...)

		return AddAdditionalCommands(templater.CommandGroups, "Other Commands:", all)
	}

	all = filter(all, "options")

	return []CommandGroup{
		{
			Message:  "Available Commands:",
			Commands: all,
		},
	}
}

func (templater *templater) cmdGroupsString(c *cobra.Command) string {
	groups := []string{}
	for _, cmdGroup := range templater.cmdGroups(c, c.Commands()) {
		cmds := []string{cmdGroup.Message}
		for _, cmd := range cmdGroup.Commands {
			if cmd.IsAvailableCommand() {
				cmds = append(cmds, "  "+rpad(cmd.Name(), cmd.NamePadding())+" "+cmd.Short)
			}
		}
		groups = append(groups, strings.Join(cmds, "\n"))
	}

	return strings.Join(groups, "\n\n")
}

func (templater *templater) rootCmdName(c *cobra.Command) string {
	return templater.rootCmd(c).CommandPath()
}

func (templater *templater) isRootCmd(c *cobra.Command) bool {
	return templater.rootCmd(c) == c
}

func (templater *templater) parents(c *cobra.Command) []*cobra.Command {
	parents := []*cobra.Command{c}
	for current := c; !templater.isRootCmd(current) && current.HasParent(); {
		current = current.Parent()
		parents = append(parents, current)
	}

	return parents
}

func (templater *templater) rootCmd(c *cobra.Command) *cobra.Command {
	if c != nil && !c.HasParent() {
		return c
	}
	if templater.RootCmd == nil {
		panic("nil root cmd")
	}

	return templater.RootCmd
}

func (templater *templater) optionsCmdFor(c *cobra.Command) string {
	if !c.Runnable() {
		return ""
	}

	rootCmdStructure := templater.parents(c)
	for i := len(rootCmdStructure) - 1; i >= 0; i-- {
		cmd := rootCmdStructure[i]
		if _, _, err := cmd.Find([]string{"options"}); err == nil {
			return cmd.CommandPath() + " options"
		}
	}

	return ""
}

func (templater *templater) usageLine(c *cobra.Command) string {
	usage := c.UseLine()
	suffix := "[options]"
	if c.HasFlags() && !strings.Contains(usage, suffix) {
		usage += " " + suffix
	}

	return usage
}

func rpad(s string, padding int) string {
	template := fmt.Sprintf("%%-%ds", padding)

	return fmt.Sprintf(template, s)
}

func appendIfNotPresent(s, stringToAppend string) string {
	if strings.Contains(s, stringToAppend) {
		return s
	}

	return s + " " + stringToAppend
}

// flagsUsages prints the command line flags of a flag set, one per line.
func flagsUsages(f *flag.FlagSet) string {
	x := new(bytes.Buffer)

	f.VisitAll(func(fl *flag.Flag) {
		if fl.Hidden {
			return
		}

		format := "--%s=%s: %s\n"
		if fl.Value.Type() == "string" {
			format = "--%s='%s': %s\n"
		}

		if len(fl.Shorthand) > 0 {
			format = "  -%s, " + format
			fmt.Fprintf(x, format, fl.Shorthand, fl.Name, fl.DefValue, fl.Usage)
		} else {
			format = "      " + format
			fmt.Fprintf(x, format, fl.Name, fl.DefValue, fl.Usage)
		}
	})

	return x.String()
}

func flagsNotIntersected(l *flag.FlagSet, r *flag.FlagSet) *flag.FlagSet {
	f := flag.NewFlagSet("notIntersected", flag.ContinueOnError)
	l.VisitAll(func(flag *flag.Flag) {
		if r.Lookup(flag.Name) == nil {
			f.AddFlag(flag)
		}
	})

	return f
}

func visibleFlags(l *flag.FlagSet) *flag.FlagSet {
	hidden := "help"
	f := flag.NewFlagSet("visibleFlags", flag.ContinueOnError)
	l.VisitAll(func(flag *flag.Flag) {
		if flag.Name != hidden {
			f.AddFlag(flag)
		}
	})

	return f
}

// gt and eq mirror the loose comparisons the upstream usage templates rely
// on: gt takes len() of slices and maps before comparing.
func gt(a, b interface{}) bool {
	av := reflect.ValueOf(a)
	bv := reflect.ValueOf(b)

	switch av.Kind() {
	case reflect.Array, reflect.Chan, reflect.Map, reflect.Slice:
		switch bv.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			return int64(av.Len()) > bv.Int()
		}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		switch bv.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			return av.Int() > bv.Int()
		}
	case reflect.Float32, reflect.Float64:
		switch bv.Kind() {
		case reflect.Float32, reflect.Float64:
			return av.Float() > bv.Float()
		}
	case reflect.String:
		if bv.Kind() == reflect.String {
			return av.String() > bv.String()
		}
	}

	return false
}

func eq(a, b interface{}) bool {
	av := reflect.ValueOf(a)
	bv := reflect.ValueOf(b)

	switch av.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		switch bv.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			return av.Int() == bv.Int()
		}
	case reflect.Float32, reflect.Float64:
		switch bv.Kind() {
		case reflect.Float32, reflect.Float64:
			return av.Float() == bv.Float()
		}
	case reflect.String:
		if bv.Kind() == reflect.String {
			return av.String() == bv.String()
		}
	}

	return false
}
