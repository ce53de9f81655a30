package templates

import (
	"strings"
	"unicode"
)

const (
	// sectionVars declares the variables the other sections share.
	sectionVars = `{{$isRootCmd := isRootCmd .}}` +
		`{{$rootCmd := rootCmd .}}` +
		`{{$visibleFlags := visibleFlags (flagsNotIntersected .LocalFlags .PersistentFlags)}}` +
		`{{$explicitlyExposedFlags := exposed .}}` +
		`{{$optionsCmdFor := optionsCmdFor .}}` +
		`{{$usageLine := usageLine .}}`

	// sectionAliases displays command aliases.
	sectionAliases = `{{if gt .Aliases 0}}Aliases:
{{.NameAndAliases}}

{{end}}`

	// sectionExamples displays command examples.
	sectionExamples = `{{if .HasExample}}Examples:
{{trimRight .Example}}

{{end}}`

	// sectionSubcommands displays the command's subcommands.
	sectionSubcommands = `{{if .HasAvailableSubCommands}}{{cmdGroupsString .}}

{{end}}`

	// sectionFlags displays the command's flags.
	sectionFlags = `{{ if or $visibleFlags.HasFlags $explicitlyExposedFlags.HasFlags}}Options:
{{ if $visibleFlags.HasFlags}}{{trimRight (flagsUsages $visibleFlags)}}{{end}}{{ if $explicitlyExposedFlags.HasFlags}}{{ if $visibleFlags.HasFlags}}
{{end}}{{trimRight (flagsUsages $explicitlyExposedFlags)}}{{end}}

{{end}}`

	// sectionUsage displays the command's usage line.
	sectionUsage = `{{if and .Runnable (ne .UseLine "") (ne .UseLine $rootCmd)}}Usage:
  {{$usageLine}}

{{end}}`

	// sectionTipsHelp displays the '--help' hint.
	sectionTipsHelp = `{{if .HasSubCommands}}Use "{{$rootCmd}} <command> --help" for more information about a given command.
{{end}}`

	// sectionTipsGlobalOptions displays the 'options' command hint.
	sectionTipsGlobalOptions = `{{if $optionsCmdFor}}Use "{{$optionsCmdFor}}" for a list of global command-line options (applies to all commands).{{end}}`
)

// mainHelpTemplate is the help renderer used by most commands.
func mainHelpTemplate() string {
	return `{{with or .Long .Short }}{{. | trim}}{{end}}{{if or .Runnable .HasSubCommands}}{{.UsageString}}{{end}}`
}

// mainUsageTemplate is the usage renderer used by most commands.
func mainUsageTemplate() string {
	sections := []string{
		"\n\n",
		sectionVars,
		sectionAliases,
		sectionExamples,
		sectionSubcommands,
		sectionFlags,
		sectionUsage,
		sectionTipsHelp,
		sectionTipsGlobalOptions,
	}

	return strings.TrimRightFunc(strings.Join(sections, ""), unicode.IsSpace)
}

// optionsHelpTemplate is the help renderer for the 'options' command.
func optionsHelpTemplate() string {
	return ""
}

// optionsUsageTemplate is the usage renderer for the 'options' command.
func optionsUsageTemplate() string {
	return `{{ if .HasInheritedFlags}}The following options can be passed to any command:

{{flagsUsages .InheritedFlags}}{{end}}`
}
