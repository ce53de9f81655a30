package util

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// DefaultErrorExitCode is the exit status CheckErr uses.
const DefaultErrorExitCode = 1

// CheckErr prints a user friendly error to STDERR and exits with a non-zero
// exit code. Nil errors pass through.
func CheckErr(err error) {
	if err == nil {
		return
	}

	fmt.Fprintf(os.Stderr, "%s %v\n", color.RedString("Error:"), err)
	os.Exit(DefaultErrorExitCode)
}

// UsageErrorf returns an error that refers the user to the command help.
func UsageErrorf(cmd *cobra.Command, format string, args ...interface{}) error {
	msg := fmt.Sprintf(format, args...)

	return fmt.Errorf("%s\nSee '%s -h' for help and examples", msg, cmd.CommandPath())
}

// RequireNoArguments exits with a usage error when extra arguments are given.
func RequireNoArguments(c *cobra.Command, args []string) {
	if len(args) > 0 {
		CheckErr(UsageErrorf(c, "unknown command %q", strings.Join(args, " ")))
	}
}

// DefaultSubCommandRun prints a command's help string to the specified output
// if no arguments (sub-commands) are provided, or a usage error otherwise.
func DefaultSubCommandRun(out io.Writer) func(c *cobra.Command, args []string) {
	return func(c *cobra.Command, args []string) {
		c.SetOut(out)
		RequireNoArguments(c, args)
		_ = c.Help()
	}
}
