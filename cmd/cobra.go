package cmd

import (
	"github.com/spf13/cobra"
)

// Mainify is a small utility that wraps a non-standard Cobra entry point (one
// returning an error) and generates a standard Cobra entry point. It's useful
// for entry points to be able to rely on defer-based cleanup, which doesn't
// occur if the entry point terminates the process. This method allows the entry
// point to indicate an error while still performing cleanup.
func Mainify(entry func(*cobra.Command, []string) error) func(*cobra.Command, []string) {
	return func(command *cobra.Command, arguments []string) {
		if err := entry(command, arguments); err != nil {
			Fatal(err)
		}
	}
}

// ConfigureCommand applies the standard flag settings to a command: flags are
// listed in registration order and the help flag gets a consistent message.
// Cobra still implements help handling automatically.
func ConfigureCommand(command *cobra.Command) {
	// Grab a handle for the command line flags.
	flags := command.Flags()

	// Disable alphabetical sorting of flags in help output.
	flags.SortFlags = false

	// Manually add a help flag to override the default message.
	flags.BoolP("help", "h", false, "Show help information")
}
