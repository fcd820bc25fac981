package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mutagen-io/dirnotify/cmd"
	"github.com/mutagen-io/dirnotify/pkg/dirnotify"
)

// versionMain is the entry point for the version command.
func versionMain(_ *cobra.Command, _ []string) error {
	// Print version information.
	fmt.Println(dirnotify.Version)

	// Success.
	return nil
}

// versionCommand is the version command.
var versionCommand = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Args:  cobra.NoArgs,
	Run:   cmd.Mainify(versionMain),
}

func init() {
	cmd.ConfigureCommand(versionCommand)
}
