package main

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/mutagen-io/dirnotify/cmd"
	"github.com/mutagen-io/dirnotify/pkg/filesystem/watching/backend"
	"github.com/mutagen-io/dirnotify/pkg/must"
)

// backendMain is the entry point for the backend command.
func backendMain(_ *cobra.Command, _ []string) error {
	// Load settings.
	settings, logger, err := loadSettings()
	if err != nil {
		return err
	}

	// Parse the backend preference.
	preference, err := backend.ParsePreference(settings.Backend.Preference)
	if err != nil {
		return errors.Wrap(err, "invalid backend preference")
	}

	// Probe for a backend and ensure its termination.
	selection := backend.Probe(preference, backend.Options{
		EventBuffer: settings.Backend.EventBuffer,
		Logger:      logger.Sublogger("backend"),
	})
	defer must.Terminate(selection, logger)

	// Print the selection.
	fmt.Printf("Preference: %s\n", preference)
	fmt.Printf("Backend: %s (%s)\n", selection.Name, selection.Kind)

	// Success.
	return nil
}

// backendCommand is the backend command.
var backendCommand = &cobra.Command{
	Use:   "backend",
	Short: "Show which notification backend would be selected",
	Args:  cobra.NoArgs,
	Run:   cmd.Mainify(backendMain),
}

func init() {
	cmd.ConfigureCommand(backendCommand)
}
