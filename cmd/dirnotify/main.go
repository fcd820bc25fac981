package main

import (
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/mutagen-io/dirnotify/cmd"
	"github.com/mutagen-io/dirnotify/pkg/configuration"
	"github.com/mutagen-io/dirnotify/pkg/dirnotify"
	"github.com/mutagen-io/dirnotify/pkg/logging"
	"github.com/mutagen-io/dirnotify/pkg/must"
)

// rootMain is the entry point for the root command.
func rootMain(command *cobra.Command, _ []string) error {
	// If no commands were given, then print help information and bail. We don't
	// have to worry about warning about arguments being present here (which
	// would be incorrect usage) because arguments can't even reach this point
	// (they will be mistaken for subcommands and a error will be displayed).
	must.CommandHelp(command, nil)

	// Success.
	return nil
}

// rootCommand is the root command.
var rootCommand = &cobra.Command{
	Use:          "dirnotify",
	Version:      dirnotify.Version,
	Short:        "dirnotify watches directory trees for changes",
	Run:          cmd.Mainify(rootMain),
	SilenceUsage: true,
}

// rootConfiguration stores configuration for the root command.
var rootConfiguration struct {
	// configurationPath is the path to the YAML configuration file.
	configurationPath string
	// logLevel is the log level name, overriding any other setting.
	logLevel string
}

// loadSettings loads the configuration, applies environment and command line
// overrides, and creates the root logger.
func loadSettings() (*configuration.Configuration, *logging.Logger, error) {
	// Load the configuration file, if any.
	settings := configuration.Default()
	if rootConfiguration.configurationPath != "" {
		loaded, err := configuration.Load(rootConfiguration.configurationPath)
		if err != nil {
			return nil, nil, err
		}
		settings = loaded
	}

	// Apply overrides. Environment variables take precedence over the file and
	// command line flags take precedence over everything.
	if dirnotify.LogLevelOverride != "" {
		settings.Logging.Level = dirnotify.LogLevelOverride
	}
	if dirnotify.BackendOverride != "" {
		settings.Backend.Preference = dirnotify.BackendOverride
	}
	if rootConfiguration.logLevel != "" {
		settings.Logging.Level = rootConfiguration.logLevel
	}

	// Validate the result.
	if err := settings.EnsureValid(); err != nil {
		return nil, nil, errors.Wrap(err, "invalid settings")
	}

	// Configure output and create the root logger.
	logger := cmd.ConfigureOutput(settings.LogLevel(), os.Stderr.Fd())

	// Success.
	return settings, logger, nil
}

func init() {
	// Disable Cobra's command sorting behavior. By default, it sorts commands
	// alphabetically in the help output.
	cobra.EnableCommandSorting = false

	// Disable Cobra's use of mousetrap, since the CLI is often launched
	// outside of a console on Windows.
	cobra.MousetrapHelpText = ""

	// Disable Cobra's completion command.
	rootCommand.CompletionOptions.DisableDefaultCmd = true

	// Set the template used by the version flag.
	rootCommand.SetVersionTemplate("dirnotify version {{ .Version }}\n")

	// Configure flags.
	cmd.ConfigureCommand(rootCommand)
	persistent := rootCommand.PersistentFlags()
	persistent.SortFlags = false
	persistent.StringVarP(&rootConfiguration.configurationPath, "config", "c", "", "Specify a YAML configuration file")
	persistent.StringVarP(&rootConfiguration.logLevel, "log-level", "l", "", "Override the log level ("+strings.Join(logging.LevelNames(), "|")+")")

	// Register commands. We do this here (rather than in individual init
	// functions) so that we can control the order.
	rootCommand.AddCommand(
		watchCommand,
		backendCommand,
		versionCommand,
	)
}

func main() {
	// Execute the root command.
	if err := rootCommand.Execute(); err != nil {
		os.Exit(1)
	}
}
