package cmd

import (
	"log"

	"github.com/fatih/color"
	isatty "github.com/mattn/go-isatty"

	"github.com/mutagen-io/dirnotify/pkg/logging"
)

// ConfigureOutput disables colorized output if standard error isn't a terminal
// and directs the standard logger (which backs pkg/logging) to standard error.
// It returns a root logger at the specified level.
func ConfigureOutput(level logging.Level, standardErrorFd uintptr) *logging.Logger {
	// Decide on color usage.
	if !isatty.IsTerminal(standardErrorFd) && !isatty.IsCygwinTerminal(standardErrorFd) {
		color.NoColor = true
	}

	// Configure the standard logger.
	log.SetOutput(color.Error)
	log.SetFlags(log.Ltime | log.Lmicroseconds)

	// Create the root logger.
	return logging.NewLogger(level)
}
