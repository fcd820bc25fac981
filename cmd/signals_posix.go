//go:build !windows

package cmd

import (
	"os"
	"syscall"
)

// TerminationSignals are those signals which dirnotify considers to be
// requesting termination. SIGIO is deliberately absent since the legacy
// notification backend relies on it.
var TerminationSignals = []os.Signal{
	syscall.SIGINT,
	syscall.SIGTERM,
}
