package cmd

import (
	"os"
	"syscall"
)

// TerminationSignals are those signals which dirnotify considers to be
// requesting termination. SIGINT is the only POSIX signal that Go emulates on
// Windows, but Ctrl-C is all that's needed there.
var TerminationSignals = []os.Signal{
	syscall.SIGINT,
}
