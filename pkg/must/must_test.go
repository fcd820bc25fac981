package must

import (
	"bytes"
	"log"
	"strings"
	"testing"

	"github.com/pkg/errors"

	"github.com/mutagen-io/dirnotify/pkg/logging"
)

// failingCloser is a closer that always fails.
type failingCloser struct{}

func (failingCloser) Close() error {
	return errors.New("close failure")
}

// TestFailuresLogged tests that failures are logged as warnings.
func TestFailuresLogged(t *testing.T) {
	// Redirect log output.
	buffer := &bytes.Buffer{}
	previous := log.Writer()
	log.SetOutput(buffer)
	defer log.SetOutput(previous)

	// Perform failing operations.
	logger := logging.NewLogger(logging.LevelWarn)
	Close(failingCloser{}, logger)
	Succeed(errors.New("task failure"), "testing", logger)
	Succeed(nil, "nothing", logger)

	// Verify output.
	output := buffer.String()
	if !strings.Contains(output, "close failure") {
		t.Error("close failure not logged")
	}
	if !strings.Contains(output, "Unable to succeed at testing; task failure") {
		t.Error("task failure not logged")
	}
	if strings.Contains(output, "nothing") {
		t.Error("successful task logged")
	}
}

// TestFprint tests Fprint.
func TestFprint(t *testing.T) {
	buffer := &bytes.Buffer{}
	Fprint(buffer, nil, "a", 1)
	if buffer.String() != "a1" {
		t.Error("unexpected output:", buffer.String())
	}
}
