package configuration

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/mutagen-io/dirnotify/pkg/logging"
)

// writeConfiguration writes configuration content to a temporary file.
func writeConfiguration(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "dirnotify.yml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal("unable to write configuration file:", err)
	}
	return path
}

// TestDefaultValid tests that the default configuration is valid.
func TestDefaultValid(t *testing.T) {
	if err := Default().EnsureValid(); err != nil {
		t.Fatal("default configuration invalid:", err)
	}
}

// TestLoadMissing tests that a missing file yields the default configuration.
func TestLoadMissing(t *testing.T) {
	configuration, err := Load(filepath.Join(t.TempDir(), "missing.yml"))
	if err != nil {
		t.Fatal("unable to load missing configuration:", err)
	}
	if configuration.Backend.Preference != DefaultBackendPreference {
		t.Error("backend preference mismatch:", configuration.Backend.Preference)
	}
}

// TestLoadOverrides tests that loaded values override defaults while
// unspecified values keep them.
func TestLoadOverrides(t *testing.T) {
	path := writeConfiguration(t, `
logging:
  level: debug
backend:
  preference: dnotify
watch:
  maximumPendingRecords: 16
`)
	configuration, err := Load(path)
	if err != nil {
		t.Fatal("unable to load configuration:", err)
	}
	if configuration.LogLevel() != logging.LevelDebug {
		t.Error("log level mismatch:", configuration.LogLevel())
	}
	if configuration.Backend.Preference != "dnotify" {
		t.Error("backend preference mismatch:", configuration.Backend.Preference)
	}
	if configuration.Backend.EventBuffer != DefaultEventBuffer {
		t.Error("event buffer default not retained:", configuration.Backend.EventBuffer)
	}
	if configuration.Watch.MaximumPendingRecords != 16 {
		t.Error("maximum pending records mismatch:", configuration.Watch.MaximumPendingRecords)
	}
}

// TestLoadInvalid tests that invalid values are rejected.
func TestLoadInvalid(t *testing.T) {
	cases := []string{
		"logging:\n  level: loud\n",
		"backend:\n  preference: kqueue\n",
		"backend:\n  eventBuffer: 0\n",
		"watch:\n  maximumPendingRecords: -1\n",
		"unknown: true\n",
	}
	for _, content := range cases {
		if _, err := Load(writeConfiguration(t, content)); err == nil {
			t.Errorf("invalid configuration accepted: %q", content)
		}
	}
}
