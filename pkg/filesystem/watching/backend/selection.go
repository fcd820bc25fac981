package backend

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/mutagen-io/dirnotify/pkg/logging"
)

// Preference is a backend preference.
type Preference uint8

const (
	// PreferenceAuto selects the best backend available on the platform.
	PreferenceAuto Preference = iota
	// PreferenceInotify selects the raw inotify backend.
	PreferenceInotify
	// PreferenceFsnotify selects the portable fsnotify-based backend.
	PreferenceFsnotify
	// PreferenceDnotify selects the legacy dnotify backend.
	PreferenceDnotify
	// PreferenceNone disables notification backends.
	PreferenceNone
)

// ParsePreference converts a preference name to a Preference.
func ParsePreference(name string) (Preference, error) {
	switch name {
	case "", "auto":
		return PreferenceAuto, nil
	case "inotify":
		return PreferenceInotify, nil
	case "fsnotify":
		return PreferenceFsnotify, nil
	case "dnotify":
		return PreferenceDnotify, nil
	case "none":
		return PreferenceNone, nil
	default:
		return PreferenceAuto, errors.Errorf("unknown backend preference: %s", name)
	}
}

// String provides a human-readable representation of a preference.
func (p Preference) String() string {
	switch p {
	case PreferenceAuto:
		return "auto"
	case PreferenceInotify:
		return "inotify"
	case PreferenceFsnotify:
		return "fsnotify"
	case PreferenceDnotify:
		return "dnotify"
	case PreferenceNone:
		return "none"
	default:
		return "unknown"
	}
}

// Options are the options used when probing backends.
type Options struct {
	// EventBuffer is the capacity of modern backend event batch channels. If
	// zero, a default is used.
	EventBuffer int
	// Logger is the logger to use for probing diagnostics. It may be nil.
	Logger *logging.Logger
}

const (
	// defaultEventBuffer is the default event batch channel capacity.
	defaultEventBuffer = 64
)

// eventBuffer returns the effective event batch channel capacity.
func (o Options) eventBuffer() int {
	if o.EventBuffer > 0 {
		return o.EventBuffer
	}
	return defaultEventBuffer
}

// construct attempts to construct the backend for a specific preference.
func construct(preference Preference, options Options) (*Selection, error) {
	switch preference {
	case PreferenceInotify:
		watcher, err := newInotifyWatcher(options.eventBuffer())
		if err != nil {
			return nil, err
		}
		return &Selection{Kind: KindModern, Name: preference.String(), Watcher: watcher}, nil
	case PreferenceFsnotify:
		watcher, err := newFsnotifyWatcher(options.eventBuffer())
		if err != nil {
			return nil, err
		}
		return &Selection{Kind: KindModern, Name: preference.String(), Watcher: watcher}, nil
	case PreferenceDnotify:
		notifier, err := newDnotifyNotifier()
		if err != nil {
			return nil, err
		}
		return &Selection{Kind: KindLegacy, Name: preference.String(), Notifier: notifier}, nil
	case PreferenceNone:
		return Unavailable(), nil
	default:
		return nil, errors.Errorf("unable to construct backend for preference: %s", preference)
	}
}

// Probe constructs a fresh backend according to the specified preference. For
// PreferenceAuto, the platform's candidates are tried in order. If no candidate
// can be constructed, then the unavailable selection is returned. Probe never
// returns nil.
func Probe(preference Preference, options Options) *Selection {
	// Compute the candidates.
	candidates := []Preference{preference}
	if preference == PreferenceAuto {
		candidates = automaticCandidates
	}

	// Try each candidate in turn.
	for _, candidate := range candidates {
		selection, err := construct(candidate, options)
		if err != nil {
			options.Logger.Debugf("Unable to initialize %s backend: %v", candidate, err)
			continue
		}
		options.Logger.Infof("Selected %s backend (%s)", selection.Name, selection.Kind)
		return selection
	}

	// Fall back to no backend.
	options.Logger.Warnf("No notification backend available for preference %s", preference)
	return Unavailable()
}

var (
	// selectOnce guards process-wide backend selection.
	selectOnce sync.Once
	// selected is the process-wide backend selection.
	selected *Selection
)

// Select performs process-wide backend selection. The first invocation probes
// using its arguments and every subsequent invocation returns the same
// selection, regardless of its arguments.
func Select(preference Preference, options Options) *Selection {
	selectOnce.Do(func() {
		selected = Probe(preference, options)
	})
	return selected
}
