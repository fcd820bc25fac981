//go:build !linux

package backend

// automaticCandidates are the backends tried for PreferenceAuto, in order.
var automaticCandidates = []Preference{PreferenceFsnotify}

// newInotifyWatcher is unsupported on this platform.
func newInotifyWatcher(_ int) (Watcher, error) {
	return nil, errUnsupported
}

// newDnotifyNotifier is unsupported on this platform.
func newDnotifyNotifier() (Notifier, error) {
	return nil, errUnsupported
}
