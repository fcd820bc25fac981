package watching

import (
	"github.com/mutagen-io/dirnotify/pkg/async"
)

// notifyLegacy is the legacy notification handler. It runs on the notifier's
// Goroutine, so it only increments the notification counters of the watches in
// the published registry snapshot and performs a non-blocking wake-up. The
// notifier can't attribute signals to descriptors, so every armed watch is
// notified.
func (e *Engine) notifyLegacy() {
	for _, w := range e.registry.current() {
		if w.legacyArmed.Load() {
			w.notified.Add(1)
		}
	}
	select {
	case e.wake <- struct{}{}:
	default:
	}
}

// DrainNotified drains the legacy notification counters of every registered
// watch. Each watch with pending notifications is signaled once and has its
// oldest outstanding read completed. It returns the number of watches
// signaled.
func (e *Engine) DrainNotified() int {
	var signaled int
	for _, w := range e.registry.watches {
		if w.notified.Swap(0) == 0 {
			continue
		}
		w.signaled++
		w.signal()
		w.reads.TerminateHead(async.StatusAlerted)
		signaled++
	}
	return signaled
}

// armLegacy arms the legacy notifier for a watch's descriptor.
func (e *Engine) armLegacy(w *Watch) {
	if err := e.selection.Notifier.Arm(w.descriptor.Descriptor(), w.filter.categories()); err != nil {
		w.logger.Debugf("Unable to arm legacy notifications: %v", err)
		return
	}
	w.legacyArmed.Store(true)
}

// disarmLegacy disarms the legacy notifier for a watch's descriptor.
func (e *Engine) disarmLegacy(w *Watch) {
	if !w.legacyArmed.Swap(false) {
		return
	}
	if err := e.selection.Notifier.Disarm(w.descriptor.Descriptor()); err != nil {
		w.logger.Debugf("Unable to disarm legacy notifications: %v", err)
	}
	w.notified.Store(0)
}
