package watching

import (
	"sync/atomic"
)

// registry tracks every armed watch. It's only mutated from the Goroutine that
// owns the engine, but it publishes an immutable snapshot after each mutation
// so that the legacy signal handler can enumerate watches without locking.
type registry struct {
	// watches are the registered watches, in registration order.
	watches []*Watch
	// snapshot is the most recently published copy of watches.
	snapshot atomic.Pointer[[]*Watch]
}

// add registers a watch.
func (r *registry) add(watch *Watch) {
	r.watches = append(r.watches, watch)
	r.publish()
}

// remove unregisters a watch. It has no effect if the watch isn't registered.
func (r *registry) remove(watch *Watch) {
	for i, w := range r.watches {
		if w == watch {
			r.watches = append(r.watches[:i:i], r.watches[i+1:]...)
			r.publish()
			return
		}
	}
}

// publish publishes a fresh snapshot of the registered watches.
func (r *registry) publish() {
	snapshot := make([]*Watch, len(r.watches))
	copy(snapshot, r.watches)
	r.snapshot.Store(&snapshot)
}

// current returns the most recently published snapshot. It's safe to call
// from any Goroutine.
func (r *registry) current() []*Watch {
	if snapshot := r.snapshot.Load(); snapshot != nil {
		return *snapshot
	}
	return nil
}
