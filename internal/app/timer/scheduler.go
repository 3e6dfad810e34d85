// Package timer provides the cooperative scheduler that all monitor callbacks run on.
package timer

import (
	"sync/atomic"
	"time"
)

// Scheduler runs callbacks one at a time on a single logical thread.
type Scheduler interface {
	// After schedules fn to run on the scheduler thread once d has elapsed.
	After(d time.Duration, fn func()) *Handle
	// Cancel prevents a pending callback from running.
	// Cancelling a nil, fired, or already cancelled handle is a no-op.
	Cancel(h *Handle)
	// Post queues fn to run on the scheduler thread.
	Post(fn func())
}

// Handle is an opaque reference to a scheduled callback.
type Handle struct {
	id        uint64
	due       time.Time
	cancelled atomic.Bool
	fired     atomic.Bool
	stop      func() bool
}

// Pending returns true if the callback has neither fired nor been cancelled.
func (h *Handle) Pending() bool {
	if h == nil {
		return false
	}
	return !h.cancelled.Load() && !h.fired.Load()
}

// cancel marks the handle cancelled and stops the underlying timer, if any.
func (h *Handle) cancel() {
	if h == nil || !h.cancelled.CompareAndSwap(false, true) {
		return
	}
	if h.stop != nil {
		h.stop()
	}
}

// claim transitions the handle to fired. It returns false if the handle was cancelled
// in the meantime, in which case the callback must not run.
func (h *Handle) claim() bool {
	if h.cancelled.Load() {
		return false
	}
	return h.fired.CompareAndSwap(false, true)
}
