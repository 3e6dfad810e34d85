package timer

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	zlog "github.com/rs/zerolog/log"
)

// Loop is a Scheduler backed by wall-clock timers and a single dispatch goroutine.
// Posted callbacks run in FIFO order; the queue is unbounded so posting from inside
// a callback never blocks.
type Loop struct {
	mu      sync.Mutex
	queue   []func()
	wake    chan struct{}
	nextID  atomic.Uint64
	running atomic.Bool
}

// NewLoop creates a new loop. Callbacks are not executed until Run is called.
func NewLoop() *Loop {
	return &Loop{
		wake: make(chan struct{}, 1),
	}
}

// Run dispatches queued callbacks until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) error {
	if !l.running.CompareAndSwap(false, true) {
		return nil
	}
	defer l.running.Store(false)

	for {
		for {
			fn, ok := l.pop()
			if !ok {
				break
			}
			l.dispatch(fn)
			if ctx.Err() != nil {
				return ctx.Err()
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.wake:
		}
	}
}

// Post queues fn to run on the loop goroutine.
func (l *Loop) Post(fn func()) {
	l.mu.Lock()
	l.queue = append(l.queue, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// After schedules fn to run on the loop goroutine once d has elapsed.
func (l *Loop) After(d time.Duration, fn func()) *Handle {
	h := &Handle{
		id:  l.nextID.Add(1),
		due: time.Now().Add(d),
	}
	t := time.AfterFunc(d, func() {
		l.Post(func() {
			if h.claim() {
				fn()
			}
		})
	})
	h.stop = t.Stop
	return h
}

// Cancel prevents h from running. A fire that is already queued is discarded.
func (l *Loop) Cancel(h *Handle) {
	h.cancel()
}

// Len returns the number of queued callbacks.
func (l *Loop) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue)
}

func (l *Loop) pop() (func(), bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.queue) == 0 {
		return nil, false
	}
	fn := l.queue[0]
	l.queue[0] = nil
	l.queue = l.queue[1:]
	return fn, true
}

// dispatch runs fn, keeping the loop alive if it panics.
func (l *Loop) dispatch(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			zlog.Error().Msgf("timer: callback panicked: %v", r)
		}
	}()
	fn()
}
