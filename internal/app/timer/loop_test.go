package timer

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startLoop(t *testing.T) *Loop {
	t.Helper()
	l := NewLoop()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = l.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return l
}

func TestLoop_PostRunsInOrder(t *testing.T) {
	l := startLoop(t)

	results := make(chan int, 3)
	for i := 1; i <= 3; i++ {
		i := i
		l.Post(func() { results <- i })
	}

	for want := 1; want <= 3; want++ {
		select {
		case got := <-results:
			assert.Equal(t, want, got)
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for posted callback")
		}
	}
}

func TestLoop_AfterFires(t *testing.T) {
	l := startLoop(t)

	fired := make(chan struct{})
	h := l.After(10*time.Millisecond, func() { close(fired) })

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("timer did not fire")
	}
	assert.False(t, h.Pending())
}

func TestLoop_CancelPreventsQueuedFire(t *testing.T) {
	l := startLoop(t)

	var ran atomic.Bool
	block := make(chan struct{})

	// Hold the loop so the timer fire is queued behind this callback.
	l.Post(func() { <-block })
	h := l.After(time.Millisecond, func() { ran.Store(true) })
	require.Eventually(t, func() bool { return l.Len() == 1 }, time.Second, time.Millisecond)

	l.Cancel(h)
	close(block)

	done := make(chan struct{})
	l.Post(func() { close(done) })
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("loop stalled")
	}
	assert.False(t, ran.Load())
	assert.False(t, h.Pending())
}

func TestLoop_PanicDoesNotStopLoop(t *testing.T) {
	l := startLoop(t)

	l.Post(func() { panic("boom") })
	done := make(chan struct{})
	l.Post(func() { close(done) })

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("loop stopped after panic")
	}
}

func TestLoop_RunStopsOnCancel(t *testing.T) {
	l := NewLoop()
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- l.Run(ctx) }()

	cancel()
	select {
	case err := <-errCh:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Run did not return")
	}
}
