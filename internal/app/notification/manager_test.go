package notification

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/autologout/internal/app/idle"
)

type recordingSink struct {
	mu    sync.Mutex
	got   []Notification
	err   error
	delay time.Duration
}

func (s *recordingSink) Send(n Notification) error {
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.got = append(s.got, n)
	return s.err
}

func (s *recordingSink) received() []Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Notification(nil), s.got...)
}

func TestManager_BroadcastSequence(t *testing.T) {
	m := NewManager()
	a, b := &recordingSink{}, &recordingSink{err: errors.New("sink down")}
	m.Subscribe(a)
	m.Subscribe(b)
	assert.Equal(t, 2, m.SubscriberCount())

	m.Broadcast(idle.Event{Type: idle.EventStarted})
	m.Broadcast(idle.Event{Type: idle.EventWarningShown})

	for _, s := range []*recordingSink{a, b} {
		got := s.received()
		require.Len(t, got, 2)
		assert.Equal(t, uint64(1), got[0].SequenceNo)
		assert.Equal(t, idle.EventStarted, got[0].Event.Type)
		assert.Equal(t, uint64(2), got[1].SequenceNo)
	}
}

func TestManager_SlowSinkDoesNotBlock(t *testing.T) {
	m := NewManager()
	m.Subscribe(&recordingSink{delay: 2 * time.Second})

	start := time.Now()
	m.Broadcast(idle.Event{Type: idle.EventLoggedOut})
	assert.Less(t, time.Since(start), 1500*time.Millisecond)
}

func TestManager_Unsubscribe(t *testing.T) {
	m := NewManager()
	s := &recordingSink{}
	id := m.Subscribe(s)
	m.Unsubscribe(id)

	m.Broadcast(idle.Event{Type: idle.EventStarted})
	assert.Empty(t, s.received())
	assert.Equal(t, 0, m.SubscriberCount())
}

func TestManager_PumpStopsOnClose(t *testing.T) {
	m := NewManager()
	s := &recordingSink{}
	m.Subscribe(s)
	m.Subscribe(LogSink())

	events := make(chan idle.Event, 2)
	events <- idle.Event{Type: idle.EventStarted}
	events <- idle.Event{Type: idle.EventLogoutCompleted, Err: errors.New("refused")}
	close(events)

	done := make(chan struct{})
	go func() {
		m.Pump(context.Background(), events)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("pump did not return after channel close")
	}
	assert.Len(t, s.received(), 2)
}
