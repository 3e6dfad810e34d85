// Package notification fans monitor events out to subscribers.
package notification

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/autologout/internal/app/idle"
)

// sendTimeout bounds how long a slow sink can hold up a broadcast.
const sendTimeout = 500 * time.Millisecond

// Notification is a monitor event stamped with a broadcast sequence number.
type Notification struct {
	SequenceNo uint64
	Event      idle.Event
}

// Sink receives notifications.
type Sink interface {
	Send(Notification) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Notification) error

// Send calls f(n).
func (f SinkFunc) Send(n Notification) error {
	return f(n)
}

// subscription represents a subscriber's subscription.
type subscription struct {
	id   string
	sink Sink
}

// Manager manages subscriptions and broadcasting.
type Manager struct {
	mu            sync.RWMutex
	subscriptions map[string]*subscription
	sequenceNo    uint64
	sequenceNoMu  sync.Mutex
}

// NewManager creates a new notification manager.
func NewManager() *Manager {
	return &Manager{
		subscriptions: make(map[string]*subscription),
	}
}

// Subscribe adds a new subscription and returns the subscription ID.
func (m *Manager) Subscribe(sink Sink) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := uuid.New().String()
	m.subscriptions[id] = &subscription{
		id:   id,
		sink: sink,
	}
	return id
}

// Unsubscribe removes a subscription.
func (m *Manager) Unsubscribe(subscriptionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.subscriptions, subscriptionID)
}

// Broadcast sends an event to all subscribers in parallel, each bounded by a timeout.
func (m *Manager) Broadcast(e idle.Event) {
	m.sequenceNoMu.Lock()
	m.sequenceNo++
	n := Notification{SequenceNo: m.sequenceNo, Event: e}
	m.sequenceNoMu.Unlock()

	m.mu.RLock()
	subs := make([]*subscription, 0, len(m.subscriptions))
	for _, sub := range m.subscriptions {
		subs = append(subs, sub)
	}
	m.mu.RUnlock()

	var wg sync.WaitGroup
	for _, sub := range subs {
		wg.Add(1)
		go func(s *subscription) {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
			defer cancel()

			done := make(chan error, 1)
			go func() {
				done <- s.sink.Send(n)
			}()

			select {
			case err := <-done:
				if err != nil {
					zlog.Warn().Err(err).Msgf("notification: sink failed: subscription=%s seq=%d", s.id, n.SequenceNo)
				}
			case <-ctx.Done():
				zlog.Warn().Msgf("notification: sink timed out: subscription=%s seq=%d", s.id, n.SequenceNo)
			}
		}(sub)
	}
	wg.Wait()
}

// Pump broadcasts every event from events until it is closed or ctx is done.
func (m *Manager) Pump(ctx context.Context, events <-chan idle.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			m.Broadcast(e)
		}
	}
}

// SubscriberCount returns the number of active subscribers.
func (m *Manager) SubscriberCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.subscriptions)
}

// Close removes all subscriptions.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscriptions = make(map[string]*subscription)
}

// LogSink writes each notification to the global logger.
func LogSink() Sink {
	return SinkFunc(func(n Notification) error {
		ev := zlog.Info()
		if n.Event.Err != nil {
			ev = zlog.Warn().Err(n.Event.Err)
		}
		ev.Str("instance", n.Event.InstanceID).
			Uint64("seq", n.SequenceNo).
			Str("state", n.Event.State.String()).
			Msgf("monitor event: %s", n.Event.Type)
		return nil
	})
}
