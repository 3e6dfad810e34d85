package timer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2024, 12, 1, 9, 0, 0, 0, time.UTC)

func TestManual_AdvanceRunsDueCallbacksInOrder(t *testing.T) {
	m := NewManual(epoch)

	var order []string
	m.After(3*time.Second, func() { order = append(order, "c") })
	m.After(1*time.Second, func() { order = append(order, "a") })
	m.After(2*time.Second, func() { order = append(order, "b") })

	m.Advance(2 * time.Second)
	assert.Equal(t, []string{"a", "b"}, order)
	assert.Equal(t, 1, m.PendingCount())

	m.Advance(time.Second)
	assert.Equal(t, []string{"a", "b", "c"}, order)
	assert.Equal(t, epoch.Add(3*time.Second), m.Now())
}

func TestManual_CallbackSchedulesRelativeToFireTime(t *testing.T) {
	m := NewManual(epoch)

	var fired []time.Time
	var tick func()
	tick = func() {
		fired = append(fired, m.Now())
		if len(fired) < 3 {
			m.After(750*time.Millisecond, tick)
		}
	}
	m.After(750*time.Millisecond, tick)

	m.Advance(10 * time.Second)
	require.Len(t, fired, 3)
	assert.Equal(t, epoch.Add(750*time.Millisecond), fired[0])
	assert.Equal(t, epoch.Add(1500*time.Millisecond), fired[1])
	assert.Equal(t, epoch.Add(2250*time.Millisecond), fired[2])
}

func TestManual_CancelIsIdempotent(t *testing.T) {
	m := NewManual(epoch)

	ran := false
	h := m.After(time.Second, func() { ran = true })
	assert.True(t, h.Pending())

	m.Cancel(h)
	m.Cancel(h)
	m.Cancel(nil)
	assert.False(t, h.Pending())

	m.Advance(2 * time.Second)
	assert.False(t, ran)
	assert.Equal(t, 0, m.PendingCount())
}

func TestManual_CancelAfterFireIsNoop(t *testing.T) {
	m := NewManual(epoch)

	count := 0
	h := m.After(time.Second, func() { count++ })
	m.Advance(time.Second)
	assert.Equal(t, 1, count)
	assert.False(t, h.Pending())

	assert.NotPanics(t, func() { m.Cancel(h) })
	assert.Equal(t, 1, count)
}

func TestManual_CallbackCancelsSibling(t *testing.T) {
	m := NewManual(epoch)

	ran := false
	var second *Handle
	m.After(time.Second, func() { m.Cancel(second) })
	second = m.After(time.Second, func() { ran = true })

	m.Advance(time.Second)
	assert.False(t, ran)
}

func TestManual_PostInsideCallbackIsQueued(t *testing.T) {
	m := NewManual(epoch)

	var order []string
	m.Post(func() {
		m.Post(func() { order = append(order, "inner") })
		order = append(order, "outer")
	})
	assert.Equal(t, []string{"outer", "inner"}, order)
}
