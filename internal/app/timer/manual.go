package timer

import (
	"sort"
	"sync"
	"time"
)

// Manual is a Scheduler driven by a virtual clock. Time only moves when Advance is
// called, which makes timer-driven state machines deterministic under test.
type Manual struct {
	// run serializes callback execution, mirroring Loop's single goroutine.
	run sync.Mutex

	mu      sync.Mutex
	now     time.Time
	nextID  uint64
	pending []*Handle
	funcs   map[*Handle]func()
	active  bool
	posted  []func()
}

// NewManual creates a manual scheduler whose clock starts at start.
func NewManual(start time.Time) *Manual {
	return &Manual{
		now:   start,
		funcs: make(map[*Handle]func()),
	}
}

// Now returns the current virtual time.
func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// After schedules fn at now+d.
func (m *Manual) After(d time.Duration, fn func()) *Handle {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	h := &Handle{id: m.nextID, due: m.now.Add(d)}
	m.pending = append(m.pending, h)
	m.funcs[h] = fn
	return h
}

// Cancel removes h from the pending set.
func (m *Manual) Cancel(h *Handle) {
	if h == nil {
		return
	}
	h.cancel()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.removeLocked(h)
}

// Post runs fn immediately when no callback is running. Posts made while a
// callback runs are queued and drained before control returns to the caller.
func (m *Manual) Post(fn func()) {
	m.mu.Lock()
	if m.active {
		m.posted = append(m.posted, fn)
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()

	m.run.Lock()
	defer m.run.Unlock()
	m.exec(fn)
}

// Advance moves the clock forward by d, running every callback that falls due in
// deadline order. Callbacks scheduled while advancing run too if they fall due
// before the new time.
func (m *Manual) Advance(d time.Duration) {
	m.run.Lock()
	defer m.run.Unlock()

	m.mu.Lock()
	target := m.now.Add(d)
	m.mu.Unlock()

	for {
		h, fn, ok := m.nextDue(target)
		if !ok {
			break
		}
		if h.claim() {
			m.exec(fn)
		}
	}

	m.mu.Lock()
	m.now = target
	m.mu.Unlock()
}

// PendingCount returns the number of callbacks waiting to fire.
func (m *Manual) PendingCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}

// exec runs fn and then any callbacks it posted. Must be called with m.run held.
func (m *Manual) exec(fn func()) {
	m.mu.Lock()
	m.active = true
	m.mu.Unlock()

	fn()
	for {
		m.mu.Lock()
		if len(m.posted) == 0 {
			m.active = false
			m.mu.Unlock()
			return
		}
		next := m.posted[0]
		m.posted = m.posted[1:]
		m.mu.Unlock()
		next()
	}
}

// nextDue pops the earliest handle due at or before target and moves the clock to it.
func (m *Manual) nextDue(target time.Time) (*Handle, func(), bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.pending) == 0 {
		return nil, nil, false
	}
	sort.SliceStable(m.pending, func(i, j int) bool {
		if m.pending[i].due.Equal(m.pending[j].due) {
			return m.pending[i].id < m.pending[j].id
		}
		return m.pending[i].due.Before(m.pending[j].due)
	})

	h := m.pending[0]
	if h.due.After(target) {
		return nil, nil, false
	}
	fn := m.funcs[h]
	m.removeLocked(h)
	if h.due.After(m.now) {
		m.now = h.due
	}
	return h, fn, true
}

func (m *Manual) removeLocked(h *Handle) {
	delete(m.funcs, h)
	for i, p := range m.pending {
		if p == h {
			m.pending = append(m.pending[:i], m.pending[i+1:]...)
			return
		}
	}
}
