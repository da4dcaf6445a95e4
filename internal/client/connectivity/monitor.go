// Package connectivity tracks whether the client can reach the server
// and broadcasts transitions to interested parties.
package connectivity

import (
	"sync"

	"github.com/shoplist/server/internal/observability"
)

// Monitor holds the process-wide online flag. It is constructed once
// with the platform's current connectivity signal and disposed with
// Close; there is no hidden global state.
type Monitor struct {
	mu          sync.Mutex
	online      bool
	closed      bool
	subscribers map[int]func(online bool)
	nextSubID   int
	syncTrigger func()

	log *observability.Logger
}

// NewMonitor creates a monitor seeded with the given initial status
func NewMonitor(initialOnline bool) *Monitor {
	return &Monitor{
		online:      initialOnline,
		subscribers: make(map[int]func(online bool)),
		log:         observability.GetLogger().WithField("component", "connectivity"),
	}
}

// SetSyncTrigger installs the callback fired (in its own goroutine)
// whenever the monitor transitions to online. The trigger is
// best-effort; its outcome is not awaited.
func (m *Monitor) SetSyncTrigger(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.syncTrigger = fn
}

// Online returns the current connectivity status
func (m *Monitor) Online() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// Subscribe registers a callback for status transitions and returns an
// unsubscribe handle. Callback invocation order is unspecified.
func (m *Monitor) Subscribe(fn func(online bool)) func() {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextSubID
	m.nextSubID++
	m.subscribers[id] = fn

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.subscribers, id)
	}
}

// SetOnline records a transition to online. Subscribers are notified
// synchronously, then one sync run is kicked off without waiting for
// it. Calling while already online is a no-op.
func (m *Monitor) SetOnline() {
	m.mu.Lock()
	if m.closed || m.online {
		m.mu.Unlock()
		return
	}
	m.online = true
	subs := m.snapshotSubscribers()
	trigger := m.syncTrigger
	m.mu.Unlock()

	m.log.Info("connectivity restored")
	for _, fn := range subs {
		fn(true)
	}
	if trigger != nil {
		go trigger()
	}
}

// SetOffline records a transition to offline and notifies subscribers.
// The pending queue is untouched.
func (m *Monitor) SetOffline() {
	m.mu.Lock()
	if m.closed || !m.online {
		m.mu.Unlock()
		return
	}
	m.online = false
	subs := m.snapshotSubscribers()
	m.mu.Unlock()

	m.log.Info("connectivity lost")
	for _, fn := range subs {
		fn(false)
	}
}

// Close drops all subscribers and ignores further transitions
func (m *Monitor) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.subscribers = make(map[int]func(online bool))
	m.syncTrigger = nil
}

// snapshotSubscribers must be called with the lock held
func (m *Monitor) snapshotSubscribers() []func(online bool) {
	subs := make([]func(online bool), 0, len(m.subscribers))
	for _, fn := range m.subscribers {
		subs = append(subs, fn)
	}
	return subs
}
