package goAuthClient

import (
	"context"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/MrEthical07/goAuthClient/gateway"
	"github.com/MrEthical07/goAuthClient/session"
)

// Manager owns the in-memory authentication state of one client process.
type Manager struct {
	cfg     Config
	store   session.Store
	gw      *gateway.Client
	log     logrus.FieldLogger
	metrics *Metrics
	audit   *auditQueue
	now     func() time.Time
	newID   func() string

	// transMu serializes transitions together with their store writes and
	// notifications.
	transMu sync.Mutex

	stateMu sync.RWMutex
	state   State

	subMu   sync.RWMutex
	subs    map[uint64]Subscriber
	nextSub uint64

	ready     chan struct{}
	closed    atomic.Bool
	closeOnce sync.Once
}

// State returns the current snapshot.
func (m *Manager) State() State {
	m.stateMu.RLock()
	defer m.stateMu.RUnlock()
	return m.state
}

// User returns the authenticated user and true, or the zero User and false.
func (m *Manager) User() (User, bool) {
	st := m.State()
	return st.User, st.IsAuthenticated()
}

func (m *Manager) IsAuthenticated() bool {
	return m.State().IsAuthenticated()
}

// Ready is closed once hydration has resolved the initial State.
func (m *Manager) Ready() <-chan struct{} {
	return m.ready
}

// WaitReady blocks until hydration completes or ctx is done.
func (m *Manager) WaitReady(ctx context.Context) error {
	select {
	case <-m.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Subscribe registers fn for every later transition and returns a function
// that removes it. fn runs synchronously on the goroutine that completed
// the transition, while further transitions wait. It must not call SignIn,
// SignUp or SignOut, nor issue gateway requests, without first handing off
// to another goroutine.
func (m *Manager) Subscribe(fn Subscriber) (unsubscribe func()) {
	if fn == nil {
		return func() {}
	}
	id := m.addSubscriber(fn)
	var once sync.Once
	return func() {
		once.Do(func() {
			m.subMu.Lock()
			delete(m.subs, id)
			m.subMu.Unlock()
		})
	}
}

func (m *Manager) addSubscriber(fn Subscriber) uint64 {
	m.subMu.Lock()
	defer m.subMu.Unlock()
	m.nextSub++
	m.subs[m.nextSub] = fn
	return m.nextSub
}

// Gateway returns the client shared with the Manager, for requests to
// endpoints outside the session lifecycle.
func (m *Manager) Gateway() *gateway.Client {
	return m.gw
}

func (m *Manager) Metrics() *Metrics {
	return m.metrics
}

func (m *Manager) MetricsSnapshot() MetricsSnapshot {
	return m.metrics.Snapshot()
}

// AuditDropped returns how many audit events were dropped on a full buffer.
func (m *Manager) AuditDropped() uint64 {
	return m.audit.Dropped()
}

// Close flushes pending audit events. The store is owned by the caller and
// is left open.
func (m *Manager) Close() {
	m.closeOnce.Do(func() {
		m.closed.Store(true)
		m.audit.Close()
	})
}

// commit replaces the state and notifies subscribers. Callers hold transMu.
func (m *Manager) commit(st State) {
	m.stateMu.Lock()
	m.state = st
	m.stateMu.Unlock()

	m.subMu.RLock()
	ids := make([]uint64, 0, len(m.subs))
	for id := range m.subs {
		ids = append(ids, id)
	}
	m.subMu.RUnlock()

	// Registration order.
	slices.Sort(ids)
	for _, id := range ids {
		m.subMu.RLock()
		fn, ok := m.subs[id]
		m.subMu.RUnlock()
		if ok {
			fn(st)
		}
	}
}

// awaitReady blocks a transition until hydration has committed.
func (m *Manager) awaitReady(ctx context.Context) error {
	if m.closed.Load() {
		return ErrManagerClosed
	}
	return m.WaitReady(ctx)
}

func (m *Manager) emitAudit(ctx context.Context, event AuditEvent) {
	if m.audit == nil {
		return
	}
	if event.ID == "" {
		event.ID = m.newID()
	}
	if event.Time.IsZero() {
		event.Time = m.now().UTC()
	}
	m.audit.Emit(ctx, event)
}
