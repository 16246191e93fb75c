package session

import (
	"context"
	"sync"
)

// MemoryStore keeps the two storage keys in a process-local map.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string, 2)}
}

// Save implements [Store].
func (m *MemoryStore) Save(_ context.Context, sess *Session) error {
	userRaw, err := validateForSave(sess)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[KeyToken] = sess.Token
	m.values[KeyUser] = string(userRaw)
	return nil
}

// Load implements [Store].
func (m *MemoryStore) Load(_ context.Context) (*Session, error) {
	m.mu.RLock()
	token, hasToken := m.values[KeyToken]
	userRaw, hasUser := m.values[KeyUser]
	m.mu.RUnlock()

	sess, ok := assemble(token, hasToken, []byte(userRaw), hasUser)
	if !ok {
		return nil, ErrNoSession
	}
	return sess, nil
}

// Clear implements [Store].
func (m *MemoryStore) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, KeyToken)
	delete(m.values, KeyUser)
	return nil
}

// HasToken implements [Store].
func (m *MemoryStore) HasToken(ctx context.Context) (bool, error) {
	token, err := m.Token(ctx)
	return token != "", err
}

// Token implements [Store].
func (m *MemoryStore) Token(_ context.Context) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.values[KeyToken], nil
}

// SetRaw writes a single key without validation. It exists so callers can
// reproduce records left behind by older clients or partial writes.
func (m *MemoryStore) SetRaw(key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
}

// Raw returns the stored value of a single key.
func (m *MemoryStore) Raw(key string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok
}
