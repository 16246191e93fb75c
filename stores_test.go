package goAuthClient

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"

	"github.com/MrEthical07/goAuthClient/session"
)

// faultyStore wraps a MemoryStore with switchable failures.
type faultyStore struct {
	*session.MemoryStore

	failLoad  atomic.Bool
	failSave  atomic.Bool
	failClear atomic.Bool
	clears    atomic.Int32
}

func (s *faultyStore) Load(ctx context.Context) (*session.Session, error) {
	if s.failLoad.Load() {
		return nil, fmt.Errorf("%w: load refused", session.ErrStoreUnavailable)
	}
	return s.MemoryStore.Load(ctx)
}

func (s *faultyStore) Save(ctx context.Context, sess *session.Session) error {
	if s.failSave.Load() {
		return fmt.Errorf("%w: save refused", session.ErrStoreUnavailable)
	}
	return s.MemoryStore.Save(ctx, sess)
}

func (s *faultyStore) Clear(ctx context.Context) error {
	s.clears.Add(1)
	if s.failClear.Load() {
		return fmt.Errorf("%w: clear refused", session.ErrStoreUnavailable)
	}
	return s.MemoryStore.Clear(ctx)
}

// blockingStore holds Load until release is closed.
type blockingStore struct {
	*session.MemoryStore
	release chan struct{}
}

func (s *blockingStore) Load(ctx context.Context) (*session.Session, error) {
	select {
	case <-s.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return s.MemoryStore.Load(ctx)
}

type doerFunc func(*http.Request) (*http.Response, error)

func (f doerFunc) Do(req *http.Request) (*http.Response, error) { return f(req) }
