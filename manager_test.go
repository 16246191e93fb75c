package goAuthClient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	gjwt "github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrEthical07/goAuthClient/gateway"
	"github.com/MrEthical07/goAuthClient/session"
)

var testUser = User{ID: "1", Name: "A", Email: "a@b.com"}

// fakeAPI serves the three session endpoints with scripted responses.
type fakeAPI struct {
	mu       sync.Mutex
	signIn   func(w http.ResponseWriter, r *http.Request)
	signUp   func(w http.ResponseWriter, r *http.Request)
	profile  func(w http.ResponseWriter, r *http.Request)
	requests []recordedRequest
}

type recordedRequest struct {
	Method string
	Path   string
	Auth   string
	Body   map[string]any
}

func okSession(u User, tok string) func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"user": u, "token": tok})
	}
}

func status(code int, body any) func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, code, body)
	}
}

func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rec := recordedRequest{Method: r.Method, Path: r.URL.Path, Auth: r.Header.Get("Authorization")}
	if r.ContentLength > 0 {
		_ = json.NewDecoder(r.Body).Decode(&rec.Body)
	}

	f.mu.Lock()
	f.requests = append(f.requests, rec)
	var h func(http.ResponseWriter, *http.Request)
	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/api/users/sessions":
		h = f.signIn
	case r.Method == http.MethodPost && r.URL.Path == "/api/users":
		h = f.signUp
	case r.Method == http.MethodGet && r.URL.Path == "/api/users/profile":
		h = f.profile
	}
	f.mu.Unlock()

	if h == nil {
		http.NotFound(w, r)
		return
	}
	h(w, r)
}

func (f *fakeAPI) set(fn func(*fakeAPI)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

func (f *fakeAPI) last(t *testing.T) recordedRequest {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.requests)
	return f.requests[len(f.requests)-1]
}

// stateRecorder collects every notified State.
type stateRecorder struct {
	mu     sync.Mutex
	states []State
}

func (r *stateRecorder) record(s State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, s)
}

func (r *stateRecorder) all() []State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]State(nil), r.states...)
}

type harness struct {
	api     *fakeAPI
	store   *session.MemoryStore
	manager *Manager
	seen    *stateRecorder
	logs    *logtest.Hook
}

type harnessOption func(*Config, *Builder)

func withConfig(fn func(*Config)) harnessOption {
	return func(c *Config, _ *Builder) { fn(c) }
}

func newHarness(t *testing.T, store *session.MemoryStore, opts ...harnessOption) *harness {
	t.Helper()

	api := &fakeAPI{}
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	if store == nil {
		store = session.NewMemoryStore()
	}
	logger, hook := logtest.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	seen := &stateRecorder{}

	cfg := DefaultConfig()
	cfg.API.BaseURL = srv.URL + "/api"
	cfg.Metrics.Enabled = true

	b := New().WithStore(store).WithLogger(logger).WithSubscriber(seen.record)
	for _, opt := range opts {
		opt(&cfg, b)
	}
	b.WithConfig(cfg)

	m, err := b.Build()
	require.NoError(t, err)
	t.Cleanup(m.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, m.WaitReady(ctx))

	return &harness{api: api, store: store, manager: m, seen: seen, logs: hook}
}

func seedSession(t *testing.T, u User, tok string) *session.MemoryStore {
	t.Helper()
	store := session.NewMemoryStore()
	require.NoError(t, store.Save(context.Background(), &session.Session{User: u, Token: tok}))
	return store
}

func TestHydrateEmptyStoreIsAnonymous(t *testing.T) {
	h := newHarness(t, nil)

	assert.Equal(t, State{Phase: PhaseAnonymous}, h.manager.State())
	assert.Equal(t, []State{{Phase: PhaseAnonymous}}, h.seen.all())
	assert.Equal(t, uint64(1), h.manager.Metrics().Value(MetricHydrateAnonymous))
	assert.Zero(t, h.manager.Metrics().Value(MetricHydrateRecovered))
}

func TestHydrateStoredSessionIsAuthenticated(t *testing.T) {
	h := newHarness(t, seedSession(t, testUser, "tok123"))

	st := h.manager.State()
	assert.Equal(t, PhaseAuthenticated, st.Phase)
	assert.Equal(t, testUser, st.User)
	assert.Len(t, h.seen.all(), 1, "hydration notifies exactly once")

	u, ok := h.manager.User()
	assert.True(t, ok)
	assert.Equal(t, testUser, u)
}

func TestStateIsInitializingBeforeHydration(t *testing.T) {
	store := &blockingStore{MemoryStore: session.NewMemoryStore(), release: make(chan struct{})}
	logger, _ := logtest.NewNullLogger()

	m, err := New().WithStore(store).WithLogger(logger).Build()
	require.NoError(t, err)
	defer m.Close()

	assert.Equal(t, PhaseInitializing, m.State().Phase)
	select {
	case <-m.Ready():
		t.Fatal("ready closed before hydration finished")
	default:
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, m.WaitReady(ctx), context.DeadlineExceeded)

	close(store.release)
	require.NoError(t, m.WaitReady(context.Background()))
	assert.Equal(t, PhaseAnonymous, m.State().Phase)
}

func TestSignInPersistsAndAuthenticates(t *testing.T) {
	h := newHarness(t, nil)
	h.api.set(func(f *fakeAPI) { f.signIn = okSession(testUser, "tok123") })

	u, err := h.manager.SignIn(context.Background(), "a@b.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, testUser, u)

	req := h.api.last(t)
	assert.Equal(t, "/api/users/sessions", req.Path)
	assert.Equal(t, map[string]any{"email": "a@b.com", "password": "secret"}, req.Body)
	assert.Empty(t, req.Auth)

	got, err := h.store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, &session.Session{User: testUser, Token: "tok123"}, got)

	assert.Equal(t, State{Phase: PhaseAuthenticated, User: testUser}, h.manager.State())
	assert.Equal(t, []State{{Phase: PhaseAnonymous}, {Phase: PhaseAuthenticated, User: testUser}}, h.seen.all())
	assert.Equal(t, uint64(1), h.manager.Metrics().Value(MetricSignInSuccess))

	// The stored token authorizes later requests.
	h.api.set(func(f *fakeAPI) { f.profile = status(http.StatusOK, testUser) })
	profile, err := h.manager.Profile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, testUser, profile)
	assert.Equal(t, "Bearer tok123", h.api.last(t).Auth)
}

func TestSignInRejectedLeavesStateUnchanged(t *testing.T) {
	h := newHarness(t, nil)
	h.api.set(func(f *fakeAPI) {
		f.signIn = status(http.StatusUnauthorized, map[string]string{"message": "invalid credentials"})
	})

	_, err := h.manager.SignIn(context.Background(), "a@b.com", "wrong")
	require.Error(t, err)
	assert.Equal(t, "invalid credentials", err.Error())
	assert.ErrorIs(t, err, ErrUnauthorized)

	httpErr, ok := gateway.AsHTTPError(err)
	require.True(t, ok)
	assert.Equal(t, "invalid credentials", httpErr.Message)

	assert.Equal(t, PhaseAnonymous, h.manager.State().Phase)
	assert.Len(t, h.seen.all(), 1, "no notification beyond hydration")
	assert.Equal(t, uint64(1), h.manager.Metrics().Value(MetricSignInFailure))

	_, err = h.store.Load(context.Background())
	assert.ErrorIs(t, err, session.ErrNoSession)
}

func TestSignInUnauthorizedWhileAuthenticatedEndsSession(t *testing.T) {
	h := newHarness(t, seedSession(t, testUser, "tok123"))
	h.api.set(func(f *fakeAPI) {
		f.signIn = status(http.StatusUnauthorized, map[string]string{"message": "invalid credentials"})
	})

	_, err := h.manager.SignIn(context.Background(), "b@c.com", "wrong")
	httpErr, ok := gateway.AsHTTPError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusUnauthorized, httpErr.Status)
	assert.Equal(t, "invalid credentials", err.Error())

	assert.Equal(t, State{Phase: PhaseAnonymous}, h.manager.State())
	assert.Equal(t, []State{
		{Phase: PhaseAuthenticated, User: testUser},
		{Phase: PhaseAnonymous},
	}, h.seen.all())
	assert.Equal(t, uint64(1), h.manager.Metrics().Value(MetricSignInFailure))
	assert.Equal(t, uint64(1), h.manager.Metrics().Value(MetricSessionExpired))

	_, err = h.store.Load(context.Background())
	assert.ErrorIs(t, err, session.ErrNoSession)
}

func TestSignInUnauthorizedWithoutReconcileKeepsState(t *testing.T) {
	h := newHarness(t, seedSession(t, testUser, "tok123"), withConfig(func(c *Config) {
		c.Session.ReconcileOnUnauthorized = false
	}))
	h.api.set(func(f *fakeAPI) {
		f.signIn = status(http.StatusUnauthorized, map[string]string{"message": "invalid credentials"})
	})

	_, err := h.manager.SignIn(context.Background(), "b@c.com", "wrong")
	assert.ErrorIs(t, err, ErrUnauthorized)

	assert.Equal(t, State{Phase: PhaseAuthenticated, User: testUser}, h.manager.State())
	assert.Len(t, h.seen.all(), 1)
	has, _ := h.store.HasToken(context.Background())
	assert.False(t, has, "gateway still clears the store")
}

func TestSignInNetworkFailureKeepsExistingSession(t *testing.T) {
	store := seedSession(t, testUser, "tok123")
	logger, _ := logtest.NewNullLogger()
	down := doerFunc(func(*http.Request) (*http.Response, error) {
		return nil, errors.New("dial tcp: connection refused")
	})

	m, err := New().WithStore(store).WithLogger(logger).WithDoer(down).Build()
	require.NoError(t, err)
	defer m.Close()
	require.NoError(t, m.WaitReady(context.Background()))

	_, err = m.SignIn(context.Background(), "b@c.com", "secret")
	assert.ErrorIs(t, err, ErrNetwork)

	assert.Equal(t, State{Phase: PhaseAuthenticated, User: testUser}, m.State())
	got, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok123", got.Token)
}

func TestSignInWithoutTokenIsRejected(t *testing.T) {
	h := newHarness(t, nil)
	h.api.set(func(f *fakeAPI) {
		f.signIn = status(http.StatusOK, map[string]any{"user": testUser})
	})

	_, err := h.manager.SignIn(context.Background(), "a@b.com", "secret")
	assert.ErrorIs(t, err, ErrInvalidAuthResponse)
	assert.Equal(t, PhaseAnonymous, h.manager.State().Phase)

	has, _ := h.store.HasToken(context.Background())
	assert.False(t, has)
}

func TestSignInMalformedBodyIsDecodeError(t *testing.T) {
	h := newHarness(t, nil)
	h.api.set(func(f *fakeAPI) {
		f.signIn = func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("<html>"))
		}
	})

	_, err := h.manager.SignIn(context.Background(), "a@b.com", "secret")
	assert.ErrorIs(t, err, ErrDecode)
	assert.Equal(t, PhaseAnonymous, h.manager.State().Phase)
}

func TestSignInStoreFailureLeavesStateUnchanged(t *testing.T) {
	store := &faultyStore{MemoryStore: session.NewMemoryStore()}
	logger, _ := logtest.NewNullLogger()

	api := &fakeAPI{signIn: okSession(testUser, "tok123")}
	srv := httptest.NewServer(api)
	defer srv.Close()

	cfg := DefaultConfig()
	cfg.API.BaseURL = srv.URL + "/api"
	m, err := New().WithConfig(cfg).WithStore(store).WithLogger(logger).Build()
	require.NoError(t, err)
	defer m.Close()
	require.NoError(t, m.WaitReady(context.Background()))

	store.failSave.Store(true)
	_, err = m.SignIn(context.Background(), "a@b.com", "secret")
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	assert.Equal(t, PhaseAnonymous, m.State().Phase)
}

func TestSignUpPostsRegistration(t *testing.T) {
	h := newHarness(t, nil)
	newUser := User{ID: "2", Name: "B", Email: "b@c.com"}
	h.api.set(func(f *fakeAPI) { f.signUp = okSession(newUser, "tok456") })

	u, err := h.manager.SignUp(context.Background(), "B", "b@c.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, newUser, u)

	req := h.api.last(t)
	assert.Equal(t, "/api/users", req.Path)
	assert.Equal(t, map[string]any{"name": "B", "email": "b@c.com", "password": "secret"}, req.Body)

	assert.Equal(t, State{Phase: PhaseAuthenticated, User: newUser}, h.manager.State())
	assert.Equal(t, uint64(1), h.manager.Metrics().Value(MetricSignUpSuccess))
}

func TestSignUpConflictPropagates(t *testing.T) {
	h := newHarness(t, nil)
	h.api.set(func(f *fakeAPI) {
		f.signUp = status(http.StatusConflict, map[string]string{"message": "email taken"})
	})

	_, err := h.manager.SignUp(context.Background(), "B", "b@c.com", "secret")
	httpErr, ok := gateway.AsHTTPError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusConflict, httpErr.Status)
	assert.Equal(t, "email taken", httpErr.Message)
	assert.Equal(t, PhaseAnonymous, h.manager.State().Phase)
}

func TestSignOutAlwaysClearsAndNotifies(t *testing.T) {
	h := newHarness(t, seedSession(t, testUser, "tok123"))

	h.manager.SignOut(context.Background())
	assert.Equal(t, State{Phase: PhaseAnonymous}, h.manager.State())
	_, err := h.store.Load(context.Background())
	assert.ErrorIs(t, err, session.ErrNoSession)

	// Signing out while anonymous still clears and notifies.
	h.store.SetRaw(session.KeyUser, `{"id":"9"}`)
	h.manager.SignOut(context.Background())
	assert.Equal(t, PhaseAnonymous, h.manager.State().Phase)
	_, present := h.store.Raw(session.KeyUser)
	assert.False(t, present)

	assert.Equal(t, []State{
		{Phase: PhaseAuthenticated, User: testUser},
		{Phase: PhaseAnonymous},
		{Phase: PhaseAnonymous},
	}, h.seen.all())
	assert.Equal(t, uint64(2), h.manager.Metrics().Value(MetricSignOut))
}

func TestSignOutSurvivesStoreFailure(t *testing.T) {
	store := &faultyStore{MemoryStore: seedSession(t, testUser, "tok123")}
	logger, hook := logtest.NewNullLogger()

	m, err := New().WithStore(store).WithLogger(logger).Build()
	require.NoError(t, err)
	defer m.Close()
	require.NoError(t, m.WaitReady(context.Background()))
	require.True(t, m.IsAuthenticated())

	store.failClear.Store(true)
	m.SignOut(context.Background())

	assert.Equal(t, PhaseAnonymous, m.State().Phase)
	assert.Equal(t, "session clear on sign out failed", hook.LastEntry().Message)
}

func TestSignOutIgnoresCanceledContext(t *testing.T) {
	h := newHarness(t, seedSession(t, testUser, "tok123"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	h.manager.SignOut(ctx)

	assert.Equal(t, PhaseAnonymous, h.manager.State().Phase)
	has, _ := h.store.HasToken(context.Background())
	assert.False(t, has)
}

func TestUnauthorizedRequestEndsSession(t *testing.T) {
	h := newHarness(t, seedSession(t, testUser, "tok123"))
	h.api.set(func(f *fakeAPI) {
		f.profile = status(http.StatusUnauthorized, map[string]string{"message": "token expired"})
	})

	_, err := h.manager.Profile(context.Background())
	assert.ErrorIs(t, err, ErrUnauthorized)

	assert.Equal(t, State{Phase: PhaseAnonymous}, h.manager.State())
	assert.Equal(t, []State{
		{Phase: PhaseAuthenticated, User: testUser},
		{Phase: PhaseAnonymous},
	}, h.seen.all())
	assert.Equal(t, uint64(1), h.manager.Metrics().Value(MetricSessionExpired))
	assert.Equal(t, uint64(1), h.manager.Metrics().Value(MetricRequestUnauthorized))

	_, err = h.store.Load(context.Background())
	assert.ErrorIs(t, err, session.ErrNoSession)

	// Once anonymous, further 401s do not notify.
	_, _ = h.manager.Profile(context.Background())
	assert.Len(t, h.seen.all(), 2)
}

func TestUnauthorizedWithoutReconcileKeepsMemoryState(t *testing.T) {
	h := newHarness(t, seedSession(t, testUser, "tok123"), withConfig(func(c *Config) {
		c.Session.ReconcileOnUnauthorized = false
	}))
	h.api.set(func(f *fakeAPI) { f.profile = status(http.StatusUnauthorized, map[string]string{}) })

	_, err := h.manager.Profile(context.Background())
	assert.ErrorIs(t, err, ErrUnauthorized)

	assert.Equal(t, PhaseAuthenticated, h.manager.State().Phase)
	has, _ := h.store.HasToken(context.Background())
	assert.False(t, has, "gateway still clears the store")
}

func TestForbiddenDoesNotEndSession(t *testing.T) {
	h := newHarness(t, seedSession(t, testUser, "tok123"))
	h.api.set(func(f *fakeAPI) { f.profile = status(http.StatusForbidden, map[string]string{"message": "nope"}) })

	_, err := h.manager.Profile(context.Background())
	assert.ErrorIs(t, err, ErrForbidden)
	assert.Equal(t, PhaseAuthenticated, h.manager.State().Phase)
	assert.Equal(t, uint64(1), h.manager.Metrics().Value(MetricRequestForbidden))

	has, _ := h.store.HasToken(context.Background())
	assert.True(t, has)
}

func TestHydrateMalformedUserClearsStore(t *testing.T) {
	store := session.NewMemoryStore()
	store.SetRaw(session.KeyToken, "tok123")
	store.SetRaw(session.KeyUser, "{not json")

	h := newHarness(t, store)

	assert.Equal(t, State{Phase: PhaseAnonymous}, h.manager.State())
	_, err := store.Load(context.Background())
	assert.ErrorIs(t, err, session.ErrNoSession)
	has, _ := store.HasToken(context.Background())
	assert.False(t, has)
	assert.Equal(t, uint64(1), h.manager.Metrics().Value(MetricHydrateRecovered))
}

func TestHydrateOrphanUserRecordIsCleared(t *testing.T) {
	store := session.NewMemoryStore()
	store.SetRaw(session.KeyUser, `{"id":"1","name":"A","email":"a@b.com"}`)

	h := newHarness(t, store)

	assert.Equal(t, PhaseAnonymous, h.manager.State().Phase)
	_, present := store.Raw(session.KeyUser)
	assert.False(t, present)
}

func TestHydrateStoreErrorFallsBackToAnonymous(t *testing.T) {
	store := &faultyStore{MemoryStore: seedSession(t, testUser, "tok123")}
	store.failLoad.Store(true)
	logger, hook := logtest.NewNullLogger()

	m, err := New().WithStore(store).WithLogger(logger).WithMetricsEnabled(true).Build()
	require.NoError(t, err)
	defer m.Close()
	require.NoError(t, m.WaitReady(context.Background()))

	assert.Equal(t, PhaseAnonymous, m.State().Phase)
	assert.Equal(t, int32(1), store.clears.Load())
	assert.Equal(t, uint64(1), m.Metrics().Value(MetricHydrateRecovered))

	var found bool
	for _, e := range hook.AllEntries() {
		if e.Message == "session hydration failed, clearing session" {
			found = true
			assert.Equal(t, logrus.ErrorLevel, e.Level)
		}
	}
	assert.True(t, found)
}

func TestHydrateDiscardsExpiredJWT(t *testing.T) {
	claims := gjwt.RegisteredClaims{
		Subject:   "1",
		ExpiresAt: gjwt.NewNumericDate(time.Now().Add(-time.Hour)),
	}
	expired, err := gjwt.NewWithClaims(gjwt.SigningMethodHS256, claims).SignedString([]byte("k"))
	require.NoError(t, err)

	sink := NewChannelSink(8)
	store := seedSession(t, testUser, expired)
	h := newHarness(t, store, withConfig(func(c *Config) {
		c.Session.DiscardExpiredTokens = true
		c.Audit.Enabled = true
	}), func(_ *Config, b *Builder) { b.WithAuditSink(sink) })

	assert.Equal(t, PhaseAnonymous, h.manager.State().Phase)
	has, _ := store.HasToken(context.Background())
	assert.False(t, has)

	h.manager.Close()
	var events []AuditEvent
	for len(sink.Events()) > 0 {
		events = append(events, <-sink.Events())
	}
	require.Len(t, events, 2)
	assert.Equal(t, AuditSessionExpired, events[0].Kind)
	assert.Equal(t, "token_expired", events[0].Reason)
	assert.Equal(t, AuditSessionHydrated, events[1].Kind)
	assert.Equal(t, "store_recovered", events[1].Reason)
	assert.Equal(t, PhaseAnonymous, events[1].Phase)
}

func TestHydrateKeepsOpaqueTokenWhenDiscardingExpired(t *testing.T) {
	h := newHarness(t, seedSession(t, testUser, "tok123"), withConfig(func(c *Config) {
		c.Session.DiscardExpiredTokens = true
	}))
	assert.Equal(t, PhaseAuthenticated, h.manager.State().Phase)
}

func TestUnsubscribeStopsNotifications(t *testing.T) {
	h := newHarness(t, nil)
	h.api.set(func(f *fakeAPI) { f.signIn = okSession(testUser, "tok123") })

	var calls int
	unsubscribe := h.manager.Subscribe(func(State) { calls++ })

	_, err := h.manager.SignIn(context.Background(), "a@b.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, 1, calls)

	unsubscribe()
	unsubscribe()
	h.manager.SignOut(context.Background())
	assert.Equal(t, 1, calls)
}

func TestConcurrentTransitionsNotifyInCommitOrder(t *testing.T) {
	h := newHarness(t, nil)
	h.api.set(func(f *fakeAPI) { f.signIn = okSession(testUser, "tok123") })

	const workers = 16
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				_, _ = h.manager.SignIn(context.Background(), "a@b.com", "secret")
				return
			}
			h.manager.SignOut(context.Background())
		}(i)
	}
	wg.Wait()

	seen := h.seen.all()
	require.Len(t, seen, workers+1)
	final := seen[len(seen)-1]
	assert.Equal(t, final, h.manager.State())

	_, err := h.store.Load(context.Background())
	if final.IsAuthenticated() {
		assert.NoError(t, err)
	} else {
		assert.ErrorIs(t, err, session.ErrNoSession)
	}
}

func TestAuditRecordsSignInAttempts(t *testing.T) {
	sink := NewChannelSink(16)
	h := newHarness(t, nil, withConfig(func(c *Config) {
		c.Audit.Enabled = true
	}), func(_ *Config, b *Builder) { b.WithAuditSink(sink) })

	h.api.set(func(f *fakeAPI) {
		f.signIn = status(http.StatusUnauthorized, map[string]string{"message": "invalid credentials"})
	})
	_, _ = h.manager.SignIn(context.Background(), "a@b.com", "wrong")

	h.api.set(func(f *fakeAPI) { f.signIn = okSession(testUser, "tok123") })
	_, err := h.manager.SignIn(context.Background(), "a@b.com", "secret")
	require.NoError(t, err)

	h.manager.Close()

	var events []AuditEvent
	for len(sink.Events()) > 0 {
		events = append(events, <-sink.Events())
	}
	require.Len(t, events, 3)
	assert.Equal(t, AuditSessionHydrated, events[0].Kind)

	assert.Equal(t, AuditSignIn, events[1].Kind)
	assert.True(t, events[1].Failed())
	assert.Equal(t, "invalid credentials", events[1].Err)
	assert.Equal(t, http.StatusUnauthorized, events[1].Status)
	assert.Equal(t, PhaseAnonymous, events[1].Phase)
	assert.NotEmpty(t, events[1].RequestID)

	assert.Equal(t, AuditSignIn, events[2].Kind)
	assert.False(t, events[2].Failed())
	assert.Equal(t, PhaseAuthenticated, events[2].Phase)
	assert.Equal(t, "1", events[2].UserID)
	assert.NotEmpty(t, events[2].ID)
	assert.False(t, events[2].Time.IsZero())
}

func TestOperationsAfterClose(t *testing.T) {
	h := newHarness(t, nil)
	h.manager.Close()

	_, err := h.manager.SignIn(context.Background(), "a@b.com", "secret")
	assert.ErrorIs(t, err, ErrManagerClosed)
}

func TestBuilderIsSingleUse(t *testing.T) {
	logger, _ := logtest.NewNullLogger()
	b := New().WithLogger(logger)

	m, err := b.Build()
	require.NoError(t, err)
	defer m.Close()

	_, err = b.Build()
	assert.ErrorIs(t, err, ErrBuilderUsed)
}

func TestBuilderRejectsInvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.API.BaseURL = "localhost:3333"
	_, err := New().WithConfig(cfg).Build()
	assert.Error(t, err)
}

func TestBuilderObserversSeeRequests(t *testing.T) {
	var outcomes []gateway.Outcome
	obs := gateway.ObserverFunc(func(_ context.Context, o gateway.Observation) {
		outcomes = append(outcomes, o.Outcome)
	})
	h := newHarness(t, nil, func(_ *Config, b *Builder) { b.WithObserver(obs) })
	h.api.set(func(f *fakeAPI) { f.profile = status(http.StatusBadGateway, map[string]string{}) })

	_, err := h.manager.Profile(context.Background())
	assert.ErrorIs(t, err, ErrServer)
	assert.Equal(t, []gateway.Outcome{gateway.OutcomeServerError}, outcomes)
	assert.Equal(t, uint64(1), h.manager.MetricsSnapshot().Counters[MetricRequestServerError])
}

func TestGatewayUsesConfiguredUserAgent(t *testing.T) {
	var ua string
	h := newHarness(t, nil, withConfig(func(c *Config) { c.API.UserAgent = "authclient-test/1" }))
	h.api.set(func(f *fakeAPI) {
		f.profile = func(w http.ResponseWriter, r *http.Request) {
			ua = r.Header.Get("User-Agent")
			writeJSON(w, http.StatusOK, testUser)
		}
	})

	err := h.manager.Gateway().Do(context.Background(), http.MethodGet, "users/profile", nil, nil)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(ua, "authclient-test/1"))
}
