package goAuthClient

import (
	"context"
	"fmt"

	"github.com/MrEthical07/goAuthClient/gateway"
	"github.com/MrEthical07/goAuthClient/session"
)

const (
	endpointSignIn  = "/users/sessions"
	endpointSignUp  = "/users"
	endpointProfile = "/users/profile"
)

// SignIn exchanges email and password for a session, persists it and moves
// to PhaseAuthenticated. The error is returned unchanged, so errors.As with
// *gateway.HTTPError exposes the server's message. A failed attempt leaves
// the state as it was, except for a 401: the gateway has already cleared the
// stored session, and with Session.ReconcileOnUnauthorized set an
// authenticated Manager moves to PhaseAnonymous as for any other 401.
func (m *Manager) SignIn(ctx context.Context, email, password string) (User, error) {
	return m.authenticate(ctx, authAttempt{
		event:    AuditSignIn,
		endpoint: endpointSignIn,
		body:     Credentials{Email: email, Password: password},
		success:  MetricSignInSuccess,
		failure:  MetricSignInFailure,
	})
}

// SignUp registers an account and signs it in with the same contract as
// SignIn.
func (m *Manager) SignUp(ctx context.Context, name, email, password string) (User, error) {
	return m.authenticate(ctx, authAttempt{
		event:    AuditSignUp,
		endpoint: endpointSignUp,
		body:     RegistrationData{Name: name, Email: email, Password: password},
		success:  MetricSignUpSuccess,
		failure:  MetricSignUpFailure,
	})
}

type authAttempt struct {
	event    AuditKind
	endpoint string
	body     any
	success  MetricID
	failure  MetricID
}

func (m *Manager) authenticate(ctx context.Context, a authAttempt) (User, error) {
	if m.closed.Load() {
		return User{}, ErrManagerClosed
	}

	requestID := m.newID()
	log := m.log.WithField("request_id", requestID)

	resp, err := gateway.Post[authResponse](ctx, m.gw, a.endpoint, a.body, gateway.WithRequestID(requestID))
	if err == nil && resp.Token == "" {
		err = fmt.Errorf("%w: missing token", ErrInvalidAuthResponse)
	}
	if err != nil {
		return User{}, m.authFailed(ctx, a, requestID, err)
	}

	if err := m.awaitReady(ctx); err != nil {
		return User{}, m.authFailed(ctx, a, requestID, err)
	}

	m.transMu.Lock()
	defer m.transMu.Unlock()

	if err := m.store.Save(ctx, &session.Session{User: resp.User, Token: resp.Token}); err != nil {
		return User{}, m.authFailed(ctx, a, requestID, err)
	}
	m.commit(authenticatedState(resp.User))

	m.metrics.Inc(a.success)
	m.emitAudit(ctx, AuditEvent{
		Kind:      a.event,
		UserID:    resp.User.ID,
		RequestID: requestID,
		Phase:     PhaseAuthenticated,
		Endpoint:  a.endpoint,
	})
	log.WithField("user_id", resp.User.ID).Info(string(a.event) + " succeeded")

	return resp.User, nil
}

func (m *Manager) authFailed(ctx context.Context, a authAttempt, requestID string, err error) error {
	m.metrics.Inc(a.failure)
	var status int
	if httpErr, ok := gateway.AsHTTPError(err); ok {
		status = httpErr.Status
	}
	m.emitAudit(ctx, AuditEvent{
		Kind:      a.event,
		RequestID: requestID,
		Phase:     m.State().Phase,
		Err:       err.Error(),
		Endpoint:  a.endpoint,
		Status:    status,
	})
	m.log.WithError(err).WithField("request_id", requestID).Warn(string(a.event) + " failed")
	return err
}

// SignOut clears the store and moves to PhaseAnonymous. It always
// completes; a failed clear is logged and cancellation of ctx is ignored.
// It waits for hydration so a late hydration cannot resurrect the session.
func (m *Manager) SignOut(ctx context.Context) {
	ctx = context.WithoutCancel(ctx)
	<-m.ready

	m.transMu.Lock()
	defer m.transMu.Unlock()

	prev := m.State()
	if err := m.store.Clear(ctx); err != nil {
		m.log.WithError(err).Error("session clear on sign out failed")
	}
	m.commit(anonymousState())

	m.metrics.Inc(MetricSignOut)
	m.emitAudit(ctx, AuditEvent{
		Kind:   AuditSignOut,
		UserID: prev.User.ID,
		Phase:  PhaseAnonymous,
	})
}

// Profile fetches the current user from the API. It does not change State.
func (m *Manager) Profile(ctx context.Context) (User, error) {
	return gateway.Get[User](ctx, m.gw, endpointProfile)
}
