package goAuthClient

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/goAuthClient/session"
	"github.com/MrEthical07/goAuthClient/token"
)

const defaultHydrateTimeout = 30 * time.Second

// initialize resolves the initial State from the store and notifies
// subscribers once. Failures are absorbed: the fallback is PhaseAnonymous
// with a cleared store.
func (m *Manager) initialize() {
	defer close(m.ready)

	timeout := m.cfg.API.Timeout
	if timeout <= 0 {
		timeout = defaultHydrateTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	m.transMu.Lock()
	defer m.transMu.Unlock()

	st, recovered := m.hydrate(ctx)
	m.commit(st)

	if st.IsAuthenticated() {
		m.metrics.Inc(MetricHydrateAuthenticated)
	} else {
		m.metrics.Inc(MetricHydrateAnonymous)
	}
	if recovered {
		m.metrics.Inc(MetricHydrateRecovered)
	}
	event := AuditEvent{
		Kind:   AuditSessionHydrated,
		UserID: st.User.ID,
		Phase:  st.Phase,
	}
	if recovered {
		event.Reason = "store_recovered"
	}
	m.emitAudit(ctx, event)
	m.log.WithField("phase", st.Phase.String()).Debug("session hydrated")
}

// hydrate reports the resolved State and whether a stored session had to be
// discarded.
func (m *Manager) hydrate(ctx context.Context) (State, bool) {
	sess, err := m.store.Load(ctx)
	switch {
	case err == nil:
		if m.cfg.Session.DiscardExpiredTokens && token.Expired(sess.Token, m.now(), m.cfg.Session.ExpiryLeeway) {
			m.log.WithField("user_id", sess.User.ID).Info("stored token expired, discarding session")
			m.clearAbsorbed(ctx)
			m.emitAudit(ctx, AuditEvent{
				Kind:   AuditSessionExpired,
				UserID: sess.User.ID,
				Phase:  PhaseAnonymous,
				Reason: "token_expired",
			})
			return anonymousState(), true
		}
		return authenticatedState(sess.User), false

	case errors.Is(err, session.ErrNoSession):
		// One half may still be stored, e.g. a token next to a corrupt user
		// record. Clearing is idempotent, so always restore the both-or-neither
		// layout.
		orphan, herr := m.store.HasToken(ctx)
		if herr != nil {
			m.log.WithError(herr).Warn("token check during hydration failed")
		}
		if orphan {
			m.log.Warn("stored token has no usable user record, clearing session")
		}
		m.clearAbsorbed(ctx)
		return anonymousState(), orphan

	default:
		m.log.WithError(err).Error("session hydration failed, clearing session")
		m.clearAbsorbed(ctx)
		return anonymousState(), true
	}
}

func (m *Manager) clearAbsorbed(ctx context.Context) {
	if err := m.store.Clear(ctx); err != nil {
		m.log.WithError(err).Error("session clear during hydration failed")
	}
}
