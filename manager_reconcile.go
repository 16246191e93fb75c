package goAuthClient

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/MrEthical07/goAuthClient/gateway"
)

// observe is the Manager's gateway Observer. It feeds metrics and, when
// enabled, ends an authenticated session after the gateway cleared the store
// on a 401.
func (m *Manager) observe(ctx context.Context, obs gateway.Observation) {
	m.metrics.observeRequest(obs)

	if obs.Outcome != gateway.OutcomeUnauthorized || !m.cfg.Session.ReconcileOnUnauthorized {
		return
	}
	m.expire(ctx, obs)
}

func (m *Manager) expire(ctx context.Context, obs gateway.Observation) {
	select {
	case <-m.ready:
	case <-ctx.Done():
		return
	}

	m.transMu.Lock()
	defer m.transMu.Unlock()

	prev := m.State()
	if !prev.IsAuthenticated() {
		return
	}

	if !obs.SessionCleared {
		// The gateway's clear failed; try once more so memory and store agree.
		if err := m.store.Clear(context.WithoutCancel(ctx)); err != nil {
			m.log.WithError(err).Error("session clear after 401 failed again")
		}
	}
	m.commit(anonymousState())

	m.metrics.Inc(MetricSessionExpired)
	m.emitAudit(ctx, AuditEvent{
		Kind:      AuditSessionExpired,
		UserID:    prev.User.ID,
		RequestID: obs.RequestID,
		Phase:     PhaseAnonymous,
		Reason:    "unauthorized",
		Endpoint:  obs.Endpoint,
		Status:    obs.Status,
	})
	m.log.WithFields(logrus.Fields{
		"user_id":    prev.User.ID,
		"endpoint":   obs.Endpoint,
		"request_id": obs.RequestID,
	}).Info("session expired by server")
}
