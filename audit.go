package goAuthClient

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// AuditKind names a session lifecycle event.
type AuditKind string

const (
	AuditSignIn          AuditKind = "sign_in"
	AuditSignUp          AuditKind = "sign_up"
	AuditSignOut         AuditKind = "sign_out"
	AuditSessionHydrated AuditKind = "session_hydrated"
	AuditSessionExpired  AuditKind = "session_expired"
)

// AuditEvent records one session transition or failed attempt. It never
// carries passwords or tokens.
type AuditEvent struct {
	ID        string    `json:"id"`
	Time      time.Time `json:"time"`
	Kind      AuditKind `json:"kind"`
	UserID    string    `json:"user_id,omitempty"`
	RequestID string    `json:"request_id,omitempty"`
	// Phase is the session phase once the event has been applied.
	Phase Phase `json:"phase"`
	// Err is the server or transport message of a failed attempt.
	Err string `json:"error,omitempty"`
	// Reason explains expiries and hydration recovery: "token_expired",
	// "unauthorized" or "store_recovered".
	Reason   string `json:"reason,omitempty"`
	Endpoint string `json:"endpoint,omitempty"`
	Status   int    `json:"status,omitempty"`
}

// Failed reports whether the event is a rejected attempt.
func (e AuditEvent) Failed() bool { return e.Err != "" }

// AuditSink receives events from the dispatcher goroutine, one at a time.
type AuditSink interface {
	Emit(ctx context.Context, event AuditEvent)
}

// AuditSinkFunc adapts a function to AuditSink.
type AuditSinkFunc func(ctx context.Context, event AuditEvent)

func (f AuditSinkFunc) Emit(ctx context.Context, event AuditEvent) { f(ctx, event) }

// ChannelSink forwards events to a buffered channel. Emit blocks while the
// channel is full.
type ChannelSink struct {
	events chan AuditEvent
}

func NewChannelSink(buffer int) *ChannelSink {
	if buffer <= 0 {
		buffer = 1
	}
	return &ChannelSink{events: make(chan AuditEvent, buffer)}
}

func (s *ChannelSink) Emit(ctx context.Context, event AuditEvent) {
	select {
	case s.events <- event:
	case <-ctx.Done():
	}
}

func (s *ChannelSink) Events() <-chan AuditEvent {
	return s.events
}

// LogSink writes each event as one structured log entry. Failed attempts are
// logged at warn level, everything else at info.
type LogSink struct {
	log logrus.FieldLogger
}

// NewLogSink returns a LogSink on l, or on the standard logrus logger when l
// is nil. The Manager uses it when audit is enabled without a sink.
func NewLogSink(l logrus.FieldLogger) *LogSink {
	if l == nil {
		l = logrus.StandardLogger()
	}
	return &LogSink{log: l}
}

func (s *LogSink) Emit(_ context.Context, e AuditEvent) {
	fields := logrus.Fields{
		"audit_id":   e.ID,
		"audit_kind": string(e.Kind),
		"phase":      e.Phase.String(),
		"audit_time": e.Time.Format(time.RFC3339Nano),
	}
	if e.UserID != "" {
		fields["user_id"] = e.UserID
	}
	if e.RequestID != "" {
		fields["request_id"] = e.RequestID
	}
	if e.Reason != "" {
		fields["reason"] = e.Reason
	}
	if e.Endpoint != "" {
		fields["endpoint"] = e.Endpoint
	}
	if e.Status != 0 {
		fields["status"] = e.Status
	}

	entry := s.log.WithFields(fields)
	if e.Failed() {
		entry.WithField("error", e.Err).Warn("audit")
		return
	}
	entry.Info("audit")
}
