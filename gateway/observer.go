package gateway

import (
	"context"
	"time"
)

// Outcome classifies a finished request.
type Outcome uint8

const (
	OutcomeSuccess Outcome = iota
	OutcomeNetworkError
	OutcomeDecodeError
	OutcomeUnauthorized
	OutcomeForbidden
	OutcomeServerError
	OutcomeHTTPError
)

var outcomeNames = [...]string{
	OutcomeSuccess:      "success",
	OutcomeNetworkError: "network_error",
	OutcomeDecodeError:  "decode_error",
	OutcomeUnauthorized: "unauthorized",
	OutcomeForbidden:    "forbidden",
	OutcomeServerError:  "server_error",
	OutcomeHTTPError:    "http_error",
}

func (o Outcome) String() string {
	if int(o) < len(outcomeNames) {
		return outcomeNames[o]
	}
	return "unknown"
}

// Observation describes one request after classification. Status is zero for
// network errors.
type Observation struct {
	Method    string
	Endpoint  string
	Status    int
	Outcome   Outcome
	Duration  time.Duration
	RequestID string
	// SessionCleared is set when a 401 cleared the session store.
	SessionCleared bool
}

// Observer receives one Observation per request, on the requesting goroutine,
// after any 401 store clear and before the error is returned.
type Observer interface {
	Observe(ctx context.Context, obs Observation)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, obs Observation)

func (f ObserverFunc) Observe(ctx context.Context, obs Observation) { f(ctx, obs) }

type multiObserver []Observer

func (m multiObserver) Observe(ctx context.Context, obs Observation) {
	for _, o := range m {
		o.Observe(ctx, obs)
	}
}

type noopObserver struct{}

func (noopObserver) Observe(context.Context, Observation) {}

func classify(status int) Outcome {
	switch {
	case status >= 200 && status < 300:
		return OutcomeSuccess
	case status == 401:
		return OutcomeUnauthorized
	case status == 403:
		return OutcomeForbidden
	case status >= 500:
		return OutcomeServerError
	default:
		return OutcomeHTTPError
	}
}
