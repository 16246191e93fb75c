package otel

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	goAuthClient "github.com/MrEthical07/goAuthClient"
	"github.com/MrEthical07/goAuthClient/gateway"
	"github.com/MrEthical07/goAuthClient/metrics/export/internaldefs"
)

// Instrument names.
const (
	RequestsName        = "authclient.requests"
	RequestDurationName = "authclient.request.duration"
	SessionEventsName   = "authclient.session.events"
	AuditDroppedName    = "authclient.audit.dropped"
)

// Attribute keys.
const (
	OutcomeKey    = attribute.Key("outcome")
	MethodKey     = attribute.Key("http.request.method")
	StatusCodeKey = attribute.Key("http.response.status_code")
	EventKey      = attribute.Key("event")
)

var (
	ErrNilMeter       = errors.New("nil meter")
	ErrNilSource      = errors.New("nil metrics source")
	ErrAlreadyTracked = errors.New("exporter already tracks a source")
)

type metricsSource interface {
	MetricsSnapshot() goAuthClient.MetricsSnapshot
	AuditDropped() uint64
}

// Exporter records gateway requests as they finish and reports the session
// counters of a tracked Manager on each collection.
//
// It implements [gateway.Observer]; pass it to the builder's WithObserver
// before Build, then call [Exporter.Track] with the built Manager.
type Exporter struct {
	meter    metric.Meter
	requests metric.Int64Counter
	duration metric.Float64Histogram

	mu           sync.Mutex
	registration metric.Registration
}

var _ gateway.Observer = (*Exporter)(nil)

func NewExporter(meter metric.Meter) (*Exporter, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}

	requests, err := meter.Int64Counter(RequestsName,
		metric.WithDescription("Gateway requests by outcome."),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", RequestsName, err)
	}
	duration, err := meter.Float64Histogram(RequestDurationName,
		metric.WithDescription("Gateway request latency."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(internaldefs.HistogramUpperBounds...),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", RequestDurationName, err)
	}

	return &Exporter{meter: meter, requests: requests, duration: duration}, nil
}

// Observe records one finished request.
func (e *Exporter) Observe(ctx context.Context, obs gateway.Observation) {
	attrs := []attribute.KeyValue{
		OutcomeKey.String(obs.Outcome.String()),
		MethodKey.String(obs.Method),
	}
	if obs.Status != 0 {
		attrs = append(attrs, StatusCodeKey.Int(obs.Status))
	}
	set := metric.WithAttributeSet(attribute.NewSet(attrs...))

	e.requests.Add(ctx, 1, set)
	e.duration.Record(ctx, obs.Duration.Seconds(), set)
}

// Track reports m's session counters and dropped audit events on every
// collection until Close.
func (e *Exporter) Track(m *goAuthClient.Manager) error {
	if m == nil {
		return ErrNilSource
	}
	return e.track(m)
}

func (e *Exporter) track(source metricsSource) error {
	if source == nil {
		return ErrNilSource
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.registration != nil {
		return ErrAlreadyTracked
	}

	events, err := e.meter.Int64ObservableCounter(SessionEventsName,
		metric.WithDescription("Session lifecycle events by kind."),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return fmt.Errorf("create %s: %w", SessionEventsName, err)
	}
	dropped, err := e.meter.Int64ObservableCounter(AuditDroppedName,
		metric.WithDescription(internaldefs.AuditDroppedHelp),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return fmt.Errorf("create %s: %w", AuditDroppedName, err)
	}

	eventSets := make(map[goAuthClient.MetricID]metric.ObserveOption)
	for _, def := range internaldefs.CounterDefs {
		if def.Event != "" {
			eventSets[def.ID] = metric.WithAttributeSet(attribute.NewSet(EventKey.String(def.Event)))
		}
	}

	reg, err := e.meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		snapshot := source.MetricsSnapshot()
		for id, set := range eventSets {
			o.ObserveInt64(events, int64(snapshot.Counters[id]), set)
		}
		o.ObserveInt64(dropped, int64(source.AuditDropped()))
		return nil
	}, events, dropped)
	if err != nil {
		return fmt.Errorf("register callback: %w", err)
	}
	e.registration = reg
	return nil
}

// Close stops reporting the tracked source. Observe keeps working.
func (e *Exporter) Close() error {
	if e == nil {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.registration == nil {
		return nil
	}
	err := e.registration.Unregister()
	e.registration = nil
	return err
}
