package goAuthClient

import (
	"sync/atomic"
	"time"

	"github.com/MrEthical07/goAuthClient/gateway"
)

// MetricID identifies one in-process counter.
type MetricID uint16

const (
	MetricSignInSuccess MetricID = iota
	MetricSignInFailure
	MetricSignUpSuccess
	MetricSignUpFailure
	MetricSignOut
	MetricHydrateAuthenticated
	MetricHydrateAnonymous
	// MetricHydrateRecovered counts hydrations that had to clear a broken or
	// expired stored session.
	MetricHydrateRecovered
	// MetricSessionExpired counts authenticated sessions ended by a 401.
	MetricSessionExpired
	MetricRequestSuccess
	MetricRequestNetworkError
	MetricRequestDecodeError
	MetricRequestUnauthorized
	MetricRequestForbidden
	MetricRequestServerError
	MetricRequestHTTPError
	// MetricRequestLatency is the only histogram-backed ID.
	MetricRequestLatency
	metricIDCount
)

const (
	histBucketCount = 8
	cacheLineSize   = 64
)

type metricHistogram struct {
	buckets [histBucketCount]uint64
}

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics is a fixed set of lock-free counters. A nil or disabled Metrics
// ignores every call.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]paddedCounter
	histograms    [metricIDCount]metricHistogram
}

// MetricsSnapshot is a point-in-time copy of all counters.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.enableLatency
}

// Inc adds one to id.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Observe records d in the latency histogram of id.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enabled || !m.enableLatency || id >= metricIDCount {
		return
	}
	if id != MetricRequestLatency {
		return
	}

	b := bucketIndex(d)
	atomic.AddUint64(&m.histograms[id].buckets[b], 1)
}

func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot copies every counter. A disabled Metrics returns empty maps.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil || !m.enabled {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}

	s := MetricsSnapshot{
		Counters:   make(map[MetricID]uint64, int(metricIDCount)),
		Histograms: make(map[MetricID][]uint64, 1),
	}

	for id := MetricID(0); id < metricIDCount; id++ {
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}

	if m.enableLatency {
		buckets := make([]uint64, histBucketCount)
		for i := 0; i < histBucketCount; i++ {
			buckets[i] = atomic.LoadUint64(&m.histograms[MetricRequestLatency].buckets[i])
		}
		s.Histograms[MetricRequestLatency] = buckets
	}

	return s
}

var outcomeMetrics = [...]MetricID{
	gateway.OutcomeSuccess:      MetricRequestSuccess,
	gateway.OutcomeNetworkError: MetricRequestNetworkError,
	gateway.OutcomeDecodeError:  MetricRequestDecodeError,
	gateway.OutcomeUnauthorized: MetricRequestUnauthorized,
	gateway.OutcomeForbidden:    MetricRequestForbidden,
	gateway.OutcomeServerError:  MetricRequestServerError,
	gateway.OutcomeHTTPError:    MetricRequestHTTPError,
}

// observeRequest counts one gateway observation.
func (m *Metrics) observeRequest(obs gateway.Observation) {
	if int(obs.Outcome) < len(outcomeMetrics) {
		m.Inc(outcomeMetrics[obs.Outcome])
	}
	m.Observe(MetricRequestLatency, obs.Duration)
}

func bucketIndex(d time.Duration) int {
	ms := d.Milliseconds()

	switch {
	case ms <= 5:
		return 0
	case ms <= 10:
		return 1
	case ms <= 25:
		return 2
	case ms <= 50:
		return 3
	case ms <= 100:
		return 4
	case ms <= 250:
		return 5
	case ms <= 500:
		return 6
	default:
		return 7
	}
}
