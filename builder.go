package goAuthClient

import (
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/MrEthical07/goAuthClient/gateway"
	"github.com/MrEthical07/goAuthClient/session"
)

// Builder assembles a Manager. A Builder is single-use.
type Builder struct {
	config Config
	store  session.Store
	doer   gateway.Doer
	logger logrus.FieldLogger

	auditSink   AuditSink
	observers   []gateway.Observer
	subscribers []Subscriber

	built bool
}

// New returns a Builder holding DefaultConfig and an in-memory store.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithStore sets the session backend shared by the Manager and its gateway.
func (b *Builder) WithStore(store session.Store) *Builder {
	b.store = store
	return b
}

// WithDoer replaces the HTTP transport, e.g. with an instrumented client or a
// test fake.
func (b *Builder) WithDoer(d gateway.Doer) *Builder {
	b.doer = d
	return b
}

// WithLogger overrides the logger built from Config.Logging.
func (b *Builder) WithLogger(l logrus.FieldLogger) *Builder {
	b.logger = l
	return b
}

func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithObserver adds a gateway Observer that runs after the Manager's own.
func (b *Builder) WithObserver(o gateway.Observer) *Builder {
	b.observers = append(b.observers, o)
	return b
}

// WithSubscriber registers fn before hydration starts, so fn is guaranteed
// to see the hydration transition.
func (b *Builder) WithSubscriber(fn Subscriber) *Builder {
	b.subscribers = append(b.subscribers, fn)
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration, wires the gateway to the store and
// starts hydration. The returned Manager is in PhaseInitializing until
// Ready is closed.
func (b *Builder) Build() (*Manager, error) {
	if b.built {
		return nil, ErrBuilderUsed
	}

	cfg := b.config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	store := b.store
	if store == nil {
		store = session.NewMemoryStore()
	}

	logger := b.logger
	if logger == nil {
		logger = NewLogger(cfg.Logging)
	}

	auditSink := b.auditSink
	if auditSink == nil {
		auditSink = NewLogSink(logger.WithField("component", "audit"))
	}

	m := &Manager{
		cfg:     cfg,
		store:   store,
		log:     logger.WithField("component", "authclient"),
		metrics: NewMetrics(cfg.Metrics),
		audit:   newAuditQueue(cfg.Audit, auditSink),
		now:     time.Now,
		newID:   uuid.NewString,
		state:   State{Phase: PhaseInitializing},
		subs:    make(map[uint64]Subscriber, len(b.subscribers)),
		ready:   make(chan struct{}),
	}
	for _, fn := range b.subscribers {
		if fn != nil {
			m.addSubscriber(fn)
		}
	}

	opts := []gateway.Option{
		gateway.WithLogger(logger),
		gateway.WithObserver(gateway.ObserverFunc(m.observe)),
	}
	for _, o := range b.observers {
		opts = append(opts, gateway.WithObserver(o))
	}
	if b.doer != nil {
		opts = append(opts, gateway.WithDoer(b.doer))
	}

	gw, err := gateway.New(gateway.Config{
		BaseURL:          cfg.API.BaseURL,
		UserAgent:        cfg.API.UserAgent,
		Timeout:          cfg.API.Timeout,
		MaxResponseBytes: cfg.API.MaxResponseBytes,
	}, store, opts...)
	if err != nil {
		m.audit.Close()
		return nil, err
	}
	m.gw = gw

	b.built = true

	go m.initialize()

	return m, nil
}
