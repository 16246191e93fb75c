package goAuthClient

import (
	"context"
	"sync"
	"sync/atomic"
)

// auditQueue delivers events to the sink on one background goroutine, in
// emit order. A nil *auditQueue is valid and discards everything.
type auditQueue struct {
	sink       AuditSink
	dropIfFull bool

	events  chan AuditEvent
	stop    chan struct{}
	done    sync.WaitGroup
	once    sync.Once
	dropped atomic.Uint64
}

func newAuditQueue(cfg AuditConfig, sink AuditSink) *auditQueue {
	if !cfg.Enabled || sink == nil {
		return nil
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1
	}

	q := &auditQueue{
		sink:       sink,
		dropIfFull: cfg.DropIfFull,
		events:     make(chan AuditEvent, cfg.BufferSize),
		stop:       make(chan struct{}),
	}
	q.done.Add(1)
	go q.deliver()
	return q
}

func (q *auditQueue) deliver() {
	defer q.done.Done()
	ctx := context.Background()
	for {
		select {
		case e := <-q.events:
			q.sink.Emit(ctx, e)
		case <-q.stop:
			// Flush what was queued before Close.
			for {
				select {
				case e := <-q.events:
					q.sink.Emit(ctx, e)
				default:
					return
				}
			}
		}
	}
}

// Emit queues e. On a full buffer it drops e when dropIfFull is set and
// otherwise waits for room, ctx or Close.
func (q *auditQueue) Emit(ctx context.Context, e AuditEvent) {
	if q == nil {
		return
	}
	select {
	case <-q.stop:
		return
	default:
	}

	if q.dropIfFull {
		select {
		case q.events <- e:
		default:
			q.dropped.Add(1)
		}
		return
	}
	select {
	case q.events <- e:
	case <-ctx.Done():
		q.dropped.Add(1)
	case <-q.stop:
	}
}

// Close stops accepting events and returns once queued events reached the
// sink. It is idempotent.
func (q *auditQueue) Close() {
	if q == nil {
		return
	}
	q.once.Do(func() {
		close(q.stop)
		q.done.Wait()
	})
}

func (q *auditQueue) Dropped() uint64 {
	if q == nil {
		return 0
	}
	return q.dropped.Load()
}
