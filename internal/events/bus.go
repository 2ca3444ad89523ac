// Package events moves ride events from the registry to slower consumers
// (journal, Kafka, dispatch feeds) without holding the registry lock.
package events

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/example/gator-taxi/internal/models"
	"github.com/example/gator-taxi/internal/observability"
)

// Handler consumes ride events.
type Handler interface {
	Handle(ctx context.Context, ev models.RideEvent) error
}

type HandlerFunc func(ctx context.Context, ev models.RideEvent) error

func (f HandlerFunc) Handle(ctx context.Context, ev models.RideEvent) error { return f(ctx, ev) }

type namedHandler struct {
	name string
	h    Handler
}

// Bus buffers events in a bounded channel and delivers each one to every
// handler in registration order. Emit never blocks: when the buffer is full
// the event is dropped and counted.
type Bus struct {
	ch       chan models.RideEvent
	handlers []namedHandler
	timeout  time.Duration
	logger   *slog.Logger

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

func NewBus(buffer int, timeout time.Duration, logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{
		ch:      make(chan models.RideEvent, buffer),
		timeout: timeout,
		logger:  logger,
		done:    make(chan struct{}),
	}
}

// Subscribe registers h under name. It must be called before Run.
func (b *Bus) Subscribe(name string, h Handler) {
	b.handlers = append(b.handlers, namedHandler{name: name, h: h})
}

// Emit queues ev for delivery. Events emitted after Close are dropped.
func (b *Bus) Emit(ev models.RideEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		observability.EventsDropped.Inc()
		b.logger.Warn("event bus closed, dropping event", "seq", ev.Seq, "type", ev.Type, "ride", ev.Ride.RideNumber)
		return
	}
	select {
	case b.ch <- ev:
	default:
		observability.EventsDropped.Inc()
		b.logger.Warn("event bus full, dropping event", "seq", ev.Seq, "type", ev.Type, "ride", ev.Ride.RideNumber)
	}
}

// Run delivers events until Close is called and the buffer is drained, or
// ctx is cancelled.
func (b *Bus) Run(ctx context.Context) {
	defer close(b.done)
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-b.ch:
			if !ok {
				return
			}
			b.deliver(ctx, ev)
		}
	}
}

// Close stops accepting events and waits for Run to drain the buffer.
// Later calls to Emit drop their event.
func (b *Bus) Close() {
	b.mu.Lock()
	if !b.closed {
		b.closed = true
		close(b.ch)
	}
	b.mu.Unlock()
	<-b.done
}

func (b *Bus) deliver(ctx context.Context, ev models.RideEvent) {
	for _, nh := range b.handlers {
		hctx := ctx
		cancel := func() {}
		if b.timeout > 0 {
			hctx, cancel = context.WithTimeout(ctx, b.timeout)
		}
		err := nh.h.Handle(hctx, ev)
		cancel()
		if err != nil {
			observability.EventHandlerErrors.WithLabelValues(nh.name).Inc()
			b.logger.Error("event handler failed", "handler", nh.name, "seq", ev.Seq, "type", ev.Type, "err", err)
		}
	}
}
