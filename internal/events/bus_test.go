package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/example/gator-taxi/internal/logging"
	"github.com/example/gator-taxi/internal/models"
)

type collector struct {
	mu  sync.Mutex
	got []uint64
}

func (c *collector) Handle(ctx context.Context, ev models.RideEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.got = append(c.got, ev.Seq)
	return nil
}

func TestBusDeliversInOrderAndDrainsOnClose(t *testing.T) {
	b := NewBus(16, time.Second, logging.Discard())
	c := &collector{}
	failures := 0
	b.Subscribe("collector", c)
	b.Subscribe("failing", HandlerFunc(func(ctx context.Context, ev models.RideEvent) error {
		failures++
		return errors.New("boom")
	}))
	go b.Run(context.Background())

	for i := uint64(1); i <= 5; i++ {
		b.Emit(models.RideEvent{Seq: i, Type: models.EventInserted})
	}
	b.Close()

	if len(c.got) != 5 {
		t.Fatalf("expected 5 events, got %d", len(c.got))
	}
	for i, seq := range c.got {
		if seq != uint64(i+1) {
			t.Fatalf("out of order delivery: %v", c.got)
		}
	}
	if failures != 5 {
		t.Fatalf("failing handler should still see every event, saw %d", failures)
	}
}

func TestBusDropsWhenFull(t *testing.T) {
	b := NewBus(1, 0, logging.Discard())
	b.Emit(models.RideEvent{Seq: 1})
	b.Emit(models.RideEvent{Seq: 2}) // dropped, nobody is draining

	c := &collector{}
	b.Subscribe("collector", c)
	go b.Run(context.Background())
	b.Close()

	if len(c.got) != 1 || c.got[0] != 1 {
		t.Fatalf("expected only the first event, got %v", c.got)
	}
}

func TestBusHandlerSeesDeadline(t *testing.T) {
	b := NewBus(1, 50*time.Millisecond, logging.Discard())
	var hadDeadline bool
	b.Subscribe("probe", HandlerFunc(func(ctx context.Context, ev models.RideEvent) error {
		_, hadDeadline = ctx.Deadline()
		return nil
	}))
	go b.Run(context.Background())
	b.Emit(models.RideEvent{Seq: 1})
	b.Close()
	if !hadDeadline {
		t.Fatal("handler context should carry the per-handler timeout")
	}
}

func TestBusEmitAfterCloseIsDropped(t *testing.T) {
	b := NewBus(4, 0, logging.Discard())
	c := &collector{}
	b.Subscribe("collector", c)
	go b.Run(context.Background())
	b.Emit(models.RideEvent{Seq: 1})
	b.Close()

	b.Emit(models.RideEvent{Seq: 2})
	b.Close()

	if len(c.got) != 1 || c.got[0] != 1 {
		t.Fatalf("expected only the event emitted before Close, got %v", c.got)
	}
}
