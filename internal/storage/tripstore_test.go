package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/example/gator-taxi/internal/models"
)

func TestHandlerRoutesEventsToStore(t *testing.T) {
	m := NewMemoryStore()
	h := Handler{Store: m}
	ctx := context.Background()
	ride := models.Ride{RideNumber: 7, Cost: 20, TripDuration: 10}

	if err := h.Handle(ctx, models.RideEvent{Seq: 1, Type: models.EventInserted, Status: models.StatusActive, Ride: ride}); err != nil {
		t.Fatal(err)
	}
	ride.Cost = 30
	if err := h.Handle(ctx, models.RideEvent{Seq: 2, Type: models.EventDispatched, Status: models.StatusDispatched, Ride: ride}); err != nil {
		t.Fatal(err)
	}
	got, ok := m.Get(7)
	if !ok {
		t.Fatal("ride 7 missing from journal")
	}
	if got.Status != models.StatusDispatched || got.Ride.Cost != 30 || got.Seq != 2 {
		t.Fatalf("unexpected journal entry: %+v", got)
	}
}

type failingStore struct{}

func (failingStore) SaveRide(context.Context, models.RideEvent) error   { return errors.New("down") }
func (failingStore) UpdateRide(context.Context, models.RideEvent) error { return errors.New("down") }

func TestHandlerWrapsStoreErrors(t *testing.T) {
	err := Handler{Store: failingStore{}}.Handle(context.Background(), models.RideEvent{Type: models.EventCancelled, Ride: models.Ride{RideNumber: 3}})
	if err == nil || err.Error() != "journal ride 3: down" {
		t.Fatalf("unexpected error: %v", err)
	}
}
