package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/example/gator-taxi/internal/models"
)

// StoredRide is the journal's view of a ride: the last known values and
// where it is in its lifecycle.
type StoredRide struct {
	Ride   models.Ride
	Status models.RideStatus
	Seq    uint64
}

// TripStore defines persistence operations for the ride journal.
type TripStore interface {
	SaveRide(ctx context.Context, ev models.RideEvent) error
	UpdateRide(ctx context.Context, ev models.RideEvent) error
}

// Handler feeds registry events into a TripStore.
type Handler struct {
	Store TripStore
}

func (h Handler) Handle(ctx context.Context, ev models.RideEvent) error {
	var err error
	if ev.Type == models.EventInserted {
		err = h.Store.SaveRide(ctx, ev)
	} else {
		err = h.Store.UpdateRide(ctx, ev)
	}
	if err != nil {
		return fmt.Errorf("journal ride %d: %w", ev.Ride.RideNumber, err)
	}
	return nil
}

type MemoryStore struct {
	mu    sync.RWMutex
	rides map[int]StoredRide
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rides: make(map[int]StoredRide)}
}

func (m *MemoryStore) SaveRide(ctx context.Context, ev models.RideEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rides[ev.Ride.RideNumber] = StoredRide{Ride: ev.Ride, Status: ev.Status, Seq: ev.Seq}
	return nil
}

func (m *MemoryStore) UpdateRide(ctx context.Context, ev models.RideEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rides[ev.Ride.RideNumber] = StoredRide{Ride: ev.Ride, Status: ev.Status, Seq: ev.Seq}
	return nil
}

func (m *MemoryStore) Get(rideNumber int) (StoredRide, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.rides[rideNumber]
	return r, ok
}
