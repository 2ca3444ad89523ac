// Package registry coordinates the two views of the active ride set: the
// ride-number index and the cost-ordered dispatch queue. Every mutation
// updates both under one lock, so callers never observe a ride present in
// only one of them.
package registry

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/example/gator-taxi/internal/models"
	"github.com/example/gator-taxi/internal/observability"
	"github.com/example/gator-taxi/internal/rideheap"
	"github.com/example/gator-taxi/internal/rideindex"
)

// Surcharge is added to a ride's cost when its trip is extended to at most
// twice the previous duration.
const Surcharge = 10

var (
	ErrDuplicateRide = errors.New("duplicate ride number")
	ErrNoActiveRides = errors.New("no active ride requests")
)

// Sink receives an event after every successful mutation. It is called with
// the registry lock held and must not block.
type Sink interface {
	Emit(ev models.RideEvent)
}

// TripOutcome tells which branch UpdateTrip took.
type TripOutcome int

const (
	TripNotFound TripOutcome = iota
	TripUpdated
	TripSurcharged
	TripCancelled
)

func (o TripOutcome) String() string {
	switch o {
	case TripUpdated:
		return "updated"
	case TripSurcharged:
		return "surcharged"
	case TripCancelled:
		return "cancelled"
	default:
		return "not_found"
	}
}

type Registry struct {
	mu     sync.Mutex
	index  *rideindex.Tree
	queue  *rideheap.Queue
	seq    uint64
	sink   Sink
	logger *slog.Logger
}

// New builds an empty registry. sink and logger may be nil.
func New(sink Sink, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		index:  rideindex.New(),
		queue:  rideheap.New(),
		sink:   sink,
		logger: logger,
	}
}

// Insert activates a new ride. It fails with ErrDuplicateRide when the ride
// number is already active. A number whose ride was cancelled or dispatched
// may be inserted again.
func (r *Registry) Insert(ride models.Ride) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.index.Get(ride.RideNumber); ok {
		observability.RideOperationsTotal.WithLabelValues("insert", "duplicate").Inc()
		return ErrDuplicateRide
	}
	r.index.Insert(ride)
	r.queue.Push(ride)
	observability.RidesActive.Set(float64(r.index.Len()))
	r.emit(models.EventInserted, models.StatusActive, ride)
	observability.RideOperationsTotal.WithLabelValues("insert", "ok").Inc()
	r.logger.Debug("ride inserted", "ride", ride.RideNumber, "cost", ride.Cost, "duration", ride.TripDuration)
	return nil
}

// UpdateTrip applies a new trip duration:
//
//	newDuration <= old      duration replaced, cost unchanged
//	newDuration <= 2*old    duration replaced, cost + Surcharge
//	otherwise               ride cancelled
//
// Unknown ride numbers are ignored.
func (r *Registry) UpdateTrip(rideNumber, newDuration int) (models.Ride, TripOutcome) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.index.Get(rideNumber)
	if !ok {
		observability.RideOperationsTotal.WithLabelValues("update_trip", "not_found").Inc()
		return models.Ride{}, TripNotFound
	}

	old := cur.TripDuration
	var outcome TripOutcome
	switch {
	case newDuration <= old:
		cur.TripDuration = newDuration
		outcome = TripUpdated
	case newDuration-old <= old:
		cur.TripDuration = newDuration
		cur.Cost += Surcharge
		outcome = TripSurcharged
	default:
		r.removeLocked(rideNumber)
		r.emit(models.EventCancelled, models.StatusCancelled, cur)
		observability.RideOperationsTotal.WithLabelValues("update_trip", TripCancelled.String()).Inc()
		r.logger.Debug("trip too long, ride cancelled", "ride", rideNumber, "old", old, "new", newDuration)
		return cur, TripCancelled
	}

	r.index.Replace(cur)
	r.queue.Remove(rideNumber)
	r.queue.Push(cur)
	r.emit(models.EventUpdated, models.StatusActive, cur)
	observability.RideOperationsTotal.WithLabelValues("update_trip", outcome.String()).Inc()
	return cur, outcome
}

// Cancel removes an active ride. It reports false when the ride is unknown.
func (r *Registry) Cancel(rideNumber int) (models.Ride, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ride, ok := r.removeLocked(rideNumber)
	if !ok {
		observability.RideOperationsTotal.WithLabelValues("cancel", "not_found").Inc()
		return models.Ride{}, false
	}
	r.emit(models.EventCancelled, models.StatusCancelled, ride)
	observability.RideOperationsTotal.WithLabelValues("cancel", "ok").Inc()
	return ride, true
}

// Next dispatches the cheapest active ride, shortest trip first on equal
// cost. The ride leaves the registry for good.
func (r *Registry) Next() (models.Ride, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ride, err := r.queue.PopMin()
	if errors.Is(err, rideheap.ErrEmpty) {
		observability.RideOperationsTotal.WithLabelValues("next", "empty").Inc()
		return models.Ride{}, ErrNoActiveRides
	}
	r.index.Delete(ride.RideNumber)
	observability.RidesActive.Set(float64(r.index.Len()))
	r.emit(models.EventDispatched, models.StatusDispatched, ride)
	observability.RideOperationsTotal.WithLabelValues("next", "ok").Inc()
	observability.DispatchesTotal.Inc()
	return ride, nil
}

// Lookup returns the active ride with the given number.
func (r *Registry) Lookup(rideNumber int) (models.Ride, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.index.Get(rideNumber)
}

// LookupRange returns the active rides numbered lo through hi inclusive,
// in ascending order. The result is empty when nothing matches.
func (r *Registry) LookupRange(lo, hi int) []models.Ride {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []models.Ride
	r.index.Range(lo, hi, func(ride models.Ride) bool {
		out = append(out, ride)
		return true
	})
	return out
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.index.Len()
}

func (r *Registry) removeLocked(rideNumber int) (models.Ride, bool) {
	ride, ok := r.index.Delete(rideNumber)
	if !ok {
		return models.Ride{}, false
	}
	r.queue.Remove(rideNumber)
	observability.RidesActive.Set(float64(r.index.Len()))
	return ride, true
}

func (r *Registry) emit(typ models.EventType, status models.RideStatus, ride models.Ride) {
	r.seq++
	if r.sink == nil {
		return
	}
	r.sink.Emit(models.RideEvent{Seq: r.seq, Type: typ, Status: status, Ride: ride})
}
