package models

import "strconv"

// Ride is the registry's only entity. RideNumber is immutable while the ride
// is active; Cost and TripDuration may change through a trip update.
type Ride struct {
	RideNumber   int `json:"ride_number"`
	Cost         int `json:"ride_cost"`
	TripDuration int `json:"trip_duration"`
}

// Less orders rides cheapest first, shorter trip on equal cost.
func (r Ride) Less(o Ride) bool {
	if r.Cost != o.Cost {
		return r.Cost < o.Cost
	}
	return r.TripDuration < o.TripDuration
}

// String renders the ride as (number,cost,duration).
func (r Ride) String() string {
	b := make([]byte, 0, 24)
	b = append(b, '(')
	b = strconv.AppendInt(b, int64(r.RideNumber), 10)
	b = append(b, ',')
	b = strconv.AppendInt(b, int64(r.Cost), 10)
	b = append(b, ',')
	b = strconv.AppendInt(b, int64(r.TripDuration), 10)
	b = append(b, ')')
	return string(b)
}

type RideStatus string

const (
	StatusActive     RideStatus = "active"
	StatusCancelled  RideStatus = "cancelled"
	StatusDispatched RideStatus = "dispatched"
)

type EventType string

const (
	EventInserted   EventType = "inserted"
	EventUpdated    EventType = "updated"
	EventCancelled  EventType = "cancelled"
	EventDispatched EventType = "dispatched"
)

// RideEvent describes one successful registry mutation. Ride holds the
// values after the mutation, or the last known values when the ride left
// the active set.
type RideEvent struct {
	Seq    uint64     `json:"seq"`
	Type   EventType  `json:"type"`
	Status RideStatus `json:"status"`
	Ride   Ride       `json:"ride"`
}

// Gone reports whether the event removed the ride from the active set.
func (e RideEvent) Gone() bool {
	return e.Type == EventCancelled || e.Type == EventDispatched
}
