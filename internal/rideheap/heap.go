// Package rideheap is a binary min-heap of rides ordered by cost, then trip
// duration. A ride-number to slot map is kept in step with every swap so a
// ride can be removed by number without scanning the slots.
package rideheap

import (
	"container/heap"
	"errors"

	"github.com/example/gator-taxi/internal/models"
)

// ErrEmpty is returned by Peek and PopMin on an empty queue.
var ErrEmpty = errors.New("rideheap: queue is empty")

var _ heap.Interface = (*slots)(nil)

// slots implements heap.Interface over the dense slot array.
type slots struct {
	rides []models.Ride
	pos   map[int]int
}

func (s slots) Len() int { return len(s.rides) }

func (s slots) Less(i, j int) bool { return s.rides[i].Less(s.rides[j]) }

func (s *slots) Swap(i, j int) {
	s.rides[i], s.rides[j] = s.rides[j], s.rides[i]
	s.pos[s.rides[i].RideNumber] = i
	s.pos[s.rides[j].RideNumber] = j
}

func (s *slots) Push(x any) {
	r := x.(models.Ride)
	s.pos[r.RideNumber] = len(s.rides)
	s.rides = append(s.rides, r)
}

func (s *slots) Pop() any {
	n := len(s.rides)
	r := s.rides[n-1]
	s.rides = s.rides[:n-1]
	delete(s.pos, r.RideNumber)
	return r
}

// Queue is not safe for concurrent use.
type Queue struct {
	s slots
}

func New() *Queue {
	return &Queue{s: slots{pos: make(map[int]int)}}
}

func (q *Queue) Len() int { return q.s.Len() }

// Push adds r and sifts it up. Ride numbers are assumed unique; the
// registry checks before calling.
func (q *Queue) Push(r models.Ride) {
	heap.Push(&q.s, r)
}

// Peek returns the cheapest ride without removing it.
func (q *Queue) Peek() (models.Ride, error) {
	if q.s.Len() == 0 {
		return models.Ride{}, ErrEmpty
	}
	return q.s.rides[0], nil
}

// PopMin removes and returns the cheapest ride.
func (q *Queue) PopMin() (models.Ride, error) {
	if q.s.Len() == 0 {
		return models.Ride{}, ErrEmpty
	}
	return heap.Pop(&q.s).(models.Ride), nil
}

// Remove drops the ride with the given number. The last slot moves into the
// hole and is sifted down or up as needed. Absent numbers are a no-op.
func (q *Queue) Remove(rideNumber int) (models.Ride, bool) {
	i, ok := q.s.pos[rideNumber]
	if !ok {
		return models.Ride{}, false
	}
	return heap.Remove(&q.s, i).(models.Ride), true
}

// Get returns the queued copy of a ride.
func (q *Queue) Get(rideNumber int) (models.Ride, bool) {
	i, ok := q.s.pos[rideNumber]
	if !ok {
		return models.Ride{}, false
	}
	return q.s.rides[i], true
}

func (q *Queue) Contains(rideNumber int) bool {
	_, ok := q.s.pos[rideNumber]
	return ok
}
