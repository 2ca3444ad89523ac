package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/example/gator-taxi/internal/models"
)

// RedisUpdater defines the small subset of redis operations we need for
// tests and production.
type RedisUpdater interface {
	PutRide(ctx context.Context, prefix string, r models.Ride) error
	DropRide(ctx context.Context, prefix string, rideNumber int) error
}

// RedisMirror keeps a Redis copy of the active rides: one hash per ride and
// a sorted set of ride numbers scored by ride number for range reads.
type RedisMirror struct {
	Updater  RedisUpdater
	Prefix   string
	Attempts int
	Delay    time.Duration
}

// Handle applies one ride event, retrying with backoff.
func (m *RedisMirror) Handle(ctx context.Context, ev models.RideEvent) error {
	return withRetry(ctx, m.Attempts, m.Delay, func() error {
		if ev.Gone() {
			return m.Updater.DropRide(ctx, m.Prefix, ev.Ride.RideNumber)
		}
		return m.Updater.PutRide(ctx, m.Prefix, ev.Ride)
	})
}

func withRetry(ctx context.Context, attempts int, delay time.Duration, fn func() error) error {
	if attempts <= 0 {
		attempts = 1
	}
	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(); err == nil {
			return nil
		}
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	return err
}

type redisAdapter struct{ c *redis.Client }

func NewRedisUpdater(c *redis.Client) RedisUpdater { return &redisAdapter{c: c} }

func (r *redisAdapter) PutRide(ctx context.Context, prefix string, ride models.Ride) error {
	_, err := r.c.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, RideKey(prefix, ride.RideNumber), map[string]interface{}{
			"cost":     ride.Cost,
			"duration": ride.TripDuration,
		})
		p.ZAdd(ctx, SetKey(prefix), redis.Z{Score: float64(ride.RideNumber), Member: strconv.Itoa(ride.RideNumber)})
		return nil
	})
	return err
}

func (r *redisAdapter) DropRide(ctx context.Context, prefix string, rideNumber int) error {
	_, err := r.c.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, RideKey(prefix, rideNumber))
		p.ZRem(ctx, SetKey(prefix), strconv.Itoa(rideNumber))
		return nil
	})
	return err
}

func RideKey(prefix string, rideNumber int) string { return fmt.Sprintf("%sride:%d", prefix, rideNumber) }

func SetKey(prefix string) string { return prefix + "rides" }
