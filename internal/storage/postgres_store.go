package storage

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/example/gator-taxi/internal/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS rides (
	ride_number   BIGINT PRIMARY KEY,
	ride_cost     BIGINT NOT NULL,
	trip_duration BIGINT NOT NULL,
	status        TEXT NOT NULL,
	seq           BIGINT NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS rides_status_idx ON rides (status);
`

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	// quick ping
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &PostgresStore{db: db}, nil
}

// Migrate creates the rides table when it does not exist yet.
func (p *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate rides: %w", err)
	}
	return nil
}

// SaveRide records an inserted ride. A ride number that was cancelled or
// dispatched earlier starts a fresh row.
func (p *PostgresStore) SaveRide(ctx context.Context, ev models.RideEvent) error {
	_, err := p.db.ExecContext(ctx, `INSERT INTO rides(ride_number, ride_cost, trip_duration, status, seq) VALUES($1,$2,$3,$4,$5)
		ON CONFLICT (ride_number) DO UPDATE SET ride_cost=EXCLUDED.ride_cost, trip_duration=EXCLUDED.trip_duration,
		status=EXCLUDED.status, seq=EXCLUDED.seq, created_at=now(), updated_at=now()`,
		ev.Ride.RideNumber, ev.Ride.Cost, ev.Ride.TripDuration, string(ev.Status), ev.Seq)
	return err
}

// UpdateRide applies a later event. Events older than the stored row are
// ignored.
func (p *PostgresStore) UpdateRide(ctx context.Context, ev models.RideEvent) error {
	_, err := p.db.ExecContext(ctx, `UPDATE rides SET ride_cost=$1, trip_duration=$2, status=$3, seq=$4, updated_at=now() WHERE ride_number=$5 AND seq < $4`,
		ev.Ride.Cost, ev.Ride.TripDuration, string(ev.Status), ev.Seq, ev.Ride.RideNumber)
	return err
}

func (p *PostgresStore) Close() error { return p.db.Close() }
