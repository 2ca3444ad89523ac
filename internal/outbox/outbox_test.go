package outbox

import (
	"context"
	"testing"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"
	"github.com/stretchr/testify/require"

	"github.com/example/gator-taxi/internal/models"
)

func openMem(t *testing.T, fs vfs.FS) *Outbox {
	t.Helper()
	o, err := OpenWithOptions("outbox", &pebble.Options{FS: fs})
	require.NoError(t, err)
	return o
}

func TestPutScanAck(t *testing.T) {
	o := openMem(t, vfs.NewMem())
	defer o.Close()

	for i := 1; i <= 3; i++ {
		id, err := o.Put(models.RideEvent{Seq: uint64(i), Type: models.EventInserted, Ride: models.Ride{RideNumber: i}})
		require.NoError(t, err)
		require.Equal(t, uint64(i), id)
	}

	var seen []uint64
	require.NoError(t, o.Scan(2, func(e Entry) error {
		seen = append(seen, e.ID)
		require.Equal(t, int(e.ID), e.Event.Ride.RideNumber)
		return nil
	}))
	require.Equal(t, []uint64{1, 2}, seen)

	require.NoError(t, o.Ack(1))
	n, err := o.Pending()
	require.NoError(t, err)
	require.Equal(t, 2, n)
}

func TestRetryBumpsAttempts(t *testing.T) {
	o := openMem(t, vfs.NewMem())
	defer o.Close()

	require.NoError(t, o.Handle(context.Background(), models.RideEvent{Seq: 9, Type: models.EventCancelled}))
	var first Entry
	require.NoError(t, o.Scan(1, func(e Entry) error { first = e; return nil }))
	require.NoError(t, o.Retry(first))

	require.NoError(t, o.Scan(1, func(e Entry) error {
		require.Equal(t, uint32(1), e.Attempts)
		require.Equal(t, uint64(9), e.Event.Seq)
		return nil
	}))
}

func TestIDsContinueAfterReopen(t *testing.T) {
	fs := vfs.NewMem()
	o := openMem(t, fs)
	_, err := o.Put(models.RideEvent{Seq: 1})
	require.NoError(t, err)
	_, err = o.Put(models.RideEvent{Seq: 2})
	require.NoError(t, err)
	require.NoError(t, o.Close())

	o = openMem(t, fs)
	defer o.Close()
	id, err := o.Put(models.RideEvent{Seq: 1})
	require.NoError(t, err)
	require.Equal(t, uint64(3), id, "ids must not collide with unacked entries from a previous run")
}
