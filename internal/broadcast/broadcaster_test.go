package broadcast

import (
	"errors"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"
	"github.com/stretchr/testify/require"

	"github.com/example/gator-taxi/internal/logging"
	"github.com/example/gator-taxi/internal/models"
	"github.com/example/gator-taxi/internal/outbox"
)

func newOutbox(t *testing.T) *outbox.Outbox {
	t.Helper()
	ob, err := outbox.OpenWithOptions("ob", &pebble.Options{FS: vfs.NewMem()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = ob.Close() })
	for i := 1; i <= 3; i++ {
		_, err := ob.Put(models.RideEvent{Seq: uint64(i), Type: models.EventInserted, Ride: models.Ride{RideNumber: 100 + i}})
		require.NoError(t, err)
	}
	return ob
}

func TestDrainOncePublishesAndAcks(t *testing.T) {
	ob := newOutbox(t)
	sp := mocks.NewSyncProducer(t, mocks.NewTestConfig())
	var keys []string
	for i := 0; i < 3; i++ {
		sp.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
			k, err := msg.Key.Encode()
			keys = append(keys, string(k))
			return err
		})
	}

	b := New(ob, sp, "ride-events", time.Second, logging.Discard())
	require.Equal(t, 3, b.DrainOnce())
	require.Equal(t, []string{"101", "102", "103"}, keys)

	n, err := ob.Pending()
	require.NoError(t, err)
	require.Zero(t, n)
	require.NoError(t, b.Close())
}

func TestDrainOnceStopsAtFirstFailure(t *testing.T) {
	ob := newOutbox(t)
	sp := mocks.NewSyncProducer(t, mocks.NewTestConfig())
	sp.ExpectSendMessageAndSucceed()
	sp.ExpectSendMessageAndFail(errors.New("broker unavailable"))

	b := New(ob, sp, "ride-events", time.Second, logging.Discard())
	require.Equal(t, 1, b.DrainOnce())

	var pending []outbox.Entry
	require.NoError(t, ob.Scan(0, func(e outbox.Entry) error {
		pending = append(pending, e)
		return nil
	}))
	require.Len(t, pending, 2)
	require.Equal(t, uint64(2), pending[0].ID)
	require.Equal(t, uint32(1), pending[0].Attempts)
	require.Equal(t, uint32(0), pending[1].Attempts)
	require.NoError(t, b.Close())
}
