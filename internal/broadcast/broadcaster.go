package broadcast

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/IBM/sarama"

	"github.com/example/gator-taxi/internal/ingest"
	"github.com/example/gator-taxi/internal/observability"
	"github.com/example/gator-taxi/internal/outbox"
)

// errStopRound ends a drain pass after a failed send so later entries are
// not published ahead of the failed one.
var errStopRound = errors.New("stop round")

// Outbox is the part of *outbox.Outbox the broadcaster drains.
type Outbox interface {
	Scan(limit int, fn func(outbox.Entry) error) error
	Ack(id uint64) error
	Retry(e outbox.Entry) error
}

// Broadcaster publishes pending outbox entries to Kafka in id order.
type Broadcaster struct {
	outbox   Outbox
	producer sarama.SyncProducer
	topic    string
	interval time.Duration
	batch    int
	logger   *slog.Logger
}

func NewSyncProducer(brokers []string) (sarama.SyncProducer, error) {
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 5
	cfg.Producer.Partitioner = sarama.NewHashPartitioner
	return sarama.NewSyncProducer(brokers, cfg)
}

func New(ob Outbox, producer sarama.SyncProducer, topic string, interval time.Duration, logger *slog.Logger) *Broadcaster {
	if logger == nil {
		logger = slog.Default()
	}
	return &Broadcaster{
		outbox:   ob,
		producer: producer,
		topic:    topic,
		interval: interval,
		batch:    256,
		logger:   logger,
	}
}

// Run drains the outbox every interval until ctx is done, then makes one
// last pass.
func (b *Broadcaster) Run(ctx context.Context) {
	b.logger.Info("broadcaster started", "topic", b.topic, "interval", b.interval)
	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			b.DrainOnce()
			return
		case <-ticker.C:
			b.DrainOnce()
		}
	}
}

// DrainOnce publishes up to one batch and returns how many entries the
// broker acknowledged.
func (b *Broadcaster) DrainOnce() int {
	sent := 0
	err := b.outbox.Scan(b.batch, func(e outbox.Entry) error {
		key, value, err := ingest.EncodeEvent(e.Event)
		if err != nil {
			return err
		}
		msg := &sarama.ProducerMessage{
			Topic: b.topic,
			Key:   sarama.ByteEncoder(key),
			Value: sarama.ByteEncoder(value),
			Headers: []sarama.RecordHeader{
				{Key: []byte("outbox-id"), Value: []byte(strconv.FormatUint(e.ID, 10))},
			},
		}
		if _, _, err := b.producer.SendMessage(msg); err != nil {
			b.logger.Warn("outbox publish failed", "id", e.ID, "attempts", e.Attempts+1, "err", err)
			if rerr := b.outbox.Retry(e); rerr != nil {
				return rerr
			}
			return errStopRound
		}
		if err := b.outbox.Ack(e.ID); err != nil {
			return err
		}
		observability.OutboxPublished.Inc()
		sent++
		return nil
	})
	if err != nil && !errors.Is(err, errStopRound) {
		b.logger.Error("outbox drain failed", "err", err)
	}
	return sent
}

func (b *Broadcaster) Close() error {
	return b.producer.Close()
}
