package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/segmentio/kafka-go"

	"github.com/example/gator-taxi/internal/models"
)

// MessageWriter is the part of *kafka.Writer the producer uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type KafkaProducer struct {
	writer MessageWriter
}

func NewKafkaProducer(brokers []string, topic string) *KafkaProducer {
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
	}
	return &KafkaProducer{writer: w}
}

// EncodeEvent returns the message key and JSON value for ev. Keying by ride
// number keeps every event of a ride on one partition, in order.
func EncodeEvent(ev models.RideEvent) (key, value []byte, err error) {
	value, err = json.Marshal(ev)
	if err != nil {
		return nil, nil, err
	}
	return []byte(strconv.Itoa(ev.Ride.RideNumber)), value, nil
}

// DecodeEvent parses a message value written by EncodeEvent.
func DecodeEvent(value []byte) (models.RideEvent, error) {
	var ev models.RideEvent
	if err := json.Unmarshal(value, &ev); err != nil {
		return models.RideEvent{}, err
	}
	if ev.Type == "" {
		return models.RideEvent{}, fmt.Errorf("ride event without type")
	}
	return ev, nil
}

// Handle publishes one ride event; it satisfies events.Handler.
func (k *KafkaProducer) Handle(ctx context.Context, ev models.RideEvent) error {
	key, value, err := EncodeEvent(ev)
	if err != nil {
		return err
	}
	return k.writer.WriteMessages(ctx, kafka.Message{Key: key, Value: value})
}

func (k *KafkaProducer) Close() error {
	if k.writer == nil {
		return nil
	}
	return k.writer.Close()
}
