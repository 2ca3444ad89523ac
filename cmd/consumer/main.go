package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"

	"github.com/example/gator-taxi/internal/cache"
	"github.com/example/gator-taxi/internal/config"
	"github.com/example/gator-taxi/internal/ingest"
	"github.com/example/gator-taxi/internal/logging"
)

var (
	msgsConsumed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "consumer_messages_consumed_total",
		Help: "Total ride event messages consumed",
	})
	msgsInvalid = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "consumer_messages_invalid_total",
		Help: "Total invalid messages received",
	})
	redisUpdates = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "consumer_redis_updates_total",
		Help: "Total successful redis updates",
	})
	redisErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "consumer_redis_errors_total",
		Help: "Total redis errors",
	})
)

func init() {
	prometheus.MustRegister(msgsConsumed, msgsInvalid, redisUpdates, redisErrors)
}

func main() {
	cfg, err := config.LoadConsumerConfig()
	if err != nil {
		slog.Error("invalid configuration", "err", err)
		os.Exit(1)
	}
	logger := logging.NewLogger(cfg.LogLevel)

	rc := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
	mirror := &cache.RedisMirror{
		Updater:  cache.NewRedisUpdater(rc),
		Prefix:   cfg.RedisKeyPrefix,
		Attempts: cfg.RetryAttempts,
		Delay:    cfg.RetryDelay,
	}

	// start metrics and health server
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); w.Write([]byte("ok")) })
		mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
			if err := rc.Ping(r.Context()).Err(); err != nil {
				http.Error(w, "redis not ready", 503)
				return
			}
			w.WriteHeader(200)
			w.Write([]byte("ready"))
		})
		logger.Info("metrics/health listening", "addr", cfg.MetricsAddr)
		if err := http.ListenAndServe(cfg.MetricsAddr, mux); err != nil {
			logger.Warn("metrics server stopped", "err", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	r := kafka.NewReader(kafka.ReaderConfig{Brokers: cfg.KafkaBrokers, Topic: cfg.KafkaTopic, GroupID: cfg.KafkaGroup, MinBytes: 10e3, MaxBytes: 10e6})
	defer func() {
		_ = r.Close()
		_ = rc.Close()
	}()

	logger.Info("consumer listening", "topic", cfg.KafkaTopic, "brokers", cfg.KafkaBrokers, "group", cfg.KafkaGroup)
	consume(ctx, r, mirror, logger)
}

// MessageReader is the part of *kafka.Reader the consumer loop uses.
type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
}

// consume reads until ctx is done. Read errors back off exponentially up to
// maxBackoff; bad messages and failed updates are counted and skipped.
func consume(ctx context.Context, r MessageReader, mirror *cache.RedisMirror, logger *slog.Logger) {
	backoff := time.Second
	const maxBackoff = 30 * time.Second

	for {
		m, err := r.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				logger.Info("shutting down consumer")
				return
			}
			logger.Warn("kafka read error", "err", err, "backoff", backoff)
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
			continue
		}
		backoff = time.Second
		msgsConsumed.Inc()

		if err := applyMessage(ctx, mirror, m.Value); err != nil {
			var invalid *invalidMessageError
			if errors.As(err, &invalid) {
				msgsInvalid.Inc()
			} else {
				redisErrors.Inc()
			}
			logger.Warn("ride event not applied", "offset", m.Offset, "err", err)
			continue
		}
		redisUpdates.Inc()
	}
}

type invalidMessageError struct{ err error }

func (e *invalidMessageError) Error() string { return "invalid message: " + e.err.Error() }
func (e *invalidMessageError) Unwrap() error { return e.err }

func applyMessage(ctx context.Context, mirror *cache.RedisMirror, value []byte) error {
	ev, err := ingest.DecodeEvent(value)
	if err != nil {
		return &invalidMessageError{err: err}
	}
	return mirror.Handle(ctx, ev)
}
