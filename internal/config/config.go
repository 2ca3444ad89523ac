package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// ServerConfig captures all tunable parameters for the HTTP API process.
// Values are primarily loaded from environment variables with sane defaults
// so the binary can run locally without excessive setup.
type ServerConfig struct {
	HTTPAddr        string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	KafkaBrokers []string
	KafkaTopic   string

	OutboxDir      string
	OutboxInterval time.Duration

	PGDSN         string
	RunMigrations bool

	EventBuffer         int
	EventHandlerTimeout time.Duration

	DispatchWebhookURL string
	StripeAPIKey       string
	StripeCurrency     string

	LogLevel string
}

func defaultServerConfig() ServerConfig {
	return ServerConfig{
		HTTPAddr:            ":8080",
		ReadTimeout:         5 * time.Second,
		WriteTimeout:        10 * time.Second,
		IdleTimeout:         120 * time.Second,
		ShutdownTimeout:     15 * time.Second,
		KafkaTopic:          "ride-events",
		OutboxInterval:      250 * time.Millisecond,
		EventBuffer:         4096,
		EventHandlerTimeout: 2 * time.Second,
		StripeCurrency:      "usd",
		LogLevel:            "info",
	}
}

func LoadServerConfig() (ServerConfig, error) {
	cfg := defaultServerConfig()
	var errs []error

	setStringFromEnv(&cfg.HTTPAddr, "HTTP_ADDR")
	setDurationFromEnv(&cfg.ReadTimeout, "HTTP_READ_TIMEOUT", &errs)
	setDurationFromEnv(&cfg.WriteTimeout, "HTTP_WRITE_TIMEOUT", &errs)
	setDurationFromEnv(&cfg.IdleTimeout, "HTTP_IDLE_TIMEOUT", &errs)
	setDurationFromEnv(&cfg.ShutdownTimeout, "HTTP_SHUTDOWN_TIMEOUT", &errs)

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = splitAndTrim(brokers)
	}
	setStringFromEnv(&cfg.KafkaTopic, "KAFKA_TOPIC")

	setStringFromEnv(&cfg.OutboxDir, "OUTBOX_DIR")
	setDurationFromEnv(&cfg.OutboxInterval, "OUTBOX_INTERVAL", &errs)

	cfg.PGDSN = os.Getenv("PG_DSN")
	cfg.RunMigrations = strings.EqualFold(os.Getenv("MIGRATE"), "true")

	setIntFromEnv(&cfg.EventBuffer, "EVENT_BUFFER", &errs)
	setDurationFromEnv(&cfg.EventHandlerTimeout, "EVENT_HANDLER_TIMEOUT", &errs)

	setStringFromEnv(&cfg.DispatchWebhookURL, "DISPATCH_WEBHOOK_URL")
	cfg.StripeAPIKey = os.Getenv("STRIPE_API_KEY")
	setStringFromEnv(&cfg.StripeCurrency, "STRIPE_CURRENCY")

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}

	if cfg.EventBuffer <= 0 {
		errs = append(errs, fmt.Errorf("EVENT_BUFFER must be > 0"))
	}
	if cfg.OutboxDir != "" && len(cfg.KafkaBrokers) == 0 {
		errs = append(errs, fmt.Errorf("OUTBOX_DIR requires KAFKA_BROKERS"))
	}
	if cfg.OutboxInterval <= 0 {
		errs = append(errs, fmt.Errorf("OUTBOX_INTERVAL must be > 0"))
	}

	return cfg, errors.Join(errs...)
}

// ConsumerConfig configures the Kafka to Redis mirror process.
type ConsumerConfig struct {
	KafkaBrokers []string
	KafkaTopic   string
	KafkaGroup   string

	RedisAddr      string
	RedisPassword  string
	RedisKeyPrefix string

	MetricsAddr   string
	RetryAttempts int
	RetryDelay    time.Duration

	LogLevel string
}

func LoadConsumerConfig() (ConsumerConfig, error) {
	cfg := ConsumerConfig{
		KafkaBrokers:   []string{"localhost:9092"},
		KafkaTopic:     "ride-events",
		KafkaGroup:     "gator-taxi-mirror",
		RedisAddr:      "localhost:6379",
		RedisKeyPrefix: "gt:",
		MetricsAddr:    ":2112",
		RetryAttempts:  3,
		RetryDelay:     200 * time.Millisecond,
		LogLevel:       "info",
	}
	var errs []error

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = splitAndTrim(brokers)
	}
	setStringFromEnv(&cfg.KafkaTopic, "KAFKA_TOPIC")
	setStringFromEnv(&cfg.KafkaGroup, "KAFKA_GROUP")
	setStringFromEnv(&cfg.RedisAddr, "REDIS_ADDR")
	cfg.RedisPassword = os.Getenv("REDIS_PASSWORD")
	setStringFromEnv(&cfg.RedisKeyPrefix, "REDIS_KEY_PREFIX")
	setStringFromEnv(&cfg.MetricsAddr, "METRICS_ADDR")
	setIntFromEnv(&cfg.RetryAttempts, "REDIS_RETRY_ATTEMPTS", &errs)
	setDurationFromEnv(&cfg.RetryDelay, "REDIS_RETRY_DELAY", &errs)
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}

	if len(cfg.KafkaBrokers) == 0 {
		errs = append(errs, fmt.Errorf("KAFKA_BROKERS must not be empty"))
	}
	if cfg.RetryAttempts <= 0 {
		errs = append(errs, fmt.Errorf("REDIS_RETRY_ATTEMPTS must be > 0"))
	}

	return cfg, errors.Join(errs...)
}

func setDurationFromEnv(target *time.Duration, key string, errs *[]error) {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
			return
		}
		*target = d
	}
}

func setIntFromEnv(target *int, key string, errs *[]error) {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err != nil {
			*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
			return
		}
		*target = i
	}
}

func setStringFromEnv(target *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*target = v
	}
}

func splitAndTrim(v string) []string {
	raw := strings.Split(v, ",")
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		r = strings.TrimSpace(r)
		if r == "" {
			continue
		}
		out = append(out, r)
	}
	return out
}
