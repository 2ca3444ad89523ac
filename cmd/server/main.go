package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	_ "github.com/lib/pq"

	"github.com/example/gator-taxi/internal/broadcast"
	"github.com/example/gator-taxi/internal/config"
	"github.com/example/gator-taxi/internal/dispatch"
	"github.com/example/gator-taxi/internal/events"
	"github.com/example/gator-taxi/internal/httpapi"
	"github.com/example/gator-taxi/internal/ingest"
	"github.com/example/gator-taxi/internal/logging"
	"github.com/example/gator-taxi/internal/outbox"
	"github.com/example/gator-taxi/internal/payments"
	"github.com/example/gator-taxi/internal/registry"
	"github.com/example/gator-taxi/internal/storage"
)

func main() {
	cfg, err := config.LoadServerConfig()
	if err != nil {
		slog.Error("invalid configuration", "err", err)
		os.Exit(1)
	}
	logger := logging.NewLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped", "err", err)
		os.Exit(1)
	}
}

func run(cfg config.ServerConfig, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	bus := events.NewBus(cfg.EventBuffer, cfg.EventHandlerTimeout, logger)
	var closers []func() error
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil {
				logger.Warn("close failed", "err", err)
			}
		}
	}()

	// journal
	var store storage.TripStore
	if cfg.PGDSN != "" {
		ps, err := storage.NewPostgresStore(cfg.PGDSN)
		if err != nil {
			return err
		}
		closers = append(closers, ps.Close)
		if cfg.RunMigrations {
			if err := ps.Migrate(ctx); err != nil {
				return err
			}
			logger.Info("migration applied")
		}
		store = ps
	} else {
		store = storage.NewMemoryStore()
	}
	bus.Subscribe("journal", storage.Handler{Store: store})

	// ride event stream
	var wg sync.WaitGroup
	bctx, cancelBroadcast := context.WithCancel(context.Background())
	defer cancelBroadcast()
	switch {
	case len(cfg.KafkaBrokers) > 0 && cfg.OutboxDir != "":
		ob, err := outbox.Open(cfg.OutboxDir)
		if err != nil {
			return err
		}
		producer, err := broadcast.NewSyncProducer(cfg.KafkaBrokers)
		if err != nil {
			_ = ob.Close()
			return err
		}
		b := broadcast.New(ob, producer, cfg.KafkaTopic, cfg.OutboxInterval, logger)
		closers = append(closers, ob.Close, b.Close)
		bus.Subscribe("outbox", ob)
		wg.Add(1)
		go func() {
			defer wg.Done()
			b.Run(bctx)
		}()
	case len(cfg.KafkaBrokers) > 0:
		kp := ingest.NewKafkaProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
		closers = append(closers, kp.Close)
		bus.Subscribe("kafka", kp)
	}

	// dispatch feeds
	wsreg := dispatch.NewWSRegistry(logger)
	notifiers := []dispatch.Notifier{dispatch.WSNotifier{Registry: wsreg}}
	if cfg.DispatchWebhookURL != "" {
		notifiers = append(notifiers, dispatch.NewWebhookDispatcher(cfg.DispatchWebhookURL))
	}
	bus.Subscribe("dispatch", dispatch.Handler{Notifiers: notifiers})
	if cfg.StripeAPIKey != "" {
		bus.Subscribe("fare", payments.FareHandler{
			Holder:   payments.NewStripeClient(cfg.StripeAPIKey),
			Currency: cfg.StripeCurrency,
			Logger:   logger,
		})
	}

	go bus.Run(context.Background())

	reg := registry.New(bus, logger)
	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      httpapi.NewServer(reg, wsreg, logger),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("gator-taxi listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case serveErr = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", "err", err)
	}

	bus.Close()
	cancelBroadcast()
	wg.Wait()
	return serveErr
}
