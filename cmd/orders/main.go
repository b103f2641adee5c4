package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	orderapp "github.com/dwikikusuma/cartflow/internal/order/app"
	orderhttp "github.com/dwikikusuma/cartflow/internal/order/http"
	"github.com/dwikikusuma/cartflow/internal/order/infra/messaging"
	"github.com/dwikikusuma/cartflow/internal/order/infra/outbox"
	orderpg "github.com/dwikikusuma/cartflow/internal/order/infra/postgres"
	"github.com/dwikikusuma/cartflow/pkg/config"
	"github.com/dwikikusuma/cartflow/pkg/logger"
	"github.com/dwikikusuma/cartflow/pkg/metrics"
	"github.com/dwikikusuma/cartflow/pkg/postgres"
	"github.com/dwikikusuma/cartflow/pkg/shutdown"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"
)

type notifier interface {
	orderapp.CancellationNotifier
	Close() error
}

func main() {
	cfg, err := config.Load()
	if err == nil {
		err = cfg.Validate(config.ServiceOrders)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Options{
		Service:   "orders",
		Env:       cfg.AppEnv,
		Level:     cfg.LogLevel,
		AddSource: true,
		File:      cfg.LogFile,
	})

	ctx, cancel := shutdown.WithSignals(context.Background())
	defer cancel()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("orders service stopped", slog.Any("err", err))
		os.Exit(1)
	}
	log.Info("bye")
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	pool, err := postgres.OpenPool(ctx, postgres.Config{
		DSN:             cfg.Postgres.DSN,
		MaxOpenConns:    cfg.Postgres.MaxOpenConns,
		ConnMaxLifetime: cfg.Postgres.ConnMaxLifetime,
	})
	if err != nil {
		return err
	}
	defer pool.Close()

	broker, err := newNotifier(cfg)
	if err != nil {
		return err
	}
	defer broker.Close()

	rec := metrics.New("orders", prometheus.DefaultRegisterer)
	store := orderpg.NewOrderStore(pool)

	var cancellations orderapp.CancellationNotifier = broker
	var relay *outbox.Relay
	if cfg.Outbox.Enabled {
		queue := outbox.NewPgQueue(pool, cfg.Outbox.MaxAttempts)
		cancellations = outbox.NewFallbackNotifier(broker, queue, log, rec)
		relay = outbox.NewRelay(queue, broker, cfg.Outbox.Interval, cfg.Outbox.BatchSize, log, rec)
	}

	opts := []orderapp.Option{
		orderapp.WithLogger(log),
		orderapp.WithMetrics(rec),
		orderapp.WithMaxAttempts(cfg.MaxTxAttempts),
	}
	handler := orderhttp.NewOrderHandler(
		orderapp.NewService(store, opts...),
		orderapp.NewCoordinator(store, cancellations, opts...),
	)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           orderhttp.NewRouter(handler, log, rec),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       cfg.HTTP.ReadTimeout,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
		IdleTimeout:       cfg.HTTP.IdleTimeout,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return shutdown.ServeHTTP(ctx, log, server, cfg.HTTP.ShutdownTimeout)
	})
	g.Go(func() error {
		return shutdown.ServeHealth(ctx, log, fmt.Sprintf(":%d", cfg.GRPCPort), "cartflow.orders", cfg.HTTP.ShutdownTimeout)
	})
	if relay != nil {
		g.Go(func() error { return relay.Run(ctx) })
	}
	return g.Wait()
}

func newNotifier(cfg config.Config) (notifier, error) {
	switch cfg.Notifier.Backend {
	case "kafka":
		return messaging.NewKafkaNotifier(messaging.NewKafkaWriter(cfg.Kafka.Brokers, cfg.Kafka.Topic)), nil
	default:
		n, err := messaging.NewRabbitNotifier(messaging.DialRabbit(cfg.Rabbit.URL, cfg.Rabbit.Exchange), cfg.Rabbit.Exchange, cfg.Rabbit.RoutingKey)
		if err != nil {
			return nil, err
		}
		return n, nil
	}
}
