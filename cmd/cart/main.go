package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	cartapp "github.com/dwikikusuma/cartflow/internal/cart/app"
	carthttp "github.com/dwikikusuma/cartflow/internal/cart/http"
	"github.com/dwikikusuma/cartflow/internal/cart/infra/catalog"
	cartpg "github.com/dwikikusuma/cartflow/internal/cart/infra/postgres"
	"github.com/dwikikusuma/cartflow/pkg/config"
	"github.com/dwikikusuma/cartflow/pkg/lock"
	"github.com/dwikikusuma/cartflow/pkg/logger"
	"github.com/dwikikusuma/cartflow/pkg/metrics"
	"github.com/dwikikusuma/cartflow/pkg/postgres"
	"github.com/dwikikusuma/cartflow/pkg/shutdown"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err == nil {
		err = cfg.Validate(config.ServiceCart)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Options{
		Service:   "cart",
		Env:       cfg.AppEnv,
		Level:     cfg.LogLevel,
		AddSource: true,
		File:      cfg.LogFile,
	})

	ctx, cancel := shutdown.WithSignals(context.Background())
	defer cancel()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("cart service stopped", slog.Any("err", err))
		os.Exit(1)
	}
	log.Info("bye")
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	db, err := postgres.Open(ctx, postgres.Config{
		DSN:             cfg.Postgres.DSN,
		MaxOpenConns:    cfg.Postgres.MaxOpenConns,
		MaxIdleConns:    cfg.Postgres.MaxIdleConns,
		ConnMaxLifetime: cfg.Postgres.ConnMaxLifetime,
	})
	if err != nil {
		return err
	}
	defer db.Close()

	locker, closeLocker, err := newLocker(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeLocker()

	rec := metrics.New("cart", prometheus.DefaultRegisterer)
	products := catalog.NewProductGateway(cfg.ProductService.BaseURL, cfg.ProductService.Timeout, log, rec)

	svc := cartapp.NewService(cartpg.NewCartStore(db), products,
		cartapp.WithLocker(locker),
		cartapp.WithLogger(log),
		cartapp.WithMetrics(rec),
		cartapp.WithMaxAttempts(cfg.MaxTxAttempts),
	)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           carthttp.NewRouter(carthttp.NewCartHandler(svc), log, rec),
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
		return shutdown.ServeHealth(ctx, log, fmt.Sprintf(":%d", cfg.GRPCPort), "cartflow.cart", cfg.HTTP.ShutdownTimeout)
	})
	return g.Wait()
}

func newLocker(ctx context.Context, cfg config.Config) (lock.Locker, func(), error) {
	if cfg.Lock.Backend != "redis" {
		return lock.NewLocal(), func() {}, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, nil, fmt.Errorf("ping redis: %w", err)
	}
	return lock.NewRedis(rdb, cfg.Lock.TTL, cfg.Lock.Retry), func() { rdb.Close() }, nil
}
