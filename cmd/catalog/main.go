package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	catalogapp "github.com/dwikikusuma/cartflow/internal/catalog/app"
	cataloghttp "github.com/dwikikusuma/cartflow/internal/catalog/http"
	cpg "github.com/dwikikusuma/cartflow/internal/catalog/infra/postgres"
	"github.com/dwikikusuma/cartflow/pkg/config"
	"github.com/dwikikusuma/cartflow/pkg/logger"
	"github.com/dwikikusuma/cartflow/pkg/metrics"
	"github.com/dwikikusuma/cartflow/pkg/postgres"
	"github.com/dwikikusuma/cartflow/pkg/shutdown"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err == nil {
		err = cfg.Validate(config.ServiceCatalog)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Options{
		Service:   "catalog",
		Env:       cfg.AppEnv,
		Level:     cfg.LogLevel,
		AddSource: true,
		File:      cfg.LogFile,
	})

	ctx, cancel := shutdown.WithSignals(context.Background())
	defer cancel()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("catalog service stopped", slog.Any("err", err))
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

	rec := metrics.New("catalog", prometheus.DefaultRegisterer)
	catalogSvc := catalogapp.NewService(cpg.NewProductRepo(db))

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           cataloghttp.NewRouter(cataloghttp.NewHandler(catalogSvc), log, rec),
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
		return shutdown.ServeHealth(ctx, log, fmt.Sprintf(":%d", cfg.GRPCPort), "cartflow.catalog", cfg.HTTP.ShutdownTimeout)
	})
	return g.Wait()
}
