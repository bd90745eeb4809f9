package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/phonelife/storefront/api/routes"
	"github.com/phonelife/storefront/internal/backoffice"
	"github.com/phonelife/storefront/internal/bookings"
	"github.com/phonelife/storefront/internal/cart"
	"github.com/phonelife/storefront/internal/catalog"
	checkoutsvc "github.com/phonelife/storefront/internal/checkout"
	"github.com/phonelife/storefront/internal/cron"
	"github.com/phonelife/storefront/pkg/config"
	"github.com/phonelife/storefront/pkg/logger"
	"github.com/phonelife/storefront/pkg/metrics"
	"github.com/phonelife/storefront/pkg/shopapi"
)

const shutdownTimeout = 10 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backend, err := openCartBackend(ctx, cfg, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap cart storage", err)
		os.Exit(1)
	}
	defer func() {
		if err := backend.Close(); err != nil {
			logg.Error(context.Background(), "error closing cart storage", err)
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	cartMetrics := metrics.NewCartMetrics(registry)
	jobMetrics := metrics.NewJobMetrics(registry)

	sessions := cart.NewSessions(backend.factory, cfg.Cart.SessionIdle, cartMetrics,
		cart.WithLogger(logg),
		cart.WithObserver(cartMetrics),
		cart.WithWriteTimeout(cfg.Cart.WriteTimeout),
	)
	if backend.evict != nil {
		sessions.OnEvict(backend.evict)
	}

	shopClient, err := shopapi.New(cfg.ShopAPI)
	if err != nil {
		logg.Error(ctx, "failed to create shop api client", err)
		os.Exit(1)
	}

	catalogService, err := catalog.NewService(shopClient)
	requireService(ctx, logg, "catalog", err)
	checkoutService, err := checkoutsvc.NewService(shopClient, logg)
	requireService(ctx, logg, "checkout", err)
	bookingService, err := bookings.NewService(shopClient, logg)
	requireService(ctx, logg, "bookings", err)
	backofficeService, err := backoffice.NewService(shopClient, logg)
	requireService(ctx, logg, "backoffice", err)

	sweepJob, err := cron.NewSessionSweepJob(sessions, logg)
	requireService(ctx, logg, "session sweep", err)
	jobs, err := cron.NewRegistry(sweepJob)
	requireService(ctx, logg, "job registry", err)
	scheduler, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: jobs,
		Metrics:  jobMetrics,
		Interval: cfg.Cart.SweepEvery,
	})
	requireService(ctx, logg, "scheduler", err)
	go func() {
		if err := scheduler.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logg.Error(ctx, "scheduler stopped unexpectedly", err)
		}
	}()

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx = logg.WithFields(ctx, map[string]any{
		"env":          cfg.App.Env,
		"addr":         addr,
		"cart_backend": cfg.Cart.NormalizedBackend(),
		"shop_api":     cfg.ShopAPI.BaseURL,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			registry,
			backend.readiness,
			sessions,
			catalogService,
			checkoutService,
			bookingService,
			backofficeService,
		),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(shutdownCtx, "graceful shutdown failed", err)
		}
	}()

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "api server shut down gracefully")
}

func requireService(ctx context.Context, logg *logger.Logger, name string, err error) {
	if err == nil {
		return
	}
	logg.Error(logg.WithField(ctx, "service", name), "failed to create service", err)
	os.Exit(1)
}
