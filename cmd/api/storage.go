package main

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/multierr"

	"github.com/phonelife/storefront/api/controllers"
	"github.com/phonelife/storefront/internal/cart"
	"github.com/phonelife/storefront/pkg/config"
	"github.com/phonelife/storefront/pkg/db"
	"github.com/phonelife/storefront/pkg/logger"
	"github.com/phonelife/storefront/pkg/migrate"
	"github.com/phonelife/storefront/pkg/redis"
)

// cartBackend is the storage medium selected by PHONELIFE_CART_BACKEND.
type cartBackend struct {
	factory   cart.StorageFactory
	evict     func(sessionID string)
	readiness map[string]controllers.Pinger
	closers   []io.Closer
}

func (b *cartBackend) Close() error {
	var err error
	for _, c := range b.closers {
		err = multierr.Append(err, c.Close())
	}
	return err
}

func openCartBackend(ctx context.Context, cfg *config.Config, logg *logger.Logger) (*cartBackend, error) {
	backend := &cartBackend{readiness: map[string]controllers.Pinger{}}

	switch cfg.Cart.NormalizedBackend() {
	case config.CartBackendRedis:
		client, err := redis.New(ctx, cfg.Redis, logg)
		if err != nil {
			return nil, fmt.Errorf("bootstrap redis: %w", err)
		}
		ttl := cfg.Cart.PersistTTL
		backend.factory = func(sessionID string) cart.Storage {
			return cart.NewRedisStorage(client, sessionID, ttl)
		}
		backend.readiness["redis"] = client
		backend.closers = append(backend.closers, client)

	case config.CartBackendDB:
		client, err := db.New(ctx, cfg.DB, logg)
		if err != nil {
			return nil, fmt.Errorf("bootstrap database: %w", err)
		}
		if err := migrate.MaybeRun(ctx, cfg.DB, logg, client); err != nil {
			return nil, multierr.Append(fmt.Errorf("auto migrate: %w", err), client.Close())
		}
		conn := client.DB()
		backend.factory = func(sessionID string) cart.Storage {
			return cart.NewDBStorage(conn, sessionID)
		}
		backend.readiness["database"] = client
		backend.closers = append(backend.closers, client)

	case config.CartBackendMemory:
		mem := cart.NewMemoryBackend()
		backend.factory = mem.ForSession
		backend.evict = mem.Release
		logg.Warn(ctx, "cart backend is in-memory; carts are lost on restart and after the session idle timeout")

	default:
		return nil, fmt.Errorf("unsupported cart backend %q", cfg.Cart.Backend)
	}

	return backend, nil
}
