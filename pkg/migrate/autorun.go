package migrate

import (
	"context"
	"fmt"

	"github.com/phonelife/storefront/pkg/config"
	"github.com/phonelife/storefront/pkg/db"
	"github.com/phonelife/storefront/pkg/logger"
)

// MaybeRun applies the embedded migrations when auto-migrate is enabled or the
// database is a local sqlite file, which has no separate migration step.
func MaybeRun(ctx context.Context, cfg config.DBConfig, logg *logger.Logger, client *db.Client) error {
	if !cfg.AutoMigrate && client.Dialect() != config.DBDriverSQLite {
		return nil
	}

	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}

	if logg != nil {
		ctx = logg.WithField(ctx, "dialect", client.Dialect())
		logg.Info(ctx, "running goose migrations (auto-run)")
	}

	if err := Run(ctx, sqlDB, client.Dialect(), "", "up"); err != nil {
		return fmt.Errorf("running goose up: %w", err)
	}

	if logg != nil {
		logg.Info(ctx, "goose migrations completed")
	}
	return nil
}
