package migrate

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

// MaybeRunDev brings the schema up to date on boot, but only in dev with
// STOREFRONT_AUTO_MIGRATE set. sqlite mode applies the bundled schema instead
// of running goose.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}

	started := time.Now()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":    cfg.App.Env,
		"sqlite": cfg.FeatureFlags.UseSQLite,
	})

	var err error
	if cfg.FeatureFlags.UseSQLite {
		err = ApplySQLite(ctx, client.DB())
	} else {
		err = runGooseUp(ctx, client)
	}
	if err != nil {
		return fmt.Errorf("dev auto-migrate: %w", err)
	}

	logg.Info(logg.WithField(ctx, "duration_ms", time.Since(started).Milliseconds()), "dev schema up to date")
	return nil
}

func runGooseUp(ctx context.Context, client *db.Client) error {
	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}
	return Run(ctx, sqlDB, DefaultDir, "up")
}
