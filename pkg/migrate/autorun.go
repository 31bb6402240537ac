package migrate

import (
	"context"
	"fmt"

	"github.com/angelmondragon/assettrack-backend/pkg/config"
	"github.com/angelmondragon/assettrack-backend/pkg/db"
	"github.com/angelmondragon/assettrack-backend/pkg/logger"
)

// MaybeRunDev applies pending migrations when running in dev with the auto-migrate flag
// on. SQLite databases are skipped because the migrations use Postgres types.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}

	ctx = logg.WithFields(ctx, map[string]any{
		"env":       cfg.App.Env,
		"dir":       DefaultDir,
		"db_driver": cfg.DB.Driver,
	})
	if cfg.DB.IsSQLite() {
		logg.Warn(ctx, "auto-migrate skipped: asset schema migrations require postgres")
		return nil
	}

	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}

	logg.Info(ctx, "applying asset schema migrations")
	if err := Run(ctx, sqlDB, DefaultDir, "up"); err != nil {
		return fmt.Errorf("running goose up: %w", err)
	}
	logg.Info(ctx, "asset schema up to date")
	return nil
}
