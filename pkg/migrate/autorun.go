package migrate

import (
	"context"

	"github.com/angelmondragon/mesflow-backend/pkg/config"
	"github.com/angelmondragon/mesflow-backend/pkg/db"
	pkgerrors "github.com/angelmondragon/mesflow-backend/pkg/errors"
	"github.com/angelmondragon/mesflow-backend/pkg/logger"
)

// MaybeRunDev applies the embedded migrations at boot when running in dev
// with MESFLOW_AUTO_MIGRATE set. Other environments migrate via cmd/migrate.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}

	sqlDB, err := client.SQL()
	if err != nil {
		return err
	}
	source, err := Source("")
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load embedded migrations")
	}
	runner, err := NewRunner(sqlDB, cfg.DB.Driver, source)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "prepare migrations")
	}

	ctx = logg.WithField(ctx, "env", cfg.App.Env)
	applied, err := runner.Up(ctx)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "apply dev migrations")
	}
	logg.Info(logg.WithField(ctx, "applied", len(applied)), "dev migrations applied")
	return nil
}
