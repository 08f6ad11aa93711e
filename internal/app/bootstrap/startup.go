// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"

	"github.com/dalemusser/taskhub/internal/app/store/oauthstate"
	taskstore "github.com/dalemusser/taskhub/internal/app/store/tasks"
	"github.com/dalemusser/taskhub/internal/app/system/tasks"
	"github.com/dalemusser/taskhub/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// Startup runs one-time application initialization after DB connections and
// schema setup are complete, but before the HTTP handler is built.
//
// TaskHub applies the configured store deadlines, registers its background
// jobs and starts the scheduler.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	timeouts.Configure(timeouts.Config{
		Short:  appCfg.TimeoutShort,
		Medium: appCfg.TimeoutMedium,
		Long:   appCfg.TimeoutLong,
	})

	db := deps.MongoDatabase

	deps.Scheduler.Register(tasks.ExpireOverdueJob(taskstore.New(db), logger, appCfg.SweepInterval))
	deps.Scheduler.Register(tasks.PurgeOAuthStatesJob(oauthstate.New(db), logger))
	deps.Scheduler.Start()

	logger.Info("background jobs started", zap.Strings("jobs", deps.Scheduler.Jobs()))
	return nil
}
