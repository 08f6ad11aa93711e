// internal/app/bootstrap/shutdown.go
package bootstrap

import (
	"context"

	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// Shutdown stops background work, drains pending mail, and closes the
// MongoDB client. Jobs stop first so no sweep runs against a closed client.
func Shutdown(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if deps.Scheduler != nil {
		if err := deps.Scheduler.Stop(ctx); err != nil {
			logger.Warn("scheduler did not stop cleanly", zap.Error(err))
		}
	}

	if err := deps.Mail.Wait(ctx); err != nil {
		logger.Warn("pending emails abandoned at shutdown", zap.Error(err))
	}

	if deps.MongoClient != nil {
		logger.Info("disconnecting MongoDB client")
		if err := deps.MongoClient.Disconnect(ctx); err != nil {
			logger.Error("MongoDB disconnect failed", zap.Error(err))
			return err
		}
	}
	return nil
}
