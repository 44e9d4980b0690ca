// internal/app/bootstrap/shutdown.go
package bootstrap

import (
	"context"
	"errors"

	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// Shutdown stops receiving updates, drains in-flight turns, stops the
// sweeper and then closes the database connections.
func Shutdown(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	var errs []error

	if rt := deps.Runtime; rt != nil {
		if rt.stopPoller != nil {
			rt.stopPoller()
			select {
			case <-rt.pollerDone:
			case <-ctx.Done():
			}
		}
		if rt.Dispatcher != nil {
			if err := rt.Dispatcher.Close(ctx); err != nil {
				logger.Warn("dispatcher did not drain", zap.Error(err))
				errs = append(errs, err)
			}
		}
		if rt.sweeper != nil {
			rt.sweeper.Stop()
		}
	}

	if deps.Postgres != nil {
		logger.Info("closing Postgres accounts store")
		if err := deps.Postgres.Close(); err != nil {
			logger.Error("Postgres close failed", zap.Error(err))
			errs = append(errs, err)
		}
	}

	if deps.MongoClient != nil {
		logger.Info("disconnecting MongoDB client")
		if err := deps.MongoClient.Disconnect(ctx); err != nil {
			logger.Error("MongoDB disconnect failed", zap.Error(err))
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
