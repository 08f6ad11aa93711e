// internal/app/system/tasks/jobs.go
package tasks

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// OverdueExpirer flips open tasks past their due date to expired and
// returns how many changed.
type OverdueExpirer interface {
	ExpireOverdue(ctx context.Context, now time.Time) (int64, error)
}

// ExpireOverdueJob is the hourly expiration sweep. Each run issues a single
// bulk update, so a run that finds nothing to do is harmless and a failed
// run is simply retried at the next boundary.
func ExpireOverdueJob(store OverdueExpirer, logger *zap.Logger, interval time.Duration) Job {
	if interval <= 0 {
		interval = time.Hour
	}
	return Job{
		Name:     "expire-overdue-tasks",
		Interval: interval,
		Timeout:  5 * time.Minute,
		Run: func(ctx context.Context) error {
			count, err := store.ExpireOverdue(ctx, time.Now().UTC())
			if err != nil {
				return err
			}
			logger.Info("expired overdue tasks", zap.Int64("count", count))
			return nil
		},
	}
}

// ExpiredDeleter removes records whose expiry has passed.
type ExpiredDeleter interface {
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// PurgeOAuthStatesJob backs up the TTL index on sign-in states, which the
// server only reaps about once a minute.
func PurgeOAuthStatesJob(store ExpiredDeleter, logger *zap.Logger) Job {
	return Job{
		Name:     "purge-oauth-states",
		Interval: 15 * time.Minute,
		Timeout:  time.Minute,
		Run: func(ctx context.Context) error {
			n, err := store.DeleteExpired(ctx, time.Now().UTC())
			if err != nil {
				return err
			}
			if n > 0 {
				logger.Debug("purged oauth states", zap.Int64("count", n))
			}
			return nil
		},
	}
}
