package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/robfig/cron/v3"

	"github.com/platinummonkey/teamgate/pkg/auth"
	"github.com/platinummonkey/teamgate/pkg/config"
	"github.com/platinummonkey/teamgate/pkg/observability"
)

const poolStatsSchedule = "@every 15s"

// startMaintenance schedules background jobs and starts the scheduler
func startMaintenance(cfg config.MaintenanceConfig, tokens *auth.TokenManager, db *sql.DB, rdb *redis.Client,
	metrics *observability.Metrics, logger *observability.Logger) (*cron.Cron, error) {
	c := cron.New()

	// Expired token cleanup
	_, err := c.AddFunc(cfg.TokenCleanupSchedule, func() {
		defer observability.RecoverPanic(logger, "token cleanup")

		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		removed, err := tokens.CleanupExpiredTokens(ctx)
		if err != nil {
			logger.WithError(err).Error("Expired token cleanup failed")
			return
		}
		metrics.RecordExpiredTokensRemoved(removed)
		if removed > 0 {
			logger.WithField("removed", removed).Info("Expired tokens removed")
		}
	})
	if err != nil {
		return nil, fmt.Errorf("failed to schedule token cleanup: %w", err)
	}

	// Connection pool gauges
	_, err = c.AddFunc(poolStatsSchedule, func() {
		defer observability.RecoverPanic(logger, "pool stats")
		metrics.RecordPoolStats(db, rdb)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to schedule pool stats: %w", err)
	}

	c.Start()
	logger.WithField("token_cleanup_schedule", cfg.TokenCleanupSchedule).Info("Maintenance scheduler started")
	return c, nil
}
