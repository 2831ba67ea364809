// Package storage opens the PostgreSQL and Redis connections used by teamgate
// and applies the database schema.
//
// PostgreSQL holds organizations, users and API tokens. Redis holds
// short-lived verification codes and rate limit counters.
//
//	db, err := storage.OpenPostgres(ctx, cfg.Database)
//	if cfg.Database.AutoMigrate {
//		err = storage.Migrate(ctx, db)
//	}
//	rdb, err := storage.NewRedisClient(ctx, cfg.Redis)
package storage
