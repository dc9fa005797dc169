// Package app opens the backing services selected by configuration.
package app

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/student-registry/internal/config"
	"github.com/stemsi/student-registry/internal/database"
	"github.com/stemsi/student-registry/internal/handler"
	"github.com/stemsi/student-registry/internal/repository"
	"github.com/stemsi/student-registry/internal/session"
)

// Infra holds the opened stores and the probes used by the health check.
type Infra struct {
	Records  repository.RecordStore
	Sessions session.Store
	Checks   map[string]handler.Pinger

	redis *redis.Client
}

// OpenRecordStore opens the store named by cfg.StoreDriver.
func OpenRecordStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (repository.RecordStore, handler.Pinger, error) {
	switch cfg.StoreDriver {
	case config.StorePostgres:
		pool, err := database.NewPostgresPool(ctx, cfg.DatabaseURL, cfg.MaxDBConns, log)
		if err != nil {
			return nil, nil, err
		}
		return repository.NewPostgresStore(pool), handler.PingFunc(pool.Ping), nil

	case config.StoreSQLite:
		db, err := database.OpenSQLite(ctx, cfg.SQLitePath, log)
		if err != nil {
			return nil, nil, err
		}
		store, err := repository.NewSQLiteStore(ctx, db)
		if err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		return store, handler.PingFunc(db.PingContext), nil

	case config.StoreMemory:
		log.Warn().Msg("Using in-memory record store; data is lost on restart")
		return repository.NewMemoryStore(), nil, nil

	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}

// Open opens the record and session stores.
func Open(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*Infra, error) {
	records, recordPing, err := OpenRecordStore(ctx, cfg, log)
	if err != nil {
		return nil, fmt.Errorf("open record store: %w", err)
	}

	infra := &Infra{Records: records, Checks: map[string]handler.Pinger{}}
	if recordPing != nil {
		infra.Checks[cfg.StoreDriver] = recordPing
	}

	switch cfg.SessionDriver {
	case config.SessionRedis:
		rdb, err := database.NewRedisClient(ctx, cfg.RedisURL, log)
		if err != nil {
			_ = records.Close()
			return nil, fmt.Errorf("open session store: %w", err)
		}
		infra.redis = rdb
		infra.Sessions = session.NewRedisStore(rdb, cfg.SessionTTL)
		infra.Checks["redis"] = handler.PingFunc(func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		})
	default:
		infra.Sessions = session.NewMemoryStore()
	}

	return infra, nil
}

// Close releases every opened connection.
func (i *Infra) Close() error {
	var firstErr error
	if i.redis != nil {
		if err := i.redis.Close(); err != nil {
			firstErr = err
		}
	}
	if err := i.Records.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
