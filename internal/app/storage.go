package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/utafrali/storefront/internal/config"
	"github.com/utafrali/storefront/internal/storage"
	"github.com/utafrali/storefront/internal/storage/memory"
	pgstore "github.com/utafrali/storefront/internal/storage/postgres"
	redisstore "github.com/utafrali/storefront/internal/storage/redis"
	"github.com/utafrali/storefront/internal/storage/sqlite"
	"github.com/utafrali/storefront/pkg/database"
)

// openStorage builds the client storage driver selected by cfg.StorageDriver.
func openStorage(ctx context.Context, cfg *config.Config, logger *slog.Logger) (storage.Storage, error) {
	database.SetSlowQueryLogging(cfg.SlowQueryThreshold, logger)

	switch cfg.StorageDriver {
	case storage.DriverMemory:
		logger.Warn("using in-memory storage, the cart will not survive a restart")
		return memory.New(), nil

	case storage.DriverSQLite:
		st, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite storage: %w", err)
		}
		logger.Info("opened sqlite storage", slog.String("path", cfg.SQLitePath))
		return st, nil

	case storage.DriverRedis:
		redisCfg := database.DefaultRedisConfig()
		redisCfg.Addr = cfg.RedisAddr
		redisCfg.Password = cfg.RedisPass
		redisCfg.DB = cfg.RedisDB
		client, err := database.NewRedisClient(ctx, redisCfg)
		if err != nil {
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		logger.Info("connected to Redis",
			slog.String("addr", cfg.RedisAddr),
			slog.Int("db", cfg.RedisDB),
		)
		return redisstore.New(client, cfg.RedisPrefix, cfg.RedisTTL), nil

	case storage.DriverPostgres:
		pgCfg := database.DefaultPostgresConfig()
		pgCfg.URL = cfg.PostgresURL
		pool, err := database.NewPostgresPool(ctx, pgCfg, logger)
		if err != nil {
			return nil, fmt.Errorf("connect to postgres: %w", err)
		}
		st := pgstore.New(pool)
		if err := st.EnsureSchema(ctx, logger); err != nil {
			pool.Close()
			return nil, err
		}
		if err := database.RegisterPoolMetrics(prometheus.DefaultRegisterer, pool); err != nil {
			logger.Warn("pool metrics not registered", slog.String("error", err.Error()))
		}
		logger.Info("connected to PostgreSQL")
		return st, nil

	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
}
