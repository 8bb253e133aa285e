package app

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/slotswap/internal/config"
	"github.com/Freeeeeet/slotswap/internal/repository"
	"github.com/Freeeeeet/slotswap/internal/repository/memory"
	"github.com/Freeeeeet/slotswap/internal/repository/postgres"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// OpenStore открывает хранилище, выбранное в конфиге. The returned close
// function releases the underlying resources.
func OpenStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (repository.Store, func(), error) {
	switch cfg.StorageDriver {
	case config.DriverMemory:
		store, err := memory.NewStore()
		if err != nil {
			return nil, nil, err
		}
		logger.Warn("Using in-memory storage, data will be lost on restart")
		return store, func() {}, nil

	case config.DriverPostgres:
		pool, err := pgxpool.New(ctx, cfg.GetDBDSN())
		if err != nil {
			return nil, nil, fmt.Errorf("create pool: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("ping database: %w", err)
		}

		if err := Migrate(ctx, pool, logger); err != nil {
			pool.Close()
			return nil, nil, err
		}

		logger.Info("Connected to PostgreSQL")
		return postgres.NewStore(pool, cfg.TxMaxRetries, logger), pool.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
}

// Migrate применяет встроенные миграции к базе
func Migrate(ctx context.Context, pool *pgxpool.Pool, logger *zap.Logger) error {
	migrator, err := NewMigrator(pool, logger)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	defer migrator.Close()

	return migrator.Run(ctx)
}
