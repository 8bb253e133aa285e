package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/slotswap/internal/repository"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"
)

const defaultRetryBase = 20 * time.Millisecond

// Store реализует repository.Store поверх PostgreSQL
type Store struct {
	pool       *pgxpool.Pool
	maxRetries uint64
	retryBase  time.Duration
	logger     *zap.Logger
}

// NewStore создаёт хранилище. maxRetries bounds how many times a workflow
// aborted by a serialization failure or deadlock is replayed.
func NewStore(pool *pgxpool.Pool, maxRetries int, logger *zap.Logger) *Store {
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &Store{
		pool:       pool,
		maxRetries: uint64(maxRetries),
		retryBase:  defaultRetryBase,
		logger:     logger,
	}
}

// Pool возвращает пул соединений
func (s *Store) Pool() *pgxpool.Pool {
	return s.pool
}

// Repositories возвращает репозитории вне транзакции (только committed данные)
func (s *Store) Repositories() repository.Repositories {
	return bind(s.pool, false)
}

func bind(q Querier, lock bool) repository.Repositories {
	return repository.Repositories{
		Events: NewEventRepository(q, lock),
		Swaps:  NewSwapRequestRepository(q, lock),
		Users:  NewUserRepository(q),
	}
}

// Ping проверяет соединение с базой
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// InTx выполняет fn в одной транзакции. Reads inside fn take row locks.
// Serialization failures and deadlocks replay fn with exponential backoff;
// when retries run out, or the deadline expires, the error wraps
// repository.ErrTransient.
func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, repos repository.Repositories) error) error {
	attempt := 0
	backoff := retry.WithMaxRetries(s.maxRetries, retry.NewExponential(s.retryBase))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		err := s.runTx(ctx, fn)
		if isRetryable(err) {
			s.logger.Warn("Transaction aborted by database, retrying",
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
			return retry.RetryableError(err)
		}
		return err
	})

	if isRetryable(err) {
		return fmt.Errorf("%w: %w", repository.ErrTransient, err)
	}
	return repository.TimeoutAsTransient(err)
}

func (s *Store) runTx(ctx context.Context, fn func(ctx context.Context, repos repository.Repositories) error) error {
	// Начинаем транзакцию
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(ctx, bind(tx, true)); err != nil {
		return err
	}

	// Коммитим транзакцию
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}
