package postgres

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/slotswap/internal/model"
	"github.com/Freeeeeet/slotswap/internal/repository"
)

const eventColumns = `id, user_id, title, start_time, end_time, status, created_at, updated_at`

type EventRepository struct {
	q    Querier
	lock bool
}

// NewEventRepository создаёт репозиторий поверх пула или транзакции.
// lock=true makes every read take a row lock (only meaningful inside a tx).
func NewEventRepository(q Querier, lock bool) *EventRepository {
	return &EventRepository{q: q, lock: lock}
}

func scanEvent(row scanner) (*model.Event, error) {
	var event model.Event
	err := row.Scan(
		&event.ID,
		&event.UserID,
		&event.Title,
		&event.StartTime,
		&event.EndTime,
		&event.Status,
		&event.CreatedAt,
		&event.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &event, nil
}

// Create создаёт новый слот
func (r *EventRepository) Create(ctx context.Context, event *model.Event) error {
	query := `
		INSERT INTO events (id, user_id, title, start_time, end_time, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at
	`

	err := r.q.QueryRow(
		ctx, query,
		event.ID,
		event.UserID,
		event.Title,
		event.StartTime,
		event.EndTime,
		event.Status,
	).Scan(&event.CreatedAt, &event.UpdatedAt)

	if err != nil {
		return fmt.Errorf("create event: %w", mapError(err))
	}

	return nil
}

// GetByID получает слот по ID без учёта владельца
func (r *EventRepository) GetByID(ctx context.Context, id string) (*model.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1` + lockClause(r.lock)

	event, err := scanEvent(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get event by id: %w", err)
	}

	return event, nil
}

// GetByOwner получает слот, только если он принадлежит ownerID
func (r *EventRepository) GetByOwner(ctx context.Context, id, ownerID string) (*model.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1 AND user_id = $2` + lockClause(r.lock)

	event, err := scanEvent(r.q.QueryRow(ctx, query, id, ownerID))
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get event by owner: %w", err)
	}

	return event, nil
}

// GetByIDs получает слоты по списку ID; отсутствующие пропускаются
func (r *EventRepository) GetByIDs(ctx context.Context, ids []string) ([]*model.Event, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := `SELECT ` + eventColumns + ` FROM events WHERE id = ANY($1::text[]::uuid[]) ORDER BY start_time`
	return r.list(ctx, "get events by ids", query, ids)
}

// ListByOwner получает все слоты пользователя
func (r *EventRepository) ListByOwner(ctx context.Context, ownerID string) ([]*model.Event, error) {
	query := `
		SELECT ` + eventColumns + `
		FROM events
		WHERE user_id = $1
		ORDER BY start_time, id
	`
	return r.list(ctx, "list events by owner", query, ownerID)
}

// ListSwappable получает чужие слоты, доступные для обмена
func (r *EventRepository) ListSwappable(ctx context.Context, excludeOwnerID string) ([]*model.Event, error) {
	query := `
		SELECT ` + eventColumns + `
		FROM events
		WHERE status = $1
		  AND user_id <> $2
		ORDER BY start_time, id
	`
	return r.list(ctx, "list swappable events", query, model.EventStatusSwappable, excludeOwnerID)
}

func (r *EventRepository) list(ctx context.Context, op, query string, args ...any) ([]*model.Event, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var events []*model.Event
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return events, nil
}

// Lock блокирует строки слотов в порядке ID, чтобы параллельные обмены
// на пересекающихся слотах не могли зайти в дедлок
func (r *EventRepository) Lock(ctx context.Context, ids ...string) error {
	if !r.lock || len(ids) == 0 {
		return nil
	}

	query := `
		SELECT id
		FROM events
		WHERE id = ANY($1::text[]::uuid[])
		ORDER BY id
		FOR UPDATE
	`

	rows, err := r.q.Query(ctx, query, ids)
	if err != nil {
		return fmt.Errorf("lock events: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("lock events: %w", err)
	}

	return nil
}

// Update сохраняет изменяемые поля слота
func (r *EventRepository) Update(ctx context.Context, event *model.Event) error {
	query := `
		UPDATE events
		SET title = $1, start_time = $2, end_time = $3, status = $4, user_id = $5, updated_at = NOW()
		WHERE id = $6
		RETURNING updated_at
	`

	err := r.q.QueryRow(
		ctx, query,
		event.Title,
		event.StartTime,
		event.EndTime,
		event.Status,
		event.UserID,
		event.ID,
	).Scan(&event.UpdatedAt)

	if err != nil {
		if IsNotFound(err) {
			return fmt.Errorf("update event: %w", repository.ErrNotFound)
		}
		return fmt.Errorf("update event: %w", mapError(err))
	}

	return nil
}

// UpdateStatus обновляет статус слота
func (r *EventRepository) UpdateStatus(ctx context.Context, id string, status model.EventStatus) error {
	query := `
		UPDATE events
		SET status = $1, updated_at = NOW()
		WHERE id = $2
	`

	result, err := r.q.Exec(ctx, query, status, id)
	if err != nil {
		return fmt.Errorf("update event status: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("update event status: %w", repository.ErrNotFound)
	}

	return nil
}

// Delete удаляет слот владельца
func (r *EventRepository) Delete(ctx context.Context, id, ownerID string) error {
	query := `DELETE FROM events WHERE id = $1 AND user_id = $2`

	result, err := r.q.Exec(ctx, query, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("delete event: %w", repository.ErrNotFound)
	}

	return nil
}
