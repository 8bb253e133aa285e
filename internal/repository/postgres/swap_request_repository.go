package postgres

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/slotswap/internal/model"
	"github.com/Freeeeeet/slotswap/internal/repository"
)

const swapColumns = `id, initiator_id, receiver_id, initiator_slot_id, receiver_slot_id, status, created_at, updated_at`

type SwapRequestRepository struct {
	q    Querier
	lock bool
}

func NewSwapRequestRepository(q Querier, lock bool) *SwapRequestRepository {
	return &SwapRequestRepository{q: q, lock: lock}
}

func scanSwapRequest(row scanner) (*model.SwapRequest, error) {
	var req model.SwapRequest
	err := row.Scan(
		&req.ID,
		&req.InitiatorID,
		&req.ReceiverID,
		&req.InitiatorSlotID,
		&req.ReceiverSlotID,
		&req.Status,
		&req.CreatedAt,
		&req.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// Create создаёт заявку на обмен.
// Partial unique indexes reject a second PENDING request on the same slot.
func (r *SwapRequestRepository) Create(ctx context.Context, req *model.SwapRequest) error {
	query := `
		INSERT INTO swap_requests (id, initiator_id, receiver_id, initiator_slot_id, receiver_slot_id, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at
	`

	err := r.q.QueryRow(
		ctx, query,
		req.ID,
		req.InitiatorID,
		req.ReceiverID,
		req.InitiatorSlotID,
		req.ReceiverSlotID,
		req.Status,
	).Scan(&req.CreatedAt, &req.UpdatedAt)

	if err != nil {
		return fmt.Errorf("create swap request: %w", mapError(err))
	}

	return nil
}

// GetByID получает заявку по ID
func (r *SwapRequestRepository) GetByID(ctx context.Context, id string) (*model.SwapRequest, error) {
	query := `SELECT ` + swapColumns + ` FROM swap_requests WHERE id = $1` + lockClause(r.lock)

	req, err := scanSwapRequest(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get swap request by id: %w", err)
	}

	return req, nil
}

// FindPendingBySlot получает PENDING заявки, в которых участвует слот
func (r *SwapRequestRepository) FindPendingBySlot(ctx context.Context, slotID string) ([]*model.SwapRequest, error) {
	query := `
		SELECT ` + swapColumns + `
		FROM swap_requests
		WHERE status = $1
		  AND (initiator_slot_id = $2 OR receiver_slot_id = $2)
	`
	return r.list(ctx, "find pending swap requests by slot", query, model.SwapStatusPending, slotID)
}

// ListForUser получает все заявки пользователя, новые первыми
func (r *SwapRequestRepository) ListForUser(ctx context.Context, userID string) ([]*model.SwapRequest, error) {
	query := `
		SELECT ` + swapColumns + `
		FROM swap_requests
		WHERE initiator_id = $1 OR receiver_id = $1
		ORDER BY created_at DESC, id
	`
	return r.list(ctx, "list swap requests for user", query, userID)
}

func (r *SwapRequestRepository) list(ctx context.Context, op, query string, args ...any) ([]*model.SwapRequest, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var requests []*model.SwapRequest
	for rows.Next() {
		req, err := scanSwapRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan swap request: %w", err)
		}
		requests = append(requests, req)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return requests, nil
}

// TransitionStatus переводит заявку из from в to, если она всё ещё в from
func (r *SwapRequestRepository) TransitionStatus(ctx context.Context, id string, from, to model.SwapStatus) (*model.SwapRequest, error) {
	query := `
		UPDATE swap_requests
		SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status = $3
		RETURNING ` + swapColumns

	req, err := scanSwapRequest(r.q.QueryRow(ctx, query, to, id, from))
	if err != nil {
		if !IsNotFound(err) {
			return nil, fmt.Errorf("transition swap request: %w", mapError(err))
		}

		var exists bool
		if err := r.q.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM swap_requests WHERE id = $1)`, id).Scan(&exists); err != nil {
			return nil, fmt.Errorf("transition swap request: %w", err)
		}
		if !exists {
			return nil, fmt.Errorf("transition swap request: %w", repository.ErrNotFound)
		}
		return nil, fmt.Errorf("transition swap request: %w", repository.ErrStatusMismatch)
	}

	return req, nil
}
