package memory

import (
	"context"
	"fmt"
	"slices"

	"github.com/Freeeeeet/slotswap/internal/model"
	"github.com/Freeeeeet/slotswap/internal/repository"
	"github.com/hashicorp/go-memdb"
)

type swapRequestRepository struct {
	unit
}

func copySwap(r *model.SwapRequest) *model.SwapRequest {
	c := *r
	c.Initiator = nil
	c.Receiver = nil
	c.InitiatorSlot = nil
	c.ReceiverSlot = nil
	return &c
}

func firstSwap(txn *memdb.Txn, id string) (*model.SwapRequest, error) {
	raw, err := txn.First(tableSwaps, "id", id)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, nil
	}
	return raw.(*model.SwapRequest), nil
}

// pendingBySlot mirrors the partial unique indexes of the SQL schema.
func pendingBySlot(txn *memdb.Txn, slotID string) ([]*model.SwapRequest, error) {
	var pending []*model.SwapRequest
	seen := make(map[string]bool)

	for _, index := range []string{"initiator_slot", "receiver_slot"} {
		it, err := txn.Get(tableSwaps, index, slotID)
		if err != nil {
			return nil, err
		}
		for obj := it.Next(); obj != nil; obj = it.Next() {
			req := obj.(*model.SwapRequest)
			if req.IsPending() && !seen[req.ID] {
				seen[req.ID] = true
				pending = append(pending, copySwap(req))
			}
		}
	}

	return pending, nil
}

func (r *swapRequestRepository) Create(ctx context.Context, req *model.SwapRequest) error {
	return r.write(func(txn *memdb.Txn) error {
		existing, err := firstSwap(txn, req.ID)
		if err != nil {
			return fmt.Errorf("create swap request: %w", err)
		}
		if existing != nil {
			return fmt.Errorf("create swap request: %w: id %s", repository.ErrDuplicate, req.ID)
		}

		if req.IsPending() {
			for _, slotID := range req.SlotIDs() {
				pending, err := pendingBySlot(txn, slotID)
				if err != nil {
					return fmt.Errorf("create swap request: %w", err)
				}
				if len(pending) > 0 {
					return fmt.Errorf("create swap request: %w: slot %s", repository.ErrDuplicate, slotID)
				}
			}
		}

		now := r.store.now()
		req.CreatedAt = now
		req.UpdatedAt = now
		if err := txn.Insert(tableSwaps, copySwap(req)); err != nil {
			return fmt.Errorf("create swap request: %w", err)
		}
		return nil
	})
}

func (r *swapRequestRepository) GetByID(ctx context.Context, id string) (*model.SwapRequest, error) {
	var req *model.SwapRequest
	err := r.read(func(txn *memdb.Txn) error {
		found, err := firstSwap(txn, id)
		if err != nil {
			return fmt.Errorf("get swap request by id: %w", err)
		}
		if found != nil {
			req = copySwap(found)
		}
		return nil
	})
	return req, err
}

func (r *swapRequestRepository) FindPendingBySlot(ctx context.Context, slotID string) ([]*model.SwapRequest, error) {
	var pending []*model.SwapRequest
	err := r.read(func(txn *memdb.Txn) error {
		var err error
		pending, err = pendingBySlot(txn, slotID)
		if err != nil {
			return fmt.Errorf("find pending swap requests by slot: %w", err)
		}
		return nil
	})
	return pending, err
}

func (r *swapRequestRepository) ListForUser(ctx context.Context, userID string) ([]*model.SwapRequest, error) {
	var requests []*model.SwapRequest
	err := r.read(func(txn *memdb.Txn) error {
		seen := make(map[string]bool)
		for _, index := range []string{"initiator", "receiver"} {
			it, err := txn.Get(tableSwaps, index, userID)
			if err != nil {
				return fmt.Errorf("list swap requests for user: %w", err)
			}
			for obj := it.Next(); obj != nil; obj = it.Next() {
				req := obj.(*model.SwapRequest)
				if !seen[req.ID] {
					seen[req.ID] = true
					requests = append(requests, copySwap(req))
				}
			}
		}
		return nil
	})

	// Новые первыми
	slices.SortFunc(requests, func(a, b *model.SwapRequest) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return requests, err
}

func (r *swapRequestRepository) TransitionStatus(ctx context.Context, id string, from, to model.SwapStatus) (*model.SwapRequest, error) {
	var updated *model.SwapRequest
	err := r.write(func(txn *memdb.Txn) error {
		existing, err := firstSwap(txn, id)
		if err != nil {
			return fmt.Errorf("transition swap request: %w", err)
		}
		if existing == nil {
			return fmt.Errorf("transition swap request: %w", repository.ErrNotFound)
		}
		if existing.Status != from {
			return fmt.Errorf("transition swap request: %w", repository.ErrStatusMismatch)
		}

		updated = copySwap(existing)
		updated.Status = to
		updated.UpdatedAt = r.store.now()
		if err := txn.Insert(tableSwaps, updated); err != nil {
			return fmt.Errorf("transition swap request: %w", err)
		}
		updated = copySwap(updated)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}
