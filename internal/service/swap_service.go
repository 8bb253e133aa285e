package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Freeeeeet/slotswap/internal/model"
	"github.com/Freeeeeet/slotswap/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type SwapService struct {
	store    repository.Store
	notifier Notifier
	logger   *zap.Logger
}

func NewSwapService(store repository.Store, notifier Notifier, logger *zap.Logger) *SwapService {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &SwapService{
		store:    store,
		notifier: notifier,
		logger:   logger,
	}
}

// checkOfferable проверяет, что слот можно предложить к обмену
func checkOfferable(event *model.Event, which string) error {
	switch event.Status {
	case model.EventStatusSwappable:
		return nil
	case model.EventStatusSwapPending:
		return fmt.Errorf("%w: %s slot already has a pending swap request", ErrConflict, which)
	default:
		return fmt.Errorf("%w: %s slot is not swappable", ErrInvalidState, which)
	}
}

// InitiateSwap создаёт заявку на обмен своего слота на чужой
func (s *SwapService) InitiateSwap(ctx context.Context, initiatorID, mySlotID, theirSlotID string) (*model.SwapRequest, error) {
	if err := requireCaller(initiatorID); err != nil {
		return nil, err
	}
	mySlotID, err := parseID("slot", mySlotID)
	if err != nil {
		return nil, err
	}
	theirSlotID, err = parseID("slot", theirSlotID)
	if err != nil {
		return nil, err
	}
	if mySlotID == theirSlotID {
		return nil, fmt.Errorf("%w: cannot swap a slot with itself", ErrInvalidInput)
	}

	var req *model.SwapRequest
	err = s.store.InTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		// Блокируем оба слота в фиксированном порядке
		if err := repos.Events.Lock(ctx, mySlotID, theirSlotID); err != nil {
			return fmt.Errorf("lock events: %w", err)
		}

		mySlot, err := repos.Events.GetByOwner(ctx, mySlotID, initiatorID)
		if err != nil {
			return fmt.Errorf("get my slot: %w", err)
		}
		if mySlot == nil {
			return fmt.Errorf("%w: your slot not found", ErrNotFound)
		}
		if err := checkOfferable(mySlot, "your"); err != nil {
			return err
		}

		theirSlot, err := repos.Events.GetByID(ctx, theirSlotID)
		if err != nil {
			return fmt.Errorf("get their slot: %w", err)
		}
		if theirSlot == nil {
			return fmt.Errorf("%w: requested slot not found", ErrNotFound)
		}
		if theirSlot.UserID == initiatorID {
			return fmt.Errorf("%w: cannot swap with your own slot", ErrInvalidInput)
		}
		if err := checkOfferable(theirSlot, "requested"); err != nil {
			return err
		}

		// Проверяем, что по слотам нет активных заявок
		for _, slotID := range []string{mySlotID, theirSlotID} {
			pending, err := repos.Swaps.FindPendingBySlot(ctx, slotID)
			if err != nil {
				return fmt.Errorf("find pending swap requests: %w", err)
			}
			if len(pending) > 0 {
				return fmt.Errorf("%w: one or both slots already have pending swap requests", ErrConflict)
			}
		}

		req = &model.SwapRequest{
			ID:              uuid.NewString(),
			InitiatorID:     initiatorID,
			ReceiverID:      theirSlot.UserID,
			InitiatorSlotID: mySlotID,
			ReceiverSlotID:  theirSlotID,
			Status:          model.SwapStatusPending,
		}
		if err := repos.Swaps.Create(ctx, req); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return fmt.Errorf("%w: one or both slots already have pending swap requests", ErrConflict)
			}
			return fmt.Errorf("create swap request: %w", err)
		}

		for _, slot := range []*model.Event{mySlot, theirSlot} {
			if err := repos.Events.UpdateStatus(ctx, slot.ID, model.EventStatusSwapPending); err != nil {
				return fmt.Errorf("mark slot pending: %w", err)
			}
			slot.Status = model.EventStatusSwapPending
		}

		req.InitiatorSlot = mySlot
		req.ReceiverSlot = theirSlot
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Swap requested",
		zap.String("request_id", req.ID),
		zap.String("initiator_id", req.InitiatorID),
		zap.String("receiver_id", req.ReceiverID),
		zap.String("initiator_slot_id", req.InitiatorSlotID),
		zap.String("receiver_slot_id", req.ReceiverSlotID),
	)

	if err := s.notifier.SwapRequested(ctx, req); err != nil {
		s.logger.Warn("Failed to notify about swap request",
			zap.String("request_id", req.ID),
			zap.Error(err),
		)
	}

	return req, nil
}

// RespondToSwap принимает или отклоняет заявку. Only the receiver may
// respond and only while the request is PENDING.
func (s *SwapService) RespondToSwap(ctx context.Context, responderID, requestID string, accept bool) (*model.SwapRequest, error) {
	if err := requireCaller(responderID); err != nil {
		return nil, err
	}
	requestID, err := parseID("swap request", requestID)
	if err != nil {
		return nil, err
	}

	var updated *model.SwapRequest
	err = s.store.InTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		req, err := repos.Swaps.GetByID(ctx, requestID)
		if err != nil {
			return fmt.Errorf("get swap request: %w", err)
		}
		if req == nil {
			return fmt.Errorf("%w: swap request not found", ErrNotFound)
		}
		if req.ReceiverID != responderID {
			return fmt.Errorf("%w: only the receiver can respond to this swap request", ErrForbidden)
		}
		if !req.IsPending() {
			return fmt.Errorf("%w: swap request is already %s", ErrInvalidState, strings.ToLower(string(req.Status)))
		}

		if err := repos.Events.Lock(ctx, req.SlotIDs()...); err != nil {
			return fmt.Errorf("lock events: %w", err)
		}

		initiatorSlot, err := repos.Events.GetByID(ctx, req.InitiatorSlotID)
		if err != nil {
			return fmt.Errorf("get initiator slot: %w", err)
		}
		receiverSlot, err := repos.Events.GetByID(ctx, req.ReceiverSlotID)
		if err != nil {
			return fmt.Errorf("get receiver slot: %w", err)
		}

		// Слоты должны быть на месте и принадлежать прежним владельцам
		if err := checkSwapSlot(initiatorSlot, req.InitiatorID); err != nil {
			return err
		}
		if err := checkSwapSlot(receiverSlot, req.ReceiverID); err != nil {
			return err
		}

		to := model.SwapStatusRejected
		if accept {
			to = model.SwapStatusAccepted
		}
		updated, err = repos.Swaps.TransitionStatus(ctx, req.ID, model.SwapStatusPending, to)
		if err != nil {
			if errors.Is(err, repository.ErrStatusMismatch) {
				return fmt.Errorf("%w: swap request was responded to concurrently", ErrConflict)
			}
			return fmt.Errorf("transition swap request: %w", err)
		}

		if accept {
			// Меняем владельцев местами
			initiatorSlot.UserID, receiverSlot.UserID = req.ReceiverID, req.InitiatorID
			for _, slot := range []*model.Event{initiatorSlot, receiverSlot} {
				slot.Status = model.EventStatusBusy
				if err := repos.Events.Update(ctx, slot); err != nil {
					return fmt.Errorf("exchange slot owner: %w", err)
				}
			}
		} else {
			for _, slot := range []*model.Event{initiatorSlot, receiverSlot} {
				if err := repos.Events.UpdateStatus(ctx, slot.ID, model.EventStatusSwappable); err != nil {
					return fmt.Errorf("release slot: %w", err)
				}
				slot.Status = model.EventStatusSwappable
			}
		}

		updated.InitiatorSlot = initiatorSlot
		updated.ReceiverSlot = receiverSlot
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Swap resolved",
		zap.String("request_id", updated.ID),
		zap.String("status", string(updated.Status)),
		zap.String("initiator_id", updated.InitiatorID),
		zap.String("receiver_id", updated.ReceiverID),
	)

	if err := s.notifier.SwapResolved(ctx, updated); err != nil {
		s.logger.Warn("Failed to notify about swap response",
			zap.String("request_id", updated.ID),
			zap.Error(err),
		)
	}

	return updated, nil
}

func checkSwapSlot(slot *model.Event, ownerID string) error {
	if slot == nil {
		return fmt.Errorf("%w: slot of this swap request no longer exists", ErrInvalidState)
	}
	if slot.UserID != ownerID || !slot.IsSwapPending() {
		return fmt.Errorf("%w: slot of this swap request has changed", ErrInvalidState)
	}
	return nil
}
