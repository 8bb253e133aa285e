package service

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/slotswap/internal/model"
	"github.com/Freeeeeet/slotswap/internal/repository"
	"go.uber.org/zap"
)

// QueryService отвечает на запросы чтения. Related documents are joined
// here explicitly rather than by the store.
type QueryService struct {
	store  repository.Store
	logger *zap.Logger
}

func NewQueryService(store repository.Store, logger *zap.Logger) *QueryService {
	return &QueryService{
		store:  store,
		logger: logger,
	}
}

// ListOwnEvents возвращает слоты пользователя по времени начала
func (s *QueryService) ListOwnEvents(ctx context.Context, userID string) ([]*model.Event, error) {
	if err := requireCaller(userID); err != nil {
		return nil, err
	}

	events, err := s.store.Repositories().Events.ListByOwner(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list own events: %w", err)
	}
	return nonNil(events), nil
}

// ListSwappableSlots возвращает чужие слоты, доступные для обмена
func (s *QueryService) ListSwappableSlots(ctx context.Context, userID string) ([]*model.Event, error) {
	if err := requireCaller(userID); err != nil {
		return nil, err
	}

	repos := s.store.Repositories()
	events, err := repos.Events.ListSwappable(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list swappable slots: %w", err)
	}

	ownerIDs := make([]string, 0, len(events))
	for _, e := range events {
		ownerIDs = append(ownerIDs, e.UserID)
	}
	owners, err := s.usersByID(ctx, repos, ownerIDs)
	if err != nil {
		return nil, err
	}
	for _, e := range events {
		e.Owner = owners[e.UserID]
	}

	return nonNil(events), nil
}

// ListSwapRequests возвращает входящие и исходящие заявки, новые первыми
func (s *QueryService) ListSwapRequests(ctx context.Context, userID string) ([]*model.SwapRequest, error) {
	if err := requireCaller(userID); err != nil {
		return nil, err
	}

	repos := s.store.Repositories()
	requests, err := repos.Swaps.ListForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list swap requests: %w", err)
	}
	if err := s.populate(ctx, repos, requests); err != nil {
		return nil, err
	}

	if requests == nil {
		requests = []*model.SwapRequest{}
	}
	return requests, nil
}

// GetSwapRequest возвращает заявку одному из её участников
func (s *QueryService) GetSwapRequest(ctx context.Context, userID, requestID string) (*model.SwapRequest, error) {
	if err := requireCaller(userID); err != nil {
		return nil, err
	}
	requestID, err := parseID("swap request", requestID)
	if err != nil {
		return nil, err
	}

	repos := s.store.Repositories()
	req, err := repos.Swaps.GetByID(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("get swap request: %w", err)
	}
	if req == nil || !req.Involves(userID) {
		return nil, fmt.Errorf("%w: swap request not found", ErrNotFound)
	}

	if err := s.populate(ctx, repos, []*model.SwapRequest{req}); err != nil {
		return nil, err
	}
	return req, nil
}

// populate подставляет участников и слоты в заявки
func (s *QueryService) populate(ctx context.Context, repos repository.Repositories, requests []*model.SwapRequest) error {
	if len(requests) == 0 {
		return nil
	}

	var userIDs, slotIDs []string
	for _, req := range requests {
		userIDs = append(userIDs, req.InitiatorID, req.ReceiverID)
		slotIDs = append(slotIDs, req.SlotIDs()...)
	}

	users, err := s.usersByID(ctx, repos, userIDs)
	if err != nil {
		return err
	}

	events, err := repos.Events.GetByIDs(ctx, dedupe(slotIDs))
	if err != nil {
		return fmt.Errorf("get swap slots: %w", err)
	}
	slots := make(map[string]*model.Event, len(events))
	for _, e := range events {
		slots[e.ID] = e
	}

	// Удалённые после ответа слоты остаются nil
	for _, req := range requests {
		req.Initiator = users[req.InitiatorID]
		req.Receiver = users[req.ReceiverID]
		req.InitiatorSlot = slots[req.InitiatorSlotID]
		req.ReceiverSlot = slots[req.ReceiverSlotID]
	}
	return nil
}

func (s *QueryService) usersByID(ctx context.Context, repos repository.Repositories, ids []string) (map[string]*model.User, error) {
	ids = dedupe(ids)
	result := make(map[string]*model.User, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	users, err := repos.Users.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("get users: %w", err)
	}
	for _, u := range users {
		result[u.ID] = u
	}

	if len(users) < len(ids) {
		s.logger.Debug("Some users are unknown to the store",
			zap.Int("requested", len(ids)),
			zap.Int("found", len(users)),
		)
	}
	return result, nil
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

func nonNil(events []*model.Event) []*model.Event {
	if events == nil {
		return []*model.Event{}
	}
	return events
}
