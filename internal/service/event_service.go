package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Freeeeeet/slotswap/internal/model"
	"github.com/Freeeeeet/slotswap/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	minTitleLength = 3
	maxTitleLength = 100
)

// CreateEventInput is the body of a new slot. Status is optional and
// defaults to BUSY.
type CreateEventInput struct {
	Title     string
	StartTime time.Time
	EndTime   time.Time
	Status    model.EventStatus
}

// EventPatch holds the fields to change; nil means "keep".
type EventPatch struct {
	Title     *string
	StartTime *time.Time
	EndTime   *time.Time
	Status    *model.EventStatus
}

func (p EventPatch) empty() bool {
	return p.Title == nil && p.StartTime == nil && p.EndTime == nil && p.Status == nil
}

type EventService struct {
	store  repository.Store
	logger *zap.Logger
}

func NewEventService(store repository.Store, logger *zap.Logger) *EventService {
	return &EventService{
		store:  store,
		logger: logger,
	}
}

func normalizeTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	n := utf8.RuneCountInString(title)
	if n < minTitleLength || n > maxTitleLength {
		return "", fmt.Errorf("%w: title must be between %d and %d characters", ErrInvalidInput, minTitleLength, maxTitleLength)
	}
	return title, nil
}

func checkWindow(start, end time.Time) error {
	if start.IsZero() || end.IsZero() {
		return fmt.Errorf("%w: start and end time are required", ErrInvalidInput)
	}
	if !start.Before(end) {
		return fmt.Errorf("%w: end time must be after start time", ErrInvalidInput)
	}
	return nil
}

func checkOwnerStatus(status model.EventStatus) error {
	if !status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidInput, status)
	}
	if !status.OwnerSettable() {
		return fmt.Errorf("%w: status must be %s or %s", ErrInvalidInput, model.EventStatusBusy, model.EventStatusSwappable)
	}
	return nil
}

// Create создаёт слот пользователя
func (s *EventService) Create(ctx context.Context, ownerID string, in CreateEventInput) (*model.Event, error) {
	if err := requireCaller(ownerID); err != nil {
		return nil, err
	}

	title, err := normalizeTitle(in.Title)
	if err != nil {
		return nil, err
	}
	if err := checkWindow(in.StartTime, in.EndTime); err != nil {
		return nil, err
	}

	status := in.Status
	if status == "" {
		status = model.EventStatusBusy
	}
	if err := checkOwnerStatus(status); err != nil {
		return nil, err
	}

	event := &model.Event{
		ID:        uuid.NewString(),
		UserID:    ownerID,
		Title:     title,
		StartTime: in.StartTime.UTC(),
		EndTime:   in.EndTime.UTC(),
		Status:    status,
	}

	if err := s.store.Repositories().Events.Create(ctx, event); err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}

	s.logger.Info("Event created",
		zap.String("event_id", event.ID),
		zap.String("user_id", ownerID),
		zap.String("status", string(event.Status)),
	)

	return event, nil
}

// Get получает слот владельца. Someone else's slot is reported as
// NotFound so that its existence is not revealed.
func (s *EventService) Get(ctx context.Context, ownerID, eventID string) (*model.Event, error) {
	if err := requireCaller(ownerID); err != nil {
		return nil, err
	}
	eventID, err := parseID("event", eventID)
	if err != nil {
		return nil, err
	}

	event, err := s.store.Repositories().Events.GetByOwner(ctx, eventID, ownerID)
	if err != nil {
		return nil, fmt.Errorf("get event: %w", err)
	}
	if event == nil {
		return nil, fmt.Errorf("%w: event not found", ErrNotFound)
	}

	return event, nil
}

// Update применяет patch к слоту. While the slot takes part in a pending
// swap nothing may change, including its status.
func (s *EventService) Update(ctx context.Context, ownerID, eventID string, patch EventPatch) (*model.Event, error) {
	if err := requireCaller(ownerID); err != nil {
		return nil, err
	}
	eventID, err := parseID("event", eventID)
	if err != nil {
		return nil, err
	}
	if patch.empty() {
		return s.Get(ctx, ownerID, eventID)
	}

	var updated *model.Event
	err = s.store.InTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		event, err := repos.Events.GetByOwner(ctx, eventID, ownerID)
		if err != nil {
			return fmt.Errorf("get event: %w", err)
		}
		if event == nil {
			return fmt.Errorf("%w: event not found", ErrNotFound)
		}

		if event.IsSwapPending() {
			return fmt.Errorf("%w: cannot modify event with pending swap request", ErrConflict)
		}

		if patch.Title != nil {
			title, err := normalizeTitle(*patch.Title)
			if err != nil {
				return err
			}
			event.Title = title
		}
		// Недостающую границу берём из текущего значения
		if patch.StartTime != nil {
			event.StartTime = patch.StartTime.UTC()
		}
		if patch.EndTime != nil {
			event.EndTime = patch.EndTime.UTC()
		}
		if err := checkWindow(event.StartTime, event.EndTime); err != nil {
			return err
		}
		if patch.Status != nil {
			if err := checkOwnerStatus(*patch.Status); err != nil {
				return err
			}
			event.Status = *patch.Status
		}

		if err := repos.Events.Update(ctx, event); err != nil {
			return fmt.Errorf("update event: %w", err)
		}

		updated = event
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Event updated",
		zap.String("event_id", updated.ID),
		zap.String("user_id", ownerID),
		zap.String("status", string(updated.Status)),
	)

	return updated, nil
}

// Delete удаляет слот, если он не участвует в обмене
func (s *EventService) Delete(ctx context.Context, ownerID, eventID string) error {
	if err := requireCaller(ownerID); err != nil {
		return err
	}
	eventID, err := parseID("event", eventID)
	if err != nil {
		return err
	}

	err = s.store.InTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		event, err := repos.Events.GetByOwner(ctx, eventID, ownerID)
		if err != nil {
			return fmt.Errorf("get event: %w", err)
		}
		if event == nil {
			return fmt.Errorf("%w: event not found", ErrNotFound)
		}

		if event.IsSwapPending() {
			return fmt.Errorf("%w: cannot delete event with pending swap request", ErrConflict)
		}

		if err := repos.Events.Delete(ctx, eventID, ownerID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("%w: event not found", ErrNotFound)
			}
			return fmt.Errorf("delete event: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("Event deleted",
		zap.String("event_id", eventID),
		zap.String("user_id", ownerID),
	)

	return nil
}
