package handlers

import (
	"context"
	"time"

	"github.com/Freeeeeet/slotswap/internal/model"
	"github.com/Freeeeeet/slotswap/internal/service"
	"go.uber.org/zap"
)

// Pinger проверяет доступность хранилища
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handlers содержит все зависимости HTTP обработчиков
type Handlers struct {
	eventService *service.EventService
	swapService  *service.SwapService
	queryService *service.QueryService
	store        Pinger
	logger       *zap.Logger
}

// NewHandlers создаёт набор обработчиков
func NewHandlers(
	eventService *service.EventService,
	swapService *service.SwapService,
	queryService *service.QueryService,
	store Pinger,
	logger *zap.Logger,
) *Handlers {
	return &Handlers{
		eventService: eventService,
		swapService:  swapService,
		queryService: queryService,
		store:        store,
		logger:       logger,
	}
}

type createEventRequest struct {
	Title     string            `json:"title"`
	StartTime time.Time         `json:"start_time"`
	EndTime   time.Time         `json:"end_time"`
	Status    model.EventStatus `json:"status,omitempty"`
}

// updateEventRequest: отсутствующее поле не меняется
type updateEventRequest struct {
	Title     *string            `json:"title"`
	StartTime *time.Time         `json:"start_time"`
	EndTime   *time.Time         `json:"end_time"`
	Status    *model.EventStatus `json:"status"`
}

type swapRequestRequest struct {
	MySlotID    string `json:"my_slot_id" binding:"required"`
	TheirSlotID string `json:"their_slot_id" binding:"required"`
}

type swapResponseRequest struct {
	Accepted *bool `json:"accepted" binding:"required"`
}

type errorResponse struct {
	Code  string `json:"code"`
	Error string `json:"error"`
}
