package service

import (
	"context"

	"github.com/Freeeeeet/slotswap/internal/model"
)

// Notifier сообщает участникам об изменениях заявок. It is called after
// commit; an error never changes the outcome of the workflow.
type Notifier interface {
	SwapRequested(ctx context.Context, req *model.SwapRequest) error
	SwapResolved(ctx context.Context, req *model.SwapRequest) error
}

// NopNotifier ничего не отправляет
type NopNotifier struct{}

func (NopNotifier) SwapRequested(context.Context, *model.SwapRequest) error { return nil }

func (NopNotifier) SwapResolved(context.Context, *model.SwapRequest) error { return nil }
