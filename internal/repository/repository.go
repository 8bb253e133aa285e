package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/Freeeeeet/slotswap/internal/model"
)

// Ошибки хранилища, общие для всех реализаций
var (
	// ErrNotFound is returned by write methods when the target row is absent.
	// Read methods return nil, nil instead.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate signals a uniqueness violation, e.g. a second PENDING
	// swap request on the same slot.
	ErrDuplicate = errors.New("duplicate record")
	// ErrStatusMismatch is returned by compare-and-set status transitions.
	ErrStatusMismatch = errors.New("status mismatch")
	// ErrTransient means the transaction was aborted by the store
	// (serialization failure, deadlock) and the whole workflow may be retried.
	ErrTransient = errors.New("transient store failure")
)

// TimeoutAsTransient помечает истёкший дедлайн транзакции как ErrTransient.
// Other errors, context.Canceled included, are returned unchanged.
func TimeoutAsTransient(err error) error {
	if err == nil || errors.Is(err, ErrTransient) || !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrTransient, err)
}

// EventRepository хранит слоты пользователей
type EventRepository interface {
	Create(ctx context.Context, event *model.Event) error
	GetByID(ctx context.Context, id string) (*model.Event, error)
	GetByOwner(ctx context.Context, id, ownerID string) (*model.Event, error)
	GetByIDs(ctx context.Context, ids []string) ([]*model.Event, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*model.Event, error)
	ListSwappable(ctx context.Context, excludeOwnerID string) ([]*model.Event, error)
	// Lock acquires write locks on the given events in a stable order.
	// Outside a transaction it is a no-op.
	Lock(ctx context.Context, ids ...string) error
	// Update persists title, time window, status and owner of the event.
	Update(ctx context.Context, event *model.Event) error
	UpdateStatus(ctx context.Context, id string, status model.EventStatus) error
	Delete(ctx context.Context, id, ownerID string) error
}

// SwapRequestRepository хранит заявки на обмен
type SwapRequestRepository interface {
	Create(ctx context.Context, req *model.SwapRequest) error
	GetByID(ctx context.Context, id string) (*model.SwapRequest, error)
	FindPendingBySlot(ctx context.Context, slotID string) ([]*model.SwapRequest, error)
	ListForUser(ctx context.Context, userID string) ([]*model.SwapRequest, error)
	// TransitionStatus is a compare-and-set: it fails with ErrStatusMismatch
	// when the current status differs from `from`.
	TransitionStatus(ctx context.Context, id string, from, to model.SwapStatus) (*model.SwapRequest, error)
}

// UserRepository даёт доступ на чтение к пользователям сервиса авторизации
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByIDs(ctx context.Context, ids []string) ([]*model.User, error)
}

// Repositories is the set of collections bound to one unit of work.
type Repositories struct {
	Events EventRepository
	Swaps  SwapRequestRepository
	Users  UserRepository
}

// Store is the persistence collaborator. Repositories reads committed state;
// InTx runs fn atomically: either all of its writes land or none do.
type Store interface {
	Repositories() Repositories
	InTx(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error
	Ping(ctx context.Context) error
}
