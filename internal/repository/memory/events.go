package memory

import (
	"context"
	"fmt"
	"slices"

	"github.com/Freeeeeet/slotswap/internal/model"
	"github.com/Freeeeeet/slotswap/internal/repository"
	"github.com/hashicorp/go-memdb"
)

type eventRepository struct {
	unit
}

// Objects stored in memdb are immutable: we always hand out and insert copies.
func copyEvent(e *model.Event) *model.Event {
	c := *e
	c.Owner = nil
	return &c
}

func firstEvent(txn *memdb.Txn, id string) (*model.Event, error) {
	raw, err := txn.First(tableEvents, "id", id)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, nil
	}
	return raw.(*model.Event), nil
}

func collectEvents(it memdb.ResultIterator, keep func(*model.Event) bool) []*model.Event {
	var events []*model.Event
	for obj := it.Next(); obj != nil; obj = it.Next() {
		e := obj.(*model.Event)
		if keep == nil || keep(e) {
			events = append(events, copyEvent(e))
		}
	}
	return events
}

func sortByStart(events []*model.Event) {
	slices.SortFunc(events, func(a, b *model.Event) int {
		if c := a.StartTime.Compare(b.StartTime); c != 0 {
			return c
		}
		if a.ID < b.ID {
			return -1
		}
		if a.ID > b.ID {
			return 1
		}
		return 0
	})
}

func (r *eventRepository) Create(ctx context.Context, event *model.Event) error {
	return r.write(func(txn *memdb.Txn) error {
		existing, err := firstEvent(txn, event.ID)
		if err != nil {
			return fmt.Errorf("create event: %w", err)
		}
		if existing != nil {
			return fmt.Errorf("create event: %w: id %s", repository.ErrDuplicate, event.ID)
		}

		now := r.store.now()
		event.CreatedAt = now
		event.UpdatedAt = now
		if err := txn.Insert(tableEvents, copyEvent(event)); err != nil {
			return fmt.Errorf("create event: %w", err)
		}
		return nil
	})
}

func (r *eventRepository) GetByID(ctx context.Context, id string) (*model.Event, error) {
	var event *model.Event
	err := r.read(func(txn *memdb.Txn) error {
		e, err := firstEvent(txn, id)
		if err != nil {
			return fmt.Errorf("get event by id: %w", err)
		}
		if e != nil {
			event = copyEvent(e)
		}
		return nil
	})
	return event, err
}

func (r *eventRepository) GetByOwner(ctx context.Context, id, ownerID string) (*model.Event, error) {
	event, err := r.GetByID(ctx, id)
	if err != nil || event == nil || event.UserID != ownerID {
		return nil, err
	}
	return event, nil
}

func (r *eventRepository) GetByIDs(ctx context.Context, ids []string) ([]*model.Event, error) {
	var events []*model.Event
	err := r.read(func(txn *memdb.Txn) error {
		for _, id := range ids {
			e, err := firstEvent(txn, id)
			if err != nil {
				return fmt.Errorf("get events by ids: %w", err)
			}
			if e != nil {
				events = append(events, copyEvent(e))
			}
		}
		return nil
	})
	sortByStart(events)
	return events, err
}

func (r *eventRepository) ListByOwner(ctx context.Context, ownerID string) ([]*model.Event, error) {
	var events []*model.Event
	err := r.read(func(txn *memdb.Txn) error {
		it, err := txn.Get(tableEvents, "owner", ownerID)
		if err != nil {
			return fmt.Errorf("list events by owner: %w", err)
		}
		events = collectEvents(it, nil)
		return nil
	})
	sortByStart(events)
	return events, err
}

func (r *eventRepository) ListSwappable(ctx context.Context, excludeOwnerID string) ([]*model.Event, error) {
	var events []*model.Event
	err := r.read(func(txn *memdb.Txn) error {
		it, err := txn.Get(tableEvents, "status", string(model.EventStatusSwappable))
		if err != nil {
			return fmt.Errorf("list swappable events: %w", err)
		}
		events = collectEvents(it, func(e *model.Event) bool {
			return e.UserID != excludeOwnerID
		})
		return nil
	})
	sortByStart(events)
	return events, err
}

// Lock is a no-op: memdb already serializes write transactions.
func (r *eventRepository) Lock(ctx context.Context, ids ...string) error {
	return nil
}

func (r *eventRepository) Update(ctx context.Context, event *model.Event) error {
	return r.write(func(txn *memdb.Txn) error {
		existing, err := firstEvent(txn, event.ID)
		if err != nil {
			return fmt.Errorf("update event: %w", err)
		}
		if existing == nil {
			return fmt.Errorf("update event: %w", repository.ErrNotFound)
		}

		updated := copyEvent(existing)
		updated.Title = event.Title
		updated.StartTime = event.StartTime
		updated.EndTime = event.EndTime
		updated.Status = event.Status
		updated.UserID = event.UserID
		updated.UpdatedAt = r.store.now()
		if err := txn.Insert(tableEvents, updated); err != nil {
			return fmt.Errorf("update event: %w", err)
		}

		event.UpdatedAt = updated.UpdatedAt
		return nil
	})
}

func (r *eventRepository) UpdateStatus(ctx context.Context, id string, status model.EventStatus) error {
	return r.write(func(txn *memdb.Txn) error {
		existing, err := firstEvent(txn, id)
		if err != nil {
			return fmt.Errorf("update event status: %w", err)
		}
		if existing == nil {
			return fmt.Errorf("update event status: %w", repository.ErrNotFound)
		}

		updated := copyEvent(existing)
		updated.Status = status
		updated.UpdatedAt = r.store.now()
		if err := txn.Insert(tableEvents, updated); err != nil {
			return fmt.Errorf("update event status: %w", err)
		}
		return nil
	})
}

func (r *eventRepository) Delete(ctx context.Context, id, ownerID string) error {
	return r.write(func(txn *memdb.Txn) error {
		existing, err := firstEvent(txn, id)
		if err != nil {
			return fmt.Errorf("delete event: %w", err)
		}
		if existing == nil || existing.UserID != ownerID {
			return fmt.Errorf("delete event: %w", repository.ErrNotFound)
		}
		if err := txn.Delete(tableEvents, existing); err != nil {
			return fmt.Errorf("delete event: %w", err)
		}
		return nil
	})
}
