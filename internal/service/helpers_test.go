package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Freeeeeet/slotswap/internal/model"
	"github.com/Freeeeeet/slotswap/internal/repository/memory"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var baseTime = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

type fixture struct {
	store    *memory.Store
	events   *EventService
	swaps    *SwapService
	queries  *QueryService
	notifier *recordingNotifier
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store, err := memory.NewStore()
	require.NoError(t, err)

	logger := zap.NewNop()
	notifier := &recordingNotifier{}
	return &fixture{
		store:    store,
		events:   NewEventService(store, logger),
		swaps:    NewSwapService(store, notifier, logger),
		queries:  NewQueryService(store, logger),
		notifier: notifier,
	}
}

func (f *fixture) user(t *testing.T, name string) string {
	t.Helper()
	id := uuid.NewString()
	require.NoError(t, f.store.PutUser(&model.User{ID: id, Name: name, Email: name + "@example.com"}))
	return id
}

func (f *fixture) event(t *testing.T, ownerID, title string, hour int, status model.EventStatus) *model.Event {
	t.Helper()
	start := baseTime.Add(time.Duration(hour) * time.Hour)
	e, err := f.events.Create(context.Background(), ownerID, CreateEventInput{
		Title:     title,
		StartTime: start,
		EndTime:   start.Add(time.Hour),
		Status:    status,
	})
	require.NoError(t, err)
	return e
}

func (f *fixture) load(t *testing.T, id string) *model.Event {
	t.Helper()
	e, err := f.store.Repositories().Events.GetByID(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, e)
	return e
}

type recordingNotifier struct {
	mu        sync.Mutex
	requested []*model.SwapRequest
	resolved  []*model.SwapRequest
}

func (n *recordingNotifier) SwapRequested(_ context.Context, req *model.SwapRequest) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.requested = append(n.requested, req)
	return nil
}

func (n *recordingNotifier) SwapResolved(_ context.Context, req *model.SwapRequest) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.resolved = append(n.resolved, req)
	return nil
}
