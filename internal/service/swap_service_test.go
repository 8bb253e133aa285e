package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/Freeeeeet/slotswap/internal/model"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type swapFixture struct {
	*fixture
	alice, bob string
	a, b       *model.Event
}

func newSwapFixture(t *testing.T) *swapFixture {
	t.Helper()
	f := newFixture(t)
	alice := f.user(t, "alice")
	bob := f.user(t, "bob")
	return &swapFixture{
		fixture: f,
		alice:   alice,
		bob:     bob,
		a:       f.event(t, alice, "Alice's slot", 0, model.EventStatusSwappable),
		b:       f.event(t, bob, "Bob's slot", 2, model.EventStatusSwappable),
	}
}

func (f *swapFixture) countRequests(t *testing.T) int {
	t.Helper()
	ctx := context.Background()
	seen := make(map[string]bool)
	for _, u := range []string{f.alice, f.bob} {
		reqs, err := f.store.Repositories().Swaps.ListForUser(ctx, u)
		require.NoError(t, err)
		for _, r := range reqs {
			seen[r.ID] = true
		}
	}
	return len(seen)
}

func TestInitiateSwap(t *testing.T) {
	f := newSwapFixture(t)

	req, err := f.swaps.InitiateSwap(context.Background(), f.alice, f.a.ID, f.b.ID)
	require.NoError(t, err)

	assert.Equal(t, model.SwapStatusPending, req.Status)
	assert.Equal(t, f.alice, req.InitiatorID)
	assert.Equal(t, f.bob, req.ReceiverID)
	assert.Equal(t, f.a.ID, req.InitiatorSlotID)
	assert.Equal(t, f.b.ID, req.ReceiverSlotID)
	require.NotNil(t, req.InitiatorSlot)
	assert.Equal(t, model.EventStatusSwapPending, req.InitiatorSlot.Status)

	assert.Equal(t, model.EventStatusSwapPending, f.load(t, f.a.ID).Status)
	assert.Equal(t, model.EventStatusSwapPending, f.load(t, f.b.ID).Status)

	require.Len(t, f.notifier.requested, 1)
	assert.Equal(t, req.ID, f.notifier.requested[0].ID)
}

func TestInitiateSwap_Failures(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name  string
		setup func(t *testing.T, f *swapFixture) (initiator, mine, theirs string)
		want  error
	}{
		{
			name: "malformed id",
			setup: func(t *testing.T, f *swapFixture) (string, string, string) {
				return f.alice, "abc", f.b.ID
			},
			want: ErrInvalidInput,
		},
		{
			name: "same slot",
			setup: func(t *testing.T, f *swapFixture) (string, string, string) {
				return f.alice, f.a.ID, f.a.ID
			},
			want: ErrInvalidInput,
		},
		{
			name: "my slot missing",
			setup: func(t *testing.T, f *swapFixture) (string, string, string) {
				return f.alice, uuid.NewString(), f.b.ID
			},
			want: ErrNotFound,
		},
		{
			name: "my slot belongs to someone else",
			setup: func(t *testing.T, f *swapFixture) (string, string, string) {
				c := f.event(t, f.bob, "Bob's other slot", 4, model.EventStatusSwappable)
				return f.alice, c.ID, f.b.ID
			},
			want: ErrNotFound,
		},
		{
			name: "their slot missing",
			setup: func(t *testing.T, f *swapFixture) (string, string, string) {
				return f.alice, f.a.ID, uuid.NewString()
			},
			want: ErrNotFound,
		},
		{
			name: "their slot is mine",
			setup: func(t *testing.T, f *swapFixture) (string, string, string) {
				c := f.event(t, f.alice, "Alice's other slot", 4, model.EventStatusSwappable)
				return f.alice, f.a.ID, c.ID
			},
			want: ErrInvalidInput,
		},
		{
			name: "my slot busy",
			setup: func(t *testing.T, f *swapFixture) (string, string, string) {
				c := f.event(t, f.alice, "Alice's busy slot", 4, model.EventStatusBusy)
				return f.alice, c.ID, f.b.ID
			},
			want: ErrInvalidState,
		},
		{
			name: "their slot busy",
			setup: func(t *testing.T, f *swapFixture) (string, string, string) {
				c := f.event(t, f.bob, "Bob's busy slot", 4, model.EventStatusBusy)
				return f.alice, f.a.ID, c.ID
			},
			want: ErrInvalidState,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newSwapFixture(t)
			initiator, mine, theirs := tt.setup(t, f)

			_, err := f.swaps.InitiateSwap(ctx, initiator, mine, theirs)
			assert.ErrorIs(t, err, tt.want)

			// Ни одной записи при ошибке
			assert.Zero(t, f.countRequests(t))
			assert.Equal(t, model.EventStatusSwappable, f.load(t, f.a.ID).Status)
			assert.Equal(t, model.EventStatusSwappable, f.load(t, f.b.ID).Status)
			assert.Empty(t, f.notifier.requested)
		})
	}
}

func TestInitiateSwap_SlotAlreadyPending(t *testing.T) {
	f := newSwapFixture(t)
	ctx := context.Background()
	carol := f.user(t, "carol")
	c := f.event(t, carol, "Carol's slot", 4, model.EventStatusSwappable)

	_, err := f.swaps.InitiateSwap(ctx, f.alice, f.a.ID, f.b.ID)
	require.NoError(t, err)

	_, err = f.swaps.InitiateSwap(ctx, carol, c.ID, f.b.ID)
	assert.ErrorIs(t, err, ErrConflict)
	assert.Equal(t, model.EventStatusSwappable, f.load(t, c.ID).Status)
}

func TestInitiateSwap_ExpiredDeadline(t *testing.T) {
	f := newSwapFixture(t)
	ctx, cancel := context.WithDeadline(context.Background(), baseTime)
	defer cancel()

	_, err := f.swaps.InitiateSwap(ctx, f.alice, f.a.ID, f.b.ID)
	require.ErrorIs(t, err, ErrTransient)
	assert.True(t, IsDomainError(err))

	assert.Zero(t, f.countRequests(t))
	assert.Equal(t, model.EventStatusSwappable, f.load(t, f.a.ID).Status)
	assert.Equal(t, model.EventStatusSwappable, f.load(t, f.b.ID).Status)
	assert.Empty(t, f.notifier.requested)
}

func TestInitiateSwap_Concurrent(t *testing.T) {
	f := newSwapFixture(t)
	ctx := context.Background()
	carol := f.user(t, "carol")
	c := f.event(t, carol, "Carol's slot", 4, model.EventStatusSwappable)

	type attempt struct{ initiator, mine string }
	attempts := []attempt{{f.alice, f.a.ID}, {carol, c.ID}}

	errs := make([]error, len(attempts))
	var wg sync.WaitGroup
	for i, at := range attempts {
		wg.Add(1)
		go func(i int, at attempt) {
			defer wg.Done()
			_, errs[i] = f.swaps.InitiateSwap(ctx, at.initiator, at.mine, f.b.ID)
		}(i, at)
	}
	wg.Wait()

	var ok, conflicts int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrConflict):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, conflicts)

	pending, err := f.store.Repositories().Swaps.FindPendingBySlot(ctx, f.b.ID)
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}

func TestRespondToSwap_Accept(t *testing.T) {
	f := newSwapFixture(t)
	ctx := context.Background()

	req, err := f.swaps.InitiateSwap(ctx, f.alice, f.a.ID, f.b.ID)
	require.NoError(t, err)

	resp, err := f.swaps.RespondToSwap(ctx, f.bob, req.ID, true)
	require.NoError(t, err)
	assert.Equal(t, model.SwapStatusAccepted, resp.Status)

	a := f.load(t, f.a.ID)
	b := f.load(t, f.b.ID)
	assert.Equal(t, f.bob, a.UserID)
	assert.Equal(t, f.alice, b.UserID)
	assert.Equal(t, model.EventStatusBusy, a.Status)
	assert.Equal(t, model.EventStatusBusy, b.Status)

	// Время и название не меняются
	assert.Equal(t, f.a.Title, a.Title)
	assert.True(t, f.a.StartTime.Equal(a.StartTime))

	require.Len(t, f.notifier.resolved, 1)
	assert.Equal(t, model.SwapStatusAccepted, f.notifier.resolved[0].Status)
}

func TestRespondToSwap_Reject(t *testing.T) {
	f := newSwapFixture(t)
	ctx := context.Background()

	req, err := f.swaps.InitiateSwap(ctx, f.alice, f.a.ID, f.b.ID)
	require.NoError(t, err)

	resp, err := f.swaps.RespondToSwap(ctx, f.bob, req.ID, false)
	require.NoError(t, err)
	assert.Equal(t, model.SwapStatusRejected, resp.Status)

	a := f.load(t, f.a.ID)
	b := f.load(t, f.b.ID)
	assert.Equal(t, f.alice, a.UserID)
	assert.Equal(t, f.bob, b.UserID)
	assert.Equal(t, model.EventStatusSwappable, a.Status)
	assert.Equal(t, model.EventStatusSwappable, b.Status)

	// Слот снова можно удалить или предложить
	require.NoError(t, f.events.Delete(ctx, f.alice, f.a.ID))
}

func TestRespondToSwap_Failures(t *testing.T) {
	f := newSwapFixture(t)
	ctx := context.Background()

	req, err := f.swaps.InitiateSwap(ctx, f.alice, f.a.ID, f.b.ID)
	require.NoError(t, err)

	_, err = f.swaps.RespondToSwap(ctx, f.bob, "nope", true)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = f.swaps.RespondToSwap(ctx, f.bob, uuid.NewString(), true)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.swaps.RespondToSwap(ctx, f.alice, req.ID, true)
	assert.ErrorIs(t, err, ErrForbidden)

	stored, err := f.store.Repositories().Swaps.GetByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SwapStatusPending, stored.Status)
	assert.Equal(t, f.alice, f.load(t, f.a.ID).UserID)
}

func TestRespondToSwap_Irreversible(t *testing.T) {
	f := newSwapFixture(t)
	ctx := context.Background()

	req, err := f.swaps.InitiateSwap(ctx, f.alice, f.a.ID, f.b.ID)
	require.NoError(t, err)

	_, err = f.swaps.RespondToSwap(ctx, f.bob, req.ID, false)
	require.NoError(t, err)

	_, err = f.swaps.RespondToSwap(ctx, f.bob, req.ID, true)
	require.ErrorIs(t, err, ErrInvalidState)
	assert.Contains(t, err.Error(), "already rejected")

	assert.Equal(t, f.alice, f.load(t, f.a.ID).UserID)
	assert.Equal(t, model.EventStatusSwappable, f.load(t, f.b.ID).Status)
}

func TestRespondToSwap_ConcurrentResponses(t *testing.T) {
	f := newSwapFixture(t)
	ctx := context.Background()

	req, err := f.swaps.InitiateSwap(ctx, f.alice, f.a.ID, f.b.ID)
	require.NoError(t, err)

	decisions := []bool{true, false}
	errs := make([]error, len(decisions))
	var wg sync.WaitGroup
	for i, accept := range decisions {
		wg.Add(1)
		go func(i int, accept bool) {
			defer wg.Done()
			_, errs[i] = f.swaps.RespondToSwap(ctx, f.bob, req.ID, accept)
		}(i, accept)
	}
	wg.Wait()

	var ok int
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.True(t, errors.Is(err, ErrInvalidState) || errors.Is(err, ErrConflict), "unexpected error: %v", err)
	}
	assert.Equal(t, 1, ok)

	stored, err := f.store.Repositories().Swaps.GetByID(ctx, req.ID)
	require.NoError(t, err)
	a := f.load(t, f.a.ID)
	switch stored.Status {
	case model.SwapStatusAccepted:
		assert.Equal(t, f.bob, a.UserID)
		assert.Equal(t, model.EventStatusBusy, a.Status)
	case model.SwapStatusRejected:
		assert.Equal(t, f.alice, a.UserID)
		assert.Equal(t, model.EventStatusSwappable, a.Status)
	default:
		t.Fatalf("request left in %s", stored.Status)
	}
}

func TestRespondToSwap_SlotChangedUnderneath(t *testing.T) {
	f := newSwapFixture(t)
	ctx := context.Background()

	req, err := f.swaps.InitiateSwap(ctx, f.alice, f.a.ID, f.b.ID)
	require.NoError(t, err)

	// Обходим сервис: слот исчез в обход протокола
	require.NoError(t, f.store.Repositories().Events.Delete(ctx, f.a.ID, f.alice))

	_, err = f.swaps.RespondToSwap(ctx, f.bob, req.ID, true)
	assert.ErrorIs(t, err, ErrInvalidState)

	stored, err := f.store.Repositories().Swaps.GetByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SwapStatusPending, stored.Status)
	assert.Equal(t, f.bob, f.load(t, f.b.ID).UserID)
}

func TestSwap_ChainAfterAccept(t *testing.T) {
	f := newSwapFixture(t)
	ctx := context.Background()
	carol := f.user(t, "carol")
	c := f.event(t, carol, "Carol's slot", 4, model.EventStatusSwappable)

	req, err := f.swaps.InitiateSwap(ctx, f.alice, f.a.ID, f.b.ID)
	require.NoError(t, err)
	_, err = f.swaps.RespondToSwap(ctx, f.bob, req.ID, true)
	require.NoError(t, err)

	// Bob теперь владеет слотом A и может предложить его дальше
	_, err = f.events.Update(ctx, f.bob, f.a.ID, EventPatch{Status: ptr(model.EventStatusSwappable)})
	require.NoError(t, err)

	req2, err := f.swaps.InitiateSwap(ctx, f.bob, f.a.ID, c.ID)
	require.NoError(t, err)
	assert.Equal(t, carol, req2.ReceiverID)

	_, err = f.swaps.InitiateSwap(ctx, f.alice, f.a.ID, c.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}
