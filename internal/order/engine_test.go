package order

import (
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/commerce-core/internal/catalog"
	"github.com/fairyhunter13/commerce-core/internal/ledger"
	"github.com/fairyhunter13/commerce-core/internal/model"
)

func newFixture(t *testing.T) (*Engine, *catalog.Store, *ledger.Ledger) {
	t.Helper()
	led := ledger.New()
	store := catalog.New(led)
	return NewEngine(store), store, led
}

func seed(t *testing.T, store *catalog.Store, id string, price int64, stock int64) {
	t.Helper()
	require.NoError(t, store.Put(model.Product{
		ID:            id,
		Name:          id,
		Price:         decimal.NewFromInt(price),
		Category:      "misc",
		StockQuantity: stock,
	}))
}

func stockOf(t *testing.T, store *catalog.Store, id string) int64 {
	t.Helper()
	p, err := store.Get(id)
	require.NoError(t, err)
	return p.StockQuantity
}

func TestCreateValidation(t *testing.T) {
	e, store, _ := newFixture(t)
	seed(t, store, "a", 10, 5)

	_, err := e.Create("", []LineInput{{ProductID: "a", Quantity: 1}})
	require.ErrorIs(t, err, model.ErrInvalidInput)

	_, err = e.Create("u1", nil)
	require.ErrorIs(t, err, model.ErrInvalidInput)

	_, err = e.Create("u1", []LineInput{{ProductID: "a", Quantity: 0}})
	require.ErrorIs(t, err, model.ErrInvalidInput)

	_, err = e.Create("u1", []LineInput{{ProductID: "ghost", Quantity: 1}})
	require.ErrorIs(t, err, model.ErrNotFound)

	_, err = e.Create("u1", []LineInput{
		{ProductID: "a", Quantity: 1},
		{ProductID: "a", Quantity: 2},
	})
	require.ErrorIs(t, err, model.ErrInvalidInput)
}

func TestLifecycleHappyPath(t *testing.T) {
	e, store, led := newFixture(t)
	seed(t, store, "a", 10, 5)
	seed(t, store, "b", 3, 5)

	o, err := e.Create("u1", []LineInput{
		{ProductID: "a", Quantity: 2},
		{ProductID: "b", Quantity: 1},
	})
	require.NoError(t, err)
	require.Equal(t, model.StatusDraft, o.Status)
	require.True(t, o.TotalPrice.Equal(decimal.NewFromInt(23)), "total %s", o.TotalPrice)
	require.Equal(t, int64(5), stockOf(t, store, "a"), "create must not touch stock")

	o, err = e.Reserve(o.ID)
	require.NoError(t, err)
	require.Equal(t, model.StatusReserved, o.Status)
	require.Equal(t, int64(3), stockOf(t, store, "a"))
	require.Equal(t, int64(4), stockOf(t, store, "b"))

	o, err = e.Confirm(o.ID)
	require.NoError(t, err)
	require.Equal(t, model.StatusConfirmed, o.Status)
	require.Equal(t, int64(3), stockOf(t, store, "a"), "confirm moves no stock")

	o, err = e.Fulfill(o.ID)
	require.NoError(t, err)
	require.Equal(t, model.StatusFulfilled, o.Status)
	require.Equal(t, int64(3), stockOf(t, store, "a"), "fulfill moves no stock")

	var commits int
	for _, ev := range led.EventsForOrder(o.ID) {
		if ev.Reason == model.ReasonCommit {
			commits++
			require.Zero(t, ev.Delta, "commit events are bookkeeping only")
		}
	}
	require.Equal(t, 2, commits)
}

func TestPriceSnapshotSurvivesPriceChange(t *testing.T) {
	e, store, _ := newFixture(t)
	seed(t, store, "p", 10, 10)

	o, err := e.Create("u1", []LineInput{{ProductID: "p", Quantity: 2}})
	require.NoError(t, err)

	_, err = e.Reserve(o.ID)
	require.NoError(t, err)

	// Price change mid-flight must never retroactively reprice the order.
	require.NoError(t, store.Put(model.Product{ID: "p", Name: "p", Price: decimal.NewFromInt(50), Category: "misc"}))

	_, err = e.Confirm(o.ID)
	require.NoError(t, err)
	got, err := e.Fulfill(o.ID)
	require.NoError(t, err)
	require.True(t, got.TotalPrice.Equal(decimal.NewFromInt(20)), "total %s", got.TotalPrice)
	require.True(t, got.Lines[0].UnitPrice.Equal(decimal.NewFromInt(10)))
}

func TestReserveRollbackIsAllOrNothing(t *testing.T) {
	e, store, led := newFixture(t)
	seed(t, store, "a", 1, 10)
	seed(t, store, "b", 1, 2)

	o, err := e.Create("u1", []LineInput{
		{ProductID: "a", Quantity: 5},
		{ProductID: "b", Quantity: 3},
	})
	require.NoError(t, err)

	got, err := e.Reserve(o.ID)
	require.ErrorIs(t, err, model.ErrInsufficientStock)
	require.Equal(t, model.StatusFailed, got.Status)
	require.Equal(t, model.FailInsufficientStock, got.FailReason)

	require.Equal(t, int64(10), stockOf(t, store, "a"), "a must be rolled back")
	require.Equal(t, int64(2), stockOf(t, store, "b"), "b untouched")

	// The audit trail shows the reservation and its compensation.
	require.Zero(t, led.DeltaSum("a"))
	require.Zero(t, led.DeltaSum("b"))
}

func TestInvalidTransitionsHaveNoSideEffects(t *testing.T) {
	e, store, _ := newFixture(t)
	seed(t, store, "a", 1, 5)

	o, err := e.Create("u1", []LineInput{{ProductID: "a", Quantity: 1}})
	require.NoError(t, err)

	_, err = e.Confirm(o.ID)
	require.ErrorIs(t, err, model.ErrInvalidTransition)
	_, err = e.Fulfill(o.ID)
	require.ErrorIs(t, err, model.ErrInvalidTransition)
	_, err = e.Fail(o.ID)
	require.ErrorIs(t, err, model.ErrInvalidTransition)

	got, err := e.Get(o.ID)
	require.NoError(t, err)
	require.Equal(t, model.StatusDraft, got.Status)
	require.Equal(t, int64(5), stockOf(t, store, "a"))

	_, err = e.Reserve("missing")
	require.ErrorIs(t, err, model.ErrNotFound)
}

func TestCancelReleasesOnceOnly(t *testing.T) {
	e, store, _ := newFixture(t)
	seed(t, store, "a", 1, 5)

	o, err := e.Create("u1", []LineInput{{ProductID: "a", Quantity: 3}})
	require.NoError(t, err)
	_, err = e.Reserve(o.ID)
	require.NoError(t, err)
	require.Equal(t, int64(2), stockOf(t, store, "a"))

	got, err := e.Cancel(o.ID)
	require.NoError(t, err)
	require.Equal(t, model.StatusCancelled, got.Status)
	require.Equal(t, int64(5), stockOf(t, store, "a"), "reserved stock released")

	_, err = e.Cancel(o.ID)
	require.ErrorIs(t, err, model.ErrInvalidTransition)
	require.Equal(t, int64(5), stockOf(t, store, "a"), "no double release")
}

func TestCancelDraftTouchesNoStock(t *testing.T) {
	e, store, led := newFixture(t)
	seed(t, store, "a", 1, 5)
	o, err := e.Create("u1", []LineInput{{ProductID: "a", Quantity: 3}})
	require.NoError(t, err)
	_, err = e.Cancel(o.ID)
	require.NoError(t, err)
	require.Equal(t, int64(5), stockOf(t, store, "a"))
	require.Zero(t, led.Len())
}

func TestFailReleasesReservedStock(t *testing.T) {
	e, store, _ := newFixture(t)
	seed(t, store, "a", 1, 5)
	o, err := e.Create("u1", []LineInput{{ProductID: "a", Quantity: 2}})
	require.NoError(t, err)
	_, err = e.Reserve(o.ID)
	require.NoError(t, err)

	got, err := e.Fail(o.ID)
	require.NoError(t, err)
	require.Equal(t, model.StatusFailed, got.Status)
	require.Equal(t, model.FailPayment, got.FailReason)
	require.Equal(t, int64(5), stockOf(t, store, "a"))
}

func TestConcurrentLastUnit(t *testing.T) {
	e, store, _ := newFixture(t)
	seed(t, store, "a", 1, 1)

	o1, err := e.Create("u1", []LineInput{{ProductID: "a", Quantity: 1}})
	require.NoError(t, err)
	o2, err := e.Create("u2", []LineInput{{ProductID: "a", Quantity: 1}})
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, id := range []string{o1.ID, o2.ID} {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			_, errs[i] = e.Reserve(id)
		}(i, id)
	}
	wg.Wait()

	winners, losers := 0, 0
	for i, id := range []string{o1.ID, o2.ID} {
		got, gerr := e.Get(id)
		require.NoError(t, gerr)
		switch got.Status {
		case model.StatusReserved:
			winners++
			require.NoError(t, errs[i])
		case model.StatusFailed:
			losers++
			require.True(t, errors.Is(errs[i], model.ErrInsufficientStock))
			require.Equal(t, model.FailInsufficientStock, got.FailReason)
		default:
			t.Fatalf("unexpected status %s", got.Status)
		}
	}
	require.Equal(t, 1, winners)
	require.Equal(t, 1, losers)
	require.Equal(t, int64(0), stockOf(t, store, "a"))
}

func TestCompletedSinceFiltersStatus(t *testing.T) {
	e, store, _ := newFixture(t)
	seed(t, store, "a", 1, 100)

	mk := func(user string) model.Order {
		o, err := e.Create(user, []LineInput{{ProductID: "a", Quantity: 1}})
		require.NoError(t, err)
		return o
	}

	draft := mk("u1")

	reserved := mk("u2")
	_, err := e.Reserve(reserved.ID)
	require.NoError(t, err)

	confirmed := mk("u3")
	_, err = e.Reserve(confirmed.ID)
	require.NoError(t, err)
	_, err = e.Confirm(confirmed.ID)
	require.NoError(t, err)

	fulfilled := mk("u4")
	_, err = e.Reserve(fulfilled.ID)
	require.NoError(t, err)
	_, err = e.Confirm(fulfilled.ID)
	require.NoError(t, err)
	_, err = e.Fulfill(fulfilled.ID)
	require.NoError(t, err)

	completed := e.CompletedSince(draft.CreatedAt.Add(-1))
	require.Len(t, completed, 2)
	for _, o := range completed {
		require.Contains(t, []model.OrderStatus{model.StatusConfirmed, model.StatusFulfilled}, o.Status)
	}
}

func TestListByUser(t *testing.T) {
	e, store, _ := newFixture(t)
	seed(t, store, "a", 1, 100)
	for i := 0; i < 3; i++ {
		_, err := e.Create("u1", []LineInput{{ProductID: "a", Quantity: 1}})
		require.NoError(t, err)
	}
	_, err := e.Create("u2", []LineInput{{ProductID: "a", Quantity: 1}})
	require.NoError(t, err)
	require.Len(t, e.ListByUser("u1"), 3)
	require.Len(t, e.ListByUser("u2"), 1)
	require.Empty(t, e.ListByUser("nobody"))
}
