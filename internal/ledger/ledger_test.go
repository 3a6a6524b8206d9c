package ledger_test

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"restoran-pos/internal/domain"
	"restoran-pos/internal/ledger"
	"restoran-pos/internal/models"
	"restoran-pos/internal/recipe"
	"restoran-pos/internal/store"
	"restoran-pos/internal/store/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)

func seed(t *testing.T, qty int64) (*memory.Store, models.StockItem) {
	t.Helper()
	st := memory.New()
	loc := "loc-a"
	item := &models.StockItem{ID: "s1", Name: "Köfte", Quantity: qty, LocationID: &loc, TrackStock: true}
	err := st.RunInTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		return tx.CreateStockItem(ctx, item)
	})
	require.NoError(t, err)
	return st, *item
}

func TestCheckAvailable(t *testing.T) {
	item := models.StockItem{ID: "s1", Name: "Köfte", Quantity: 4}

	assert.NoError(t, ledger.CheckAvailable(item, 4))

	err := ledger.CheckAvailable(item, 6)
	require.ErrorIs(t, err, domain.ErrInsufficientStock)
	var ise *domain.InsufficientStockError
	require.True(t, errors.As(err, &ise))
	assert.Equal(t, int64(6), ise.Requested)
	assert.Equal(t, int64(4), ise.Available)
	assert.Equal(t, "insufficient stock for Köfte: required 6, available 4", err.Error())
}

func TestAggregateMergesAndSorts(t *testing.T) {
	a := models.StockItem{ID: "b"}
	b := models.StockItem{ID: "a"}
	reqs := []recipe.Requirement{
		{StockItem: a, Quantity: 2},
		{StockItem: b, Quantity: 1},
		{StockItem: a, Quantity: 3},
	}

	got, err := ledger.Aggregate(reqs)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].StockItem.ID)
	assert.Equal(t, int64(1), got[0].Quantity)
	assert.Equal(t, "b", got[1].StockItem.ID)
	assert.Equal(t, int64(5), got[1].Quantity)
}

func TestAggregateRejectsBadQuantities(t *testing.T) {
	item := models.StockItem{ID: "a", Name: "Köfte"}
	tests := []struct {
		name string
		reqs []recipe.Requirement
	}{
		{"zero", []recipe.Requirement{{StockItem: item, Quantity: 0}}},
		{"negative", []recipe.Requirement{{StockItem: item, Quantity: -4}}},
		{"sum overflows", []recipe.Requirement{{StockItem: item, Quantity: math.MaxInt64 - 1}, {StockItem: item, Quantity: 2}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ledger.Aggregate(tt.reqs)
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
		})
	}
}

func TestApplyDeltaWritesAdjustment(t *testing.T) {
	st, item := seed(t, 10)
	l := ledger.New(func() time.Time { return fixedNow })
	actor := domain.Actor{UserID: "u1", Role: models.RoleWaiter}
	orderID := "o1"

	err := st.RunInTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		adj, err := l.ApplyDelta(ctx, tx, item, -6, actor, ledger.SoldReason(orderID), ledger.Refs{OrderID: &orderID})
		require.NoError(t, err)
		assert.Equal(t, int64(-6), adj.Delta)
		assert.Equal(t, "sold via order o1", adj.Reason)
		assert.Equal(t, fixedNow, adj.CreatedAt)
		require.NotNil(t, adj.UserID)
		assert.Equal(t, "u1", *adj.UserID)
		assert.Equal(t, item.LocationID, adj.LocationID)
		return nil
	})
	require.NoError(t, err)

	err = st.RunInTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		got, err := tx.StockItemByID(ctx, item.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(4), got.Quantity)
		assert.Equal(t, fixedNow, got.LastUpdated)

		adjs, err := tx.ListAdjustments(ctx, store.AdjustmentFilter{OrderID: orderID})
		require.NoError(t, err)
		assert.Len(t, adjs, 1)
		return nil
	})
	require.NoError(t, err)
}

func TestApplyDeltaRefusesNegative(t *testing.T) {
	st, item := seed(t, 3)
	l := ledger.New(nil)

	err := st.RunInTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		_, err := l.ApplyDelta(ctx, tx, item, -5, domain.Actor{}, "fire", ledger.Refs{})
		return err
	})
	require.ErrorIs(t, err, domain.ErrInsufficientStock)
	var ise *domain.InsufficientStockError
	require.ErrorAs(t, err, &ise)
	assert.Equal(t, int64(3), ise.Available)
	assert.Equal(t, int64(5), ise.Requested)
}

func TestApplyDeltaValidation(t *testing.T) {
	st, item := seed(t, 3)
	l := ledger.New(nil)

	err := st.RunInTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		_, err := l.ApplyDelta(ctx, tx, item, 0, domain.Actor{}, "noop", ledger.Refs{})
		return err
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	err = st.RunInTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		_, err := l.ApplyDelta(ctx, tx, models.StockItem{ID: "missing"}, 1, domain.Actor{}, "x", ledger.Refs{})
		return err
	})
	assert.ErrorIs(t, err, domain.ErrStockItemNotFound)
}

func TestLockMissingItem(t *testing.T) {
	st, _ := seed(t, 3)
	l := ledger.New(nil)

	err := st.RunInTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		_, err := l.Lock(ctx, tx, []recipe.Requirement{{StockItem: models.StockItem{ID: "gone"}, Quantity: 1}})
		return err
	})
	assert.ErrorIs(t, err, domain.ErrStockItemNotFound)
}
