package recipe_test

import (
	"context"
	"math"
	"testing"

	"restoran-pos/internal/domain"
	"restoran-pos/internal/models"
	"restoran-pos/internal/recipe"
	"restoran-pos/internal/store"
	"restoran-pos/internal/store/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	st    *memory.Store
	locA  string
	locB  string
	bun   models.StockItem
	patty models.StockItem
	cola  models.StockItem
	other models.StockItem
}

func ptr(s string) *string { return &s }

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{st: memory.New(), locA: "loc-a", locB: "loc-b"}
	err := f.st.RunInTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		items := []*models.StockItem{
			{ID: "bun", Name: "Ekmek", Quantity: 10, LocationID: &f.locA, TrackStock: true},
			{ID: "patty", Name: "Köfte", Quantity: 10, LocationID: &f.locA, TrackStock: true},
			{ID: "cola", Name: "Kola", Quantity: 5, ProductID: ptr("p-cola"), LocationID: &f.locA, TrackStock: true},
			{ID: "other", Name: "Ekmek B", Quantity: 10, LocationID: &f.locB, TrackStock: true},
		}
		for _, it := range items {
			if err := tx.CreateStockItem(ctx, it); err != nil {
				return err
			}
		}
		f.bun, f.patty, f.cola, f.other = *items[0], *items[1], *items[2], *items[3]

		products := []*models.Product{
			{ID: "p-burger", Name: "Burger", Price: 900, Active: true, LocationID: &f.locA,
				Ingredients: []models.Ingredient{{StockItemID: "bun", QtyPerUnit: 1}, {StockItemID: "patty", QtyPerUnit: 2}}},
			{ID: "p-cola", Name: "Kola", Price: 300, Active: true, TrackStock: true, LocationID: &f.locA},
			{ID: "p-water", Name: "Su", Price: 100, Active: true, TrackStock: false, LocationID: &f.locA},
			{ID: "p-old", Name: "Eski", Price: 100, Active: false, TrackStock: true, LocationID: &f.locA},
			{ID: "p-cross", Name: "Karışık", Price: 100, Active: true, LocationID: &f.locA,
				Ingredients: []models.Ingredient{{StockItemID: "other", QtyPerUnit: 1}}},
			{ID: "p-ghost", Name: "Hayalet", Price: 100, Active: true, LocationID: &f.locA,
				Ingredients: []models.Ingredient{{StockItemID: "missing", QtyPerUnit: 1}}},
		}
		for _, p := range products {
			if err := tx.CreateProduct(ctx, p); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)
	return f
}

func (f *fixture) resolve(t *testing.T, productID string, qty int64, loc *string, opts recipe.Options) (*recipe.Resolution, error) {
	t.Helper()
	var res *recipe.Resolution
	err := f.st.RunInTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		var err error
		res, err = recipe.Resolve(ctx, tx, productID, qty, loc, opts)
		return err
	})
	return res, err
}

func TestResolveRecipeBased(t *testing.T) {
	f := newFixture(t)

	res, err := f.resolve(t, "p-burger", 3, &f.locA, recipe.Options{})
	require.NoError(t, err)
	assert.Equal(t, recipe.ModeRecipeBased, res.Mode)
	require.Len(t, res.Requirements, 2)
	assert.Equal(t, "bun", res.Requirements[0].StockItem.ID)
	assert.Equal(t, int64(3), res.Requirements[0].Quantity)
	assert.Equal(t, "patty", res.Requirements[1].StockItem.ID)
	assert.Equal(t, int64(6), res.Requirements[1].Quantity)
}

func TestResolveDirectStock(t *testing.T) {
	f := newFixture(t)

	res, err := f.resolve(t, "p-cola", 2, &f.locA, recipe.Options{})
	require.NoError(t, err)
	assert.Equal(t, recipe.ModeDirectStock, res.Mode)
	require.Len(t, res.Requirements, 1)
	assert.Equal(t, "cola", res.Requirements[0].StockItem.ID)
	assert.Equal(t, int64(2), res.Requirements[0].Quantity)

	// başka şubede bağlı stok yoksa takip edilmez
	res, err = f.resolve(t, "p-cola", 2, &f.locB, recipe.Options{})
	require.NoError(t, err)
	assert.Equal(t, recipe.ModeUntracked, res.Mode)
	assert.Empty(t, res.Requirements)
}

func TestResolveUntracked(t *testing.T) {
	f := newFixture(t)

	res, err := f.resolve(t, "p-water", 5, &f.locA, recipe.Options{})
	require.NoError(t, err)
	assert.Equal(t, recipe.ModeUntracked, res.Mode)
	assert.Empty(t, res.Requirements)
	assert.Equal(t, "untracked", res.Mode.String())
}

func TestResolveErrors(t *testing.T) {
	f := newFixture(t)

	_, err := f.resolve(t, "nope", 1, &f.locA, recipe.Options{})
	assert.ErrorIs(t, err, domain.ErrProductNotFound)

	_, err = f.resolve(t, "p-old", 1, &f.locA, recipe.Options{})
	assert.ErrorIs(t, err, domain.ErrProductNotFound, "inactive products cannot be sold")

	_, err = f.resolve(t, "p-cross", 1, &f.locA, recipe.Options{})
	assert.ErrorIs(t, err, domain.ErrStockItemNotFound, "ingredient from another location")

	_, err = f.resolve(t, "p-ghost", 1, &f.locA, recipe.Options{})
	assert.ErrorIs(t, err, domain.ErrStockItemNotFound)
}

func TestResolveInactiveForRestock(t *testing.T) {
	f := newFixture(t)
	err := f.st.RunInTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		return tx.CreateStockItem(ctx, &models.StockItem{ID: "old", Name: "Eski", ProductID: ptr("p-old"), LocationID: &f.locA, TrackStock: true})
	})
	require.NoError(t, err)

	res, err := f.resolve(t, "p-old", 1, &f.locA, recipe.Options{IncludeInactive: true})
	require.NoError(t, err)
	assert.Equal(t, recipe.ModeDirectStock, res.Mode)
}

func TestResolveRejectsOverflow(t *testing.T) {
	f := newFixture(t)

	_, err := f.resolve(t, "p-burger", math.MaxInt64/2+1, &f.locA, recipe.Options{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	res, err := f.resolve(t, "p-burger", math.MaxInt64/2, &f.locA, recipe.Options{})
	require.NoError(t, err)
	assert.Equal(t, int64(math.MaxInt64/2*2), res.Requirements[1].Quantity)
}
