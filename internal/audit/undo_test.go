package audit_test

import (
	"context"
	"testing"

	"restoran-pos/internal/audit"
	"restoran-pos/internal/domain"
	"restoran-pos/internal/inventory"
	"restoran-pos/internal/models"
	"restoran-pos/internal/store"
	"restoran-pos/internal/store/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

type fixture struct {
	st      *memory.Store
	inv     *inventory.Service
	locA    string
	locB    string
	admin   domain.Actor
	manager domain.Actor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{st: memory.New(), locA: "loc-a", locB: "loc-b"}
	err := f.st.RunInTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		if err := tx.CreateLocation(ctx, &models.Location{ID: f.locA, Name: "Merkez", Active: true}); err != nil {
			return err
		}
		return tx.CreateLocation(ctx, &models.Location{ID: f.locB, Name: "Kadıköy", Active: true})
	})
	require.NoError(t, err)
	f.inv = inventory.NewService(f.st, nil, nil)
	f.admin = domain.Actor{UserID: "admin", Name: "Admin", Role: models.RoleAdmin}
	f.manager = domain.Actor{UserID: "manager", Name: "Müdür", Role: models.RoleManager, LocationID: &f.locA}
	return f
}

// lastLog returns the newest audit entry for entityID with the given action.
func (f *fixture) lastLog(t *testing.T, entityID string, action models.AuditAction) models.AuditLog {
	t.Helper()
	var logs []models.AuditLog
	err := f.st.RunInTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		var err error
		logs, err = tx.ListAuditLogs(ctx, store.AuditLogFilter{EntityID: entityID})
		return err
	})
	require.NoError(t, err)
	for _, l := range logs {
		if l.Action == action {
			return l
		}
	}
	t.Fatalf("no %s entry for %s", action, entityID)
	return models.AuditLog{}
}

func TestUndoProductUpdateRestoresPreviousState(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p, err := f.inv.CreateProduct(ctx, f.manager, inventory.ProductInput{Name: ptr("Hamburger"), Price: ptr(int64(900))})
	require.NoError(t, err)
	_, err = f.inv.UpdateProduct(ctx, f.manager, p.ID, inventory.ProductInput{Name: ptr("Cheeseburger"), Price: ptr(int64(1100))})
	require.NoError(t, err)

	entry := f.lastLog(t, p.ID, models.AuditActionUpdate)
	undoLog, err := audit.Undo(ctx, f.st, f.manager, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AuditActionUndo, undoLog.Action)
	assert.Equal(t, "Geri alındı: Ürün güncellendi: Cheeseburger", undoLog.Description)
	assert.NotEmpty(t, undoLog.ID)

	got, err := f.inv.GetProduct(ctx, f.admin, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Hamburger", got.Name)
	assert.Equal(t, int64(900), got.Price)

	marked := f.lastLog(t, p.ID, models.AuditActionUpdate)
	assert.True(t, marked.IsUndone)
	require.NotNil(t, marked.UndoneBy)
	assert.Equal(t, "manager", *marked.UndoneBy)

	_, err = audit.Undo(ctx, f.st, f.manager, entry.ID)
	assert.ErrorIs(t, err, domain.ErrConflict, "an entry is undone only once")

	_, err = audit.Undo(ctx, f.st, f.admin, undoLog.ID)
	assert.ErrorIs(t, err, domain.ErrConflict, "undo entries are final")
}

func TestUndoProductCreateAndDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p, err := f.inv.CreateProduct(ctx, f.admin, inventory.ProductInput{Name: ptr("Su"), Price: ptr(int64(100)), LocationID: ptr(f.locA)})
	require.NoError(t, err)
	require.NoError(t, f.inv.DeleteProduct(ctx, f.admin, p.ID))

	_, err = audit.Undo(ctx, f.st, f.admin, f.lastLog(t, p.ID, models.AuditActionDelete).ID)
	require.NoError(t, err)
	got, err := f.inv.GetProduct(ctx, f.admin, p.ID)
	require.NoError(t, err)
	assert.True(t, got.Active, "undoing a delete reactivates")

	_, err = audit.Undo(ctx, f.st, f.admin, f.lastLog(t, p.ID, models.AuditActionCreate).ID)
	require.NoError(t, err)
	got, err = f.inv.GetProduct(ctx, f.admin, p.ID)
	require.NoError(t, err)
	assert.False(t, got.Active, "undoing a create deactivates")
}

func TestUndoRefusesStaleRecipe(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	item, err := f.inv.CreateStockItem(ctx, f.admin, inventory.StockItemInput{Name: ptr("Köfte"), LocationID: ptr(f.locA)})
	require.NoError(t, err)
	p, err := f.inv.CreateProduct(ctx, f.admin, inventory.ProductInput{
		Name:        ptr("Hamburger"),
		Price:       ptr(int64(900)),
		LocationID:  ptr(f.locA),
		Ingredients: &[]models.Ingredient{{StockItemID: item.ID, QtyPerUnit: 2}},
	})
	require.NoError(t, err)
	_, err = f.inv.UpdateProduct(ctx, f.admin, p.ID, inventory.ProductInput{Ingredients: &[]models.Ingredient{}})
	require.NoError(t, err)
	require.NoError(t, f.inv.DeleteStockItem(ctx, f.admin, item.ID))

	entry := f.lastLog(t, p.ID, models.AuditActionUpdate)
	_, err = audit.Undo(ctx, f.st, f.admin, entry.ID)
	assert.ErrorIs(t, err, domain.ErrConflict)

	got, err := f.inv.GetProduct(ctx, f.admin, p.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Ingredients, "failed undo leaves the product untouched")
	assert.False(t, f.lastLog(t, p.ID, models.AuditActionUpdate).IsUndone)
}

func TestUndoRefusesStockEntries(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	item, err := f.inv.CreateStockItem(ctx, f.admin, inventory.StockItemInput{Name: ptr("Köfte"), Quantity: ptr(int64(5)), LocationID: ptr(f.locA)})
	require.NoError(t, err)

	_, err = audit.Undo(ctx, f.st, f.admin, f.lastLog(t, item.ID, models.AuditActionCreate).ID)
	assert.ErrorIs(t, err, domain.ErrConflict)

	got, err := f.inv.GetStockItem(ctx, f.admin, item.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(5), got.Quantity)
}

func TestUndoPermissions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p, err := f.inv.CreateProduct(ctx, f.admin, inventory.ProductInput{Name: ptr("Çay"), Price: ptr(int64(50)), LocationID: ptr(f.locB)})
	require.NoError(t, err)
	entry := f.lastLog(t, p.ID, models.AuditActionCreate)

	_, err = audit.Undo(ctx, f.st, f.manager, entry.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden, "other location")

	waiter := domain.Actor{UserID: "w", Role: models.RoleWaiter, LocationID: &f.locB}
	_, err = audit.Undo(ctx, f.st, waiter, entry.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = audit.Undo(ctx, f.st, f.admin, "ghost")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUndoLocationUpdate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	err := f.st.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		loc, err := tx.LocationByID(ctx, f.locA)
		if err != nil {
			return err
		}
		before := *loc
		loc.Name = "Merkez Şube"
		if err := tx.SaveLocation(ctx, loc); err != nil {
			return err
		}
		return audit.WriteLog(ctx, tx, audit.LogOptions{
			LocationID:  &loc.ID,
			Actor:       f.admin,
			EntityType:  audit.EntityLocation,
			EntityID:    loc.ID,
			Action:      models.AuditActionUpdate,
			Description: "Şube güncellendi",
			Before:      before,
			After:       loc,
		})
	})
	require.NoError(t, err)
	entry := f.lastLog(t, f.locA, models.AuditActionUpdate)

	_, err = audit.Undo(ctx, f.st, f.manager, entry.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden, "locations are admin only")

	_, err = audit.Undo(ctx, f.st, f.admin, entry.ID)
	require.NoError(t, err)

	err = f.st.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		loc, err := tx.LocationByID(ctx, f.locA)
		require.NoError(t, err)
		assert.Equal(t, "Merkez", loc.Name)
		return nil
	})
	require.NoError(t, err)
}
