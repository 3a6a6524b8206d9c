package report

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"restoran-pos/internal/domain"
	"restoran-pos/internal/models"
	"restoran-pos/internal/store"
	"restoran-pos/internal/store/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func sampleOrders(loc string, at time.Time) []models.Order {
	return []models.Order{
		{
			Number: 1, SequenceScope: "a", DateKey: at.Format(dayLayout), LocationID: &loc, CreatedAt: at,
			Status: models.OrderStatusPaid, Subtotal: 2100, Total: 2100, CreatedBy: "u1",
			Items:    []models.OrderItem{{ProductID: "burger", Qty: 2, PriceAtOrder: 900}, {ProductID: "cola", Qty: 1, PriceAtOrder: 300}},
			Payments: []models.Payment{{Type: models.PaymentCard, Amount: 2000}, {Type: models.PaymentCash, Amount: 100}},
		},
		{
			Number: 2, SequenceScope: "a", DateKey: at.Format(dayLayout), LocationID: &loc, CreatedAt: at.Add(time.Hour),
			Status: models.OrderStatusOpen, Subtotal: 300, Total: 300, CreatedBy: "u1",
			Items: []models.OrderItem{{ProductID: "cola", Qty: 1, PriceAtOrder: 300}},
		},
		{
			Number: 3, SequenceScope: "a", DateKey: at.Format(dayLayout), LocationID: &loc, CreatedAt: at.Add(2 * time.Hour),
			Status: models.OrderStatusCancelled, Subtotal: 900, Total: 900, CreatedBy: "u1",
			Items: []models.OrderItem{{ProductID: "burger", Qty: 1, PriceAtOrder: 900}},
		},
	}
}

func TestAggregate(t *testing.T) {
	at := time.Date(2025, 4, 12, 12, 0, 0, 0, time.UTC)
	sales := Aggregate(sampleOrders("loc-a", at), map[string]string{"burger": "Hamburger"})

	assert.Equal(t, int64(2100), sales.Revenue)
	assert.Len(t, sales.Orders, 3)

	assert.Equal(t, []StatusTotal{
		{Status: models.OrderStatusCancelled, Count: 1, Total: 900},
		{Status: models.OrderStatusOpen, Count: 1, Total: 300},
		{Status: models.OrderStatusPaid, Count: 1, Total: 2100},
	}, sales.ByStatus)

	assert.Equal(t, []PaymentTotal{
		{Type: models.PaymentCard, Count: 1, Amount: 2000},
		{Type: models.PaymentCash, Count: 1, Amount: 100},
	}, sales.ByPayment)

	// iptal edilen sipariş ürün toplamına girmez, isimsiz ürün id ile görünür
	assert.Equal(t, []ProductTotal{
		{ProductID: "burger", Name: "Hamburger", Qty: 2, Revenue: 1800},
		{ProductID: "cola", Name: "cola", Qty: 2, Revenue: 600},
	}, sales.Products)
}

func TestAggregateEmpty(t *testing.T) {
	sales := Aggregate(nil, nil)
	assert.Zero(t, sales.Revenue)
	assert.Empty(t, sales.ByStatus)
	assert.Empty(t, sales.Products)
}

func TestParseRange(t *testing.T) {
	istanbul := time.FixedZone("TRT", 3*60*60)
	now := time.Date(2025, 4, 12, 22, 30, 0, 0, time.UTC) // İstanbul'da 13 Nisan

	from, to, err := ParseRange("", "", now, istanbul)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 4, 13, 0, 0, 0, 0, istanbul), from)
	assert.Equal(t, time.Date(2025, 4, 14, 0, 0, 0, 0, istanbul), to)

	from, to, err = ParseRange("2025-04-01", "2025-04-30", now, istanbul)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 4, 1, 0, 0, 0, 0, istanbul), from)
	assert.Equal(t, time.Date(2025, 5, 1, 0, 0, 0, 0, istanbul), to)

	tests := []struct {
		name     string
		from, to string
	}{
		{"bad from", "01.04.2025", ""},
		{"bad to", "2025-04-01", "yarın"},
		{"reversed", "2025-04-10", "2025-04-01"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := ParseRange(tt.from, tt.to, now, istanbul)
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
		})
	}
}

func TestWriteWorkbook(t *testing.T) {
	at := time.Date(2025, 4, 12, 12, 0, 0, 0, time.UTC)
	sales := Aggregate(sampleOrders("loc-a", at), map[string]string{"burger": "Hamburger", "cola": "Kola"})
	sales.From, sales.To = at, at.AddDate(0, 0, 1)

	var buf bytes.Buffer
	require.NoError(t, WriteWorkbook(&buf, sales))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{summarySheet, ordersSheet, productsSheet}, f.GetSheetList())

	orders, err := f.GetRows(ordersSheet)
	require.NoError(t, err)
	require.Len(t, orders, 4)
	assert.Equal(t, "No", orders[0][1])
	assert.Equal(t, "1", orders[1][1])

	products, err := f.GetRows(productsSheet)
	require.NoError(t, err)
	require.Len(t, products, 3)
	assert.Equal(t, []string{"Hamburger", "2", "1800", "burger"}, products[1])

	revenue, err := f.GetCellValue(summarySheet, "B5")
	require.NoError(t, err)
	assert.Equal(t, "2100", revenue)
}

func TestSalesScopesAndValidates(t *testing.T) {
	at := time.Date(2025, 4, 12, 12, 0, 0, 0, time.UTC)
	st := memory.New()
	ctx := context.Background()
	err := st.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		for _, loc := range []string{"loc-a", "loc-b"} {
			for _, o := range sampleOrders(loc, at) {
				o := o
				o.SequenceScope = loc
				if err := tx.InsertOrder(ctx, &o); err != nil {
					return err
				}
			}
		}
		return nil
	})
	require.NoError(t, err)

	svc := NewService(st, nil)
	from := time.Date(2025, 4, 12, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 1)

	admin := domain.Actor{UserID: "a", Role: models.RoleAdmin}
	all, err := svc.Sales(ctx, admin, nil, from, to)
	require.NoError(t, err)
	assert.Len(t, all.Orders, 6)
	assert.Equal(t, int64(4200), all.Revenue)

	locA := "loc-a"
	manager := domain.Actor{UserID: "m", Role: models.RoleManager, LocationID: &locA}
	other := "loc-b"
	own, err := svc.Sales(ctx, manager, &other, from, to)
	require.NoError(t, err)
	assert.Len(t, own.Orders, 3)
	require.NotNil(t, own.LocationID)
	assert.Equal(t, "loc-a", *own.LocationID)

	_, err = svc.Sales(ctx, admin, nil, to, from)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = svc.Sales(ctx, admin, nil, from, from.AddDate(2, 0, 0))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestExportDay(t *testing.T) {
	at := time.Date(2025, 4, 12, 12, 0, 0, 0, time.UTC)
	st := memory.New()
	ctx := context.Background()
	err := st.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		for _, o := range sampleOrders("loc-a", at) {
			o := o
			if err := tx.InsertOrder(ctx, &o); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)

	dir := filepath.Join(t.TempDir(), "reports")
	exp := NewExporter(NewService(st, nil), dir, time.UTC, nil)

	path, err := exp.ExportDay(ctx, at)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "satis-2025-04-12.xlsx"), path)

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(ordersSheet)
	require.NoError(t, err)
	assert.Len(t, rows, 4)

	s, err := exp.Schedule("03:00")
	require.NoError(t, err)
	assert.Len(t, s.Jobs(), 1)

	_, err = exp.Schedule("25:99")
	assert.Error(t, err)
}
