package orders

import (
	"testing"

	"restoran-pos/internal/domain"
	"restoran-pos/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStatus(t *testing.T) {
	tests := []struct {
		raw     string
		want    models.OrderStatus
		wantErr bool
	}{
		{"open", models.OrderStatusOpen, false},
		{"preparing", models.OrderStatusPreparing, false},
		{"in_kitchen", models.OrderStatusPreparing, false},
		{" Served ", models.OrderStatusServed, false},
		{"paid", models.OrderStatusPaid, false},
		{"cancelled", models.OrderStatusCancelled, false},
		{"canceled", "", true},
		{"", "", true},
		{"done", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseStatus(tt.raw)
			if tt.wantErr {
				require.ErrorIs(t, err, domain.ErrInvalidStatus)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCanTransition(t *testing.T) {
	all := []models.OrderStatus{
		models.OrderStatusOpen,
		models.OrderStatusPreparing,
		models.OrderStatusServed,
		models.OrderStatusPaid,
		models.OrderStatusCancelled,
	}
	allowed := map[[2]models.OrderStatus]bool{
		{models.OrderStatusOpen, models.OrderStatusPreparing}:      true,
		{models.OrderStatusOpen, models.OrderStatusCancelled}:      true,
		{models.OrderStatusPreparing, models.OrderStatusServed}:    true,
		{models.OrderStatusPreparing, models.OrderStatusCancelled}: true,
		{models.OrderStatusServed, models.OrderStatusPaid}:         true,
		{models.OrderStatusServed, models.OrderStatusCancelled}:    true,
	}

	for _, from := range all {
		for _, to := range all {
			want := allowed[[2]models.OrderStatus{from, to}]
			assert.Equal(t, want, CanTransition(from, to), "%s -> %s", from, to)
		}
	}

	// eski kayıtlar in_kitchen olarak saklanmış olabilir
	assert.True(t, CanTransition(models.OrderStatusInKitchen, models.OrderStatusServed))
	assert.True(t, CanTransition(models.OrderStatusOpen, models.OrderStatusInKitchen))
}

func TestTerminalStatuses(t *testing.T) {
	assert.True(t, models.OrderStatusPaid.IsTerminal())
	assert.True(t, models.OrderStatusCancelled.IsTerminal())
	assert.False(t, models.OrderStatusServed.IsTerminal())
	assert.False(t, models.OrderStatusInKitchen.IsTerminal())
}
