package postgres

import (
	"errors"
	"fmt"
	"testing"

	"restoran-pos/internal/store"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"serialization failure", &pgconn.PgError{Code: "40001"}, true},
		{"deadlock", &pgconn.PgError{Code: "40P01"}, true},
		{"wrapped deadlock", fmt.Errorf("commit: %w", &pgconn.PgError{Code: "40P01"}), true},
		{"unique violation", &pgconn.PgError{Code: "23505"}, false},
		{"plain error", errors.New("connection reset"), false},
		{"nil", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isRetryable(tt.err))
		})
	}
}

func TestMapErr(t *testing.T) {
	assert.NoError(t, mapErr(nil))
	assert.ErrorIs(t, mapErr(gorm.ErrRecordNotFound), store.ErrNotFound)
	assert.ErrorIs(t, mapErr(&pgconn.PgError{Code: "23505"}), store.ErrDuplicate)
	assert.ErrorIs(t, mapErr(&pgconn.PgError{Code: "23514"}), store.ErrNegativeQuantity)

	other := errors.New("other")
	assert.Equal(t, other, mapErr(other))
}

func TestBackoffGrowsWithinJitterBounds(t *testing.T) {
	for attempt := 1; attempt <= 4; attempt++ {
		d := baseBackoff << (attempt - 1)
		for i := 0; i < 20; i++ {
			got := backoff(attempt)
			assert.GreaterOrEqual(t, got, d/2)
			assert.Less(t, got, d/2+d)
		}
	}
}
