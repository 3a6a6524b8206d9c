package sequence

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type counterFunc func(ctx context.Context, key string) (int64, error)

func (f counterFunc) IncrementCounter(ctx context.Context, key string) (int64, error) {
	return f(ctx, key)
}

func TestDateKeyUsesUTC(t *testing.T) {
	ist := time.FixedZone("Europe/Istanbul", 3*60*60)
	// 01:30 Istanbul is still the previous day in UTC
	ts := time.Date(2025, 6, 2, 1, 30, 0, 0, ist)
	assert.Equal(t, "2025-06-01", DateKey(ts))
}

func TestScopeKey(t *testing.T) {
	loc := "3f1c"
	empty := ""
	assert.Equal(t, "orders:2025-06-01:3f1c", ScopeKey("2025-06-01", &loc))
	assert.Equal(t, "orders:2025-06-01:default", ScopeKey("2025-06-01", nil))
	assert.Equal(t, "orders:2025-06-01:default", ScopeKey("2025-06-01", &empty))
}

func TestNextIncrementsPerScope(t *testing.T) {
	counters := map[string]int64{}
	c := counterFunc(func(_ context.Context, key string) (int64, error) {
		counters[key]++
		return counters[key], nil
	})
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		n, err := Next(ctx, c, "orders:2025-06-01:a")
		require.NoError(t, err)
		assert.Equal(t, want, n)
	}

	n, err := Next(ctx, c, "orders:2025-06-01:b")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n, "other location starts its own sequence")

	n, err = Next(ctx, c, "orders:2025-06-02:a")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n, "new day restarts the sequence")
}

func TestNextErrors(t *testing.T) {
	_, err := Next(context.Background(), counterFunc(func(context.Context, string) (int64, error) {
		t.Fatal("counter must not be called for an empty scope")
		return 0, nil
	}), "")
	assert.ErrorIs(t, err, ErrEmptyScope)

	boom := errors.New("boom")
	_, err = Next(context.Background(), counterFunc(func(context.Context, string) (int64, error) {
		return 0, boom
	}), "orders:2025-06-01:a")
	assert.ErrorIs(t, err, boom)
}
