// Package memory is a process-local store used by tests and STORE_DRIVER=memory.
// Transactions are serialised by one mutex and work on a copy of the state that
// replaces the committed state only when the callback succeeds.
package memory

import (
	"context"
	"sync"
	"time"

	"restoran-pos/internal/models"
	"restoran-pos/internal/store"
)

type state struct {
	locations     map[string]models.Location
	users         map[string]models.User
	refreshTokens map[string]models.RefreshToken
	products      map[string]models.Product
	stockItems    map[string]models.StockItem
	adjustments   []models.StockAdjustment
	counters      map[string]int64
	orders        map[string]models.Order
	auditLogs     []models.AuditLog
}

func newState() *state {
	return &state{
		locations:     map[string]models.Location{},
		users:         map[string]models.User{},
		refreshTokens: map[string]models.RefreshToken{},
		products:      map[string]models.Product{},
		stockItems:    map[string]models.StockItem{},
		counters:      map[string]int64{},
		orders:        map[string]models.Order{},
	}
}

// clone copies maps shallowly. Slices inside records are never mutated in place,
// they are replaced on every write, so sharing them between snapshots is safe.
func (s *state) clone() *state {
	return &state{
		locations:     cloneMap(s.locations),
		users:         cloneMap(s.users),
		refreshTokens: cloneMap(s.refreshTokens),
		products:      cloneMap(s.products),
		stockItems:    cloneMap(s.stockItems),
		adjustments:   append([]models.StockAdjustment(nil), s.adjustments...),
		counters:      cloneMap(s.counters),
		orders:        cloneMap(s.orders),
		auditLogs:     append([]models.AuditLog(nil), s.auditLogs...),
	}
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

type Store struct {
	mu    sync.Mutex
	state *state
	now   func() time.Time
}

type Option func(*Store)

// WithClock overrides the timestamp source used for CreatedAt/UpdatedAt.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

func New(opts ...Option) *Store {
	s := &Store{state: newState(), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ store.Store = (*Store)(nil)

func (s *Store) RunInTx(ctx context.Context, fn store.TxFunc) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.state.clone()
	if err := fn(ctx, &tx{st: work, now: s.now}); err != nil {
		return err
	}
	s.state = work
	return nil
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close(context.Context) error { return nil }

type tx struct {
	st  *state
	now func() time.Time
}

var _ store.Tx = (*tx)(nil)

func sameLocation(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// matchesLocation applies the "nil filter means all" rule.
func matchesLocation(filter, value *string) bool {
	return filter == nil || sameLocation(filter, value)
}
