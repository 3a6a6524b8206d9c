// Package sequence issues per-day, per-location order numbers from keyed counters.
package sequence

import (
	"context"
	"errors"
	"fmt"
	"time"
)

const (
	defaultScope  = "default"
	dateKeyLayout = "2006-01-02"
)

var ErrEmptyScope = errors.New("sequence: empty scope key")

// Counter is satisfied by store.Tx. The increment must be a single atomic upsert.
type Counter interface {
	IncrementCounter(ctx context.Context, key string) (int64, error)
}

// DateKey is the UTC calendar day an order belongs to.
func DateKey(t time.Time) string {
	return t.UTC().Format(dateKeyLayout)
}

// ScopeKey builds "orders:<dateKey>:<locationId|default>".
func ScopeKey(dateKey string, locationID *string) string {
	loc := defaultScope
	if locationID != nil && *locationID != "" {
		loc = *locationID
	}
	return fmt.Sprintf("orders:%s:%s", dateKey, loc)
}

// Next returns the next value for scope. It runs inside the caller's transaction,
// so a rolled back order gives its number back.
func Next(ctx context.Context, tx Counter, scope string) (int64, error) {
	if scope == "" {
		return 0, ErrEmptyScope
	}
	n, err := tx.IncrementCounter(ctx, scope)
	if err != nil {
		return 0, fmt.Errorf("sequence %s: %w", scope, err)
	}
	return n, nil
}
