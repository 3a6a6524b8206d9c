// Package ledger owns every change to StockItem.Quantity. Each change is a guarded
// update plus one StockAdjustment row written in the caller's transaction.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"restoran-pos/internal/domain"
	"restoran-pos/internal/models"
	"restoran-pos/internal/recipe"
	"restoran-pos/internal/store"
)

// Refs links an adjustment to what caused it.
type Refs struct {
	OrderID   *string
	ProductID *string
}

// Tx is the transactional surface the ledger writes through.
type Tx interface {
	LockStockItem(ctx context.Context, id string) (*models.StockItem, error)
	StockItemByID(ctx context.Context, id string) (*models.StockItem, error)
	AddStockQuantity(ctx context.Context, id string, delta int64, at time.Time) (*models.StockItem, error)
	InsertAdjustment(ctx context.Context, a *models.StockAdjustment) error
}

type Ledger struct {
	now func() time.Time
}

func New(now func() time.Time) *Ledger {
	if now == nil {
		now = time.Now
	}
	return &Ledger{now: now}
}

// CheckAvailable fails with *domain.InsufficientStockError when item holds less than qty.
func CheckAvailable(item models.StockItem, qty int64) error {
	if item.Quantity < qty {
		return &domain.InsufficientStockError{
			StockItemID: item.ID,
			ItemName:    item.Name,
			Requested:   qty,
			Available:   item.Quantity,
		}
	}
	return nil
}

// Aggregate merges requirements on the same stock item and sorts them by id, which is
// also the lock order used by Lock. Every quantity must be positive and the merged sum
// must fit in int64.
func Aggregate(reqs []recipe.Requirement) ([]recipe.Requirement, error) {
	byID := make(map[string]int, len(reqs))
	out := make([]recipe.Requirement, 0, len(reqs))
	for _, r := range reqs {
		if r.Quantity <= 0 {
			return nil, domain.Invalidf("requirement on %s has non-positive quantity %d", r.StockItem.ID, r.Quantity)
		}
		if i, ok := byID[r.StockItem.ID]; ok {
			if out[i].Quantity > math.MaxInt64-r.Quantity {
				return nil, domain.Invalidf("total quantity of %s overflows", r.StockItem.Name)
			}
			out[i].Quantity += r.Quantity
			continue
		}
		byID[r.StockItem.ID] = len(out)
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StockItem.ID < out[j].StockItem.ID })
	return out, nil
}

// Lock re-reads each requirement's stock item under a row lock, in the given order,
// so checks run against the same state the decrement will see.
func (l *Ledger) Lock(ctx context.Context, tx Tx, reqs []recipe.Requirement) ([]recipe.Requirement, error) {
	out := make([]recipe.Requirement, 0, len(reqs))
	for _, r := range reqs {
		item, err := tx.LockStockItem(ctx, r.StockItem.ID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, fmt.Errorf("%w: %s", domain.ErrStockItemNotFound, r.StockItem.ID)
			}
			return nil, err
		}
		out = append(out, recipe.Requirement{StockItem: *item, Quantity: r.Quantity})
	}
	return out, nil
}

// ApplyDelta changes quantity by delta and appends the matching adjustment row.
// A decrement that would go below zero fails with *domain.InsufficientStockError.
func (l *Ledger) ApplyDelta(ctx context.Context, tx Tx, item models.StockItem, delta int64, actor domain.Actor, reason string, refs Refs) (*models.StockAdjustment, error) {
	if delta == 0 {
		return nil, domain.Invalidf("delta must not be zero")
	}

	at := l.now().UTC()
	if _, err := tx.AddStockQuantity(ctx, item.ID, delta, at); err != nil {
		switch {
		case errors.Is(err, store.ErrNegativeQuantity):
			available := item.Quantity
			if current, lookupErr := tx.StockItemByID(ctx, item.ID); lookupErr == nil {
				available = current.Quantity
			}
			return nil, &domain.InsufficientStockError{
				StockItemID: item.ID,
				ItemName:    item.Name,
				Requested:   -delta,
				Available:   available,
			}
		case errors.Is(err, store.ErrNotFound):
			return nil, fmt.Errorf("%w: %s", domain.ErrStockItemNotFound, item.ID)
		default:
			return nil, fmt.Errorf("stock update %s: %w", item.ID, err)
		}
	}

	adj := &models.StockAdjustment{
		StockItemID: item.ID,
		ProductID:   refs.ProductID,
		OrderID:     refs.OrderID,
		LocationID:  item.LocationID,
		Delta:       delta,
		Reason:      reason,
		CreatedAt:   at,
	}
	if actor.UserID != "" {
		uid := actor.UserID
		adj.UserID = &uid
	}
	if err := tx.InsertAdjustment(ctx, adj); err != nil {
		return nil, fmt.Errorf("stock adjustment %s: %w", item.ID, err)
	}
	return adj, nil
}

func SoldReason(orderID string) string {
	return "sold via order " + orderID
}

func RestockReason(orderID string) string {
	return "restocked from cancelled order " + orderID
}
