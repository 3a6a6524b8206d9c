// Package recipe maps a sold product to the stock it consumes.
package recipe

import (
	"context"
	"errors"
	"fmt"
	"math"

	"restoran-pos/internal/domain"
	"restoran-pos/internal/models"
	"restoran-pos/internal/store"
)

// Mode is resolved once per product.
type Mode int

const (
	// ModeUntracked products never touch stock.
	ModeUntracked Mode = iota
	// ModeRecipeBased products consume one stock item per ingredient.
	ModeRecipeBased
	// ModeDirectStock products are their own stock item in the order's location.
	ModeDirectStock
)

func (m Mode) String() string {
	switch m {
	case ModeRecipeBased:
		return "recipe"
	case ModeDirectStock:
		return "direct"
	default:
		return "untracked"
	}
}

// Requirement is one (stock item, quantity needed) pair.
type Requirement struct {
	StockItem models.StockItem
	Quantity  int64
}

type Resolution struct {
	Mode         Mode
	Product      models.Product
	Requirements []Requirement
}

type Options struct {
	// IncludeInactive lets soft-deleted products resolve (restock of older orders).
	IncludeInactive bool
}

// Lookup is the read surface the resolver needs from a transaction.
type Lookup interface {
	ProductByID(ctx context.Context, id string) (*models.Product, error)
	StockItemByID(ctx context.Context, id string) (*models.StockItem, error)
	StockItemForProduct(ctx context.Context, productID string, locationID *string) (*models.StockItem, error)
}

// Resolve returns the stock a sale of qty units of productID consumes at locationID.
// It only reads; callers decide what to lock and write.
func Resolve(ctx context.Context, tx Lookup, productID string, qty int64, locationID *string, opts Options) (*Resolution, error) {
	product, err := tx.ProductByID(ctx, productID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", domain.ErrProductNotFound, productID)
		}
		return nil, err
	}
	if !product.Active && !opts.IncludeInactive {
		return nil, fmt.Errorf("%w: %s is inactive", domain.ErrProductNotFound, productID)
	}

	res := &Resolution{Mode: ModeUntracked, Product: *product}

	if len(product.Ingredients) > 0 {
		res.Mode = ModeRecipeBased
		res.Requirements = make([]Requirement, 0, len(product.Ingredients))
		for _, ing := range product.Ingredients {
			item, err := tx.StockItemByID(ctx, ing.StockItemID)
			if err != nil {
				if errors.Is(err, store.ErrNotFound) {
					return nil, fmt.Errorf("%w: ingredient %s of %s", domain.ErrStockItemNotFound, ing.StockItemID, product.Name)
				}
				return nil, err
			}
			// başka şubenin stoğu kullanılamaz
			if !domain.SameLocation(item.LocationID, locationID) {
				return nil, fmt.Errorf("%w: %s belongs to another location", domain.ErrStockItemNotFound, item.Name)
			}
			if ing.QtyPerUnit < 1 {
				return nil, domain.Invalidf("%s: qtyPerUnit of %s must be >= 1", product.Name, item.Name)
			}
			if qty > math.MaxInt64/ing.QtyPerUnit {
				return nil, domain.Invalidf("%s: quantity %d overflows stock of %s", product.Name, qty, item.Name)
			}
			res.Requirements = append(res.Requirements, Requirement{
				StockItem: *item,
				Quantity:  ing.QtyPerUnit * qty,
			})
		}
		return res, nil
	}

	if !product.TrackStock {
		return res, nil
	}

	item, err := tx.StockItemForProduct(ctx, product.ID, locationID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return res, nil
		}
		return nil, err
	}
	if !item.TrackStock {
		return res, nil
	}
	res.Mode = ModeDirectStock
	res.Requirements = []Requirement{{StockItem: *item, Quantity: qty}}
	return res, nil
}
