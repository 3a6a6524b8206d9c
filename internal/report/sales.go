// Package report builds sales workbooks from committed orders.
package report

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"restoran-pos/internal/domain"
	"restoran-pos/internal/models"
	"restoran-pos/internal/store"

	"go.uber.org/zap"
)

// maxRange bounds a single report so one request cannot scan years of orders.
const maxRange = 366 * 24 * time.Hour

type StatusTotal struct {
	Status models.OrderStatus
	Count  int
	Total  int64
}

type PaymentTotal struct {
	Type   models.PaymentType
	Count  int
	Amount int64
}

type ProductTotal struct {
	ProductID string
	Name      string
	Qty       int64
	Revenue   int64
}

// Sales is the aggregate of every order created in [From, To).
type Sales struct {
	From       time.Time
	To         time.Time
	LocationID *string
	Orders     []models.Order
	ByStatus   []StatusTotal
	ByPayment  []PaymentTotal
	Products   []ProductTotal
	// Revenue counts paid orders only.
	Revenue int64
}

type Service struct {
	store store.Store
	log   *zap.Logger
}

func NewService(st store.Store, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{store: st, log: log}
}

// Sales loads the orders of [from, to) visible to actor and aggregates them.
func (s *Service) Sales(ctx context.Context, actor domain.Actor, locationID *string, from, to time.Time) (*Sales, error) {
	if !to.After(from) {
		return nil, domain.Invalidf("to must be after from")
	}
	if to.Sub(from) > maxRange {
		return nil, domain.Invalidf("report range must not exceed %d days", int(maxRange.Hours()/24))
	}

	loc := actor.ScopeLocation(locationID)
	var (
		orders []models.Order
		names  = map[string]string{}
	)
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error
		orders, err = tx.ListOrders(ctx, store.OrderFilter{LocationID: loc, From: from, To: to})
		if err != nil {
			return err
		}
		for _, o := range orders {
			for _, it := range o.Items {
				if _, ok := names[it.ProductID]; ok {
					continue
				}
				p, err := tx.ProductByID(ctx, it.ProductID)
				switch {
				case err == nil:
					names[it.ProductID] = p.Name
				case errors.Is(err, store.ErrNotFound):
					names[it.ProductID] = it.ProductID
				default:
					return fmt.Errorf("product %s: %w", it.ProductID, err)
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sales := Aggregate(orders, names)
	sales.From, sales.To, sales.LocationID = from, to, loc
	return sales, nil
}

// Aggregate groups orders by status, payment type and product. Cancelled orders are
// counted in ByStatus only.
func Aggregate(orders []models.Order, names map[string]string) *Sales {
	out := &Sales{Orders: orders}

	statuses := map[models.OrderStatus]*StatusTotal{}
	payments := map[models.PaymentType]*PaymentTotal{}
	products := map[string]*ProductTotal{}

	for _, o := range orders {
		st, ok := statuses[o.Status]
		if !ok {
			st = &StatusTotal{Status: o.Status}
			statuses[o.Status] = st
		}
		st.Count++
		st.Total += o.Total

		if o.Status == models.OrderStatusCancelled {
			continue
		}
		if o.Status == models.OrderStatusPaid {
			out.Revenue += o.Total
		}
		for _, p := range o.Payments {
			pt, ok := payments[p.Type]
			if !ok {
				pt = &PaymentTotal{Type: p.Type}
				payments[p.Type] = pt
			}
			pt.Count++
			pt.Amount += p.Amount
		}
		for _, it := range o.Items {
			pt, ok := products[it.ProductID]
			if !ok {
				name := names[it.ProductID]
				if name == "" {
					name = it.ProductID
				}
				pt = &ProductTotal{ProductID: it.ProductID, Name: name}
				products[it.ProductID] = pt
			}
			pt.Qty += it.Qty
			pt.Revenue += it.Qty * it.PriceAtOrder
		}
	}

	for _, st := range statuses {
		out.ByStatus = append(out.ByStatus, *st)
	}
	sort.Slice(out.ByStatus, func(i, j int) bool { return out.ByStatus[i].Status < out.ByStatus[j].Status })

	for _, pt := range payments {
		out.ByPayment = append(out.ByPayment, *pt)
	}
	sort.Slice(out.ByPayment, func(i, j int) bool { return out.ByPayment[i].Type < out.ByPayment[j].Type })

	for _, pt := range products {
		out.Products = append(out.Products, *pt)
	}
	sort.Slice(out.Products, func(i, j int) bool {
		if out.Products[i].Revenue != out.Products[j].Revenue {
			return out.Products[i].Revenue > out.Products[j].Revenue
		}
		return out.Products[i].Name < out.Products[j].Name
	})
	return out
}
