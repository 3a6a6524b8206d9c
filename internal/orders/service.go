package orders

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"restoran-pos/internal/domain"
	"restoran-pos/internal/ledger"
	"restoran-pos/internal/metrics"
	"restoran-pos/internal/models"
	"restoran-pos/internal/recipe"
	"restoran-pos/internal/sequence"
	"restoran-pos/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const maxTableLength = 50

type ItemInput struct {
	ProductID    string
	Qty          int64
	PriceAtOrder int64
}

type CreateOrderCommand struct {
	LocationID *string
	Table      *string
	Items      []ItemInput
	Actor      domain.Actor
}

type UpdateStatusCommand struct {
	OrderID  string
	Status   string
	Payments []models.Payment
	Actor    domain.Actor
}

type ListFilter struct {
	LocationID *string
	DateKey    string
	Status     string
}

type Service struct {
	store  store.Store
	ledger *ledger.Ledger
	events Publisher
	log    *zap.Logger
	now    func() time.Time
}

type Option func(*Service)

func WithPublisher(p Publisher) Option {
	return func(s *Service) {
		if p != nil {
			s.events = p
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func NewService(st store.Store, opts ...Option) *Service {
	s := &Service{
		store:  st,
		events: noopPublisher{},
		log:    zap.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.ledger = ledger.New(s.now)
	return s
}

func validateItems(items []ItemInput) error {
	if len(items) == 0 {
		return domain.Invalidf("items must not be empty")
	}
	var subtotal int64
	for i, it := range items {
		if strings.TrimSpace(it.ProductID) == "" {
			return domain.Invalidf("items[%d].productId is required", i)
		}
		if it.Qty < 1 {
			return domain.Invalidf("items[%d].qty must be >= 1", i)
		}
		if it.PriceAtOrder < 0 {
			return domain.Invalidf("items[%d].priceAtOrder must be >= 0", i)
		}
		if it.PriceAtOrder > 0 && it.Qty > math.MaxInt64/it.PriceAtOrder {
			return domain.Invalidf("items[%d] line total overflows", i)
		}
		line := it.PriceAtOrder * it.Qty
		if subtotal > math.MaxInt64-line {
			return domain.Invalidf("order total overflows")
		}
		subtotal += line
	}
	return nil
}

func normalizeTable(table *string) (*string, error) {
	if table == nil {
		return nil, nil
	}
	t := strings.TrimSpace(*table)
	if t == "" {
		return nil, nil
	}
	if len(t) > maxTableLength {
		return nil, domain.Invalidf("table must be at most %d characters", maxTableLength)
	}
	return &t, nil
}

// CreateOrder places an order in one transaction: resolve recipes, lock and check stock,
// take the next number for the day and location, persist the order and decrement stock.
// Any failure rolls all of it back.
func (s *Service) CreateOrder(ctx context.Context, cmd CreateOrderCommand) (*models.Order, error) {
	if err := validateItems(cmd.Items); err != nil {
		s.reject(err)
		return nil, err
	}
	table, err := normalizeTable(cmd.Table)
	if err != nil {
		s.reject(err)
		return nil, err
	}
	loc := cmd.LocationID
	if loc != nil && strings.TrimSpace(*loc) == "" {
		loc = nil
	}

	var (
		created  *models.Order
		adjusted int
	)
	err = s.store.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		created, adjusted = nil, 0

		if loc != nil {
			location, err := tx.LocationByID(ctx, *loc)
			if err != nil {
				if errors.Is(err, store.ErrNotFound) {
					return domain.Invalidf("unknown location %s", *loc)
				}
				return err
			}
			if !location.Active {
				return domain.Invalidf("location %s is inactive", location.Name)
			}
		}

		var reqs []recipe.Requirement
		for i, it := range cmd.Items {
			res, err := recipe.Resolve(ctx, tx, it.ProductID, it.Qty, loc, recipe.Options{})
			if err != nil {
				return fmt.Errorf("items[%d]: %w", i, err)
			}
			reqs = append(reqs, res.Requirements...)
		}

		merged, err := ledger.Aggregate(reqs)
		if err != nil {
			return err
		}
		demand, err := s.ledger.Lock(ctx, tx, merged)
		if err != nil {
			return err
		}
		for _, r := range demand {
			if err := ledger.CheckAvailable(r.StockItem, r.Quantity); err != nil {
				return err
			}
		}

		var subtotal int64
		items := make([]models.OrderItem, 0, len(cmd.Items))
		for _, it := range cmd.Items {
			subtotal += it.PriceAtOrder * it.Qty
			items = append(items, models.OrderItem{
				ProductID:    it.ProductID,
				Qty:          it.Qty,
				PriceAtOrder: it.PriceAtOrder,
			})
		}
		// vergi hesabı henüz yok
		var tax int64

		now := s.now().UTC()
		dateKey := sequence.DateKey(now)
		scope := sequence.ScopeKey(dateKey, loc)
		number, err := sequence.Next(ctx, tx, scope)
		if err != nil {
			return err
		}

		order := &models.Order{
			ID:            uuid.NewString(),
			Number:        number,
			SequenceScope: scope,
			DateKey:       dateKey,
			LocationID:    loc,
			Table:         table,
			Items:         items,
			Status:        models.OrderStatusOpen,
			Subtotal:      subtotal,
			Tax:           tax,
			Total:         subtotal + tax,
			Payments:      []models.Payment{},
			CreatedBy:     cmd.Actor.UserID,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if err := tx.InsertOrder(ctx, order); err != nil {
			return fmt.Errorf("insert order: %w", err)
		}

		orderID := order.ID
		for _, r := range demand {
			refs := ledger.Refs{OrderID: &orderID, ProductID: r.StockItem.ProductID}
			if _, err := s.ledger.ApplyDelta(ctx, tx, r.StockItem, -r.Quantity, cmd.Actor, ledger.SoldReason(orderID), refs); err != nil {
				return err
			}
			adjusted++
		}

		created = order
		return nil
	})
	if err != nil {
		s.reject(err)
		return nil, err
	}

	metrics.OrdersCreatedTotal.WithLabelValues(metrics.LocationLabel(created.LocationID)).Inc()
	metrics.StockAdjustmentsTotal.WithLabelValues("out").Add(float64(adjusted))
	s.log.Info("order created",
		zap.String("order_id", created.ID),
		zap.Int64("number", created.Number),
		zap.String("scope", created.SequenceScope),
		zap.Int64("total", created.Total),
		zap.Int("stock_adjustments", adjusted),
		zap.String("user_id", cmd.Actor.UserID))

	evt := newOrderEvent(EventOrderCreated, created, created.CreatedAt, cmd.Actor.UserID)
	evt.Items = created.Items
	s.publish(ctx, SubjectOrderCreated, evt)
	return created, nil
}

func validatePayments(payments []models.Payment) error {
	for i, p := range payments {
		if !p.Type.Valid() {
			return domain.Invalidf("payments[%d].type %q is not supported", i, p.Type)
		}
		if p.Amount < 0 {
			return domain.Invalidf("payments[%d].amount must be >= 0", i)
		}
	}
	return nil
}

// UpdateStatus moves an order along its lifecycle. Cancelling puts every consumed stock
// quantity back in the same transaction as the status write.
func (s *Service) UpdateStatus(ctx context.Context, cmd UpdateStatusCommand) (*models.Order, error) {
	target, err := ParseStatus(cmd.Status)
	if err != nil {
		return nil, err
	}
	if len(cmd.Payments) > 0 && target != models.OrderStatusPaid {
		return nil, domain.Invalidf("payments can only be recorded when status is paid")
	}
	if err := validatePayments(cmd.Payments); err != nil {
		return nil, err
	}

	var (
		updated  *models.Order
		previous models.OrderStatus
		changed  bool
		restored int
	)
	err = s.store.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		updated, changed, restored = nil, false, 0

		order, err := tx.LockOrder(ctx, cmd.OrderID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("%w: %s", domain.ErrOrderNotFound, cmd.OrderID)
			}
			return err
		}
		if !cmd.Actor.CanAccess(order.LocationID) {
			return fmt.Errorf("%w: %s", domain.ErrOrderNotFound, cmd.OrderID)
		}

		previous = normalize(order.Status)
		if previous.IsTerminal() {
			return fmt.Errorf("%w: order is already %s", domain.ErrInvalidTransition, previous)
		}
		if previous == target {
			updated = order
			return nil
		}
		if !CanTransition(previous, target) {
			return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, previous, target)
		}

		if target == models.OrderStatusCancelled {
			n, err := s.restock(ctx, tx, order, cmd.Actor)
			if err != nil {
				return err
			}
			restored = n
		}
		if target == models.OrderStatusPaid && len(cmd.Payments) > 0 {
			order.Payments = append([]models.Payment(nil), cmd.Payments...)
		}

		order.Status = target
		order.UpdatedAt = s.now().UTC()
		if err := tx.SaveOrderStatus(ctx, order); err != nil {
			return fmt.Errorf("save order status: %w", err)
		}
		updated, changed = order, true
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !changed {
		return updated, nil
	}

	metrics.OrderStatusChangesTotal.WithLabelValues(string(previous), string(updated.Status)).Inc()
	if restored > 0 {
		metrics.StockAdjustmentsTotal.WithLabelValues("in").Add(float64(restored))
	}
	s.log.Info("order status changed",
		zap.String("order_id", updated.ID),
		zap.String("from", string(previous)),
		zap.String("to", string(updated.Status)),
		zap.Int("restocked_items", restored),
		zap.String("user_id", cmd.Actor.UserID))

	evt := newOrderEvent(EventOrderStatusChanged, updated, updated.UpdatedAt, cmd.Actor.UserID)
	evt.PreviousStatus = previous
	s.publish(ctx, SubjectOrderStatusChanged, evt)
	return updated, nil
}

// restock re-resolves every line against the order's location and adds the quantities back.
func (s *Service) restock(ctx context.Context, tx store.Tx, order *models.Order, actor domain.Actor) (int, error) {
	var reqs []recipe.Requirement
	for i, it := range order.Items {
		res, err := recipe.Resolve(ctx, tx, it.ProductID, it.Qty, order.LocationID, recipe.Options{IncludeInactive: true})
		if err != nil {
			return 0, fmt.Errorf("restock items[%d]: %w", i, err)
		}
		reqs = append(reqs, res.Requirements...)
	}

	merged, err := ledger.Aggregate(reqs)
	if err != nil {
		return 0, err
	}
	demand, err := s.ledger.Lock(ctx, tx, merged)
	if err != nil {
		return 0, err
	}
	orderID := order.ID
	for _, r := range demand {
		refs := ledger.Refs{OrderID: &orderID, ProductID: r.StockItem.ProductID}
		if _, err := s.ledger.ApplyDelta(ctx, tx, r.StockItem, r.Quantity, actor, ledger.RestockReason(orderID), refs); err != nil {
			return 0, err
		}
	}
	return len(demand), nil
}

func (s *Service) GetOrder(ctx context.Context, actor domain.Actor, id string) (*models.Order, error) {
	var out *models.Order
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		order, err := tx.OrderByID(ctx, id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("%w: %s", domain.ErrOrderNotFound, id)
			}
			return err
		}
		if !actor.CanAccess(order.LocationID) {
			return fmt.Errorf("%w: %s", domain.ErrOrderNotFound, id)
		}
		out = order
		return nil
	})
	return out, err
}

func (s *Service) ListOrders(ctx context.Context, actor domain.Actor, f ListFilter) ([]models.Order, error) {
	filter := store.OrderFilter{
		LocationID: actor.ScopeLocation(f.LocationID),
		DateKey:    f.DateKey,
	}
	if f.Status != "" {
		st, err := ParseStatus(f.Status)
		if err != nil {
			return nil, err
		}
		filter.Status = st
	}
	var out []models.Order
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error
		out, err = tx.ListOrders(ctx, filter)
		return err
	})
	return out, err
}

// Adjustments returns the stock audit trail written for one order.
func (s *Service) Adjustments(ctx context.Context, actor domain.Actor, orderID string) ([]models.StockAdjustment, error) {
	if _, err := s.GetOrder(ctx, actor, orderID); err != nil {
		return nil, err
	}
	var out []models.StockAdjustment
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error
		out, err = tx.ListAdjustments(ctx, store.AdjustmentFilter{OrderID: orderID})
		return err
	})
	return out, err
}

func (s *Service) reject(err error) {
	metrics.OrderRejectionsTotal.WithLabelValues(rejectionReason(err)).Inc()
}

func rejectionReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, domain.ErrProductNotFound):
		return "product_not_found"
	case errors.Is(err, domain.ErrStockItemNotFound):
		return "stock_item_not_found"
	case errors.Is(err, domain.ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, domain.ErrTransactionAborted):
		return "transaction_aborted"
	default:
		return "internal"
	}
}
