package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"restoran-pos/internal/audit"
	"restoran-pos/internal/domain"
	"restoran-pos/internal/ledger"
	"restoran-pos/internal/metrics"
	"restoran-pos/internal/models"
	"restoran-pos/internal/store"

	"go.uber.org/zap"
)

const defaultUnit = "pcs"

type Service struct {
	store  store.Store
	ledger *ledger.Ledger
	log    *zap.Logger
}

func NewService(st store.Store, l *ledger.Ledger, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	if l == nil {
		l = ledger.New(nil)
	}
	return &Service{store: st, ledger: l, log: log}
}

// ----------------------------------------
// Products
// ----------------------------------------

type ProductInput struct {
	Name        *string
	SKU         *string
	Description *string
	Category    *string
	Price       *int64
	Ingredients *[]models.Ingredient
	Variants    *[]models.Variant
	TrackStock  *bool
	LocationID  *string
}

func (s *Service) ListProducts(ctx context.Context, actor domain.Actor, f store.ProductFilter) ([]models.Product, error) {
	f.LocationID = actor.ScopeLocation(f.LocationID)
	if !actor.IsAdmin() && actor.Role != models.RoleManager {
		f.IncludeInactive = false
	}
	var out []models.Product
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error
		out, err = tx.ListProducts(ctx, f)
		return err
	})
	return out, err
}

func (s *Service) GetProduct(ctx context.Context, actor domain.Actor, id string) (*models.Product, error) {
	var out *models.Product
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error
		out, err = productInScope(ctx, tx, actor, id)
		return err
	})
	return out, err
}

func productInScope(ctx context.Context, tx store.Tx, actor domain.Actor, id string) (*models.Product, error) {
	p, err := tx.ProductByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", domain.ErrProductNotFound, id)
		}
		return nil, err
	}
	if !actor.CanAccess(p.LocationID) {
		return nil, fmt.Errorf("%w: %s", domain.ErrProductNotFound, id)
	}
	return p, nil
}

// validateRecipe checks that every ingredient points at a stock item of the product's location.
func validateRecipe(ctx context.Context, tx store.Tx, ingredients []models.Ingredient, locationID *string) error {
	seen := make(map[string]bool, len(ingredients))
	for i, ing := range ingredients {
		if strings.TrimSpace(ing.StockItemID) == "" {
			return domain.Invalidf("ingredients[%d].stockItemId is required", i)
		}
		if ing.QtyPerUnit < 1 {
			return domain.Invalidf("ingredients[%d].qtyPerUnit must be >= 1", i)
		}
		if seen[ing.StockItemID] {
			return domain.Invalidf("ingredients[%d] repeats stock item %s", i, ing.StockItemID)
		}
		seen[ing.StockItemID] = true

		item, err := tx.StockItemByID(ctx, ing.StockItemID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("%w: ingredients[%d] %s", domain.ErrStockItemNotFound, i, ing.StockItemID)
			}
			return err
		}
		if !domain.SameLocation(item.LocationID, locationID) {
			return fmt.Errorf("%w: ingredients[%d] %s belongs to another location", domain.ErrStockItemNotFound, i, item.Name)
		}
	}
	return nil
}

func validateVariants(variants []models.Variant) error {
	for i, v := range variants {
		if strings.TrimSpace(v.Name) == "" {
			return domain.Invalidf("variants[%d].name is required", i)
		}
	}
	return nil
}

func (in ProductInput) apply(p *models.Product) error {
	if in.Name != nil {
		p.Name = strings.TrimSpace(*in.Name)
	}
	if in.SKU != nil {
		p.SKU = strings.TrimSpace(*in.SKU)
	}
	if in.Description != nil {
		p.Description = strings.TrimSpace(*in.Description)
	}
	if in.Category != nil {
		p.Category = strings.TrimSpace(*in.Category)
	}
	if in.Price != nil {
		p.Price = *in.Price
	}
	if in.Ingredients != nil {
		p.Ingredients = append([]models.Ingredient{}, (*in.Ingredients)...)
	}
	if in.Variants != nil {
		p.Variants = append([]models.Variant{}, (*in.Variants)...)
	}
	if in.TrackStock != nil {
		p.TrackStock = *in.TrackStock
	}

	if p.Name == "" {
		return domain.Invalidf("name is required")
	}
	if p.Price < 0 {
		return domain.Invalidf("price must be >= 0")
	}
	return validateVariants(p.Variants)
}

func (s *Service) CreateProduct(ctx context.Context, actor domain.Actor, in ProductInput) (*models.Product, error) {
	p := &models.Product{
		Ingredients: []models.Ingredient{},
		Variants:    []models.Variant{},
		Active:      true,
		LocationID:  actor.ScopeLocation(cleanID(in.LocationID)),
	}
	if err := in.apply(p); err != nil {
		return nil, err
	}

	err := s.store.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		if err := checkLocation(ctx, tx, p.LocationID); err != nil {
			return err
		}
		if err := validateRecipe(ctx, tx, p.Ingredients, p.LocationID); err != nil {
			return err
		}
		if err := tx.CreateProduct(ctx, p); err != nil {
			return err
		}
		return audit.WriteLog(ctx, tx, audit.LogOptions{
			LocationID:  p.LocationID,
			Actor:       actor,
			EntityType:  audit.EntityProduct,
			EntityID:    p.ID,
			Action:      models.AuditActionCreate,
			Description: "Ürün oluşturuldu: " + p.Name,
			After:       p,
		})
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) UpdateProduct(ctx context.Context, actor domain.Actor, id string, in ProductInput) (*models.Product, error) {
	var out *models.Product
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		p, err := productInScope(ctx, tx, actor, id)
		if err != nil {
			return err
		}
		before := *p

		if in.LocationID != nil && actor.IsAdmin() {
			p.LocationID = cleanID(in.LocationID)
			if err := checkLocation(ctx, tx, p.LocationID); err != nil {
				return err
			}
		}
		if err := in.apply(p); err != nil {
			return err
		}
		if err := validateRecipe(ctx, tx, p.Ingredients, p.LocationID); err != nil {
			return err
		}
		if err := tx.SaveProduct(ctx, p); err != nil {
			return err
		}
		out = p
		return audit.WriteLog(ctx, tx, audit.LogOptions{
			LocationID:  p.LocationID,
			Actor:       actor,
			EntityType:  audit.EntityProduct,
			EntityID:    p.ID,
			Action:      models.AuditActionUpdate,
			Description: "Ürün güncellendi: " + p.Name,
			Before:      before,
			After:       p,
		})
	})
	return out, err
}

// DeleteProduct only deactivates; past orders keep resolving the product for restock.
func (s *Service) DeleteProduct(ctx context.Context, actor domain.Actor, id string) error {
	return s.store.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		p, err := productInScope(ctx, tx, actor, id)
		if err != nil {
			return err
		}
		if !p.Active {
			return nil
		}
		before := *p
		p.Active = false
		if err := tx.SaveProduct(ctx, p); err != nil {
			return err
		}
		return audit.WriteLog(ctx, tx, audit.LogOptions{
			LocationID:  p.LocationID,
			Actor:       actor,
			EntityType:  audit.EntityProduct,
			EntityID:    p.ID,
			Action:      models.AuditActionDelete,
			Description: "Ürün pasife alındı: " + p.Name,
			Before:      before,
			After:       p,
		})
	})
}

// cleanID trims an optional id, treating blank as absent.
func cleanID(id *string) *string {
	if id == nil {
		return nil
	}
	v := strings.TrimSpace(*id)
	if v == "" {
		return nil
	}
	return &v
}

func checkLocation(ctx context.Context, tx store.Tx, locationID *string) error {
	if locationID == nil {
		return nil
	}
	if _, err := tx.LocationByID(ctx, *locationID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Invalidf("unknown location %s", *locationID)
		}
		return err
	}
	return nil
}

// ----------------------------------------
// Stock items
// ----------------------------------------

type StockItemInput struct {
	Name       *string
	ProductID  *string
	Quantity   *int64
	Unit       *string
	TrackStock *bool
	LocationID *string
}

func (s *Service) ListStockItems(ctx context.Context, actor domain.Actor, f store.StockItemFilter) ([]models.StockItem, error) {
	f.LocationID = actor.ScopeLocation(f.LocationID)
	var out []models.StockItem
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error
		out, err = tx.ListStockItems(ctx, f)
		return err
	})
	return out, err
}

func stockItemInScope(ctx context.Context, tx store.Tx, actor domain.Actor, id string) (*models.StockItem, error) {
	item, err := tx.StockItemByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", domain.ErrStockItemNotFound, id)
		}
		return nil, err
	}
	if !actor.CanAccess(item.LocationID) {
		return nil, fmt.Errorf("%w: %s", domain.ErrStockItemNotFound, id)
	}
	return item, nil
}

func (s *Service) GetStockItem(ctx context.Context, actor domain.Actor, id string) (*models.StockItem, error) {
	var out *models.StockItem
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error
		out, err = stockItemInScope(ctx, tx, actor, id)
		return err
	})
	return out, err
}

func checkProductLink(ctx context.Context, tx store.Tx, productID *string, locationID *string, selfID string) error {
	if productID == nil {
		return nil
	}
	if _, err := tx.ProductByID(ctx, *productID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("%w: %s", domain.ErrProductNotFound, *productID)
		}
		return err
	}
	existing, err := tx.StockItemForProduct(ctx, *productID, locationID)
	if err == nil && existing.ID != selfID {
		return fmt.Errorf("%w: product already has stock item %s in this location", domain.ErrConflict, existing.Name)
	}
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return err
	}
	return nil
}

// CreateStockItem stores the item at zero and books any initial quantity through the
// ledger so the opening balance has an adjustment row.
func (s *Service) CreateStockItem(ctx context.Context, actor domain.Actor, in StockItemInput) (*models.StockItem, error) {
	item := &models.StockItem{
		Unit:       defaultUnit,
		TrackStock: true,
		LocationID: actor.ScopeLocation(cleanID(in.LocationID)),
	}
	if in.Name != nil {
		item.Name = strings.TrimSpace(*in.Name)
	}
	if item.Name == "" {
		return nil, domain.Invalidf("name is required")
	}
	if in.Unit != nil && strings.TrimSpace(*in.Unit) != "" {
		item.Unit = strings.TrimSpace(*in.Unit)
	}
	if in.TrackStock != nil {
		item.TrackStock = *in.TrackStock
	}
	item.ProductID = cleanID(in.ProductID)
	var initial int64
	if in.Quantity != nil {
		initial = *in.Quantity
	}
	if initial < 0 {
		return nil, domain.Invalidf("quantity must be >= 0")
	}

	err := s.store.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		if err := checkLocation(ctx, tx, item.LocationID); err != nil {
			return err
		}
		if err := checkProductLink(ctx, tx, item.ProductID, item.LocationID, ""); err != nil {
			return err
		}
		item.Quantity = 0
		if err := tx.CreateStockItem(ctx, item); err != nil {
			return err
		}
		if initial > 0 {
			if _, err := s.ledger.ApplyDelta(ctx, tx, *item, initial, actor, "initial stock", ledger.Refs{ProductID: item.ProductID}); err != nil {
				return err
			}
			item.Quantity = initial
		}
		return audit.WriteLog(ctx, tx, audit.LogOptions{
			LocationID:  item.LocationID,
			Actor:       actor,
			EntityType:  audit.EntityStockItem,
			EntityID:    item.ID,
			Action:      models.AuditActionCreate,
			Description: "Stok kalemi oluşturuldu: " + item.Name,
			After:       item,
		})
	})
	if err != nil {
		return nil, err
	}
	if initial > 0 {
		metrics.StockAdjustmentsTotal.WithLabelValues("in").Inc()
	}
	return item, nil
}

// UpdateStockItem edits metadata only. Quantity changes go through adjustments.
func (s *Service) UpdateStockItem(ctx context.Context, actor domain.Actor, id string, in StockItemInput) (*models.StockItem, error) {
	if in.Quantity != nil {
		return nil, domain.Invalidf("quantity cannot be updated directly, post an adjustment instead")
	}
	var out *models.StockItem
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		item, err := stockItemInScope(ctx, tx, actor, id)
		if err != nil {
			return err
		}
		before := *item

		if in.Name != nil {
			item.Name = strings.TrimSpace(*in.Name)
			if item.Name == "" {
				return domain.Invalidf("name is required")
			}
		}
		if in.Unit != nil && strings.TrimSpace(*in.Unit) != "" {
			item.Unit = strings.TrimSpace(*in.Unit)
		}
		if in.TrackStock != nil {
			item.TrackStock = *in.TrackStock
		}
		if in.ProductID != nil {
			item.ProductID = cleanID(in.ProductID)
			if err := checkProductLink(ctx, tx, item.ProductID, item.LocationID, item.ID); err != nil {
				return err
			}
		}

		if err := tx.SaveStockItemDetails(ctx, item); err != nil {
			return err
		}
		out = item
		return audit.WriteLog(ctx, tx, audit.LogOptions{
			LocationID:  item.LocationID,
			Actor:       actor,
			EntityType:  audit.EntityStockItem,
			EntityID:    item.ID,
			Action:      models.AuditActionUpdate,
			Description: "Stok kalemi güncellendi: " + item.Name,
			Before:      before,
			After:       item,
		})
	})
	return out, err
}

// DeleteStockItem refuses while the item still holds stock or an active recipe uses it.
func (s *Service) DeleteStockItem(ctx context.Context, actor domain.Actor, id string) error {
	return s.store.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		item, err := stockItemInScope(ctx, tx, actor, id)
		if err != nil {
			return err
		}
		if item.Quantity != 0 {
			return fmt.Errorf("%w: %s still holds %d %s", domain.ErrConflict, item.Name, item.Quantity, item.Unit)
		}
		products, err := tx.ListProducts(ctx, store.ProductFilter{LocationID: item.LocationID})
		if err != nil {
			return err
		}
		for _, p := range products {
			for _, ing := range p.Ingredients {
				if ing.StockItemID == item.ID {
					return fmt.Errorf("%w: %s is used by product %s", domain.ErrConflict, item.Name, p.Name)
				}
			}
		}
		if err := tx.DeleteStockItem(ctx, item.ID); err != nil {
			return err
		}
		return audit.WriteLog(ctx, tx, audit.LogOptions{
			LocationID:  item.LocationID,
			Actor:       actor,
			EntityType:  audit.EntityStockItem,
			EntityID:    item.ID,
			Action:      models.AuditActionDelete,
			Description: "Stok kalemi silindi: " + item.Name,
			Before:      item,
		})
	})
}

// ----------------------------------------
// Adjustments
// ----------------------------------------

type AdjustmentInput struct {
	StockItemID string
	Delta       int64
	Reason      string
}

// Adjust books a manual correction (delivery, waste, count) through the ledger.
func (s *Service) Adjust(ctx context.Context, actor domain.Actor, in AdjustmentInput) (*models.StockAdjustment, error) {
	in.Reason = strings.TrimSpace(in.Reason)
	if in.StockItemID == "" {
		return nil, domain.Invalidf("stockItemId is required")
	}
	if in.Delta == 0 {
		return nil, domain.Invalidf("delta must not be zero")
	}
	if in.Reason == "" {
		return nil, domain.Invalidf("reason is required")
	}

	var adj *models.StockAdjustment
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		item, err := stockItemInScope(ctx, tx, actor, in.StockItemID)
		if err != nil {
			return err
		}
		locked, err := tx.LockStockItem(ctx, item.ID)
		if err != nil {
			return err
		}
		if in.Delta < 0 {
			if err := ledger.CheckAvailable(*locked, -in.Delta); err != nil {
				return err
			}
		}
		adj, err = s.ledger.ApplyDelta(ctx, tx, *locked, in.Delta, actor, in.Reason, ledger.Refs{ProductID: locked.ProductID})
		return err
	})
	if err != nil {
		return nil, err
	}

	direction := "in"
	if adj.Delta < 0 {
		direction = "out"
	}
	metrics.StockAdjustmentsTotal.WithLabelValues(direction).Inc()
	s.log.Info("manual stock adjustment",
		zap.String("stock_item_id", adj.StockItemID),
		zap.Int64("delta", adj.Delta),
		zap.String("reason", adj.Reason),
		zap.String("user_id", actor.UserID))
	return adj, nil
}

func (s *Service) ListAdjustments(ctx context.Context, actor domain.Actor, f store.AdjustmentFilter) ([]models.StockAdjustment, error) {
	f.LocationID = actor.ScopeLocation(f.LocationID)
	var out []models.StockAdjustment
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error
		out, err = tx.ListAdjustments(ctx, f)
		return err
	})
	return out, err
}
