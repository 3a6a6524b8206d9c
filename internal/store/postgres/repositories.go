package postgres

import (
	"context"
	"time"

	"restoran-pos/internal/models"
	"restoran-pos/internal/store"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type tx struct {
	db *gorm.DB
}

var _ store.Tx = (*tx)(nil)

func (t *tx) q(ctx context.Context) *gorm.DB {
	return t.db.WithContext(ctx)
}

func ensureID(id *string) {
	if *id == "" {
		*id = uuid.NewString()
	}
}

func whereLocation(db *gorm.DB, column string, locationID *string) *gorm.DB {
	if locationID == nil {
		return db
	}
	return db.Where(column+" = ?", *locationID)
}

// updateAll writes every column except created_at and reports ErrNotFound when no row matched.
func updateAll(db *gorm.DB, model any) error {
	res := db.Model(model).Select("*").Omit("created_at").Updates(model)
	if res.Error != nil {
		return mapErr(res.Error)
	}
	if res.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

// ----------------------------------------
// Locations
// ----------------------------------------

func (t *tx) CreateLocation(ctx context.Context, l *models.Location) error {
	ensureID(&l.ID)
	return mapErr(t.q(ctx).Create(l).Error)
}

func (t *tx) SaveLocation(ctx context.Context, l *models.Location) error {
	return updateAll(t.q(ctx), l)
}

func (t *tx) LocationByID(ctx context.Context, id string) (*models.Location, error) {
	var l models.Location
	if err := t.q(ctx).First(&l, "id = ?", id).Error; err != nil {
		return nil, mapErr(err)
	}
	return &l, nil
}

func (t *tx) ListLocations(ctx context.Context) ([]models.Location, error) {
	var out []models.Location
	if err := t.q(ctx).Order("name asc").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// ----------------------------------------
// Users & refresh tokens
// ----------------------------------------

func (t *tx) CreateUser(ctx context.Context, u *models.User) error {
	ensureID(&u.ID)
	return mapErr(t.q(ctx).Create(u).Error)
}

func (t *tx) UserByID(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	if err := t.q(ctx).First(&u, "id = ?", id).Error; err != nil {
		return nil, mapErr(err)
	}
	return &u, nil
}

func (t *tx) UserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	if err := t.q(ctx).First(&u, "email = ?", email).Error; err != nil {
		return nil, mapErr(err)
	}
	return &u, nil
}

func (t *tx) CountUsersByRole(ctx context.Context, role models.UserRole) (int64, error) {
	var n int64
	err := t.q(ctx).Model(&models.User{}).Where("role = ?", role).Count(&n).Error
	return n, err
}

func (t *tx) ListUsers(ctx context.Context, locationID *string) ([]models.User, error) {
	var out []models.User
	dbq := whereLocation(t.q(ctx), "location_id", locationID)
	if err := dbq.Order("name asc").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (t *tx) CreateRefreshToken(ctx context.Context, rt *models.RefreshToken) error {
	ensureID(&rt.ID)
	return mapErr(t.q(ctx).Create(rt).Error)
}

func (t *tx) RefreshTokenByToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	var rt models.RefreshToken
	if err := t.q(ctx).First(&rt, "token = ?", token).Error; err != nil {
		return nil, mapErr(err)
	}
	return &rt, nil
}

func (t *tx) SaveRefreshToken(ctx context.Context, rt *models.RefreshToken) error {
	return updateAll(t.q(ctx), rt)
}

// ----------------------------------------
// Products
// ----------------------------------------

func (t *tx) CreateProduct(ctx context.Context, p *models.Product) error {
	ensureID(&p.ID)
	return mapErr(t.q(ctx).Create(p).Error)
}

func (t *tx) SaveProduct(ctx context.Context, p *models.Product) error {
	return updateAll(t.q(ctx), p)
}

func (t *tx) ProductByID(ctx context.Context, id string) (*models.Product, error) {
	var p models.Product
	if err := t.q(ctx).First(&p, "id = ?", id).Error; err != nil {
		return nil, mapErr(err)
	}
	return &p, nil
}

func (t *tx) ListProducts(ctx context.Context, f store.ProductFilter) ([]models.Product, error) {
	dbq := whereLocation(t.q(ctx).Model(&models.Product{}), "location_id", f.LocationID)
	if !f.IncludeInactive {
		dbq = dbq.Where("active = ?", true)
	}
	if f.Category != "" {
		dbq = dbq.Where("category = ?", f.Category)
	}
	var out []models.Product
	if err := dbq.Order("name asc").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// ----------------------------------------
// Stock items
// ----------------------------------------

func (t *tx) CreateStockItem(ctx context.Context, s *models.StockItem) error {
	if s.Quantity < 0 {
		return store.ErrNegativeQuantity
	}
	ensureID(&s.ID)
	if s.LastUpdated.IsZero() {
		s.LastUpdated = time.Now().UTC()
	}
	return mapErr(t.q(ctx).Create(s).Error)
}

func (t *tx) SaveStockItemDetails(ctx context.Context, s *models.StockItem) error {
	res := t.q(ctx).Model(&models.StockItem{ID: s.ID}).
		Select("name", "product_id", "unit", "location_id", "track_stock", "updated_at").
		Updates(s)
	if res.Error != nil {
		return mapErr(res.Error)
	}
	if res.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (t *tx) DeleteStockItem(ctx context.Context, id string) error {
	res := t.q(ctx).Delete(&models.StockItem{}, "id = ?", id)
	if res.Error != nil {
		return mapErr(res.Error)
	}
	if res.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (t *tx) StockItemByID(ctx context.Context, id string) (*models.StockItem, error) {
	var s models.StockItem
	if err := t.q(ctx).First(&s, "id = ?", id).Error; err != nil {
		return nil, mapErr(err)
	}
	return &s, nil
}

func (t *tx) LockStockItem(ctx context.Context, id string) (*models.StockItem, error) {
	var s models.StockItem
	err := t.q(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).First(&s, "id = ?", id).Error
	if err != nil {
		return nil, mapErr(err)
	}
	return &s, nil
}

func (t *tx) StockItemForProduct(ctx context.Context, productID string, locationID *string) (*models.StockItem, error) {
	dbq := t.q(ctx).Where("product_id = ?", productID)
	if locationID == nil {
		dbq = dbq.Where("location_id IS NULL")
	} else {
		dbq = dbq.Where("location_id = ?", *locationID)
	}
	var s models.StockItem
	if err := dbq.First(&s).Error; err != nil {
		return nil, mapErr(err)
	}
	return &s, nil
}

func (t *tx) ListStockItems(ctx context.Context, f store.StockItemFilter) ([]models.StockItem, error) {
	dbq := whereLocation(t.q(ctx).Model(&models.StockItem{}), "location_id", f.LocationID)
	if f.ProductID != "" {
		dbq = dbq.Where("product_id = ?", f.ProductID)
	}
	var out []models.StockItem
	if err := dbq.Order("name asc").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// AddStockQuantity is a compare-and-set: the WHERE clause rejects any delta that
// would leave the row negative, so two racing decrements cannot both succeed.
func (t *tx) AddStockQuantity(ctx context.Context, id string, delta int64, at time.Time) (*models.StockItem, error) {
	res := t.q(ctx).Model(&models.StockItem{}).
		Where("id = ? AND quantity + ? >= 0", id, delta).
		Updates(map[string]any{
			"quantity":     gorm.Expr("quantity + ?", delta),
			"last_updated": at,
			"updated_at":   at,
		})
	if res.Error != nil {
		return nil, mapErr(res.Error)
	}
	if res.RowsAffected == 0 {
		if _, err := t.StockItemByID(ctx, id); err != nil {
			return nil, err
		}
		return nil, store.ErrNegativeQuantity
	}
	return t.StockItemByID(ctx, id)
}

// ----------------------------------------
// Adjustments, counters
// ----------------------------------------

func (t *tx) InsertAdjustment(ctx context.Context, a *models.StockAdjustment) error {
	ensureID(&a.ID)
	return mapErr(t.q(ctx).Create(a).Error)
}

func (t *tx) ListAdjustments(ctx context.Context, f store.AdjustmentFilter) ([]models.StockAdjustment, error) {
	dbq := whereLocation(t.q(ctx).Model(&models.StockAdjustment{}), "location_id", f.LocationID)
	if f.StockItemID != "" {
		dbq = dbq.Where("stock_item_id = ?", f.StockItemID)
	}
	if f.OrderID != "" {
		dbq = dbq.Where("order_id = ?", f.OrderID)
	}
	var out []models.StockAdjustment
	if err := dbq.Order("created_at desc").Order("id").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// IncrementCounter upserts in one statement. A concurrent transaction on the same key
// waits on the row lock until this one commits or rolls back.
func (t *tx) IncrementCounter(ctx context.Context, key string) (int64, error) {
	var seq int64
	err := t.q(ctx).Raw(`
		INSERT INTO sequence_counters (id, seq) VALUES (?, 1)
		ON CONFLICT (id) DO UPDATE SET seq = sequence_counters.seq + 1
		RETURNING seq`, key).Scan(&seq).Error
	if err != nil {
		return 0, mapErr(err)
	}
	return seq, nil
}

// ----------------------------------------
// Orders
// ----------------------------------------

func (t *tx) InsertOrder(ctx context.Context, o *models.Order) error {
	ensureID(&o.ID)
	return mapErr(t.q(ctx).Create(o).Error)
}

func (t *tx) OrderByID(ctx context.Context, id string) (*models.Order, error) {
	var o models.Order
	if err := t.q(ctx).First(&o, "id = ?", id).Error; err != nil {
		return nil, mapErr(err)
	}
	return &o, nil
}

func (t *tx) LockOrder(ctx context.Context, id string) (*models.Order, error) {
	var o models.Order
	err := t.q(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).First(&o, "id = ?", id).Error
	if err != nil {
		return nil, mapErr(err)
	}
	return &o, nil
}

func (t *tx) SaveOrderStatus(ctx context.Context, o *models.Order) error {
	res := t.q(ctx).Model(&models.Order{ID: o.ID}).
		Select("status", "payments", "updated_at").
		Updates(o)
	if res.Error != nil {
		return mapErr(res.Error)
	}
	if res.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (t *tx) ListOrders(ctx context.Context, f store.OrderFilter) ([]models.Order, error) {
	dbq := whereLocation(t.q(ctx).Model(&models.Order{}), "location_id", f.LocationID)
	if f.DateKey != "" {
		dbq = dbq.Where("date_key = ?", f.DateKey)
	}
	if f.Status != "" {
		dbq = dbq.Where("status = ?", f.Status)
	}
	if !f.From.IsZero() {
		dbq = dbq.Where("created_at >= ?", f.From)
	}
	if !f.To.IsZero() {
		dbq = dbq.Where("created_at < ?", f.To)
	}
	var out []models.Order
	if err := dbq.Order("created_at desc").Order("number desc").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// ----------------------------------------
// Audit logs
// ----------------------------------------

func (t *tx) InsertAuditLog(ctx context.Context, l *models.AuditLog) error {
	ensureID(&l.ID)
	return mapErr(t.q(ctx).Create(l).Error)
}

func (t *tx) ListAuditLogs(ctx context.Context, f store.AuditLogFilter) ([]models.AuditLog, error) {
	dbq := whereLocation(t.q(ctx).Model(&models.AuditLog{}), "location_id", f.LocationID)
	if f.UserID != "" {
		dbq = dbq.Where("user_id = ?", f.UserID)
	}
	if f.EntityType != "" {
		dbq = dbq.Where("entity_type = ?", f.EntityType)
	}
	if f.EntityID != "" {
		dbq = dbq.Where("entity_id = ?", f.EntityID)
	}
	var out []models.AuditLog
	if err := dbq.Order("created_at desc").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (t *tx) AuditLogByID(ctx context.Context, id string) (*models.AuditLog, error) {
	var l models.AuditLog
	if err := t.q(ctx).First(&l, "id = ?", id).Error; err != nil {
		return nil, mapErr(err)
	}
	return &l, nil
}

func (t *tx) MarkAuditLogUndone(ctx context.Context, id, userID string, at time.Time) (bool, error) {
	res := t.q(ctx).Model(&models.AuditLog{}).
		Where("id = ? AND is_undone = ?", id, false).
		Updates(map[string]any{"is_undone": true, "undone_by": userID, "undone_at": at})
	if res.Error != nil {
		return false, mapErr(res.Error)
	}
	return res.RowsAffected == 1, nil
}
