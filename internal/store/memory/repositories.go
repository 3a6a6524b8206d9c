package memory

import (
	"context"
	"sort"
	"time"

	"restoran-pos/internal/models"
	"restoran-pos/internal/store"

	"github.com/google/uuid"
)

func ensureID(id *string) {
	if *id == "" {
		*id = uuid.NewString()
	}
}

func stamp(created, updated *time.Time, now time.Time) {
	if created != nil && created.IsZero() {
		*created = now
	}
	if updated != nil {
		*updated = now
	}
}

func copyProduct(p models.Product) models.Product {
	p.Ingredients = append([]models.Ingredient(nil), p.Ingredients...)
	p.Variants = append([]models.Variant(nil), p.Variants...)
	return p
}

func copyOrder(o models.Order) models.Order {
	o.Items = append([]models.OrderItem(nil), o.Items...)
	o.Payments = append([]models.Payment(nil), o.Payments...)
	return o
}

// ----------------------------------------
// Locations
// ----------------------------------------

func (t *tx) CreateLocation(_ context.Context, l *models.Location) error {
	for _, existing := range t.st.locations {
		if existing.Name == l.Name {
			return store.ErrDuplicate
		}
	}
	ensureID(&l.ID)
	stamp(&l.CreatedAt, &l.UpdatedAt, t.now())
	t.st.locations[l.ID] = *l
	return nil
}

func (t *tx) SaveLocation(_ context.Context, l *models.Location) error {
	if _, ok := t.st.locations[l.ID]; !ok {
		return store.ErrNotFound
	}
	for id, existing := range t.st.locations {
		if id != l.ID && existing.Name == l.Name {
			return store.ErrDuplicate
		}
	}
	stamp(nil, &l.UpdatedAt, t.now())
	t.st.locations[l.ID] = *l
	return nil
}

func (t *tx) LocationByID(_ context.Context, id string) (*models.Location, error) {
	l, ok := t.st.locations[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &l, nil
}

func (t *tx) ListLocations(context.Context) ([]models.Location, error) {
	out := make([]models.Location, 0, len(t.st.locations))
	for _, l := range t.st.locations {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// ----------------------------------------
// Users & refresh tokens
// ----------------------------------------

func (t *tx) CreateUser(_ context.Context, u *models.User) error {
	for _, existing := range t.st.users {
		if existing.Email == u.Email {
			return store.ErrDuplicate
		}
	}
	ensureID(&u.ID)
	stamp(&u.CreatedAt, &u.UpdatedAt, t.now())
	t.st.users[u.ID] = *u
	return nil
}

func (t *tx) UserByID(_ context.Context, id string) (*models.User, error) {
	u, ok := t.st.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &u, nil
}

func (t *tx) UserByEmail(_ context.Context, email string) (*models.User, error) {
	for _, u := range t.st.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, store.ErrNotFound
}

func (t *tx) CountUsersByRole(_ context.Context, role models.UserRole) (int64, error) {
	var n int64
	for _, u := range t.st.users {
		if u.Role == role {
			n++
		}
	}
	return n, nil
}

func (t *tx) ListUsers(_ context.Context, locationID *string) ([]models.User, error) {
	out := make([]models.User, 0)
	for _, u := range t.st.users {
		if matchesLocation(locationID, u.LocationID) {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (t *tx) CreateRefreshToken(_ context.Context, rt *models.RefreshToken) error {
	for _, existing := range t.st.refreshTokens {
		if existing.Token == rt.Token {
			return store.ErrDuplicate
		}
	}
	ensureID(&rt.ID)
	stamp(&rt.CreatedAt, nil, t.now())
	t.st.refreshTokens[rt.ID] = *rt
	return nil
}

func (t *tx) RefreshTokenByToken(_ context.Context, token string) (*models.RefreshToken, error) {
	for _, rt := range t.st.refreshTokens {
		if rt.Token == token {
			return &rt, nil
		}
	}
	return nil, store.ErrNotFound
}

func (t *tx) SaveRefreshToken(_ context.Context, rt *models.RefreshToken) error {
	if _, ok := t.st.refreshTokens[rt.ID]; !ok {
		return store.ErrNotFound
	}
	t.st.refreshTokens[rt.ID] = *rt
	return nil
}

// ----------------------------------------
// Products
// ----------------------------------------

func (t *tx) CreateProduct(_ context.Context, p *models.Product) error {
	ensureID(&p.ID)
	stamp(&p.CreatedAt, &p.UpdatedAt, t.now())
	t.st.products[p.ID] = copyProduct(*p)
	return nil
}

func (t *tx) SaveProduct(_ context.Context, p *models.Product) error {
	if _, ok := t.st.products[p.ID]; !ok {
		return store.ErrNotFound
	}
	stamp(nil, &p.UpdatedAt, t.now())
	t.st.products[p.ID] = copyProduct(*p)
	return nil
}

func (t *tx) ProductByID(_ context.Context, id string) (*models.Product, error) {
	p, ok := t.st.products[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	p = copyProduct(p)
	return &p, nil
}

func (t *tx) ListProducts(_ context.Context, f store.ProductFilter) ([]models.Product, error) {
	out := make([]models.Product, 0)
	for _, p := range t.st.products {
		if !f.IncludeInactive && !p.Active {
			continue
		}
		if f.Category != "" && p.Category != f.Category {
			continue
		}
		if !matchesLocation(f.LocationID, p.LocationID) {
			continue
		}
		out = append(out, copyProduct(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// ----------------------------------------
// Stock items
// ----------------------------------------

// linkTaken reports whether another stock item already links productID in the same location.
func (t *tx) linkTaken(s *models.StockItem) bool {
	if s.ProductID == nil {
		return false
	}
	for id, existing := range t.st.stockItems {
		if id != s.ID && existing.ProductID != nil && *existing.ProductID == *s.ProductID &&
			sameLocation(existing.LocationID, s.LocationID) {
			return true
		}
	}
	return false
}

func (t *tx) CreateStockItem(_ context.Context, s *models.StockItem) error {
	if s.Quantity < 0 {
		return store.ErrNegativeQuantity
	}
	if t.linkTaken(s) {
		return store.ErrDuplicate
	}
	ensureID(&s.ID)
	now := t.now()
	stamp(&s.CreatedAt, &s.UpdatedAt, now)
	s.LastUpdated = now
	t.st.stockItems[s.ID] = *s
	return nil
}

func (t *tx) SaveStockItemDetails(_ context.Context, s *models.StockItem) error {
	current, ok := t.st.stockItems[s.ID]
	if !ok {
		return store.ErrNotFound
	}
	if t.linkTaken(s) {
		return store.ErrDuplicate
	}
	stamp(nil, &s.UpdatedAt, t.now())
	s.Quantity = current.Quantity
	s.LastUpdated = current.LastUpdated
	s.CreatedAt = current.CreatedAt
	t.st.stockItems[s.ID] = *s
	return nil
}

func (t *tx) DeleteStockItem(_ context.Context, id string) error {
	if _, ok := t.st.stockItems[id]; !ok {
		return store.ErrNotFound
	}
	delete(t.st.stockItems, id)
	return nil
}

func (t *tx) StockItemByID(_ context.Context, id string) (*models.StockItem, error) {
	s, ok := t.st.stockItems[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &s, nil
}

func (t *tx) LockStockItem(ctx context.Context, id string) (*models.StockItem, error) {
	return t.StockItemByID(ctx, id)
}

func (t *tx) StockItemForProduct(_ context.Context, productID string, locationID *string) (*models.StockItem, error) {
	var found *models.StockItem
	for _, s := range t.st.stockItems {
		if s.ProductID != nil && *s.ProductID == productID && sameLocation(s.LocationID, locationID) {
			if found == nil || s.ID < found.ID {
				s := s
				found = &s
			}
		}
	}
	if found == nil {
		return nil, store.ErrNotFound
	}
	return found, nil
}

func (t *tx) ListStockItems(_ context.Context, f store.StockItemFilter) ([]models.StockItem, error) {
	out := make([]models.StockItem, 0)
	for _, s := range t.st.stockItems {
		if !matchesLocation(f.LocationID, s.LocationID) {
			continue
		}
		if f.ProductID != "" && (s.ProductID == nil || *s.ProductID != f.ProductID) {
			continue
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (t *tx) AddStockQuantity(_ context.Context, id string, delta int64, at time.Time) (*models.StockItem, error) {
	s, ok := t.st.stockItems[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if s.Quantity+delta < 0 {
		return nil, store.ErrNegativeQuantity
	}
	s.Quantity += delta
	s.LastUpdated = at
	s.UpdatedAt = at
	t.st.stockItems[id] = s
	return &s, nil
}

// ----------------------------------------
// Adjustments, counters
// ----------------------------------------

func (t *tx) InsertAdjustment(_ context.Context, a *models.StockAdjustment) error {
	ensureID(&a.ID)
	stamp(&a.CreatedAt, nil, t.now())
	t.st.adjustments = append(t.st.adjustments, *a)
	return nil
}

func (t *tx) ListAdjustments(_ context.Context, f store.AdjustmentFilter) ([]models.StockAdjustment, error) {
	out := make([]models.StockAdjustment, 0)
	// en yeni önce
	for i := len(t.st.adjustments) - 1; i >= 0; i-- {
		a := t.st.adjustments[i]
		if !matchesLocation(f.LocationID, a.LocationID) {
			continue
		}
		if f.StockItemID != "" && a.StockItemID != f.StockItemID {
			continue
		}
		if f.OrderID != "" && (a.OrderID == nil || *a.OrderID != f.OrderID) {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func (t *tx) IncrementCounter(_ context.Context, key string) (int64, error) {
	t.st.counters[key]++
	return t.st.counters[key], nil
}

// ----------------------------------------
// Orders
// ----------------------------------------

func (t *tx) InsertOrder(_ context.Context, o *models.Order) error {
	for _, existing := range t.st.orders {
		if existing.SequenceScope == o.SequenceScope && existing.Number == o.Number {
			return store.ErrDuplicate
		}
	}
	ensureID(&o.ID)
	stamp(&o.CreatedAt, &o.UpdatedAt, t.now())
	t.st.orders[o.ID] = copyOrder(*o)
	return nil
}

func (t *tx) OrderByID(_ context.Context, id string) (*models.Order, error) {
	o, ok := t.st.orders[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	o = copyOrder(o)
	return &o, nil
}

func (t *tx) LockOrder(ctx context.Context, id string) (*models.Order, error) {
	return t.OrderByID(ctx, id)
}

func (t *tx) SaveOrderStatus(_ context.Context, o *models.Order) error {
	current, ok := t.st.orders[o.ID]
	if !ok {
		return store.ErrNotFound
	}
	stamp(nil, &o.UpdatedAt, t.now())
	current.Status = o.Status
	current.Payments = append([]models.Payment(nil), o.Payments...)
	current.UpdatedAt = o.UpdatedAt
	t.st.orders[o.ID] = current
	return nil
}

func (t *tx) ListOrders(_ context.Context, f store.OrderFilter) ([]models.Order, error) {
	out := make([]models.Order, 0)
	for _, o := range t.st.orders {
		if !matchesLocation(f.LocationID, o.LocationID) {
			continue
		}
		if f.DateKey != "" && o.DateKey != f.DateKey {
			continue
		}
		if f.Status != "" && o.Status != f.Status {
			continue
		}
		if !f.From.IsZero() && o.CreatedAt.Before(f.From) {
			continue
		}
		if !f.To.IsZero() && !o.CreatedAt.Before(f.To) {
			continue
		}
		out = append(out, copyOrder(o))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].Number > out[j].Number
	})
	return out, nil
}

// ----------------------------------------
// Audit logs
// ----------------------------------------

func (t *tx) InsertAuditLog(_ context.Context, l *models.AuditLog) error {
	ensureID(&l.ID)
	stamp(&l.CreatedAt, nil, t.now())
	t.st.auditLogs = append(t.st.auditLogs, *l)
	return nil
}

func (t *tx) ListAuditLogs(_ context.Context, f store.AuditLogFilter) ([]models.AuditLog, error) {
	out := make([]models.AuditLog, 0)
	for i := len(t.st.auditLogs) - 1; i >= 0; i-- {
		l := t.st.auditLogs[i]
		if !matchesLocation(f.LocationID, l.LocationID) {
			continue
		}
		if f.UserID != "" && l.UserID != f.UserID {
			continue
		}
		if f.EntityType != "" && l.EntityType != f.EntityType {
			continue
		}
		if f.EntityID != "" && l.EntityID != f.EntityID {
			continue
		}
		out = append(out, l)
	}
	return out, nil
}

func (t *tx) AuditLogByID(_ context.Context, id string) (*models.AuditLog, error) {
	for _, l := range t.st.auditLogs {
		if l.ID == id {
			return &l, nil
		}
	}
	return nil, store.ErrNotFound
}

func (t *tx) MarkAuditLogUndone(_ context.Context, id, userID string, at time.Time) (bool, error) {
	for i := range t.st.auditLogs {
		l := &t.st.auditLogs[i]
		if l.ID != id {
			continue
		}
		if l.IsUndone {
			return false, nil
		}
		l.IsUndone = true
		l.UndoneBy = &userID
		l.UndoneAt = &at
		return true, nil
	}
	return false, store.ErrNotFound
}
