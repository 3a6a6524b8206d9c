package mongo

import (
	"context"
	"errors"
	"time"

	"restoran-pos/internal/models"
	"restoran-pos/internal/store"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type tx struct {
	db *mongo.Database
	sc mongo.SessionContext
}

var _ store.Tx = (*tx)(nil)

func (t *tx) col(name string) *mongo.Collection {
	return t.db.Collection(name)
}

func ensureID(id *string) {
	if *id == "" {
		*id = uuid.NewString()
	}
}

func now() time.Time {
	return time.Now().UTC()
}

func stamp(created, updated *time.Time) {
	n := now()
	if created != nil && created.IsZero() {
		*created = n
	}
	if updated != nil {
		*updated = n
	}
}

func locationFilter(filter bson.M, key string, locationID *string) {
	if locationID != nil {
		filter[key] = *locationID
	}
}

func findOne[T any](t *tx, col string, filter any) (*T, error) {
	var out T
	if err := t.col(col).FindOne(t.sc, filter).Decode(&out); err != nil {
		return nil, mapErr(err)
	}
	return &out, nil
}

func findAll[T any](t *tx, col string, filter any, sort bson.D) ([]T, error) {
	cur, err := t.col(col).Find(t.sc, filter, options.Find().SetSort(sort))
	if err != nil {
		return nil, err
	}
	out := make([]T, 0)
	if err := cur.All(t.sc, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (t *tx) insert(col string, doc any) error {
	_, err := t.col(col).InsertOne(t.sc, doc)
	return mapErr(err)
}

func (t *tx) replace(col, id string, doc any) error {
	res, err := t.col(col).ReplaceOne(t.sc, bson.M{"_id": id}, doc)
	if err != nil {
		return mapErr(err)
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (t *tx) update(col, id string, update bson.M) error {
	res, err := t.col(col).UpdateOne(t.sc, bson.M{"_id": id}, update)
	if err != nil {
		return mapErr(err)
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

// ----------------------------------------
// Locations
// ----------------------------------------

func (t *tx) CreateLocation(_ context.Context, l *models.Location) error {
	ensureID(&l.ID)
	stamp(&l.CreatedAt, &l.UpdatedAt)
	return t.insert(colLocations, l)
}

func (t *tx) SaveLocation(_ context.Context, l *models.Location) error {
	stamp(nil, &l.UpdatedAt)
	return t.replace(colLocations, l.ID, l)
}

func (t *tx) LocationByID(_ context.Context, id string) (*models.Location, error) {
	return findOne[models.Location](t, colLocations, bson.M{"_id": id})
}

func (t *tx) ListLocations(context.Context) ([]models.Location, error) {
	return findAll[models.Location](t, colLocations, bson.M{}, bson.D{{Key: "name", Value: 1}})
}

// ----------------------------------------
// Users & refresh tokens
// ----------------------------------------

func (t *tx) CreateUser(_ context.Context, u *models.User) error {
	ensureID(&u.ID)
	stamp(&u.CreatedAt, &u.UpdatedAt)
	return t.insert(colUsers, u)
}

func (t *tx) UserByID(_ context.Context, id string) (*models.User, error) {
	return findOne[models.User](t, colUsers, bson.M{"_id": id})
}

func (t *tx) UserByEmail(_ context.Context, email string) (*models.User, error) {
	return findOne[models.User](t, colUsers, bson.M{"email": email})
}

func (t *tx) CountUsersByRole(_ context.Context, role models.UserRole) (int64, error) {
	return t.col(colUsers).CountDocuments(t.sc, bson.M{"role": role})
}

func (t *tx) ListUsers(_ context.Context, locationID *string) ([]models.User, error) {
	filter := bson.M{}
	locationFilter(filter, "locationId", locationID)
	return findAll[models.User](t, colUsers, filter, bson.D{{Key: "name", Value: 1}})
}

func (t *tx) CreateRefreshToken(_ context.Context, rt *models.RefreshToken) error {
	ensureID(&rt.ID)
	stamp(&rt.CreatedAt, nil)
	return t.insert(colRefreshTokens, rt)
}

func (t *tx) RefreshTokenByToken(_ context.Context, token string) (*models.RefreshToken, error) {
	return findOne[models.RefreshToken](t, colRefreshTokens, bson.M{"token": token})
}

func (t *tx) SaveRefreshToken(_ context.Context, rt *models.RefreshToken) error {
	return t.replace(colRefreshTokens, rt.ID, rt)
}

// ----------------------------------------
// Products
// ----------------------------------------

func (t *tx) CreateProduct(_ context.Context, p *models.Product) error {
	ensureID(&p.ID)
	stamp(&p.CreatedAt, &p.UpdatedAt)
	return t.insert(colProducts, p)
}

func (t *tx) SaveProduct(_ context.Context, p *models.Product) error {
	stamp(nil, &p.UpdatedAt)
	return t.replace(colProducts, p.ID, p)
}

func (t *tx) ProductByID(_ context.Context, id string) (*models.Product, error) {
	return findOne[models.Product](t, colProducts, bson.M{"_id": id})
}

func (t *tx) ListProducts(_ context.Context, f store.ProductFilter) ([]models.Product, error) {
	filter := bson.M{}
	locationFilter(filter, "locationId", f.LocationID)
	if !f.IncludeInactive {
		filter["active"] = true
	}
	if f.Category != "" {
		filter["category"] = f.Category
	}
	return findAll[models.Product](t, colProducts, filter, bson.D{{Key: "name", Value: 1}})
}

// ----------------------------------------
// Stock items
// ----------------------------------------

func (t *tx) CreateStockItem(_ context.Context, s *models.StockItem) error {
	if s.Quantity < 0 {
		return store.ErrNegativeQuantity
	}
	ensureID(&s.ID)
	stamp(&s.CreatedAt, &s.UpdatedAt)
	s.LastUpdated = s.UpdatedAt
	return t.insert(colStockItems, s)
}

func (t *tx) SaveStockItemDetails(_ context.Context, s *models.StockItem) error {
	stamp(nil, &s.UpdatedAt)
	return t.update(colStockItems, s.ID, bson.M{"$set": bson.M{
		"name":       s.Name,
		"productId":  s.ProductID,
		"unit":       s.Unit,
		"locationId": s.LocationID,
		"trackStock": s.TrackStock,
		"updatedAt":  s.UpdatedAt,
	}})
}

func (t *tx) DeleteStockItem(_ context.Context, id string) error {
	res, err := t.col(colStockItems).DeleteOne(t.sc, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (t *tx) StockItemByID(_ context.Context, id string) (*models.StockItem, error) {
	return findOne[models.StockItem](t, colStockItems, bson.M{"_id": id})
}

// LockStockItem is a snapshot read: MongoDB has no row locks, a concurrent write to the
// same document surfaces as a write conflict and the whole transaction is replayed.
func (t *tx) LockStockItem(ctx context.Context, id string) (*models.StockItem, error) {
	return t.StockItemByID(ctx, id)
}

func (t *tx) StockItemForProduct(_ context.Context, productID string, locationID *string) (*models.StockItem, error) {
	// nil locationId hem null hem de eksik alanı eşler
	filter := bson.M{"productId": productID, "locationId": locationID}
	var out models.StockItem
	opts := options.FindOne().SetSort(bson.D{{Key: "_id", Value: 1}})
	if err := t.col(colStockItems).FindOne(t.sc, filter, opts).Decode(&out); err != nil {
		return nil, mapErr(err)
	}
	return &out, nil
}

func (t *tx) ListStockItems(_ context.Context, f store.StockItemFilter) ([]models.StockItem, error) {
	filter := bson.M{}
	locationFilter(filter, "locationId", f.LocationID)
	if f.ProductID != "" {
		filter["productId"] = f.ProductID
	}
	return findAll[models.StockItem](t, colStockItems, filter, bson.D{{Key: "name", Value: 1}})
}

func (t *tx) AddStockQuantity(ctx context.Context, id string, delta int64, at time.Time) (*models.StockItem, error) {
	filter := bson.M{"_id": id}
	if delta < 0 {
		filter["quantity"] = bson.M{"$gte": -delta}
	}
	update := bson.M{
		"$inc": bson.M{"quantity": delta},
		"$set": bson.M{"lastUpdated": at, "updatedAt": at},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var out models.StockItem
	err := t.col(colStockItems).FindOneAndUpdate(t.sc, filter, update, opts).Decode(&out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		if _, lookupErr := t.StockItemByID(ctx, id); lookupErr != nil {
			return nil, lookupErr
		}
		return nil, store.ErrNegativeQuantity
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ----------------------------------------
// Adjustments, counters
// ----------------------------------------

func (t *tx) InsertAdjustment(_ context.Context, a *models.StockAdjustment) error {
	ensureID(&a.ID)
	stamp(&a.CreatedAt, nil)
	return t.insert(colAdjustments, a)
}

func (t *tx) ListAdjustments(_ context.Context, f store.AdjustmentFilter) ([]models.StockAdjustment, error) {
	filter := bson.M{}
	locationFilter(filter, "locationId", f.LocationID)
	if f.StockItemID != "" {
		filter["stockItemId"] = f.StockItemID
	}
	if f.OrderID != "" {
		filter["orderId"] = f.OrderID
	}
	return findAll[models.StockAdjustment](t, colAdjustments, filter,
		bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: 1}})
}

func (t *tx) IncrementCounter(_ context.Context, key string) (int64, error) {
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	var counter models.SequenceCounter
	err := t.col(colCounters).FindOneAndUpdate(t.sc,
		bson.M{"_id": key},
		bson.M{"$inc": bson.M{"seq": 1}},
		opts,
	).Decode(&counter)
	if err != nil {
		return 0, mapErr(err)
	}
	return counter.Seq, nil
}

// ----------------------------------------
// Orders
// ----------------------------------------

func (t *tx) InsertOrder(_ context.Context, o *models.Order) error {
	ensureID(&o.ID)
	stamp(&o.CreatedAt, &o.UpdatedAt)
	return t.insert(colOrders, o)
}

func (t *tx) OrderByID(_ context.Context, id string) (*models.Order, error) {
	return findOne[models.Order](t, colOrders, bson.M{"_id": id})
}

func (t *tx) LockOrder(ctx context.Context, id string) (*models.Order, error) {
	return t.OrderByID(ctx, id)
}

func (t *tx) SaveOrderStatus(_ context.Context, o *models.Order) error {
	stamp(nil, &o.UpdatedAt)
	return t.update(colOrders, o.ID, bson.M{"$set": bson.M{
		"status":    o.Status,
		"payments":  o.Payments,
		"updatedAt": o.UpdatedAt,
	}})
}

func (t *tx) ListOrders(_ context.Context, f store.OrderFilter) ([]models.Order, error) {
	filter := bson.M{}
	locationFilter(filter, "locationId", f.LocationID)
	if f.DateKey != "" {
		filter["dateKey"] = f.DateKey
	}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	created := bson.M{}
	if !f.From.IsZero() {
		created["$gte"] = f.From
	}
	if !f.To.IsZero() {
		created["$lt"] = f.To
	}
	if len(created) > 0 {
		filter["createdAt"] = created
	}
	return findAll[models.Order](t, colOrders, filter,
		bson.D{{Key: "createdAt", Value: -1}, {Key: "number", Value: -1}})
}

// ----------------------------------------
// Audit logs
// ----------------------------------------

func (t *tx) InsertAuditLog(_ context.Context, l *models.AuditLog) error {
	ensureID(&l.ID)
	stamp(&l.CreatedAt, nil)
	return t.insert(colAuditLogs, l)
}

func (t *tx) ListAuditLogs(_ context.Context, f store.AuditLogFilter) ([]models.AuditLog, error) {
	filter := bson.M{}
	locationFilter(filter, "locationId", f.LocationID)
	if f.UserID != "" {
		filter["userId"] = f.UserID
	}
	if f.EntityType != "" {
		filter["entityType"] = f.EntityType
	}
	if f.EntityID != "" {
		filter["entityId"] = f.EntityID
	}
	return findAll[models.AuditLog](t, colAuditLogs, filter, bson.D{{Key: "createdAt", Value: -1}})
}

func (t *tx) AuditLogByID(_ context.Context, id string) (*models.AuditLog, error) {
	return findOne[models.AuditLog](t, colAuditLogs, bson.M{"_id": id})
}

func (t *tx) MarkAuditLogUndone(_ context.Context, id, userID string, at time.Time) (bool, error) {
	res, err := t.col(colAuditLogs).UpdateOne(t.sc,
		bson.M{"_id": id, "isUndone": bson.M{"$ne": true}},
		bson.M{"$set": bson.M{"isUndone": true, "undoneBy": userID, "undoneAt": at}})
	if err != nil {
		return false, mapErr(err)
	}
	return res.ModifiedCount == 1, nil
}
