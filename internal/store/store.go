// Package store defines the unit-of-work boundary every backend implements.
// Stock, sequence and order writes only happen through a Tx handed out by RunInTx,
// so one order placement commits or rolls back as a whole.
package store

import (
	"context"
	"errors"
	"time"

	"restoran-pos/internal/models"
)

var (
	// ErrNotFound is returned by point reads when no row/document matches.
	ErrNotFound = errors.New("store: not found")
	// ErrNegativeQuantity is returned by AddStockQuantity when the delta would drive quantity below zero.
	ErrNegativeQuantity = errors.New("store: quantity would become negative")
	// ErrDuplicate is returned on unique constraint violations.
	ErrDuplicate = errors.New("store: duplicate key")
)

// TxFunc runs inside a transaction. Returning an error rolls everything back.
type TxFunc func(ctx context.Context, tx Tx) error

// Store hands out transactions. Implementations map contention and timeouts
// to domain.ErrTransactionAborted after their own retries are exhausted.
type Store interface {
	RunInTx(ctx context.Context, fn TxFunc) error
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

type Tx interface {
	LocationRepository
	UserRepository
	RefreshTokenRepository
	ProductRepository
	StockItemRepository
	AdjustmentRepository
	CounterRepository
	OrderRepository
	AuditLogRepository
}

type LocationRepository interface {
	CreateLocation(ctx context.Context, l *models.Location) error
	SaveLocation(ctx context.Context, l *models.Location) error
	LocationByID(ctx context.Context, id string) (*models.Location, error)
	ListLocations(ctx context.Context) ([]models.Location, error)
}

type UserRepository interface {
	CreateUser(ctx context.Context, u *models.User) error
	UserByID(ctx context.Context, id string) (*models.User, error)
	UserByEmail(ctx context.Context, email string) (*models.User, error)
	CountUsersByRole(ctx context.Context, role models.UserRole) (int64, error)
	ListUsers(ctx context.Context, locationID *string) ([]models.User, error)
}

type RefreshTokenRepository interface {
	CreateRefreshToken(ctx context.Context, t *models.RefreshToken) error
	RefreshTokenByToken(ctx context.Context, token string) (*models.RefreshToken, error)
	SaveRefreshToken(ctx context.Context, t *models.RefreshToken) error
}

// Filters treat a nil LocationID as "all locations".

type ProductFilter struct {
	LocationID      *string
	Category        string
	IncludeInactive bool
}

type ProductRepository interface {
	CreateProduct(ctx context.Context, p *models.Product) error
	SaveProduct(ctx context.Context, p *models.Product) error
	ProductByID(ctx context.Context, id string) (*models.Product, error)
	ListProducts(ctx context.Context, f ProductFilter) ([]models.Product, error)
}

type StockItemFilter struct {
	LocationID *string
	ProductID  string
}

type StockItemRepository interface {
	CreateStockItem(ctx context.Context, s *models.StockItem) error
	// SaveStockItemDetails writes everything except Quantity.
	SaveStockItemDetails(ctx context.Context, s *models.StockItem) error
	DeleteStockItem(ctx context.Context, id string) error
	StockItemByID(ctx context.Context, id string) (*models.StockItem, error)
	// StockItemForProduct finds the direct stock link of a product within one location (nil = no location).
	StockItemForProduct(ctx context.Context, productID string, locationID *string) (*models.StockItem, error)
	ListStockItems(ctx context.Context, f StockItemFilter) ([]models.StockItem, error)
	// LockStockItem reads the item and, where the backend supports it, holds a row lock until commit.
	LockStockItem(ctx context.Context, id string) (*models.StockItem, error)
	// AddStockQuantity applies quantity += delta only if the result stays >= 0 and returns the updated item.
	AddStockQuantity(ctx context.Context, id string, delta int64, at time.Time) (*models.StockItem, error)
}

type AdjustmentFilter struct {
	LocationID  *string
	StockItemID string
	OrderID     string
}

type AdjustmentRepository interface {
	InsertAdjustment(ctx context.Context, a *models.StockAdjustment) error
	ListAdjustments(ctx context.Context, f AdjustmentFilter) ([]models.StockAdjustment, error)
}

type CounterRepository interface {
	// IncrementCounter atomically upserts the counter and returns the new value (1 on first use).
	IncrementCounter(ctx context.Context, key string) (int64, error)
}

type OrderFilter struct {
	LocationID *string
	DateKey    string
	Status     models.OrderStatus
	// From/To bound CreatedAt, zero values are ignored.
	From time.Time
	To   time.Time
}

type OrderRepository interface {
	InsertOrder(ctx context.Context, o *models.Order) error
	OrderByID(ctx context.Context, id string) (*models.Order, error)
	// LockOrder reads the order and holds a row lock where supported.
	LockOrder(ctx context.Context, id string) (*models.Order, error)
	SaveOrderStatus(ctx context.Context, o *models.Order) error
	ListOrders(ctx context.Context, f OrderFilter) ([]models.Order, error)
}

type AuditLogFilter struct {
	LocationID *string
	UserID     string
	EntityType string
	EntityID   string
}

type AuditLogRepository interface {
	InsertAuditLog(ctx context.Context, l *models.AuditLog) error
	ListAuditLogs(ctx context.Context, f AuditLogFilter) ([]models.AuditLog, error)
	AuditLogByID(ctx context.Context, id string) (*models.AuditLog, error)
	// MarkAuditLogUndone flips IsUndone only while it is still false and reports whether it did.
	MarkAuditLogUndone(ctx context.Context, id, userID string, at time.Time) (bool, error)
}
