// Package mongo implements the store on MongoDB multi-document transactions
// (replica set required). Stock decrements are guarded updates and order counters
// are upserted inside the same session, so both roll back with the order.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"restoran-pos/internal/domain"
	"restoran-pos/internal/metrics"
	"restoran-pos/internal/store"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"
	"go.uber.org/zap"
)

const (
	backendLabel = "mongo"

	colLocations     = "locations"
	colUsers         = "users"
	colRefreshTokens = "refresh_tokens"
	colProducts      = "products"
	colStockItems    = "stock_items"
	colAdjustments   = "stock_adjustments"
	colCounters      = "counters"
	colOrders        = "orders"
	colAuditLogs     = "audit_logs"

	defaultTxTimeout = 10 * time.Second
)

type Store struct {
	client  *mongo.Client
	db      *mongo.Database
	timeout time.Duration
	log     *zap.Logger
}

var _ store.Store = (*Store)(nil)

// Connect opens the client, pings it and makes sure the indexes exist.
func Connect(ctx context.Context, uri, dbName string, timeout time.Duration, log *zap.Logger) (*Store, error) {
	clientOptions := options.Client().ApplyURI(uri).
		SetConnectTimeout(10 * time.Second).
		SetServerSelectionTimeout(10 * time.Second)

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("cannot connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("cannot ping MongoDB: %w", err)
	}

	if timeout <= 0 {
		timeout = defaultTxTimeout
	}
	if log == nil {
		log = zap.NewNop()
	}
	s := &Store{client: client, db: client.Database(dbName), timeout: timeout, log: log}
	if err := s.ensureIndexes(ctx); err != nil {
		return nil, err
	}
	log.Info("connected to MongoDB", zap.String("database", dbName))
	return s, nil
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	indexes := map[string][]mongo.IndexModel{
		colUsers: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "locationId", Value: 1}}},
		},
		colRefreshTokens: {
			{Keys: bson.D{{Key: "token", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		colLocations: {
			{Keys: bson.D{{Key: "name", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		colProducts: {
			{Keys: bson.D{{Key: "locationId", Value: 1}, {Key: "active", Value: 1}}},
		},
		colStockItems: {
			// bir ürünün aynı şubede tek bir stok kalemi olabilir
			{
				Keys: bson.D{{Key: "productId", Value: 1}, {Key: "locationId", Value: 1}},
				Options: options.Index().SetUnique(true).
					SetName("uniq_product_location").
					SetPartialFilterExpression(bson.M{"productId": bson.M{"$type": "string"}}),
			},
		},
		colAdjustments: {
			{Keys: bson.D{{Key: "orderId", Value: 1}}},
			{Keys: bson.D{{Key: "stockItemId", Value: 1}, {Key: "createdAt", Value: -1}}},
		},
		colOrders: {
			{Keys: bson.D{{Key: "sequenceScope", Value: 1}, {Key: "number", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "locationId", Value: 1}, {Key: "createdAt", Value: -1}}},
		},
		colAuditLogs: {
			{Keys: bson.D{{Key: "entityType", Value: 1}, {Key: "entityId", Value: 1}}},
		},
	}
	for col, models := range indexes {
		if _, err := s.db.Collection(col).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("cannot create %s indexes: %w", col, err)
		}
	}
	return nil
}

// RunInTx runs fn with snapshot read concern and majority writes. The driver replays
// the callback on TransientTransactionError until the timeout expires.
func (s *Store) RunInTx(ctx context.Context, fn store.TxFunc) error {
	txCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	sess, err := s.client.StartSession()
	if err != nil {
		return fmt.Errorf("cannot start session: %w", err)
	}
	defer sess.EndSession(context.Background())

	txnOpts := options.Transaction().
		SetReadConcern(readconcern.Snapshot()).
		SetWriteConcern(writeconcern.Majority())

	attempts := 0
	_, err = sess.WithTransaction(txCtx, func(sc mongo.SessionContext) (interface{}, error) {
		attempts++
		if attempts > 1 {
			metrics.TxRetriesTotal.WithLabelValues(backendLabel).Inc()
		}
		return nil, fn(sc, &tx{db: s.db, sc: sc})
	}, txnOpts)
	if err == nil {
		return nil
	}

	if isTransient(err) || (errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil) {
		metrics.TxAbortedTotal.WithLabelValues(backendLabel).Inc()
		s.log.Warn("transaction aborted", zap.Int("attempts", attempts), zap.Error(err))
		return fmt.Errorf("%w: %v", domain.ErrTransactionAborted, err)
	}
	return err
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

func (s *Store) Close(ctx context.Context) error {
	if err := s.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("cannot disconnect from MongoDB: %w", err)
	}
	return nil
}

func isTransient(err error) bool {
	var se mongo.ServerError
	if errors.As(err, &se) {
		return se.HasErrorLabel("TransientTransactionError") || se.HasErrorLabel("UnknownTransactionCommitResult")
	}
	return false
}

func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		return store.ErrNotFound
	}
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%w: %v", store.ErrDuplicate, err)
	}
	return err
}
