// Package postgres implements the store on gorm/Postgres. Stock rows are locked with
// SELECT ... FOR UPDATE and decremented with a guarded UPDATE; order counters are
// upserted in the same transaction so a rolled back order never consumes a number.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"restoran-pos/internal/domain"
	"restoran-pos/internal/metrics"
	"restoran-pos/internal/store"

	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	backendLabel = "postgres"

	defaultTxAttempts = 5
	defaultTxTimeout  = 10 * time.Second
	baseBackoff       = 15 * time.Millisecond
)

type Option func(*Store)

// WithTxAttempts overrides how many times a serialization failure or deadlock is retried.
func WithTxAttempts(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.attempts = n
		}
	}
}

// WithTxTimeout bounds one RunInTx call including its retries.
func WithTxTimeout(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.timeout = d
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.log = l
		}
	}
}

type Store struct {
	db       *gorm.DB
	attempts int
	timeout  time.Duration
	log      *zap.Logger
}

var _ store.Store = (*Store)(nil)

func New(db *gorm.DB, opts ...Option) *Store {
	s := &Store{db: db, attempts: defaultTxAttempts, timeout: defaultTxTimeout, log: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RunInTx runs fn in a READ COMMITTED transaction. The whole callback is replayed
// on 40001/40P01; nothing partial is ever committed.
func (s *Store) RunInTx(ctx context.Context, fn store.TxFunc) error {
	txCtx := ctx
	if deadline, ok := ctx.Deadline(); !ok || time.Until(deadline) > s.timeout {
		var cancel context.CancelFunc
		txCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	var lastErr error
	for attempt := 1; attempt <= s.attempts; attempt++ {
		err := s.db.WithContext(txCtx).Transaction(func(gtx *gorm.DB) error {
			return fn(txCtx, &tx{db: gtx})
		})
		if err == nil {
			return nil
		}
		lastErr = err

		if !isRetryable(err) {
			if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
				// kendi timeout'umuz doldu, çağıran iptal etmedi
				metrics.TxAbortedTotal.WithLabelValues(backendLabel).Inc()
				return fmt.Errorf("%w: %v", domain.ErrTransactionAborted, err)
			}
			return err
		}
		if attempt == s.attempts {
			break
		}

		metrics.TxRetriesTotal.WithLabelValues(backendLabel).Inc()
		s.log.Debug("transaction retry", zap.Int("attempt", attempt), zap.Error(err))
		if werr := wait(txCtx, backoff(attempt)); werr != nil {
			lastErr = werr
			break
		}
	}

	metrics.TxAbortedTotal.WithLabelValues(backendLabel).Inc()
	return fmt.Errorf("%w: %v", domain.ErrTransactionAborted, lastErr)
}

func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *Store) Close(context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func backoff(attempt int) time.Duration {
	d := baseBackoff << (attempt - 1)
	return d/2 + time.Duration(rand.Int64N(int64(d)))
}

func wait(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

const (
	sqlStateSerializationFailure = "40001"
	sqlStateDeadlockDetected     = "40P01"
	sqlStateUniqueViolation      = "23505"
	sqlStateCheckViolation       = "23514"
)

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

func isRetryable(err error) bool {
	switch pgCode(err) {
	case sqlStateSerializationFailure, sqlStateDeadlockDetected:
		return true
	}
	return false
}

// mapErr converts driver errors into store sentinels.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return store.ErrNotFound
	}
	switch pgCode(err) {
	case sqlStateUniqueViolation:
		return fmt.Errorf("%w: %v", store.ErrDuplicate, err)
	case sqlStateCheckViolation:
		return fmt.Errorf("%w: %v", store.ErrNegativeQuantity, err)
	}
	return err
}
