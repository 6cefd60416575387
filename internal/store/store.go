// Package store is the persistence boundary of the ledger: a gorm handle plus
// the transaction scope every multi-entity mutation runs in.
package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PostgreSQL SQLSTATE codes for transactions the server aborted on its own.
const (
	sqlStateSerializationFailure = "40001"
	sqlStateDeadlockDetected     = "40P01"
	sqlStateLockNotAvailable     = "55P03"
	sqlStateCheckViolation       = "23514"
	sqlStateClassDataException   = "22"
)

// Store wraps a *gorm.DB. It is safe for concurrent use.
type Store struct {
	db        *gorm.DB
	txTimeout time.Duration
	retries   int
}

// Option configures a Store.
type Option func(*Store)

// WithTxTimeout bounds each transaction started by Transaction.
func WithTxTimeout(d time.Duration) Option {
	return func(s *Store) { s.txTimeout = d }
}

// WithRetries sets how many times a transaction aborted by the database
// (deadlock, serialization failure) is replayed.
func WithRetries(n int) Option {
	return func(s *Store) { s.retries = n }
}

// New returns a Store over db.
func New(db *gorm.DB, opts ...Option) *Store {
	s := &Store{db: db}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DB returns a session bound to ctx for reads outside a transaction.
func (s *Store) DB(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx)
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.WithContext(ctx).Exec("SELECT 1").Error
}

// Transaction runs fn inside a single database transaction. The transaction
// commits when fn returns nil and rolls back on any error or panic. fn may be
// invoked more than once when the database aborts the transaction with a
// retryable error, so it must not have side effects outside tx.
func (s *Store) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if s.txTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.txTimeout)
		defer cancel()
	}
	var err error
	for attempt := 0; ; attempt++ {
		err = s.db.WithContext(ctx).Transaction(fn)
		if err == nil || attempt >= s.retries || !IsRetryable(err) || ctx.Err() != nil {
			return err
		}
	}
}

// IsRetryable reports whether err is a transaction abort that is expected to
// succeed when replayed.
func IsRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case sqlStateSerializationFailure, sqlStateDeadlockDetected:
			return true
		}
	}
	return false
}

// IsTimeout reports whether err comes from a deadline or a lock wait timeout.
func IsTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == sqlStateLockNotAvailable
}

// IsDataError reports whether the database rejected the values of a
// statement (numeric overflow, invalid text, check constraint). Replaying
// such a statement fails again.
func IsDataError(err error) bool {
	if errors.Is(err, gorm.ErrCheckConstraintViolated) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == sqlStateCheckViolation || strings.HasPrefix(pgErr.Code, sqlStateClassDataException)
	}
	return false
}

// IsNotFound reports whether err is gorm's missing-row error.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// Find loads the row of T with primary key id.
func Find[T any](db *gorm.DB, id uint) (*T, error) {
	var v T
	if err := db.First(&v, id).Error; err != nil {
		return nil, err
	}
	return &v, nil
}

// FindForUpdate loads the row of T with primary key id and holds a row lock
// (SELECT ... FOR UPDATE) until the surrounding transaction ends. Drivers
// without row locks, such as SQLite, drop the locking clause.
func FindForUpdate[T any](tx *gorm.DB, id uint) (*T, error) {
	return Find[T](tx.Clauses(clause.Locking{Strength: clause.LockingStrengthUpdate}), id)
}

// Exists reports whether any row of model matches query.
func Exists(db *gorm.DB, model any, query string, args ...any) (bool, error) {
	var count int64
	if err := db.Model(model).Where(query, args...).Limit(1).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}
