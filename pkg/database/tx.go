package database

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"go.uber.org/zap"
)

// SQLSTATE codes PostgreSQL raises when a serializable transaction loses a conflict.
const (
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
)

// TxFunc is the body of a transaction. It must not perform external I/O since
// it may run more than once.
type TxFunc func(exec sqlx.ExtContext) error

// Transactor runs a function inside one atomic unit of work.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn TxFunc) error
}

// TxRunner executes functions in SERIALIZABLE transactions and transparently
// retries the ones PostgreSQL aborts with a serialization failure or deadlock.
type TxRunner struct {
	db         *sqlx.DB
	maxRetries int
	delay      time.Duration
	logger     *zap.Logger
	onRetry    func()
}

// TxOption customises a TxRunner.
type TxOption func(*TxRunner)

// WithRetryObserver registers a callback fired before every retry.
func WithRetryObserver(fn func()) TxOption {
	return func(r *TxRunner) {
		r.onRetry = fn
	}
}

// NewTxRunner constructs a TxRunner.
func NewTxRunner(db *sqlx.DB, maxRetries int, delay time.Duration, logger *zap.Logger, opts ...TxOption) *TxRunner {
	if maxRetries < 0 {
		maxRetries = 0
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	runner := &TxRunner{db: db, maxRetries: maxRetries, delay: delay, logger: logger}
	for _, opt := range opts {
		opt(runner)
	}
	return runner
}

// WithinTransaction runs fn and commits, retrying the whole body on conflicts.
func (r *TxRunner) WithinTransaction(ctx context.Context, fn TxFunc) error {
	var err error
	for attempt := 0; ; attempt++ {
		err = r.runOnce(ctx, fn)
		if err == nil || !IsRetryable(err) || attempt >= r.maxRetries {
			return err
		}
		if r.onRetry != nil {
			r.onRetry()
		}
		r.logger.Debug("retrying serializable transaction", zap.Int("attempt", attempt+1), zap.Error(err))

		timer := time.NewTimer(r.delay * time.Duration(attempt+1))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

func (r *TxRunner) runOnce(ctx context.Context, fn TxFunc) (err error) {
	tx, err := r.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// IsRetryable reports whether err is a PostgreSQL serialization conflict.
func IsRetryable(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	return pqErr.Code == codeSerializationFailure || pqErr.Code == codeDeadlockDetected
}
