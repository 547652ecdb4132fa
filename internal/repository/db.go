package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"time"

	"feira-smart/internal/domain"

	"github.com/jackc/pgx/v5/pgconn"
)

// DefaultQueryTimeout bounds every repository call unless overridden
const DefaultQueryTimeout = 5 * time.Second

// DBTX is satisfied by both *sql.DB and *sql.Tx
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Option configures a repository
type Option func(*conn)

// WithQueryTimeout overrides the per-call timeout
func WithQueryTimeout(d time.Duration) Option {
	return func(c *conn) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// conn carries the pool and the per-call timeout shared by all repositories
type conn struct {
	db      *sql.DB
	timeout time.Duration
}

func newConn(db *sql.DB, opts []Option) conn {
	c := conn{db: db, timeout: DefaultQueryTimeout}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

func (c conn) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, c.timeout)
}

// inTx runs fn inside a transaction, rolling back on any error
func (c conn) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return wrap("failed to begin transaction", err)
	}

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return wrap("failed to commit transaction", err)
	}
	return nil
}

// wrap adds context to a driver error and tags retryable failures as
// domain.ErrTransient
func wrap(msg string, err error) error {
	if isTransient(err) {
		return fmt.Errorf("%s: %w: %w", msg, domain.ErrTransient, err)
	}
	return fmt.Errorf("%s: %w", msg, err)
}

func isTransient(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	if pgconn.Timeout(err) || pgconn.SafeToRetry(err) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case len(pgErr.Code) >= 2 && pgErr.Code[:2] == "08": // connection exception
			return true
		case pgErr.Code == "40001", pgErr.Code == "40P01": // serialization failure, deadlock
			return true
		case pgErr.Code == "53300", pgErr.Code == "57P01", pgErr.Code == "57014": // too many connections, shutdown, query canceled
			return true
		}
	}
	return false
}

// isUniqueViolation reports whether err violates the named unique constraint
func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == constraint
}

// isForeignKeyViolation reports whether err violates the named foreign key
func isForeignKeyViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503" && pgErr.ConstraintName == constraint
}
