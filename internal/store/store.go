// Package store persists the costbook data model in SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/Simplici0/costbook/internal/model"
)

// timeLayout is fixed width so lexical order matches chronological order.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Store implements the persistence interfaces of the pricing, assembly,
// estimate and jobcost packages.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// New wraps an open, migrated database.
func New(db *sql.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// executor is satisfied by *sql.DB and *sql.Tx.
type executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func (s *Store) withTx(ctx context.Context, op string, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return wrapErr("begin "+op, err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return wrapErr("commit "+op, err)
	}
	return nil
}

// wrapErr maps driver errors onto the model sentinels. Errors that already
// carry a sentinel pass through unchanged.
func wrapErr(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("%w: %s", model.ErrNotFound, op)
	case errors.Is(err, model.ErrNotFound),
		errors.Is(err, model.ErrInvalidValue),
		errors.Is(err, model.ErrInvalidState),
		errors.Is(err, model.ErrDuplicateComponent),
		errors.Is(err, model.ErrEstimateLocked),
		errors.Is(err, model.ErrPersistence):
		return err
	case isConstraintViolation(err):
		return fmt.Errorf("%w: %s: constraint violation: %v", model.ErrInvalidValue, op, err)
	default:
		return fmt.Errorf("%w: %s: %v", model.ErrPersistence, op, err)
	}
}

// isConstraintViolation matches UNIQUE, CHECK, NOT NULL and FOREIGN KEY failures.
func isConstraintViolation(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	return se.Code()&0xff == sqlite3.SQLITE_CONSTRAINT
}

func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	return errors.As(err, &se) && se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
}

// requireRow turns a zero-row update into ErrNotFound.
func requireRow(res sql.Result, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return wrapErr(op, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", model.ErrNotFound, op)
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: parse stored time %q: %v", model.ErrPersistence, s, err)
	}
	return t, nil
}

func (s *Store) stamp() (time.Time, string) {
	now := s.now().UTC()
	return now, formatTime(now)
}

func nullInt64(p *int64) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *p, Valid: true}
}

func int64Ptr(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}
