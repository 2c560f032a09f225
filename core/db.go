package core

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/pkg/errors"
)

type (
	DBExecutor interface {
		Exec(query string, args ...interface{}) (sql.Result, error)
		ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
		Query(query string, args ...interface{}) (*sql.Rows, error)
		QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
		QueryRow(query string, args ...interface{}) *sql.Row
		QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	}

	DB interface {
		DBExecutor

		Begin() (*sql.Tx, error)
		BeginTx(context.Context, *sql.TxOptions) (*sql.Tx, error)
	}

	DBTransactor interface {
		DBExecutor

		Commit() error
		Rollback() error
	}
)

// NowFunc returns the current time as stored by the database: UTC, microsecond precision.
var NowFunc = func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) } // mockable

type DBOrdering struct {
	Field     string
	Ascending bool
}

func (ord DBOrdering) String() string {
	direction := "DESC"
	if ord.Ascending {
		direction = "ASC"
	}
	return ord.Field + " " + direction
}

// RunInTx runs fn inside a single transaction.
// The transaction is committed if fn returns nil and rolled back otherwise (panics included).
// Errors returned by fn are passed through untouched; failures of the transaction itself are *PersistenceError.
func RunInTx(ctx context.Context, db DB, fn func(tx DBExecutor) error) (err error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return NewPersistenceError(errors.Wrap(err, "beginning transaction"))
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			err = NewPersistenceError(fmt.Errorf("transaction aborted: %v", p))
		}
	}()

	if err = fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return NewPersistenceError(errors.Wrapf(err, "rolling back (%v)", rbErr))
		}
		return err
	}

	if err = tx.Commit(); err != nil {
		return NewPersistenceError(errors.Wrap(err, "committing transaction"))
	}
	return nil
}
