package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// TxBeginner is satisfied by *sqlx.DB.
type TxBeginner interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

// Transactor runs a unit of work inside a single database transaction.
type Transactor struct {
	db   TxBeginner
	opts *sql.TxOptions
}

// NewTransactor constructs a Transactor using the default isolation level.
func NewTransactor(db TxBeginner) *Transactor {
	return &Transactor{db: db}
}

// WithOptions returns a copy of the transactor using the provided transaction options.
func (t *Transactor) WithOptions(opts *sql.TxOptions) *Transactor {
	return &Transactor{db: t.db, opts: opts}
}

// WithinTx commits when fn returns nil and rolls back otherwise. The error from fn
// is returned unchanged so callers can keep matching on typed domain errors.
func (t *Transactor) WithinTx(ctx context.Context, fn func(tx sqlx.ExtContext) error) (err error) {
	tx, err := t.db.BeginTxx(ctx, t.opts)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
