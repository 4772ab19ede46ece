package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
)

// DBTX is the interface for database operations shared by *sql.DB and *sql.Tx.
// Datastores accept it so the same queries run standalone or inside a unit of work.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// TxBeginner starts transactions. Satisfied by *sql.DB and *DB.
type TxBeginner interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

// Conn is a connection pool that can also start transactions.
type Conn interface {
	DBTX
	TxBeginner
}

// WithTx runs fn inside a single transaction.
// The transaction commits only if fn returns nil; any error or panic rolls it back,
// so nothing fn wrote is ever observable on failure.
func WithTx(ctx context.Context, db TxBeginner, fn func(tx *sql.Tx) error) (err error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			rollback(tx)
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		rollback(tx)
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func rollback(tx *sql.Tx) {
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		log.Printf("failed to roll back transaction: %v", err)
	}
}
