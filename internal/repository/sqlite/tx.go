package sqlite

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/sakif/remo/internal/repository"
)

var _ repository.Transactor = (*DB)(nil)

// txKey is unexported so only this package can put a transaction in a
// context; everyone else goes through ContextWithTx.
type txKey struct{}

// ContextWithTx returns a context carrying tx. Repository methods called
// with that context run their statements inside tx.
func ContextWithTx(ctx context.Context, tx *sqlx.Tx) context.Context {
	return context.WithValue(ctx, txKey{}, tx)
}

// TxFromContext returns the transaction stored in ctx, or nil.
func TxFromContext(ctx context.Context) *sqlx.Tx {
	tx, _ := ctx.Value(txKey{}).(*sqlx.Tx)
	return tx
}

// q picks the query target for ctx: the request/caller transaction when
// there is one, otherwise the pool.
//
// Both *sqlx.DB and *sqlx.Tx implement sqlx.ExtContext, so repository code
// is written once and works in and out of transactions.
func (db *DB) q(ctx context.Context) sqlx.ExtContext {
	if tx := TxFromContext(ctx); tx != nil {
		return tx
	}
	return db.conn
}

// InTx runs fn inside a transaction, committing when fn returns nil and
// rolling back otherwise. If ctx already carries a transaction, fn simply
// joins it.
func (db *DB) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if TxFromContext(ctx) != nil {
		return fn(ctx)
	}

	tx, err := db.conn.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning transaction: %w", err)
	}

	defer func() {
		if rec := recover(); rec != nil {
			tx.Rollback()
			panic(rec)
		}
	}()

	if err := fn(ContextWithTx(ctx, tx)); err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing transaction: %w", err)
	}
	return nil
}
