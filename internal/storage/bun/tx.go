package bunrepo

import (
	"context"
	"database/sql"

	"github.com/goliatone/go-webpush/pkg/interfaces/store"
	"github.com/uptrace/bun"
)

type txKey struct{}

func txFromContext(ctx context.Context) (bun.Tx, bool) {
	tx, ok := ctx.Value(txKey{}).(bun.Tx)
	return tx, ok
}

// conn returns the transaction bound to ctx, or db when none is open.
func conn(ctx context.Context, db *bun.DB) bun.IDB {
	if tx, ok := txFromContext(ctx); ok {
		return tx
	}
	return db
}

// TxManager runs callbacks inside a bun transaction shared by every repository
// in this package through the callback context.
type TxManager struct {
	db *bun.DB
}

var _ store.TransactionManager = (*TxManager)(nil)

func NewTxManager(db *bun.DB) *TxManager {
	return &TxManager{db: db}
}

func (m *TxManager) WithinTransaction(ctx context.Context, fn store.TxFunc) error {
	if fn == nil {
		return nil
	}
	if _, ok := txFromContext(ctx); ok {
		return fn(ctx)
	}
	return m.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
}
