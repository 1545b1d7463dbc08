package store

import "context"

// TxFunc is the unit of work executed by a TransactionManager.
type TxFunc func(ctx context.Context) error

// TransactionManager runs repository writes atomically. Repositories resolve the
// active transaction from the context handed to fn.
type TransactionManager interface {
	WithinTransaction(ctx context.Context, fn TxFunc) error
}

// NopTransactionManager executes callbacks immediately without atomicity.
type NopTransactionManager struct{}

var _ TransactionManager = (*NopTransactionManager)(nil)

func (n *NopTransactionManager) WithinTransaction(ctx context.Context, fn TxFunc) error {
	if fn == nil {
		return nil
	}
	return fn(ctx)
}
