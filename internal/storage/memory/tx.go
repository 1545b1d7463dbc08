package memory

import (
	"context"
	"sync"

	"github.com/goliatone/go-webpush/pkg/interfaces/store"
)

type txKey struct{}

// journal collects undo steps for the writes made inside one transaction.
type journal struct {
	mu   sync.Mutex
	undo []func()
}

func (j *journal) record(fn func()) {
	j.mu.Lock()
	j.undo = append(j.undo, fn)
	j.mu.Unlock()
}

func (j *journal) rollback() {
	j.mu.Lock()
	steps := j.undo
	j.undo = nil
	j.mu.Unlock()
	for i := len(steps) - 1; i >= 0; i-- {
		steps[i]()
	}
}

// recordUndo registers fn with the transaction bound to ctx, if any.
func recordUndo(ctx context.Context, fn func()) {
	if ctx == nil {
		return
	}
	if j, ok := ctx.Value(txKey{}).(*journal); ok {
		j.record(fn)
	}
}

// TxManager serializes memory transactions store-wide and reverts their
// writes when the callback fails or panics. Nested calls join the outer one.
type TxManager struct {
	mu sync.Mutex
}

var _ store.TransactionManager = (*TxManager)(nil)

func NewTxManager() *TxManager {
	return &TxManager{}
}

func (m *TxManager) WithinTransaction(ctx context.Context, fn store.TxFunc) error {
	if fn == nil {
		return nil
	}
	if _, ok := ctx.Value(txKey{}).(*journal); ok {
		return fn(ctx)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	j := &journal{}
	committed := false
	defer func() {
		if !committed {
			j.rollback()
		}
	}()

	if err := fn(context.WithValue(ctx, txKey{}, j)); err != nil {
		return err
	}
	committed = true
	return nil
}
