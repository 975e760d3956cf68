package service

import (
	"context"
	"sync"
)

// StoreTx runs a function atomically against the scoring and catalog
// stores. The withdraw path needs the assignment cancellations and the item
// status flip to commit or roll back together.
type StoreTx interface {
	RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error
}

// inMemoryStoreTx serializes transactions with a mutex. Matches the
// in-memory stores, which have no rollback; fn must not partially mutate on
// error paths.
type inMemoryStoreTx struct {
	mu sync.Mutex
}

func newInMemoryStoreTx() *inMemoryStoreTx {
	return &inMemoryStoreTx{}
}

func (t *inMemoryStoreTx) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return fn(ctx)
}
