// Package memory is an in-process storage driver. It implements the repository
// interfaces over maps guarded by one RWMutex and is used by tests and by
// STORAGE_DRIVER=memory.
package memory

import (
	"context"
	"sync"
	"time"

	"workshop/internal/model"
	"workshop/internal/repository"

	"github.com/google/uuid"
)

// Store holds every entity of one in-memory database
type Store struct {
	mu          sync.RWMutex
	products    map[uuid.UUID]model.Product
	orders      map[uuid.UUID]model.Order
	workLogs    map[uuid.UUID]model.WorkLog
	payments    map[uuid.UUID]model.SalaryPayment
	inventoryTx []model.InventoryTransaction
	audit       []model.AuditLog
	now         func() time.Time
}

func NewStore() *Store {
	return &Store{
		products: make(map[uuid.UUID]model.Product),
		orders:   make(map[uuid.UUID]model.Order),
		workLogs: make(map[uuid.UUID]model.WorkLog),
		payments: make(map[uuid.UUID]model.SalaryPayment),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// transaction-aware locking helpers
type txKey struct{}

func isTx(ctx context.Context) bool {
	b, ok := ctx.Value(txKey{}).(bool)
	return ok && b
}

func (s *Store) rlock(ctx context.Context) {
	if !isTx(ctx) {
		s.mu.RLock()
	}
}

func (s *Store) runlock(ctx context.Context) {
	if !isTx(ctx) {
		s.mu.RUnlock()
	}
}

func (s *Store) wlock(ctx context.Context) {
	if !isTx(ctx) {
		s.mu.Lock()
	}
}

func (s *Store) wunlock(ctx context.Context) {
	if !isTx(ctx) {
		s.mu.Unlock()
	}
}

// TxManager emulates a transaction by holding the store's write lock while fn
// runs. Services validate before they mutate, so an error returned from fn
// leaves nothing half-applied.
type TxManager struct{ store *Store }

func NewTxManager(store *Store) *TxManager { return &TxManager{store: store} }

var _ repository.TransactionManager = (*TxManager)(nil)

func (tx *TxManager) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	if isTx(ctx) {
		return fn(ctx)
	}
	tx.store.mu.Lock()
	defer tx.store.mu.Unlock()
	return fn(context.WithValue(ctx, txKey{}, true))
}

// Repositories wires every in-memory repository over one store
func (s *Store) Repositories() repository.Repositories {
	return repository.Repositories{
		Products:    &Products{store: s},
		Orders:      &Orders{store: s},
		WorkLogs:    &WorkLogs{store: s},
		Payments:    &Payments{store: s},
		InventoryTx: &InventoryTx{store: s},
		Audit:       &Audit{store: s},
		Statistics:  &Statistics{store: s},
		Tx:          NewTxManager(s),
	}
}

func page[T any](items []T, page, limit int) []T {
	if limit <= 0 {
		return items
	}
	start := repository.Offset(page, limit)
	if start >= len(items) {
		return []T{}
	}
	end := start + limit
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}
