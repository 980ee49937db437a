package memory

import (
	"context"

	"workshop/internal/model"
	"workshop/internal/repository"

	"github.com/google/uuid"
)

type InventoryTx struct{ store *Store }

var _ repository.InventoryTxRepository = (*InventoryTx)(nil)

func (r *InventoryTx) Create(ctx context.Context, tx *model.InventoryTransaction) error {
	r.store.wlock(ctx)
	defer r.store.wunlock(ctx)
	if tx.ID == uuid.Nil {
		tx.ID = uuid.New()
	}
	tx.CreatedAt = r.store.now()
	r.store.inventoryTx = append(r.store.inventoryTx, *tx)
	return nil
}

// ListByProduct returns the newest entries first
func (r *InventoryTx) ListByProduct(ctx context.Context, productID uuid.UUID, pg, limit int) ([]model.InventoryTransaction, int64, error) {
	r.store.rlock(ctx)
	defer r.store.runlock(ctx)
	out := make([]model.InventoryTransaction, 0)
	for i := len(r.store.inventoryTx) - 1; i >= 0; i-- {
		if r.store.inventoryTx[i].ProductID == productID {
			out = append(out, r.store.inventoryTx[i])
		}
	}
	return page(out, pg, limit), int64(len(out)), nil
}

type Audit struct{ store *Store }

var _ repository.AuditRepository = (*Audit)(nil)

func (r *Audit) Log(ctx context.Context, entry *model.AuditLog) error {
	r.store.wlock(ctx)
	defer r.store.wunlock(ctx)
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	entry.CreatedAt = r.store.now()
	r.store.audit = append(r.store.audit, *entry)
	return nil
}

func (r *Audit) List(ctx context.Context, pg, limit int) ([]model.AuditLog, int64, error) {
	r.store.rlock(ctx)
	defer r.store.runlock(ctx)
	out := make([]model.AuditLog, 0, len(r.store.audit))
	for i := len(r.store.audit) - 1; i >= 0; i-- {
		out = append(out, r.store.audit[i])
	}
	return page(out, pg, limit), int64(len(out)), nil
}
