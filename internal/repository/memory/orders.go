package memory

import (
	"context"
	"sort"
	"time"

	"workshop/internal/model"
	"workshop/internal/repository"

	"github.com/google/uuid"
)

type Orders struct{ store *Store }

var _ repository.OrderRepository = (*Orders)(nil)

func (r *Orders) Create(ctx context.Context, o *model.Order) error {
	r.store.wlock(ctx)
	defer r.store.wunlock(ctx)
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	now := r.store.now()
	o.CreatedAt, o.UpdatedAt = now, now
	r.store.orders[o.ID] = *o
	return nil
}

func (r *Orders) FindByID(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	r.store.rlock(ctx)
	defer r.store.runlock(ctx)
	o, ok := r.store.orders[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &o, nil
}

// FindByIDForUpdate is FindByID: inside RunInTx the whole store is already locked.
func (r *Orders) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	return r.FindByID(ctx, id)
}

func matchOrder(o *model.Order, f repository.OrderFilter) bool {
	if len(f.Statuses) > 0 {
		found := false
		for _, s := range f.Statuses {
			if o.Status == s {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.CustomerID != nil && (o.CustomerID == nil || *o.CustomerID != *f.CustomerID) {
		return false
	}
	if f.ProductID != nil && o.ProductID != *f.ProductID {
		return false
	}
	if f.OverdueAt != nil && !o.IsOverdue(*f.OverdueAt) {
		return false
	}
	if f.DueOn != nil && !o.IsDueOn(*f.DueOn) {
		return false
	}
	return true
}

func (r *Orders) List(ctx context.Context, f repository.OrderFilter) ([]model.Order, int64, error) {
	r.store.rlock(ctx)
	defer r.store.runlock(ctx)

	out := make([]model.Order, 0)
	for _, o := range r.store.orders {
		if matchOrder(&o, f) {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Deadline.Equal(out[j].Deadline) {
			return out[i].Deadline.Before(out[j].Deadline)
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return page(out, f.Page, f.Limit), int64(len(out)), nil
}

func (r *Orders) CountByStatus(ctx context.Context, customerID *uuid.UUID) (map[string]int64, error) {
	r.store.rlock(ctx)
	defer r.store.runlock(ctx)
	counts := make(map[string]int64)
	for _, o := range r.store.orders {
		if customerID != nil && (o.CustomerID == nil || *o.CustomerID != *customerID) {
			continue
		}
		counts[o.Status]++
	}
	return counts, nil
}

func (r *Orders) CountActiveByProduct(ctx context.Context, productID uuid.UUID) (int64, error) {
	r.store.rlock(ctx)
	defer r.store.runlock(ctx)
	var n int64
	for _, o := range r.store.orders {
		if o.ProductID == productID && !model.IsTerminalStatus(o.Status) {
			n++
		}
	}
	return n, nil
}

func (r *Orders) TransitionStatus(ctx context.Context, id uuid.UUID, from, to string, at time.Time) error {
	r.store.wlock(ctx)
	defer r.store.wunlock(ctx)

	o, ok := r.store.orders[id]
	if !ok {
		return repository.ErrNotFound
	}
	if o.Status != from {
		return repository.ErrStaleState
	}
	o.Status = to
	o.UpdatedAt = at
	if to == model.OrderStatusDelivered {
		o.DeliveredAt = &at
	}
	r.store.orders[id] = o
	return nil
}

func (r *Orders) Delete(ctx context.Context, id uuid.UUID) error {
	r.store.wlock(ctx)
	defer r.store.wunlock(ctx)
	if _, ok := r.store.orders[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.store.orders, id)
	return nil
}
