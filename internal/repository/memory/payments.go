package memory

import (
	"context"
	"sort"

	"workshop/internal/model"
	"workshop/internal/repository"

	"github.com/google/uuid"
)

type Payments struct{ store *Store }

var _ repository.PaymentRepository = (*Payments)(nil)

func (r *Payments) Create(ctx context.Context, p *model.SalaryPayment) error {
	r.store.wlock(ctx)
	defer r.store.wunlock(ctx)
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = r.store.now()
	}
	stored := *p
	stored.WorkLogIDs = nil
	r.store.payments[p.ID] = stored
	return nil
}

func (r *Payments) ListByWorker(ctx context.Context, workerID uuid.UUID) ([]model.SalaryPayment, error) {
	r.store.rlock(ctx)
	defer r.store.runlock(ctx)

	out := make([]model.SalaryPayment, 0)
	for _, p := range r.store.payments {
		if p.WorkerID != workerID {
			continue
		}
		for _, l := range r.store.workLogs {
			if l.PaymentID != nil && *l.PaymentID == p.ID {
				p.WorkLogIDs = append(p.WorkLogIDs, l.ID)
			}
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}
