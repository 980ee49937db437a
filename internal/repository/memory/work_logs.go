package memory

import (
	"context"
	"sort"
	"time"

	"workshop/internal/model"
	"workshop/internal/repository"

	"github.com/google/uuid"
)

type WorkLogs struct{ store *Store }

var _ repository.WorkLogRepository = (*WorkLogs)(nil)

func (r *WorkLogs) Create(ctx context.Context, l *model.WorkLog) error {
	r.store.wlock(ctx)
	defer r.store.wunlock(ctx)

	for _, existing := range r.store.workLogs {
		if existing.IsOpen() && existing.WorkerID == l.WorkerID &&
			existing.OrderID == l.OrderID && existing.StageID == l.StageID {
			return repository.ErrDuplicate
		}
	}
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	now := r.store.now()
	l.CreatedAt, l.UpdatedAt = now, now
	r.store.workLogs[l.ID] = *l
	return nil
}

func (r *WorkLogs) FindByID(ctx context.Context, id uuid.UUID) (*model.WorkLog, error) {
	r.store.rlock(ctx)
	defer r.store.runlock(ctx)
	l, ok := r.store.workLogs[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &l, nil
}

func (r *WorkLogs) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]model.WorkLog, error) {
	r.store.rlock(ctx)
	defer r.store.runlock(ctx)
	out := make([]model.WorkLog, 0, len(ids))
	for _, id := range ids {
		if l, ok := r.store.workLogs[id]; ok {
			out = append(out, l)
		}
	}
	return out, nil
}

func (r *WorkLogs) List(ctx context.Context, f repository.WorkLogFilter) ([]model.WorkLog, int64, error) {
	r.store.rlock(ctx)
	defer r.store.runlock(ctx)

	out := make([]model.WorkLog, 0)
	for _, l := range r.store.workLogs {
		if f.WorkerID != nil && l.WorkerID != *f.WorkerID {
			continue
		}
		if f.OrderID != nil && l.OrderID != *f.OrderID {
			continue
		}
		if f.Paid != nil && l.Paid != *f.Paid {
			continue
		}
		if f.Open != nil && l.IsOpen() != *f.Open {
			continue
		}
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	return page(out, f.Page, f.Limit), int64(len(out)), nil
}

func (r *WorkLogs) CountByOrder(ctx context.Context, orderID uuid.UUID) (int64, error) {
	r.store.rlock(ctx)
	defer r.store.runlock(ctx)
	var n int64
	for _, l := range r.store.workLogs {
		if l.OrderID == orderID {
			n++
		}
	}
	return n, nil
}

func (r *WorkLogs) CompletedStageIDs(ctx context.Context, orderID uuid.UUID) (map[uuid.UUID]bool, error) {
	r.store.rlock(ctx)
	defer r.store.runlock(ctx)
	done := make(map[uuid.UUID]bool)
	for _, l := range r.store.workLogs {
		if l.OrderID == orderID && !l.IsOpen() {
			done[l.StageID] = true
		}
	}
	return done, nil
}

func (r *WorkLogs) Complete(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	r.store.wlock(ctx)
	defer r.store.wunlock(ctx)
	l, ok := r.store.workLogs[id]
	if !ok {
		return false, repository.ErrNotFound
	}
	if !l.IsOpen() {
		return false, nil
	}
	l.CompletedAt = &at
	l.UpdatedAt = at
	r.store.workLogs[id] = l
	return true, nil
}

func (r *WorkLogs) MarkPaid(ctx context.Context, workerID uuid.UUID, ids []uuid.UUID, paymentID uuid.UUID) error {
	r.store.wlock(ctx)
	defer r.store.wunlock(ctx)

	seen := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		l, ok := r.store.workLogs[id]
		if !ok || seen[id] || l.WorkerID != workerID || !l.Payable() {
			return repository.ErrStaleState
		}
		seen[id] = true
	}
	now := r.store.now()
	for _, id := range ids {
		l := r.store.workLogs[id]
		l.Paid = true
		l.PaymentID = &paymentID
		l.UpdatedAt = now
		r.store.workLogs[id] = l
	}
	return nil
}
