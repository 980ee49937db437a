package memory

import (
	"context"
	"sort"
	"strings"

	"workshop/internal/model"
	"workshop/internal/repository"

	"github.com/google/uuid"
)

type Products struct{ store *Store }

var _ repository.ProductRepository = (*Products)(nil)

func copyProduct(p model.Product) model.Product {
	p.Stages = append([]model.ProductionStage(nil), p.Stages...)
	p.SortStages()
	return p
}

func (r *Products) nameTaken(name string, except uuid.UUID) bool {
	for id, p := range r.store.products {
		if id != except && p.Name == name {
			return true
		}
	}
	return false
}

func (r *Products) Create(ctx context.Context, p *model.Product) error {
	r.store.wlock(ctx)
	defer r.store.wunlock(ctx)

	if r.nameTaken(p.Name, uuid.Nil) {
		return repository.ErrDuplicate
	}
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	for i := range p.Stages {
		if p.Stages[i].ID == uuid.Nil {
			p.Stages[i].ID = uuid.New()
		}
		p.Stages[i].ProductID = p.ID
	}
	now := r.store.now()
	p.CreatedAt, p.UpdatedAt = now, now
	r.store.products[p.ID] = copyProduct(*p)
	return nil
}

func (r *Products) Update(ctx context.Context, p *model.Product, replaceStages bool) error {
	r.store.wlock(ctx)
	defer r.store.wunlock(ctx)

	cur, ok := r.store.products[p.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if r.nameTaken(p.Name, p.ID) {
		return repository.ErrDuplicate
	}
	cur.Name = p.Name
	cur.Description = p.Description
	cur.Price = p.Price
	cur.Cost = p.Cost
	cur.UpdatedAt = r.store.now()
	if replaceStages {
		for i := range p.Stages {
			p.Stages[i].ID = uuid.New()
			p.Stages[i].ProductID = p.ID
		}
		cur.Stages = p.Stages
	}
	r.store.products[p.ID] = copyProduct(cur)
	return nil
}

func (r *Products) Delete(ctx context.Context, id uuid.UUID) error {
	r.store.wlock(ctx)
	defer r.store.wunlock(ctx)
	if _, ok := r.store.products[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.store.products, id)
	return nil
}

func (r *Products) FindByID(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	r.store.rlock(ctx)
	defer r.store.runlock(ctx)
	p, ok := r.store.products[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := copyProduct(p)
	return &cp, nil
}

// FindByIDForUpdate is FindByID: inside RunInTx the whole store is already locked.
func (r *Products) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	return r.FindByID(ctx, id)
}

func (r *Products) FindByName(ctx context.Context, name string) (*model.Product, error) {
	r.store.rlock(ctx)
	defer r.store.runlock(ctx)
	for _, p := range r.store.products {
		if p.Name == name {
			cp := copyProduct(p)
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *Products) List(ctx context.Context, pg, limit int, search string) ([]model.Product, int64, error) {
	r.store.rlock(ctx)
	defer r.store.runlock(ctx)

	out := make([]model.Product, 0, len(r.store.products))
	for _, p := range r.store.products {
		if search != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(search)) {
			continue
		}
		out = append(out, copyProduct(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return page(out, pg, limit), int64(len(out)), nil
}

func (r *Products) AdjustStock(ctx context.Context, id uuid.UUID, delta int) (int, error) {
	r.store.wlock(ctx)
	defer r.store.wunlock(ctx)

	p, ok := r.store.products[id]
	if !ok {
		return 0, repository.ErrNotFound
	}
	if p.Stock+delta < 0 {
		return 0, repository.ErrInsufficientStock
	}
	p.Stock += delta
	p.UpdatedAt = r.store.now()
	r.store.products[id] = p
	return p.Stock, nil
}
