package memory

import (
	"context"
	"sort"
	"time"

	"workshop/internal/model"
	"workshop/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Statistics struct{ store *Store }

var _ repository.StatisticsRepository = (*Statistics)(nil)

func inRange(t, start, end time.Time) bool {
	return !t.Before(start) && !t.After(end)
}

func (r *Statistics) DeliveredSales(ctx context.Context, start, end time.Time) ([]model.ProductSales, error) {
	s := r.store
	s.rlock(ctx)
	defer s.runlock(ctx)

	byProduct := make(map[uuid.UUID]*model.ProductSales)
	for _, o := range s.orders {
		if o.Status != model.OrderStatusDelivered || o.DeliveredAt == nil || !inRange(*o.DeliveredAt, start, end) {
			continue
		}
		row, ok := byProduct[o.ProductID]
		if !ok {
			row = &model.ProductSales{ProductID: o.ProductID}
			if p, found := s.products[o.ProductID]; found {
				row.ProductName = p.Name
			}
			byProduct[o.ProductID] = row
		}
		qty := decimal.NewFromInt(int64(o.Quantity))
		row.OrderCount++
		row.Units += o.Quantity
		row.Revenue = row.Revenue.Add(o.TotalPrice)
		if p, found := s.products[o.ProductID]; found {
			row.Cost = row.Cost.Add(p.Cost.Mul(qty))
		}
	}

	out := make([]model.ProductSales, 0, len(byProduct))
	for _, row := range byProduct {
		out = append(out, *row)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Units != out[j].Units {
			return out[i].Units > out[j].Units
		}
		return out[i].ProductName < out[j].ProductName
	})
	return out, nil
}

func (r *Statistics) WageTotals(ctx context.Context, start, end time.Time) (model.WageTotals, error) {
	s := r.store
	s.rlock(ctx)
	defer s.runlock(ctx)

	var totals model.WageTotals
	for _, w := range s.workLogs {
		if w.CompletedAt == nil || !inRange(*w.CompletedAt, start, end) {
			continue
		}
		totals.Accrued = totals.Accrued.Add(w.Payment)
		if !w.Paid {
			totals.Unpaid = totals.Unpaid.Add(w.Payment)
		}
	}
	return totals, nil
}

func (r *Statistics) PaymentTotals(ctx context.Context, start, end time.Time) (map[string]decimal.Decimal, error) {
	s := r.store
	s.rlock(ctx)
	defer s.runlock(ctx)

	totals := make(map[string]decimal.Decimal)
	for _, p := range s.payments {
		if !inRange(p.CreatedAt, start, end) {
			continue
		}
		totals[p.PaymentType] = totals[p.PaymentType].Add(p.Amount)
	}
	return totals, nil
}
