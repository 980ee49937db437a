package service

import (
	"context"
	"testing"
	"time"

	"workshop/internal/access"
	"workshop/internal/events"
	"workshop/internal/model"
	"workshop/internal/repository/memory"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var testNow = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

type fixture struct {
	deps       *Deps
	recorder   *events.Recorder
	orders     OrderService
	products   ProductService
	production ProductionService
	salaries   SalaryService
	audit      AuditService

	admin      access.Actor
	manager    access.Actor
	worker     access.Actor
	worker2    access.Actor
	wholesaler access.Actor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	rec := &events.Recorder{}
	deps := &Deps{
		Repos:     memory.NewStore().Repositories(),
		Publisher: rec,
		Log:       zap.NewNop(),
		Now:       func() time.Time { return testNow },
	}
	return &fixture{
		deps:       deps,
		recorder:   rec,
		orders:     NewOrderService(deps),
		products:   NewProductService(deps),
		production: NewProductionService(deps),
		salaries:   NewSalaryService(deps),
		audit:      NewAuditService(deps),
		admin:      access.Actor{ID: uuid.New(), Role: model.RoleAdmin},
		manager:    access.Actor{ID: uuid.New(), Role: model.RoleManager},
		worker:     access.Actor{ID: uuid.New(), Role: model.RoleWorker},
		worker2:    access.Actor{ID: uuid.New(), Role: model.RoleWorker},
		wholesaler: access.Actor{ID: uuid.New(), Role: model.RoleWholesaler},
	}
}

// product creates a product whose stages pay the given per-unit rates
func (f *fixture) product(t *testing.T, name string, rates ...int64) *model.Product {
	t.Helper()
	stages := make([]StageInput, 0, len(rates))
	for i, r := range rates {
		stages = append(stages, StageInput{Name: name + "-stage-" + string(rune('A'+i)), Payment: decimal.NewFromInt(r)})
	}
	p, err := f.products.CreateProduct(context.Background(), f.manager, CreateProductRequest{
		Name:   name,
		Price:  decimal.NewFromInt(250),
		Cost:   decimal.NewFromInt(100),
		Stages: stages,
	})
	require.NoError(t, err)
	return p
}

func (f *fixture) order(t *testing.T, productID uuid.UUID, qty int) *OrderResponse {
	t.Helper()
	o, err := f.orders.CreateOrder(context.Background(), f.manager, CreateOrderRequest{
		ProductID: productID,
		Quantity:  qty,
		Deadline:  testNow.AddDate(0, 0, 1),
	})
	require.NoError(t, err)
	return o
}

func (f *fixture) accept(t *testing.T, id uuid.UUID) {
	t.Helper()
	_, err := f.orders.Advance(context.Background(), f.manager, id, TransitionRequest{
		ExpectedStatus: model.OrderStatusPending,
		TargetStatus:   model.OrderStatusAccepted,
	})
	require.NoError(t, err)
}

func (f *fixture) stock(t *testing.T, productID uuid.UUID) int {
	t.Helper()
	p, err := f.products.GetProduct(context.Background(), f.admin, productID)
	require.NoError(t, err)
	return p.Stock
}

func (f *fixture) status(t *testing.T, orderID uuid.UUID) string {
	t.Helper()
	o, err := f.orders.GetOrder(context.Background(), f.admin, orderID)
	require.NoError(t, err)
	return o.Status
}

func TestAuditTrailRecordsMutations(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, "Chair", 10)
	f.order(t, p.ID, 2)

	logs, total, err := f.audit.GetAuditLogs(ctx, f.admin, 1, 10)
	require.NoError(t, err)
	require.EqualValues(t, 2, total)
	require.Equal(t, model.ActionCreateOrder, logs[0].Action)
	require.Equal(t, model.ActionCreateProduct, logs[1].Action)
	require.Equal(t, model.RoleManager, logs[0].ActorRole)

	_, _, err = f.audit.GetAuditLogs(ctx, f.manager, 1, 10)
	require.Error(t, err)
}
