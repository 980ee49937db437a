package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"workshop/internal/events"
	"workshop/internal/model"
	"workshop/pkg/apperror"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestCreateOrderValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, "Table", 5)

	cases := map[string]CreateOrderRequest{
		"zero quantity":  {ProductID: p.ID, Quantity: 0, Deadline: testNow.AddDate(0, 0, 1)},
		"negative":       {ProductID: p.ID, Quantity: -2, Deadline: testNow.AddDate(0, 0, 1)},
		"past deadline":  {ProductID: p.ID, Quantity: 1, Deadline: testNow.AddDate(0, 0, -1)},
		"no deadline":    {ProductID: p.ID, Quantity: 1},
		"neg prepayment": {ProductID: p.ID, Quantity: 1, Deadline: testNow, Prepayment: decimal.NewFromInt(-1)},
	}
	for name, req := range cases {
		_, err := f.orders.CreateOrder(ctx, f.manager, req)
		require.ErrorIs(t, err, apperror.ErrValidation, name)
	}

	_, err := f.orders.CreateOrder(ctx, f.manager, CreateOrderRequest{ProductID: uuid.New(), Quantity: 1, Deadline: testNow})
	require.ErrorIs(t, err, apperror.ErrNotFound)

	bare, err := f.products.CreateProduct(ctx, f.admin, CreateProductRequest{Name: "Blank", Price: decimal.NewFromInt(1)})
	require.NoError(t, err)
	_, err = f.orders.CreateOrder(ctx, f.manager, CreateOrderRequest{ProductID: bare.ID, Quantity: 1, Deadline: testNow})
	require.ErrorIs(t, err, apperror.ErrValidation)

	_, err = f.orders.CreateOrder(ctx, f.worker, CreateOrderRequest{ProductID: p.ID, Quantity: 1, Deadline: testNow})
	require.ErrorIs(t, err, apperror.ErrForbidden)
}

func TestCreateOrderDueTodayIsAccepted(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "Stool", 1)

	o, err := f.orders.CreateOrder(context.Background(), f.manager, CreateOrderRequest{
		ProductID: p.ID, Quantity: 4, Deadline: model.StartOfDay(testNow),
	})
	require.NoError(t, err)
	require.Equal(t, model.OrderStatusPending, o.Status)
	require.True(t, decimal.NewFromInt(1000).Equal(o.TotalPrice))
	require.Equal(t, "Stool", o.ProductName)
	require.Equal(t, []string{events.OrderCreated}, f.recorder.Types())
}

// Scenario A
func TestAdvanceRejectsSkippingStatuses(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, "Shelf", 10)
	o := f.order(t, p.ID, 5)
	require.Equal(t, model.OrderStatusPending, o.Status)

	_, err := f.orders.Advance(ctx, f.manager, o.ID, TransitionRequest{
		ExpectedStatus: model.OrderStatusPending,
		TargetStatus:   model.OrderStatusInProgress,
	})
	require.ErrorIs(t, err, apperror.ErrConflict)
	require.Equal(t, model.OrderStatusPending, f.status(t, o.ID))
}

func TestAdvanceChecksExpectedStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, "Shelf", 10)
	o := f.order(t, p.ID, 5)
	f.accept(t, o.ID)

	_, err := f.orders.Advance(ctx, f.manager, o.ID, TransitionRequest{
		ExpectedStatus: model.OrderStatusPending,
		TargetStatus:   model.OrderStatusAccepted,
	})
	require.ErrorIs(t, err, apperror.ErrConflict)

	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, model.OrderStatusAccepted, appErr.Context["current_status"])
}

func TestAdvanceValidationAndAccess(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, "Shelf", 10)
	o := f.order(t, p.ID, 5)

	_, err := f.orders.Advance(ctx, f.worker, uuid.New(), TransitionRequest{ExpectedStatus: model.OrderStatusPending})
	require.ErrorIs(t, err, apperror.ErrForbidden, "access is checked before existence")

	_, err = f.orders.Advance(ctx, f.manager, o.ID, TransitionRequest{ExpectedStatus: "bogus"})
	require.ErrorIs(t, err, apperror.ErrValidation)

	_, err = f.orders.Advance(ctx, f.manager, o.ID, TransitionRequest{ExpectedStatus: model.OrderStatusPending, TargetStatus: "shipped"})
	require.ErrorIs(t, err, apperror.ErrValidation)

	_, err = f.orders.Advance(ctx, f.manager, o.ID, TransitionRequest{ExpectedStatus: model.OrderStatusPending, TargetStatus: model.OrderStatusCancelled})
	require.ErrorIs(t, err, apperror.ErrValidation)

	_, err = f.orders.Advance(ctx, f.manager, uuid.New(), TransitionRequest{ExpectedStatus: model.OrderStatusPending})
	require.ErrorIs(t, err, apperror.ErrNotFound)

	// empty target means the immediate successor
	res, err := f.orders.Advance(ctx, f.admin, o.ID, TransitionRequest{ExpectedStatus: model.OrderStatusPending})
	require.NoError(t, err)
	require.Equal(t, model.OrderStatusAccepted, res.Status)
}

func TestManualDoneIsRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, "Bench", 3, 4)
	o := f.order(t, p.ID, 2)
	f.accept(t, o.ID)
	_, err := f.production.StartStage(ctx, f.worker, StartStageRequest{OrderID: o.ID, StageID: p.Stages[0].ID})
	require.NoError(t, err)

	_, err = f.orders.Advance(ctx, f.manager, o.ID, TransitionRequest{
		ExpectedStatus: model.OrderStatusInProgress,
		TargetStatus:   model.OrderStatusDone,
	})
	require.ErrorIs(t, err, apperror.ErrConflict)
	require.Equal(t, model.OrderStatusInProgress, f.status(t, o.ID))
}

func TestConcurrentAdvanceHasOneWinner(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "Desk", 1)
	o := f.order(t, p.ID, 1)

	const n = 16
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		wins      int
		conflicts int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.orders.Advance(context.Background(), f.manager, o.ID, TransitionRequest{
				ExpectedStatus: model.OrderStatusPending,
				TargetStatus:   model.OrderStatusAccepted,
			})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				wins++
			} else if apperror.StatusOf(err) == 409 {
				conflicts++
			}
		}()
	}
	wg.Wait()

	require.Equal(t, 1, wins)
	require.Equal(t, n-1, conflicts)
	require.Equal(t, model.OrderStatusAccepted, f.status(t, o.ID))
}

func TestDeliveryShipsStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, "Lamp", 2)
	o := f.order(t, p.ID, 3)
	f.accept(t, o.ID)

	l, err := f.production.StartStage(ctx, f.worker, StartStageRequest{OrderID: o.ID, StageID: p.Stages[0].ID})
	require.NoError(t, err)
	_, err = f.production.CompleteStage(ctx, f.worker, l.ID)
	require.NoError(t, err)
	require.Equal(t, model.OrderStatusDone, f.status(t, o.ID))
	require.Equal(t, 3, f.stock(t, p.ID))

	// someone took the stock in the meantime
	_, err = f.products.AdjustStock(ctx, f.manager, p.ID, -2)
	require.NoError(t, err)

	_, err = f.orders.Advance(ctx, f.manager, o.ID, TransitionRequest{
		ExpectedStatus: model.OrderStatusDone,
		TargetStatus:   model.OrderStatusDelivered,
	})
	require.ErrorIs(t, err, apperror.ErrConflict)
	require.Equal(t, model.OrderStatusDone, f.status(t, o.ID))
	require.Equal(t, 1, f.stock(t, p.ID))

	_, err = f.products.LaunchProduction(ctx, f.manager, p.ID, 2)
	require.NoError(t, err)

	res, err := f.orders.Advance(ctx, f.manager, o.ID, TransitionRequest{
		ExpectedStatus: model.OrderStatusDone,
		TargetStatus:   model.OrderStatusDelivered,
	})
	require.NoError(t, err)
	require.Equal(t, model.OrderStatusDelivered, res.Status)
	require.NotNil(t, res.DeliveredAt)
	require.Equal(t, 0, f.stock(t, p.ID))

	history, _, err := f.products.StockHistory(ctx, f.manager, p.ID, 1, 10)
	require.NoError(t, err)
	require.Equal(t, model.StockReasonDelivery, history[0].Reason)
	require.Equal(t, -3, history[0].QuantityChanged)
	require.Equal(t, o.ID, *history[0].OrderID)

	_, err = f.orders.Advance(ctx, f.manager, o.ID, TransitionRequest{ExpectedStatus: model.OrderStatusDelivered})
	require.ErrorIs(t, err, apperror.ErrConflict)
}

func TestCancel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, "Crate", 1)

	o := f.order(t, p.ID, 1)
	f.accept(t, o.ID)
	res, err := f.orders.Cancel(ctx, f.manager, o.ID, model.OrderStatusAccepted)
	require.NoError(t, err)
	require.Equal(t, model.OrderStatusCancelled, res.Status)

	_, err = f.orders.Advance(ctx, f.manager, o.ID, TransitionRequest{ExpectedStatus: model.OrderStatusCancelled})
	require.ErrorIs(t, err, apperror.ErrConflict)

	started := f.order(t, p.ID, 1)
	f.accept(t, started.ID)
	_, err = f.production.StartStage(ctx, f.worker, StartStageRequest{OrderID: started.ID, StageID: p.Stages[0].ID})
	require.NoError(t, err)
	_, err = f.orders.Cancel(ctx, f.manager, started.ID, model.OrderStatusInProgress)
	require.ErrorIs(t, err, apperror.ErrConflict)

	_, err = f.orders.Cancel(ctx, f.wholesaler, started.ID, model.OrderStatusInProgress)
	require.ErrorIs(t, err, apperror.ErrForbidden)
}

func TestDeleteOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, "Box", 1)

	pending := f.order(t, p.ID, 1)
	require.NoError(t, f.orders.DeleteOrder(ctx, f.manager, pending.ID))
	_, err := f.orders.GetOrder(ctx, f.manager, pending.ID)
	require.ErrorIs(t, err, apperror.ErrNotFound)
	require.Contains(t, f.recorder.Types(), events.OrderDeleted)

	accepted := f.order(t, p.ID, 1)
	f.accept(t, accepted.ID)
	require.ErrorIs(t, f.orders.DeleteOrder(ctx, f.manager, accepted.ID), apperror.ErrConflict)

	require.ErrorIs(t, f.orders.DeleteOrder(ctx, f.manager, uuid.New()), apperror.ErrNotFound)
	require.ErrorIs(t, f.orders.DeleteOrder(ctx, f.worker, accepted.ID), apperror.ErrForbidden)
}

func TestWholesalerSeesOnlyOwnOrders(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, "Vase", 1)

	someone := uuid.New()
	mine, err := f.orders.CreateOrder(ctx, f.wholesaler, CreateOrderRequest{
		ProductID:  p.ID,
		Quantity:   2,
		Deadline:   testNow.AddDate(0, 0, 3),
		CustomerID: &someone, // ignored for wholesalers
	})
	require.NoError(t, err)
	require.Equal(t, f.wholesaler.ID, *mine.CustomerID)

	other := f.order(t, p.ID, 1)

	list, total, err := f.orders.ListOrders(ctx, f.wholesaler, OrderQuery{})
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	require.Equal(t, mine.ID, list[0].ID)

	_, err = f.orders.GetOrder(ctx, f.wholesaler, other.ID)
	require.ErrorIs(t, err, apperror.ErrNotFound)

	counts, err := f.orders.StatusCounts(ctx, f.wholesaler)
	require.NoError(t, err)
	require.EqualValues(t, 1, counts[model.OrderStatusPending])

	counts, err = f.orders.StatusCounts(ctx, f.manager)
	require.NoError(t, err)
	require.EqualValues(t, 2, counts[model.OrderStatusPending])
	require.EqualValues(t, 0, counts[model.OrderStatusDelivered])
}

func TestListOrdersDerivedViews(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, "Frame", 1)

	f.order(t, p.ID, 1)
	_, err := f.orders.CreateOrder(ctx, f.manager, CreateOrderRequest{ProductID: p.ID, Quantity: 1, Deadline: testNow.Add(3 * time.Hour)})
	require.NoError(t, err)
	later := f.order(t, p.ID, 1)

	// two days on, every deadline has passed
	ref := testNow.AddDate(0, 0, 2)
	overdue, total, err := f.orders.ListOrders(ctx, f.manager, OrderQuery{Overdue: true, Reference: ref})
	require.NoError(t, err)
	require.EqualValues(t, 3, total)
	for _, o := range overdue {
		require.True(t, o.Overdue)
	}

	dueOn := testNow
	dueToday, total, err := f.orders.ListOrders(ctx, f.manager, OrderQuery{DueOn: &dueOn})
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	require.Equal(t, testNow.Add(3*time.Hour), dueToday[0].Deadline)

	f.accept(t, later.ID)
	accepted, total, err := f.orders.ListOrders(ctx, f.manager, OrderQuery{Statuses: []string{model.OrderStatusAccepted}})
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	require.Equal(t, later.ID, accepted[0].ID)

	page, total, err := f.orders.ListOrders(ctx, f.manager, OrderQuery{Page: 2, Limit: 2})
	require.NoError(t, err)
	require.EqualValues(t, 3, total)
	require.Len(t, page, 1)

	_, _, err = f.orders.ListOrders(ctx, f.manager, OrderQuery{Statuses: []string{"lost"}})
	require.ErrorIs(t, err, apperror.ErrValidation)
}
