package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"workshop/internal/model"
	"workshop/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func newProduct(t *testing.T, repos repository.Repositories, name string) *model.Product {
	t.Helper()
	p := &model.Product{
		Name:   name,
		Price:  decimal.NewFromInt(10),
		Stages: []model.ProductionStage{{Name: "Cutting", Sequence: 1}},
	}
	require.NoError(t, repos.Products.Create(context.Background(), p))
	return p
}

func TestProductNamesAreUnique(t *testing.T) {
	repos := NewStore().Repositories()
	newProduct(t, repos, "Desk")

	err := repos.Products.Create(context.Background(), &model.Product{Name: "Desk"})
	require.ErrorIs(t, err, repository.ErrDuplicate)
}

func TestAdjustStockGuardsZero(t *testing.T) {
	repos := NewStore().Repositories()
	p := newProduct(t, repos, "Desk")
	ctx := context.Background()

	stock, err := repos.Products.AdjustStock(ctx, p.ID, 3)
	require.NoError(t, err)
	require.Equal(t, 3, stock)

	_, err = repos.Products.AdjustStock(ctx, p.ID, -4)
	require.ErrorIs(t, err, repository.ErrInsufficientStock)

	_, err = repos.Products.AdjustStock(ctx, uuid.New(), 1)
	require.ErrorIs(t, err, repository.ErrNotFound)

	got, err := repos.Products.FindByID(ctx, p.ID)
	require.NoError(t, err)
	require.Equal(t, 3, got.Stock)
}

func TestTransitionStatusIsCompareAndSet(t *testing.T) {
	repos := NewStore().Repositories()
	ctx := context.Background()
	o := &model.Order{ProductID: uuid.New(), Quantity: 1, Status: model.OrderStatusPending}
	require.NoError(t, repos.Orders.Create(ctx, o))

	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := repos.Orders.TransitionStatus(ctx, o.ID, model.OrderStatusPending, model.OrderStatusAccepted, time.Now())
			if err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
				return
			}
			if !errors.Is(err, repository.ErrStaleState) {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()
	require.Equal(t, 1, wins)

	at := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	require.NoError(t, repos.Orders.TransitionStatus(ctx, o.ID, model.OrderStatusAccepted, model.OrderStatusInProgress, at))
	require.NoError(t, repos.Orders.TransitionStatus(ctx, o.ID, model.OrderStatusInProgress, model.OrderStatusDone, at))
	require.NoError(t, repos.Orders.TransitionStatus(ctx, o.ID, model.OrderStatusDone, model.OrderStatusDelivered, at))

	got, err := repos.Orders.FindByID(ctx, o.ID)
	require.NoError(t, err)
	require.Equal(t, at, *got.DeliveredAt)
}

func TestWorkLogPrimitives(t *testing.T) {
	repos := NewStore().Repositories()
	ctx := context.Background()
	worker, order, stage := uuid.New(), uuid.New(), uuid.New()

	first := &model.WorkLog{WorkerID: worker, OrderID: order, StageID: stage, Payment: decimal.NewFromInt(5)}
	require.NoError(t, repos.WorkLogs.Create(ctx, first))
	err := repos.WorkLogs.Create(ctx, &model.WorkLog{WorkerID: worker, OrderID: order, StageID: stage})
	require.ErrorIs(t, err, repository.ErrDuplicate)

	// another worker on the same stage is fine
	other := &model.WorkLog{WorkerID: uuid.New(), OrderID: order, StageID: stage}
	require.NoError(t, repos.WorkLogs.Create(ctx, other))

	// open logs cannot be paid
	err = repos.WorkLogs.MarkPaid(ctx, worker, []uuid.UUID{first.ID}, uuid.New())
	require.ErrorIs(t, err, repository.ErrStaleState)

	closed, err := repos.WorkLogs.Complete(ctx, first.ID, time.Now())
	require.NoError(t, err)
	require.True(t, closed)
	closed, err = repos.WorkLogs.Complete(ctx, first.ID, time.Now())
	require.NoError(t, err)
	require.False(t, closed)

	done, err := repos.WorkLogs.CompletedStageIDs(ctx, order)
	require.NoError(t, err)
	require.True(t, done[stage])

	// a closed log frees the slot for a new one
	require.NoError(t, repos.WorkLogs.Create(ctx, &model.WorkLog{WorkerID: worker, OrderID: order, StageID: stage}))
}

func TestMarkPaidIsAllOrNothing(t *testing.T) {
	repos := NewStore().Repositories()
	ctx := context.Background()
	worker := uuid.New()

	var ids []uuid.UUID
	for i := 0; i < 2; i++ {
		l := &model.WorkLog{WorkerID: worker, OrderID: uuid.New(), StageID: uuid.New()}
		require.NoError(t, repos.WorkLogs.Create(ctx, l))
		_, err := repos.WorkLogs.Complete(ctx, l.ID, time.Now())
		require.NoError(t, err)
		ids = append(ids, l.ID)
	}
	foreign := &model.WorkLog{WorkerID: uuid.New(), OrderID: uuid.New(), StageID: uuid.New()}
	require.NoError(t, repos.WorkLogs.Create(ctx, foreign))
	_, err := repos.WorkLogs.Complete(ctx, foreign.ID, time.Now())
	require.NoError(t, err)

	err = repos.WorkLogs.MarkPaid(ctx, worker, append([]uuid.UUID{}, ids[0], foreign.ID), uuid.New())
	require.ErrorIs(t, err, repository.ErrStaleState)
	l, err := repos.WorkLogs.FindByID(ctx, ids[0])
	require.NoError(t, err)
	require.False(t, l.Paid)

	paymentID := uuid.New()
	require.NoError(t, repos.WorkLogs.MarkPaid(ctx, worker, ids, paymentID))
	l, err = repos.WorkLogs.FindByID(ctx, ids[1])
	require.NoError(t, err)
	require.True(t, l.Paid)
	require.Equal(t, paymentID, *l.PaymentID)

	require.ErrorIs(t, repos.WorkLogs.MarkPaid(ctx, worker, ids, uuid.New()), repository.ErrStaleState)
}

func TestRunInTxNests(t *testing.T) {
	repos := NewStore().Repositories()
	p := newProduct(t, repos, "Desk")

	err := repos.Tx.RunInTx(context.Background(), func(txCtx context.Context) error {
		return repos.Tx.RunInTx(txCtx, func(inner context.Context) error {
			_, err := repos.Products.AdjustStock(inner, p.ID, 2)
			return err
		})
	})
	require.NoError(t, err)

	got, err := repos.Products.FindByID(context.Background(), p.ID)
	require.NoError(t, err)
	require.Equal(t, 2, got.Stock)
}
