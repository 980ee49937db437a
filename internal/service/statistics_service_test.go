package service

import (
	"context"
	"testing"
	"time"

	"workshop/internal/model"
	"workshop/pkg/apperror"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestStatisticsReport(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	stats := NewStatisticsService(f.deps)

	p := f.product(t, "Cabinet", 10)
	o := f.order(t, p.ID, 3)
	f.accept(t, o.ID)
	l, err := f.production.StartStage(ctx, f.worker, StartStageRequest{OrderID: o.ID, StageID: p.Stages[0].ID})
	require.NoError(t, err)
	_, err = f.production.CompleteStage(ctx, f.worker, l.ID)
	require.NoError(t, err)
	_, err = f.orders.Advance(ctx, f.manager, o.ID, TransitionRequest{ExpectedStatus: model.OrderStatusDone})
	require.NoError(t, err)

	// a second order that never ships stays out of sales
	pending := f.order(t, p.ID, 7)
	require.Equal(t, model.OrderStatusPending, pending.Status)

	_, err = f.salaries.MarkPaid(ctx, f.admin, MarkPaidRequest{
		WorkerID:   f.worker.ID,
		WorkLogIDs: []uuid.UUID{l.ID},
		Amount:     decimal.NewFromInt(30),
	})
	require.NoError(t, err)
	_, err = f.salaries.IssueAdvance(ctx, f.admin, AdvanceRequest{WorkerID: f.worker.ID, Amount: decimal.NewFromInt(5)})
	require.NoError(t, err)

	report, err := stats.GetStatistics(ctx, f.admin, testNow.Add(-time.Hour), testNow.Add(time.Hour))
	require.NoError(t, err)
	require.Equal(t, "750", report.Sales.String())
	require.Equal(t, "300", report.CostOfGoods.String())
	require.Equal(t, "450", report.GrossProfit.String())
	require.Equal(t, 1, report.DeliveredOrders)
	require.Equal(t, 3, report.DeliveredUnits)
	require.Equal(t, "30", report.WagesAccrued.String())
	require.True(t, report.WagesUnpaid.IsZero())
	require.Equal(t, "30", report.SalaryPaid.String())
	require.Equal(t, "5", report.AdvancesPaid.String())
	require.Len(t, report.TopProducts, 1)
	require.Equal(t, "Cabinet", report.TopProducts[0].ProductName)

	earlier, err := stats.GetStatistics(ctx, f.admin, testNow.AddDate(0, 0, -7), testNow.AddDate(0, 0, -1))
	require.NoError(t, err)
	require.True(t, earlier.Sales.IsZero())
	require.Empty(t, earlier.TopProducts)
	require.True(t, earlier.SalaryPaid.IsZero())
}

func TestStatisticsGuards(t *testing.T) {
	f := newFixture(t)
	stats := NewStatisticsService(f.deps)

	_, err := stats.GetStatistics(context.Background(), f.manager, testNow.Add(-time.Hour), testNow)
	require.ErrorIs(t, err, apperror.ErrForbidden)

	_, err = stats.GetStatistics(context.Background(), f.admin, testNow, testNow.Add(-time.Hour))
	require.ErrorIs(t, err, apperror.ErrValidation)
}
