package service

import (
	"context"
	"testing"

	"workshop/internal/access"
	"workshop/internal/model"
	"workshop/pkg/apperror"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// completedLogs runs n single-stage orders through production for the worker.
// Each log is worth rate × qty.
func (f *fixture) completedLogs(t *testing.T, worker access.Actor, n int, rate int64, qty int) []uuid.UUID {
	t.Helper()
	ctx := context.Background()
	p := f.product(t, "Piece-"+uuid.NewString()[:8], rate)
	ids := make([]uuid.UUID, 0, n)
	for i := 0; i < n; i++ {
		o := f.order(t, p.ID, qty)
		f.accept(t, o.ID)
		l, err := f.production.StartStage(ctx, worker, StartStageRequest{OrderID: o.ID, StageID: p.Stages[0].ID})
		require.NoError(t, err)
		_, err = f.production.CompleteStage(ctx, worker, l.ID)
		require.NoError(t, err)
		ids = append(ids, l.ID)
	}
	return ids
}

// Scenario E
func TestUnpaidEarningsAndMarkPaid(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ids := f.completedLogs(t, f.worker, 2, 20, 5)

	earned, err := f.salaries.UnpaidEarnings(ctx, f.worker, f.worker.ID)
	require.NoError(t, err)
	require.True(t, decimal.NewFromInt(200).Equal(earned.Amount), earned.Amount.String())
	require.Len(t, earned.WorkLogs, 2)

	payment, err := f.salaries.MarkPaid(ctx, f.admin, MarkPaidRequest{
		WorkerID:   f.worker.ID,
		WorkLogIDs: ids,
		Amount:     decimal.NewFromInt(200),
	})
	require.NoError(t, err)
	require.Equal(t, model.PaymentTypeSalary, payment.PaymentType)
	require.ElementsMatch(t, ids, payment.WorkLogIDs)

	earned, err = f.salaries.UnpaidEarnings(ctx, f.worker, f.worker.ID)
	require.NoError(t, err)
	require.True(t, earned.Amount.IsZero())

	paid := true
	logs, _, err := f.production.ListWorkLogs(ctx, f.admin, WorkLogQuery{WorkerID: &f.worker.ID, Paid: &paid})
	require.NoError(t, err)
	require.Len(t, logs, 2)
	for _, l := range logs {
		require.True(t, l.Paid)
		require.Equal(t, payment.ID, *l.PaymentID)
		require.NotNil(t, l.CompletedAt)
	}

	history, err := f.salaries.PaymentHistory(ctx, f.worker, f.worker.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	require.ElementsMatch(t, ids, history[0].WorkLogIDs)
}

func TestMarkPaidIsAllOrNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ids := f.completedLogs(t, f.worker, 3, 10, 1)

	_, err := f.salaries.MarkPaid(ctx, f.admin, MarkPaidRequest{WorkerID: f.worker.ID, WorkLogIDs: ids[:1], Amount: decimal.NewFromInt(10)})
	require.NoError(t, err)

	// one already-paid log poisons the whole batch
	_, err = f.salaries.MarkPaid(ctx, f.admin, MarkPaidRequest{WorkerID: f.worker.ID, WorkLogIDs: ids, Amount: decimal.NewFromInt(30)})
	require.ErrorIs(t, err, apperror.ErrConflict)

	earned, err := f.salaries.UnpaidEarnings(ctx, f.admin, f.worker.ID)
	require.NoError(t, err)
	require.True(t, decimal.NewFromInt(20).Equal(earned.Amount))
	for _, l := range earned.WorkLogs {
		require.False(t, l.Paid)
	}

	history, err := f.salaries.PaymentHistory(ctx, f.admin, f.worker.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
}

func TestMarkPaidValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ids := f.completedLogs(t, f.worker, 1, 10, 1)
	otherIDs := f.completedLogs(t, f.worker2, 1, 10, 1)

	p := f.product(t, "Open", 1)
	o := f.order(t, p.ID, 1)
	f.accept(t, o.ID)
	open, err := f.production.StartStage(ctx, f.worker, StartStageRequest{OrderID: o.ID, StageID: p.Stages[0].ID})
	require.NoError(t, err)

	ten := decimal.NewFromInt(10)
	cases := []struct {
		name string
		req  MarkPaidRequest
		kind error
	}{
		{"empty batch", MarkPaidRequest{WorkerID: f.worker.ID, Amount: ten}, apperror.ErrValidation},
		{"duplicate id", MarkPaidRequest{WorkerID: f.worker.ID, WorkLogIDs: []uuid.UUID{ids[0], ids[0]}, Amount: ten}, apperror.ErrValidation},
		{"negative amount", MarkPaidRequest{WorkerID: f.worker.ID, WorkLogIDs: ids, Amount: ten.Neg()}, apperror.ErrValidation},
		{"wrong amount", MarkPaidRequest{WorkerID: f.worker.ID, WorkLogIDs: ids, Amount: decimal.NewFromInt(11)}, apperror.ErrValidation},
		{"other worker's log", MarkPaidRequest{WorkerID: f.worker.ID, WorkLogIDs: []uuid.UUID{ids[0], otherIDs[0]}, Amount: decimal.NewFromInt(20)}, apperror.ErrValidation},
		{"open log", MarkPaidRequest{WorkerID: f.worker.ID, WorkLogIDs: []uuid.UUID{open.ID}, Amount: ten}, apperror.ErrConflict},
		{"unknown log", MarkPaidRequest{WorkerID: f.worker.ID, WorkLogIDs: []uuid.UUID{uuid.New()}, Amount: ten}, apperror.ErrNotFound},
	}
	for _, tc := range cases {
		_, err := f.salaries.MarkPaid(ctx, f.admin, tc.req)
		require.ErrorIs(t, err, tc.kind, tc.name)
	}

	_, err = f.salaries.MarkPaid(ctx, f.manager, MarkPaidRequest{WorkerID: f.worker.ID, WorkLogIDs: ids, Amount: ten})
	require.ErrorIs(t, err, apperror.ErrForbidden)
	_, err = f.salaries.MarkPaid(ctx, f.worker, MarkPaidRequest{WorkerID: f.worker.ID, WorkLogIDs: ids, Amount: ten})
	require.ErrorIs(t, err, apperror.ErrForbidden)

	earned, err := f.salaries.UnpaidEarnings(ctx, f.worker, f.worker.ID)
	require.NoError(t, err)
	require.True(t, ten.Equal(earned.Amount), "open logs are never payable")
}

func TestSalaryVisibility(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.salaries.UnpaidEarnings(ctx, f.worker, f.worker2.ID)
	require.ErrorIs(t, err, apperror.ErrForbidden)
	_, err = f.salaries.Summary(ctx, f.worker, f.worker2.ID)
	require.ErrorIs(t, err, apperror.ErrForbidden)
	_, err = f.salaries.PaymentHistory(ctx, f.manager, f.worker.ID)
	require.ErrorIs(t, err, apperror.ErrForbidden)

	_, err = f.salaries.UnpaidEarnings(ctx, f.admin, f.worker2.ID)
	require.NoError(t, err)
}

func TestAdvancesAndSummary(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ids := f.completedLogs(t, f.worker, 3, 50, 2)

	_, err := f.salaries.IssueAdvance(ctx, f.admin, AdvanceRequest{WorkerID: f.worker.ID, Amount: decimal.NewFromInt(30), Comment: "bus fare"})
	require.NoError(t, err)
	_, err = f.salaries.MarkPaid(ctx, f.admin, MarkPaidRequest{WorkerID: f.worker.ID, WorkLogIDs: ids[:2], Amount: decimal.NewFromInt(200)})
	require.NoError(t, err)

	sum, err := f.salaries.Summary(ctx, f.worker, f.worker.ID)
	require.NoError(t, err)
	require.True(t, decimal.NewFromInt(300).Equal(sum.Earned), sum.Earned.String())
	require.True(t, decimal.NewFromInt(100).Equal(sum.Unpaid))
	require.True(t, decimal.NewFromInt(200).Equal(sum.SalaryPaid))
	require.True(t, decimal.NewFromInt(30).Equal(sum.Advances))
	require.True(t, decimal.NewFromInt(70).Equal(sum.Balance))

	// an advance does not settle any work log
	earned, err := f.salaries.UnpaidEarnings(ctx, f.worker, f.worker.ID)
	require.NoError(t, err)
	require.True(t, decimal.NewFromInt(100).Equal(earned.Amount))

	_, err = f.salaries.IssueAdvance(ctx, f.admin, AdvanceRequest{WorkerID: f.worker.ID})
	require.ErrorIs(t, err, apperror.ErrValidation)
	_, err = f.salaries.IssueAdvance(ctx, f.worker, AdvanceRequest{WorkerID: f.worker.ID, Amount: decimal.NewFromInt(1)})
	require.ErrorIs(t, err, apperror.ErrForbidden)
}

func TestMarkPaidDeductsAdvances(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ids := f.completedLogs(t, f.worker, 2, 20, 5)

	_, err := f.salaries.IssueAdvance(ctx, f.admin, AdvanceRequest{WorkerID: f.worker.ID, Amount: decimal.NewFromInt(50)})
	require.NoError(t, err)

	// the advance already covers part of the batch
	_, err = f.salaries.MarkPaid(ctx, f.admin, MarkPaidRequest{WorkerID: f.worker.ID, WorkLogIDs: ids, Amount: decimal.NewFromInt(200)})
	require.ErrorIs(t, err, apperror.ErrValidation)

	payment, err := f.salaries.MarkPaid(ctx, f.admin, MarkPaidRequest{WorkerID: f.worker.ID, WorkLogIDs: ids})
	require.NoError(t, err)
	require.Equal(t, "150", payment.Amount.String())

	sum, err := f.salaries.Summary(ctx, f.admin, f.worker.ID)
	require.NoError(t, err)
	require.True(t, sum.Balance.IsZero(), sum.Balance.String())
	require.True(t, sum.Unpaid.IsZero())
}

func TestMarkPaidFullyCoveredByAdvance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ids := f.completedLogs(t, f.worker, 1, 10, 3)

	_, err := f.salaries.IssueAdvance(ctx, f.admin, AdvanceRequest{WorkerID: f.worker.ID, Amount: decimal.NewFromInt(100)})
	require.NoError(t, err)

	payment, err := f.salaries.MarkPaid(ctx, f.admin, MarkPaidRequest{WorkerID: f.worker.ID, WorkLogIDs: ids})
	require.NoError(t, err)
	require.True(t, payment.Amount.IsZero())

	earned, err := f.salaries.UnpaidEarnings(ctx, f.admin, f.worker.ID)
	require.NoError(t, err)
	require.Empty(t, earned.WorkLogs)

	sum, err := f.salaries.Summary(ctx, f.admin, f.worker.ID)
	require.NoError(t, err)
	require.Equal(t, "-70", sum.Balance.String())
}
