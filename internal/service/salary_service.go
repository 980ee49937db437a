package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"workshop/internal/access"
	"workshop/internal/events"
	"workshop/internal/model"
	"workshop/internal/repository"
	"workshop/pkg/apperror"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// DTOs
// MarkPaidRequest: Amount is optional. When set it must match the payout the
// service computes for the batch.
type MarkPaidRequest struct {
	WorkerID   uuid.UUID       `json:"worker_id" binding:"required"`
	WorkLogIDs []uuid.UUID     `json:"work_log_ids" binding:"required"`
	Amount     decimal.Decimal `json:"amount"`
	Comment    string          `json:"comment"`
}

type AdvanceRequest struct {
	WorkerID uuid.UUID       `json:"worker_id" binding:"required"`
	Amount   decimal.Decimal `json:"amount"`
	Comment  string          `json:"comment"`
}

type Earnings struct {
	WorkerID uuid.UUID       `json:"worker_id"`
	Amount   decimal.Decimal `json:"amount"`
	WorkLogs []model.WorkLog `json:"work_logs"`
}

// SalarySummary: Balance is what is still owed after salary payments and advances
type SalarySummary struct {
	WorkerID   uuid.UUID       `json:"worker_id"`
	Earned     decimal.Decimal `json:"earned"`
	Unpaid     decimal.Decimal `json:"unpaid"`
	SalaryPaid decimal.Decimal `json:"salary_paid"`
	Advances   decimal.Decimal `json:"advances"`
	Balance    decimal.Decimal `json:"balance"`
}

type SalaryService interface {
	UnpaidEarnings(ctx context.Context, actor access.Actor, workerID uuid.UUID) (*Earnings, error)
	MarkPaid(ctx context.Context, actor access.Actor, req MarkPaidRequest) (*model.SalaryPayment, error)
	IssueAdvance(ctx context.Context, actor access.Actor, req AdvanceRequest) (*model.SalaryPayment, error)
	PaymentHistory(ctx context.Context, actor access.Actor, workerID uuid.UUID) ([]model.SalaryPayment, error)
	Summary(ctx context.Context, actor access.Actor, workerID uuid.UUID) (*SalarySummary, error)
}

type salaryService struct {
	*Deps
}

func NewSalaryService(deps *Deps) SalaryService {
	return &salaryService{Deps: deps}
}

// authorizeView lets admins see anyone and workers only themselves
func authorizeView(actor access.Actor, workerID uuid.UUID) error {
	if err := access.Authorize(actor, access.SalaryView); err != nil {
		return err
	}
	if !actor.IsAdmin() && !actor.Owns(workerID) {
		return apperror.Forbidden("workers may only view their own salary")
	}
	return nil
}

func (s *salaryService) completedLogs(ctx context.Context, workerID uuid.UUID, paid *bool) ([]model.WorkLog, error) {
	open := false
	logs, _, err := s.Repos.WorkLogs.List(ctx, repository.WorkLogFilter{WorkerID: &workerID, Open: &open, Paid: paid})
	if err != nil {
		return nil, fmt.Errorf("list work logs: %w", err)
	}
	return logs, nil
}

func sumPayments(logs []model.WorkLog) decimal.Decimal {
	total := decimal.Zero
	for _, l := range logs {
		total = total.Add(l.Payment)
	}
	return total
}

func (s *salaryService) UnpaidEarnings(ctx context.Context, actor access.Actor, workerID uuid.UUID) (*Earnings, error) {
	if err := authorizeView(actor, workerID); err != nil {
		return nil, err
	}
	unpaid := false
	logs, err := s.completedLogs(ctx, workerID, &unpaid)
	if err != nil {
		return nil, err
	}
	return &Earnings{WorkerID: workerID, Amount: sumPayments(logs), WorkLogs: logs}, nil
}

// payout is what a batch worth batch actually costs once earlier payments and
// advances are taken off the worker's balance: min(batch, earned - paid), never
// below zero.
func payout(batch, earned, paid decimal.Decimal) decimal.Decimal {
	due := decimal.Min(batch, earned.Sub(paid))
	if due.IsNegative() {
		return decimal.Zero
	}
	return due
}

// balanceOf totals the worker's completed logs and every payment made so far,
// advances included.
func (s *salaryService) balanceOf(ctx context.Context, workerID uuid.UUID) (earned, paid decimal.Decimal, err error) {
	logs, err := s.completedLogs(ctx, workerID, nil)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	payments, err := s.Repos.Payments.ListByWorker(ctx, workerID)
	if err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("list payments: %w", err)
	}
	paid = decimal.Zero
	for _, p := range payments {
		paid = paid.Add(p.Amount)
	}
	return sumPayments(logs), paid, nil
}

// MarkPaid settles a batch of the worker's completed logs. Either every log in
// the batch becomes paid by one payment or nothing changes. Advances already
// issued are deducted, so the payment may be smaller than the batch or zero.
func (s *salaryService) MarkPaid(ctx context.Context, actor access.Actor, req MarkPaidRequest) (*model.SalaryPayment, error) {
	if err := access.Authorize(actor, access.SalaryPay); err != nil {
		return nil, err
	}
	if len(req.WorkLogIDs) == 0 {
		return nil, apperror.Validation("at least one work log is required")
	}
	seen := make(map[uuid.UUID]bool, len(req.WorkLogIDs))
	for _, id := range req.WorkLogIDs {
		if seen[id] {
			return nil, apperror.Validation("work log %s is listed twice", id)
		}
		seen[id] = true
	}
	if req.Amount.IsNegative() {
		return nil, apperror.Validation("amount must not be negative")
	}

	paidBy := actor.ID
	payment := model.SalaryPayment{
		WorkerID:    req.WorkerID,
		PaymentType: model.PaymentTypeSalary,
		Comment:     strings.TrimSpace(req.Comment),
		PaidBy:      &paidBy,
		CreatedAt:   s.now(),
	}

	err := s.Repos.Tx.RunInTx(ctx, func(txCtx context.Context) error {
		logs, err := s.Repos.WorkLogs.FindByIDs(txCtx, req.WorkLogIDs)
		if err != nil {
			return fmt.Errorf("load work logs: %w", err)
		}
		if len(logs) != len(req.WorkLogIDs) {
			found := make(map[uuid.UUID]bool, len(logs))
			for _, l := range logs {
				found[l.ID] = true
			}
			for _, id := range req.WorkLogIDs {
				if !found[id] {
					return apperror.NotFound("work log %s not found", id)
				}
			}
		}
		for _, l := range logs {
			switch {
			case l.WorkerID != req.WorkerID:
				return apperror.Validation("work log %s belongs to another worker", l.ID)
			case l.IsOpen():
				return apperror.Conflict("work log %s is not completed", l.ID)
			case l.Paid:
				return apperror.Conflict("work log %s is already paid", l.ID).WithContext("work_log_id", l.ID)
			}
		}
		batch := sumPayments(logs)
		earned, paid, err := s.balanceOf(txCtx, req.WorkerID)
		if err != nil {
			return err
		}
		due := payout(batch, earned, paid)
		if !req.Amount.IsZero() && !req.Amount.Equal(due) {
			return apperror.Validation("amount %s does not match the %s due for the selected logs", req.Amount, due).
				WithContext("expected_amount", due)
		}
		payment.Amount = due

		if err := s.Repos.Payments.Create(txCtx, &payment); err != nil {
			return fmt.Errorf("failed to record payment: %w", err)
		}
		if err := s.Repos.WorkLogs.MarkPaid(txCtx, req.WorkerID, req.WorkLogIDs, payment.ID); err != nil {
			if errors.Is(err, repository.ErrStaleState) {
				return apperror.Conflict("work logs changed concurrently; reload and retry")
			}
			return fmt.Errorf("mark work logs paid: %w", err)
		}
		payment.WorkLogIDs = req.WorkLogIDs
		return s.audit(txCtx, actor, model.ActionPaySalary, payment.ID.String(), "", map[string]interface{}{
			"worker_id":    req.WorkerID,
			"amount":       due,
			"earned":       batch,
			"deducted":     batch.Sub(due),
			"work_log_ids": req.WorkLogIDs,
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger().Info("salary paid",
		zap.String("payment_id", payment.ID.String()),
		zap.String("worker_id", req.WorkerID.String()),
		zap.String("amount", payment.Amount.String()),
		zap.Int("work_logs", len(req.WorkLogIDs)))
	s.publish(ctx, paymentEvent(events.SalaryPaid, &payment))
	return &payment, nil
}

func (s *salaryService) IssueAdvance(ctx context.Context, actor access.Actor, req AdvanceRequest) (*model.SalaryPayment, error) {
	if err := access.Authorize(actor, access.SalaryAdvance); err != nil {
		return nil, err
	}
	if req.WorkerID == uuid.Nil {
		return nil, apperror.Validation("worker id is required")
	}
	if !req.Amount.IsPositive() {
		return nil, apperror.Validation("amount must be positive")
	}

	paidBy := actor.ID
	payment := model.SalaryPayment{
		WorkerID:    req.WorkerID,
		Amount:      req.Amount,
		PaymentType: model.PaymentTypeAdvance,
		Comment:     strings.TrimSpace(req.Comment),
		PaidBy:      &paidBy,
		CreatedAt:   s.now(),
	}
	err := s.Repos.Tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.Repos.Payments.Create(txCtx, &payment); err != nil {
			return fmt.Errorf("failed to record advance: %w", err)
		}
		return s.audit(txCtx, actor, model.ActionIssueAdvance, payment.ID.String(), "", req)
	})
	if err != nil {
		return nil, err
	}

	s.logger().Info("advance issued",
		zap.String("payment_id", payment.ID.String()),
		zap.String("worker_id", req.WorkerID.String()),
		zap.String("amount", req.Amount.String()))
	s.publish(ctx, paymentEvent(events.SalaryAdvance, &payment))
	return &payment, nil
}

func (s *salaryService) PaymentHistory(ctx context.Context, actor access.Actor, workerID uuid.UUID) ([]model.SalaryPayment, error) {
	if err := authorizeView(actor, workerID); err != nil {
		return nil, err
	}
	payments, err := s.Repos.Payments.ListByWorker(ctx, workerID)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	return payments, nil
}

func (s *salaryService) Summary(ctx context.Context, actor access.Actor, workerID uuid.UUID) (*SalarySummary, error) {
	if err := authorizeView(actor, workerID); err != nil {
		return nil, err
	}
	logs, err := s.completedLogs(ctx, workerID, nil)
	if err != nil {
		return nil, err
	}
	payments, err := s.Repos.Payments.ListByWorker(ctx, workerID)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}

	sum := &SalarySummary{
		WorkerID:   workerID,
		Earned:     decimal.Zero,
		Unpaid:     decimal.Zero,
		SalaryPaid: decimal.Zero,
		Advances:   decimal.Zero,
	}
	for _, l := range logs {
		sum.Earned = sum.Earned.Add(l.Payment)
		if !l.Paid {
			sum.Unpaid = sum.Unpaid.Add(l.Payment)
		}
	}
	for _, p := range payments {
		if p.PaymentType == model.PaymentTypeAdvance {
			sum.Advances = sum.Advances.Add(p.Amount)
		} else {
			sum.SalaryPaid = sum.SalaryPaid.Add(p.Amount)
		}
	}
	sum.Balance = sum.Earned.Sub(sum.SalaryPaid).Sub(sum.Advances)
	return sum, nil
}

func paymentEvent(typ string, p *model.SalaryPayment) events.Event {
	return events.Event{
		Type: typ,
		Key:  p.WorkerID.String(),
		Data: map[string]interface{}{
			"payment_id": p.ID,
			"worker_id":  p.WorkerID,
			"amount":     p.Amount,
			"type":       p.PaymentType,
		},
	}
}
