package repository

import (
	"context"
	"errors"
	"time"

	"workshop/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Storage-neutral failures. Both the gorm and the in-memory drivers return these.
var (
	ErrNotFound          = errors.New("not found")
	ErrDuplicate         = errors.New("duplicate")
	ErrStaleState        = errors.New("stale state")
	ErrInsufficientStock = errors.New("insufficient stock")
)

// OrderFilter narrows ListOrders. Zero values mean "no constraint".
type OrderFilter struct {
	Statuses   []string
	CustomerID *uuid.UUID
	ProductID  *uuid.UUID
	OverdueAt  *time.Time // open orders whose deadline is before this instant
	DueOn      *time.Time // deadline on this calendar day (location of the value)
	Page       int
	Limit      int
}

// WorkLogFilter narrows work log listings
type WorkLogFilter struct {
	WorkerID *uuid.UUID
	OrderID  *uuid.UUID
	Paid     *bool
	Open     *bool
	Page     int
	Limit    int
}

type ProductRepository interface {
	Create(ctx context.Context, product *model.Product) error
	// Update saves scalar fields. Stages are replaced only when replaceStages is set.
	Update(ctx context.Context, product *model.Product, replaceStages bool) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Product, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Product, error)
	FindByName(ctx context.Context, name string) (*model.Product, error)
	List(ctx context.Context, page, limit int, search string) ([]model.Product, int64, error)
	// AdjustStock applies delta in one guarded step and returns the resulting stock.
	// It fails with ErrInsufficientStock instead of going below zero.
	AdjustStock(ctx context.Context, id uuid.UUID, delta int) (int, error)
}

type OrderRepository interface {
	Create(ctx context.Context, order *model.Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Order, error)
	// FindByIDForUpdate locks the order row until the surrounding transaction ends.
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Order, error)
	List(ctx context.Context, filter OrderFilter) ([]model.Order, int64, error)
	CountByStatus(ctx context.Context, customerID *uuid.UUID) (map[string]int64, error)
	CountActiveByProduct(ctx context.Context, productID uuid.UUID) (int64, error)
	// TransitionStatus moves the order from one status to another only if it is
	// still in from; otherwise ErrStaleState.
	TransitionStatus(ctx context.Context, id uuid.UUID, from, to string, at time.Time) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type WorkLogRepository interface {
	// Create fails with ErrDuplicate when the worker already has an open log for the
	// same order and stage.
	Create(ctx context.Context, log *model.WorkLog) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.WorkLog, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]model.WorkLog, error)
	List(ctx context.Context, filter WorkLogFilter) ([]model.WorkLog, int64, error)
	CountByOrder(ctx context.Context, orderID uuid.UUID) (int64, error)
	CompletedStageIDs(ctx context.Context, orderID uuid.UUID) (map[uuid.UUID]bool, error)
	// Complete stamps completed_at if the log is still open and reports whether
	// this call was the one that closed it.
	Complete(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
	// MarkPaid flags every log as paid by paymentID, or none of them: ErrStaleState
	// when any id is not a completed, unpaid log of workerID.
	MarkPaid(ctx context.Context, workerID uuid.UUID, ids []uuid.UUID, paymentID uuid.UUID) error
}

type PaymentRepository interface {
	Create(ctx context.Context, payment *model.SalaryPayment) error
	ListByWorker(ctx context.Context, workerID uuid.UUID) ([]model.SalaryPayment, error)
}

type InventoryTxRepository interface {
	Create(ctx context.Context, tx *model.InventoryTransaction) error
	ListByProduct(ctx context.Context, productID uuid.UUID, page, limit int) ([]model.InventoryTransaction, int64, error)
}

type AuditRepository interface {
	Log(ctx context.Context, entry *model.AuditLog) error
	List(ctx context.Context, page, limit int) ([]model.AuditLog, int64, error)
}

// StatisticsRepository aggregates report figures over [start, end]
type StatisticsRepository interface {
	// DeliveredSales groups orders delivered in range by product, most units first
	DeliveredSales(ctx context.Context, start, end time.Time) ([]model.ProductSales, error)
	WageTotals(ctx context.Context, start, end time.Time) (model.WageTotals, error)
	// PaymentTotals sums payments made in range by payment type
	PaymentTotals(ctx context.Context, start, end time.Time) (map[string]decimal.Decimal, error)
}

// Repositories bundles one storage driver's implementations
type Repositories struct {
	Products    ProductRepository
	Orders      OrderRepository
	WorkLogs    WorkLogRepository
	Payments    PaymentRepository
	InventoryTx InventoryTxRepository
	Audit       AuditRepository
	Statistics  StatisticsRepository
	Tx          TransactionManager
}

// Offset converts 1-based page/limit into a row offset
func Offset(page, limit int) int {
	if page < 1 {
		page = 1
	}
	return (page - 1) * limit
}

// Paginate applies offset/limit. A non-positive limit returns every row.
func Paginate(page, limit int) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if limit <= 0 {
			return db
		}
		return db.Offset(Offset(page, limit)).Limit(limit)
	}
}
