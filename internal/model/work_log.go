package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// WorkLog records one worker performing one stage for one order.
// Lifecycle: open (CompletedAt nil) → completed → paid.
type WorkLog struct {
	ID          uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	WorkerID    uuid.UUID       `gorm:"type:uuid;not null;index;uniqueIndex:idx_work_logs_open,where:completed_at IS NULL" json:"worker_id"`
	OrderID     uuid.UUID       `gorm:"type:uuid;not null;index;uniqueIndex:idx_work_logs_open,where:completed_at IS NULL" json:"order_id"`
	StageID     uuid.UUID       `gorm:"type:uuid;not null;index;uniqueIndex:idx_work_logs_open,where:completed_at IS NULL" json:"stage_id"`
	ProductID   uuid.UUID       `gorm:"type:uuid;not null;index" json:"product_id"`
	Quantity    int             `gorm:"type:int;not null" json:"quantity"`
	Payment     decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"payment"`
	StartedAt   time.Time       `gorm:"not null" json:"started_at"`
	CompletedAt *time.Time      `gorm:"index" json:"completed_at"`
	Paid        bool            `gorm:"not null;default:false;index" json:"paid"`
	PaymentID   *uuid.UUID      `gorm:"type:uuid;index" json:"payment_id"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// IsOpen reports whether the stage work has not been completed yet
func (w *WorkLog) IsOpen() bool {
	return w.CompletedAt == nil
}

// Payable reports whether the log can be included in a salary payment
func (w *WorkLog) Payable() bool {
	return w.CompletedAt != nil && !w.Paid
}
