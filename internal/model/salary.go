package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Payment types
const (
	PaymentTypeSalary  = "salary"
	PaymentTypeAdvance = "advance"
)

// SalaryPayment is money handed to a worker. Salary payments cover a batch of work logs;
// advances cover none.
type SalaryPayment struct {
	ID          uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	WorkerID    uuid.UUID       `gorm:"type:uuid;not null;index" json:"worker_id"`
	Amount      decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	PaymentType string          `gorm:"type:varchar(20);not null" json:"payment_type"`
	Comment     string          `gorm:"type:text" json:"comment"`
	PaidBy      *uuid.UUID      `gorm:"type:uuid" json:"paid_by"`
	WorkLogIDs  []uuid.UUID     `gorm:"-" json:"work_log_ids"`
	CreatedAt   time.Time       `gorm:"index" json:"created_at"`
}
