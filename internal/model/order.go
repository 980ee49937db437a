package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Order statuses. The forward sequence is pending → accepted → in_progress → done → delivered.
const (
	OrderStatusPending    = "pending"
	OrderStatusAccepted   = "accepted"
	OrderStatusInProgress = "in_progress"
	OrderStatusDone       = "done"
	OrderStatusDelivered  = "delivered"
	OrderStatusCancelled  = "cancelled"
)

// OrderStatusSequence is the forward lifecycle in order
var OrderStatusSequence = []string{
	OrderStatusPending,
	OrderStatusAccepted,
	OrderStatusInProgress,
	OrderStatusDone,
	OrderStatusDelivered,
}

// Order is a customer's request for a quantity of one product by a deadline
type Order struct {
	ID              uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	CustomerID      *uuid.UUID      `gorm:"type:uuid;index" json:"customer_id"`
	CustomerName    string          `gorm:"type:varchar(255)" json:"customer_name"`
	CustomerPhone   string          `gorm:"type:varchar(50)" json:"customer_phone"`
	CustomerAddress string          `gorm:"type:text" json:"customer_address"`
	ProductID       uuid.UUID       `gorm:"type:uuid;not null;index" json:"product_id"`
	Quantity        int             `gorm:"type:int;not null" json:"quantity"`
	Deadline        time.Time       `gorm:"not null;index" json:"deadline"`
	Status          string          `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	TotalPrice      decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0" json:"total_price"`
	Prepayment      decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0" json:"prepayment"`
	Note            string          `gorm:"type:text" json:"note"`
	CreatedBy       *uuid.UUID      `gorm:"type:uuid" json:"created_by"`
	DeliveredAt     *time.Time      `json:"delivered_at"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// ValidOrderStatus reports whether status is a known order status
func ValidOrderStatus(status string) bool {
	return status == OrderStatusCancelled || statusIndex(status) >= 0
}

// NextOrderStatus returns the immediate forward successor of status
func NextOrderStatus(status string) (string, bool) {
	i := statusIndex(status)
	if i < 0 || i == len(OrderStatusSequence)-1 {
		return "", false
	}
	return OrderStatusSequence[i+1], true
}

// IsTerminalStatus reports whether no further transition is possible
func IsTerminalStatus(status string) bool {
	return status == OrderStatusDelivered || status == OrderStatusCancelled
}

// CanCancel reports whether an order in status may take the cancel path
func CanCancel(status string) bool {
	return status == OrderStatusPending || status == OrderStatusAccepted
}

func statusIndex(status string) int {
	for i, s := range OrderStatusSequence {
		if s == status {
			return i
		}
	}
	return -1
}

// IsOverdue reports whether the order is still open after its deadline
func (o *Order) IsOverdue(now time.Time) bool {
	return !IsTerminalStatus(o.Status) && o.Deadline.Before(now)
}

// IsDueOn reports whether the deadline falls on the calendar day of ref, in ref's location
func (o *Order) IsDueOn(ref time.Time) bool {
	start := StartOfDay(ref)
	d := o.Deadline.In(ref.Location())
	return !d.Before(start) && d.Before(start.AddDate(0, 0, 1))
}

// StartOfDay truncates t to midnight in t's location
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
