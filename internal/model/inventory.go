package model

import (
	"time"

	"github.com/google/uuid"
)

// Stock change reasons
const (
	StockReasonProduction = "production" // last stage of an order completed
	StockReasonLaunch     = "launch"     // stock-building production outside any order
	StockReasonAdjustment = "adjustment" // manual correction
	StockReasonDelivery   = "delivery"   // order handed to the customer
)

// InventoryTransaction journals every stock change of a product
type InventoryTransaction struct {
	ID              uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ProductID       uuid.UUID  `gorm:"type:uuid;not null;index" json:"product_id"`
	OrderID         *uuid.UUID `gorm:"type:uuid;index" json:"order_id"` // nil for launches and manual adjustments
	Reason          string     `gorm:"type:varchar(20);not null" json:"reason"`
	QuantityChanged int        `gorm:"type:int;not null" json:"quantity_changed"`
	StockAfter      int        `gorm:"type:int;not null" json:"stock_after"`
	CreatedAt       time.Time  `gorm:"index" json:"created_at"`
}
