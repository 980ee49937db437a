package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// StatisticsResponse aggregates delivered sales and wage figures over a time range
type StatisticsResponse struct {
	Sales              decimal.Decimal `json:"sales"`
	CostOfGoods        decimal.Decimal `json:"cost_of_goods"`
	GrossProfit        decimal.Decimal `json:"gross_profit"`
	DeliveredOrders    int             `json:"delivered_orders"`
	DeliveredUnits     int             `json:"delivered_units"`
	WagesAccrued       decimal.Decimal `json:"wages_accrued"`
	WagesUnpaid        decimal.Decimal `json:"wages_unpaid"`
	SalaryPaid         decimal.Decimal `json:"salary_paid"`
	AdvancesPaid       decimal.Decimal `json:"advances_paid"`
	TopProducts        []ProductSales  `json:"top_products"`
	TimeRangeStartDate time.Time       `json:"time_range_start_date"`
	TimeRangeEndDate   time.Time       `json:"time_range_end_date"`
}

// ProductSales is one product's delivered orders within a report range.
// Cost uses the product's current unit cost.
type ProductSales struct {
	ProductID   uuid.UUID       `json:"product_id"`
	ProductName string          `json:"product_name"`
	OrderCount  int             `json:"order_count"`
	Units       int             `json:"units"`
	Revenue     decimal.Decimal `json:"revenue"`
	Cost        decimal.Decimal `json:"cost"`
}

// WageTotals sums the pay of work logs completed within a report range
type WageTotals struct {
	Accrued decimal.Decimal `json:"accrued"`
	Unpaid  decimal.Decimal `json:"unpaid"`
}
