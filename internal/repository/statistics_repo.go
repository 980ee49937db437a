package repository

import (
	"context"
	"fmt"
	"time"

	"workshop/internal/model"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type statisticsRepository struct {
	db *gorm.DB
}

func NewStatisticsRepository(db *gorm.DB) StatisticsRepository {
	return &statisticsRepository{db: db}
}

func (r *statisticsRepository) DeliveredSales(ctx context.Context, start, end time.Time) ([]model.ProductSales, error) {
	var rows []model.ProductSales
	if err := GetDB(ctx, r.db).Table("orders").
		Select("orders.product_id, COALESCE(products.name, '') AS product_name, COUNT(orders.id) AS order_count, "+
			"SUM(orders.quantity) AS units, COALESCE(SUM(orders.total_price), 0) AS revenue, "+
			"COALESCE(SUM(orders.quantity * products.cost), 0) AS cost").
		Joins("LEFT JOIN products ON products.id = orders.product_id").
		Where("orders.status = ? AND orders.delivered_at >= ? AND orders.delivered_at <= ?", model.OrderStatusDelivered, start, end).
		Group("orders.product_id, products.name").
		Order("units DESC, product_name ASC").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to query delivered sales: %w", err)
	}
	return rows, nil
}

func (r *statisticsRepository) WageTotals(ctx context.Context, start, end time.Time) (model.WageTotals, error) {
	var totals model.WageTotals
	if err := GetDB(ctx, r.db).Model(&model.WorkLog{}).
		Select("COALESCE(SUM(payment), 0) AS accrued, COALESCE(SUM(CASE WHEN paid THEN 0 ELSE payment END), 0) AS unpaid").
		Where("completed_at >= ? AND completed_at <= ?", start, end).
		Scan(&totals).Error; err != nil {
		return model.WageTotals{}, fmt.Errorf("failed to query wage totals: %w", err)
	}
	return totals, nil
}

func (r *statisticsRepository) PaymentTotals(ctx context.Context, start, end time.Time) (map[string]decimal.Decimal, error) {
	var rows []struct {
		PaymentType string
		Total       decimal.Decimal
	}
	if err := GetDB(ctx, r.db).Model(&model.SalaryPayment{}).
		Select("payment_type, COALESCE(SUM(amount), 0) AS total").
		Where("created_at >= ? AND created_at <= ?", start, end).
		Group("payment_type").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to query payment totals: %w", err)
	}
	totals := make(map[string]decimal.Decimal, len(rows))
	for _, row := range rows {
		totals[row.PaymentType] = row.Total
	}
	return totals, nil
}
