package service

import (
	"context"
	"fmt"
	"time"

	"workshop/internal/access"
	"workshop/internal/model"
	"workshop/pkg/apperror"

	"github.com/shopspring/decimal"
)

// topProductsLimit bounds the ranking in a report
const topProductsLimit = 5

type StatisticsService interface {
	GetStatistics(ctx context.Context, actor access.Actor, startDate, endDate time.Time) (model.StatisticsResponse, error)
}

type statisticsService struct {
	*Deps
}

func NewStatisticsService(deps *Deps) StatisticsService {
	return &statisticsService{Deps: deps}
}

// GetStatistics reports delivered sales and wage movement between startDate and endDate inclusive
func (s *statisticsService) GetStatistics(ctx context.Context, actor access.Actor, startDate, endDate time.Time) (model.StatisticsResponse, error) {
	var response model.StatisticsResponse
	if err := access.Authorize(actor, access.ReportRead); err != nil {
		return response, err
	}
	if endDate.Before(startDate) {
		return response, apperror.Validation("end_date %s is before start_date %s",
			endDate.Format(time.RFC3339), startDate.Format(time.RFC3339))
	}
	response.TimeRangeStartDate = startDate
	response.TimeRangeEndDate = endDate

	sales, err := s.Repos.Statistics.DeliveredSales(ctx, startDate, endDate)
	if err != nil {
		return response, fmt.Errorf("failed to load sales: %w", err)
	}
	for _, row := range sales {
		response.Sales = response.Sales.Add(row.Revenue)
		response.CostOfGoods = response.CostOfGoods.Add(row.Cost)
		response.DeliveredOrders += row.OrderCount
		response.DeliveredUnits += row.Units
	}
	response.GrossProfit = response.Sales.Sub(response.CostOfGoods)

	if len(sales) > topProductsLimit {
		sales = sales[:topProductsLimit]
	}
	response.TopProducts = sales
	if response.TopProducts == nil {
		response.TopProducts = []model.ProductSales{}
	}

	wages, err := s.Repos.Statistics.WageTotals(ctx, startDate, endDate)
	if err != nil {
		return response, fmt.Errorf("failed to load wages: %w", err)
	}
	response.WagesAccrued = wages.Accrued
	response.WagesUnpaid = wages.Unpaid

	payments, err := s.Repos.Statistics.PaymentTotals(ctx, startDate, endDate)
	if err != nil {
		return response, fmt.Errorf("failed to load payments: %w", err)
	}
	response.SalaryPaid = payments[model.PaymentTypeSalary]
	response.AdvancesPaid = payments[model.PaymentTypeAdvance]
	if response.SalaryPaid.IsZero() {
		response.SalaryPaid = decimal.Zero
	}
	if response.AdvancesPaid.IsZero() {
		response.AdvancesPaid = decimal.Zero
	}

	return response, nil
}
