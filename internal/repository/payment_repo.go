package repository

import (
	"context"

	"workshop/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type paymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) PaymentRepository {
	return &paymentRepository{db: db}
}

func (r *paymentRepository) Create(ctx context.Context, payment *model.SalaryPayment) error {
	return GetDB(ctx, r.db).Create(payment).Error
}

func (r *paymentRepository) ListByWorker(ctx context.Context, workerID uuid.UUID) ([]model.SalaryPayment, error) {
	db := GetDB(ctx, r.db)

	var payments []model.SalaryPayment
	if err := db.Where("worker_id = ?", workerID).Order("created_at DESC").Find(&payments).Error; err != nil {
		return nil, err
	}
	if len(payments) == 0 {
		return payments, nil
	}

	ids := make([]uuid.UUID, 0, len(payments))
	for _, p := range payments {
		ids = append(ids, p.ID)
	}
	var covered []model.WorkLog
	if err := db.Select("id, payment_id").Where("payment_id IN ?", ids).Find(&covered).Error; err != nil {
		return nil, err
	}

	byPayment := make(map[uuid.UUID][]uuid.UUID)
	for _, l := range covered {
		byPayment[*l.PaymentID] = append(byPayment[*l.PaymentID], l.ID)
	}
	for i := range payments {
		payments[i].WorkLogIDs = byPayment[payments[i].ID]
	}
	return payments, nil
}
