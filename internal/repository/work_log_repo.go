package repository

import (
	"context"
	"time"

	"workshop/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type workLogRepository struct {
	db *gorm.DB
}

func NewWorkLogRepository(db *gorm.DB) WorkLogRepository {
	return &workLogRepository{db: db}
}

// Create relies on the partial unique index idx_work_logs_open to reject a second
// open log for the same (worker, order, stage).
func (r *workLogRepository) Create(ctx context.Context, log *model.WorkLog) error {
	return translate(GetDB(ctx, r.db).Create(log).Error)
}

func (r *workLogRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.WorkLog, error) {
	var log model.WorkLog
	if err := GetDB(ctx, r.db).First(&log, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &log, nil
}

func (r *workLogRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]model.WorkLog, error) {
	var logs []model.WorkLog
	if err := GetDB(ctx, r.db).Where("id IN ?", ids).Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}

func (r *workLogRepository) List(ctx context.Context, f WorkLogFilter) ([]model.WorkLog, int64, error) {
	var logs []model.WorkLog
	var total int64

	db := GetDB(ctx, r.db).Model(&model.WorkLog{})
	if f.WorkerID != nil {
		db = db.Where("worker_id = ?", *f.WorkerID)
	}
	if f.OrderID != nil {
		db = db.Where("order_id = ?", *f.OrderID)
	}
	if f.Paid != nil {
		db = db.Where("paid = ?", *f.Paid)
	}
	if f.Open != nil {
		if *f.Open {
			db = db.Where("completed_at IS NULL")
		} else {
			db = db.Where("completed_at IS NOT NULL")
		}
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := db.Order("started_at DESC").Scopes(Paginate(f.Page, f.Limit)).Find(&logs).Error; err != nil {
		return nil, 0, err
	}
	return logs, total, nil
}

func (r *workLogRepository) CountByOrder(ctx context.Context, orderID uuid.UUID) (int64, error) {
	var count int64
	err := GetDB(ctx, r.db).Model(&model.WorkLog{}).Where("order_id = ?", orderID).Count(&count).Error
	return count, err
}

func (r *workLogRepository) CompletedStageIDs(ctx context.Context, orderID uuid.UUID) (map[uuid.UUID]bool, error) {
	var ids []uuid.UUID
	if err := GetDB(ctx, r.db).Model(&model.WorkLog{}).
		Where("order_id = ? AND completed_at IS NOT NULL", orderID).
		Distinct().Pluck("stage_id", &ids).Error; err != nil {
		return nil, err
	}

	done := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		done[id] = true
	}
	return done, nil
}

func (r *workLogRepository) Complete(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	db := GetDB(ctx, r.db)
	res := db.Model(&model.WorkLog{}).
		Where("id = ? AND completed_at IS NULL", id).
		Updates(map[string]interface{}{"completed_at": at, "updated_at": at})
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 1 {
		return true, nil
	}

	var count int64
	if err := db.Model(&model.WorkLog{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, err
	}
	if count == 0 {
		return false, ErrNotFound
	}
	return false, nil
}

func (r *workLogRepository) MarkPaid(ctx context.Context, workerID uuid.UUID, ids []uuid.UUID, paymentID uuid.UUID) error {
	// Nested transaction (savepoint) so a short update rolls back on its own.
	return GetDB(ctx, r.db).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.WorkLog{}).
			Where("id IN ? AND worker_id = ? AND paid = ? AND completed_at IS NOT NULL", ids, workerID, false).
			Updates(map[string]interface{}{"paid": true, "payment_id": paymentID, "updated_at": time.Now()})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != int64(len(ids)) {
			return ErrStaleState
		}
		return nil
	})
}
