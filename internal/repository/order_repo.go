package repository

import (
	"context"
	"time"

	"workshop/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type orderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) Create(ctx context.Context, order *model.Order) error {
	return translate(GetDB(ctx, r.db).Create(order).Error)
}

func (r *orderRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	var order model.Order
	if err := GetDB(ctx, r.db).First(&order, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &order, nil
}

func (r *orderRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	var order model.Order
	err := GetDB(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}).First(&order, "id = ?", id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &order, nil
}

func applyOrderFilter(db *gorm.DB, f OrderFilter) *gorm.DB {
	if len(f.Statuses) > 0 {
		db = db.Where("status IN ?", f.Statuses)
	}
	if f.CustomerID != nil {
		db = db.Where("customer_id = ?", *f.CustomerID)
	}
	if f.ProductID != nil {
		db = db.Where("product_id = ?", *f.ProductID)
	}
	if f.OverdueAt != nil {
		db = db.Where("status NOT IN ? AND deadline < ?",
			[]string{model.OrderStatusDelivered, model.OrderStatusCancelled}, *f.OverdueAt)
	}
	if f.DueOn != nil {
		start := model.StartOfDay(*f.DueOn)
		db = db.Where("deadline >= ? AND deadline < ?", start, start.AddDate(0, 0, 1))
	}
	return db
}

func (r *orderRepository) List(ctx context.Context, f OrderFilter) ([]model.Order, int64, error) {
	var orders []model.Order
	var total int64

	db := applyOrderFilter(GetDB(ctx, r.db).Model(&model.Order{}), f)
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := db.Order("deadline ASC, created_at ASC").
		Scopes(Paginate(f.Page, f.Limit)).
		Find(&orders).Error; err != nil {
		return nil, 0, err
	}

	return orders, total, nil
}

func (r *orderRepository) CountByStatus(ctx context.Context, customerID *uuid.UUID) (map[string]int64, error) {
	var rows []struct {
		Status string
		Count  int64
	}
	db := GetDB(ctx, r.db).Model(&model.Order{})
	if customerID != nil {
		db = db.Where("customer_id = ?", *customerID)
	}
	if err := db.Select("status, COUNT(*) AS count").Group("status").Scan(&rows).Error; err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

func (r *orderRepository) CountActiveByProduct(ctx context.Context, productID uuid.UUID) (int64, error) {
	var count int64
	err := GetDB(ctx, r.db).Model(&model.Order{}).
		Where("product_id = ? AND status NOT IN ?", productID,
			[]string{model.OrderStatusDelivered, model.OrderStatusCancelled}).
		Count(&count).Error
	return count, err
}

func (r *orderRepository) TransitionStatus(ctx context.Context, id uuid.UUID, from, to string, at time.Time) error {
	db := GetDB(ctx, r.db)

	updates := map[string]interface{}{"status": to, "updated_at": at}
	if to == model.OrderStatusDelivered {
		updates["delivered_at"] = at
	}

	res := db.Model(&model.Order{}).Where("id = ? AND status = ?", id, from).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 1 {
		return nil
	}

	var count int64
	if err := db.Model(&model.Order{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return ErrNotFound
	}
	return ErrStaleState
}

func (r *orderRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res := GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.Order{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
