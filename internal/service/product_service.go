package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"workshop/internal/access"
	"workshop/internal/events"
	"workshop/internal/model"
	"workshop/internal/repository"
	"workshop/pkg/apperror"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// DTOs
type StageInput struct {
	Name    string          `json:"name" binding:"required"`
	Payment decimal.Decimal `json:"payment"`
}

type CreateProductRequest struct {
	Name        string          `json:"name" binding:"required"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Cost        decimal.Decimal `json:"cost"`
	Stages      []StageInput    `json:"stages" binding:"dive"`
}

// UpdateProductRequest replaces the stage list only when Stages is present
type UpdateProductRequest struct {
	Name        string          `json:"name" binding:"required"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Cost        decimal.Decimal `json:"cost"`
	Stages      *[]StageInput   `json:"stages"`
}

type StockChange struct {
	ProductID uuid.UUID `json:"product_id"`
	Delta     int       `json:"delta"`
	Stock     int       `json:"stock"`
	Reason    string    `json:"reason"`
}

type ProductService interface {
	ListProducts(ctx context.Context, actor access.Actor, page, limit int, search string) ([]model.Product, int64, error)
	GetProduct(ctx context.Context, actor access.Actor, id uuid.UUID) (*model.Product, error)
	CreateProduct(ctx context.Context, actor access.Actor, req CreateProductRequest) (*model.Product, error)
	UpdateProduct(ctx context.Context, actor access.Actor, id uuid.UUID, req UpdateProductRequest) (*model.Product, error)
	DeleteProduct(ctx context.Context, actor access.Actor, id uuid.UUID) error
	AdjustStock(ctx context.Context, actor access.Actor, id uuid.UUID, delta int) (StockChange, error)
	SetStock(ctx context.Context, actor access.Actor, id uuid.UUID, quantity int) (StockChange, error)
	LaunchProduction(ctx context.Context, actor access.Actor, id uuid.UUID, quantity int) (StockChange, error)
	StockHistory(ctx context.Context, actor access.Actor, id uuid.UUID, page, limit int) ([]model.InventoryTransaction, int64, error)
}

type productService struct {
	*Deps
}

func NewProductService(deps *Deps) ProductService {
	return &productService{Deps: deps}
}

// applyStock is the single funnel for stock changes. It must run inside a
// transaction so the journal entry commits with the new count.
func (d *Deps) applyStock(ctx context.Context, productID uuid.UUID, orderID *uuid.UUID, delta int, reason string) (StockChange, error) {
	stock, err := d.Repos.Products.AdjustStock(ctx, productID, delta)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrInsufficientStock):
			return StockChange{}, apperror.Conflict("insufficient stock for product %s: change of %d would go below zero", productID, delta).
				WithContext("product_id", productID)
		default:
			return StockChange{}, notFound(err, "product", productID)
		}
	}

	entry := &model.InventoryTransaction{
		ProductID:       productID,
		OrderID:         orderID,
		Reason:          reason,
		QuantityChanged: delta,
		StockAfter:      stock,
	}
	if err := d.Repos.InventoryTx.Create(ctx, entry); err != nil {
		return StockChange{}, fmt.Errorf("journal stock change: %w", err)
	}

	d.logger().Info("stock changed",
		zap.String("product_id", productID.String()),
		zap.Int("delta", delta),
		zap.Int("stock", stock),
		zap.String("reason", reason))
	return StockChange{ProductID: productID, Delta: delta, Stock: stock, Reason: reason}, nil
}

func stockEvent(c StockChange) events.Event {
	return events.Event{
		Type: events.StockChanged,
		Key:  c.ProductID.String(),
		Data: map[string]interface{}{
			"product_id": c.ProductID,
			"delta":      c.Delta,
			"stock":      c.Stock,
			"reason":     c.Reason,
		},
	}
}

func buildStages(in []StageInput) ([]model.ProductionStage, error) {
	stages := make([]model.ProductionStage, 0, len(in))
	for i, s := range in {
		name := strings.TrimSpace(s.Name)
		if name == "" {
			return nil, apperror.Validation("stage %d has no name", i+1)
		}
		if s.Payment.IsNegative() {
			return nil, apperror.Validation("stage %q has a negative payment rate", name)
		}
		stages = append(stages, model.ProductionStage{Name: name, Sequence: i + 1, Payment: s.Payment})
	}
	return stages, nil
}

func validateMoney(price, cost decimal.Decimal) error {
	if price.IsNegative() {
		return apperror.Validation("price must not be negative")
	}
	if cost.IsNegative() {
		return apperror.Validation("cost must not be negative")
	}
	return nil
}

func (s *productService) ListProducts(ctx context.Context, actor access.Actor, page, limit int, search string) ([]model.Product, int64, error) {
	if err := access.Authorize(actor, access.ProductRead); err != nil {
		return nil, 0, err
	}
	return s.Repos.Products.List(ctx, page, limit, strings.TrimSpace(search))
}

func (s *productService) GetProduct(ctx context.Context, actor access.Actor, id uuid.UUID) (*model.Product, error) {
	if err := access.Authorize(actor, access.ProductRead); err != nil {
		return nil, err
	}
	p, err := s.Repos.Products.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "product", id)
	}
	return p, nil
}

func (s *productService) CreateProduct(ctx context.Context, actor access.Actor, req CreateProductRequest) (*model.Product, error) {
	if err := access.Authorize(actor, access.ProductWrite); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apperror.Validation("product name is required")
	}
	if err := validateMoney(req.Price, req.Cost); err != nil {
		return nil, err
	}
	stages, err := buildStages(req.Stages)
	if err != nil {
		return nil, err
	}

	product := model.Product{
		Name:        name,
		Description: req.Description,
		Price:       req.Price,
		Cost:        req.Cost,
		Stages:      stages,
	}

	err = s.Repos.Tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.Repos.Products.Create(txCtx, &product); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return apperror.Conflict("product %q already exists", name)
			}
			return fmt.Errorf("failed to create product: %w", err)
		}
		return s.audit(txCtx, actor, model.ActionCreateProduct, product.ID.String(), product.Name, req)
	})
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (s *productService) UpdateProduct(ctx context.Context, actor access.Actor, id uuid.UUID, req UpdateProductRequest) (*model.Product, error) {
	if err := access.Authorize(actor, access.ProductWrite); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apperror.Validation("product name is required")
	}
	if err := validateMoney(req.Price, req.Cost); err != nil {
		return nil, err
	}
	var stages []model.ProductionStage
	if req.Stages != nil {
		var err error
		if stages, err = buildStages(*req.Stages); err != nil {
			return nil, err
		}
	}

	var updated *model.Product
	err := s.Repos.Tx.RunInTx(ctx, func(txCtx context.Context) error {
		product, err := s.Repos.Products.FindByIDForUpdate(txCtx, id)
		if err != nil {
			return notFound(err, "product", id)
		}
		if req.Stages != nil {
			active, err := s.Repos.Orders.CountActiveByProduct(txCtx, id)
			if err != nil {
				return fmt.Errorf("count active orders: %w", err)
			}
			if active > 0 {
				return apperror.Conflict("product %s has %d active orders; its stages cannot be replaced", id, active)
			}
			product.Stages = stages
		}

		product.Name = name
		product.Description = req.Description
		product.Price = req.Price
		product.Cost = req.Cost
		if err := s.Repos.Products.Update(txCtx, product, req.Stages != nil); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return apperror.Conflict("product %q already exists", name)
			}
			return fmt.Errorf("failed to update product: %w", err)
		}
		if err := s.audit(txCtx, actor, model.ActionUpdateProduct, id.String(), name, req); err != nil {
			return err
		}
		updated, err = s.Repos.Products.FindByID(txCtx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *productService) DeleteProduct(ctx context.Context, actor access.Actor, id uuid.UUID) error {
	if err := access.Authorize(actor, access.ProductWrite); err != nil {
		return err
	}
	return s.Repos.Tx.RunInTx(ctx, func(txCtx context.Context) error {
		product, err := s.Repos.Products.FindByIDForUpdate(txCtx, id)
		if err != nil {
			return notFound(err, "product", id)
		}
		active, err := s.Repos.Orders.CountActiveByProduct(txCtx, id)
		if err != nil {
			return fmt.Errorf("count active orders: %w", err)
		}
		if active > 0 {
			return apperror.Conflict("product %s is referenced by %d active orders", id, active)
		}
		if err := s.Repos.Products.Delete(txCtx, id); err != nil {
			return notFound(err, "product", id)
		}
		return s.audit(txCtx, actor, model.ActionDeleteProduct, id.String(), product.Name, nil)
	})
}

func (s *productService) AdjustStock(ctx context.Context, actor access.Actor, id uuid.UUID, delta int) (StockChange, error) {
	if err := access.Authorize(actor, access.StockAdjust); err != nil {
		return StockChange{}, err
	}
	if delta == 0 {
		return StockChange{}, apperror.Validation("delta must not be zero")
	}
	return s.changeStock(ctx, actor, id, func(txCtx context.Context) (StockChange, error) {
		return s.applyStock(txCtx, id, nil, delta, model.StockReasonAdjustment)
	}, model.ActionAdjustStock)
}

func (s *productService) SetStock(ctx context.Context, actor access.Actor, id uuid.UUID, quantity int) (StockChange, error) {
	if err := access.Authorize(actor, access.StockAdjust); err != nil {
		return StockChange{}, err
	}
	if quantity < 0 {
		return StockChange{}, apperror.Validation("stock must not be negative")
	}
	return s.changeStock(ctx, actor, id, func(txCtx context.Context) (StockChange, error) {
		product, err := s.Repos.Products.FindByIDForUpdate(txCtx, id)
		if err != nil {
			return StockChange{}, notFound(err, "product", id)
		}
		delta := quantity - product.Stock
		if delta == 0 {
			return StockChange{ProductID: id, Stock: product.Stock, Reason: model.StockReasonAdjustment}, nil
		}
		return s.applyStock(txCtx, id, nil, delta, model.StockReasonAdjustment)
	}, model.ActionAdjustStock)
}

func (s *productService) LaunchProduction(ctx context.Context, actor access.Actor, id uuid.UUID, quantity int) (StockChange, error) {
	if err := access.Authorize(actor, access.ProductionLaunch); err != nil {
		return StockChange{}, err
	}
	if quantity <= 0 {
		return StockChange{}, apperror.Validation("quantity must be positive")
	}
	return s.changeStock(ctx, actor, id, func(txCtx context.Context) (StockChange, error) {
		return s.applyStock(txCtx, id, nil, quantity, model.StockReasonLaunch)
	}, model.ActionLaunchProd)
}

func (s *productService) changeStock(ctx context.Context, actor access.Actor, id uuid.UUID,
	apply func(txCtx context.Context) (StockChange, error), action string) (StockChange, error) {
	var change StockChange
	err := s.Repos.Tx.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		if change, err = apply(txCtx); err != nil {
			return err
		}
		if change.Delta == 0 {
			return nil
		}
		return s.audit(txCtx, actor, action, id.String(), "", change)
	})
	if err != nil {
		return StockChange{}, err
	}
	if change.Delta != 0 {
		s.publish(ctx, stockEvent(change))
	}
	return change, nil
}

func (s *productService) StockHistory(ctx context.Context, actor access.Actor, id uuid.UUID, page, limit int) ([]model.InventoryTransaction, int64, error) {
	if err := access.Authorize(actor, access.StockHistory); err != nil {
		return nil, 0, err
	}
	if _, err := s.Repos.Products.FindByID(ctx, id); err != nil {
		return nil, 0, notFound(err, "product", id)
	}
	return s.Repos.InventoryTx.ListByProduct(ctx, id, page, limit)
}
