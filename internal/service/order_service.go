package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

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
type CreateOrderRequest struct {
	ProductID       uuid.UUID       `json:"product_id" binding:"required"`
	Quantity        int             `json:"quantity" binding:"required"`
	Deadline        time.Time       `json:"deadline" binding:"required"`
	CustomerID      *uuid.UUID      `json:"customer_id"`
	CustomerName    string          `json:"customer_name"`
	CustomerPhone   string          `json:"customer_phone"`
	CustomerAddress string          `json:"customer_address"`
	Prepayment      decimal.Decimal `json:"prepayment"`
	Note            string          `json:"note"`
}

// TransitionRequest carries the caller's last-known status so a stale view fails
// instead of overwriting a concurrent change.
type TransitionRequest struct {
	ExpectedStatus string `json:"expected_status" binding:"required"`
	TargetStatus   string `json:"target_status"`
}

// OrderQuery selects orders for listings. Reference anchors the overdue and
// due-on predicates; zero means now.
type OrderQuery struct {
	Statuses   []string
	CustomerID *uuid.UUID
	ProductID  *uuid.UUID
	Overdue    bool
	DueOn      *time.Time
	Reference  time.Time
	Page       int
	Limit      int
}

type OrderResponse struct {
	model.Order
	ProductName string `json:"product_name"`
	Overdue     bool   `json:"overdue"`
}

type OrderService interface {
	CreateOrder(ctx context.Context, actor access.Actor, req CreateOrderRequest) (*OrderResponse, error)
	GetOrder(ctx context.Context, actor access.Actor, id uuid.UUID) (*OrderResponse, error)
	ListOrders(ctx context.Context, actor access.Actor, q OrderQuery) ([]OrderResponse, int64, error)
	StatusCounts(ctx context.Context, actor access.Actor) (map[string]int64, error)
	Advance(ctx context.Context, actor access.Actor, id uuid.UUID, req TransitionRequest) (*OrderResponse, error)
	Cancel(ctx context.Context, actor access.Actor, id uuid.UUID, expectedStatus string) (*OrderResponse, error)
	DeleteOrder(ctx context.Context, actor access.Actor, id uuid.UUID) error
}

type orderService struct {
	*Deps
}

func NewOrderService(deps *Deps) OrderService {
	return &orderService{Deps: deps}
}

func (s *orderService) respond(ctx context.Context, o *model.Order, names map[uuid.UUID]string) OrderResponse {
	name, ok := names[o.ProductID]
	if !ok {
		if p, err := s.Repos.Products.FindByID(ctx, o.ProductID); err == nil {
			name = p.Name
		}
		if names != nil {
			names[o.ProductID] = name
		}
	}
	return OrderResponse{Order: *o, ProductName: name, Overdue: o.IsOverdue(s.now())}
}

// scopedCustomer returns the customer a wholesaler is confined to
func scopedCustomer(actor access.Actor) *uuid.UUID {
	if actor.Role != model.RoleWholesaler {
		return nil
	}
	id := actor.ID
	return &id
}

func (s *orderService) CreateOrder(ctx context.Context, actor access.Actor, req CreateOrderRequest) (*OrderResponse, error) {
	if err := access.Authorize(actor, access.OrderCreate); err != nil {
		return nil, err
	}
	if req.Quantity <= 0 {
		return nil, apperror.Validation("quantity must be positive")
	}
	now := s.now()
	if req.Deadline.IsZero() {
		return nil, apperror.Validation("deadline is required")
	}
	if req.Deadline.Before(model.StartOfDay(now.In(req.Deadline.Location()))) {
		return nil, apperror.Validation("deadline %s is in the past", req.Deadline.Format("2006-01-02"))
	}
	if req.Prepayment.IsNegative() {
		return nil, apperror.Validation("prepayment must not be negative")
	}

	customerID := req.CustomerID
	if scoped := scopedCustomer(actor); scoped != nil {
		customerID = scoped
	}

	product, err := s.Repos.Products.FindByID(ctx, req.ProductID)
	if err != nil {
		return nil, notFound(err, "product", req.ProductID)
	}
	if len(product.Stages) == 0 {
		return nil, apperror.Validation("product %q has no production stages", product.Name)
	}

	createdBy := actor.ID
	order := model.Order{
		CustomerID:      customerID,
		CustomerName:    strings.TrimSpace(req.CustomerName),
		CustomerPhone:   strings.TrimSpace(req.CustomerPhone),
		CustomerAddress: strings.TrimSpace(req.CustomerAddress),
		ProductID:       product.ID,
		Quantity:        req.Quantity,
		Deadline:        req.Deadline,
		Status:          model.OrderStatusPending,
		TotalPrice:      product.Price.Mul(decimal.NewFromInt(int64(req.Quantity))),
		Prepayment:      req.Prepayment,
		Note:            req.Note,
		CreatedBy:       &createdBy,
	}

	err = s.Repos.Tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.Repos.Orders.Create(txCtx, &order); err != nil {
			return fmt.Errorf("failed to create order: %w", err)
		}
		return s.audit(txCtx, actor, model.ActionCreateOrder, order.ID.String(), product.Name, req)
	})
	if err != nil {
		return nil, err
	}

	s.logger().Info("order created",
		zap.String("order_id", order.ID.String()),
		zap.String("product_id", product.ID.String()),
		zap.Int("quantity", order.Quantity))
	s.publish(ctx, orderEvent(events.OrderCreated, &order, nil))

	return &OrderResponse{Order: order, ProductName: product.Name, Overdue: order.IsOverdue(now)}, nil
}

// loadVisible hides other customers' orders from wholesalers behind NotFound
func (s *orderService) loadVisible(ctx context.Context, actor access.Actor, id uuid.UUID) (*model.Order, error) {
	order, err := s.Repos.Orders.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "order", id)
	}
	if scoped := scopedCustomer(actor); scoped != nil {
		if order.CustomerID == nil || *order.CustomerID != *scoped {
			return nil, apperror.NotFound("order %s not found", id)
		}
	}
	return order, nil
}

func (s *orderService) GetOrder(ctx context.Context, actor access.Actor, id uuid.UUID) (*OrderResponse, error) {
	if err := access.Authorize(actor, access.OrderRead); err != nil {
		return nil, err
	}
	order, err := s.loadVisible(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	res := s.respond(ctx, order, nil)
	return &res, nil
}

func (s *orderService) ListOrders(ctx context.Context, actor access.Actor, q OrderQuery) ([]OrderResponse, int64, error) {
	if err := access.Authorize(actor, access.OrderRead); err != nil {
		return nil, 0, err
	}
	for _, st := range q.Statuses {
		if !model.ValidOrderStatus(st) {
			return nil, 0, apperror.Validation("unknown order status %q", st)
		}
	}

	ref := q.Reference
	if ref.IsZero() {
		ref = s.now()
	}
	filter := repository.OrderFilter{
		Statuses:   q.Statuses,
		CustomerID: q.CustomerID,
		ProductID:  q.ProductID,
		DueOn:      q.DueOn,
		Page:       q.Page,
		Limit:      q.Limit,
	}
	if q.Overdue {
		filter.OverdueAt = &ref
	}
	if scoped := scopedCustomer(actor); scoped != nil {
		filter.CustomerID = scoped
	}

	orders, total, err := s.Repos.Orders.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	names := make(map[uuid.UUID]string)
	res := make([]OrderResponse, 0, len(orders))
	for i := range orders {
		r := s.respond(ctx, &orders[i], names)
		r.Overdue = orders[i].IsOverdue(ref)
		res = append(res, r)
	}
	return res, total, nil
}

func (s *orderService) StatusCounts(ctx context.Context, actor access.Actor) (map[string]int64, error) {
	if err := access.Authorize(actor, access.OrderRead); err != nil {
		return nil, err
	}
	counts, err := s.Repos.Orders.CountByStatus(ctx, scopedCustomer(actor))
	if err != nil {
		return nil, fmt.Errorf("count orders: %w", err)
	}
	for _, st := range model.OrderStatusSequence {
		counts[st] += 0
	}
	counts[model.OrderStatusCancelled] += 0
	return counts, nil
}

// checkBase fails with Conflict when the stored status is not the caller's view
func checkBase(order *model.Order, expected string) error {
	if order.Status != expected {
		return apperror.Conflict("order %s is %s, not %s", order.ID, order.Status, expected).
			WithContext("current_status", order.Status)
	}
	return nil
}

func transitionErr(err error, id uuid.UUID) error {
	if errors.Is(err, repository.ErrStaleState) {
		return apperror.Conflict("order %s changed concurrently; reload and retry", id)
	}
	return notFound(err, "order", id)
}

func (s *orderService) Advance(ctx context.Context, actor access.Actor, id uuid.UUID, req TransitionRequest) (*OrderResponse, error) {
	if err := access.Authorize(actor, access.OrderAdvance); err != nil {
		return nil, err
	}
	if !model.ValidOrderStatus(req.ExpectedStatus) {
		return nil, apperror.Validation("unknown expected status %q", req.ExpectedStatus)
	}
	target := req.TargetStatus
	if target == "" {
		next, ok := model.NextOrderStatus(req.ExpectedStatus)
		if !ok {
			return nil, apperror.Conflict("status %s has no successor", req.ExpectedStatus)
		}
		target = next
	}
	if !model.ValidOrderStatus(target) {
		return nil, apperror.Validation("unknown target status %q", target)
	}
	if target == model.OrderStatusCancelled {
		return nil, apperror.Validation("use cancel to stop an order")
	}

	var (
		order  *model.Order
		change *StockChange
	)
	err := s.Repos.Tx.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		order, err = s.Repos.Orders.FindByIDForUpdate(txCtx, id)
		if err != nil {
			return notFound(err, "order", id)
		}
		if err := checkBase(order, req.ExpectedStatus); err != nil {
			return err
		}
		if next, ok := model.NextOrderStatus(order.Status); !ok || next != target {
			return apperror.Conflict("order %s cannot move from %s to %s", id, order.Status, target)
		}
		if target == model.OrderStatusDone {
			return apperror.Conflict("order %s becomes done when all of its stages are completed", id)
		}

		if target == model.OrderStatusDelivered {
			orderID := order.ID
			c, err := s.applyStock(txCtx, order.ProductID, &orderID, -order.Quantity, model.StockReasonDelivery)
			if err != nil {
				return err
			}
			change = &c
		}

		now := s.now()
		if err := s.Repos.Orders.TransitionStatus(txCtx, id, order.Status, target, now); err != nil {
			return transitionErr(err, id)
		}
		from := order.Status
		order.Status = target
		order.UpdatedAt = now
		if target == model.OrderStatusDelivered {
			order.DeliveredAt = &now
		}
		return s.audit(txCtx, actor, model.ActionAdvanceOrder, id.String(), "", map[string]string{"from": from, "to": target})
	})
	if err != nil {
		return nil, err
	}

	s.logger().Info("order advanced",
		zap.String("order_id", id.String()),
		zap.String("from", req.ExpectedStatus),
		zap.String("to", target),
		zap.String("actor_role", actor.Role))
	evts := []events.Event{orderEvent(events.OrderStatusChanged, order, map[string]interface{}{"from": req.ExpectedStatus})}
	if change != nil {
		evts = append(evts, stockEvent(*change))
	}
	s.publish(ctx, evts...)

	res := s.respond(ctx, order, nil)
	return &res, nil
}

func (s *orderService) Cancel(ctx context.Context, actor access.Actor, id uuid.UUID, expectedStatus string) (*OrderResponse, error) {
	if err := access.Authorize(actor, access.OrderCancel); err != nil {
		return nil, err
	}
	if !model.ValidOrderStatus(expectedStatus) {
		return nil, apperror.Validation("unknown expected status %q", expectedStatus)
	}

	var order *model.Order
	err := s.Repos.Tx.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		order, err = s.Repos.Orders.FindByIDForUpdate(txCtx, id)
		if err != nil {
			return notFound(err, "order", id)
		}
		if err := checkBase(order, expectedStatus); err != nil {
			return err
		}
		if !model.CanCancel(order.Status) {
			return apperror.Conflict("order %s is %s and can no longer be cancelled", id, order.Status)
		}
		now := s.now()
		if err := s.Repos.Orders.TransitionStatus(txCtx, id, order.Status, model.OrderStatusCancelled, now); err != nil {
			return transitionErr(err, id)
		}
		order.Status = model.OrderStatusCancelled
		order.UpdatedAt = now
		return s.audit(txCtx, actor, model.ActionCancelOrder, id.String(), "", map[string]string{"from": expectedStatus})
	})
	if err != nil {
		return nil, err
	}

	s.logger().Info("order cancelled", zap.String("order_id", id.String()), zap.String("from", expectedStatus))
	s.publish(ctx, orderEvent(events.OrderStatusChanged, order, map[string]interface{}{"from": expectedStatus}))

	res := s.respond(ctx, order, nil)
	return &res, nil
}

func (s *orderService) DeleteOrder(ctx context.Context, actor access.Actor, id uuid.UUID) error {
	if err := access.Authorize(actor, access.OrderDelete); err != nil {
		return err
	}

	var order *model.Order
	err := s.Repos.Tx.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		order, err = s.Repos.Orders.FindByIDForUpdate(txCtx, id)
		if err != nil {
			return notFound(err, "order", id)
		}
		if order.Status != model.OrderStatusPending {
			return apperror.Conflict("order %s is %s; only pending orders can be deleted", id, order.Status)
		}
		logs, err := s.Repos.WorkLogs.CountByOrder(txCtx, id)
		if err != nil {
			return fmt.Errorf("count work logs: %w", err)
		}
		if logs > 0 {
			return apperror.Conflict("order %s has %d work logs", id, logs)
		}
		if err := s.Repos.Orders.Delete(txCtx, id); err != nil {
			return notFound(err, "order", id)
		}
		return s.audit(txCtx, actor, model.ActionDeleteOrder, id.String(), "", nil)
	})
	if err != nil {
		return err
	}

	s.publish(ctx, orderEvent(events.OrderDeleted, order, nil))
	return nil
}

// autoAdvance moves an in-progress order to done once every stage of its product
// has a completed work log, then books the finished quantity into stock. It is
// safe to call repeatedly: only the call that wins the status change books stock.
func (d *Deps) autoAdvance(ctx context.Context, order *model.Order, product *model.Product) (bool, *StockChange, error) {
	if order.Status != model.OrderStatusInProgress {
		return false, nil, nil
	}
	done, err := d.Repos.WorkLogs.CompletedStageIDs(ctx, order.ID)
	if err != nil {
		return false, nil, fmt.Errorf("load completed stages: %w", err)
	}
	if !product.AllStagesIn(done) {
		return false, nil, nil
	}

	now := d.now()
	err = d.Repos.Orders.TransitionStatus(ctx, order.ID, model.OrderStatusInProgress, model.OrderStatusDone, now)
	if errors.Is(err, repository.ErrStaleState) {
		return false, nil, nil
	}
	if err != nil {
		return false, nil, fmt.Errorf("auto-advance order: %w", err)
	}
	order.Status = model.OrderStatusDone
	order.UpdatedAt = now

	orderID := order.ID
	change, err := d.applyStock(ctx, order.ProductID, &orderID, order.Quantity, model.StockReasonProduction)
	if err != nil {
		return false, nil, err
	}
	if err := d.audit(ctx, systemActor, model.ActionAutoAdvance, order.ID.String(), product.Name,
		map[string]interface{}{"from": model.OrderStatusInProgress, "to": model.OrderStatusDone, "stock_added": order.Quantity}); err != nil {
		return false, nil, err
	}

	d.logger().Info("order auto-advanced",
		zap.String("order_id", order.ID.String()),
		zap.Int("stock_added", order.Quantity),
		zap.Int("stock", change.Stock))
	return true, &change, nil
}
