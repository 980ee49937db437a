package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
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
type StartStageRequest struct {
	OrderID uuid.UUID `json:"order_id" binding:"required"`
	StageID uuid.UUID `json:"stage_id" binding:"required"`
	// WorkerID lets an admin open a log on a worker's behalf
	WorkerID *uuid.UUID `json:"worker_id"`
}

type WorkLogQuery struct {
	WorkerID *uuid.UUID
	OrderID  *uuid.UUID
	Paid     *bool
	Open     *bool
	Page     int
	Limit    int
}

// Task is a stage of an open order the worker can pick up or is working on
type Task struct {
	OrderID     uuid.UUID       `json:"order_id"`
	StageID     uuid.UUID       `json:"stage_id"`
	StageName   string          `json:"stage_name"`
	Sequence    int             `json:"sequence"`
	ProductID   uuid.UUID       `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	Deadline    time.Time       `json:"deadline"`
	Payment     decimal.Decimal `json:"payment"`
	WorkLogID   *uuid.UUID      `json:"work_log_id,omitempty"`
	StartedAt   *time.Time      `json:"started_at,omitempty"`
}

type MyTasks struct {
	InProgress []Task `json:"in_progress"`
	Available  []Task `json:"available"`
}

type ProductionService interface {
	StartStage(ctx context.Context, actor access.Actor, req StartStageRequest) (*model.WorkLog, error)
	CompleteStage(ctx context.Context, actor access.Actor, workLogID uuid.UUID) (*model.WorkLog, error)
	ListWorkLogs(ctx context.Context, actor access.Actor, q WorkLogQuery) ([]model.WorkLog, int64, error)
	MyTasks(ctx context.Context, actor access.Actor) (*MyTasks, error)
}

type productionService struct {
	*Deps
}

func NewProductionService(deps *Deps) ProductionService {
	return &productionService{Deps: deps}
}

func workLogEvent(typ string, l *model.WorkLog) events.Event {
	return events.Event{
		Type: typ,
		Key:  l.OrderID.String(),
		Data: map[string]interface{}{
			"work_log_id": l.ID,
			"order_id":    l.OrderID,
			"stage_id":    l.StageID,
			"worker_id":   l.WorkerID,
		},
	}
}

func (s *productionService) StartStage(ctx context.Context, actor access.Actor, req StartStageRequest) (*model.WorkLog, error) {
	if err := access.Authorize(actor, access.WorkLogStart); err != nil {
		return nil, err
	}
	workerID := actor.ID
	if req.WorkerID != nil && *req.WorkerID != actor.ID {
		if !actor.IsAdmin() {
			return nil, apperror.Forbidden("workers may only start stages for themselves")
		}
		workerID = *req.WorkerID
	}
	if workerID == uuid.Nil {
		return nil, apperror.Validation("worker id is required")
	}

	var (
		log      model.WorkLog
		order    *model.Order
		advanced bool
	)
	err := s.Repos.Tx.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		order, err = s.Repos.Orders.FindByIDForUpdate(txCtx, req.OrderID)
		if err != nil {
			return notFound(err, "order", req.OrderID)
		}
		if order.Status != model.OrderStatusAccepted && order.Status != model.OrderStatusInProgress {
			return apperror.Conflict("order %s is %s; stage work needs an accepted or in-progress order", order.ID, order.Status).
				WithContext("current_status", order.Status)
		}
		product, err := s.Repos.Products.FindByID(txCtx, order.ProductID)
		if err != nil {
			return notFound(err, "product", order.ProductID)
		}
		stage, ok := product.Stage(req.StageID)
		if !ok {
			return apperror.Validation("stage %s is not a stage of product %q", req.StageID, product.Name)
		}
		done, err := s.Repos.WorkLogs.CompletedStageIDs(txCtx, order.ID)
		if err != nil {
			return fmt.Errorf("load completed stages: %w", err)
		}
		if done[stage.ID] {
			return apperror.Conflict("stage %q of order %s is already completed", stage.Name, order.ID)
		}

		now := s.now()
		log = model.WorkLog{
			WorkerID:  workerID,
			OrderID:   order.ID,
			StageID:   stage.ID,
			ProductID: product.ID,
			Quantity:  order.Quantity,
			Payment:   stage.Payment.Mul(decimal.NewFromInt(int64(order.Quantity))),
			StartedAt: now,
		}
		if err := s.Repos.WorkLogs.Create(txCtx, &log); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return apperror.Conflict("worker already has an open log for stage %q of order %s", stage.Name, order.ID)
			}
			return fmt.Errorf("failed to create work log: %w", err)
		}

		if order.Status == model.OrderStatusAccepted {
			err := s.Repos.Orders.TransitionStatus(txCtx, order.ID, model.OrderStatusAccepted, model.OrderStatusInProgress, now)
			switch {
			case err == nil:
				advanced = true
				order.Status = model.OrderStatusInProgress
				order.UpdatedAt = now
				if err := s.audit(txCtx, systemActor, model.ActionAutoAdvance, order.ID.String(), product.Name,
					map[string]string{"from": model.OrderStatusAccepted, "to": model.OrderStatusInProgress}); err != nil {
					return err
				}
			case errors.Is(err, repository.ErrStaleState):
				// another start got there first; anything but in_progress is a real conflict
				cur, ferr := s.Repos.Orders.FindByID(txCtx, order.ID)
				if ferr != nil {
					return notFound(ferr, "order", order.ID)
				}
				if cur.Status != model.OrderStatusInProgress {
					return apperror.Conflict("order %s changed to %s concurrently", order.ID, cur.Status)
				}
				order = cur
			default:
				return transitionErr(err, order.ID)
			}
		}

		return s.audit(txCtx, actor, model.ActionStartStage, log.ID.String(), stage.Name, map[string]interface{}{
			"order_id":  order.ID,
			"stage_id":  stage.ID,
			"worker_id": workerID,
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger().Info("stage started",
		zap.String("work_log_id", log.ID.String()),
		zap.String("order_id", log.OrderID.String()),
		zap.String("stage_id", log.StageID.String()),
		zap.String("worker_id", workerID.String()))
	evts := []events.Event{workLogEvent(events.WorkLogStarted, &log)}
	if advanced {
		evts = append(evts, orderEvent(events.OrderStatusChanged, order, map[string]interface{}{"from": model.OrderStatusAccepted}))
	}
	s.publish(ctx, evts...)
	return &log, nil
}

// CompleteStage closes an open work log. Replaying it for a log that is already
// completed returns the log unchanged and has no further effect.
func (s *productionService) CompleteStage(ctx context.Context, actor access.Actor, workLogID uuid.UUID) (*model.WorkLog, error) {
	if err := access.Authorize(actor, access.WorkLogComplete); err != nil {
		return nil, err
	}

	var (
		log      *model.WorkLog
		order    *model.Order
		closed   bool
		advanced bool
		change   *StockChange
	)
	err := s.Repos.Tx.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		log, err = s.Repos.WorkLogs.FindByID(txCtx, workLogID)
		if err != nil {
			return notFound(err, "work log", workLogID)
		}
		if !actor.IsAdmin() && log.WorkerID != actor.ID {
			return apperror.Forbidden("work log %s belongs to another worker", workLogID)
		}
		if !log.IsOpen() {
			return nil
		}

		// the order lock serializes completions of the same order so the last
		// one always sees every other completed stage
		order, err = s.Repos.Orders.FindByIDForUpdate(txCtx, log.OrderID)
		if err != nil {
			return notFound(err, "order", log.OrderID)
		}

		now := s.now()
		closed, err = s.Repos.WorkLogs.Complete(txCtx, log.ID, now)
		if err != nil {
			return notFound(err, "work log", workLogID)
		}
		if !closed {
			log, err = s.Repos.WorkLogs.FindByID(txCtx, workLogID)
			return err
		}
		log.CompletedAt = &now
		log.UpdatedAt = now

		product, err := s.Repos.Products.FindByID(txCtx, order.ProductID)
		if err != nil {
			return notFound(err, "product", order.ProductID)
		}
		if err := s.audit(txCtx, actor, model.ActionCompleteStage, log.ID.String(), "", map[string]interface{}{
			"order_id":  log.OrderID,
			"stage_id":  log.StageID,
			"worker_id": log.WorkerID,
			"payment":   log.Payment,
		}); err != nil {
			return err
		}

		advanced, change, err = s.autoAdvance(txCtx, order, product)
		return err
	})
	if err != nil {
		return nil, err
	}
	if !closed {
		return log, nil
	}

	s.logger().Info("stage completed",
		zap.String("work_log_id", log.ID.String()),
		zap.String("order_id", log.OrderID.String()),
		zap.Bool("order_done", advanced))
	evts := []events.Event{workLogEvent(events.WorkLogCompleted, log)}
	if advanced {
		evts = append(evts, orderEvent(events.OrderStatusChanged, order, map[string]interface{}{"from": model.OrderStatusInProgress}))
	}
	if change != nil {
		evts = append(evts, stockEvent(*change))
	}
	s.publish(ctx, evts...)
	return log, nil
}

func (s *productionService) ListWorkLogs(ctx context.Context, actor access.Actor, q WorkLogQuery) ([]model.WorkLog, int64, error) {
	if err := access.Authorize(actor, access.WorkLogRead); err != nil {
		return nil, 0, err
	}
	filter := repository.WorkLogFilter{
		WorkerID: q.WorkerID,
		OrderID:  q.OrderID,
		Paid:     q.Paid,
		Open:     q.Open,
		Page:     q.Page,
		Limit:    q.Limit,
	}
	if actor.Role == model.RoleWorker {
		id := actor.ID
		filter.WorkerID = &id
	}
	return s.Repos.WorkLogs.List(ctx, filter)
}

func (s *productionService) MyTasks(ctx context.Context, actor access.Actor) (*MyTasks, error) {
	if err := access.Authorize(actor, access.TasksMine); err != nil {
		return nil, err
	}
	workerID := actor.ID
	open := true
	logs, _, err := s.Repos.WorkLogs.List(ctx, repository.WorkLogFilter{WorkerID: &workerID, Open: &open})
	if err != nil {
		return nil, fmt.Errorf("list open work logs: %w", err)
	}
	orders, _, err := s.Repos.Orders.List(ctx, repository.OrderFilter{
		Statuses: []string{model.OrderStatusAccepted, model.OrderStatusInProgress},
	})
	if err != nil {
		return nil, fmt.Errorf("list open orders: %w", err)
	}

	products := make(map[uuid.UUID]*model.Product)
	productFor := func(id uuid.UUID) (*model.Product, error) {
		if p, ok := products[id]; ok {
			return p, nil
		}
		p, err := s.Repos.Products.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		products[id] = p
		return p, nil
	}
	ordersByID := make(map[uuid.UUID]*model.Order, len(orders))
	for i := range orders {
		ordersByID[orders[i].ID] = &orders[i]
	}

	res := &MyTasks{InProgress: []Task{}, Available: []Task{}}
	mine := make(map[[2]uuid.UUID]bool)
	for i := range logs {
		l := &logs[i]
		mine[[2]uuid.UUID{l.OrderID, l.StageID}] = true
		t := Task{
			OrderID:   l.OrderID,
			StageID:   l.StageID,
			ProductID: l.ProductID,
			Quantity:  l.Quantity,
			Payment:   l.Payment,
			WorkLogID: &l.ID,
			StartedAt: &l.StartedAt,
		}
		if o, ok := ordersByID[l.OrderID]; ok {
			t.Deadline = o.Deadline
		}
		if p, err := productFor(l.ProductID); err == nil {
			t.ProductName = p.Name
			if st, ok := p.Stage(l.StageID); ok {
				t.StageName, t.Sequence = st.Name, st.Sequence
			}
		}
		res.InProgress = append(res.InProgress, t)
	}

	for i := range orders {
		o := &orders[i]
		p, err := productFor(o.ProductID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				continue
			}
			return nil, fmt.Errorf("load product: %w", err)
		}
		done, err := s.Repos.WorkLogs.CompletedStageIDs(ctx, o.ID)
		if err != nil {
			return nil, fmt.Errorf("load completed stages: %w", err)
		}
		for _, st := range p.Stages {
			if done[st.ID] || mine[[2]uuid.UUID{o.ID, st.ID}] {
				continue
			}
			res.Available = append(res.Available, Task{
				OrderID:     o.ID,
				StageID:     st.ID,
				StageName:   st.Name,
				Sequence:    st.Sequence,
				ProductID:   p.ID,
				ProductName: p.Name,
				Quantity:    o.Quantity,
				Deadline:    o.Deadline,
				Payment:     st.Payment.Mul(decimal.NewFromInt(int64(o.Quantity))),
			})
		}
	}
	sort.SliceStable(res.Available, func(i, j int) bool {
		return res.Available[i].Deadline.Before(res.Available[j].Deadline)
	})
	return res, nil
}
