package handler

import (
	"net/http"

	"workshop/internal/access"
	"workshop/internal/middleware"
	"workshop/internal/service"
	"workshop/pkg/pagination"
	"workshop/pkg/response"

	"github.com/gin-gonic/gin"
)

type ProductionHandler struct {
	productionService service.ProductionService
}

func NewProductionHandler(productionService service.ProductionService) *ProductionHandler {
	return &ProductionHandler{productionService: productionService}
}

func (h *ProductionHandler) RegisterRoutes(router *gin.RouterGroup) {
	production := router.Group("/production")
	{
		production.POST("/work-logs/start", middleware.Require(access.WorkLogStart), h.StartStage)
		production.POST("/work-logs/:id/complete", middleware.Require(access.WorkLogComplete), h.CompleteStage)
		production.GET("/work-logs", middleware.Require(access.WorkLogRead), h.ListWorkLogs)
		production.GET("/tasks/mine", middleware.Require(access.TasksMine), h.MyTasks)
	}
}

// StartStage start stage
// @Summary      Start stage
// @Description  Opens a work log for a stage of an order
// @Tags         production
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload    body   service.StartStageRequest  true  "Payload"
// @Success      201  {object}  response.Response{data=model.WorkLog}
// @Failure      400  {object}  response.Response
// @Failure      403  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/production/work-logs/start [post]
func (h *ProductionHandler) StartStage(c *gin.Context) {
	var req service.StartStageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request payload: "+err.Error())
		return
	}
	log, err := h.productionService.StartStage(c.Request.Context(), middleware.ActorFrom(c), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, log))
}

// CompleteStage complete stage
// @Summary      Complete stage
// @Description  Closes a work log. Repeating the call is a no-op
// @Tags         production
// @Security     BearerAuth
// @Produce      json
// @Param        id         path   string   true   "Work log ID"
// @Success      200  {object}  response.Response{data=model.WorkLog}
// @Failure      400  {object}  response.Response
// @Failure      403  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/production/work-logs/{id}/complete [post]
func (h *ProductionHandler) CompleteStage(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	log, err := h.productionService.CompleteStage(c.Request.Context(), middleware.ActorFrom(c), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, log))
}

// ListWorkLogs filters by worker_id, order_id, paid and open
// @Summary      List work logs
// @Description  Lists work logs filtered by worker, order, paid and open
// @Tags         production
// @Security     BearerAuth
// @Produce      json
// @Param        worker_id  query  string   false  "Worker ID"
// @Param        order_id   query  string   false  "Order ID"
// @Param        paid       query  boolean  false  "Paid filter"
// @Param        open       query  boolean  false  "Open filter"
// @Param        page       query  integer  false  "Page number (default 1)"
// @Param        limit      query  integer  false  "Items per page (default 20)"
// @Success      200  {object}  response.Response{data=pagination.Page}
// @Failure      400  {object}  response.Response
// @Failure      403  {object}  response.Response
// @Router       /api/production/work-logs [get]
func (h *ProductionHandler) ListWorkLogs(c *gin.Context) {
	p := pagination.Parse(c)
	q := service.WorkLogQuery{Page: p.Page, Limit: p.Limit}

	var ok bool
	if q.WorkerID, ok = queryID(c, "worker_id"); !ok {
		return
	}
	if q.OrderID, ok = queryID(c, "order_id"); !ok {
		return
	}
	if q.Paid, ok = queryBool(c, "paid"); !ok {
		return
	}
	if q.Open, ok = queryBool(c, "open"); !ok {
		return
	}

	logs, total, err := h.productionService.ListWorkLogs(c.Request.Context(), middleware.ActorFrom(c), q)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, p.Wrap(logs, total)))
}

// MyTasks my tasks
// @Summary      My tasks
// @Description  Lists the caller's open work and the stages still to do
// @Tags         production
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=service.MyTasks}
// @Failure      403  {object}  response.Response
// @Router       /api/production/tasks/mine [get]
func (h *ProductionHandler) MyTasks(c *gin.Context) {
	tasks, err := h.productionService.MyTasks(c.Request.Context(), middleware.ActorFrom(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, tasks))
}
