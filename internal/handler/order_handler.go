package handler

import (
	"net/http"
	"time"

	"workshop/internal/access"
	"workshop/internal/middleware"
	"workshop/internal/service"
	"workshop/pkg/pagination"
	"workshop/pkg/response"

	"github.com/gin-gonic/gin"
)

type OrderHandler struct {
	orderService service.OrderService
}

func NewOrderHandler(orderService service.OrderService) *OrderHandler {
	return &OrderHandler{orderService: orderService}
}

func (h *OrderHandler) RegisterRoutes(router *gin.RouterGroup) {
	orders := router.Group("/orders")
	{
		orders.GET("", middleware.Require(access.OrderRead), h.ListOrders)
		orders.GET("/status-counts", middleware.Require(access.OrderRead), h.StatusCounts)
		orders.GET("/:id", middleware.Require(access.OrderRead), h.GetOrder)
		orders.POST("", middleware.Require(access.OrderCreate), h.CreateOrder)
		orders.PATCH("/:id/status", middleware.Require(access.OrderAdvance), h.AdvanceOrder)
		orders.POST("/:id/cancel", middleware.Require(access.OrderCancel), h.CancelOrder)
		orders.DELETE("/:id", middleware.Require(access.OrderDelete), h.DeleteOrder)
	}
}

// ListOrders supports status (repeatable or comma separated), customer_id,
// product_id, overdue, due_on (YYYY-MM-DD), ref (RFC3339 reference time), page, limit
// @Summary      List orders
// @Description  Lists orders filtered by status, customer, product, overdue or due date
// @Tags         orders
// @Security     BearerAuth
// @Produce      json
// @Param        status     query  string   false  "Status filter, repeatable or comma separated"
// @Param        customer_id  query  string   false  "Customer ID"
// @Param        product_id query  string   false  "Product ID"
// @Param        overdue    query  boolean  false  "Only orders past their deadline"
// @Param        due_on     query  string   false  "Deadline day, YYYY-MM-DD"
// @Param        ref        query  string   false  "Reference time, RFC3339"
// @Param        page       query  integer  false  "Page number (default 1)"
// @Param        limit      query  integer  false  "Items per page (default 20)"
// @Success      200  {object}  response.Response{data=pagination.Page}
// @Failure      400  {object}  response.Response
// @Failure      403  {object}  response.Response
// @Router       /api/orders [get]
func (h *OrderHandler) ListOrders(c *gin.Context) {
	p := pagination.Parse(c)
	q := service.OrderQuery{
		Statuses: queryList(c, "status"),
		Page:     p.Page,
		Limit:    p.Limit,
	}

	var ok bool
	if q.CustomerID, ok = queryID(c, "customer_id"); !ok {
		return
	}
	if q.ProductID, ok = queryID(c, "product_id"); !ok {
		return
	}
	overdue, ok := queryBool(c, "overdue")
	if !ok {
		return
	}
	q.Overdue = overdue != nil && *overdue

	if raw := c.Query("ref"); raw != "" {
		ref, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			badRequest(c, "Invalid ref: expected RFC3339")
			return
		}
		q.Reference = ref
	}
	if raw := c.Query("due_on"); raw != "" {
		loc := time.UTC
		if !q.Reference.IsZero() {
			loc = q.Reference.Location()
		}
		day, err := time.ParseInLocation("2006-01-02", raw, loc)
		if err != nil {
			badRequest(c, "Invalid due_on: expected YYYY-MM-DD")
			return
		}
		q.DueOn = &day
	}

	orders, total, err := h.orderService.ListOrders(c.Request.Context(), middleware.ActorFrom(c), q)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, p.Wrap(orders, total)))
}

// StatusCounts feeds the dashboard badges
// @Summary      Count orders by status
// @Description  Returns the number of orders in every status
// @Tags         orders
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=object}
// @Failure      403  {object}  response.Response
// @Router       /api/orders/status-counts [get]
func (h *OrderHandler) StatusCounts(c *gin.Context) {
	counts, err := h.orderService.StatusCounts(c.Request.Context(), middleware.ActorFrom(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, counts))
}

// GetOrder get order
// @Summary      Get order
// @Description  Returns one order with its product and overdue flag
// @Tags         orders
// @Security     BearerAuth
// @Produce      json
// @Param        id         path   string   true   "Order ID"
// @Success      200  {object}  response.Response{data=service.OrderResponse}
// @Failure      400  {object}  response.Response
// @Failure      403  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/orders/{id} [get]
func (h *OrderHandler) GetOrder(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	order, err := h.orderService.GetOrder(c.Request.Context(), middleware.ActorFrom(c), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, order))
}

// CreateOrder create order
// @Summary      Create order
// @Description  Creates a pending order for a product
// @Tags         orders
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload    body   service.CreateOrderRequest  true  "Payload"
// @Success      201  {object}  response.Response{data=service.OrderResponse}
// @Failure      400  {object}  response.Response
// @Failure      403  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/orders [post]
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	var req service.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request payload: "+err.Error())
		return
	}
	order, err := h.orderService.CreateOrder(c.Request.Context(), middleware.ActorFrom(c), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, order))
}

// AdvanceOrder advance order status
// @Summary      Advance order status
// @Description  Moves the order to the next status. expected_status must match the stored status
// @Tags         orders
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id         path   string   true   "Order ID"
// @Param        payload    body   service.TransitionRequest  true  "Payload"
// @Success      200  {object}  response.Response{data=service.OrderResponse}
// @Failure      400  {object}  response.Response
// @Failure      403  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/orders/{id}/status [patch]
func (h *OrderHandler) AdvanceOrder(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req service.TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request payload: "+err.Error())
		return
	}
	order, err := h.orderService.Advance(c.Request.Context(), middleware.ActorFrom(c), id, req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, order))
}

// CancelOrder cancel order
// @Summary      Cancel order
// @Description  Cancels a pending or accepted order
// @Tags         orders
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id         path   string   true   "Order ID"
// @Param        payload    body   service.TransitionRequest  true  "Payload"
// @Success      200  {object}  response.Response{data=service.OrderResponse}
// @Failure      400  {object}  response.Response
// @Failure      403  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/orders/{id}/cancel [post]
func (h *OrderHandler) CancelOrder(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req service.TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request payload: "+err.Error())
		return
	}
	order, err := h.orderService.Cancel(c.Request.Context(), middleware.ActorFrom(c), id, req.ExpectedStatus)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, order))
}

// DeleteOrder delete order
// @Summary      Delete order
// @Description  Deletes a pending order that has no stage work
// @Tags         orders
// @Security     BearerAuth
// @Produce      json
// @Param        id         path   string   true   "Order ID"
// @Success      200  {object}  response.Response{data=object}
// @Failure      400  {object}  response.Response
// @Failure      403  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/orders/{id} [delete]
func (h *OrderHandler) DeleteOrder(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.orderService.DeleteOrder(c.Request.Context(), middleware.ActorFrom(c), id); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"deleted": id}))
}
