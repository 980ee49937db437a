package handler

import (
	"net/http"

	"workshop/internal/access"
	"workshop/internal/middleware"
	"workshop/internal/service"
	"workshop/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type SalaryHandler struct {
	salaryService service.SalaryService
}

func NewSalaryHandler(salaryService service.SalaryService) *SalaryHandler {
	return &SalaryHandler{salaryService: salaryService}
}

func (h *SalaryHandler) RegisterRoutes(router *gin.RouterGroup) {
	salaries := router.Group("/salaries")
	{
		salaries.GET("/me", middleware.Require(access.SalaryView), h.MySalary)
		salaries.GET("/:workerId/unpaid", middleware.Require(access.SalaryView), h.UnpaidEarnings)
		salaries.GET("/:workerId/summary", middleware.Require(access.SalaryView), h.Summary)
		salaries.GET("/:workerId/payments", middleware.Require(access.SalaryView), h.PaymentHistory)
		salaries.POST("/payments", middleware.Require(access.SalaryPay), h.MarkPaid)
		salaries.POST("/advances", middleware.Require(access.SalaryAdvance), h.IssueAdvance)
	}
}

// MySalary is the worker's own summary plus unpaid logs
// @Summary      My salary
// @Description  Returns the caller's salary summary and unpaid logs
// @Tags         salaries
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=object}
// @Failure      403  {object}  response.Response
// @Router       /api/salaries/me [get]
func (h *SalaryHandler) MySalary(c *gin.Context) {
	actor := middleware.ActorFrom(c)
	summary, err := h.salaryService.Summary(c.Request.Context(), actor, actor.ID)
	if err != nil {
		fail(c, err)
		return
	}
	earnings, err := h.salaryService.UnpaidEarnings(c.Request.Context(), actor, actor.ID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{
		"summary": summary,
		"unpaid":  earnings,
	}))
}

func (h *SalaryHandler) workerID(c *gin.Context) (uuid.UUID, bool) {
	return pathID(c, "workerId")
}

// UnpaidEarnings unpaid earnings
// @Summary      Unpaid earnings
// @Description  Returns completed, unpaid work logs and their total
// @Tags         salaries
// @Security     BearerAuth
// @Produce      json
// @Param        workerId   path   string   true   "Worker ID"
// @Success      200  {object}  response.Response{data=service.Earnings}
// @Failure      400  {object}  response.Response
// @Failure      403  {object}  response.Response
// @Router       /api/salaries/{workerId}/unpaid [get]
func (h *SalaryHandler) UnpaidEarnings(c *gin.Context) {
	workerID, ok := h.workerID(c)
	if !ok {
		return
	}
	earnings, err := h.salaryService.UnpaidEarnings(c.Request.Context(), middleware.ActorFrom(c), workerID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, earnings))
}

// Summary salary summary
// @Summary      Salary summary
// @Description  Returns earned, paid, advances and balance for a worker
// @Tags         salaries
// @Security     BearerAuth
// @Produce      json
// @Param        workerId   path   string   true   "Worker ID"
// @Success      200  {object}  response.Response{data=service.SalarySummary}
// @Failure      400  {object}  response.Response
// @Failure      403  {object}  response.Response
// @Router       /api/salaries/{workerId}/summary [get]
func (h *SalaryHandler) Summary(c *gin.Context) {
	workerID, ok := h.workerID(c)
	if !ok {
		return
	}
	summary, err := h.salaryService.Summary(c.Request.Context(), middleware.ActorFrom(c), workerID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, summary))
}

// PaymentHistory payment history
// @Summary      Payment history
// @Description  Lists salary payments and advances of a worker
// @Tags         salaries
// @Security     BearerAuth
// @Produce      json
// @Param        workerId   path   string   true   "Worker ID"
// @Success      200  {object}  response.Response{data=[]model.SalaryPayment}
// @Failure      400  {object}  response.Response
// @Failure      403  {object}  response.Response
// @Router       /api/salaries/{workerId}/payments [get]
func (h *SalaryHandler) PaymentHistory(c *gin.Context) {
	workerID, ok := h.workerID(c)
	if !ok {
		return
	}
	payments, err := h.salaryService.PaymentHistory(c.Request.Context(), middleware.ActorFrom(c), workerID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, payments))
}

// MarkPaid mark work logs paid
// @Summary      Mark work logs paid
// @Description  Pays a batch of completed logs in one payment, less advances already issued
// @Tags         salaries
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload    body   service.MarkPaidRequest  true  "Payload"
// @Success      201  {object}  response.Response{data=model.SalaryPayment}
// @Failure      400  {object}  response.Response
// @Failure      403  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/salaries/payments [post]
func (h *SalaryHandler) MarkPaid(c *gin.Context) {
	var req service.MarkPaidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request payload: "+err.Error())
		return
	}
	payment, err := h.salaryService.MarkPaid(c.Request.Context(), middleware.ActorFrom(c), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, payment))
}

// IssueAdvance issue advance
// @Summary      Issue advance
// @Description  Records an advance payment to a worker
// @Tags         salaries
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload    body   service.AdvanceRequest  true  "Payload"
// @Success      201  {object}  response.Response{data=model.SalaryPayment}
// @Failure      400  {object}  response.Response
// @Failure      403  {object}  response.Response
// @Router       /api/salaries/advances [post]
func (h *SalaryHandler) IssueAdvance(c *gin.Context) {
	var req service.AdvanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request payload: "+err.Error())
		return
	}
	payment, err := h.salaryService.IssueAdvance(c.Request.Context(), middleware.ActorFrom(c), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, payment))
}
