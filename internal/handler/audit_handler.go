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

type AuditHandler struct {
	auditService service.AuditService
}

func NewAuditHandler(auditService service.AuditService) *AuditHandler {
	return &AuditHandler{auditService: auditService}
}

func (h *AuditHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/audit-logs", middleware.Require(access.AuditRead), h.GetAuditLogs)
}

// GetAuditLogs returns the paginated mutation trail
// @Summary      List audit logs
// @Description  Lists the mutation trail, newest first
// @Tags         audit
// @Security     BearerAuth
// @Produce      json
// @Param        page       query  integer  false  "Page number (default 1)"
// @Param        limit      query  integer  false  "Items per page (default 20)"
// @Success      200  {object}  response.Response{data=object}
// @Failure      403  {object}  response.Response
// @Router       /api/audit-logs [get]
func (h *AuditHandler) GetAuditLogs(c *gin.Context) {
	p := pagination.Parse(c)
	logs, total, err := h.auditService.GetAuditLogs(c.Request.Context(), middleware.ActorFrom(c), p.Page, p.Limit)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"logs":  logs,
		"total": total,
		"page":  p.Page,
		"limit": p.Limit,
	}))
}
