package handler

import (
	"net/http"

	"workshop/internal/access"
	"workshop/internal/middleware"
	"workshop/pkg/response"

	"github.com/gin-gonic/gin"
)

type IdentityResponse struct {
	Actor   access.Actor    `json:"actor"`
	Home    string          `json:"home"`
	Actions []access.Action `json:"actions"`
}

// IdentityHandler exposes the resolved actor and the navigation rules to clients
type IdentityHandler struct{}

func NewIdentityHandler() *IdentityHandler {
	return &IdentityHandler{}
}

func (h *IdentityHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/me", h.Me)
	router.GET("/navigation", h.CanNavigate)
}

// Me describes the authenticated caller
// @Summary      Current identity
// @Description  Returns the caller, their home page and allowed actions
// @Tags         identity
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=handler.IdentityResponse}
// @Failure      401  {object}  response.Response
// @Router       /api/me [get]
func (h *IdentityHandler) Me(c *gin.Context) {
	actor := middleware.ActorFrom(c)
	actions := access.AllowedActions(actor.Role)
	if actions == nil {
		actions = []access.Action{}
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, IdentityResponse{
		Actor:   actor,
		Home:    access.HomeFor(actor.Role),
		Actions: actions,
	}))
}

// CanNavigate answers whether the caller may open ?path=
// @Summary      Check navigation
// @Description  Reports whether the caller may open a page path
// @Tags         identity
// @Security     BearerAuth
// @Produce      json
// @Param        path       query  string   true   "Page path"
// @Success      200  {object}  response.Response{data=object}
// @Failure      400  {object}  response.Response
// @Router       /api/navigation [get]
func (h *IdentityHandler) CanNavigate(c *gin.Context) {
	path := c.Query("path")
	if path == "" {
		badRequest(c, "path is required")
		return
	}
	actor := middleware.ActorFrom(c)
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{
		"path":    path,
		"allowed": access.CanNavigate(actor.Role, path),
	}))
}
