package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Habibmosta/juristdz-sub017/internal/core/domain"
	"github.com/Habibmosta/juristdz-sub017/internal/repository"
	"github.com/Habibmosta/juristdz-sub017/internal/transport/http/middleware"
	"github.com/Habibmosta/juristdz-sub017/internal/usecase"
)

// AdminHandler exposes account administration endpoints.
type AdminHandler struct {
	auth   *usecase.AuthService
	engine *usecase.PermissionEngine
}

// NewAdminHandler constructs AdminHandler.
func NewAdminHandler(auth *usecase.AuthService, engine *usecase.PermissionEngine) *AdminHandler {
	return &AdminHandler{auth: auth, engine: engine}
}

// RegisterRoutes binds admin routes. All routes require authentication.
func (h *AdminHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/users/:id/unlock", h.unlock)
}

// Unlock godoc
// @Summary Clear an account lockout
// @Description Clears the lockout timestamp and failure counters for a locked account.
// @Tags Admin
// @Produce json
// @Param id path string true "User ID"
// @Success 200 {object} MessageResponse
// @Failure 401 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/admin/users/{id}/unlock [post]
func (h *AdminHandler) unlock(c *gin.Context) {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "UNAUTHENTICATED", "authentication required"))
		return
	}

	decision, err := h.engine.Check(c.Request.Context(), principal, domain.PermUserManage, nil)
	if err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "INTERNAL", "permission check failed"))
		return
	}
	if !decision.Allow {
		c.JSON(http.StatusForbidden, NewErrorResponse(c, "PERMISSION_DENIED", "insufficient permissions"))
		return
	}

	userID := strings.TrimSpace(c.Param("id"))
	if err := h.auth.UnlockAccount(c.Request.Context(), userID, principal.UserID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, NewErrorResponse(c, "NOT_FOUND", "user not found"))
			return
		}
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "INTERNAL", "failed to unlock account"))
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "account unlocked"})
}
