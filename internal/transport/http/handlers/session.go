package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Habibmosta/juristdz-sub017/internal/repository"
	"github.com/Habibmosta/juristdz-sub017/internal/transport/http/middleware"
	"github.com/Habibmosta/juristdz-sub017/internal/usecase"
)

// SessionHandler exposes session lifecycle endpoints.
type SessionHandler struct {
	sessions *usecase.SessionService
}

// NewSessionHandler constructs SessionHandler.
func NewSessionHandler(sessions *usecase.SessionService) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

// RegisterRoutes binds session routes. All routes require authentication.
func (h *SessionHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("", h.list)
	r.DELETE("/:id", h.terminate)
	r.POST("/logout-all", h.terminateAll)
}

// RegisterAuthRoutes binds the role-switch route under the auth group.
func (h *SessionHandler) RegisterAuthRoutes(r *gin.RouterGroup) {
	r.POST("/switch-role", h.switchProfession)
}

// List godoc
// @Summary List the caller's sessions
// @Description Returns every session of the authenticated user, terminated sessions included.
// @Tags Sessions
// @Produce json
// @Success 200 {object} SessionListResponse
// @Failure 401 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/sessions [get]
func (h *SessionHandler) list(c *gin.Context) {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "UNAUTHENTICATED", "authentication required"))
		return
	}

	sessions, err := h.sessions.List(c.Request.Context(), principal.UserID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "INTERNAL", "failed to list sessions"))
		return
	}

	payloads := make([]SessionPayload, 0, len(sessions))
	for _, session := range sessions {
		payload := newSessionPayload(session)
		payload.IsCurrent = session.ID == principal.SessionID
		payloads = append(payloads, payload)
	}

	c.JSON(http.StatusOK, SessionListResponse{Sessions: payloads, Total: len(payloads)})
}

// Terminate godoc
// @Summary Terminate one of the caller's sessions
// @Description Moves the session to TERMINATED and revokes its refresh tokens. Terminating an already terminated session is a no-op.
// @Tags Sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 204 {string} string ""
// @Failure 401 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse "Session belongs to another user"
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/sessions/{id} [delete]
func (h *SessionHandler) terminate(c *gin.Context) {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "UNAUTHENTICATED", "authentication required"))
		return
	}

	sessionID := strings.TrimSpace(c.Param("id"))
	if sessionID == "" {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "INVALID_REQUEST", "session id is required"))
		return
	}

	session, err := h.sessions.Get(c.Request.Context(), sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, NewErrorResponse(c, "NOT_FOUND", "session not found"))
			return
		}
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "INTERNAL", "failed to load session"))
		return
	}

	if session.UserID != principal.UserID && !principal.Profession.IsAdmin() {
		c.JSON(http.StatusForbidden, NewErrorResponse(c, "PERMISSION_DENIED", "session belongs to another user"))
		return
	}

	if err := h.sessions.Terminate(c.Request.Context(), sessionID, "logout"); err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "INTERNAL", "failed to terminate session"))
		return
	}

	c.Status(http.StatusNoContent)
}

// TerminateAll godoc
// @Summary Terminate every session of the caller
// @Description Ends all active sessions of the authenticated user, including the current one.
// @Tags Sessions
// @Produce json
// @Success 200 {object} SessionBulkTerminateResponse
// @Failure 401 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/sessions/logout-all [post]
func (h *SessionHandler) terminateAll(c *gin.Context) {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "UNAUTHENTICATED", "authentication required"))
		return
	}

	count, err := h.sessions.TerminateAll(c.Request.Context(), principal.UserID, "logout_all")
	if err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "INTERNAL", "failed to terminate sessions"))
		return
	}

	c.JSON(http.StatusOK, SessionBulkTerminateResponse{TerminatedCount: count})
}

// SwitchProfession godoc
// @Summary Switch the active profession of the current session
// @Description Changes the session's active role to another granted profession and reissues the token pair. Previous refresh tokens die with the switch.
// @Tags Sessions
// @Accept json
// @Produce json
// @Param request body SwitchProfessionRequest true "Switch payload"
// @Success 200 {object} SwitchProfessionResponse
// @Failure 400 {object} ErrorResponse "Invalid payload or profession not granted"
// @Failure 401 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse "Session not active"
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/auth/switch-role [post]
func (h *SessionHandler) switchProfession(c *gin.Context) {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "UNAUTHENTICATED", "authentication required"))
		return
	}

	var req SwitchProfessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "INVALID_REQUEST", "profession is required"))
		return
	}

	session, pair, err := h.sessions.SwitchProfession(c.Request.Context(), principal.SessionID, strings.TrimSpace(req.Profession))
	if err != nil {
		respondSwitchError(c, err)
		return
	}

	c.JSON(http.StatusOK, SwitchProfessionResponse{
		Session:      newSessionPayload(*session),
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    pair.TokenType,
		ExpiresIn:    pair.ExpiresIn,
	})
}

func respondSwitchError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, usecase.ErrRoleNotGranted):
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "ROLE_NOT_GRANTED", "profession not granted"))
	case errors.Is(err, usecase.ErrSessionNotActive):
		c.JSON(http.StatusConflict, NewErrorResponse(c, "SESSION_NOT_ACTIVE", "session is no longer active"))
	default:
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "INTERNAL", "failed to switch profession"))
	}
}
