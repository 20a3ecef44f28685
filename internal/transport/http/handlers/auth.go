package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Habibmosta/juristdz-sub017/internal/transport/http/middleware"
	"github.com/Habibmosta/juristdz-sub017/internal/usecase"
)

// AuthHandler exposes authentication endpoints.
type AuthHandler struct {
	auth   *usecase.AuthService
	tokens *usecase.TokenService
	sess   *usecase.SessionService
}

// NewAuthHandler constructs AuthHandler.
func NewAuthHandler(auth *usecase.AuthService, tokens *usecase.TokenService, sess *usecase.SessionService) *AuthHandler {
	return &AuthHandler{auth: auth, tokens: tokens, sess: sess}
}

// RegisterRoutes binds authentication routes, applying optional middleware ahead of handlers.
func (h *AuthHandler) RegisterRoutes(r *gin.RouterGroup, loginMiddlewares ...gin.HandlerFunc) {
	if len(loginMiddlewares) > 0 {
		chain := append([]gin.HandlerFunc{}, loginMiddlewares...)
		chain = append(chain, h.login)
		r.POST("/login", chain...)
	} else {
		r.POST("/login", h.login)
	}

	r.POST("/refresh", h.refresh)
	r.POST("/logout", middleware.RequireAuth(h.auth), h.logout)
}

// Login godoc
// @Summary Authenticate a user with credentials
// @Description Validates email and password (and the second factor when MFA is enabled), returning access and refresh tokens on success.
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Login request"
// @Success 200 {object} LoginResponse "Successfully authenticated"
// @Failure 400 {object} ErrorResponse "Invalid request payload"
// @Failure 401 {object} ErrorResponse "Invalid credentials, locked account, or outstanding second factor"
// @Failure 403 {object} ErrorResponse "No usable role"
// @Failure 429 {object} middleware.ProblemDetails "Rate limit exceeded"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /api/v1/auth/login [post]
func (h *AuthHandler) login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "INVALID_REQUEST", "invalid login payload"))
		return
	}

	input := usecase.LoginInput{
		Email:      strings.TrimSpace(req.Email),
		Password:   req.Password,
		MFACode:    strings.TrimSpace(req.MFACode),
		BackupCode: strings.TrimSpace(req.BackupCode),
		Profession: strings.TrimSpace(req.Profession),
	}
	if ip := strings.TrimSpace(c.ClientIP()); ip != "" {
		input.IP = &ip
	}
	if ua := strings.TrimSpace(c.Request.UserAgent()); ua != "" {
		input.UserAgent = &ua
	}
	if label := strings.TrimSpace(req.DeviceLabel); label != "" {
		input.DeviceLabel = &label
	}

	result, err := h.auth.Login(c.Request.Context(), input)
	if err != nil {
		h.respondLoginError(c, err)
		return
	}

	if result.MFARequired {
		respondMFARequired(c)
		return
	}

	c.JSON(http.StatusOK, LoginResponse{
		AccessToken:  result.Tokens.AccessToken,
		RefreshToken: result.Tokens.RefreshToken,
		TokenType:    result.Tokens.TokenType,
		ExpiresIn:    result.Tokens.ExpiresIn,
		User:         newUserSummary(result.User),
		Session:      newSessionSummary(*result.Session),
	})
}

// respondMFARequired answers a password-valid login that still owes a second
// factor. 401 with a stable code, like every other credential outcome.
func respondMFARequired(c *gin.Context) {
	c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "MFA_REQUIRED", "second factor required"))
}

func (h *AuthHandler) respondLoginError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, usecase.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "INVALID_CREDENTIALS", "invalid credentials"))
	case errors.Is(err, usecase.ErrAccountLocked):
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "ACCOUNT_LOCKED", "account temporarily locked"))
	case errors.Is(err, usecase.ErrMFAInvalid):
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "MFA_INVALID", "invalid second factor"))
	case errors.Is(err, usecase.ErrNoUsableRole):
		c.JSON(http.StatusForbidden, NewErrorResponse(c, "ROLE_NOT_GRANTED", "no usable professional role"))
	default:
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "INTERNAL", "authentication failed"))
	}
}

// Refresh godoc
// @Summary Rotate a refresh token
// @Description Consumes the presented refresh token and issues a new access and refresh token pair. Replaying a consumed token revokes the whole chain and terminates the session.
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body TokenRefreshRequest true "Refresh request"
// @Success 200 {object} TokenRefreshResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/auth/refresh [post]
func (h *AuthHandler) refresh(c *gin.Context) {
	var req TokenRefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "INVALID_REQUEST", "refresh_token is required"))
		return
	}

	pair, _, err := h.tokens.Rotate(c.Request.Context(), req.RefreshToken)
	if err != nil {
		respondRefreshError(c, err)
		return
	}

	c.JSON(http.StatusOK, TokenRefreshResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    pair.TokenType,
		ExpiresIn:    pair.ExpiresIn,
	})
}

// respondRefreshError keeps a replayed consumed token externally identical to
// ordinary expiry. Rotate already revoked the chain and audited the reuse;
// the response must not confirm that detection fired.
func respondRefreshError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, usecase.ErrTokenReuseDetected), errors.Is(err, usecase.ErrExpiredRefreshToken):
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "TOKEN_EXPIRED", "refresh token expired"))
	case errors.Is(err, usecase.ErrInvalidRefreshToken):
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "TOKEN_REVOKED", "invalid refresh token"))
	case errors.Is(err, usecase.ErrSessionNotActive):
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "TOKEN_REVOKED", "session is no longer active"))
	default:
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "INTERNAL", "failed to refresh token"))
	}
}

// Logout godoc
// @Summary Logout the current session
// @Description Terminates the caller's session and revokes its refresh tokens.
// @Tags Authentication
// @Produce json
// @Success 204 {string} string ""
// @Failure 401 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/auth/logout [post]
func (h *AuthHandler) logout(c *gin.Context) {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "UNAUTHENTICATED", "authentication required"))
		return
	}

	if err := h.sess.Terminate(c.Request.Context(), principal.SessionID, "logout"); err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "INTERNAL", "failed to terminate session"))
		return
	}

	c.Status(http.StatusNoContent)
}
