package routes

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/Habibmosta/juristdz-sub017/internal/infra/config"
	"github.com/Habibmosta/juristdz-sub017/internal/infra/security"
	"github.com/Habibmosta/juristdz-sub017/internal/transport/http/handlers"
	"github.com/Habibmosta/juristdz-sub017/internal/transport/http/middleware"
	"github.com/Habibmosta/juristdz-sub017/internal/usecase"
)

// ServiceSet groups the services the HTTP layer depends on.
type ServiceSet struct {
	Auth     *usecase.AuthService
	Tokens   *usecase.TokenService
	Sessions *usecase.SessionService
	Engine   *usecase.PermissionEngine
	Roles    *usecase.RoleService
}

// Dependencies encapsulates the objects required to register routes.
type Dependencies struct {
	Config      *config.AppConfig
	Logger      *zap.Logger
	RateLimiter *middleware.RateLimiter
	Metrics     *middleware.HTTPMetrics
	Services    ServiceSet
	JWTManager  *security.JWTManager
	Database    DatabaseChecker
	Cache       CacheChecker
}

// DatabaseChecker exposes readiness behaviour for database connections.
type DatabaseChecker interface {
	Ping(ctx context.Context) error
}

// CacheChecker exposes readiness behaviour for cache backends.
type CacheChecker interface {
	HealthCheck(ctx context.Context) error
}

// Register configures the Gin engine with routes and middleware.
func Register(deps Dependencies) *gin.Engine {
	if deps.Config.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.EnrichContext())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(deps.Logger))
	r.Use(middleware.CORS(deps.Config.App.AllowedOrigins))
	if deps.Metrics != nil {
		r.Use(deps.Metrics.Handler())
	}

	healthOptions := make([]handlers.HealthOption, 0, 2)
	if deps.Database != nil {
		healthOptions = append(healthOptions, handlers.WithReadinessCheck("database", deps.Database.Ping))
	}
	if deps.Cache != nil {
		healthOptions = append(healthOptions, handlers.WithReadinessCheck("redis", deps.Cache.HealthCheck))
	}

	healthHandler := handlers.NewHealthHandler(healthOptions...)

	r.GET("/healthz", healthHandler.Status)
	r.GET("/readyz", healthHandler.Readiness)

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	if deps.JWTManager != nil {
		jwksHandler := handlers.NewJWKSHandler(deps.JWTManager)
		r.GET("/.well-known/jwks.json", jwksHandler.Keys)
	}

	api := r.Group("/api/v1")
	{
		if deps.Services.Auth == nil {
			return r
		}

		authMiddleware := middleware.RequireAuth(deps.Services.Auth)

		authGroup := api.Group("/auth")

		authHandler := handlers.NewAuthHandler(deps.Services.Auth, deps.Services.Tokens, deps.Services.Sessions)
		authHandler.RegisterRoutes(authGroup, buildLoginMiddlewares(deps)...)

		sessionHandler := handlers.NewSessionHandler(deps.Services.Sessions)

		authProtected := authGroup.Group("")
		authProtected.Use(authMiddleware)

		passwordHandler := handlers.NewPasswordHandler(deps.Services.Auth)
		passwordHandler.RegisterRoutes(authProtected)
		sessionHandler.RegisterAuthRoutes(authProtected)

		mfaHandler := handlers.NewMFAHandler(deps.Services.Auth)
		mfaGroup := authGroup.Group("/mfa")
		mfaGroup.Use(authMiddleware)
		mfaHandler.RegisterRoutes(mfaGroup)

		sessionGroup := api.Group("/sessions")
		sessionGroup.Use(authMiddleware)
		sessionHandler.RegisterRoutes(sessionGroup)

		if deps.Services.Engine != nil {
			authzHandler := handlers.NewAuthzHandler(deps.Services.Engine)
			authzGroup := api.Group("/authz")
			authzGroup.Use(authMiddleware)
			if mw := buildAuthzMiddlewares(deps); len(mw) > 0 {
				authzGroup.Use(mw...)
			}
			authzHandler.RegisterRoutes(authzGroup)

			adminHandler := handlers.NewAdminHandler(deps.Services.Auth, deps.Services.Engine)
			adminGroup := api.Group("/admin")
			adminGroup.Use(authMiddleware)
			adminHandler.RegisterRoutes(adminGroup)
		}

		if deps.Services.Roles != nil {
			roleHandler := handlers.NewRoleHandler(deps.Services.Roles)
			rolesGroup := api.Group("/roles")
			rolesGroup.Use(authMiddleware)
			roleHandler.RegisterRoutes(rolesGroup)
		}
	}

	return r
}

func buildLoginMiddlewares(deps Dependencies) []gin.HandlerFunc {
	if deps.RateLimiter == nil || deps.Config == nil {
		return nil
	}

	limit := deps.Config.RateLimit.LoginMaxAttempts
	if limit <= 0 {
		return nil
	}

	window := deps.Config.RateLimit.WindowDuration
	if window <= 0 {
		window = time.Minute
	}

	rule := middleware.RateLimitRule{
		Name:       "auth_login_ip",
		Limit:      limit,
		Window:     window,
		Identifier: middleware.ClientIPIdentifier(),
	}

	return []gin.HandlerFunc{deps.RateLimiter.RateLimit(rule)}
}

func buildAuthzMiddlewares(deps Dependencies) []gin.HandlerFunc {
	if deps.RateLimiter == nil || deps.Config == nil {
		return nil
	}

	limit := deps.Config.RateLimit.AuthzMaxAttempts
	if limit <= 0 {
		return nil
	}

	window := deps.Config.RateLimit.WindowDuration
	if window <= 0 {
		window = time.Minute
	}

	rule := middleware.RateLimitRule{
		Name:       "authz_check_ip",
		Limit:      limit,
		Window:     window,
		Identifier: middleware.ClientIPIdentifier(),
	}

	return []gin.HandlerFunc{deps.RateLimiter.RateLimit(rule)}
}
