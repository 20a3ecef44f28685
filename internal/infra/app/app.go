package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/Habibmosta/juristdz-sub017/internal/core/port"
	"github.com/Habibmosta/juristdz-sub017/internal/infra/config"
	"github.com/Habibmosta/juristdz-sub017/internal/infra/database"
	kafkainfra "github.com/Habibmosta/juristdz-sub017/internal/infra/kafka"
	"github.com/Habibmosta/juristdz-sub017/internal/infra/logger"
	redisinfra "github.com/Habibmosta/juristdz-sub017/internal/infra/redis"
	"github.com/Habibmosta/juristdz-sub017/internal/infra/security"
	"github.com/Habibmosta/juristdz-sub017/internal/infra/telemetry"
	postgresrepo "github.com/Habibmosta/juristdz-sub017/internal/repository/postgres"
	redisrepo "github.com/Habibmosta/juristdz-sub017/internal/repository/redis"
	"github.com/Habibmosta/juristdz-sub017/internal/transport/http/middleware"
	"github.com/Habibmosta/juristdz-sub017/internal/transport/http/routes"
	"github.com/Habibmosta/juristdz-sub017/internal/usecase"
)

const sessionSweepInterval = 5 * time.Minute

type Application struct {
	cfg      *config.AppConfig
	engine   *gin.Engine
	logger   *zap.Logger
	pool     *pgxpool.Pool
	redis    *redisinfra.Client
	producer *kafkainfra.Producer
	sessions *usecase.SessionService
}

func New(ctx context.Context, cfg *config.AppConfig) (*Application, error) {
	log, err := logger.New(cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	if _, err := telemetry.Attach(ctx, cfg); err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}

	pool, err := database.NewPostgresPool(ctx, cfg.Postgres, log)
	if err != nil {
		return nil, fmt.Errorf("init postgres: %w", err)
	}

	keyProvider, err := security.NewKeyProvider(cfg.App.Env, cfg.JWT.KeyDirectory)
	if err != nil {
		return nil, fmt.Errorf("init key provider: %w", err)
	}
	jwtManager := security.NewJWTManager(keyProvider)

	argonCfg := security.Argon2Config{
		Memory:      cfg.Argon2.Memory,
		Iterations:  cfg.Argon2.Iterations,
		Parallelism: cfg.Argon2.Parallelism,
		SaltLength:  cfg.Argon2.SaltLength,
		KeyLength:   cfg.Argon2.KeyLength,
	}
	if err := security.ConfigureArgon2(argonCfg); err != nil {
		return nil, fmt.Errorf("configure argon2: %w", err)
	}

	tokenGenerator, err := security.NewTokenGenerator(keyProvider, "v1")
	if err != nil {
		return nil, fmt.Errorf("init token generator: %w", err)
	}

	redisClient, err := redisinfra.NewClient(cfg.Redis, log)
	if err != nil {
		return nil, fmt.Errorf("init redis: %w", err)
	}

	subjectVersions := redisrepo.NewSubjectVersionStore(redisClient.Client(), cfg.Redis.SubjectVersionPrefix)
	revocations := redisrepo.NewSessionRevocationStore(redisClient.Client(), cfg.Redis.SessionRevocationPrefix)

	repos := postgresrepo.NewRepositories(pool)

	var auditSink port.AuditSink
	var producer *kafkainfra.Producer
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaProducer, err := kafkainfra.NewProducer(cfg.Kafka, log)
		if err != nil {
			log.Warn("failed to init kafka producer, using stub audit sink", zap.Error(err))
			auditSink = kafkainfra.NewStubPublisher(log)
		} else {
			producer = kafkaProducer
			auditSink = kafkainfra.NewAuditPublisher(kafkaProducer, cfg.App, cfg.Audit, log)
			log.Info("kafka audit publisher initialized", zap.Strings("brokers", cfg.Kafka.Brokers))
		}
	} else {
		log.Info("kafka brokers not configured, using stub audit sink")
		auditSink = kafkainfra.NewStubPublisher(log)
	}
	audit := usecase.NewAuditRecorder(auditSink, log)

	rateLimitWindow := cfg.RateLimit.WindowDuration
	if rateLimitWindow <= 0 {
		rateLimitWindow = time.Minute
	}
	rateLimitStore := redisrepo.NewRateLimitRepository(redisClient.Client(), redisrepo.SlidingWindowConfig{
		KeyPrefix: "iam:rate-limit",
		TTL:       rateLimitWindow * 2,
	})
	rateLimiter := middleware.NewRateLimiter(rateLimitStore, log)

	metrics, err := middleware.NewHTTPMetrics(middleware.HTTPMetricsOptions{})
	if err != nil {
		_ = redisClient.Close()
		return nil, fmt.Errorf("init http metrics: %w", err)
	}

	tokenService := usecase.NewTokenService(cfg, repos.Users, repos.Sessions, repos.Tokens, revocations, jwtManager, tokenGenerator, audit, log)
	authService := usecase.NewAuthService(cfg, repos.Users, repos.Assignments, repos.Sessions, tokenService, revocations, jwtManager, audit, log)
	sessionService := usecase.NewSessionService(cfg, repos.Sessions, repos.Assignments, tokenService, repos.Tokens, subjectVersions, revocations, audit, log)
	permissionEngine := usecase.NewPermissionEngine(cfg.RBACCache, repos.Assignments, repos.CustomRoles, subjectVersions, audit, log)
	roleService := usecase.NewRoleService(repos.Assignments, repos.CustomRoles, subjectVersions, permissionEngine, audit, log)

	engine := routes.Register(routes.Dependencies{
		Config:      cfg,
		Logger:      log,
		RateLimiter: rateLimiter,
		Metrics:     metrics,
		JWTManager:  jwtManager,
		Database:    pool,
		Cache:       redisClient,
		Services: routes.ServiceSet{
			Auth:     authService,
			Tokens:   tokenService,
			Sessions: sessionService,
			Engine:   permissionEngine,
			Roles:    roleService,
		},
	})

	return &Application{
		cfg:      cfg,
		engine:   engine,
		logger:   log,
		pool:     pool,
		redis:    redisClient,
		producer: producer,
		sessions: sessionService,
	}, nil
}

func (a *Application) Run(ctx context.Context) error {
	defer func() {
		_ = a.logger.Sync()
	}()
	defer func() {
		if a.pool != nil {
			a.pool.Close()
		}
	}()
	defer func() {
		if a.redis != nil {
			_ = a.redis.Close()
		}
	}()
	defer func() {
		if a.producer != nil {
			_ = a.producer.Close()
		}
	}()

	sweepCtx, stopSweeper := context.WithCancel(ctx)
	defer stopSweeper()
	go a.runSessionSweeper(sweepCtx)

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", a.cfg.App.Host, a.cfg.App.Port),
		Handler:           a.engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	a.logger.Info("starting IAM API",
		zap.String("env", a.cfg.App.Env),
		zap.String("address", srv.Addr),
	)

	serverErrCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- fmt.Errorf("run server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown server: %w", err)
		}
		return nil
	case err := <-serverErrCh:
		return err
	}
}

// runSessionSweeper periodically marks expired sessions as terminated so
// listings and subject versions observe the real state without waiting for
// the next request to touch them.
func (a *Application) runSessionSweeper(ctx context.Context) {
	ticker := time.NewTicker(sessionSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			swept, err := a.sessions.SweepExpired(ctx)
			if err != nil {
				a.logger.Warn("session sweep failed", zap.Error(err))
				continue
			}
			if swept > 0 {
				a.logger.Info("terminated expired sessions", zap.Int("count", swept))
			}
		}
	}
}
