package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aryan0dhankhar/bugtracker/internal/domain"
	"github.com/aryan0dhankhar/bugtracker/internal/featureflags"
	"github.com/aryan0dhankhar/bugtracker/internal/handler"
	"github.com/aryan0dhankhar/bugtracker/internal/infrastructure/logger"
	"github.com/aryan0dhankhar/bugtracker/internal/infrastructure/redis"
	"github.com/aryan0dhankhar/bugtracker/internal/observability/metrics"
	"github.com/aryan0dhankhar/bugtracker/internal/observability/tracing"
	"github.com/aryan0dhankhar/bugtracker/internal/reliability/circuitbreaker"
	"github.com/aryan0dhankhar/bugtracker/internal/reliability/retry"
	"github.com/aryan0dhankhar/bugtracker/internal/repository"
	"github.com/aryan0dhankhar/bugtracker/internal/security"
	"github.com/aryan0dhankhar/bugtracker/internal/security/audit"
	"github.com/aryan0dhankhar/bugtracker/internal/security/auth"
	"github.com/aryan0dhankhar/bugtracker/internal/security/middleware"
	"github.com/aryan0dhankhar/bugtracker/internal/security/ratelimit"
	"github.com/aryan0dhankhar/bugtracker/internal/service"
	"github.com/aryan0dhankhar/bugtracker/pkg/config"
	"github.com/aryan0dhankhar/bugtracker/pkg/database"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type repositories struct {
	users    domain.UserRepository
	projects domain.ProjectRepository
	issues   domain.IssueRepository
	comments domain.CommentRepository
}

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 2. Initialize structured logger
	log := logger.NewLogger(cfg.LogLevel)
	log.Info("starting BugTracker API", slog.String("environment", cfg.Environment))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracing, err := tracing.Init(ctx, log, "bugtracker-api", cfg.Environment)
	if err != nil {
		log.Error("failed to initialize tracing", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 3. Storage
	checks := map[string]handler.Checker{}
	repos, closeStorage, err := openStorage(ctx, cfg, log, checks)
	if err != nil {
		log.Error("failed to initialize storage", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer closeStorage()

	// 4. Rate limiting: Redis when configured, in-process otherwise
	var limiter ratelimit.RateLimiter
	if cfg.RedisURL != "" {
		redisClient, err := redis.NewClient(cfg.RedisURL)
		if err != nil {
			log.Error("failed to connect to Redis", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer redisClient.Close()

		breaker := circuitbreaker.NewCircuitBreaker(5, 2, 30*time.Second)
		breaker.SetStateChangeCallback(func(from, to circuitbreaker.State) {
			log.Warn("redis circuit breaker state changed",
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
		})
		limiter = ratelimit.NewRedisLimiter(redisClient, breaker, cfg.RateLimitRequests, cfg.RateLimitWindow, log)
		checks["redis"] = redisClient.Ping
	} else {
		memLimiter := ratelimit.NewLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow)
		defer memLimiter.Stop()
		limiter = memLimiter
	}

	// 5. Security components
	jwtSecret := cfg.JWTSecret
	if jwtSecret == "" {
		log.Warn("JWT_SECRET not set, using development secret")
	}
	tokenManager := auth.NewTokenManager(jwtSecret, "bugtracker", cfg.TokenTTL)
	authz := security.NewAuthorizationService(log)
	auditLogger := audit.NewLogger(log)

	// 6. Services
	issueService := service.NewIssueService(repos.projects, repos.issues, authz, log)
	svcs := handler.Services{
		Auth:     service.NewAuthService(repos.users, tokenManager, log),
		Projects: service.NewProjectService(repos.projects, authz, log),
		Issues:   issueService,
		Comments: service.NewCommentService(issueService, repos.comments, authz, log),
	}

	// 7. Routes
	mux := handler.NewRouter(svcs, handler.NewHealthHandler(checks, log), log)
	mux.Handle("GET /metrics", promhttp.Handler())

	// Chain middleware: request ID -> tracing -> metrics -> CORS -> sanitize
	// -> JWT -> rate limit -> audit
	var api http.Handler = middleware.AuditMiddleware(auditLogger)(mux)
	api = middleware.RateLimitMiddleware(limiter, cfg.AuthRateLimitRequests, cfg.RateLimitWindow, log)(api)
	api = middleware.JWTMiddleware(tokenManager, log)(api)
	if featureflags.Enabled(featureflags.StrictJSON) {
		api = middleware.ValidateJSONContentType(log)(api)
	}
	api = middleware.SanitizeInputs(log)(api)
	api = middleware.CORS(cfg.CORSAllowedOrigins)(api)
	api = metrics.HTTPMetricsMiddleware(api)
	api = otelhttp.NewHandler(api, "bugtracker-api")
	rootHandler := middleware.RequestID(log)(api)

	// 8. Start HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      rootHandler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	log.Info("server starting",
		slog.Int("port", cfg.ServerPort),
		slog.String("storage", cfg.Storage),
		slog.Bool("redis_rate_limit", cfg.RedisURL != ""),
		slog.Int("rate_limit", cfg.RateLimitRequests),
		slog.Duration("rate_limit_window", cfg.RateLimitWindow),
	)

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", slog.String("error", err.Error()))
			sigChan <- syscall.SIGTERM
		}
	}()

	<-sigChan
	log.Info("shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", slog.String("error", err.Error()))
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Error("tracing shutdown error", slog.String("error", err.Error()))
	}

	log.Info("server stopped")
}

// openStorage builds the repositories for the configured backend and
// registers its readiness probe
func openStorage(ctx context.Context, cfg *config.Config, log *slog.Logger, checks map[string]handler.Checker) (repositories, func(), error) {
	if cfg.Storage == config.StorageMemory {
		log.Warn("using in-memory storage, data is lost on restart")
		store := repository.NewMemoryStore()
		return repositories{
			users:    store.Users(),
			projects: store.Projects(),
			issues:   store.Issues(),
			comments: store.Comments(),
		}, func() {}, nil
	}

	dbCfg := &database.Config{
		URL:             cfg.DatabaseURL,
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
	}
	pool, err := retry.Do(ctx, retry.StartupConfig(cfg.DBConnectAttempts), log, "connect database",
		func(ctx context.Context) (*database.ConnectionPool, error) {
			return database.NewConnectionPool(ctx, dbCfg, log)
		})
	if err != nil {
		return repositories{}, nil, err
	}

	db := pool.GetDB()
	if err := database.ApplyMigrations(ctx, db, log); err != nil {
		pool.Close()
		return repositories{}, nil, err
	}
	checks["database"] = pool.Health

	return postgresRepositories(db, log), func() { pool.Close() }, nil
}

func postgresRepositories(db *sql.DB, log *slog.Logger) repositories {
	return repositories{
		users:    repository.NewPostgresUserRepository(db, log),
		projects: repository.NewPostgresProjectRepository(db, log),
		issues:   repository.NewPostgresIssueRepository(db, log),
		comments: repository.NewPostgresCommentRepository(db, log),
	}
}
