package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	"github.com/pasarhub/pasarhub/internal/admin"
	"github.com/pasarhub/pasarhub/internal/app"
	"github.com/pasarhub/pasarhub/internal/audit"
	"github.com/pasarhub/pasarhub/internal/auth"
	"github.com/pasarhub/pasarhub/internal/authz"
	"github.com/pasarhub/pasarhub/internal/dashboard"
	"github.com/pasarhub/pasarhub/internal/identity"
	"github.com/pasarhub/pasarhub/internal/observability"
	"github.com/pasarhub/pasarhub/internal/platform/cache"
	"github.com/pasarhub/pasarhub/internal/platform/db"
	"github.com/pasarhub/pasarhub/internal/profile"
	"github.com/pasarhub/pasarhub/internal/ratelimit"
	"github.com/pasarhub/pasarhub/internal/shared"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, "pasarhub_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)
	metrics := observability.NewMetrics()

	asynqClient := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := asynqClient.Close(); err != nil {
			logger.Warn("asynq close", slog.Any("error", err))
		}
	}()

	auditStore := audit.NewStore(dbpool)
	recorder := audit.NewAsyncRecorder(asynqClient, auditStore, logger, metrics.AuditDroppedCounter())
	auditService := audit.NewService(auditStore)
	auditHandler := audit.NewHandler(logger, auditService)

	profileStore := profile.NewStore(dbpool)
	provider := identity.NewJWTProvider(cfg.AuthJWTSecret, cfg.AuthJWTIssuer, cfg.AuthTokenTTL)
	resolver := authz.NewResolver(profileStore, cfg.ProfileLookupTimeout)
	policy := authz.DefaultPolicy()
	gate := authz.NewGate(policy, provider, resolver, profileStore, recorder, metrics, logger)

	limiter := ratelimit.NewLimiter(ratelimit.NewRedisStore(redisClient), ratelimit.DefaultRules())
	limiter.OnLimited = metrics.RateLimited

	authRepo := auth.NewRepository(dbpool)
	authService := auth.NewService(authRepo, profileStore, provider, sessionManager)
	authHandler := auth.NewHandler(logger, authService, sessionManager, csrfManager, recorder)

	adminService := admin.NewService(profileStore, authService, recorder, logger)
	adminHandler := admin.NewHandler(logger, adminService)

	profileHandler := profile.NewHandler(logger, profileStore)
	dashboardHandler := dashboard.NewHandler(provider, resolver)

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		SessionManager:   sessionManager,
		CSRFManager:      csrfManager,
		Policy:           policy,
		Provider:         provider,
		Resolver:         resolver,
		Provisioner:      profileStore,
		Gate:             gate,
		Recorder:         recorder,
		Limiter:          limiter,
		AuthHandler:      authHandler,
		ProfileHandler:   profileHandler,
		AdminHandler:     adminHandler,
		AuditHandler:     auditHandler,
		DashboardHandler: dashboardHandler,
		Metrics:          metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	if err := g.Wait(); err != nil {
		logger.Error("http server", slog.Any("error", err))
		os.Exit(1)
	}
}
