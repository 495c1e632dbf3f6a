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

	"github.com/aegis-auth/aegis/internal/accounts"
	"github.com/aegis-auth/aegis/internal/activations"
	"github.com/aegis-auth/aegis/internal/app"
	"github.com/aegis-auth/aegis/internal/authz"
	"github.com/aegis-auth/aegis/internal/observability"
	"github.com/aegis-auth/aegis/internal/permissions"
	"github.com/aegis-auth/aegis/internal/platform/cache"
	"github.com/aegis-auth/aegis/internal/platform/db"
	"github.com/aegis-auth/aegis/internal/roles"
	"github.com/aegis-auth/aegis/internal/sessions"
	"github.com/aegis-auth/aegis/jobs"
)

// credentialSource adapts the account store to the login flow.
type credentialSource struct {
	accounts *accounts.Service
}

func (cs credentialSource) LookupByEmail(ctx context.Context, email string) (sessions.Credentials, error) {
	user, err := cs.accounts.FindByEmail(ctx, email)
	if err != nil {
		return sessions.Credentials{}, err
	}
	return sessions.Credentials{
		UserID:       user.ID,
		PasswordHash: user.PasswordHash,
		Active:       user.Status == accounts.StatusActive,
	}, nil
}

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

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

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

	asynqClient := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := asynqClient.Close(); err != nil {
			logger.Warn("asynq close", slog.Any("error", err))
		}
	}()
	enqueuer := jobs.NewEnqueuer(asynqClient)

	metrics := observability.NewMetrics()
	authzCache := authz.NewCache(redisClient, cfg.AuthzCacheTTL)

	activationsRepo := activations.NewRepository(pool)
	activationsService := activations.NewService(activationsRepo, cfg.ActivationTTL, logger)

	accountsRepo := accounts.NewRepository(pool)
	accountsService := accounts.NewService(accountsRepo, activationsService, activationsService, enqueuer, logger)

	sessionsRepo := sessions.NewRepository(pool)
	sessionsService := sessions.NewService(sessionsRepo, credentialSource{accounts: accountsService}, sessions.Config{
		TTL:           cfg.SessionTTL,
		RefreshWindow: cfg.SessionRefreshWindow,
		MaxAttempts:   cfg.LoginMaxAttempts,
		AttemptWindow: cfg.LoginAttemptWindow,
	}, metrics, logger)

	rolesRepo := roles.NewRepository(pool)
	rolesService := roles.NewService(rolesRepo, authzCache, logger)

	permissionsRepo := permissions.NewRepository(pool)
	permissionsService := permissions.NewService(permissionsRepo, authzCache, logger)

	authzService := authz.NewService(rolesService, permissionsService, sessionsService, accountsService, authzCache, metrics, cfg.AuthzAnonymousRole, logger)
	authzMiddleware := authz.Middleware{Service: authzService, Logger: logger}

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		AccountsHandler:    accounts.NewHandler(logger, accountsService, sessionsService),
		SessionsHandler:    sessions.NewHandler(logger, sessionsService),
		RolesHandler:       roles.NewHandler(logger, rolesService),
		PermissionsHandler: permissions.NewHandler(logger, permissionsService),
		AuthzHandler:       authz.NewHandler(logger, authzService),
		AuthzMiddleware:    authzMiddleware,
		Metrics:            metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
