package apiapp

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Envologia/unimatch-ethio/internal/config"
	"github.com/Envologia/unimatch-ethio/internal/infra/telegram"
	pgrepo "github.com/Envologia/unimatch-ethio/internal/repo/postgres"
	redrepo "github.com/Envologia/unimatch-ethio/internal/repo/redis"
	adminauthsvc "github.com/Envologia/unimatch-ethio/internal/services/adminauth"
	confsvc "github.com/Envologia/unimatch-ethio/internal/services/confessions"
	notifysvc "github.com/Envologia/unimatch-ethio/internal/services/notify"
	quotasvc "github.com/Envologia/unimatch-ethio/internal/services/quota"
	reportsvc "github.com/Envologia/unimatch-ethio/internal/services/reports"
)

type App struct {
	cfg        config.Config
	logger     *zap.Logger
	server     *http.Server
	postgres   *pgxpool.Pool
	redis      *goredis.Client
	httpRouter http.Handler
}

func New(ctx context.Context, cfg config.Config, log *zap.Logger) (*App, error) {
	if log == nil {
		return nil, fmt.Errorf("logger is nil")
	}

	r := chi.NewRouter()
	ApplyMiddlewares(r, log)

	var pool *pgxpool.Pool
	if p, err := pgrepo.NewPool(ctx, cfg.Postgres.DSN); err != nil {
		log.Warn("postgres init failed, continuing in degraded mode", zap.Error(err))
	} else {
		pool = p
	}

	redisClient := redrepo.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)

	userRepo := pgrepo.NewUserRepo(pool)
	quotaRepo := pgrepo.NewQuotaRepo(pool)
	confessionRepo := pgrepo.NewConfessionRepo(pool)
	reportRepo := pgrepo.NewReportRepo(pool)
	blockRepo := pgrepo.NewBlockRepo(pool)

	var notifier *notifysvc.Notifier
	if bot, err := telegram.NewBot(cfg.Bot.Token); err != nil {
		log.Warn("telegram init failed, moderation decisions will not be announced", zap.Error(err))
	} else {
		notifier = notifysvc.New(bot, userRepo, log, notifysvc.Config{
			ConfessionChannel: cfg.Bot.ConfessionChannel,
			AdminChatID:       cfg.Bot.AdminChatID,
		})
	}

	quotaService := quotasvc.NewService(quotasvc.Dependencies{Store: quotaRepo}, quotasvc.Config{
		DailyMatchLimit:      cfg.Limits.DailyMatchLimit,
		DailyConfessionLimit: cfg.Limits.DailyConfessionLimit,
	})
	adminAuthService := adminauthsvc.NewService(adminauthsvc.Config{
		Username:  cfg.Admin.Username,
		Password:  cfg.Admin.Password,
		JWTSecret: cfg.Admin.JWTSecret,
		AccessTTL: cfg.Admin.AccessTTL,
	})
	confessionService := confsvc.NewService(confsvc.Dependencies{
		Pool:   pool,
		Store:  confessionRepo,
		Quota:  quotaService,
		Events: confessionEvents(notifier),
	}, confsvc.Config{
		MaxContentLength: cfg.Limits.ConfessionMaxLength,
	})
	reportService := reportsvc.NewService(reportsvc.Dependencies{
		Store:  reportRepo,
		Users:  userRepo,
		Blocks: blockRepo,
		Events: reportEvents(notifier),
	}, reportsvc.Config{
		AutoHideThreshold: cfg.Limits.AutoHideReports,
	})

	RegisterRoutes(r, Dependencies{
		AdminAuthService:  adminAuthService,
		ConfessionService: confessionService,
		ReportService:     reportService,
		Logger:            log,
	})

	server := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      r,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	return &App{
		cfg:        cfg,
		logger:     log,
		server:     server,
		postgres:   pool,
		redis:      redisClient,
		httpRouter: r,
	}, nil
}

// A nil *Notifier stored in a non-nil interface would dodge the service's
// nil checks, so map nil to nil explicitly.
func confessionEvents(n *notifysvc.Notifier) confsvc.Events {
	if n == nil {
		return nil
	}
	return n
}

func reportEvents(n *notifysvc.Notifier) reportsvc.Events {
	if n == nil {
		return nil
	}
	return n
}

func (a *App) Run() error {
	a.logger.Info("admin api started", zap.String("addr", a.cfg.HTTP.Addr))
	err := a.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error

	if err := a.server.Shutdown(ctx); err != nil {
		shutdownErr = err
	}
	if a.postgres != nil {
		a.postgres.Close()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil && shutdownErr == nil {
			shutdownErr = err
		}
	}

	return shutdownErr
}

func (a *App) Handler() http.Handler {
	return a.httpRouter
}
