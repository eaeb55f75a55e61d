package botapp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Envologia/unimatch-ethio/internal/config"
	"github.com/Envologia/unimatch-ethio/internal/domain/rules"
	tginfra "github.com/Envologia/unimatch-ethio/internal/infra/telegram"
	"github.com/Envologia/unimatch-ethio/internal/jobs/cleanup"
	pgrepo "github.com/Envologia/unimatch-ethio/internal/repo/postgres"
	redrepo "github.com/Envologia/unimatch-ethio/internal/repo/redis"
	confsvc "github.com/Envologia/unimatch-ethio/internal/services/confessions"
	matchersvc "github.com/Envologia/unimatch-ethio/internal/services/matcher"
	notifysvc "github.com/Envologia/unimatch-ethio/internal/services/notify"
	profilesvc "github.com/Envologia/unimatch-ethio/internal/services/profiles"
	quotasvc "github.com/Envologia/unimatch-ethio/internal/services/quota"
	ratesvc "github.com/Envologia/unimatch-ethio/internal/services/rate"
	reportsvc "github.com/Envologia/unimatch-ethio/internal/services/reports"
	selectorsvc "github.com/Envologia/unimatch-ethio/internal/services/selector"
	sessionsvc "github.com/Envologia/unimatch-ethio/internal/services/sessions"
)

type App struct {
	cfg      config.Config
	logger   *zap.Logger
	postgres *pgxpool.Pool
	redis    *goredis.Client
	bot      *tginfra.Bot

	states    *redrepo.StateRepo
	matchRepo *pgrepo.MatchRepo

	profileService    *profilesvc.Service
	sessionService    *sessionsvc.Service
	matchService      *matchersvc.Service
	quotaService      *quotasvc.Service
	confessionService *confsvc.Service
	reportService     *reportsvc.Service
	limiter           *ratesvc.Limiter
	cleanupJob        *cleanup.Job
}

func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is nil")
	}

	pool, err := pgrepo.NewPool(ctx, cfg.Postgres.DSN)
	if err != nil {
		return nil, fmt.Errorf("init postgres for bot app: %w", err)
	}

	redisClient := redrepo.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)

	userRepo := pgrepo.NewUserRepo(pool)
	quotaRepo := pgrepo.NewQuotaRepo(pool)
	pairRepo := pgrepo.NewPairActionRepo(pool)
	matchRepo := pgrepo.NewMatchRepo(pool)
	confessionRepo := pgrepo.NewConfessionRepo(pool)
	reportRepo := pgrepo.NewReportRepo(pool)
	blockRepo := pgrepo.NewBlockRepo(pool)
	queueRepo := redrepo.NewQueueRepo(redisClient)
	rateRepo := redrepo.NewRateRepo(redisClient)
	stateRepo := redrepo.NewStateRepo(redisClient)

	var bot *tginfra.Bot
	if strings.TrimSpace(cfg.Bot.Token) != "" {
		bot, err = tginfra.NewBot(cfg.Bot.Token)
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("init telegram bot: %w", err)
		}
	} else {
		logger.Warn("BOT_TOKEN is empty, conversation listener disabled")
	}

	var notifier *notifysvc.Notifier
	if bot != nil {
		notifier = notifysvc.New(bot, userRepo, logger, notifysvc.Config{
			ConfessionChannel: cfg.Bot.ConfessionChannel,
			MatchChannel:      cfg.Bot.MatchChannel,
			AdminChatID:       cfg.Bot.AdminChatID,
		})
	}

	quotaService := quotasvc.NewService(quotasvc.Dependencies{Store: quotaRepo}, quotasvc.Config{
		DailyMatchLimit:      cfg.Limits.DailyMatchLimit,
		DailyConfessionLimit: cfg.Limits.DailyConfessionLimit,
	})
	profileService := profilesvc.NewService(userRepo, profilesvc.Config{
		MinAge: cfg.Matching.AgeMin,
		MaxAge: cfg.Matching.AgeMax,
	})
	selectorService := selectorsvc.NewService(selectorsvc.Dependencies{Users: userRepo}, selectorsvc.Config{
		TopK:         cfg.Matching.TopK,
		PoolLimit:    cfg.Matching.PoolLimit,
		GenderPolicy: cfg.Matching.GenderPolicy,
		Weights: rules.ScoreWeights{
			Age:        cfg.Matching.Weights.Age,
			University: cfg.Matching.Weights.University,
			Bio:        cfg.Matching.Weights.Bio,
			Hobbies:    cfg.Matching.Weights.Hobbies,
		},
	})
	matchService := matchersvc.NewService(matchersvc.Dependencies{
		Pool:       pool,
		PairStore:  pairRepo,
		MatchStore: matchRepo,
		UserStore:  userRepo,
		Blocks:     blockRepo,
		Quota:      quotaService,
		Events:     matcherEvents(notifier),
	})
	sessionService := sessionsvc.NewService(sessionsvc.Dependencies{
		Selector: selectorService,
		Matcher:  matchService,
		Quota:    quotaService,
		Queues:   queueRepo,
		Users:    userRepo,
	}, sessionsvc.Config{
		QueueTTL: cfg.Matching.QueueTTL,
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
	limiter := ratesvc.NewLimiter(rateRepo, cfg.Limits.ActionsPerMinute, cfg.Limits.ActionsPer10Sec)
	cleanupJob := cleanup.NewJob(quotaRepo, pairRepo, cfg.Cleanup.QuotaRetention, cfg.Cleanup.PairRetention, logger)

	return &App{
		cfg:               cfg,
		logger:            logger,
		postgres:          pool,
		redis:             redisClient,
		bot:               bot,
		states:            stateRepo,
		matchRepo:         matchRepo,
		profileService:    profileService,
		sessionService:    sessionService,
		matchService:      matchService,
		quotaService:      quotaService,
		confessionService: confessionService,
		reportService:     reportService,
		limiter:           limiter,
		cleanupJob:        cleanupJob,
	}, nil
}

// A nil *Notifier stored in a non-nil interface would dodge the services'
// nil checks, so map nil to nil explicitly.
func matcherEvents(n *notifysvc.Notifier) matchersvc.Events {
	if n == nil {
		return nil
	}
	return n
}

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

func (a *App) Run(ctx context.Context) error {
	a.logger.Info("bot app started")

	errCh := make(chan error, 2)
	go func() {
		errCh <- a.runCleanupLoop(ctx)
	}()

	if a.bot != nil {
		go func() {
			errCh <- a.bot.Listen(ctx, tginfra.Handlers{
				OnCommand:  a.safeCommand,
				OnText:     a.safeText,
				OnPhoto:    a.safePhoto,
				OnCallback: a.safeCallback,
			})
		}()
	}

	for {
		select {
		case <-ctx.Done():
			a.logger.Info("bot app stopped")
			return nil
		case err := <-errCh:
			if err == nil || errors.Is(err, context.Canceled) {
				continue
			}
			return err
		}
	}
}

const handlerFailureReply = "Something went wrong. Please try again later."

// The safe* wrappers keep handler failures out of the Listen loop: one broken
// update must not take the long poller down with it. The error is logged, the
// user gets a generic reply, and polling continues.
func (a *App) safeCommand(ctx context.Context, update tginfra.CommandUpdate) error {
	if err := a.handleCommand(ctx, update); err != nil {
		a.reportHandlerFailure(ctx, "command", update.ChatID, update.UserID, err)
	}
	return nil
}

func (a *App) safeText(ctx context.Context, update tginfra.TextUpdate) error {
	if err := a.handleText(ctx, update); err != nil {
		a.reportHandlerFailure(ctx, "text", update.ChatID, update.UserID, err)
	}
	return nil
}

func (a *App) safePhoto(ctx context.Context, update tginfra.PhotoUpdate) error {
	if err := a.handlePhoto(ctx, update); err != nil {
		a.reportHandlerFailure(ctx, "photo", update.ChatID, update.UserID, err)
	}
	return nil
}

func (a *App) safeCallback(ctx context.Context, update tginfra.CallbackUpdate) error {
	if err := a.handleCallback(ctx, update); err != nil {
		if ackErr := a.bot.AnswerCallback(ctx, update.CallbackID, ""); ackErr != nil {
			a.logger.Debug("answer callback after failure", zap.Error(ackErr))
		}
		a.reportHandlerFailure(ctx, "callback", update.ChatID, update.UserID, err)
	}
	return nil
}

func (a *App) reportHandlerFailure(ctx context.Context, kind string, chatID, userID int64, err error) {
	a.logger.Error("handle "+kind+" update",
		zap.Error(err),
		zap.Int64("chat_id", chatID),
		zap.Int64("user_id", userID),
	)
	if sendErr := a.bot.SendText(ctx, chatID, handlerFailureReply); sendErr != nil {
		a.logger.Warn("send failure reply", zap.Error(sendErr), zap.Int64("chat_id", chatID))
	}
}

func (a *App) runCleanupLoop(ctx context.Context) error {
	if a.cleanupJob == nil {
		return nil
	}

	interval := a.cfg.Cleanup.Interval
	if interval <= 0 {
		interval = 6 * time.Hour
	}

	if err := a.cleanupJob.Run(ctx); err != nil {
		return err
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := a.cleanupJob.Run(ctx); err != nil {
				return err
			}
		}
	}
}

func (a *App) Close() {
	if a.postgres != nil {
		a.postgres.Close()
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
}
