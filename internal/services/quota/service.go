package quota

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/Envologia/unimatch-ethio/internal/domain/model"
	"github.com/Envologia/unimatch-ethio/internal/domain/rules"
	pgrepo "github.com/Envologia/unimatch-ethio/internal/repo/postgres"
)

var (
	ErrValidation    = errors.New("validation error")
	ErrQuotaExceeded = errors.New("daily quota exceeded")
)

type Store interface {
	ConsumeWithLimit(ctx context.Context, tx pgx.Tx, userID int64, dayKey string, category pgrepo.QuotaCategory, limit int) (int, error)
	GetUsage(ctx context.Context, userID int64, dayKey string) (model.DailyQuota, error)
}

type Config struct {
	DailyMatchLimit      int
	DailyConfessionLimit int
}

// Snapshot is a non-consuming view of what the user has left today.
type Snapshot struct {
	MatchActionsUsed      int
	MatchActionsLimit     int
	MatchActionsRemaining int
	ConfessionsUsed       int
	ConfessionsLimit      int
	ConfessionsRemaining  int
	ResetsAt              time.Time
}

type Dependencies struct {
	Store Store
}

type Service struct {
	store Store
	cfg   Config
	now   func() time.Time
}

func NewService(deps Dependencies, cfg Config) *Service {
	if cfg.DailyMatchLimit <= 0 {
		cfg.DailyMatchLimit = 20
	}
	if cfg.DailyConfessionLimit <= 0 {
		cfg.DailyConfessionLimit = 5
	}

	return &Service{
		store: deps.Store,
		cfg:   cfg,
		now:   time.Now,
	}
}

// ConsumeMatchAction takes one match-action slot inside the caller's
// transaction. ErrQuotaExceeded means the ceiling was already reached and
// nothing was incremented.
func (s *Service) ConsumeMatchAction(ctx context.Context, tx pgx.Tx, userID int64) (int, error) {
	return s.consume(ctx, tx, userID, pgrepo.QuotaMatch, s.cfg.DailyMatchLimit)
}

// ConsumeConfession takes one confession slot inside the caller's transaction.
func (s *Service) ConsumeConfession(ctx context.Context, tx pgx.Tx, userID int64) (int, error) {
	return s.consume(ctx, tx, userID, pgrepo.QuotaConfession, s.cfg.DailyConfessionLimit)
}

func (s *Service) consume(ctx context.Context, tx pgx.Tx, userID int64, category pgrepo.QuotaCategory, limit int) (int, error) {
	if userID <= 0 {
		return 0, ErrValidation
	}
	if s.store == nil {
		return 0, fmt.Errorf("quota store is not configured")
	}

	dayKey := rules.DayKey(s.now())
	used, err := s.store.ConsumeWithLimit(ctx, tx, userID, dayKey, category, limit)
	if err != nil {
		if errors.Is(err, pgrepo.ErrQuotaLimitReached) {
			return 0, ErrQuotaExceeded
		}
		return 0, fmt.Errorf("consume %s quota: %w", category, err)
	}

	return used, nil
}

// GetSnapshot reads today's usage without consuming anything.
func (s *Service) GetSnapshot(ctx context.Context, userID int64) (Snapshot, error) {
	if userID <= 0 {
		return Snapshot{}, ErrValidation
	}
	if s.store == nil {
		return Snapshot{}, fmt.Errorf("quota store is not configured")
	}

	now := s.now()
	usage, err := s.store.GetUsage(ctx, userID, rules.DayKey(now))
	if err != nil {
		return Snapshot{}, fmt.Errorf("read quota usage: %w", err)
	}

	return Snapshot{
		MatchActionsUsed:      usage.MatchActionsUsed,
		MatchActionsLimit:     s.cfg.DailyMatchLimit,
		MatchActionsRemaining: remaining(s.cfg.DailyMatchLimit, usage.MatchActionsUsed),
		ConfessionsUsed:       usage.ConfessionsUsed,
		ConfessionsLimit:      s.cfg.DailyConfessionLimit,
		ConfessionsRemaining:  remaining(s.cfg.DailyConfessionLimit, usage.ConfessionsUsed),
		ResetsAt:              rules.NextResetAt(now),
	}, nil
}

func remaining(limit, used int) int {
	left := limit - used
	if left < 0 {
		return 0
	}
	return left
}
