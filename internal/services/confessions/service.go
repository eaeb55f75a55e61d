package confessions

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Envologia/unimatch-ethio/internal/domain/enums"
	"github.com/Envologia/unimatch-ethio/internal/domain/model"
	pgrepo "github.com/Envologia/unimatch-ethio/internal/repo/postgres"
	quotasvc "github.com/Envologia/unimatch-ethio/internal/services/quota"
)

var (
	ErrValidation         = errors.New("validation error")
	ErrContentTooLong     = errors.New("confession content too long")
	ErrQuotaExceeded      = errors.New("daily confession quota exceeded")
	ErrConfessionNotFound = errors.New("confession not found")
)

type Store interface {
	Create(ctx context.Context, tx pgx.Tx, authorID int64, content string) (model.Confession, error)
	GetByID(ctx context.Context, confessionID int64) (model.Confession, error)
	NextPending(ctx context.Context) (model.Confession, error)
	CountPending(ctx context.Context) (int, error)
	Decide(ctx context.Context, confessionID int64, status enums.ConfessionStatus) (model.Confession, bool, error)
	ListByAuthor(ctx context.Context, authorID int64, limit int) ([]model.Confession, error)
	ListApproved(ctx context.Context, limit int) ([]model.Confession, error)
}

type QuotaGuard interface {
	ConsumeConfession(ctx context.Context, tx pgx.Tx, userID int64) (int, error)
}

// Events fires after the confession changed state. The notifier posts
// approved confessions to the public channel and pings moderators about new
// pending ones.
type Events interface {
	ConfessionSubmitted(ctx context.Context, confession model.Confession)
	ConfessionApproved(ctx context.Context, confession model.Confession)
	ConfessionRejected(ctx context.Context, confession model.Confession)
}

type Config struct {
	MaxContentLength int
}

type Dependencies struct {
	Pool   *pgxpool.Pool
	Store  Store
	Quota  QuotaGuard
	Events Events
}

type Service struct {
	pool   *pgxpool.Pool
	store  Store
	quota  QuotaGuard
	events Events
	cfg    Config
}

func NewService(deps Dependencies, cfg Config) *Service {
	if cfg.MaxContentLength <= 0 {
		cfg.MaxContentLength = 1000
	}

	return &Service{
		pool:   deps.Pool,
		store:  deps.Store,
		quota:  deps.Quota,
		events: deps.Events,
		cfg:    cfg,
	}
}

// Submit validates the text, takes a confession quota slot and stores the
// pending row in one transaction.
func (s *Service) Submit(ctx context.Context, authorID int64, content string) (model.Confession, error) {
	if authorID <= 0 {
		return model.Confession{}, ErrValidation
	}

	content = strings.TrimSpace(content)
	if content == "" {
		return model.Confession{}, ErrValidation
	}
	if utf8.RuneCountInString(content) > s.cfg.MaxContentLength {
		return model.Confession{}, ErrContentTooLong
	}

	if s.pool == nil || s.store == nil || s.quota == nil {
		return model.Confession{}, fmt.Errorf("confession dependencies are not configured")
	}

	var confession model.Confession
	if err := pgrepo.WithTx(ctx, s.pool, func(txCtx context.Context, tx pgx.Tx) error {
		if _, err := s.quota.ConsumeConfession(txCtx, tx, authorID); err != nil {
			if errors.Is(err, quotasvc.ErrQuotaExceeded) {
				return ErrQuotaExceeded
			}
			return err
		}

		created, err := s.store.Create(txCtx, tx, authorID, content)
		if err != nil {
			return err
		}

		confession = created
		return nil
	}); err != nil {
		return model.Confession{}, err
	}

	if s.events != nil {
		s.events.ConfessionSubmitted(ctx, confession)
	}

	return confession, nil
}

// NextPending returns the head of the moderation queue together with the
// number of confessions still waiting.
func (s *Service) NextPending(ctx context.Context) (model.Confession, int, error) {
	if s.store == nil {
		return model.Confession{}, 0, fmt.Errorf("confession dependencies are not configured")
	}

	confession, err := s.store.NextPending(ctx)
	if err != nil {
		if errors.Is(err, pgrepo.ErrConfessionNotFound) {
			return model.Confession{}, 0, ErrConfessionNotFound
		}
		return model.Confession{}, 0, fmt.Errorf("load pending confession: %w", err)
	}

	pending, err := s.store.CountPending(ctx)
	if err != nil {
		return model.Confession{}, 0, fmt.Errorf("count pending confessions: %w", err)
	}

	return confession, pending, nil
}

// Approve publishes a pending confession. Deciding an already-decided
// confession keeps the stored decision and fires no event.
func (s *Service) Approve(ctx context.Context, confessionID int64) (model.Confession, error) {
	return s.decide(ctx, confessionID, enums.ConfessionStatusApproved)
}

// Reject declines a pending confession.
func (s *Service) Reject(ctx context.Context, confessionID int64) (model.Confession, error) {
	return s.decide(ctx, confessionID, enums.ConfessionStatusRejected)
}

func (s *Service) decide(ctx context.Context, confessionID int64, status enums.ConfessionStatus) (model.Confession, error) {
	if confessionID <= 0 {
		return model.Confession{}, ErrValidation
	}
	if s.store == nil {
		return model.Confession{}, fmt.Errorf("confession dependencies are not configured")
	}

	confession, applied, err := s.store.Decide(ctx, confessionID, status)
	if err != nil {
		if errors.Is(err, pgrepo.ErrConfessionNotFound) {
			return model.Confession{}, ErrConfessionNotFound
		}
		return model.Confession{}, fmt.Errorf("decide confession: %w", err)
	}

	if applied && s.events != nil {
		switch status {
		case enums.ConfessionStatusApproved:
			s.events.ConfessionApproved(ctx, confession)
		case enums.ConfessionStatusRejected:
			s.events.ConfessionRejected(ctx, confession)
		}
	}

	return confession, nil
}

// ListRecentApproved returns the latest published confessions, newest first.
func (s *Service) ListRecentApproved(ctx context.Context, limit int) ([]model.Confession, error) {
	if s.store == nil {
		return nil, fmt.Errorf("confession dependencies are not configured")
	}

	confessions, err := s.store.ListApproved(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list approved confessions: %w", err)
	}

	return confessions, nil
}

// ListMine returns the author's own submissions, newest first.
func (s *Service) ListMine(ctx context.Context, authorID int64, limit int) ([]model.Confession, error) {
	if authorID <= 0 {
		return nil, ErrValidation
	}
	if s.store == nil {
		return nil, fmt.Errorf("confession dependencies are not configured")
	}

	confessions, err := s.store.ListByAuthor(ctx, authorID, limit)
	if err != nil {
		return nil, fmt.Errorf("list confessions: %w", err)
	}

	return confessions, nil
}
