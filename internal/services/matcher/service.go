package matcher

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Envologia/unimatch-ethio/internal/domain/enums"
	"github.com/Envologia/unimatch-ethio/internal/domain/model"
	pgrepo "github.com/Envologia/unimatch-ethio/internal/repo/postgres"
	quotasvc "github.com/Envologia/unimatch-ethio/internal/services/quota"
)

var (
	ErrValidation        = errors.New("validation error")
	ErrUnsupportedChoice = errors.New("unsupported choice")
	ErrCandidateNotFound = errors.New("candidate not found")
	ErrQuotaExceeded     = errors.New("daily match quota exceeded")
)

type PairStore interface {
	LockPair(ctx context.Context, tx pgx.Tx, userID, otherID int64) error
	Upsert(ctx context.Context, tx pgx.Tx, actorID, targetID int64, action enums.PairAction) (model.PairActionRecord, error)
	GetCurrentForUpdate(ctx context.Context, tx pgx.Tx, actorID, targetID int64) (model.PairActionRecord, error)
	MarkBothMatched(ctx context.Context, tx pgx.Tx, userID, otherID int64) error
	MarkBothUnmatched(ctx context.Context, tx pgx.Tx, userID, otherID int64) error
}

type MatchStore interface {
	CreateActive(ctx context.Context, tx pgx.Tx, userID, otherID int64) (model.Match, bool, error)
	SetUnmatched(ctx context.Context, tx pgx.Tx, userID, otherID int64) (bool, error)
}

type UserStore interface {
	GetByID(ctx context.Context, userID int64) (model.User, error)
}

type BlockStore interface {
	Exists(ctx context.Context, userID, otherID int64) (bool, error)
}

type QuotaGuard interface {
	ConsumeMatchAction(ctx context.Context, tx pgx.Tx, userID int64) (int, error)
}

// Events receives state-machine transitions after the enclosing transaction
// committed. Implementations deliver the outbound messages; the state machine
// never formats user-facing text.
type Events interface {
	MatchFormed(ctx context.Context, userA, userB int64)
	MatchEnded(ctx context.Context, userA, userB int64)
}

type DecideResult struct {
	Matched bool
	Match   model.Match
}

type Dependencies struct {
	Pool       *pgxpool.Pool
	PairStore  PairStore
	MatchStore MatchStore
	UserStore  UserStore
	Blocks     BlockStore
	Quota      QuotaGuard
	Events     Events
}

type Service struct {
	pairStore  PairStore
	matchStore MatchStore
	userStore  UserStore
	blocks     BlockStore
	quota      QuotaGuard
	events     Events

	runTx func(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error
}

func NewService(deps Dependencies) *Service {
	s := &Service{
		pairStore:  deps.PairStore,
		matchStore: deps.MatchStore,
		userStore:  deps.UserStore,
		blocks:     deps.Blocks,
		quota:      deps.Quota,
		events:     deps.Events,
	}
	if deps.Pool != nil {
		pool := deps.Pool
		s.runTx = func(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error {
			return pgrepo.WithTx(ctx, pool, fn)
		}
	}
	return s
}

// Decide records the seeker's choice on the candidate and resolves whether a
// mutual match formed. The pair lock taken up front covers both directions,
// so racing A->B and B->A likes serialize and exactly one of them sees the
// completed reciprocal. Repeating an already-recorded choice never consumes
// quota, but a repeated like still runs the reciprocal check, so it converges
// on the match instead of short-circuiting past it.
func (s *Service) Decide(ctx context.Context, seekerID, candidateID int64, choice string) (DecideResult, error) {
	if seekerID <= 0 || candidateID <= 0 || seekerID == candidateID {
		return DecideResult{}, ErrValidation
	}

	action, err := normalizeChoice(choice)
	if err != nil {
		return DecideResult{}, err
	}

	if s.runTx == nil || s.pairStore == nil || s.matchStore == nil || s.userStore == nil || s.quota == nil {
		return DecideResult{}, fmt.Errorf("matcher dependencies are not configured")
	}

	if _, err := s.userStore.GetByID(ctx, candidateID); err != nil {
		if errors.Is(err, pgrepo.ErrUserNotFound) {
			return DecideResult{}, ErrCandidateNotFound
		}
		return DecideResult{}, fmt.Errorf("load candidate: %w", err)
	}

	if s.blocks != nil {
		blocked, err := s.blocks.Exists(ctx, seekerID, candidateID)
		if err != nil {
			return DecideResult{}, fmt.Errorf("check block: %w", err)
		}
		if blocked {
			return DecideResult{}, ErrCandidateNotFound
		}
	}

	var result DecideResult
	matchCreated := false
	if err := s.runTx(ctx, func(txCtx context.Context, tx pgx.Tx) error {
		if err := s.pairStore.LockPair(txCtx, tx, seekerID, candidateID); err != nil {
			return err
		}

		current, err := s.pairStore.GetCurrentForUpdate(txCtx, tx, seekerID, candidateID)
		if err != nil && !errors.Is(err, pgrepo.ErrPairActionNotFound) {
			return err
		}
		if err == nil && current.Action == enums.PairActionMatched {
			result.Matched = true
			return nil
		}

		changed := err != nil || current.Action != action
		if changed {
			if _, err := s.quota.ConsumeMatchAction(txCtx, tx, seekerID); err != nil {
				if errors.Is(err, quotasvc.ErrQuotaExceeded) {
					return ErrQuotaExceeded
				}
				return err
			}

			if _, err := s.pairStore.Upsert(txCtx, tx, seekerID, candidateID, action); err != nil {
				return err
			}
		}

		if action != enums.PairActionLiked {
			return nil
		}

		reciprocal, err := s.pairStore.GetCurrentForUpdate(txCtx, tx, candidateID, seekerID)
		if err != nil {
			if errors.Is(err, pgrepo.ErrPairActionNotFound) {
				return nil
			}
			return err
		}
		if reciprocal.Action != enums.PairActionLiked {
			return nil
		}

		if err := s.pairStore.MarkBothMatched(txCtx, tx, seekerID, candidateID); err != nil {
			return err
		}

		match, created, err := s.matchStore.CreateActive(txCtx, tx, seekerID, candidateID)
		if err != nil {
			return err
		}

		result.Matched = true
		result.Match = match
		matchCreated = created
		return nil
	}); err != nil {
		return DecideResult{}, err
	}

	if matchCreated && s.events != nil {
		s.events.MatchFormed(ctx, result.Match.UserA, result.Match.UserB)
	}

	return result, nil
}

// Unmatch ends the active match for the unordered pair. Idempotent: a second
// call, or a call with no active match, succeeds without effect.
func (s *Service) Unmatch(ctx context.Context, userID, otherID int64) error {
	if userID <= 0 || otherID <= 0 || userID == otherID {
		return ErrValidation
	}
	if s.runTx == nil || s.pairStore == nil || s.matchStore == nil {
		return fmt.Errorf("matcher dependencies are not configured")
	}

	ended := false
	if err := s.runTx(ctx, func(txCtx context.Context, tx pgx.Tx) error {
		if err := s.pairStore.LockPair(txCtx, tx, userID, otherID); err != nil {
			return err
		}

		changed, err := s.matchStore.SetUnmatched(txCtx, tx, userID, otherID)
		if err != nil {
			return err
		}
		if !changed {
			return nil
		}

		if err := s.pairStore.MarkBothUnmatched(txCtx, tx, userID, otherID); err != nil {
			return err
		}

		ended = true
		return nil
	}); err != nil {
		return err
	}

	if ended && s.events != nil {
		s.events.MatchEnded(ctx, userID, otherID)
	}

	return nil
}

func normalizeChoice(input string) (enums.PairAction, error) {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "like":
		return enums.PairActionLiked, nil
	case "skip":
		return enums.PairActionSkipped, nil
	default:
		return "", ErrUnsupportedChoice
	}
}
