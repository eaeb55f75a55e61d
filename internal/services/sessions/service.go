package sessions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Envologia/unimatch-ethio/internal/domain/model"
	pgrepo "github.com/Envologia/unimatch-ethio/internal/repo/postgres"
	redrepo "github.com/Envologia/unimatch-ethio/internal/repo/redis"
	matchersvc "github.com/Envologia/unimatch-ethio/internal/services/matcher"
	quotasvc "github.com/Envologia/unimatch-ethio/internal/services/quota"
	selectorsvc "github.com/Envologia/unimatch-ethio/internal/services/selector"
)

var (
	ErrValidation     = errors.New("validation error")
	ErrQuotaExceeded  = errors.New("daily match quota exceeded")
	ErrSeekerNotFound = errors.New("seeker not found")
	ErrSessionExpired = errors.New("matching session expired")
	ErrQueueExhausted = errors.New("candidate queue exhausted")
	ErrCandidateGone  = errors.New("candidate no longer available")
)

type Selector interface {
	Select(ctx context.Context, seekerID int64) ([]selectorsvc.Candidate, error)
}

type Matcher interface {
	Decide(ctx context.Context, seekerID, candidateID int64, choice string) (matchersvc.DecideResult, error)
}

type QuotaView interface {
	GetSnapshot(ctx context.Context, userID int64) (quotasvc.Snapshot, error)
}

type QueueStore interface {
	Save(ctx context.Context, queueID string, seekerID int64, candidateIDs []int64, ttl time.Duration) error
	Owner(ctx context.Context, queueID string) (int64, error)
	Pop(ctx context.Context, queueID string) (int64, bool, error)
	Remaining(ctx context.Context, queueID string) (int64, error)
	Delete(ctx context.Context, queueID string) error
}

type UserStore interface {
	GetByID(ctx context.Context, userID int64) (model.User, error)
}

type Config struct {
	QueueTTL time.Duration
}

type Dependencies struct {
	Selector Selector
	Matcher  Matcher
	Quota    QuotaView
	Queues   QueueStore
	Users    UserStore
}

// Service is the conversation-facing surface of the matching engine. It owns
// the transient candidate queue; everything durable lives behind the matcher.
type Service struct {
	selector Selector
	matcher  Matcher
	quota    QuotaView
	queues   QueueStore
	users    UserStore
	cfg      Config
}

func NewService(deps Dependencies, cfg Config) *Service {
	if cfg.QueueTTL <= 0 {
		cfg.QueueTTL = 30 * time.Minute
	}

	return &Service{
		selector: deps.Selector,
		matcher:  deps.Matcher,
		quota:    deps.Quota,
		queues:   deps.Queues,
		users:    deps.Users,
		cfg:      cfg,
	}
}

// StartSession checks the seeker still has match actions left today, ranks a
// fresh candidate queue and parks it under an opaque queue id. A selector
// failure degrades to an empty queue: the seeker sees "no candidates", never
// a broken conversation.
func (s *Service) StartSession(ctx context.Context, seekerID int64) (string, error) {
	if seekerID <= 0 {
		return "", ErrValidation
	}
	if s.selector == nil || s.quota == nil || s.queues == nil {
		return "", fmt.Errorf("session dependencies are not configured")
	}

	snapshot, err := s.quota.GetSnapshot(ctx, seekerID)
	if err != nil {
		return "", fmt.Errorf("read quota snapshot: %w", err)
	}
	if snapshot.MatchActionsRemaining <= 0 {
		return "", ErrQuotaExceeded
	}

	candidateIDs := []int64{}
	ranked, err := s.selector.Select(ctx, seekerID)
	switch {
	case err == nil:
		for _, candidate := range ranked {
			candidateIDs = append(candidateIDs, candidate.User.ID)
		}
	case errors.Is(err, selectorsvc.ErrSeekerNotFound):
		return "", ErrSeekerNotFound
	case errors.Is(err, selectorsvc.ErrValidation), errors.Is(err, selectorsvc.ErrSeekerHidden):
		return "", ErrValidation
	default:
		// Store trouble degrades to an empty queue.
	}

	queueID := uuid.NewString()
	if err := s.queues.Save(ctx, queueID, seekerID, candidateIDs, s.cfg.QueueTTL); err != nil {
		return "", fmt.Errorf("save candidate queue: %w", err)
	}

	return queueID, nil
}

// NextCandidate pops the next profile off the queue. Candidates deleted or
// hidden since the queue was built are skipped silently.
func (s *Service) NextCandidate(ctx context.Context, queueID string) (model.User, error) {
	if queueID == "" {
		return model.User{}, ErrValidation
	}
	if s.queues == nil || s.users == nil {
		return model.User{}, fmt.Errorf("session dependencies are not configured")
	}

	if _, err := s.queues.Owner(ctx, queueID); err != nil {
		if errors.Is(err, redrepo.ErrQueueNotFound) {
			return model.User{}, ErrSessionExpired
		}
		return model.User{}, fmt.Errorf("resolve queue owner: %w", err)
	}

	for {
		candidateID, ok, err := s.queues.Pop(ctx, queueID)
		if err != nil {
			return model.User{}, fmt.Errorf("pop candidate: %w", err)
		}
		if !ok {
			return model.User{}, ErrQueueExhausted
		}

		candidate, err := s.users.GetByID(ctx, candidateID)
		if err != nil {
			if errors.Is(err, pgrepo.ErrUserNotFound) {
				continue
			}
			return model.User{}, fmt.Errorf("load candidate: %w", err)
		}
		if !candidate.Visible {
			continue
		}

		return candidate, nil
	}
}

// SubmitChoice forwards the decision to the match state machine.
func (s *Service) SubmitChoice(ctx context.Context, seekerID, candidateID int64, choice string) (bool, error) {
	if s.matcher == nil {
		return false, fmt.Errorf("session dependencies are not configured")
	}

	result, err := s.matcher.Decide(ctx, seekerID, candidateID, choice)
	if err != nil {
		switch {
		case errors.Is(err, matchersvc.ErrQuotaExceeded):
			return false, ErrQuotaExceeded
		case errors.Is(err, matchersvc.ErrCandidateNotFound):
			return false, ErrCandidateGone
		case errors.Is(err, matchersvc.ErrValidation), errors.Is(err, matchersvc.ErrUnsupportedChoice):
			return false, ErrValidation
		default:
			return false, err
		}
	}

	return result.Matched, nil
}

// Remaining reports how many candidates are still queued. An expired queue
// maps to ErrSessionExpired, same as NextCandidate.
func (s *Service) Remaining(ctx context.Context, queueID string) (int64, error) {
	if queueID == "" {
		return 0, ErrValidation
	}
	if s.queues == nil {
		return 0, fmt.Errorf("session dependencies are not configured")
	}

	if _, err := s.queues.Owner(ctx, queueID); err != nil {
		if errors.Is(err, redrepo.ErrQueueNotFound) {
			return 0, ErrSessionExpired
		}
		return 0, fmt.Errorf("resolve queue owner: %w", err)
	}

	count, err := s.queues.Remaining(ctx, queueID)
	if err != nil {
		return 0, fmt.Errorf("read queue length: %w", err)
	}

	return count, nil
}

// Cancel drops the queue. Likes and skips already recorded stand.
func (s *Service) Cancel(ctx context.Context, queueID string) error {
	if queueID == "" {
		return nil
	}
	if s.queues == nil {
		return fmt.Errorf("session dependencies are not configured")
	}

	if err := s.queues.Delete(ctx, queueID); err != nil {
		return fmt.Errorf("delete candidate queue: %w", err)
	}

	return nil
}
