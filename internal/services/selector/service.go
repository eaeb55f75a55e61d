package selector

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/Envologia/unimatch-ethio/internal/domain/model"
	"github.com/Envologia/unimatch-ethio/internal/domain/rules"
	pgrepo "github.com/Envologia/unimatch-ethio/internal/repo/postgres"
)

const (
	GenderPolicyOpposite = "opposite"
	GenderPolicyAny      = "any"
)

var (
	ErrValidation     = errors.New("validation error")
	ErrSeekerNotFound = errors.New("seeker not found")
	ErrSeekerHidden   = errors.New("seeker profile is not visible")
)

type UserStore interface {
	GetByID(ctx context.Context, userID int64) (model.User, error)
	QueryCandidates(ctx context.Context, q pgrepo.CandidateQuery) ([]model.User, error)
}

type Config struct {
	TopK         int
	PoolLimit    int
	GenderPolicy string
	Weights      rules.ScoreWeights
}

// Candidate pairs a profile with the score it ranked under, so callers can
// show or log the ranking without recomputing it.
type Candidate struct {
	User  model.User
	Score float64
}

type Dependencies struct {
	Users UserStore
}

type Service struct {
	users UserStore
	cfg   Config
}

func NewService(deps Dependencies, cfg Config) *Service {
	if cfg.TopK <= 0 {
		cfg.TopK = 10
	}
	if cfg.PoolLimit <= 0 {
		cfg.PoolLimit = 200
	}
	if strings.TrimSpace(cfg.GenderPolicy) == "" {
		cfg.GenderPolicy = GenderPolicyOpposite
	}
	if cfg.Weights == (rules.ScoreWeights{}) {
		cfg.Weights = rules.DefaultScoreWeights()
	}

	return &Service{
		users: deps.Users,
		cfg:   cfg,
	}
}

// Select loads the eligible pool for the seeker, ranks it by compatibility
// and returns at most TopK candidates in descending score order. Ties keep
// the pool's stable id order, so identical inputs always rank identically.
func (s *Service) Select(ctx context.Context, seekerID int64) ([]Candidate, error) {
	if seekerID <= 0 {
		return nil, ErrValidation
	}
	if s.users == nil {
		return nil, fmt.Errorf("selector dependencies are not configured")
	}

	seeker, err := s.users.GetByID(ctx, seekerID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrUserNotFound) {
			return nil, ErrSeekerNotFound
		}
		return nil, fmt.Errorf("load seeker: %w", err)
	}
	if !seeker.Visible {
		return nil, ErrSeekerHidden
	}

	pool, err := s.users.QueryCandidates(ctx, pgrepo.CandidateQuery{
		SeekerID:            seeker.ID,
		SeekerGender:        seeker.Gender,
		OppositeGenderOnly:  s.cfg.GenderPolicy == GenderPolicyOpposite,
		PreferredAgeMin:     seeker.PreferredAgeMin,
		PreferredAgeMax:     seeker.PreferredAgeMax,
		PreferredUniversity: seeker.PreferredUniversity,
		Limit:               s.cfg.PoolLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("query candidate pool: %w", err)
	}

	seekerInput := compatInput(seeker)
	ranked := make([]Candidate, 0, len(pool))
	for _, candidate := range pool {
		ranked = append(ranked, Candidate{
			User:  candidate,
			Score: rules.CompatibilityScore(s.cfg.Weights, seekerInput, compatInput(candidate)),
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})

	if len(ranked) > s.cfg.TopK {
		ranked = ranked[:s.cfg.TopK]
	}

	return ranked, nil
}

func compatInput(user model.User) rules.CompatibilityInput {
	return rules.CompatibilityInput{
		Age:        user.Age,
		University: user.University,
		Bio:        user.Bio,
		Hobbies:    user.Hobbies,
	}
}
