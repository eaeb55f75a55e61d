package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Envologia/unimatch-ethio/internal/domain/enums"
	"github.com/Envologia/unimatch-ethio/internal/domain/model"
)

var ErrMatchNotFound = errors.New("match not found")

type MatchRepo struct {
	pool *pgxpool.Pool
}

func NewMatchRepo(pool *pgxpool.Pool) *MatchRepo {
	return &MatchRepo{pool: pool}
}

// CreateActive inserts the active match for the unordered pair. The pair is
// stored canonically (user_a < user_b) and the partial unique index on active
// pairs is the source of truth: a concurrent duplicate resolves to
// created=false, never to a second row.
func (r *MatchRepo) CreateActive(ctx context.Context, tx pgx.Tx, userID, otherID int64) (model.Match, bool, error) {
	if userID <= 0 || otherID <= 0 || userID == otherID {
		return model.Match{}, false, fmt.Errorf("invalid match payload")
	}
	if tx == nil {
		return model.Match{}, false, fmt.Errorf("transaction is required")
	}

	userA, userB := canonicalPair(userID, otherID)

	var match model.Match
	var status string
	err := tx.QueryRow(ctx, `
INSERT INTO matches (
	user_a_id,
	user_b_id,
	status,
	created_at
) VALUES ($1, $2, 'active', NOW())
ON CONFLICT (user_a_id, user_b_id) WHERE status = 'active' DO NOTHING
RETURNING id, user_a_id, user_b_id, status, created_at
`, userA, userB).Scan(
		&match.ID,
		&match.UserA,
		&match.UserB,
		&status,
		&match.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || IsUniqueViolation(err) {
			existing, lookupErr := r.getActive(ctx, tx, userA, userB)
			if lookupErr != nil {
				return model.Match{}, false, lookupErr
			}
			return existing, false, nil
		}
		return model.Match{}, false, fmt.Errorf("create match: %w", err)
	}

	match.Status = enums.MatchStatus(status)
	return match, true, nil
}

func (r *MatchRepo) getActive(ctx context.Context, tx pgx.Tx, userA, userB int64) (model.Match, error) {
	var match model.Match
	var status string
	err := tx.QueryRow(ctx, `
SELECT id, user_a_id, user_b_id, status, created_at
FROM matches
WHERE user_a_id = $1 AND user_b_id = $2 AND status = 'active'
LIMIT 1
`, userA, userB).Scan(
		&match.ID,
		&match.UserA,
		&match.UserB,
		&status,
		&match.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Match{}, ErrMatchNotFound
		}
		return model.Match{}, fmt.Errorf("get active match: %w", err)
	}

	match.Status = enums.MatchStatus(status)
	return match, nil
}

// SetUnmatched moves the active match for the unordered pair to its terminal
// state. Returns false when no active match exists; that is not an error.
func (r *MatchRepo) SetUnmatched(ctx context.Context, tx pgx.Tx, userID, otherID int64) (bool, error) {
	if userID <= 0 || otherID <= 0 || userID == otherID {
		return false, fmt.Errorf("invalid unmatch payload")
	}
	if tx == nil {
		return false, fmt.Errorf("transaction is required")
	}

	userA, userB := canonicalPair(userID, otherID)

	result, err := tx.Exec(ctx, `
UPDATE matches
SET status = 'unmatched'
WHERE user_a_id = $1 AND user_b_id = $2 AND status = 'active'
`, userA, userB)
	if err != nil {
		return false, fmt.Errorf("set match unmatched: %w", err)
	}

	return result.RowsAffected() > 0, nil
}

func (r *MatchRepo) ListActiveForUser(ctx context.Context, userID int64, limit int) ([]model.Match, error) {
	if userID <= 0 {
		return nil, fmt.Errorf("invalid user id")
	}
	if limit <= 0 {
		limit = 100
	}
	if r.pool == nil {
		return []model.Match{}, nil
	}

	rows, err := r.pool.Query(ctx, `
SELECT id, user_a_id, user_b_id, status, created_at
FROM matches
WHERE (user_a_id = $1 OR user_b_id = $1) AND status = 'active'
ORDER BY created_at DESC, id DESC
LIMIT $2
`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list active matches: %w", err)
	}
	defer rows.Close()

	matches := make([]model.Match, 0, limit)
	for rows.Next() {
		var match model.Match
		var status string
		if err := rows.Scan(&match.ID, &match.UserA, &match.UserB, &status, &match.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan active match: %w", err)
		}
		match.Status = enums.MatchStatus(status)
		matches = append(matches, match)
	}

	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate active matches: %w", rows.Err())
	}

	return matches, nil
}

func canonicalPair(a, b int64) (int64, int64) {
	if a > b {
		return b, a
	}
	return a, b
}
