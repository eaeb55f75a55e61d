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

var ErrPairActionNotFound = errors.New("pair action not found")

// PairActionRepo is the ledger of directional decisions. The unique
// constraint on (actor_user_id, target_user_id) guarantees at most one
// current action per ordered pair; a new decision supersedes the row in
// place.
type PairActionRepo struct {
	pool *pgxpool.Pool
}

func NewPairActionRepo(pool *pgxpool.Pool) *PairActionRepo {
	return &PairActionRepo{pool: pool}
}

// LockPair takes a transaction-scoped advisory lock on the unordered pair.
// Row locks are not enough here: before the first like neither directional
// row exists, so two racing transactions would each insert their own side
// and miss the other's uncommitted reciprocal. The advisory lock covers
// both directions and is keyed canonically, so either ordering of the ids
// contends on the same lock. Released automatically at commit or rollback.
func (r *PairActionRepo) LockPair(ctx context.Context, tx pgx.Tx, userID, otherID int64) error {
	if userID <= 0 || otherID <= 0 || userID == otherID {
		return fmt.Errorf("invalid pair lock payload")
	}
	if tx == nil {
		return fmt.Errorf("transaction is required")
	}

	if _, err := tx.Exec(ctx, `
SELECT pg_advisory_xact_lock(
	hashtextextended(LEAST($1::bigint, $2::bigint)::text || ':' || GREATEST($1::bigint, $2::bigint)::text, 0)
)
`, userID, otherID); err != nil {
		return fmt.Errorf("lock pair: %w", err)
	}

	return nil
}

func (r *PairActionRepo) Upsert(ctx context.Context, tx pgx.Tx, actorID, targetID int64, action enums.PairAction) (model.PairActionRecord, error) {
	if actorID <= 0 || targetID <= 0 || actorID == targetID {
		return model.PairActionRecord{}, fmt.Errorf("invalid pair action payload")
	}
	if tx == nil {
		return model.PairActionRecord{}, fmt.Errorf("transaction is required")
	}

	var rec model.PairActionRecord
	var stored string
	err := tx.QueryRow(ctx, `
INSERT INTO pair_actions (
	actor_user_id,
	target_user_id,
	action,
	created_at,
	updated_at
) VALUES ($1, $2, $3, NOW(), NOW())
ON CONFLICT (actor_user_id, target_user_id) DO UPDATE SET
	action = EXCLUDED.action,
	updated_at = NOW()
RETURNING actor_user_id, target_user_id, action, created_at, updated_at
`, actorID, targetID, string(action)).Scan(
		&rec.ActorID,
		&rec.TargetID,
		&stored,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		return model.PairActionRecord{}, fmt.Errorf("upsert pair action: %w", err)
	}

	rec.Action, _ = enums.ParsePairAction(stored)
	return rec, nil
}

// GetCurrentForUpdate reads the current action for the ordered pair and locks
// the row, serializing concurrent decisions on the same pair.
func (r *PairActionRepo) GetCurrentForUpdate(ctx context.Context, tx pgx.Tx, actorID, targetID int64) (model.PairActionRecord, error) {
	if actorID <= 0 || targetID <= 0 {
		return model.PairActionRecord{}, fmt.Errorf("invalid pair lookup payload")
	}
	if tx == nil {
		return model.PairActionRecord{}, fmt.Errorf("transaction is required")
	}

	var rec model.PairActionRecord
	var stored string
	err := tx.QueryRow(ctx, `
SELECT actor_user_id, target_user_id, action, created_at, updated_at
FROM pair_actions
WHERE actor_user_id = $1 AND target_user_id = $2
FOR UPDATE
`, actorID, targetID).Scan(
		&rec.ActorID,
		&rec.TargetID,
		&stored,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.PairActionRecord{}, ErrPairActionNotFound
		}
		return model.PairActionRecord{}, fmt.Errorf("get current pair action: %w", err)
	}

	rec.Action, _ = enums.ParsePairAction(stored)
	return rec, nil
}

// MarkBothMatched supersedes both directional records of a mutual like.
func (r *PairActionRepo) MarkBothMatched(ctx context.Context, tx pgx.Tx, userID, otherID int64) error {
	return r.markBoth(ctx, tx, userID, otherID, enums.PairActionMatched)
}

// MarkBothUnmatched supersedes both directional records when a match ends.
func (r *PairActionRepo) MarkBothUnmatched(ctx context.Context, tx pgx.Tx, userID, otherID int64) error {
	return r.markBoth(ctx, tx, userID, otherID, enums.PairActionUnmatched)
}

func (r *PairActionRepo) markBoth(ctx context.Context, tx pgx.Tx, userID, otherID int64, action enums.PairAction) error {
	if userID <= 0 || otherID <= 0 || userID == otherID {
		return fmt.Errorf("invalid pair update payload")
	}
	if tx == nil {
		return fmt.Errorf("transaction is required")
	}

	if _, err := tx.Exec(ctx, `
UPDATE pair_actions
SET action = $3, updated_at = NOW()
WHERE (actor_user_id = $1 AND target_user_id = $2)
	OR (actor_user_id = $2 AND target_user_id = $1)
`, userID, otherID, string(action)); err != nil {
		return fmt.Errorf("mark pair actions %s: %w", action, err)
	}

	return nil
}

// DeleteSupersededBefore removes unmatched ledger rows older than the cutoff.
// Used by the retention cleanup job only.
func (r *PairActionRepo) DeleteSupersededBefore(ctx context.Context, cutoff string) (int64, error) {
	if r.pool == nil {
		return 0, fmt.Errorf("postgres pool is nil")
	}

	result, err := r.pool.Exec(ctx, `
DELETE FROM pair_actions
WHERE action = 'unmatched' AND updated_at < $1::timestamptz
`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete superseded pair actions: %w", err)
	}

	return result.RowsAffected(), nil
}
