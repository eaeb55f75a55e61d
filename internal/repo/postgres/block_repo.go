package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// BlockRepo stores directional blocks. A block in either direction removes
// the pair from both users' candidate pools.
type BlockRepo struct {
	pool *pgxpool.Pool
}

func NewBlockRepo(pool *pgxpool.Pool) *BlockRepo {
	return &BlockRepo{pool: pool}
}

func (r *BlockRepo) Upsert(ctx context.Context, actorID, targetID int64) error {
	if actorID <= 0 || targetID <= 0 || actorID == targetID {
		return fmt.Errorf("invalid block payload")
	}
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}

	_, err := r.pool.Exec(ctx, `
INSERT INTO blocks (
	actor_user_id,
	target_user_id,
	created_at
) VALUES ($1, $2, NOW())
ON CONFLICT (actor_user_id, target_user_id) DO NOTHING
`, actorID, targetID)
	if err != nil {
		return fmt.Errorf("upsert block: %w", err)
	}

	return nil
}

func (r *BlockRepo) Exists(ctx context.Context, userID, otherID int64) (bool, error) {
	if userID <= 0 || otherID <= 0 {
		return false, fmt.Errorf("invalid block lookup payload")
	}
	if r.pool == nil {
		return false, nil
	}

	var exists bool
	err := r.pool.QueryRow(ctx, `
SELECT EXISTS (
	SELECT 1
	FROM blocks
	WHERE (actor_user_id = $1 AND target_user_id = $2)
		OR (actor_user_id = $2 AND target_user_id = $1)
)
`, userID, otherID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check block: %w", err)
	}

	return exists, nil
}
