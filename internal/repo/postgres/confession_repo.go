package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Envologia/unimatch-ethio/internal/domain/enums"
	"github.com/Envologia/unimatch-ethio/internal/domain/model"
)

var ErrConfessionNotFound = errors.New("confession not found")

type ConfessionRepo struct {
	pool *pgxpool.Pool
}

func NewConfessionRepo(pool *pgxpool.Pool) *ConfessionRepo {
	return &ConfessionRepo{pool: pool}
}

const confessionColumns = `id, author_user_id, content, status, created_at, decided_at`

func (r *ConfessionRepo) Create(ctx context.Context, tx pgx.Tx, authorID int64, content string) (model.Confession, error) {
	if authorID <= 0 || strings.TrimSpace(content) == "" {
		return model.Confession{}, fmt.Errorf("invalid confession payload")
	}
	if tx == nil {
		return model.Confession{}, fmt.Errorf("transaction is required")
	}

	row := tx.QueryRow(ctx, `
INSERT INTO confessions (
	author_user_id,
	content,
	status,
	created_at
) VALUES ($1, $2, 'pending', NOW())
RETURNING `+confessionColumns+`
`, authorID, strings.TrimSpace(content))

	confession, err := scanConfession(row)
	if err != nil {
		return model.Confession{}, fmt.Errorf("create confession: %w", err)
	}
	return confession, nil
}

func (r *ConfessionRepo) GetByID(ctx context.Context, confessionID int64) (model.Confession, error) {
	if confessionID <= 0 {
		return model.Confession{}, fmt.Errorf("invalid confession id")
	}
	if r.pool == nil {
		return model.Confession{}, ErrConfessionNotFound
	}

	row := r.pool.QueryRow(ctx, `
SELECT `+confessionColumns+`
FROM confessions
WHERE id = $1
LIMIT 1
`, confessionID)

	return scanConfession(row)
}

// NextPending returns the oldest undecided confession, the head of the
// moderation queue.
func (r *ConfessionRepo) NextPending(ctx context.Context) (model.Confession, error) {
	if r.pool == nil {
		return model.Confession{}, ErrConfessionNotFound
	}

	row := r.pool.QueryRow(ctx, `
SELECT `+confessionColumns+`
FROM confessions
WHERE status = 'pending'
ORDER BY created_at ASC, id ASC
LIMIT 1
`)

	return scanConfession(row)
}

func (r *ConfessionRepo) CountPending(ctx context.Context) (int, error) {
	if r.pool == nil {
		return 0, nil
	}

	var count int
	err := r.pool.QueryRow(ctx, `
SELECT COUNT(*)
FROM confessions
WHERE status = 'pending'
`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count pending confessions: %w", err)
	}

	return count, nil
}

// Decide moves a pending confession to approved or rejected. A confession
// already decided keeps its first decision; the second call reports
// applied=false and returns the stored row.
func (r *ConfessionRepo) Decide(ctx context.Context, confessionID int64, status enums.ConfessionStatus) (model.Confession, bool, error) {
	if confessionID <= 0 {
		return model.Confession{}, false, fmt.Errorf("invalid confession id")
	}
	if status != enums.ConfessionStatusApproved && status != enums.ConfessionStatusRejected {
		return model.Confession{}, false, fmt.Errorf("invalid confession decision %q", status)
	}
	if r.pool == nil {
		return model.Confession{}, false, fmt.Errorf("postgres pool is nil")
	}

	row := r.pool.QueryRow(ctx, `
UPDATE confessions
SET status = $2, decided_at = NOW()
WHERE id = $1 AND status = 'pending'
RETURNING `+confessionColumns+`
`, confessionID, string(status))

	confession, err := scanConfession(row)
	if err == nil {
		return confession, true, nil
	}
	if !errors.Is(err, ErrConfessionNotFound) {
		return model.Confession{}, false, fmt.Errorf("decide confession: %w", err)
	}

	existing, err := r.GetByID(ctx, confessionID)
	if err != nil {
		return model.Confession{}, false, err
	}
	return existing, false, nil
}

func (r *ConfessionRepo) ListByAuthor(ctx context.Context, authorID int64, limit int) ([]model.Confession, error) {
	if authorID <= 0 {
		return nil, fmt.Errorf("invalid author id")
	}
	return r.list(ctx, `
SELECT `+confessionColumns+`
FROM confessions
WHERE author_user_id = $1
ORDER BY created_at DESC, id DESC
LIMIT $2
`, authorID, limit)
}

func (r *ConfessionRepo) ListApproved(ctx context.Context, limit int) ([]model.Confession, error) {
	return r.list(ctx, `
SELECT `+confessionColumns+`
FROM confessions
WHERE status = 'approved'
ORDER BY decided_at DESC, id DESC
LIMIT $1
`, limit)
}

func (r *ConfessionRepo) list(ctx context.Context, query string, args ...any) ([]model.Confession, error) {
	limit, ok := args[len(args)-1].(int)
	if !ok || limit <= 0 {
		limit = 50
		args[len(args)-1] = limit
	}
	if r.pool == nil {
		return []model.Confession{}, nil
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list confessions: %w", err)
	}
	defer rows.Close()

	confessions := make([]model.Confession, 0, limit)
	for rows.Next() {
		confession, err := scanConfession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan confession: %w", err)
		}
		confessions = append(confessions, confession)
	}

	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate confessions: %w", rows.Err())
	}

	return confessions, nil
}

func scanConfession(row pgx.Row) (model.Confession, error) {
	var confession model.Confession
	var status string
	err := row.Scan(
		&confession.ID,
		&confession.AuthorID,
		&confession.Content,
		&status,
		&confession.CreatedAt,
		&confession.DecidedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Confession{}, ErrConfessionNotFound
		}
		return model.Confession{}, err
	}

	confession.Status, _ = enums.ParseConfessionStatus(status)
	return confession, nil
}
