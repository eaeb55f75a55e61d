package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Envologia/unimatch-ethio/internal/domain/model"
)

var ErrQuotaLimitReached = errors.New("daily quota limit reached")

// QuotaCategory selects which counter of the daily row an action consumes.
type QuotaCategory string

const (
	QuotaMatch      QuotaCategory = "match"
	QuotaConfession QuotaCategory = "confession"
)

type QuotaRepo struct {
	pool *pgxpool.Pool
}

func NewQuotaRepo(pool *pgxpool.Pool) *QuotaRepo {
	return &QuotaRepo{pool: pool}
}

// ConsumeWithLimit atomically increments the category counter for
// (user, day) unless the ceiling is already reached. The conditional upsert
// keeps concurrent consumers from overshooting: when only one slot remains,
// exactly one of two racing calls gets it.
func (r *QuotaRepo) ConsumeWithLimit(ctx context.Context, tx pgx.Tx, userID int64, dayKey string, category QuotaCategory, limit int) (int, error) {
	column, err := quotaColumn(category)
	if err != nil {
		return 0, err
	}
	if userID <= 0 || strings.TrimSpace(dayKey) == "" || limit <= 0 {
		return 0, fmt.Errorf("invalid quota consume payload")
	}
	if tx == nil {
		return 0, fmt.Errorf("transaction is required")
	}

	initialMatch := 0
	initialConfession := 0
	if category == QuotaMatch {
		initialMatch = 1
	} else {
		initialConfession = 1
	}

	var used int
	err = tx.QueryRow(ctx, `
INSERT INTO daily_quotas (
	user_id,
	day_key,
	match_actions_used,
	confessions_used,
	updated_at
) VALUES ($1, $2::date, $3, $4, NOW())
ON CONFLICT (user_id, day_key) DO UPDATE SET
	`+column+` = daily_quotas.`+column+` + 1,
	updated_at = NOW()
WHERE daily_quotas.`+column+` < $5
RETURNING `+column+`
`, userID, dayKey, initialMatch, initialConfession, limit).Scan(&used)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrQuotaLimitReached
		}
		return 0, fmt.Errorf("consume %s quota: %w", category, err)
	}

	return used, nil
}

// GetUsage reads the current counters without consuming anything. A missing
// row means nothing was used today.
func (r *QuotaRepo) GetUsage(ctx context.Context, userID int64, dayKey string) (model.DailyQuota, error) {
	if userID <= 0 || strings.TrimSpace(dayKey) == "" {
		return model.DailyQuota{}, fmt.Errorf("invalid quota lookup payload")
	}
	if r.pool == nil {
		return model.DailyQuota{UserID: userID, DayKey: dayKey}, nil
	}

	var quota model.DailyQuota
	err := r.pool.QueryRow(ctx, `
SELECT user_id, day_key::text, match_actions_used, confessions_used, updated_at
FROM daily_quotas
WHERE user_id = $1 AND day_key = $2::date
LIMIT 1
`, userID, dayKey).Scan(
		&quota.UserID,
		&quota.DayKey,
		&quota.MatchActionsUsed,
		&quota.ConfessionsUsed,
		&quota.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.DailyQuota{UserID: userID, DayKey: dayKey}, nil
		}
		return model.DailyQuota{}, fmt.Errorf("get daily quota usage: %w", err)
	}

	return quota, nil
}

// DeleteBefore drops quota rows for days older than the cutoff day key.
// Used by the retention cleanup job only.
func (r *QuotaRepo) DeleteBefore(ctx context.Context, cutoffDayKey string) (int64, error) {
	if strings.TrimSpace(cutoffDayKey) == "" {
		return 0, fmt.Errorf("cutoff day key is required")
	}
	if r.pool == nil {
		return 0, fmt.Errorf("postgres pool is nil")
	}

	result, err := r.pool.Exec(ctx, `
DELETE FROM daily_quotas
WHERE day_key < $1::date
`, cutoffDayKey)
	if err != nil {
		return 0, fmt.Errorf("delete old quota rows: %w", err)
	}

	return result.RowsAffected(), nil
}

func quotaColumn(category QuotaCategory) (string, error) {
	switch category {
	case QuotaMatch:
		return "match_actions_used", nil
	case QuotaConfession:
		return "confessions_used", nil
	default:
		return "", fmt.Errorf("unknown quota category %q", category)
	}
}
