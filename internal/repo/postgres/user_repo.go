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

var ErrUserNotFound = errors.New("user not found")

type UserRepo struct {
	pool *pgxpool.Pool
}

func NewUserRepo(pool *pgxpool.Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

const userColumns = `
	id,
	telegram_id,
	COALESCE(username, ''),
	age,
	gender,
	COALESCE(university, ''),
	COALESCE(bio, ''),
	COALESCE(hobbies, ''),
	COALESCE(photo_id, ''),
	visible,
	preferred_age_min,
	preferred_age_max,
	preferred_university,
	created_at,
	updated_at`

func (r *UserRepo) GetByID(ctx context.Context, userID int64) (model.User, error) {
	if userID <= 0 {
		return model.User{}, fmt.Errorf("invalid user id")
	}
	if r.pool == nil {
		return model.User{}, ErrUserNotFound
	}

	row := r.pool.QueryRow(ctx, `
SELECT `+userColumns+`
FROM users
WHERE id = $1
LIMIT 1
`, userID)

	return scanUser(row)
}

func (r *UserRepo) GetByTelegramID(ctx context.Context, telegramID int64) (model.User, error) {
	if telegramID <= 0 {
		return model.User{}, fmt.Errorf("invalid telegram id")
	}
	if r.pool == nil {
		return model.User{}, ErrUserNotFound
	}

	row := r.pool.QueryRow(ctx, `
SELECT `+userColumns+`
FROM users
WHERE telegram_id = $1
LIMIT 1
`, telegramID)

	return scanUser(row)
}

func (r *UserRepo) Upsert(ctx context.Context, user model.User) (model.User, error) {
	if user.TelegramID <= 0 {
		return model.User{}, fmt.Errorf("invalid user payload")
	}
	if r.pool == nil {
		return model.User{}, fmt.Errorf("postgres pool is nil")
	}

	row := r.pool.QueryRow(ctx, `
INSERT INTO users (
	telegram_id,
	username,
	age,
	gender,
	university,
	bio,
	hobbies,
	photo_id,
	visible,
	preferred_age_min,
	preferred_age_max,
	preferred_university,
	created_at,
	updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW(), NOW())
ON CONFLICT (telegram_id) DO UPDATE SET
	username = EXCLUDED.username,
	age = EXCLUDED.age,
	gender = EXCLUDED.gender,
	university = EXCLUDED.university,
	bio = EXCLUDED.bio,
	hobbies = EXCLUDED.hobbies,
	photo_id = EXCLUDED.photo_id,
	visible = EXCLUDED.visible,
	preferred_age_min = EXCLUDED.preferred_age_min,
	preferred_age_max = EXCLUDED.preferred_age_max,
	preferred_university = EXCLUDED.preferred_university,
	updated_at = NOW()
RETURNING `+userColumns+`
`,
		user.TelegramID,
		strings.TrimSpace(user.Username),
		user.Age,
		string(user.Gender),
		strings.TrimSpace(user.University),
		user.Bio,
		user.Hobbies,
		strings.TrimSpace(user.PhotoID),
		user.Visible,
		user.PreferredAgeMin,
		user.PreferredAgeMax,
		user.PreferredUniversity,
	)

	saved, err := scanUser(row)
	if err != nil {
		return model.User{}, fmt.Errorf("upsert user: %w", err)
	}
	return saved, nil
}

// UpdateFields patches a subset of profile columns. Nil pointers leave the
// stored value untouched.
type UserPatch struct {
	Username            *string
	Age                 *int
	Gender              *enums.Gender
	University          *string
	Bio                 *string
	Hobbies             *string
	PhotoID             *string
	Visible             *bool
	PreferredAgeMin     *int
	PreferredAgeMax     *int
	PreferredUniversity *string
}

func (r *UserRepo) UpdateFields(ctx context.Context, userID int64, patch UserPatch) (model.User, error) {
	if userID <= 0 {
		return model.User{}, fmt.Errorf("invalid user id")
	}
	if r.pool == nil {
		return model.User{}, fmt.Errorf("postgres pool is nil")
	}

	var gender *string
	if patch.Gender != nil {
		value := string(*patch.Gender)
		gender = &value
	}

	row := r.pool.QueryRow(ctx, `
UPDATE users SET
	username = COALESCE($2, username),
	age = COALESCE($3, age),
	gender = COALESCE($4, gender),
	university = COALESCE($5, university),
	bio = COALESCE($6, bio),
	hobbies = COALESCE($7, hobbies),
	photo_id = COALESCE($8, photo_id),
	visible = COALESCE($9, visible),
	preferred_age_min = COALESCE($10, preferred_age_min),
	preferred_age_max = COALESCE($11, preferred_age_max),
	preferred_university = COALESCE($12, preferred_university),
	updated_at = NOW()
WHERE id = $1
RETURNING `+userColumns+`
`,
		userID,
		patch.Username,
		patch.Age,
		gender,
		patch.University,
		patch.Bio,
		patch.Hobbies,
		patch.PhotoID,
		patch.Visible,
		patch.PreferredAgeMin,
		patch.PreferredAgeMax,
		patch.PreferredUniversity,
	)

	updated, err := scanUser(row)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return model.User{}, ErrUserNotFound
		}
		return model.User{}, fmt.Errorf("update user fields: %w", err)
	}
	return updated, nil
}

// CandidateQuery narrows the candidate pool to rows that pass every
// eligibility rule; compatibility ranking happens in the selector service.
type CandidateQuery struct {
	SeekerID            int64
	SeekerGender        enums.Gender
	OppositeGenderOnly  bool
	PreferredAgeMin     *int
	PreferredAgeMax     *int
	PreferredUniversity *string
	Limit               int
}

// QueryCandidates returns visible users the seeker has not acted on in either
// direction, is not actively matched with, and has no block with, in stable
// id order so identical inputs rank identically.
func (r *UserRepo) QueryCandidates(ctx context.Context, q CandidateQuery) ([]model.User, error) {
	if q.SeekerID <= 0 {
		return nil, fmt.Errorf("invalid seeker id")
	}
	if q.Limit <= 0 {
		q.Limit = 200
	}
	if r.pool == nil {
		return []model.User{}, nil
	}

	rows, err := r.pool.Query(ctx, `
SELECT `+userColumns+`
FROM users u
WHERE
	u.id <> $1
	AND u.visible = TRUE
	AND ($2::boolean = FALSE OR u.gender <> $3)
	AND ($4::int IS NULL OR u.age >= $4)
	AND ($5::int IS NULL OR u.age <= $5)
	AND ($6::text IS NULL OR u.university = $6)
	AND NOT EXISTS (
		SELECT 1
		FROM pair_actions pa
		WHERE (pa.actor_user_id = $1 AND pa.target_user_id = u.id)
			OR (pa.actor_user_id = u.id AND pa.target_user_id = $1)
	)
	AND NOT EXISTS (
		SELECT 1
		FROM matches m
		WHERE m.status = 'active'
			AND m.user_a_id = LEAST($1, u.id)
			AND m.user_b_id = GREATEST($1, u.id)
	)
	AND NOT EXISTS (
		SELECT 1
		FROM blocks b
		WHERE (b.actor_user_id = $1 AND b.target_user_id = u.id)
			OR (b.actor_user_id = u.id AND b.target_user_id = $1)
	)
ORDER BY u.id
LIMIT $7
`,
		q.SeekerID,
		q.OppositeGenderOnly,
		string(q.SeekerGender),
		q.PreferredAgeMin,
		q.PreferredAgeMax,
		q.PreferredUniversity,
		q.Limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query candidates: %w", err)
	}
	defer rows.Close()

	users := make([]model.User, 0, q.Limit)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan candidate: %w", err)
		}
		users = append(users, user)
	}

	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate candidates: %w", rows.Err())
	}

	return users, nil
}

func scanUser(row pgx.Row) (model.User, error) {
	var user model.User
	var gender string
	err := row.Scan(
		&user.ID,
		&user.TelegramID,
		&user.Username,
		&user.Age,
		&gender,
		&user.University,
		&user.Bio,
		&user.Hobbies,
		&user.PhotoID,
		&user.Visible,
		&user.PreferredAgeMin,
		&user.PreferredAgeMax,
		&user.PreferredUniversity,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.User{}, ErrUserNotFound
		}
		return model.User{}, err
	}

	user.Gender, _ = enums.ParseGender(gender)
	return user, nil
}
