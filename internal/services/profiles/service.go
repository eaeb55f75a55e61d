package profiles

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Envologia/unimatch-ethio/internal/domain/enums"
	"github.com/Envologia/unimatch-ethio/internal/domain/model"
	"github.com/Envologia/unimatch-ethio/internal/domain/rules"
	pgrepo "github.com/Envologia/unimatch-ethio/internal/repo/postgres"
)

var (
	ErrValidation   = errors.New("validation error")
	ErrAgeRejected  = errors.New("age outside allowed bounds")
	ErrUserNotFound = errors.New("user not found")
)

type Store interface {
	GetByID(ctx context.Context, userID int64) (model.User, error)
	GetByTelegramID(ctx context.Context, telegramID int64) (model.User, error)
	Upsert(ctx context.Context, user model.User) (model.User, error)
	UpdateFields(ctx context.Context, userID int64, patch pgrepo.UserPatch) (model.User, error)
}

// RegisterInput is the full profile as collected by the onboarding dialogue.
type RegisterInput struct {
	TelegramID int64
	Username   string
	Age        int
	Gender     string
	University string
	Bio        string
	Hobbies    string
	PhotoID    string
}

type Config struct {
	MinAge int
	MaxAge int
}

type Service struct {
	store Store
	cfg   Config
}

func NewService(store Store, cfg Config) *Service {
	if cfg.MinAge <= 0 {
		cfg.MinAge = rules.MinAge
	}
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = rules.MaxAge
	}

	return &Service{store: store, cfg: cfg}
}

// Register creates or refreshes the profile behind the telegram identity.
// A re-registration overwrites the previous profile and makes it visible
// again.
func (s *Service) Register(ctx context.Context, in RegisterInput) (model.User, error) {
	if s.store == nil {
		return model.User{}, fmt.Errorf("profile store is nil")
	}

	normalized, err := normalizeAndValidate(in, s.cfg)
	if err != nil {
		return model.User{}, err
	}

	gender, _ := enums.ParseGender(normalized.Gender)
	saved, err := s.store.Upsert(ctx, model.User{
		TelegramID: normalized.TelegramID,
		Username:   normalized.Username,
		Age:        normalized.Age,
		Gender:     gender,
		University: normalized.University,
		Bio:        normalized.Bio,
		Hobbies:    normalized.Hobbies,
		PhotoID:    normalized.PhotoID,
		Visible:    true,
	})
	if err != nil {
		return model.User{}, fmt.Errorf("save profile: %w", err)
	}

	return saved, nil
}

func (s *Service) GetByTelegramID(ctx context.Context, telegramID int64) (model.User, error) {
	if telegramID <= 0 {
		return model.User{}, ErrValidation
	}
	if s.store == nil {
		return model.User{}, fmt.Errorf("profile store is nil")
	}

	user, err := s.store.GetByTelegramID(ctx, telegramID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrUserNotFound) {
			return model.User{}, ErrUserNotFound
		}
		return model.User{}, fmt.Errorf("load profile: %w", err)
	}

	return user, nil
}

func (s *Service) GetByID(ctx context.Context, userID int64) (model.User, error) {
	if userID <= 0 {
		return model.User{}, ErrValidation
	}
	if s.store == nil {
		return model.User{}, fmt.Errorf("profile store is nil")
	}

	user, err := s.store.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrUserNotFound) {
			return model.User{}, ErrUserNotFound
		}
		return model.User{}, fmt.Errorf("load profile: %w", err)
	}

	return user, nil
}

// SetVisibility pauses or resumes the profile in candidate pools.
func (s *Service) SetVisibility(ctx context.Context, userID int64, visible bool) (model.User, error) {
	if userID <= 0 {
		return model.User{}, ErrValidation
	}
	if s.store == nil {
		return model.User{}, fmt.Errorf("profile store is nil")
	}

	user, err := s.store.UpdateFields(ctx, userID, pgrepo.UserPatch{Visible: &visible})
	if err != nil {
		if errors.Is(err, pgrepo.ErrUserNotFound) {
			return model.User{}, ErrUserNotFound
		}
		return model.User{}, fmt.Errorf("update visibility: %w", err)
	}

	return user, nil
}

// UpdatePreferences stores the optional candidate filters. Zero pointers
// leave the stored preference untouched.
func (s *Service) UpdatePreferences(ctx context.Context, userID int64, ageMin, ageMax *int, university *string) (model.User, error) {
	if userID <= 0 {
		return model.User{}, ErrValidation
	}
	if ageMin != nil && !rules.AgeWithinBounds(*ageMin, s.cfg.MinAge, s.cfg.MaxAge) {
		return model.User{}, ErrAgeRejected
	}
	if ageMax != nil && !rules.AgeWithinBounds(*ageMax, s.cfg.MinAge, s.cfg.MaxAge) {
		return model.User{}, ErrAgeRejected
	}
	if ageMin != nil && ageMax != nil && *ageMin > *ageMax {
		return model.User{}, ErrValidation
	}
	if s.store == nil {
		return model.User{}, fmt.Errorf("profile store is nil")
	}

	if university != nil {
		trimmed := strings.TrimSpace(*university)
		university = &trimmed
	}

	user, err := s.store.UpdateFields(ctx, userID, pgrepo.UserPatch{
		PreferredAgeMin:     ageMin,
		PreferredAgeMax:     ageMax,
		PreferredUniversity: university,
	})
	if err != nil {
		if errors.Is(err, pgrepo.ErrUserNotFound) {
			return model.User{}, ErrUserNotFound
		}
		return model.User{}, fmt.Errorf("update preferences: %w", err)
	}

	return user, nil
}

// UpdateField patches one editable profile attribute from the edit dialogue.
func (s *Service) UpdateField(ctx context.Context, userID int64, patch pgrepo.UserPatch) (model.User, error) {
	if userID <= 0 {
		return model.User{}, ErrValidation
	}
	if patch.Age != nil && !rules.AgeWithinBounds(*patch.Age, s.cfg.MinAge, s.cfg.MaxAge) {
		return model.User{}, ErrAgeRejected
	}
	if patch.Gender != nil {
		if _, ok := enums.ParseGender(string(*patch.Gender)); !ok {
			return model.User{}, ErrValidation
		}
	}
	if s.store == nil {
		return model.User{}, fmt.Errorf("profile store is nil")
	}

	user, err := s.store.UpdateFields(ctx, userID, patch)
	if err != nil {
		if errors.Is(err, pgrepo.ErrUserNotFound) {
			return model.User{}, ErrUserNotFound
		}
		return model.User{}, fmt.Errorf("update profile field: %w", err)
	}

	return user, nil
}

func normalizeAndValidate(in RegisterInput, cfg Config) (RegisterInput, error) {
	if in.TelegramID <= 0 {
		return RegisterInput{}, fmt.Errorf("telegram id is required: %w", ErrValidation)
	}
	if !rules.AgeWithinBounds(in.Age, cfg.MinAge, cfg.MaxAge) {
		return RegisterInput{}, ErrAgeRejected
	}

	out := RegisterInput{
		TelegramID: in.TelegramID,
		Username:   strings.TrimSpace(in.Username),
		Age:        in.Age,
		Gender:     strings.ToLower(strings.TrimSpace(in.Gender)),
		University: strings.TrimSpace(in.University),
		Bio:        strings.TrimSpace(in.Bio),
		Hobbies:    strings.TrimSpace(in.Hobbies),
		PhotoID:    strings.TrimSpace(in.PhotoID),
	}

	if _, ok := enums.ParseGender(out.Gender); !ok {
		return RegisterInput{}, fmt.Errorf("unknown gender: %w", ErrValidation)
	}
	if out.University == "" {
		return RegisterInput{}, fmt.Errorf("university is required: %w", ErrValidation)
	}

	return out, nil
}
