package adminauth

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrUnavailable  = errors.New("admin auth is unavailable")
)

type Config struct {
	Username  string
	Password  string
	JWTSecret string
	AccessTTL time.Duration
}

type Claims struct {
	Username  string
	TokenID   string
	ExpiresAt time.Time
}

type tokenClaims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Service authenticates the moderation API with a single configured admin
// account and short-lived HS256 tokens.
type Service struct {
	cfg Config
	now func() time.Time
}

func NewService(cfg Config) *Service {
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = 15 * time.Minute
	}

	return &Service{
		cfg: cfg,
		now: time.Now,
	}
}

func (s *Service) IsConfigured() bool {
	return s != nil &&
		strings.TrimSpace(s.cfg.Username) != "" &&
		strings.TrimSpace(s.cfg.Password) != "" &&
		strings.TrimSpace(s.cfg.JWTSecret) != ""
}

// Login checks the credentials in constant time and issues an access token.
func (s *Service) Login(username, password string) (string, time.Time, error) {
	if !s.IsConfigured() {
		return "", time.Time{}, ErrUnavailable
	}

	userOK := subtle.ConstantTimeCompare([]byte(strings.TrimSpace(username)), []byte(s.cfg.Username)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(password), []byte(s.cfg.Password)) == 1
	if !userOK || !passOK {
		return "", time.Time{}, ErrUnauthorized
	}

	now := s.now().UTC()
	expiresAt := now.Add(s.cfg.AccessTTL)
	claims := tokenClaims{
		Username: s.cfg.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   s.cfg.Username,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign access token: %w", err)
	}

	return signed, expiresAt, nil
}

func (s *Service) ValidateAccessToken(raw string) (Claims, error) {
	if !s.IsConfigured() {
		return Claims{}, ErrUnavailable
	}
	if strings.TrimSpace(raw) == "" {
		return Claims{}, ErrUnauthorized
	}

	claims := &tokenClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(_ *jwt.Token) (interface{}, error) {
		return []byte(s.cfg.JWTSecret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}), jwt.WithTimeFunc(s.now))
	if err != nil || token == nil || !token.Valid {
		return Claims{}, ErrUnauthorized
	}
	if strings.TrimSpace(claims.Username) == "" || claims.Username != s.cfg.Username {
		return Claims{}, ErrUnauthorized
	}
	if claims.ExpiresAt == nil {
		return Claims{}, ErrUnauthorized
	}

	return Claims{
		Username:  claims.Username,
		TokenID:   claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}
