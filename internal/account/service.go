package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/p-n-ai/tsea/internal/progress"
)

// Service implements signup, login and tier changes.
type Service struct {
	store Store
}

// NewService creates an account service over store.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// Signup registers a new Basic-tier user.
func (s *Service) Signup(ctx context.Context, email, name, password string) (User, error) {
	email, err := NormalizeEmail(email)
	if err != nil {
		return User{}, err
	}
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return User{}, &ValidationError{Field: "password", Reason: fmt.Sprintf("must be at least %d characters", MinPasswordLength)}
	}
	if len(password) > MaxPasswordBytes {
		return User{}, &ValidationError{Field: "password", Reason: fmt.Sprintf("must be at most %d bytes", MaxPasswordBytes)}
	}

	u := User{
		ID:        uuid.NewString(),
		Email:     email,
		Name:      strings.TrimSpace(name),
		Tier:      progress.TierBasic,
		CreatedAt: time.Now().UTC(),
	}
	if err := u.SetPassword(password); err != nil {
		return User{}, err
	}
	if err := s.store.Create(ctx, u); err != nil {
		return User{}, err
	}

	slog.Info("user signed up", "user_id", u.ID)
	return u, nil
}

// Login checks credentials. Unknown emails and wrong passwords both return
// ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, email, password string) (User, error) {
	email, err := NormalizeEmail(email)
	if err != nil {
		return User{}, ErrInvalidCredentials
	}

	u, err := s.store.ByEmail(ctx, email)
	if errors.Is(err, ErrUserNotFound) {
		return User{}, ErrInvalidCredentials
	}
	if err != nil {
		return User{}, fmt.Errorf("find user: %w", err)
	}
	if err := u.CheckPassword(password); err != nil {
		return User{}, ErrInvalidCredentials
	}
	return u, nil
}

// User returns a user by id.
func (s *Service) User(ctx context.Context, id string) (User, error) {
	return s.store.ByID(ctx, id)
}

// SetTier changes a user's subscription tier.
func (s *Service) SetTier(ctx context.Context, userID string, tier progress.Tier) error {
	if tier == progress.TierUnknown {
		return &ValidationError{Field: "tier", Reason: "unknown tier"}
	}
	if err := s.store.SetTier(ctx, userID, tier); err != nil {
		return err
	}
	slog.Info("user tier changed", "user_id", userID, "tier", tier)
	return nil
}
