package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"roadrich/internal/core"
	applog "roadrich/internal/log"
	"roadrich/internal/storage"
)

const minPasswordLength = 6

// AuthService signs users up and in and owns their profile.
type AuthService struct {
	users    storage.UserStore
	profiles storage.ProfileStore
	cost     int
}

func NewAuthService(users storage.UserStore, profiles storage.ProfileStore) *AuthService {
	return &AuthService{users: users, profiles: profiles, cost: bcrypt.DefaultCost}
}

// WithHashCost overrides the bcrypt cost. Tests use bcrypt.MinCost.
func (s *AuthService) WithHashCost(cost int) *AuthService {
	s.cost = cost
	return s
}

func (s *AuthService) SignUp(ctx context.Context, email, password string) (core.User, error) {
	email = strings.TrimSpace(email)
	if err := core.ValidateEmail(email); err != nil {
		return core.User{}, err
	}
	if len(password) < minPasswordLength {
		return core.User{}, ErrWeakPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return core.User{}, fmt.Errorf("hash password: %w", err)
	}

	u, err := s.users.CreateUser(ctx, core.User{Email: email, PasswordHash: string(hash)})
	if err != nil {
		return core.User{}, fmt.Errorf("sign up: %w", err)
	}
	slog.InfoContext(ctx, "User signed up", applog.FieldComponent, applog.ComponentAuth, applog.FieldUserID, u.ID)
	return u, nil
}

// SignIn checks the credentials and returns the user with their profile,
// which is nil until onboarding is complete.
func (s *AuthService) SignIn(ctx context.Context, email, password string) (core.User, *core.Profile, error) {
	u, err := s.users.UserByEmail(ctx, email)
	if errors.Is(err, storage.ErrNotFound) {
		return core.User{}, nil, ErrInvalidCredentials
	}
	if err != nil {
		return core.User{}, nil, fmt.Errorf("sign in: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		slog.WarnContext(ctx, "Sign in rejected", applog.FieldComponent, applog.ComponentAuth, applog.FieldUserID, u.ID)
		return core.User{}, nil, ErrInvalidCredentials
	}

	p, err := s.Profile(ctx, u.ID)
	if err != nil {
		return core.User{}, nil, err
	}
	return u, p, nil
}

// User loads a user by ID.
func (s *AuthService) User(ctx context.Context, id string) (core.User, error) {
	u, err := s.users.UserByID(ctx, id)
	if err != nil {
		return core.User{}, fmt.Errorf("load user: %w", err)
	}
	return u, nil
}

// Profile returns nil without error when the user has no profile yet.
func (s *AuthService) Profile(ctx context.Context, userID string) (*core.Profile, error) {
	p, err := s.profiles.Profile(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}
	return &p, nil
}

// SaveProfile validates and stores the onboarding answers.
func (s *AuthService) SaveProfile(ctx context.Context, p core.Profile) (*core.Profile, error) {
	p.FirstName = strings.TrimSpace(p.FirstName)
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if err := s.profiles.SaveProfile(ctx, p); err != nil {
		return nil, fmt.Errorf("save profile: %w", err)
	}
	slog.InfoContext(ctx, "Profile saved", "user_id", p.UserID, "monthly_income_cents", p.MonthlyIncome.Cents)
	return &p, nil
}
