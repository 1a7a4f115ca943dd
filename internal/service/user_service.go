package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"consultdesk/internal/domain"
	"consultdesk/internal/models"

	"github.com/rs/zerolog"
)

type UserService struct {
	users  domain.UserStore
	logger *zerolog.Logger
}

func NewUserService(users domain.UserStore, logger *zerolog.Logger) *UserService {
	return &UserService{users: users, logger: nopIfNil(logger)}
}

// Sync returns the caller's profile, creating it from the identity on first
// sight. Repeated calls never duplicate the row.
func (s *UserService) Sync(ctx context.Context, identity *models.Identity) (*models.User, error) {
	if identity == nil {
		return nil, newError(ErrUnauthorized, "Unauthorized or invalid user")
	}

	user, err := s.users.GetUserByID(ctx, identity.ID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("load user: %w", err)
	}

	created, err := s.users.InsertUserIfNotExists(ctx, &models.User{
		ID:    identity.ID,
		Email: identity.Email,
		Phone: identity.Phone,
	})
	if err != nil {
		return nil, fmt.Errorf("insert user on sync: %w", err)
	}
	if created {
		s.logger.Info().Str("user_id", identity.ID).Msg("user profile created")
	}

	user, err = s.users.GetUserByID(ctx, identity.ID)
	if err != nil {
		return nil, fmt.Errorf("reload user: %w", err)
	}
	return user, nil
}

// Register stores the caller with a phone number unless already present.
// It reports whether a new row was created.
func (s *UserService) Register(ctx context.Context, identity *models.Identity, phone string) (bool, error) {
	if identity == nil {
		return false, newError(ErrUnauthorized, "Unauthorized or invalid user")
	}
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return false, invalid("phone", "Phone number is required")
	}

	created, err := s.users.InsertUserIfNotExists(ctx, &models.User{
		ID:    identity.ID,
		Email: identity.Email,
		Phone: phone,
	})
	if err != nil {
		return false, fmt.Errorf("insert user: %w", err)
	}
	return created, nil
}

func loadProfile(ctx context.Context, users domain.UserStore, identity *models.Identity) (*models.User, error) {
	if identity == nil {
		return nil, newError(ErrUnauthorized, "Unauthorized or invalid user")
	}
	user, err := users.GetUserByID(ctx, identity.ID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, newError(ErrNotFound, "User profile not found")
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	return user, nil
}

// requireAdmin loads the caller's profile and rejects non-admins.
func requireAdmin(ctx context.Context, users domain.UserStore, identity *models.Identity) (*models.User, error) {
	user, err := loadProfile(ctx, users, identity)
	if errors.Is(err, ErrNotFound) {
		return nil, newError(ErrForbidden, "Admin access required")
	}
	if err != nil {
		return nil, err
	}
	if !ScopeFor(identity, user).All {
		return nil, newError(ErrForbidden, "Admin access required")
	}
	return user, nil
}

func nopIfNil(logger *zerolog.Logger) *zerolog.Logger {
	if logger != nil {
		return logger
	}
	nop := zerolog.Nop()
	return &nop
}
