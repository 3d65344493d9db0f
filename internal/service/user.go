package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/riskinn/riskinn-api/internal/apperror"
	"github.com/riskinn/riskinn-api/internal/auth"
	"github.com/riskinn/riskinn-api/internal/model"
	"github.com/riskinn/riskinn-api/internal/repository"
)

// UserService manages account profiles for already-authenticated users.
// Authentication itself lives in AuthService; this is the "my account"
// surface behind the token middleware.
type UserService struct {
	users             repository.UserRepository
	passwords         *auth.PasswordService
	passwordMinLength int
	logger            *slog.Logger
}

func NewUserService(users repository.UserRepository, passwords *auth.PasswordService, passwordMinLength int, logger *slog.Logger) *UserService {
	if passwordMinLength <= 0 {
		passwordMinLength = 6
	}
	return &UserService{
		users:             users,
		passwords:         passwords,
		passwordMinLength: passwordMinLength,
		logger:            logger,
	}
}

// ProfileUpdate carries the fields a user may change on their own account.
// Nil pointers mean "leave unchanged"; the zero value of the pointed-to
// type is a valid new value (e.g. clearing the bio).
type ProfileUpdate struct {
	Name       *string
	AvatarURL  *string
	Profile    *model.Profile
	SendOffers *bool
	// Password changes require the current password unless the account
	// has none (Google-created accounts setting one for the first time).
	CurrentPassword string
	NewPassword     string
}

// UpdateProfile applies the changes to the given user's account and returns
// the fresh state. Role, email and verification status are not reachable
// from here.
func (s *UserService) UpdateProfile(ctx context.Context, userID string, upd ProfileUpdate) (*model.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service/user: fetching user %s: %w", userID, err)
	}

	if upd.Name != nil {
		name := strings.TrimSpace(*upd.Name)
		if name == "" {
			return nil, apperror.ValidationFailed("name", "Name is required")
		}
		user.Name = name
	}
	if upd.AvatarURL != nil {
		user.AvatarURL = strings.TrimSpace(*upd.AvatarURL)
	}
	if upd.Profile != nil {
		user.Profile = *upd.Profile
	}
	if upd.SendOffers != nil {
		user.SendOffers = *upd.SendOffers
	}

	if upd.NewPassword != "" {
		if err := s.applyPasswordChange(ctx, user, upd); err != nil {
			return nil, err
		}
	}

	if err := s.users.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("service/user: saving profile for %s: %w", userID, err)
	}

	s.logger.Info("profile updated", slog.String("userID", user.ID))
	return user, nil
}

func (s *UserService) applyPasswordChange(ctx context.Context, user *model.User, upd ProfileUpdate) error {
	if len(upd.NewPassword) < s.passwordMinLength {
		return apperror.ValidationFailed("newPassword",
			fmt.Sprintf("Password must be %d or more characters", s.passwordMinLength))
	}

	// Re-read with the hash: default reads omit credential columns.
	full, err := s.users.FindVerifiedByEmailWithPassword(ctx, user.Email)
	if err != nil {
		return fmt.Errorf("service/user: fetching credentials: %w", err)
	}

	if full.PasswordHash != "" {
		if upd.CurrentPassword == "" {
			return apperror.ValidationFailed("currentPassword", "Current password is required")
		}
		if err := s.passwords.Verify(full.PasswordHash, upd.CurrentPassword); err != nil {
			return apperror.InvalidCredential("Current password is incorrect")
		}
	}

	hash, err := s.passwords.Hash(upd.NewPassword)
	if err != nil {
		return fmt.Errorf("service/user: %w", err)
	}
	user.PasswordHash = hash
	// Backdate a second so tokens minted in the same second as the save
	// are invalidated too.
	user.PasswordChangedAt = time.Now().Add(-time.Second)
	return nil
}
