// Package service — authentication business logic.
//
// AuthService is the orchestrator for the credential lifecycle. It sits
// between the HTTP handlers and the repository/auth utilities:
//
//	AuthHandler (HTTP) → AuthService (state machine) → UserRepository (store)
//	                   ↘ TokenService (JWT), PasswordService (bcrypt),
//	                     Notifier (email), GoogleProvider (OAuth)
//
// The flows it owns:
//   - registration → OTP issuance → OTP verification
//   - login
//   - password reset request → token validation → confirm
//   - Google sign-in with account linking
//
// Everything here returns apperror kinds; no HTTP status codes leak in.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/riskinn/riskinn-api/internal/apperror"
	"github.com/riskinn/riskinn-api/internal/auth"
	"github.com/riskinn/riskinn-api/internal/email"
	"github.com/riskinn/riskinn-api/internal/model"
	"github.com/riskinn/riskinn-api/internal/repository"

	"errors"
)

// emailPattern is a permissive shape check. Real validation is the OTP:
// only an address that receives the code can verify.
var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// GoogleExchanger is what the Google flows need from the OAuth provider.
// auth.GoogleProvider implements it; tests substitute a fake.
type GoogleExchanger interface {
	AuthURL() string
	Exchange(ctx context.Context, code string) (*auth.GoogleUser, error)
}

// AuthOptions are the tunables of the credential lifecycle, sourced from
// config at boot.
type AuthOptions struct {
	OTPLength         int
	OTPExpiry         time.Duration
	PasswordMinLength int
	ResetTokenExpiry  time.Duration
	// FrontendURL is the base for the reset link embedded in email.
	FrontendURL string
}

// AuthService implements the credential lifecycle state machine.
type AuthService struct {
	users     repository.UserRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	notifier  email.Notifier
	google    GoogleExchanger // nil when OAuth is not configured
	opts      AuthOptions
	logger    *slog.Logger
}

// NewAuthService creates an AuthService with all required dependencies.
// google may be nil; the Google operations then fail with a configuration
// error.
func NewAuthService(
	users repository.UserRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	notifier email.Notifier,
	google GoogleExchanger,
	opts AuthOptions,
	logger *slog.Logger,
) *AuthService {
	if opts.OTPLength <= 0 {
		opts.OTPLength = 6
	}
	if opts.OTPExpiry <= 0 {
		opts.OTPExpiry = 10 * time.Minute
	}
	if opts.PasswordMinLength <= 0 {
		opts.PasswordMinLength = 6
	}
	if opts.ResetTokenExpiry <= 0 {
		opts.ResetTokenExpiry = 10 * time.Minute
	}
	return &AuthService{
		users:     users,
		tokens:    tokens,
		passwords: passwords,
		notifier:  notifier,
		google:    google,
		opts:      opts,
		logger:    logger,
	}
}

// AuthResult bundles the account and the issued session credential.
type AuthResult struct {
	User  *model.User
	Token string
}

// Register starts the registration flow: persist an unverified account and
// email it an OTP.
//
// Semantics:
//   - A verified account for the email → conflict, always.
//   - An unverified shadow record for the email is overwritten (name,
//     password, OTP) so repeated attempts re-issue a fresh code instead of
//     piling up records.
//   - If the OTP email cannot be delivered, the stored OTP pair is cleared
//     before the error returns — the record (name, password) stays, so a
//     retry starts clean rather than being blocked by an undeliverable code.
//
// Returns the confirmation message for the client. No session credential is
// issued — the user is not authenticated until the OTP is verified.
func (s *AuthService) Register(ctx context.Context, name, emailAddr, password string) (string, error) {
	name = strings.TrimSpace(name)
	emailAddr = model.NormalizeEmail(emailAddr)
	if err := s.validateRegistration(name, emailAddr, password); err != nil {
		return "", err
	}

	if _, err := s.users.FindVerifiedByEmail(ctx, emailAddr); err == nil {
		return "", apperror.Conflict("Email is already registered and verified.")
	} else if !errors.Is(err, apperror.ErrNotFound) {
		return "", fmt.Errorf("service/auth: checking verified account: %w", err)
	}

	otp, err := auth.GenerateOTP(s.opts.OTPLength)
	if err != nil {
		return "", fmt.Errorf("service/auth: %w", err)
	}
	pending := &model.PendingSecret{
		Value:     otp,
		ExpiresAt: time.Now().Add(s.opts.OTPExpiry),
	}

	hash, err := s.passwords.Hash(password)
	if err != nil {
		return "", fmt.Errorf("service/auth: %w", err)
	}

	user, err := s.users.FindUnverifiedByEmail(ctx, emailAddr)
	switch {
	case err == nil:
		// Overwrite the shadow record in place.
		user.Name = name
		user.PasswordHash = hash
		user.Provider = model.ProviderLocal
		user.OTP = pending
		if err := s.users.Update(ctx, user); err != nil {
			return "", fmt.Errorf("service/auth: updating shadow record: %w", err)
		}
	case errors.Is(err, apperror.ErrNotFound):
		user = &model.User{
			Name:         name,
			Email:        emailAddr,
			PasswordHash: hash,
			Provider:     model.ProviderLocal,
			Role:         model.RoleStudent,
			IsVerified:   false,
			OTP:          pending,
		}
		if err := s.users.Create(ctx, user); err != nil {
			return "", fmt.Errorf("service/auth: creating account: %w", err)
		}
	default:
		return "", fmt.Errorf("service/auth: looking up shadow record: %w", err)
	}

	msg := email.OTPMessage(user.Email, otp, s.opts.OTPExpiry)
	if err := s.notifier.Send(ctx, msg); err != nil {
		s.logger.Error("OTP email delivery failed",
			slog.String("email", user.Email),
			slog.String("error", err.Error()),
		)
		// Roll back the pending OTP so the record isn't stuck holding a
		// code nobody received. Name and password stay saved for retry.
		user.OTP = nil
		if saveErr := s.users.Update(ctx, user); saveErr != nil {
			s.logger.Error("failed to clear undelivered OTP",
				slog.String("userID", user.ID),
				slog.String("error", saveErr.Error()),
			)
		}
		return "", apperror.EmailDelivery(err)
	}

	return fmt.Sprintf("OTP sent successfully to %s. Please verify your account.", user.Email), nil
}

// VerifyOTP completes registration: checks the code against the unverified
// shadow record and, on success, flips the account to verified and issues a
// session credential.
//
// A wrong code and an expired code fail identically — the caller learns
// nothing about which it was.
func (s *AuthService) VerifyOTP(ctx context.Context, emailAddr, otp string) (*AuthResult, error) {
	emailAddr = model.NormalizeEmail(emailAddr)
	if !emailPattern.MatchString(emailAddr) {
		return nil, apperror.ValidationFailed("email", "Please include a valid email")
	}
	if otp == "" {
		return nil, apperror.ValidationFailed("otp", "OTP is required")
	}

	user, err := s.users.FindUnverifiedByEmailWithOTP(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, &apperror.AppError{
				Err:     apperror.ErrNotFound,
				Message: "User not found or already verified.",
			}
		}
		return nil, fmt.Errorf("service/auth: looking up unverified account: %w", err)
	}

	now := time.Now()
	if user.OTP == nil || !auth.ConstantTimeEquals(user.OTP.Value, otp) || user.OTP.Expired(now) {
		return nil, apperror.InvalidCredential("Invalid or expired OTP.")
	}

	user.IsVerified = true
	user.OTP = nil // single-use: the pair is cleared atomically
	user.LastLogin = now
	if err := s.users.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("service/auth: marking account verified: %w", err)
	}

	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating token for user %s: %w", user.ID, err)
	}

	s.logger.Info("account verified",
		slog.String("userID", user.ID),
		slog.String("email", user.Email),
	)

	return &AuthResult{User: user, Token: token}, nil
}

// Login authenticates an email/password pair against the verified account.
//
// Failure modes, in order:
//   - verified account with matching password → success
//   - unverified shadow record exists → distinct "verify first" error
//   - anything else → invalid credential, identical for unknown email and
//     wrong password
func (s *AuthService) Login(ctx context.Context, emailAddr, password string) (*AuthResult, error) {
	emailAddr = model.NormalizeEmail(emailAddr)
	if !emailPattern.MatchString(emailAddr) {
		return nil, apperror.ValidationFailed("email", "Please include a valid email")
	}
	if password == "" {
		return nil, apperror.ValidationFailed("password", "Password is required")
	}

	user, err := s.users.FindVerifiedByEmailWithPassword(ctx, emailAddr)
	if err == nil && user.PasswordHash != "" {
		if verifyErr := s.passwords.Verify(user.PasswordHash, password); verifyErr == nil {
			user.LastLogin = time.Now()
			if saveErr := s.users.Update(ctx, user); saveErr != nil {
				s.logger.Warn("failed to record last login",
					slog.String("userID", user.ID),
					slog.String("error", saveErr.Error()),
				)
			}

			token, err := s.tokens.Generate(user.ID)
			if err != nil {
				return nil, fmt.Errorf("service/auth: generating token for user %s: %w", user.ID, err)
			}
			return &AuthResult{User: user, Token: token}, nil
		}
	} else if err != nil && !errors.Is(err, apperror.ErrNotFound) {
		return nil, fmt.Errorf("service/auth: looking up account: %w", err)
	}

	if _, err := s.users.FindUnverifiedByEmail(ctx, emailAddr); err == nil {
		return nil, apperror.Unverified()
	}

	return nil, apperror.InvalidCredential("Invalid email or password")
}

// GetUserByID returns the account for the given internal ID. Used by the
// /auth/me and profile handlers after the middleware validates the token.
func (s *AuthService) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	if id == "" {
		return nil, fmt.Errorf("service/auth: user ID must not be empty")
	}
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/auth: fetching user %s: %w", id, err)
	}
	return user, nil
}

// ForgotPassword starts the reset flow. For an unknown email it returns nil
// — the handler sends the same generic acknowledgement either way, so the
// endpoint cannot be used to probe which emails are registered. The one
// exception is email delivery failure for an existing account, which must
// surface so the user isn't left waiting for a mail that never comes.
func (s *AuthService) ForgotPassword(ctx context.Context, emailAddr string) error {
	emailAddr = model.NormalizeEmail(emailAddr)
	if !emailPattern.MatchString(emailAddr) {
		return apperror.ValidationFailed("email", "Please include a valid email")
	}

	user, err := s.users.FindVerifiedByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil // indistinguishable from success
		}
		return fmt.Errorf("service/auth: looking up account: %w", err)
	}

	plaintext, digest, err := auth.GenerateResetToken()
	if err != nil {
		return fmt.Errorf("service/auth: %w", err)
	}

	user.ResetToken = &model.PendingSecret{
		Value:     digest, // only the hash is stored
		ExpiresAt: time.Now().Add(s.opts.ResetTokenExpiry),
	}
	if err := s.users.Update(ctx, user); err != nil {
		return fmt.Errorf("service/auth: storing reset token: %w", err)
	}

	resetURL := fmt.Sprintf("%s/reset-password/%s",
		strings.TrimSuffix(s.opts.FrontendURL, "/"), plaintext)
	msg := email.ResetMessage(user.Email, resetURL, s.opts.ResetTokenExpiry)
	if err := s.notifier.Send(ctx, msg); err != nil {
		s.logger.Error("reset email delivery failed",
			slog.String("email", user.Email),
			slog.String("error", err.Error()),
		)
		user.ResetToken = nil
		if saveErr := s.users.Update(ctx, user); saveErr != nil {
			s.logger.Error("failed to clear undelivered reset token",
				slog.String("userID", user.ID),
				slog.String("error", saveErr.Error()),
			)
		}
		return apperror.EmailDelivery(err)
	}

	return nil
}

// VerifyResetToken checks whether a reset link is still usable, without
// consuming it. The frontend calls this before rendering the reset form.
func (s *AuthService) VerifyResetToken(ctx context.Context, token string) error {
	_, err := s.lookupResetToken(ctx, token)
	return err
}

// ResetPassword consumes a reset token and sets the new password.
//
// The save refreshes PasswordChangedAt, so every session credential issued
// before this moment is dead (the auth middleware enforces it). No new
// credential is issued — the user logs in again with the new password.
func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if len(newPassword) < s.opts.PasswordMinLength {
		return apperror.ValidationFailed("password",
			fmt.Sprintf("Password must be %d or more characters", s.opts.PasswordMinLength))
	}

	user, err := s.lookupResetToken(ctx, token)
	if err != nil {
		return err
	}

	hash, err := s.passwords.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("service/auth: %w", err)
	}

	user.PasswordHash = hash
	user.ResetToken = nil // single-use
	// Backdate by a second so a credential minted in the same second as
	// the save still compares as issued-before-change.
	user.PasswordChangedAt = time.Now().Add(-time.Second)
	if err := s.users.Update(ctx, user); err != nil {
		return fmt.Errorf("service/auth: saving new password: %w", err)
	}

	s.logger.Info("password reset completed", slog.String("userID", user.ID))
	return nil
}

// lookupResetToken hashes the supplied plaintext and finds the matching,
// unexpired record. No-match and expired collapse into one error.
func (s *AuthService) lookupResetToken(ctx context.Context, token string) (*model.User, error) {
	if token == "" {
		return nil, apperror.InvalidToken()
	}

	user, err := s.users.FindByResetTokenHash(ctx, auth.HashToken(token))
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.InvalidToken()
		}
		return nil, fmt.Errorf("service/auth: looking up reset token: %w", err)
	}
	if user.ResetToken == nil || user.ResetToken.Expired(time.Now()) {
		return nil, apperror.InvalidToken()
	}
	return user, nil
}

// GoogleAuthURL returns the consent-screen URL for the OAuth flow.
func (s *AuthService) GoogleAuthURL() (string, error) {
	if s.google == nil {
		return "", apperror.Configuration("Google OAuth client credentials")
	}
	return s.google.AuthURL(), nil
}

// LoginWithGoogle completes the OAuth callback: exchanges the code, then
// links or creates the account.
//
// Linking rules for an existing account with the same email:
//   - backfill the Google subject id if missing
//   - switch the provider tag from local to google
//   - mark verified — Google already verified the email
//
// Unknown emails get a fresh account: provider google, verified, least
// privileged role, no password.
func (s *AuthService) LoginWithGoogle(ctx context.Context, code string) (*AuthResult, error) {
	if s.google == nil {
		return nil, apperror.Configuration("Google OAuth client credentials")
	}

	gUser, err := s.google.Exchange(ctx, code)
	if err != nil {
		return nil, apperror.ExternalAuth(err)
	}

	now := time.Now()
	user, err := s.findByEmailAnyState(ctx, gUser.Email)
	switch {
	case err == nil:
		if user.GoogleID == "" {
			user.GoogleID = gUser.ID
		}
		if user.Provider == model.ProviderLocal {
			user.Provider = model.ProviderGoogle
		}
		if user.AvatarURL == "" {
			user.AvatarURL = gUser.Picture
		}
		user.IsVerified = true
		user.OTP = nil
		user.LastLogin = now
		if err := s.users.Update(ctx, user); err != nil {
			return nil, fmt.Errorf("service/auth: linking google account: %w", err)
		}
	case errors.Is(err, apperror.ErrNotFound):
		user = &model.User{
			Name:       gUser.Name,
			Email:      gUser.Email,
			AvatarURL:  gUser.Picture,
			Provider:   model.ProviderGoogle,
			GoogleID:   gUser.ID,
			Role:       model.RoleStudent,
			IsVerified: true,
			LastLogin:  now,
		}
		if err := s.users.Create(ctx, user); err != nil {
			return nil, fmt.Errorf("service/auth: creating google account: %w", err)
		}
	default:
		return nil, fmt.Errorf("service/auth: looking up account: %w", err)
	}

	token, err := s.tokens.GenerateForProfile(user)
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating token for user %s: %w", user.ID, err)
	}

	s.logger.Info("user authenticated via Google",
		slog.String("userID", user.ID),
		slog.String("email", user.Email),
	)

	return &AuthResult{User: user, Token: token}, nil
}

// findByEmailAnyState prefers the verified account for an email but falls
// back to an unverified shadow record, which the Google flow promotes.
func (s *AuthService) findByEmailAnyState(ctx context.Context, emailAddr string) (*model.User, error) {
	user, err := s.users.FindVerifiedByEmail(ctx, emailAddr)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, apperror.ErrNotFound) {
		return nil, err
	}
	return s.users.FindUnverifiedByEmail(ctx, emailAddr)
}

func (s *AuthService) validateRegistration(name, emailAddr, password string) error {
	if name == "" {
		return apperror.ValidationFailed("name", "Name is required")
	}
	if !emailPattern.MatchString(emailAddr) {
		return apperror.ValidationFailed("email", "Please include a valid email")
	}
	if len(password) < s.opts.PasswordMinLength {
		return apperror.ValidationFailed("password",
			fmt.Sprintf("Password must be %d or more characters", s.opts.PasswordMinLength))
	}
	return nil
}
