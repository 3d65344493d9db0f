// Package auth provides the credential primitives for the Riskinn API:
// JWT session credentials, bcrypt password hashing, OTP and reset-token
// generation, and the Google OAuth provider.
//
// AUTHENTICATION FLOW OVERVIEW:
//  1. POST /auth/register stores an unverified account and emails an OTP
//  2. POST /auth/verify-otp flips the account to verified and issues a JWT
//  3. POST /auth/login verifies the password and issues a JWT
//  4. On protected requests, middleware reads "Authorization: Bearer <jwt>",
//     validates it, loads the account, and rejects tokens issued before the
//     account's last password change
//
// WHY JWT?
// JWT is stateless — the server doesn't store session data. Everything
// needed (user id, expiry, issued-at) is inside the signed token, and the
// HMAC signature ensures nobody can tamper with it without the secret key.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/riskinn/riskinn-api/internal/model"
)

const issuer = "riskinn-api"

// TokenService handles JWT creation and validation.
//
// It holds the HMAC secret key used to sign and verify tokens, plus the
// configured token lifetime. The same secret must be used for both
// operations — keep it safe, rotate it periodically in production.
type TokenService struct {
	secret []byte
	expiry time.Duration
}

// NewTokenService creates a TokenService with the given secret and expiry.
// The secret should be at least 32 bytes of random data in production.
// Example: JWT_SECRET=$(openssl rand -hex 32)
func NewTokenService(secret string, expiry time.Duration) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	if expiry <= 0 {
		return nil, errors.New("auth: JWT expiry must be positive")
	}
	return &TokenService{secret: []byte(secret), expiry: expiry}, nil
}

// Claims is the JWT payload. The account id travels in the standard "sub"
// claim; name, email, role, and avatar are only populated on tokens issued
// by the OAuth callback, where the frontend decodes them for display.
type Claims struct {
	Name      string `json:"name,omitempty"`
	Email     string `json:"email,omitempty"`
	Role      string `json:"role,omitempty"`
	AvatarURL string `json:"avatar,omitempty"`
	jwt.RegisteredClaims
}

// Generate creates and signs a session credential for the given account id.
//
// Signing algorithm: HS256 (HMAC-SHA256) — symmetric, fast, and fine for a
// single shared secret across the deployment.
func (s *TokenService) Generate(userID string) (string, error) {
	return s.sign(Claims{RegisteredClaims: s.registered(userID)})
}

// GenerateForProfile creates a session credential carrying identity claims
// in addition to the subject. Used by the OAuth callback, which hands the
// token to the browser via redirect and has no other channel for profile
// data.
func (s *TokenService) GenerateForProfile(u *model.User) (string, error) {
	return s.sign(Claims{
		Name:             u.Name,
		Email:            u.Email,
		Role:             string(u.Role),
		AvatarURL:        u.AvatarURL,
		RegisteredClaims: s.registered(u.ID),
	})
}

// GenerateWithDuration creates a token with a custom expiry duration.
// Used in tests to mint already-expired or long-lived tokens.
func (s *TokenService) GenerateWithDuration(userID string, d time.Duration) (string, error) {
	now := time.Now()
	c := Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(d)),
		Issuer:    issuer,
	}}
	return s.sign(c)
}

func (s *TokenService) registered(userID string) jwt.RegisteredClaims {
	now := time.Now()
	return jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.expiry)),
		Issuer:    issuer,
	}
}

func (s *TokenService) sign(c Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}
	return signed, nil
}

// Validate parses and verifies a JWT string, returning its claims.
//
// VALIDATION CHECKS (performed by the jwt library):
//   - Signature is valid (wasn't tampered with)
//   - Token is not expired
//   - Issuer matches (prevents tokens from other apps)
//   - Algorithm is HS256 (prevents algorithm confusion attacks)
//
// The caller still has to check the account's PasswordChangedAt against the
// IssuedAt claim — that requires a store read, so it lives in the middleware.
func (s *TokenService) Validate(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&Claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("auth: token expired")
		}
		return nil, fmt.Errorf("auth: invalid token: %w", err)
	}

	c, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("auth: invalid token claims")
	}
	if c.Subject == "" {
		return nil, fmt.Errorf("auth: token has no subject")
	}

	return c, nil
}
