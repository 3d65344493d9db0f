// Package model defines the data structures used throughout the application.
package model

import (
	"strings"
	"time"
)

// Role is the closed set of account roles. Least privilege is the default.
type Role string

const (
	RoleStudent    Role = "student"
	RoleMentor     Role = "mentor"
	RoleInstructor Role = "instructor"
	RoleAdmin      Role = "admin"
	RoleRecruiter  Role = "recruiter"
	RoleSuperAdmin Role = "superadmin"
)

// ValidRole reports whether r is one of the known roles.
func ValidRole(r Role) bool {
	switch r {
	case RoleStudent, RoleMentor, RoleInstructor, RoleAdmin, RoleRecruiter, RoleSuperAdmin:
		return true
	}
	return false
}

// Provider tags how an account authenticates.
type Provider string

const (
	ProviderLocal        Provider = "local"
	ProviderGoogle       Provider = "google"
	ProviderOrganization Provider = "organization"
)

// PendingSecret is a time-boxed secret pair: the value (an OTP code, or a
// reset-token hash) and its expiry. The two fields are set together and
// cleared together — a nil *PendingSecret is the only representation of
// "no secret pending", so the pair can never be half-cleared.
type PendingSecret struct {
	Value     string
	ExpiresAt time.Time
}

// Expired reports whether the secret's expiry has passed. An expired
// secret is invalid, never "unset".
func (s *PendingSecret) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// Profile holds the embedded public-profile fields a user can edit.
type Profile struct {
	Title       string   `json:"title,omitempty"`
	Location    string   `json:"location,omitempty"`
	Bio         string   `json:"bio,omitempty"`
	Credentials []string `json:"credentials,omitempty"`
	Skills      []string `json:"skills,omitempty"`
	LinkedIn    string   `json:"linkedin,omitempty"`
	Twitter     string   `json:"twitter,omitempty"`
	Website     string   `json:"website,omitempty"`
}

// User represents an account. One verified account may exist per email; any
// number of unverified shadow records may precede it, each overwritable by a
// repeated registration attempt until verification succeeds.
//
// PasswordHash is empty for accounts created through Google sign-in that
// never set a password. It is excluded from default repository reads, as are
// OTP and ResetToken — repositories only return them from the ...WithSecrets
// lookups the auth flows use.
type User struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Email        string   `json:"email"`
	PasswordHash string   `json:"-"`
	AvatarURL    string   `json:"avatarUrl,omitempty"`
	Role         Role     `json:"role"`
	Provider     Provider `json:"-"`
	GoogleID     string   `json:"-"`
	IsVerified   bool     `json:"isVerified"`

	// OTP is the pending registration code; ResetToken holds the SHA-256
	// hex digest of an in-flight password-reset token. Both are nil unless
	// the corresponding flow is in progress.
	OTP        *PendingSecret `json:"-"`
	ResetToken *PendingSecret `json:"-"`

	// PasswordChangedAt invalidates session credentials issued before the
	// last password change. Zero when the password has never changed.
	PasswordChangedAt time.Time `json:"-"`
	LastLogin         time.Time `json:"-"`

	Profile    Profile   `json:"profile"`
	SendOffers bool      `json:"sendOffers"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// NormalizeEmail lowercases and trims an email the way every lookup and
// write must before touching the store.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ChangedPasswordAfter reports whether the password changed after the given
// instant (a session credential's issued-at). Credentials issued before the
// last password change must be rejected.
func (u *User) ChangedPasswordAfter(issuedAt time.Time) bool {
	if u.PasswordChangedAt.IsZero() {
		return false
	}
	// Compare at second granularity: JWT iat claims carry Unix seconds.
	return issuedAt.Unix() < u.PasswordChangedAt.Unix()
}
