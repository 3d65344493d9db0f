// Package repository defines the persistence interfaces the services depend
// on. The sqlite package provides the concrete implementation; tests use
// in-memory fakes.
package repository

import (
	"context"

	"github.com/riskinn/riskinn-api/internal/model"
)

// UserRepository is the credential store.
//
// Secret fields (password hash, OTP pair, reset-token pair) are excluded
// from the plain lookups; only the ...WithPassword / ...WithOTP /
// FindByResetTokenHash methods return them. That makes "which call sites can
// see a secret" explicit in the interface rather than a convention.
//
// The store enforces email uniqueness only among verified accounts: one
// verified row per email, any number of unverified shadow rows.
type UserRepository interface {
	// Create inserts a new account. The repository assigns ID and
	// timestamps.
	Create(ctx context.Context, user *model.User) error
	// Update rewrites an existing account, including its secret pairs
	// (nil pairs clear the stored columns).
	Update(ctx context.Context, user *model.User) error

	FindByID(ctx context.Context, id string) (*model.User, error)
	// FindVerifiedByEmail returns the verified account for an email, or
	// apperror.ErrNotFound.
	FindVerifiedByEmail(ctx context.Context, email string) (*model.User, error)
	// FindUnverifiedByEmail returns the unverified shadow record for an
	// email, without secrets.
	FindUnverifiedByEmail(ctx context.Context, email string) (*model.User, error)

	// FindVerifiedByEmailWithPassword is the login lookup: verified
	// account including its password hash.
	FindVerifiedByEmailWithPassword(ctx context.Context, email string) (*model.User, error)
	// FindUnverifiedByEmailWithOTP is the verification lookup: unverified
	// shadow record including the pending OTP pair.
	FindUnverifiedByEmailWithOTP(ctx context.Context, email string) (*model.User, error)
	// FindByResetTokenHash returns the account whose stored reset-token
	// digest matches, regardless of expiry (the service checks that), with
	// the reset pair populated.
	FindByResetTokenHash(ctx context.Context, digest string) (*model.User, error)
}

// ListOptions is shared pagination state.
type ListOptions struct {
	Limit  int
	Offset int
}

// ProductFilter narrows a catalog listing. Zero values mean "no filter".
type ProductFilter struct {
	Category    string
	Level       string
	Tag         string
	PriceType   string
	ProductType string
	Featured    bool
	Search      string // case-insensitive title match
	SortBy      string // rating | price-asc | price-desc | newest
}

// ProductRepository backs the public catalog. Listing only ever returns
// published products. The create method carries the entity name because the
// sqlite store implements every repository on one receiver.
type ProductRepository interface {
	CreateProduct(ctx context.Context, p *model.Product) error
	GetByIDOrSlug(ctx context.Context, idOrSlug string) (*model.Product, error)
	List(ctx context.Context, filter ProductFilter, opts ListOptions) ([]model.Product, int, error)
}

// LeadRepository persists contact submissions, course contact pages, and
// course inquiries.
type LeadRepository interface {
	CreateContactSubmission(ctx context.Context, s *model.ContactSubmission) error
	CreateCourseContact(ctx context.Context, c *model.CourseContact) error
	GetCourseContact(ctx context.Context, courseID string) (*model.CourseContact, error)
	CreateCourseInquiry(ctx context.Context, q *model.CourseInquiry) error
}
