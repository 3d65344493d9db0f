package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/riskinn/riskinn-api/internal/apperror"
	"github.com/riskinn/riskinn-api/internal/model"
	"github.com/riskinn/riskinn-api/internal/repository"
)

const (
	MaxTitleLength   = 200
	DefaultListLimit = 10
	MaxListLimit     = 100
)

// CatalogService handles the course catalog: listing published courses with
// filters and serving individual course pages.
type CatalogService struct {
	repo   repository.ProductRepository
	logger *slog.Logger
}

func NewCatalogService(repo repository.ProductRepository, logger *slog.Logger) *CatalogService {
	return &CatalogService{
		repo:   repo,
		logger: logger,
	}
}

// CourseListing is a page of catalog results plus the pagination envelope
// the frontend renders from.
type CourseListing struct {
	Products   []model.Product `json:"products"`
	Total      int             `json:"total"`
	Page       int             `json:"page"`
	Limit      int             `json:"limit"`
	TotalPages int             `json:"totalPages"`
}

// List returns a filtered, paginated page of published courses.
// Only published items are ever visible through this path; drafts and
// archived courses are filtered at the query level.
func (s *CatalogService) List(ctx context.Context, filter repository.ProductFilter, page, limit int) (*CourseListing, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}

	products, total, err := s.repo.List(ctx, filter, repository.ListOptions{
		Limit:  limit,
		Offset: (page - 1) * limit,
	})
	if err != nil {
		s.logger.Error("failed to list courses", slog.String("error", err.Error()))
		return nil, fmt.Errorf("listing courses: %w", err)
	}

	totalPages := total / limit
	if total%limit != 0 {
		totalPages++
	}

	return &CourseListing{
		Products:   products,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages,
	}, nil
}

// Get retrieves a single published course by internal ID or URL slug.
// Returns apperror.ErrNotFound when no published course matches.
func (s *CatalogService) Get(ctx context.Context, idOrSlug string) (*model.Product, error) {
	idOrSlug = strings.TrimSpace(idOrSlug)
	if idOrSlug == "" {
		return nil, apperror.ValidationFailed("id", "course ID or slug is required")
	}
	return s.repo.GetByIDOrSlug(ctx, idOrSlug)
}

// Create validates and saves a new course. Exposed for seeding and admin
// tooling; the public API surface is read-only.
func (s *CatalogService) Create(ctx context.Context, product *model.Product) (*model.Product, error) {
	product.Title = strings.TrimSpace(product.Title)
	if product.Title == "" {
		return nil, apperror.ValidationFailed("title", "course title is required")
	}
	if len(product.Title) > MaxTitleLength {
		return nil, apperror.ValidationFailed("title",
			fmt.Sprintf("course title must be %d characters or less", MaxTitleLength))
	}
	if product.Status == "" {
		product.Status = model.StatusDraft
	}

	if err := s.repo.CreateProduct(ctx, product); err != nil {
		s.logger.Error("failed to create course",
			slog.String("title", product.Title),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating course: %w", err)
	}

	s.logger.Info("course created",
		slog.String("id", product.ID),
		slog.String("slug", product.Slug),
	)
	return product, nil
}
