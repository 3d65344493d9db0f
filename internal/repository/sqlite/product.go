package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"

	"github.com/riskinn/riskinn-api/internal/apperror"
	"github.com/riskinn/riskinn-api/internal/model"
	"github.com/riskinn/riskinn-api/internal/repository"
)

// compile-time check that *DB implements repository.ProductRepository
var _ repository.ProductRepository = (*DB)(nil)

const productColumns = `id, title, slug, product_type, status, is_featured,
	short_description, long_description, image_url, categories, tags, level,
	language, price_current, price_original, price_currency, price_type,
	duration_text, learning_outcomes, rating_average, rating_count,
	total_enrollments, created_at, updated_at`

// CreateProduct inserts a catalog entry. The slug is derived from the title
// when not supplied, matching how the marketing site generates them.
func (db *DB) CreateProduct(ctx context.Context, p *model.Product) error {
	p.ID = xid.New().String()
	now := time.Now()
	p.CreatedAt = now
	p.UpdatedAt = now
	if p.Slug == "" {
		p.Slug = Slugify(p.Title)
	}
	if p.Status == "" {
		p.Status = model.StatusDraft
	}

	categories, err := marshalJSON(p.Categories)
	if err != nil {
		return err
	}
	tags, err := marshalJSON(p.Tags)
	if err != nil {
		return err
	}
	outcomes, err := marshalJSON(p.LearningOutcomes)
	if err != nil {
		return err
	}

	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO products (id, title, slug, product_type, status,
			is_featured, short_description, long_description, image_url,
			categories, tags, level, language, price_current, price_original,
			price_currency, price_type, duration_text, learning_outcomes,
			rating_average, rating_count, total_enrollments, created_at,
			updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Title, p.Slug, p.ProductType, p.Status, p.IsFeatured,
		p.ShortDescription, p.LongDescription, p.ImageURL,
		categories, tags, p.Level, p.Language,
		p.Price.Current, p.Price.Original, p.Price.Currency, p.Price.PriceType,
		p.DurationText, outcomes,
		p.RatingSummary.Average, p.RatingSummary.TotalRatings,
		p.TotalEnrollments, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating product %q: %w", p.Title, err)
	}

	return nil
}

// GetByIDOrSlug retrieves a single published product. Callers pass whatever
// the URL carried — an xid or a slug — and both are matched.
func (db *DB) GetByIDOrSlug(ctx context.Context, idOrSlug string) (*model.Product, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+productColumns+`
		 FROM products
		 WHERE (id = ? OR slug = ?) AND status = ?`,
		idOrSlug, idOrSlug, model.StatusPublished,
	)

	p, err := scanProduct(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("product", idOrSlug)
		}
		return nil, fmt.Errorf("sqlite: getting product %s: %w", idOrSlug, err)
	}
	return p, nil
}

// List returns published products matching the filter, plus the total count
// for pagination.
//
// Category and tag filters match against the JSON-encoded arrays with LIKE
// on the quoted value — crude, but exact enough for quoted JSON strings and
// it keeps the catalog schema document-shaped.
func (db *DB) List(ctx context.Context, filter repository.ProductFilter, opts repository.ListOptions) ([]model.Product, int, error) {
	where := []string{"status = ?"}
	args := []any{model.StatusPublished}

	if filter.Category != "" {
		where = append(where, "categories LIKE ?")
		args = append(args, `%"`+filter.Category+`"%`)
	}
	if filter.Level != "" && filter.Level != "All Levels" {
		where = append(where, "level = ?")
		args = append(args, filter.Level)
	}
	if filter.Tag != "" {
		where = append(where, "tags LIKE ?")
		args = append(args, `%"`+filter.Tag+`"%`)
	}
	if filter.PriceType != "" {
		where = append(where, "price_type = ?")
		args = append(args, filter.PriceType)
	}
	if filter.ProductType != "" {
		where = append(where, "product_type = ?")
		args = append(args, filter.ProductType)
	}
	if filter.Featured {
		where = append(where, "is_featured = 1")
	}
	if filter.Search != "" {
		where = append(where, "title LIKE ?")
		args = append(args, "%"+filter.Search+"%")
	}

	whereClause := strings.Join(where, " AND ")

	var total int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM products WHERE `+whereClause, args...,
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("sqlite: counting products: %w", err)
	}

	var orderBy string
	switch filter.SortBy {
	case "rating":
		orderBy = "rating_average DESC"
	case "price-asc":
		orderBy = "price_original ASC"
	case "price-desc":
		orderBy = "price_original DESC"
	default: // "newest" and everything else
		orderBy = "created_at DESC"
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}
	offset := opts.Offset
	if offset < 0 {
		offset = 0
	}

	args = append(args, limit, offset)
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+productColumns+`
		 FROM products WHERE `+whereClause+`
		 ORDER BY `+orderBy+`
		 LIMIT ? OFFSET ?`,
		args...,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("sqlite: listing products: %w", err)
	}
	defer rows.Close()

	products := make([]model.Product, 0, limit)
	for rows.Next() {
		p, err := scanProduct(rows.Scan)
		if err != nil {
			return nil, 0, fmt.Errorf("sqlite: scanning product row: %w", err)
		}
		products = append(products, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("sqlite: iterating products: %w", err)
	}

	return products, total, nil
}

// scanProduct reads a product row via the given scan function, which lets
// it serve both sql.Row and sql.Rows.
func scanProduct(scan func(...any) error) (*model.Product, error) {
	var p model.Product
	var categories, tags, outcomes string

	err := scan(
		&p.ID, &p.Title, &p.Slug, &p.ProductType, &p.Status, &p.IsFeatured,
		&p.ShortDescription, &p.LongDescription, &p.ImageURL,
		&categories, &tags, &p.Level, &p.Language,
		&p.Price.Current, &p.Price.Original, &p.Price.Currency, &p.Price.PriceType,
		&p.DurationText, &outcomes,
		&p.RatingSummary.Average, &p.RatingSummary.TotalRatings,
		&p.TotalEnrollments, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := unmarshalJSON(categories, &p.Categories); err != nil {
		return nil, err
	}
	if err := unmarshalJSON(tags, &p.Tags); err != nil {
		return nil, err
	}
	if err := unmarshalJSON(outcomes, &p.LearningOutcomes); err != nil {
		return nil, err
	}

	return &p, nil
}

// Slugify lowercases a title and collapses every non-alphanumeric run into
// a single hyphen.
func Slugify(title string) string {
	var b strings.Builder
	lastHyphen := true // suppress a leading hyphen
	for _, r := range strings.ToLower(title) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
