package model

import "time"

// Product statuses. Only published products are visible on the public API.
const (
	StatusDraft     = "Draft"
	StatusPublished = "Published"
	StatusArchived  = "Archived"
)

// Price describes how a product is sold. Current is a string so the catalog
// can carry "Free" and "Coming Soon" alongside numeric amounts, matching the
// marketing site's data.
type Price struct {
	Current   string  `json:"current"`
	Original  float64 `json:"original,omitempty"`
	Currency  string  `json:"currency"`
	PriceType string  `json:"priceType"` // Free | Paid | Subscription | Upcoming
}

// RatingSummary aggregates review scores for display.
type RatingSummary struct {
	Average      float64 `json:"average"`
	TotalRatings int     `json:"totalRatings"`
}

// Product is a catalog entry: a course, test series, training, or mentorship
// offering.
type Product struct {
	ID               string        `json:"id"`
	Title            string        `json:"title"`
	Slug             string        `json:"slug"`
	ProductType      string        `json:"productType"`
	Status           string        `json:"status"`
	IsFeatured       bool          `json:"isFeatured"`
	ShortDescription string        `json:"shortDescription,omitempty"`
	LongDescription  string        `json:"longDescription,omitempty"`
	ImageURL         string        `json:"imageUrl,omitempty"`
	Categories       []string      `json:"categories,omitempty"`
	Tags             []string      `json:"tags,omitempty"`
	Level            string        `json:"level,omitempty"`
	Language         string        `json:"language,omitempty"`
	Price            Price         `json:"price"`
	DurationText     string        `json:"durationText,omitempty"`
	LearningOutcomes []string      `json:"learningOutcomes,omitempty"`
	RatingSummary    RatingSummary `json:"ratingSummary"`
	TotalEnrollments int           `json:"totalEnrollments"`
	CreatedAt        time.Time     `json:"createdAt"`
	UpdatedAt        time.Time     `json:"updatedAt"`
}
