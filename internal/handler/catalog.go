package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/riskinn/riskinn-api/internal/repository"
	"github.com/riskinn/riskinn-api/internal/service"
)

// CatalogHandler serves the public course catalog.
type CatalogHandler struct {
	svc    *service.CatalogService
	logger *slog.Logger
}

func NewCatalogHandler(svc *service.CatalogService, logger *slog.Logger) *CatalogHandler {
	return &CatalogHandler{svc: svc, logger: logger}
}

// HandleList returns a filtered page of published courses.
//
// GET /api/v1/courses?category=&level=&tag=&priceType=&productType=&featured=&search=&sortBy=&page=&limit=
func (h *CatalogHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := repository.ProductFilter{
		Category:    q.Get("category"),
		Level:       q.Get("level"),
		Tag:         q.Get("tag"),
		PriceType:   q.Get("priceType"),
		ProductType: q.Get("productType"),
		Search:      q.Get("search"),
		SortBy:      q.Get("sortBy"),
	}
	if q.Get("featured") == "true" {
		filter.Featured = true
	}

	page := queryInt(q.Get("page"), 1)
	limit := queryInt(q.Get("limit"), service.DefaultListLimit)

	listing, err := h.svc.List(r.Context(), filter, page, limit)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, listing)
}

// HandleGet returns one published course by ID or slug.
//
// GET /api/v1/courses/{idOrSlug}
func (h *CatalogHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	product, err := h.svc.Get(r.Context(), chi.URLParam(r, "idOrSlug"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, product)
}

// queryInt parses a query parameter as a positive int, falling back to def
// on anything unparseable. Bad pagination input is not worth a 400.
func queryInt(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
