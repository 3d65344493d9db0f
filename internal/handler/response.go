package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/riskinn/riskinn-api/internal/apperror"
)

// ErrorResponse is the error shape every endpoint returns.
type ErrorResponse struct {
	Error   string `json:"error"`           // machine-readable kind, e.g. "validation_error"
	Message string `json:"message"`         // human-readable description
	Field   string `json:"field,omitempty"` // offending field for validation errors
}

// writeJSON sends a JSON response with the given status code. Headers must
// be set before the first body write, hence the fixed order here.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// writeError maps a domain error to its HTTP status and sends it. The
// service layer returns apperror kinds; this is the single place they
// become status codes.
//
// Unknown errors become a generic 500 — raw error text can carry SQL or
// file paths and never reaches the client.
func writeError(w http.ResponseWriter, err error) {
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "An internal error occurred",
		})
		return
	}

	status := http.StatusInternalServerError
	errorType := "internal_error"

	switch {
	case errors.Is(err, apperror.ErrValidation):
		status = http.StatusBadRequest
		errorType = "validation_error"
	case errors.Is(err, apperror.ErrConflict):
		// Duplicate registration reads as a bad request to the frontend,
		// not a 409.
		status = http.StatusBadRequest
		errorType = "conflict"
	case errors.Is(err, apperror.ErrInvalidToken):
		status = http.StatusBadRequest
		errorType = "invalid_token"
	case errors.Is(err, apperror.ErrInvalidCredential):
		status = http.StatusUnauthorized
		errorType = "invalid_credentials"
	case errors.Is(err, apperror.ErrUnverified):
		status = http.StatusUnauthorized
		errorType = "account_unverified"
	case errors.Is(err, apperror.ErrNotFound):
		status = http.StatusNotFound
		errorType = "not_found"
	case errors.Is(err, apperror.ErrForbidden):
		status = http.StatusForbidden
		errorType = "forbidden"
	case errors.Is(err, apperror.ErrEmailDelivery):
		status = http.StatusInternalServerError
		errorType = "email_delivery_failed"
	case errors.Is(err, apperror.ErrExternalAuth):
		status = http.StatusUnauthorized
		errorType = "external_auth_failed"
	case errors.Is(err, apperror.ErrConfiguration):
		status = http.StatusInternalServerError
		errorType = "not_configured"
	}

	writeJSON(w, status, ErrorResponse{
		Error:   errorType,
		Message: appErr.Message,
		Field:   appErr.Field,
	})
}

// writeErrorBadRequest forces 400 for errors this endpoint treats as client
// mistakes regardless of their kind (e.g. the OTP check, where a lookup
// miss and a wrong code are both just "that pair doesn't verify anything").
func writeErrorBadRequest(w http.ResponseWriter, err error) {
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusBadRequest, ErrorResponse{
		Error:   "verification_failed",
		Message: appErr.Message,
		Field:   appErr.Field,
	})
}

// decodeJSON parses a request body into dst, collapsing malformed JSON
// into a single validation error.
func decodeJSON(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperror.ValidationFailed("body", "Invalid JSON request body")
	}
	return nil
}
