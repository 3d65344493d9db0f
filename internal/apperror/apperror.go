package apperror

import (
	"errors"
	"fmt"
)

// Sentinel errors for each failure kind the services can produce.
// Handlers map these to HTTP statuses with errors.Is; services never
// import net/http.
var (
	ErrValidation        = errors.New("validation failed")
	ErrConflict          = errors.New("conflict")
	ErrNotFound          = errors.New("not found")
	ErrInvalidCredential = errors.New("invalid credential")
	ErrUnverified        = errors.New("account not verified")
	ErrInvalidToken      = errors.New("invalid or expired token")
	ErrEmailDelivery     = errors.New("email delivery failed")
	ErrExternalAuth      = errors.New("external authentication failed")
	ErrConfiguration     = errors.New("missing configuration")
	ErrForbidden         = errors.New("forbidden")
)

type AppError struct {
	Err     error  // sentinel kind
	Message string // Human-readable error message
	Field   string // Optional: field causing the error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

func Conflict(message string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: message,
	}
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

// InvalidCredential covers bad passwords, bad OTP codes, and lookups for
// accounts that do not exist. Collapsing these into one kind keeps wrong
// password indistinguishable from unknown email.
func InvalidCredential(message string) *AppError {
	return &AppError{
		Err:     ErrInvalidCredential,
		Message: message,
	}
}

// Unverified signals a login attempt against an account that exists but
// has not completed OTP verification yet.
func Unverified() *AppError {
	return &AppError{
		Err:     ErrUnverified,
		Message: "Account not verified. Please verify your email first.",
	}
}

// InvalidToken covers reset tokens that do not match any record or have
// passed their expiry. Like OTP failures, the two cases are deliberately
// indistinguishable to the caller.
func InvalidToken() *AppError {
	return &AppError{
		Err:     ErrInvalidToken,
		Message: "Invalid or expired token.",
	}
}

func EmailDelivery(err error) *AppError {
	return &AppError{
		Err:     fmt.Errorf("%w: %w", ErrEmailDelivery, err),
		Message: "Email could not be sent. Please try again later.",
	}
}

// ExternalAuth wraps OAuth exchange or verification failures. The message
// is generic on purpose; the underlying provider error stays server-side.
func ExternalAuth(err error) *AppError {
	return &AppError{
		Err:     fmt.Errorf("%w: %w", ErrExternalAuth, err),
		Message: "Failed to authenticate with the external provider.",
	}
}

func Configuration(what string) *AppError {
	return &AppError{
		Err:     ErrConfiguration,
		Message: fmt.Sprintf("server configuration is missing %s", what),
	}
}

// Forbidden returns an AppError indicating the caller lacks permission.
// HTTP handlers map this to 403 Forbidden.
func Forbidden(message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Message: message,
	}
}
