package apperror

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorsIs(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		target    error
		wantMatch bool
	}{
		{
			name:      "NotFound wraps ErrNotFound",
			err:       NotFound("user", "abc123"),
			target:    ErrNotFound,
			wantMatch: true,
		},
		{
			name:      "ValidationFailed wraps ErrValidation",
			err:       ValidationFailed("name", "Name is required"),
			target:    ErrValidation,
			wantMatch: true,
		},
		{
			name:      "Conflict wraps ErrConflict",
			err:       Conflict("Email is already registered and verified."),
			target:    ErrConflict,
			wantMatch: true,
		},
		{
			name:      "Unverified wraps ErrUnverified",
			err:       Unverified(),
			target:    ErrUnverified,
			wantMatch: true,
		},
		{
			name:      "InvalidToken wraps ErrInvalidToken",
			err:       InvalidToken(),
			target:    ErrInvalidToken,
			wantMatch: true,
		},
		{
			name:      "EmailDelivery wraps ErrEmailDelivery",
			err:       EmailDelivery(errors.New("dial tcp: timeout")),
			target:    ErrEmailDelivery,
			wantMatch: true,
		},
		{
			name:      "EmailDelivery keeps the cause in the chain",
			err:       EmailDelivery(fmt.Errorf("smtp: %w", errors.New("550"))),
			target:    ErrEmailDelivery,
			wantMatch: true,
		},
		{
			name:      "NotFound does NOT match ErrValidation",
			err:       NotFound("user", "abc123"),
			target:    ErrValidation,
			wantMatch: false,
		},
		{
			name:      "InvalidCredential does NOT match ErrInvalidToken",
			err:       InvalidCredential("Invalid email or password"),
			target:    ErrInvalidToken,
			wantMatch: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := errors.Is(tt.err, tt.target)
			if got != tt.wantMatch {
				t.Errorf("errors.Is(%v, %v) = %v, want %v", tt.err, tt.target, got, tt.wantMatch)
			}
		})
	}
}

func TestWrappedServiceError(t *testing.T) {
	// Services wrap repository errors with fmt.Errorf("...: %w", err);
	// errors.Is and errors.As must still see through the extra layer.
	inner := NotFound("user", "abc123")
	wrapped := fmt.Errorf("looking up account: %w", inner)

	if !errors.Is(wrapped, ErrNotFound) {
		t.Error("errors.Is should match ErrNotFound through the wrap")
	}

	var appErr *AppError
	if !errors.As(wrapped, &appErr) {
		t.Fatal("errors.As should extract the *AppError through the wrap")
	}
	if appErr.Message != "user not found with id abc123" {
		t.Errorf("Message = %q", appErr.Message)
	}
}

func TestErrorMessages(t *testing.T) {
	tests := []struct {
		name        string
		err         *AppError
		wantMessage string
	}{
		{
			name:        "NotFound message includes resource and id",
			err:         NotFound("user", "abc123"),
			wantMessage: "user not found with id abc123",
		},
		{
			name:        "ValidationFailed uses custom message",
			err:         ValidationFailed("name", "Name is required"),
			wantMessage: "Name is required",
		},
		{
			name:        "Unverified has the fixed prompt",
			err:         Unverified(),
			wantMessage: "Account not verified. Please verify your email first.",
		},
		{
			name:        "InvalidToken collapses missing and expired",
			err:         InvalidToken(),
			wantMessage: "Invalid or expired token.",
		},
		{
			name:        "EmailDelivery hides the SMTP cause from the client",
			err:         EmailDelivery(errors.New("dial tcp 10.0.0.5:587: timeout")),
			wantMessage: "Email could not be sent. Please try again later.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.wantMessage {
				t.Errorf("Error() = %q, want %q", got, tt.wantMessage)
			}
		})
	}
}

func TestValidationFailedField(t *testing.T) {
	err := ValidationFailed("email", "Please include a valid email")
	if err.Field != "email" {
		t.Errorf("Field = %q, want %q", err.Field, "email")
	}
}
