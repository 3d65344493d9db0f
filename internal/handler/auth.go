package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/riskinn/riskinn-api/internal/auth"
	"github.com/riskinn/riskinn-api/internal/model"
	"github.com/riskinn/riskinn-api/internal/service"
)

// AuthHandler exposes the credential lifecycle over HTTP: registration, OTP
// verification, login, the password-reset trio, and the Google OAuth pair.
// All business rules live in service.AuthService; this layer only parses
// requests and shapes responses.
type AuthHandler struct {
	svc *service.AuthService
	// loginRedirectURL is the frontend page the Google callback bounces
	// back to, with the session token (or an error) in the query string.
	loginRedirectURL string
	logger           *slog.Logger
}

func NewAuthHandler(svc *service.AuthService, loginRedirectURL string, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		svc:              svc,
		loginRedirectURL: loginRedirectURL,
		logger:           logger,
	}
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type verifyOTPRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type emailRequest struct {
	Email string `json:"email"`
}

type resetPasswordRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

// sessionResponse is what successful login-like operations return.
type sessionResponse struct {
	Success bool        `json:"success"`
	Token   string      `json:"token"`
	User    *model.User `json:"user"`
}

type messageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// HandleRegister starts registration and triggers the OTP email.
//
// POST /api/v1/auth/register
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	msg, err := h.svc.Register(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Success: true, Message: msg})
}

// HandleVerifyOTP completes registration. Every failure here is a 400: a
// lookup miss, a wrong code and an expired code are all just "that pair
// doesn't verify anything".
//
// POST /api/v1/auth/verify-otp
func (h *AuthHandler) HandleVerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req verifyOTPRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	result, err := h.svc.VerifyOTP(r.Context(), req.Email, req.OTP)
	if err != nil {
		writeErrorBadRequest(w, err)
		return
	}

	writeJSON(w, http.StatusOK, sessionResponse{
		Success: true,
		Token:   result.Token,
		User:    result.User,
	})
}

// HandleLogin authenticates an email/password pair.
//
// POST /api/v1/auth/login
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	result, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, sessionResponse{
		Success: true,
		Token:   result.Token,
		User:    result.User,
	})
}

// HandleMe returns the authenticated user's profile. The auth middleware
// has already validated the token and loaded the account.
//
// GET /api/v1/auth/me
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		// Unreachable behind RequireAuth, kept as a guard.
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{
			Error:   "unauthorized",
			Message: "Authentication required",
		})
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// HandleLogout acknowledges a logout. Sessions are stateless bearer tokens,
// so the client discards the token; there is nothing to revoke server-side.
//
// POST /api/v1/auth/logout
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, messageResponse{Success: true, Message: "Logged out"})
}

// HandleForgotPassword starts the reset flow. The acknowledgement is
// identical whether or not the email exists, so the endpoint cannot be used
// to probe for registered addresses.
//
// POST /api/v1/auth/forgot-password
func (h *AuthHandler) HandleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	if err := h.svc.ForgotPassword(r.Context(), req.Email); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{
		Success: true,
		Message: "If an account with that email exists, a password reset link has been sent.",
	})
}

// HandleVerifyResetToken checks a reset link before the frontend renders
// the new-password form.
//
// GET /api/v1/auth/verify-reset-token/{token}
func (h *AuthHandler) HandleVerifyResetToken(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	if err := h.svc.VerifyResetToken(r.Context(), token); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"valid": true})
}

// HandleResetPassword consumes the reset token and sets the new password.
//
// POST /api/v1/auth/reset-password
func (h *AuthHandler) HandleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	if err := h.svc.ResetPassword(r.Context(), req.Token, req.Password); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{
		Success: true,
		Message: "Password has been reset successfully. Please log in.",
	})
}

// HandleGoogleLogin hands the frontend the consent-screen URL. The frontend
// fetches this and navigates there itself; a server-side redirect would be
// unfollowable from a cross-origin fetch.
//
// GET /api/v1/auth/google
func (h *AuthHandler) HandleGoogleLogin(w http.ResponseWriter, r *http.Request) {
	authURL, err := h.svc.GoogleAuthURL()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"url": authURL})
}

// HandleGoogleCallback completes the OAuth flow. Success and failure both
// end in a redirect to the frontend login page: the token rides in the
// query string on success, an error code on failure. The frontend is a
// separate origin, so a redirect is the only way to hand the result over.
//
// GET /api/v1/auth/google/callback?code=xxx
func (h *AuthHandler) HandleGoogleCallback(w http.ResponseWriter, r *http.Request) {
	if errParam := r.URL.Query().Get("error"); errParam != "" {
		h.logger.Info("google callback: user denied authorization",
			slog.String("error", errParam))
		h.redirectWithError(w, r, "access_denied")
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		h.redirectWithError(w, r, "missing_code")
		return
	}

	result, err := h.svc.LoginWithGoogle(r.Context(), code)
	if err != nil {
		h.logger.Error("google callback: sign-in failed", slog.String("error", err.Error()))
		h.redirectWithError(w, r, "auth_failed")
		return
	}

	http.Redirect(w, r,
		fmt.Sprintf("%s?token=%s", h.loginRedirectURL, url.QueryEscape(result.Token)),
		http.StatusSeeOther)
}

func (h *AuthHandler) redirectWithError(w http.ResponseWriter, r *http.Request, code string) {
	http.Redirect(w, r,
		fmt.Sprintf("%s?error=%s", h.loginRedirectURL, url.QueryEscape(code)),
		http.StatusSeeOther)
}
