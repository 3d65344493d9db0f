package handler

import (
	"log/slog"
	"net/http"

	"github.com/riskinn/riskinn-api/internal/auth"
	"github.com/riskinn/riskinn-api/internal/model"
	"github.com/riskinn/riskinn-api/internal/service"
)

// UserHandler is the "my account" surface behind the auth middleware.
type UserHandler struct {
	svc    *service.UserService
	logger *slog.Logger
}

func NewUserHandler(svc *service.UserService, logger *slog.Logger) *UserHandler {
	return &UserHandler{svc: svc, logger: logger}
}

type profileRequest struct {
	Name            *string        `json:"name"`
	AvatarURL       *string        `json:"avatarUrl"`
	Profile         *model.Profile `json:"profile"`
	SendOffers      *bool          `json:"sendOffers"`
	CurrentPassword string         `json:"currentPassword"`
	NewPassword     string         `json:"newPassword"`
}

// HandleGetProfile returns the authenticated user's account.
//
// GET /api/v1/users/me/profile
func (h *UserHandler) HandleGetProfile(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{
			Error:   "unauthorized",
			Message: "Authentication required",
		})
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// HandleUpdateProfile applies profile changes, including an optional
// password change. Absent fields are left untouched.
//
// PUT /api/v1/users/me/profile
func (h *UserHandler) HandleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{
			Error:   "unauthorized",
			Message: "Authentication required",
		})
		return
	}

	var req profileRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	updated, err := h.svc.UpdateProfile(r.Context(), user.ID, service.ProfileUpdate{
		Name:            req.Name,
		AvatarURL:       req.AvatarURL,
		Profile:         req.Profile,
		SendOffers:      req.SendOffers,
		CurrentPassword: req.CurrentPassword,
		NewPassword:     req.NewPassword,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, updated)
}
