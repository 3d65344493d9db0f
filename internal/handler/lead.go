package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/riskinn/riskinn-api/internal/auth"
	"github.com/riskinn/riskinn-api/internal/model"
	"github.com/riskinn/riskinn-api/internal/service"
)

// LeadHandler serves the contact form, course contact pages and course
// inquiries.
type LeadHandler struct {
	svc    *service.LeadService
	logger *slog.Logger
}

func NewLeadHandler(svc *service.LeadService, logger *slog.Logger) *LeadHandler {
	return &LeadHandler{svc: svc, logger: logger}
}

type contactRequest struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	InquiryType string `json:"inquiryType"`
	Subject     string `json:"subject"`
	Message     string `json:"message"`
}

// HandleContact records a general contact-form message. Open to anonymous
// visitors; a logged-in user's ID is attached when a valid token rode along.
//
// POST /api/v1/contact
func (h *LeadHandler) HandleContact(w http.ResponseWriter, r *http.Request) {
	var req contactRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	sub := &model.ContactSubmission{
		Name:        req.Name,
		Email:       req.Email,
		Phone:       req.Phone,
		InquiryType: req.InquiryType,
		Subject:     req.Subject,
		Message:     req.Message,
	}
	if user, ok := auth.UserFromContext(r.Context()); ok {
		sub.SubmittedBy = user.ID
	}

	saved, err := h.svc.SubmitContact(r.Context(), sub)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, saved)
}

// HandleCreateCourseContact stores a course contact page payload.
//
// POST /api/v1/course-contact
func (h *LeadHandler) HandleCreateCourseContact(w http.ResponseWriter, r *http.Request) {
	var page model.CourseContact
	if err := decodeJSON(r, &page); err != nil {
		writeError(w, err)
		return
	}

	saved, err := h.svc.CreateCourseContact(r.Context(), &page)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, saved)
}

// HandleGetCourseContact serves a course contact page by its key.
//
// GET /api/v1/course-contact/{courseId}
func (h *LeadHandler) HandleGetCourseContact(w http.ResponseWriter, r *http.Request) {
	page, err := h.svc.GetCourseContact(r.Context(), chi.URLParam(r, "courseId"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

type inquiryRequest struct {
	CoursePageID  string                 `json:"courseContactPageId"`
	FormID        string                 `json:"formId"`
	SubmittedData []model.SubmittedField `json:"submittedData"`
}

// HandleSubmitInquiry captures a lead from a course contact page and, when
// the page carries a brochure, triggers the brochure email.
//
// POST /api/v1/course-inquiries
func (h *LeadHandler) HandleSubmitInquiry(w http.ResponseWriter, r *http.Request) {
	var req inquiryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	inquiry := &model.CourseInquiry{
		CoursePageID:  req.CoursePageID,
		FormID:        req.FormID,
		SubmittedData: req.SubmittedData,
	}
	if user, ok := auth.UserFromContext(r.Context()); ok {
		inquiry.UserID = user.ID
	}

	saved, err := h.svc.SubmitInquiry(r.Context(), inquiry)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, saved)
}
