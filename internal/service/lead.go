package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/riskinn/riskinn-api/internal/apperror"
	"github.com/riskinn/riskinn-api/internal/email"
	"github.com/riskinn/riskinn-api/internal/model"
	"github.com/riskinn/riskinn-api/internal/repository"
)

const MaxMessageLength = 5000

// LeadService handles inbound interest: the general contact form, course
// contact pages, and the inquiries submitted through them.
//
// An inquiry against a course page that carries a brochure triggers a
// brochure email to the address the visitor supplied. Delivery failure does
// not fail the submission — the lead is already captured, and the sales
// follow-up does not depend on the email landing.
type LeadService struct {
	repo     repository.LeadRepository
	notifier email.Notifier
	logger   *slog.Logger
}

func NewLeadService(repo repository.LeadRepository, notifier email.Notifier, logger *slog.Logger) *LeadService {
	return &LeadService{
		repo:     repo,
		notifier: notifier,
		logger:   logger,
	}
}

// SubmitContact records a general contact-form message.
// submittedBy is the authenticated user's ID when one is logged in, empty
// otherwise; the form itself is open to anonymous visitors.
func (s *LeadService) SubmitContact(ctx context.Context, sub *model.ContactSubmission) (*model.ContactSubmission, error) {
	sub.Name = strings.TrimSpace(sub.Name)
	sub.Email = model.NormalizeEmail(sub.Email)
	sub.Message = strings.TrimSpace(sub.Message)

	if sub.Name == "" {
		return nil, apperror.ValidationFailed("name", "Name is required")
	}
	if !emailPattern.MatchString(sub.Email) {
		return nil, apperror.ValidationFailed("email", "Please include a valid email")
	}
	if sub.Message == "" {
		return nil, apperror.ValidationFailed("message", "Message is required")
	}
	if len(sub.Message) > MaxMessageLength {
		return nil, apperror.ValidationFailed("message",
			fmt.Sprintf("Message must be %d characters or less", MaxMessageLength))
	}

	if err := s.repo.CreateContactSubmission(ctx, sub); err != nil {
		s.logger.Error("failed to save contact submission",
			slog.String("email", sub.Email),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("saving contact submission: %w", err)
	}

	s.logger.Info("contact submission received",
		slog.String("id", sub.ID),
		slog.String("inquiryType", sub.InquiryType),
	)
	return sub, nil
}

// CreateCourseContact stores the marketing payload for a course contact
// page. Fails with a conflict when the page key is already taken.
func (s *LeadService) CreateCourseContact(ctx context.Context, page *model.CourseContact) (*model.CourseContact, error) {
	page.CourseID = strings.TrimSpace(page.CourseID)
	if page.CourseID == "" {
		return nil, apperror.ValidationFailed("courseId", "Course ID is required")
	}
	if strings.TrimSpace(page.CourseTitle) == "" {
		return nil, apperror.ValidationFailed("courseTitle", "Course title is required")
	}

	if err := s.repo.CreateCourseContact(ctx, page); err != nil {
		return nil, err
	}

	s.logger.Info("course contact page created", slog.String("courseId", page.CourseID))
	return page, nil
}

// GetCourseContact serves a course contact page by its key.
func (s *LeadService) GetCourseContact(ctx context.Context, courseID string) (*model.CourseContact, error) {
	courseID = strings.TrimSpace(courseID)
	if courseID == "" {
		return nil, apperror.ValidationFailed("courseId", "Course ID is required")
	}
	return s.repo.GetCourseContact(ctx, courseID)
}

// SubmitInquiry captures a lead from a course contact page.
//
// The inquiry is saved first; only then, if the page has a brochure, the
// brochure email is attempted. Extraction of the recipient is best-effort:
// the dynamic form is free-shaped, so we look for a field named "email".
func (s *LeadService) SubmitInquiry(ctx context.Context, inquiry *model.CourseInquiry) (*model.CourseInquiry, error) {
	inquiry.CoursePageID = strings.TrimSpace(inquiry.CoursePageID)
	if inquiry.CoursePageID == "" {
		return nil, apperror.ValidationFailed("courseContactPageId", "Course page ID is required")
	}
	if len(inquiry.SubmittedData) == 0 {
		return nil, apperror.ValidationFailed("submittedData", "Form data is required")
	}

	page, err := s.repo.GetCourseContact(ctx, inquiry.CoursePageID)
	if err != nil {
		return nil, err
	}

	if err := s.repo.CreateCourseInquiry(ctx, inquiry); err != nil {
		s.logger.Error("failed to save course inquiry",
			slog.String("courseId", inquiry.CoursePageID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("saving course inquiry: %w", err)
	}

	s.logger.Info("course inquiry captured",
		slog.String("id", inquiry.ID),
		slog.String("courseId", inquiry.CoursePageID),
	)

	if page.BrochureURL != "" {
		s.sendBrochure(ctx, page, inquiry)
	}

	return inquiry, nil
}

func (s *LeadService) sendBrochure(ctx context.Context, page *model.CourseContact, inquiry *model.CourseInquiry) {
	to, name := inquiryContact(inquiry)
	if to == "" {
		s.logger.Warn("inquiry has no email field, skipping brochure",
			slog.String("inquiryID", inquiry.ID))
		return
	}

	msg := email.BrochureMessage(to, name, page.CourseTitle, page.BrochureURL)
	if err := s.notifier.Send(ctx, msg); err != nil {
		s.logger.Error("brochure email delivery failed",
			slog.String("inquiryID", inquiry.ID),
			slog.String("error", err.Error()),
		)
	}
}

// inquiryContact pulls the recipient address and, when present, a name out
// of the free-shaped submitted fields.
func inquiryContact(inquiry *model.CourseInquiry) (to, name string) {
	for _, f := range inquiry.SubmittedData {
		switch strings.ToLower(f.FieldName) {
		case "email":
			to = model.NormalizeEmail(f.FieldValue)
		case "name", "fullname", "full_name":
			if name == "" {
				name = strings.TrimSpace(f.FieldValue)
			}
		}
	}
	if !emailPattern.MatchString(to) {
		return "", name
	}
	return to, name
}
