package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/riskinn/riskinn-api/internal/apperror"
	"github.com/riskinn/riskinn-api/internal/model"
)

func TestCreateContactSubmission(t *testing.T) {
	db := newTestDB(t)

	s := &model.ContactSubmission{
		Name:    "Anika Rahman",
		Email:   "  Anika@Example.COM ",
		Message: "Do you offer corporate training?",
	}
	if err := db.CreateContactSubmission(context.Background(), s); err != nil {
		t.Fatalf("CreateContactSubmission() error = %v", err)
	}

	if s.ID == "" {
		t.Error("submission ID not assigned")
	}
	if s.Status != "New" {
		t.Errorf("status = %q, want New", s.Status)
	}
	if s.Email != "anika@example.com" {
		t.Errorf("email not normalized: %q", s.Email)
	}
	if s.CreatedAt.IsZero() {
		t.Error("CreatedAt not set")
	}
}

func TestCourseContact_RoundTrip(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	page := &model.CourseContact{
		CourseID:        "frm-summer-bootcamp",
		PageTitle:       "FRM Summer Bootcamp",
		CourseTitle:     "FRM Part I",
		ProgramOverview: "Eight weeks of intensive prep.",
		BrochureURL:     "https://cdn.example.com/frm-brochure.pdf",
		KeyHighlights: []model.KeyHighlight{
			{Title: "Live classes", Description: "Twice a week"},
		},
		Instructor: model.InstructorProfile{Name: "S. Chowdhury", Title: "FRM"},
		ContactFormSchema: []model.FormField{
			{Name: "email", Label: "Email", FieldType: "input", InputType: "email"},
			{Name: "goal", Label: "Your goal", FieldType: "select", Options: []model.FormFieldOption{
				{Value: "exam", Label: "Pass the exam"},
			}},
		},
	}
	if err := db.CreateCourseContact(ctx, page); err != nil {
		t.Fatalf("CreateCourseContact() error = %v", err)
	}

	got, err := db.GetCourseContact(ctx, "frm-summer-bootcamp")
	if err != nil {
		t.Fatalf("GetCourseContact() error = %v", err)
	}
	if got.PageTitle != page.PageTitle || got.BrochureURL != page.BrochureURL {
		t.Errorf("page = %+v", got)
	}
	if len(got.ContactFormSchema) != 2 {
		t.Fatalf("form schema fields = %d, want 2", len(got.ContactFormSchema))
	}
	if got.ContactFormSchema[1].Options[0].Value != "exam" {
		t.Errorf("select options lost: %+v", got.ContactFormSchema[1])
	}
	if got.Instructor.Name != "S. Chowdhury" {
		t.Errorf("instructor = %+v", got.Instructor)
	}
}

func TestCreateCourseContact_DuplicateConflicts(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	page := &model.CourseContact{CourseID: "ibi-bootcamp", PageTitle: "IBI Bootcamp"}
	if err := db.CreateCourseContact(ctx, page); err != nil {
		t.Fatalf("first create error = %v", err)
	}

	err := db.CreateCourseContact(ctx, &model.CourseContact{CourseID: "ibi-bootcamp"})
	if !errors.Is(err, apperror.ErrConflict) {
		t.Errorf("duplicate err = %v, want conflict", err)
	}
}

func TestGetCourseContact_NotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.GetCourseContact(context.Background(), "nope")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("err = %v, want not found", err)
	}
}

func TestCreateCourseInquiry(t *testing.T) {
	db := newTestDB(t)

	q := &model.CourseInquiry{
		CoursePageID: "frm-summer-bootcamp",
		FormID:       "brochure-form",
		SubmittedData: []model.SubmittedField{
			{FieldName: "email", FieldLabel: "Email", FieldValue: "lead@example.com"},
			{FieldName: "goal", FieldLabel: "Your goal", FieldValue: "exam"},
		},
		UserID: "user-1",
	}
	if err := db.CreateCourseInquiry(context.Background(), q); err != nil {
		t.Fatalf("CreateCourseInquiry() error = %v", err)
	}

	if q.ID == "" {
		t.Error("inquiry ID not assigned")
	}
	if q.SubmittedAt.IsZero() {
		t.Error("SubmittedAt not set")
	}
}
