package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/riskinn/riskinn-api/internal/apperror"
	"github.com/riskinn/riskinn-api/internal/model"
	"github.com/riskinn/riskinn-api/internal/repository"
)

// compile-time check that *DB implements repository.LeadRepository
var _ repository.LeadRepository = (*DB)(nil)

// CreateContactSubmission persists a general contact-form message with the
// default "New" status.
func (db *DB) CreateContactSubmission(ctx context.Context, s *model.ContactSubmission) error {
	s.ID = xid.New().String()
	s.CreatedAt = time.Now()
	if s.Status == "" {
		s.Status = "New"
	}
	s.Email = model.NormalizeEmail(s.Email)

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO contact_submissions (id, name, email, phone, inquiry_type,
			subject, message, status, submitted_by, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.Name, s.Email, s.Phone, s.InquiryType,
		s.Subject, s.Message, s.Status, s.SubmittedBy, s.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating contact submission: %w", err)
	}
	return nil
}

// CreateCourseContact stores a course contact page as a whole JSON document
// keyed by its course id. Duplicate course ids conflict.
func (db *DB) CreateCourseContact(ctx context.Context, c *model.CourseContact) error {
	now := time.Now()
	c.CreatedAt = now
	c.UpdatedAt = now

	payload, err := marshalJSON(c)
	if err != nil {
		return err
	}

	var exists int
	err = db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM course_contacts WHERE course_id = ?`, c.CourseID,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("sqlite: checking course contact %s: %w", c.CourseID, err)
	}
	if exists > 0 {
		return apperror.Conflict(fmt.Sprintf("course contact data with id %q already exists", c.CourseID))
	}

	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO course_contacts (course_id, payload, created_at, updated_at)
		 VALUES (?, ?, ?, ?)`,
		c.CourseID, payload, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating course contact %s: %w", c.CourseID, err)
	}
	return nil
}

// GetCourseContact returns the stored page payload for a course id.
func (db *DB) GetCourseContact(ctx context.Context, courseID string) (*model.CourseContact, error) {
	var payload string
	err := db.conn.QueryRowContext(ctx,
		`SELECT payload FROM course_contacts WHERE course_id = ?`, courseID,
	).Scan(&payload)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("course contact data", courseID)
		}
		return nil, fmt.Errorf("sqlite: getting course contact %s: %w", courseID, err)
	}

	var c model.CourseContact
	if err := unmarshalJSON(payload, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// CreateCourseInquiry persists a captured lead from a course contact page.
func (db *DB) CreateCourseInquiry(ctx context.Context, q *model.CourseInquiry) error {
	q.ID = xid.New().String()
	q.SubmittedAt = time.Now()

	data, err := marshalJSON(q.SubmittedData)
	if err != nil {
		return err
	}

	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO course_inquiries (id, course_page_id, form_id,
			submitted_data, user_id, submitted_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		q.ID, q.CoursePageID, q.FormID, data, q.UserID, q.SubmittedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating course inquiry: %w", err)
	}
	return nil
}
