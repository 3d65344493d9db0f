package model

import "time"

// ContactSubmission is a general contact-form message.
type ContactSubmission struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	Phone       string    `json:"phone,omitempty"`
	InquiryType string    `json:"inquiryType,omitempty"`
	Subject     string    `json:"subject,omitempty"`
	Message     string    `json:"message"`
	Status      string    `json:"status"` // New | Read | Replied | Archived
	SubmittedBy string    `json:"submittedBy,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// KeyHighlight is a headline feature shown on a course contact page.
type KeyHighlight struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Icon        string `json:"icon,omitempty"`
}

// InstructorProfile is the instructor blurb embedded in a course contact page.
type InstructorProfile struct {
	Name      string   `json:"name"`
	Title     string   `json:"title,omitempty"`
	AvatarURL string   `json:"avatarUrl,omitempty"`
	BioPoints []string `json:"bioPoints,omitempty"`
	Quote     string   `json:"quote,omitempty"`
}

// FormField describes one field of the dynamic contact form rendered on a
// course contact page. Kept as loose JSON-friendly data; the backend only
// stores and serves it.
type FormField struct {
	Name        string            `json:"name"`
	Label       string            `json:"label"`
	FieldType   string            `json:"fieldType"`
	InputType   string            `json:"inputType,omitempty"`
	Placeholder string            `json:"placeholder,omitempty"`
	Options     []FormFieldOption `json:"options,omitempty"`
	Rows        int               `json:"rows,omitempty"`
}

type FormFieldOption struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// CourseContact is the marketing payload for one course's contact page,
// keyed by a human-readable course identifier like "ibi-summer-bootcamp".
type CourseContact struct {
	CourseID          string            `json:"courseId"`
	PageTitle         string            `json:"pageTitle"`
	CourseTitle       string            `json:"courseTitle"`
	MentorInfo        string            `json:"mentorInfo,omitempty"`
	BannerTags        []string          `json:"bannerTags,omitempty"`
	ProgramOverview   string            `json:"programOverview"`
	WhoShouldExplore  []string          `json:"whoShouldExplore,omitempty"`
	KeyHighlights     []KeyHighlight    `json:"keyHighlights,omitempty"`
	Instructor        InstructorProfile `json:"instructor"`
	BrochureURL       string            `json:"brochureUrl,omitempty"`
	ContactFormSchema []FormField       `json:"contactFormSchema,omitempty"`
	CreatedAt         time.Time         `json:"createdAt"`
	UpdatedAt         time.Time         `json:"updatedAt"`
}

// SubmittedField is one answered field of a course-inquiry form.
type SubmittedField struct {
	FieldName  string `json:"fieldName"`
	FieldLabel string `json:"fieldLabel"`
	FieldValue string `json:"fieldValue"`
}

// CourseInquiry is a captured lead from a course contact page.
type CourseInquiry struct {
	ID            string           `json:"id"`
	CoursePageID  string           `json:"courseContactPageId"`
	FormID        string           `json:"formId"`
	SubmittedData []SubmittedField `json:"submittedData"`
	UserID        string           `json:"userId,omitempty"`
	SubmittedAt   time.Time        `json:"submittedAt"`
}
