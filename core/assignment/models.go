package assignment

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/kelasku/kelasku/core"
)

// Submission statuses
const (
	StatusSubmitted = "submitted"
	StatusGraded    = "graded"
)

// FileRef points at a file held by the external media delegate.
type FileRef struct {
	URL          string `json:"url"`
	PublicID     string `json:"publicId"`
	Format       string `json:"format"`
	ResourceType string `json:"resourceType"`
}

// Submission is one user's single authoritative response to an Assignment.
// It only ever exists embedded in its parent assignment.
type Submission struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user"`
	Username    string    `json:"username,omitempty"` // resolved on admin reads, not persisted
	Email       string    `json:"email,omitempty"`    // resolved on admin reads, not persisted
	Content     string    `json:"content"`
	Attachments []FileRef `json:"attachments"`
	Images      []FileRef `json:"images"`
	SubmittedAt time.Time `json:"submittedAt"`
	Status      string    `json:"status"`
	Grade       *int      `json:"grade,omitempty"`
	Feedback    string    `json:"feedback,omitempty"`
}

type Assignment struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Subject     string       `json:"subject"`
	Day         string       `json:"day"`
	StartTime   string       `json:"startTime"`
	EndTime     string       `json:"endTime"`
	Deadline    time.Time    `json:"deadline"`
	CreatedBy   string       `json:"user"` // owning admin; field name kept for the existing client
	AssignedTo  []string     `json:"assignedTo"`
	IsCompleted bool         `json:"isCompleted"`
	Attachments []FileRef    `json:"attachments"` // legacy top-level files, unused by current flows
	Images      []FileRef    `json:"images"`      // legacy top-level files, unused by current flows
	Submissions []Submission `json:"submissions"`
	CreatedAt   time.Time    `json:"createdAt"` // UTC
}

func (a *Assignment) IsAssignedTo(userID string) bool {
	for _, id := range a.AssignedTo {
		if id == userID {
			return true
		}
	}
	return false
}

func (a *Assignment) DeadlinePassed(now time.Time) bool {
	return now.After(a.Deadline)
}

// FindSubmissionByUser returns the at-most-one submission belonging to userID.
func (a *Assignment) FindSubmissionByUser(userID string) (Submission, bool) {
	for _, sub := range a.Submissions {
		if sub.UserID == userID {
			return sub, true
		}
	}
	return Submission{}, false
}

func (a *Assignment) FindSubmissionByID(id string) (Submission, bool) {
	for _, sub := range a.Submissions {
		if sub.ID == id {
			return sub, true
		}
	}
	return Submission{}, false
}

// NewAssignment contains information needed to create a new Assignment.
type NewAssignment struct {
	Title       string    `json:"title" validate:"required"`
	Description string    `json:"description"`
	Subject     string    `json:"subject" validate:"required"`
	Day         string    `json:"day" validate:"required,weekday"`
	StartTime   string    `json:"startTime" validate:"required"`
	EndTime     string    `json:"endTime" validate:"required"`
	Deadline    time.Time `json:"deadline" validate:"required"`
	AssignedTo  []string  `json:"assignedTo"`
}

func (na *NewAssignment) Validate(validate *validator.Validate) error {
	na.Title = core.CleanString(na.Title)
	na.Description = core.CleanString(na.Description)
	na.Subject = core.CleanString(na.Subject)
	return validate.Struct(na)
}

// UpdateAssignment defines what information may be provided to modify an existing
// Assignment. Empty/omitted fields keep their current value; admins cannot clear a
// field to empty through this payload.
type UpdateAssignment struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Subject     string    `json:"subject"`
	Day         string    `json:"day" validate:"omitempty,weekday"`
	StartTime   string    `json:"startTime"`
	EndTime     string    `json:"endTime"`
	Deadline    time.Time `json:"deadline"`
	AssignedTo  []string  `json:"assignedTo"`
}

func (ua *UpdateAssignment) Validate(validate *validator.Validate) error {
	ua.Title = core.CleanString(ua.Title)
	ua.Description = core.CleanString(ua.Description)
	ua.Subject = core.CleanString(ua.Subject)
	return validate.Struct(ua)
}

// Apply overlays the supplied fields onto a and returns the result.
func (ua *UpdateAssignment) Apply(a Assignment) Assignment {
	if ua.Title != "" {
		a.Title = ua.Title
	}
	if ua.Description != "" {
		a.Description = ua.Description
	}
	if ua.Subject != "" {
		a.Subject = ua.Subject
	}
	if ua.Day != "" {
		a.Day = ua.Day
	}
	if ua.StartTime != "" {
		a.StartTime = ua.StartTime
	}
	if ua.EndTime != "" {
		a.EndTime = ua.EndTime
	}
	if !ua.Deadline.IsZero() {
		a.Deadline = ua.Deadline
	}
	if ua.AssignedTo != nil {
		a.AssignedTo = ua.AssignedTo
	}
	return a
}

// NewSubmission is the JSON-path submission payload. File references are supplied
// by the client after uploading through the media API.
type NewSubmission struct {
	Content     string    `json:"content"`
	Attachments []FileRef `json:"attachments"`
	Images      []FileRef `json:"images"`
}

// GradeSubmission contains the grading payload. Bounds are enforced server-side.
type GradeSubmission struct {
	Grade    int    `json:"grade" validate:"min=0,max=100"`
	Feedback string `json:"feedback"`
}

func (gs *GradeSubmission) Validate(validate *validator.Validate) error {
	gs.Feedback = core.CleanString(gs.Feedback)
	return validate.Struct(gs)
}

// SubmissionDetail is the admin view of a single submission with its
// assignment context.
type SubmissionDetail struct {
	Submission            Submission `json:"submission"`
	AssignmentTitle       string     `json:"assignmentTitle"`
	AssignmentDescription string     `json:"assignmentDescription"`
	Deadline              time.Time  `json:"deadline"`
}
