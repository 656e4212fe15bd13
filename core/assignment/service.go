package assignment

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/kelasku/kelasku/core"
	"github.com/kelasku/kelasku/core/user"
)

var (
	// errors
	ErrNotFound           = core.NewNotFoundError("assignment not found")
	ErrSubmissionNotFound = core.NewNotFoundError("submission not found")
	ErrNotAssigned        = core.NewForbiddenError("you do not have access to this assignment")
	ErrDeadlinePassed     = core.NewDeadlineExceededError("the submission deadline has passed")

	errInvalidAssignees = "some user IDs are invalid"

	// mockable in tests
	timeNow = time.Now

	deadlineSoonWindow = 7 * 24 * time.Hour
)

type (
	Repository interface {
		CreateAssignment(ctx context.Context, a Assignment) (Assignment, error)
		QueryAllAssignments(ctx context.Context) ([]Assignment, error)
		QueryAssignmentsByAssignee(ctx context.Context, userID string) ([]Assignment, error)
		// QueryAssignmentsDueBetween returns userID's assignments whose deadline falls
		// within [from, to], ordered soonest first.
		QueryAssignmentsDueBetween(ctx context.Context, userID string, from, to time.Time) ([]Assignment, error)
		GetAssignmentByID(ctx context.Context, id string) (Assignment, error)
		UpdateAssignment(ctx context.Context, a Assignment) (Assignment, error)
		DeleteAssignment(ctx context.Context, id string) error
		// PutSubmission appends sub to the assignment, or replaces the existing
		// submission carrying the same submission ID.
		PutSubmission(ctx context.Context, assignmentID string, sub Submission) (Submission, error)
	}

	ServiceInterface interface {
		Create(ctx context.Context, adminID string, na NewAssignment) (Assignment, error)
		Query(ctx context.Context, requesterID string) ([]Assignment, error)
		GetByID(ctx context.Context, requesterID, id string) (Assignment, error)
		Update(ctx context.Context, adminID, id string, ua UpdateAssignment) (Assignment, error)
		Delete(ctx context.Context, adminID, id string) error
		// CheckSubmission runs the submission gates (membership, deadline) without
		// mutating anything; callers use it before paying for file uploads.
		CheckSubmission(ctx context.Context, assignmentID, userID string) (Assignment, error)
		Submit(ctx context.Context, assignmentID, userID string, ns NewSubmission) (Submission, error)
		SubmitFiles(ctx context.Context, assignmentID, userID, content string, attachments, images []FileRef) (Submission, error)
		Grade(ctx context.Context, adminID, assignmentID, submissionID string, gs GradeSubmission) (Submission, error)
		QuerySubmissions(ctx context.Context, adminID, assignmentID string) ([]Submission, error)
		GetSubmissionDetail(ctx context.Context, adminID, assignmentID, submissionID string) (SubmissionDetail, error)
		QueryDeadlineSoon(ctx context.Context, userID string) ([]Assignment, error)
	}

	service struct {
		repo    Repository
		gate    user.Gate
		mailSvc core.EmailService
	}
)

var _ ServiceInterface = (*service)(nil)

func NewService(repo Repository, gate user.Gate, mailSvc core.EmailService) *service {
	return &service{repo: repo, gate: gate, mailSvc: mailSvc}
}

// validateAssignees rejects the whole list when any single ID does not resolve.
func (svc *service) validateAssignees(ctx context.Context, ids []string) error {
	for _, id := range ids {
		if _, err := svc.gate.Require(ctx, id); err != nil {
			return core.NewValidationError(nil, core.FieldError{Field: "assignedTo", Error: errInvalidAssignees})
		}
	}
	return nil
}

func (svc *service) Create(ctx context.Context, adminID string, na NewAssignment) (Assignment, error) {
	admin, err := svc.gate.RequireAdmin(ctx, adminID)
	if err != nil {
		return Assignment{}, err
	}
	if err := svc.validateAssignees(ctx, na.AssignedTo); err != nil {
		return Assignment{}, err
	}

	assignedTo := na.AssignedTo
	if assignedTo == nil {
		assignedTo = []string{}
	}
	a := Assignment{
		Title:       na.Title,
		Description: na.Description,
		Subject:     na.Subject,
		Day:         na.Day,
		StartTime:   na.StartTime,
		EndTime:     na.EndTime,
		Deadline:    na.Deadline,
		CreatedBy:   admin.ID,
		AssignedTo:  assignedTo,
		Attachments: []FileRef{},
		Images:      []FileRef{},
		Submissions: []Submission{},
		CreatedAt:   timeNow().UTC(),
	}
	return svc.repo.CreateAssignment(ctx, a)
}

func (svc *service) Query(ctx context.Context, requesterID string) ([]Assignment, error) {
	usr, err := svc.gate.Require(ctx, requesterID)
	if err != nil {
		return nil, err
	}
	if usr.IsAdmin() {
		return svc.repo.QueryAllAssignments(ctx)
	}
	return svc.repo.QueryAssignmentsByAssignee(ctx, usr.ID)
}

func (svc *service) GetByID(ctx context.Context, requesterID, id string) (Assignment, error) {
	usr, err := svc.gate.Require(ctx, requesterID)
	if err != nil {
		return Assignment{}, err
	}
	a, err := svc.repo.GetAssignmentByID(ctx, id)
	if err != nil {
		return Assignment{}, err
	}
	if !usr.IsAdmin() && !a.IsAssignedTo(usr.ID) {
		return Assignment{}, ErrNotAssigned
	}
	return a, nil
}

func (svc *service) Update(ctx context.Context, adminID, id string, ua UpdateAssignment) (Assignment, error) {
	if _, err := svc.gate.RequireAdmin(ctx, adminID); err != nil {
		return Assignment{}, err
	}
	if ua.AssignedTo != nil {
		if err := svc.validateAssignees(ctx, ua.AssignedTo); err != nil {
			return Assignment{}, err
		}
	}
	a, err := svc.repo.GetAssignmentByID(ctx, id)
	if err != nil {
		return Assignment{}, err
	}
	return svc.repo.UpdateAssignment(ctx, ua.Apply(a))
}

func (svc *service) Delete(ctx context.Context, adminID, id string) error {
	if _, err := svc.gate.RequireAdmin(ctx, adminID); err != nil {
		return err
	}
	if _, err := svc.repo.GetAssignmentByID(ctx, id); err != nil {
		return err
	}
	return svc.repo.DeleteAssignment(ctx, id)
}

func (svc *service) CheckSubmission(ctx context.Context, assignmentID, userID string) (Assignment, error) {
	usr, err := svc.gate.Require(ctx, userID)
	if err != nil {
		return Assignment{}, err
	}
	a, err := svc.repo.GetAssignmentByID(ctx, assignmentID)
	if err != nil {
		return Assignment{}, err
	}
	if !a.IsAssignedTo(usr.ID) {
		return Assignment{}, ErrNotAssigned
	}
	if a.DeadlinePassed(timeNow()) {
		return Assignment{}, ErrDeadlinePassed
	}
	return a, nil
}

// Submit is the JSON submission path: content and file collections replace any
// previous submission wholesale.
func (svc *service) Submit(ctx context.Context, assignmentID, userID string, ns NewSubmission) (Submission, error) {
	a, err := svc.CheckSubmission(ctx, assignmentID, userID)
	if err != nil {
		return Submission{}, err
	}

	attachments := ns.Attachments
	if attachments == nil {
		attachments = []FileRef{}
	}
	images := ns.Images
	if images == nil {
		images = []FileRef{}
	}

	sub := Submission{
		UserID:      userID,
		Content:     ns.Content,
		Attachments: attachments,
		Images:      images,
		SubmittedAt: timeNow().UTC(),
		Status:      StatusSubmitted,
	}
	if existing, ok := a.FindSubmissionByUser(userID); ok {
		sub.ID = existing.ID
	}
	return svc.repo.PutSubmission(ctx, a.ID, sub)
}

// SubmitFiles is the multipart submission path: newly uploaded files are appended
// to the existing collections and content is only replaced when non-empty.
func (svc *service) SubmitFiles(ctx context.Context, assignmentID, userID, content string, attachments, images []FileRef) (Submission, error) {
	a, err := svc.CheckSubmission(ctx, assignmentID, userID)
	if err != nil {
		return Submission{}, err
	}

	sub := Submission{
		UserID:      userID,
		Content:     content,
		Attachments: attachments,
		Images:      images,
		SubmittedAt: timeNow().UTC(),
		Status:      StatusSubmitted,
	}
	if existing, ok := a.FindSubmissionByUser(userID); ok {
		sub.ID = existing.ID
		if content == "" {
			sub.Content = existing.Content
		}
		sub.Attachments = append(existing.Attachments, attachments...)
		sub.Images = append(existing.Images, images...)
	}
	if sub.Attachments == nil {
		sub.Attachments = []FileRef{}
	}
	if sub.Images == nil {
		sub.Images = []FileRef{}
	}
	return svc.repo.PutSubmission(ctx, a.ID, sub)
}

func (svc *service) Grade(ctx context.Context, adminID, assignmentID, submissionID string, gs GradeSubmission) (Submission, error) {
	if _, err := svc.gate.RequireAdmin(ctx, adminID); err != nil {
		return Submission{}, err
	}
	a, err := svc.repo.GetAssignmentByID(ctx, assignmentID)
	if err != nil {
		return Submission{}, err
	}
	sub, ok := a.FindSubmissionByID(submissionID)
	if !ok {
		return Submission{}, ErrSubmissionNotFound
	}

	grade := gs.Grade
	sub.Grade = &grade
	sub.Feedback = gs.Feedback
	sub.Status = StatusGraded

	sub, err = svc.repo.PutSubmission(ctx, a.ID, sub)
	if err != nil {
		return Submission{}, err
	}

	svc.notifyGraded(ctx, a, sub)
	return sub, nil
}

// notifyGraded emails the submitter; grading never fails on mail problems.
func (svc *service) notifyGraded(ctx context.Context, a Assignment, sub Submission) {
	usr, err := svc.gate.Require(ctx, sub.UserID)
	if err != nil {
		return
	}
	body := fmt.Sprintf(
		"Hi %s,\n\nYour submission for %q has been graded.\n\nGrade: %d/100\nFeedback: %s\n",
		usr.Username, a.Title, *sub.Grade, sub.Feedback,
	)
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:      []mail.Address{{Name: usr.Username, Address: usr.Email}},
		Subject: "Your submission has been graded",
		BodyStr: body,
	})
}

func (svc *service) QuerySubmissions(ctx context.Context, adminID, assignmentID string) ([]Submission, error) {
	if _, err := svc.gate.RequireAdmin(ctx, adminID); err != nil {
		return nil, err
	}
	a, err := svc.repo.GetAssignmentByID(ctx, assignmentID)
	if err != nil {
		return nil, err
	}

	subs := make([]Submission, 0, len(a.Submissions))
	for _, sub := range a.Submissions {
		svc.resolveSubmitter(ctx, &sub)
		subs = append(subs, sub)
	}
	return subs, nil
}

func (svc *service) GetSubmissionDetail(ctx context.Context, adminID, assignmentID, submissionID string) (SubmissionDetail, error) {
	if _, err := svc.gate.RequireAdmin(ctx, adminID); err != nil {
		return SubmissionDetail{}, err
	}
	a, err := svc.repo.GetAssignmentByID(ctx, assignmentID)
	if err != nil {
		return SubmissionDetail{}, err
	}
	sub, ok := a.FindSubmissionByID(submissionID)
	if !ok {
		return SubmissionDetail{}, ErrSubmissionNotFound
	}
	svc.resolveSubmitter(ctx, &sub)

	return SubmissionDetail{
		Submission:            sub,
		AssignmentTitle:       a.Title,
		AssignmentDescription: a.Description,
		Deadline:              a.Deadline,
	}, nil
}

func (svc *service) QueryDeadlineSoon(ctx context.Context, userID string) ([]Assignment, error) {
	usr, err := svc.gate.Require(ctx, userID)
	if err != nil {
		return nil, err
	}
	if usr.IsAdmin() {
		return nil, user.ErrPermissionDenied
	}
	now := timeNow().UTC()
	return svc.repo.QueryAssignmentsDueBetween(ctx, usr.ID, now, now.Add(deadlineSoonWindow))
}

// resolveSubmitter fills in the submitter's username/email; lookup failures leave
// the fields empty rather than failing the read.
func (svc *service) resolveSubmitter(ctx context.Context, sub *Submission) {
	if usr, err := svc.gate.Require(ctx, sub.UserID); err == nil {
		sub.Username = usr.Username
		sub.Email = usr.Email
	}
}
