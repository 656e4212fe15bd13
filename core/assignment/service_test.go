package assignment_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kelasku/kelasku/core"
	"github.com/kelasku/kelasku/core/assignment"
	"github.com/kelasku/kelasku/core/user"
	emailsvc "github.com/kelasku/kelasku/services/email"
	inmemdb "github.com/kelasku/kelasku/storage/database/inmem"
	testutil "github.com/kelasku/kelasku/tests"
)

type fixture struct {
	usrRepo user.Repository
	repo    assignment.Repository
	svc     assignment.ServiceInterface
	admin   user.User
	usr1    user.User
	usr2    user.User
}

func setup(t *testing.T) fixture {
	db := inmemdb.NewDB()
	usrRepo := inmemdb.NewUserRepository(db)
	repo := inmemdb.NewAssignmentRepository(db)
	gate := user.NewGate(usrRepo)
	svc := assignment.NewService(repo, gate, emailsvc.NewConsoleServiceMock(testutil.NewConfig()))

	return fixture{
		usrRepo: usrRepo,
		repo:    repo,
		svc:     svc,
		admin:   testutil.CreateUser(t, usrRepo, "admin", "admin@test.cd", "", user.RoleAdmin),
		usr1:    testutil.CreateUser(t, usrRepo, "awe", "awe@test.cd", "", user.RoleUser),
		usr2:    testutil.CreateUser(t, usrRepo, "king", "king@test.cd", "", user.RoleUser),
	}
}

func newAssignment(deadline time.Time, assignedTo ...string) assignment.NewAssignment {
	return assignment.NewAssignment{
		Title:      "Algebra homework",
		Subject:    "Mathematics",
		Day:        "Monday",
		StartTime:  "08:00",
		EndTime:    "09:30",
		Deadline:   deadline,
		AssignedTo: assignedTo,
	}
}

func Test_service_Create(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	deadline := time.Now().Add(48 * time.Hour).UTC()

	t.Run("admin required", func(t *testing.T) {
		_, err := f.svc.Create(ctx, f.usr1.ID, newAssignment(deadline, f.usr1.ID))
		assert.Equal(t, user.ErrPermissionDenied, err)
	})

	t.Run("missing ID", func(t *testing.T) {
		_, err := f.svc.Create(ctx, "", newAssignment(deadline))
		assert.Equal(t, user.ErrIDRequired, err)
	})

	t.Run("one bad assignee rejects the whole list", func(t *testing.T) {
		_, err := f.svc.Create(ctx, f.admin.ID, newAssignment(deadline, f.usr1.ID, "nope"))
		vErr, ok := err.(*core.ValidationError)
		require.True(t, ok, "want *core.ValidationError, got %v", err)
		assert.Equal(t, "assignedTo", vErr.Fields[0].Field)

		assignments, err := f.repo.QueryAllAssignments(ctx)
		require.NoError(t, err)
		assert.Empty(t, assignments) // nothing persisted
	})

	t.Run("ok", func(t *testing.T) {
		a, err := f.svc.Create(ctx, f.admin.ID, newAssignment(deadline, f.usr1.ID, f.usr2.ID))
		require.NoError(t, err)
		assert.NotEmpty(t, a.ID)
		assert.Equal(t, f.admin.ID, a.CreatedBy)
		assert.Equal(t, []string{f.usr1.ID, f.usr2.ID}, a.AssignedTo)
		assert.NotNil(t, a.Submissions)
	})
}

func Test_service_Query(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	deadline := time.Now().Add(48 * time.Hour)

	a1 := testutil.CreateAssignment(t, f.repo, "A1", f.admin.ID, deadline, f.usr1.ID)
	testutil.CreateAssignment(t, f.repo, "A2", f.admin.ID, deadline, f.usr2.ID)

	t.Run("admin sees all", func(t *testing.T) {
		got, err := f.svc.Query(ctx, f.admin.ID)
		require.NoError(t, err)
		assert.Len(t, got, 2)
	})

	t.Run("user sees only assigned", func(t *testing.T) {
		got, err := f.svc.Query(ctx, f.usr1.ID)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, a1.ID, got[0].ID)
	})

	t.Run("unknown requester", func(t *testing.T) {
		_, err := f.svc.Query(ctx, "nope")
		assert.Equal(t, user.ErrNotFound, err)
	})
}

func Test_service_GetByID(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	a := testutil.CreateAssignment(t, f.repo, "A1", f.admin.ID, time.Now().Add(48*time.Hour), f.usr1.ID)

	tests := []struct {
		name        string
		requesterID string
		id          string
		wantErr     error
	}{
		{name: "admin", requesterID: f.admin.ID, id: a.ID},
		{name: "assignee", requesterID: f.usr1.ID, id: a.ID},
		{name: "non-assignee", requesterID: f.usr2.ID, id: a.ID, wantErr: assignment.ErrNotAssigned},
		{name: "unknown assignment", requesterID: f.admin.ID, id: "nope", wantErr: assignment.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := f.svc.GetByID(ctx, tt.requesterID, tt.id)
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, a.ID, got.ID)
		})
	}
}

func Test_service_Update(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	a := testutil.CreateAssignment(t, f.repo, "A1", f.admin.ID, time.Now().Add(48*time.Hour), f.usr1.ID)

	t.Run("admin required", func(t *testing.T) {
		_, err := f.svc.Update(ctx, f.usr1.ID, a.ID, assignment.UpdateAssignment{Title: "New"})
		assert.Equal(t, user.ErrPermissionDenied, err)
	})

	t.Run("empty fields keep current values", func(t *testing.T) {
		got, err := f.svc.Update(ctx, f.admin.ID, a.ID, assignment.UpdateAssignment{Description: "updated"})
		require.NoError(t, err)
		assert.Equal(t, "A1", got.Title)
		assert.Equal(t, "updated", got.Description)
		assert.Equal(t, a.Subject, got.Subject)
		assert.Equal(t, a.AssignedTo, got.AssignedTo)
	})

	t.Run("assignees replaced when provided", func(t *testing.T) {
		got, err := f.svc.Update(ctx, f.admin.ID, a.ID, assignment.UpdateAssignment{AssignedTo: []string{f.usr2.ID}})
		require.NoError(t, err)
		assert.Equal(t, []string{f.usr2.ID}, got.AssignedTo)
	})

	t.Run("invalid assignees rejected", func(t *testing.T) {
		_, err := f.svc.Update(ctx, f.admin.ID, a.ID, assignment.UpdateAssignment{AssignedTo: []string{"nope"}})
		_, ok := err.(*core.ValidationError)
		assert.True(t, ok, "want *core.ValidationError, got %v", err)
	})
}

func Test_service_Delete(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	a := testutil.CreateAssignment(t, f.repo, "A1", f.admin.ID, time.Now().Add(48*time.Hour), f.usr1.ID)

	assert.Equal(t, user.ErrPermissionDenied, f.svc.Delete(ctx, f.usr1.ID, a.ID))
	assert.Equal(t, assignment.ErrNotFound, f.svc.Delete(ctx, f.admin.ID, "nope"))

	require.NoError(t, f.svc.Delete(ctx, f.admin.ID, a.ID))
	_, err := f.repo.GetAssignmentByID(ctx, a.ID)
	assert.Equal(t, assignment.ErrNotFound, err)
}

func Test_service_Submit(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	a := testutil.CreateAssignment(t, f.repo, "A1", f.admin.ID, time.Now().Add(48*time.Hour), f.usr1.ID)

	t.Run("non-assignee rejected", func(t *testing.T) {
		_, err := f.svc.Submit(ctx, a.ID, f.usr2.ID, assignment.NewSubmission{Content: "hi"})
		assert.Equal(t, assignment.ErrNotAssigned, err)
	})

	t.Run("one submission per user", func(t *testing.T) {
		first, err := f.svc.Submit(ctx, a.ID, f.usr1.ID, assignment.NewSubmission{Content: "first"})
		require.NoError(t, err)
		assert.Equal(t, assignment.StatusSubmitted, first.Status)

		second, err := f.svc.Submit(ctx, a.ID, f.usr1.ID, assignment.NewSubmission{Content: "second"})
		require.NoError(t, err)
		assert.Equal(t, first.ID, second.ID) // replaced, not appended

		refreshed, err := f.repo.GetAssignmentByID(ctx, a.ID)
		require.NoError(t, err)
		require.Len(t, refreshed.Submissions, 1)
		assert.Equal(t, "second", refreshed.Submissions[0].Content)
	})

	t.Run("replaces files wholesale", func(t *testing.T) {
		ref := assignment.FileRef{URL: "https://x/y.pdf", PublicID: "y", Format: "pdf", ResourceType: "raw"}
		sub, err := f.svc.Submit(ctx, a.ID, f.usr1.ID, assignment.NewSubmission{Content: "third", Attachments: []assignment.FileRef{ref}})
		require.NoError(t, err)
		require.Len(t, sub.Attachments, 1)

		sub, err = f.svc.Submit(ctx, a.ID, f.usr1.ID, assignment.NewSubmission{Content: "fourth"})
		require.NoError(t, err)
		assert.Empty(t, sub.Attachments)
	})
}

func Test_service_Submit_deadline(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	deadline := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	a := testutil.CreateAssignment(t, f.repo, "A1", f.admin.ID, deadline, f.usr1.ID)

	restore := assignment.SetTimeNow(func() time.Time { return deadline.Add(time.Minute) })
	defer restore()

	_, err := f.svc.Submit(ctx, a.ID, f.usr1.ID, assignment.NewSubmission{Content: "late"})
	assert.Equal(t, assignment.ErrDeadlinePassed, err)

	// nothing was recorded
	refreshed, err := f.repo.GetAssignmentByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Empty(t, refreshed.Submissions)

	// submitting exactly at the deadline is still allowed
	restore2 := assignment.SetTimeNow(func() time.Time { return deadline })
	defer restore2()
	_, err = f.svc.Submit(ctx, a.ID, f.usr1.ID, assignment.NewSubmission{Content: "on time"})
	assert.NoError(t, err)
}

func Test_service_SubmitFiles(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	a := testutil.CreateAssignment(t, f.repo, "A1", f.admin.ID, time.Now().Add(48*time.Hour), f.usr1.ID)

	ref1 := assignment.FileRef{URL: "https://x/1.pdf", PublicID: "1", Format: "pdf", ResourceType: "raw"}
	ref2 := assignment.FileRef{URL: "https://x/2.png", PublicID: "2", Format: "png", ResourceType: "image"}

	sub, err := f.svc.SubmitFiles(ctx, a.ID, f.usr1.ID, "notes", []assignment.FileRef{ref1}, nil)
	require.NoError(t, err)
	assert.Equal(t, "notes", sub.Content)
	require.Len(t, sub.Attachments, 1)

	// files accumulate; empty content keeps the previous one
	sub, err = f.svc.SubmitFiles(ctx, a.ID, f.usr1.ID, "", nil, []assignment.FileRef{ref2})
	require.NoError(t, err)
	assert.Equal(t, "notes", sub.Content)
	assert.Len(t, sub.Attachments, 1)
	assert.Len(t, sub.Images, 1)

	// non-empty content replaces
	sub, err = f.svc.SubmitFiles(ctx, a.ID, f.usr1.ID, "final notes", []assignment.FileRef{ref1}, nil)
	require.NoError(t, err)
	assert.Equal(t, "final notes", sub.Content)
	assert.Len(t, sub.Attachments, 2)

	refreshed, err := f.repo.GetAssignmentByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Len(t, refreshed.Submissions, 1)
}

func Test_service_Grade(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	a := testutil.CreateAssignment(t, f.repo, "A1", f.admin.ID, time.Now().Add(48*time.Hour), f.usr1.ID)
	sub, err := f.svc.Submit(ctx, a.ID, f.usr1.ID, assignment.NewSubmission{Content: "answer"})
	require.NoError(t, err)

	t.Run("admin required", func(t *testing.T) {
		_, err := f.svc.Grade(ctx, f.usr1.ID, a.ID, sub.ID, assignment.GradeSubmission{Grade: 80})
		assert.Equal(t, user.ErrPermissionDenied, err)
	})

	t.Run("unknown submission", func(t *testing.T) {
		_, err := f.svc.Grade(ctx, f.admin.ID, a.ID, "nope", assignment.GradeSubmission{Grade: 80})
		assert.Equal(t, assignment.ErrSubmissionNotFound, err)
	})

	t.Run("ok and notifies", func(t *testing.T) {
		emailsvc.SentMessages = emailsvc.SentMessages[:0]

		graded, err := f.svc.Grade(ctx, f.admin.ID, a.ID, sub.ID, assignment.GradeSubmission{Grade: 85, Feedback: "good work"})
		require.NoError(t, err)
		require.NotNil(t, graded.Grade)
		assert.Equal(t, 85, *graded.Grade)
		assert.Equal(t, "good work", graded.Feedback)
		assert.Equal(t, assignment.StatusGraded, graded.Status)

		require.Len(t, emailsvc.SentMessages, 1)
		msg := emailsvc.SentMessages[0]
		assert.Equal(t, f.usr1.Email, msg.To[0].Address)
		assert.Contains(t, msg.TextContent, "85/100")
	})

	t.Run("regrading is idempotent", func(t *testing.T) {
		regraded, err := f.svc.Grade(ctx, f.admin.ID, a.ID, sub.ID, assignment.GradeSubmission{Grade: 90})
		require.NoError(t, err)
		assert.Equal(t, 90, *regraded.Grade)

		refreshed, err := f.repo.GetAssignmentByID(ctx, a.ID)
		require.NoError(t, err)
		assert.Len(t, refreshed.Submissions, 1)
	})

	t.Run("resubmission clears the grade", func(t *testing.T) {
		resub, err := f.svc.Submit(ctx, a.ID, f.usr1.ID, assignment.NewSubmission{Content: "revised"})
		require.NoError(t, err)
		assert.Equal(t, sub.ID, resub.ID)
		assert.Nil(t, resub.Grade)
		assert.Empty(t, resub.Feedback)
		assert.Equal(t, assignment.StatusSubmitted, resub.Status)
	})
}

func Test_service_QuerySubmissions(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	a := testutil.CreateAssignment(t, f.repo, "A1", f.admin.ID, time.Now().Add(48*time.Hour), f.usr1.ID, f.usr2.ID)
	_, err := f.svc.Submit(ctx, a.ID, f.usr1.ID, assignment.NewSubmission{Content: "one"})
	require.NoError(t, err)
	_, err = f.svc.Submit(ctx, a.ID, f.usr2.ID, assignment.NewSubmission{Content: "two"})
	require.NoError(t, err)

	_, err = f.svc.QuerySubmissions(ctx, f.usr1.ID, a.ID)
	assert.Equal(t, user.ErrPermissionDenied, err)

	subs, err := f.svc.QuerySubmissions(ctx, f.admin.ID, a.ID)
	require.NoError(t, err)
	require.Len(t, subs, 2)
	for _, sub := range subs {
		assert.NotEmpty(t, sub.Username) // submitter resolved on admin reads
		assert.NotEmpty(t, sub.Email)
	}
}

func Test_service_GetSubmissionDetail(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	a := testutil.CreateAssignment(t, f.repo, "A1", f.admin.ID, time.Now().Add(48*time.Hour), f.usr1.ID)
	sub, err := f.svc.Submit(ctx, a.ID, f.usr1.ID, assignment.NewSubmission{Content: "answer"})
	require.NoError(t, err)

	_, err = f.svc.GetSubmissionDetail(ctx, f.admin.ID, a.ID, "nope")
	assert.Equal(t, assignment.ErrSubmissionNotFound, err)

	detail, err := f.svc.GetSubmissionDetail(ctx, f.admin.ID, a.ID, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, sub.ID, detail.Submission.ID)
	assert.Equal(t, f.usr1.Username, detail.Submission.Username)
	assert.Equal(t, a.Title, detail.AssignmentTitle)
	assert.Equal(t, a.Deadline, detail.Deadline)
}

func Test_service_QueryDeadlineSoon(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	restore := assignment.SetTimeNow(func() time.Time { return now })
	defer restore()

	testutil.CreateAssignment(t, f.repo, "past", f.admin.ID, now.Add(-time.Hour), f.usr1.ID)
	in3d := testutil.CreateAssignment(t, f.repo, "in 3 days", f.admin.ID, now.Add(3*24*time.Hour), f.usr1.ID)
	in1d := testutil.CreateAssignment(t, f.repo, "tomorrow", f.admin.ID, now.Add(24*time.Hour), f.usr1.ID)
	testutil.CreateAssignment(t, f.repo, "in 8 days", f.admin.ID, now.Add(8*24*time.Hour), f.usr1.ID)
	testutil.CreateAssignment(t, f.repo, "other user", f.admin.ID, now.Add(24*time.Hour), f.usr2.ID)

	t.Run("admins rejected", func(t *testing.T) {
		_, err := f.svc.QueryDeadlineSoon(ctx, f.admin.ID)
		assert.Equal(t, user.ErrPermissionDenied, err)
	})

	t.Run("window and order", func(t *testing.T) {
		got, err := f.svc.QueryDeadlineSoon(ctx, f.usr1.ID)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, in1d.ID, got[0].ID) // soonest first
		assert.Equal(t, in3d.ID, got[1].ID)
	})
}

func Test_gradingScenario(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	// admin creates an assignment for both users
	a, err := f.svc.Create(ctx, f.admin.ID, newAssignment(time.Now().Add(48*time.Hour).UTC(), f.usr1.ID, f.usr2.ID))
	require.NoError(t, err)

	// both submit
	sub1, err := f.svc.Submit(ctx, a.ID, f.usr1.ID, assignment.NewSubmission{Content: "u1 answer"})
	require.NoError(t, err)
	_, err = f.svc.Submit(ctx, a.ID, f.usr2.ID, assignment.NewSubmission{Content: "u2 answer"})
	require.NoError(t, err)

	// admin reviews and grades the first
	subs, err := f.svc.QuerySubmissions(ctx, f.admin.ID, a.ID)
	require.NoError(t, err)
	require.Len(t, subs, 2)

	graded, err := f.svc.Grade(ctx, f.admin.ID, a.ID, sub1.ID, assignment.GradeSubmission{Grade: 95, Feedback: "excellent"})
	require.NoError(t, err)
	assert.Equal(t, assignment.StatusGraded, graded.Status)

	// the other submission is untouched
	detail, err := f.svc.GetSubmissionDetail(ctx, f.admin.ID, a.ID, subs[0].ID)
	require.NoError(t, err)
	if detail.Submission.ID == sub1.ID {
		assert.Equal(t, assignment.StatusGraded, detail.Submission.Status)
	} else {
		assert.Equal(t, assignment.StatusSubmitted, detail.Submission.Status)
	}
}
