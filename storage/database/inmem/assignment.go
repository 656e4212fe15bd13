package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/kelasku/kelasku/core/assignment"
)

type assignmentRepository struct {
	db *assignmentTable
}

var _ assignment.Repository = (*assignmentRepository)(nil)

func NewAssignmentRepository(db *DB) *assignmentRepository {
	return &assignmentRepository{db: db.assignment}
}

func (repo *assignmentRepository) query() []assignment.Assignment {
	assignments := make([]assignment.Assignment, 0, len(repo.db.table))
	for _, a := range repo.db.table {
		assignments = append(assignments, *a)
	}
	return assignments
}

func (repo *assignmentRepository) CreateAssignment(ctx context.Context, a assignment.Assignment) (assignment.Assignment, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	a.ID = uuid.New().String()
	repo.db.table[a.ID] = &a
	return a, nil
}

func (repo *assignmentRepository) QueryAllAssignments(ctx context.Context) ([]assignment.Assignment, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	return repo.query(), nil
}

func (repo *assignmentRepository) QueryAssignmentsByAssignee(ctx context.Context, userID string) ([]assignment.Assignment, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	assignments := make([]assignment.Assignment, 0)
	for _, a := range repo.query() {
		if a.IsAssignedTo(userID) {
			assignments = append(assignments, a)
		}
	}
	return assignments, nil
}

func (repo *assignmentRepository) QueryAssignmentsDueBetween(ctx context.Context, userID string, from, to time.Time) ([]assignment.Assignment, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	assignments := make([]assignment.Assignment, 0)
	for _, a := range repo.query() {
		if a.IsAssignedTo(userID) && !a.Deadline.Before(from) && !a.Deadline.After(to) {
			assignments = append(assignments, a)
		}
	}
	sort.Slice(assignments, func(i, j int) bool { return assignments[i].Deadline.Before(assignments[j].Deadline) })
	return assignments, nil
}

func (repo *assignmentRepository) GetAssignmentByID(ctx context.Context, id string) (assignment.Assignment, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if a, ok := repo.db.table[id]; ok {
		return *a, nil
	}
	return assignment.Assignment{}, assignment.ErrNotFound
}

func (repo *assignmentRepository) UpdateAssignment(ctx context.Context, a assignment.Assignment) (assignment.Assignment, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.table[a.ID]; !ok {
		return assignment.Assignment{}, assignment.ErrNotFound
	}
	repo.db.table[a.ID] = &a
	return a, nil
}

func (repo *assignmentRepository) DeleteAssignment(ctx context.Context, id string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.table[id]; !ok {
		return assignment.ErrNotFound
	}
	delete(repo.db.table, id)
	return nil
}

func (repo *assignmentRepository) PutSubmission(ctx context.Context, assignmentID string, sub assignment.Submission) (assignment.Submission, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	a, ok := repo.db.table[assignmentID]
	if !ok {
		return assignment.Submission{}, assignment.ErrNotFound
	}

	if sub.ID == "" {
		sub.ID = uuid.New().String()
		a.Submissions = append(a.Submissions, sub)
		return sub, nil
	}
	for i := range a.Submissions {
		if a.Submissions[i].ID == sub.ID {
			a.Submissions[i] = sub
			return sub, nil
		}
	}
	a.Submissions = append(a.Submissions, sub)
	return sub, nil
}
