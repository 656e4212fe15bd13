package mongodb

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/kelasku/kelasku/core/assignment"
)

type (
	fileRefDoc struct {
		URL          string `bson:"url"`
		PublicID     string `bson:"publicId"`
		Format       string `bson:"format"`
		ResourceType string `bson:"resourceType"`
	}

	submissionDoc struct {
		ID          primitive.ObjectID `bson:"_id,omitempty"`
		UserID      string             `bson:"user"`
		Content     string             `bson:"content"`
		Attachments []fileRefDoc       `bson:"attachments"`
		Images      []fileRefDoc       `bson:"images"`
		SubmittedAt time.Time          `bson:"submittedAt"`
		Status      string             `bson:"status"`
		Grade       *int               `bson:"grade,omitempty"`
		Feedback    string             `bson:"feedback,omitempty"`
	}

	assignmentDoc struct {
		ID          primitive.ObjectID `bson:"_id,omitempty"`
		Title       string             `bson:"title"`
		Description string             `bson:"description"`
		Subject     string             `bson:"subject"`
		Day         string             `bson:"day"`
		StartTime   string             `bson:"startTime"`
		EndTime     string             `bson:"endTime"`
		Deadline    time.Time          `bson:"deadline"`
		CreatedBy   string             `bson:"user"`
		AssignedTo  []string           `bson:"assignedTo"`
		IsCompleted bool               `bson:"isCompleted"`
		Attachments []fileRefDoc       `bson:"attachments"`
		Images      []fileRefDoc       `bson:"images"`
		Submissions []submissionDoc    `bson:"submissions"`
		CreatedAt   time.Time          `bson:"createdAt"`
	}
)

type assignmentRepository struct {
	col *mongo.Collection
}

var _ assignment.Repository = (*assignmentRepository)(nil) // interface compliance check

func NewAssignmentRepository(db *mongo.Database) *assignmentRepository {
	return &assignmentRepository{col: db.Collection(assignmentsCollection)}
}

func fileRefDocs(refs []assignment.FileRef) []fileRefDoc {
	docs := make([]fileRefDoc, 0, len(refs))
	for _, r := range refs {
		docs = append(docs, fileRefDoc(r))
	}
	return docs
}

func unFileRefDocs(docs []fileRefDoc) []assignment.FileRef {
	refs := make([]assignment.FileRef, 0, len(docs))
	for _, d := range docs {
		refs = append(refs, assignment.FileRef(d))
	}
	return refs
}

func (repo assignmentRepository) subDoc(sub assignment.Submission) submissionDoc {
	d := submissionDoc{
		UserID:      sub.UserID,
		Content:     sub.Content,
		Attachments: fileRefDocs(sub.Attachments),
		Images:      fileRefDocs(sub.Images),
		SubmittedAt: sub.SubmittedAt.UTC(),
		Status:      sub.Status,
		Grade:       sub.Grade,
		Feedback:    sub.Feedback,
	}
	if oid, err := primitive.ObjectIDFromHex(sub.ID); err == nil {
		d.ID = oid
	}
	return d
}

func (repo assignmentRepository) unSubDoc(d submissionDoc) assignment.Submission {
	return assignment.Submission{
		ID:          d.ID.Hex(),
		UserID:      d.UserID,
		Content:     d.Content,
		Attachments: unFileRefDocs(d.Attachments),
		Images:      unFileRefDocs(d.Images),
		SubmittedAt: d.SubmittedAt,
		Status:      d.Status,
		Grade:       d.Grade,
		Feedback:    d.Feedback,
	}
}

func (repo assignmentRepository) doc(a assignment.Assignment) assignmentDoc {
	d := assignmentDoc{
		Title:       a.Title,
		Description: a.Description,
		Subject:     a.Subject,
		Day:         a.Day,
		StartTime:   a.StartTime,
		EndTime:     a.EndTime,
		Deadline:    a.Deadline.UTC(),
		CreatedBy:   a.CreatedBy,
		AssignedTo:  a.AssignedTo,
		IsCompleted: a.IsCompleted,
		Attachments: fileRefDocs(a.Attachments),
		Images:      fileRefDocs(a.Images),
		Submissions: make([]submissionDoc, 0, len(a.Submissions)),
		CreatedAt:   a.CreatedAt.UTC(),
	}
	for _, sub := range a.Submissions {
		d.Submissions = append(d.Submissions, repo.subDoc(sub))
	}
	if oid, err := primitive.ObjectIDFromHex(a.ID); err == nil {
		d.ID = oid
	}
	return d
}

func (repo assignmentRepository) undoc(d assignmentDoc) assignment.Assignment {
	a := assignment.Assignment{
		ID:          d.ID.Hex(),
		Title:       d.Title,
		Description: d.Description,
		Subject:     d.Subject,
		Day:         d.Day,
		StartTime:   d.StartTime,
		EndTime:     d.EndTime,
		Deadline:    d.Deadline,
		CreatedBy:   d.CreatedBy,
		AssignedTo:  d.AssignedTo,
		IsCompleted: d.IsCompleted,
		Attachments: unFileRefDocs(d.Attachments),
		Images:      unFileRefDocs(d.Images),
		Submissions: make([]assignment.Submission, 0, len(d.Submissions)),
		CreatedAt:   d.CreatedAt,
	}
	if a.AssignedTo == nil {
		a.AssignedTo = []string{}
	}
	for _, sub := range d.Submissions {
		a.Submissions = append(a.Submissions, repo.unSubDoc(sub))
	}
	return a
}

func (repo assignmentRepository) find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]assignment.Assignment, error) {
	cur, err := repo.col.Find(ctx, filter, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "querying assignments")
	}
	defer func() { _ = cur.Close(ctx) }()

	assignments := make([]assignment.Assignment, 0)
	for cur.Next(ctx) {
		var d assignmentDoc
		if err = cur.Decode(&d); err != nil {
			return nil, errors.Wrap(err, "decoding assignment")
		}
		assignments = append(assignments, repo.undoc(d))
	}
	return assignments, errors.Wrap(cur.Err(), "querying assignments")
}

func (repo assignmentRepository) CreateAssignment(ctx context.Context, a assignment.Assignment) (assignment.Assignment, error) {
	d := repo.doc(a)
	d.ID = primitive.NewObjectID()
	if _, err := repo.col.InsertOne(ctx, d); err != nil {
		return assignment.Assignment{}, errors.Wrap(err, "inserting assignment")
	}
	return repo.undoc(d), nil
}

func (repo assignmentRepository) QueryAllAssignments(ctx context.Context) ([]assignment.Assignment, error) {
	return repo.find(ctx, bson.M{})
}

func (repo assignmentRepository) QueryAssignmentsByAssignee(ctx context.Context, userID string) ([]assignment.Assignment, error) {
	return repo.find(ctx, bson.M{"assignedTo": userID})
}

func (repo assignmentRepository) QueryAssignmentsDueBetween(ctx context.Context, userID string, from, to time.Time) ([]assignment.Assignment, error) {
	filter := bson.M{
		"assignedTo": userID,
		"deadline":   bson.M{"$gte": from, "$lte": to},
	}
	return repo.find(ctx, filter, options.Find().SetSort(bson.D{{Key: "deadline", Value: 1}}))
}

func (repo assignmentRepository) GetAssignmentByID(ctx context.Context, id string) (assignment.Assignment, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return assignment.Assignment{}, assignment.ErrNotFound
	}
	var d assignmentDoc
	if err = repo.col.FindOne(ctx, bson.M{"_id": oid}).Decode(&d); err != nil {
		if err == mongo.ErrNoDocuments {
			return assignment.Assignment{}, assignment.ErrNotFound
		}
		return assignment.Assignment{}, errors.Wrap(err, "finding assignment by ID")
	}
	return repo.undoc(d), nil
}

func (repo assignmentRepository) UpdateAssignment(ctx context.Context, a assignment.Assignment) (assignment.Assignment, error) {
	d := repo.doc(a)
	res, err := repo.col.ReplaceOne(ctx, bson.M{"_id": d.ID}, d)
	if err != nil {
		return assignment.Assignment{}, errors.Wrap(err, "updating assignment")
	}
	if res.MatchedCount == 0 {
		return assignment.Assignment{}, assignment.ErrNotFound
	}
	return repo.undoc(d), nil
}

func (repo assignmentRepository) DeleteAssignment(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return assignment.ErrNotFound
	}
	res, err := repo.col.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return errors.Wrap(err, "deleting assignment")
	}
	if res.DeletedCount == 0 {
		return assignment.ErrNotFound
	}
	return nil
}

func (repo assignmentRepository) PutSubmission(ctx context.Context, assignmentID string, sub assignment.Submission) (assignment.Submission, error) {
	oid, err := primitive.ObjectIDFromHex(assignmentID)
	if err != nil {
		return assignment.Submission{}, assignment.ErrNotFound
	}
	d := repo.subDoc(sub)

	// replace in place when the submission already exists
	if !d.ID.IsZero() {
		res, err := repo.col.UpdateOne(
			ctx,
			bson.M{"_id": oid, "submissions._id": d.ID},
			bson.M{"$set": bson.M{"submissions.$": d}},
		)
		if err != nil {
			return assignment.Submission{}, errors.Wrap(err, "replacing submission")
		}
		if res.MatchedCount > 0 {
			return repo.unSubDoc(d), nil
		}
	}

	d.ID = primitive.NewObjectID()
	res, err := repo.col.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$push": bson.M{"submissions": d}})
	if err != nil {
		return assignment.Submission{}, errors.Wrap(err, "appending submission")
	}
	if res.MatchedCount == 0 {
		return assignment.Submission{}, assignment.ErrNotFound
	}
	return repo.unSubDoc(d), nil
}
