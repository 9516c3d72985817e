package mongo

import (
	"alcyxob/learning-platform/internal/domain"
	"alcyxob/learning-platform/internal/repository"
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	mentorStudentCollectionName = "mentor_assignments"
	mentorCourseCollectionName  = "mentor_course_assignments"
	enrollmentCollectionName    = "enrollments"
)

// Join records are stored under their composite key, so every write is an
// upsert on _id and repeating an assignment is a no-op.

// upsertByKey writes fields onto the document with the given key, stamping
// updatedAt and setting the creation timestamp only on insert.
func upsertByKey(ctx context.Context, collection *mongo.Collection, key string, fields bson.M, createdField string) error {
	now := time.Now().UTC()
	fields["updatedAt"] = now
	update := bson.M{
		"$set":         fields,
		"$setOnInsert": bson.M{createdField: now},
	}
	_, err := collection.UpdateOne(ctx, bson.M{"_id": key}, update, options.Update().SetUpsert(true))
	return err
}

func getByKey[T any](ctx context.Context, collection *mongo.Collection, key string) (*T, error) {
	var out T
	if err := collection.FindOne(ctx, bson.M{"_id": key}).Decode(&out); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &out, nil
}

func setStatus(ctx context.Context, collection *mongo.Collection, key string, status domain.AssignmentStatus) error {
	update := bson.M{"$set": bson.M{"status": status, "updatedAt": time.Now().UTC()}}
	result, err := collection.UpdateOne(ctx, bson.M{"_id": key}, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func byKey() *options.FindOptions {
	return options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
}

// mongoMentorAssignmentRepository implements repository.MentorAssignmentRepository
type mongoMentorAssignmentRepository struct {
	collection *mongo.Collection
}

// NewMongoMentorAssignmentRepository creates a mentor-student repository backed by MongoDB.
func NewMongoMentorAssignmentRepository(db *mongo.Database) repository.MentorAssignmentRepository {
	return &mongoMentorAssignmentRepository{collection: db.Collection(mentorStudentCollectionName)}
}

func (r *mongoMentorAssignmentRepository) Upsert(ctx context.Context, a *domain.MentorAssignment) error {
	return upsertByKey(ctx, r.collection, a.ID, bson.M{
		"mentorId":  a.MentorID,
		"studentId": a.StudentID,
		"status":    a.Status,
	}, "assignedAt")
}

func (r *mongoMentorAssignmentRepository) GetByKey(ctx context.Context, key string) (*domain.MentorAssignment, error) {
	return getByKey[domain.MentorAssignment](ctx, r.collection, key)
}

func (r *mongoMentorAssignmentRepository) ListActiveByMentor(ctx context.Context, mentorID primitive.ObjectID) ([]domain.MentorAssignment, error) {
	filter := bson.M{"mentorId": mentorID, "status": domain.StatusActive}
	return findAll[domain.MentorAssignment](ctx, r.collection, filter, byKey())
}

func (r *mongoMentorAssignmentRepository) ListActiveByStudent(ctx context.Context, studentID primitive.ObjectID) ([]domain.MentorAssignment, error) {
	filter := bson.M{"studentId": studentID, "status": domain.StatusActive}
	return findAll[domain.MentorAssignment](ctx, r.collection, filter, byKey())
}

func (r *mongoMentorAssignmentRepository) SetStatus(ctx context.Context, key string, status domain.AssignmentStatus) error {
	return setStatus(ctx, r.collection, key, status)
}

// EnsureMentorAssignmentIndexes creates necessary indexes for mentor-student links.
func EnsureMentorAssignmentIndexes(ctx context.Context, collection *mongo.Collection) {
	createIndexes(ctx, collection, []mongo.IndexModel{
		{Keys: bson.D{{Key: "mentorId", Value: 1}, {Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "studentId", Value: 1}, {Key: "status", Value: 1}}},
	})
}

// mongoMentorCourseAssignmentRepository implements repository.MentorCourseAssignmentRepository
type mongoMentorCourseAssignmentRepository struct {
	collection *mongo.Collection
}

// NewMongoMentorCourseAssignmentRepository creates a mentor-course repository backed by MongoDB.
func NewMongoMentorCourseAssignmentRepository(db *mongo.Database) repository.MentorCourseAssignmentRepository {
	return &mongoMentorCourseAssignmentRepository{collection: db.Collection(mentorCourseCollectionName)}
}

func (r *mongoMentorCourseAssignmentRepository) Upsert(ctx context.Context, a *domain.MentorCourseAssignment) error {
	return upsertByKey(ctx, r.collection, a.ID, bson.M{
		"mentorId": a.MentorID,
		"courseId": a.CourseID,
		"status":   a.Status,
	}, "assignedAt")
}

func (r *mongoMentorCourseAssignmentRepository) GetByKey(ctx context.Context, key string) (*domain.MentorCourseAssignment, error) {
	return getByKey[domain.MentorCourseAssignment](ctx, r.collection, key)
}

func (r *mongoMentorCourseAssignmentRepository) ListActiveByMentor(ctx context.Context, mentorID primitive.ObjectID) ([]domain.MentorCourseAssignment, error) {
	filter := bson.M{"mentorId": mentorID, "status": domain.StatusActive}
	return findAll[domain.MentorCourseAssignment](ctx, r.collection, filter, byKey())
}

func (r *mongoMentorCourseAssignmentRepository) ListActiveByCourse(ctx context.Context, courseID primitive.ObjectID) ([]domain.MentorCourseAssignment, error) {
	filter := bson.M{"courseId": courseID, "status": domain.StatusActive}
	return findAll[domain.MentorCourseAssignment](ctx, r.collection, filter, byKey())
}

func (r *mongoMentorCourseAssignmentRepository) SetStatus(ctx context.Context, key string, status domain.AssignmentStatus) error {
	return setStatus(ctx, r.collection, key, status)
}

// EnsureMentorCourseAssignmentIndexes creates necessary indexes for mentor-course links.
func EnsureMentorCourseAssignmentIndexes(ctx context.Context, collection *mongo.Collection) {
	createIndexes(ctx, collection, []mongo.IndexModel{
		{Keys: bson.D{{Key: "mentorId", Value: 1}, {Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "courseId", Value: 1}, {Key: "status", Value: 1}}},
	})
}

// mongoEnrollmentRepository implements repository.EnrollmentRepository
type mongoEnrollmentRepository struct {
	collection *mongo.Collection
}

// NewMongoEnrollmentRepository creates a new Enrollment repository backed by MongoDB.
func NewMongoEnrollmentRepository(db *mongo.Database) repository.EnrollmentRepository {
	return &mongoEnrollmentRepository{collection: db.Collection(enrollmentCollectionName)}
}

func (r *mongoEnrollmentRepository) Upsert(ctx context.Context, e *domain.Enrollment) error {
	fields := bson.M{
		"studentId": e.StudentID,
		"courseId":  e.CourseID,
		"mentorId":  e.MentorID,
		"status":    e.Status,
	}
	return upsertByKey(ctx, r.collection, e.ID, fields, "enrolledAt")
}

func (r *mongoEnrollmentRepository) GetByKey(ctx context.Context, key string) (*domain.Enrollment, error) {
	return getByKey[domain.Enrollment](ctx, r.collection, key)
}

func (r *mongoEnrollmentRepository) ListActiveByStudent(ctx context.Context, studentID primitive.ObjectID) ([]domain.Enrollment, error) {
	filter := bson.M{"studentId": studentID, "status": domain.StatusActive}
	return findAll[domain.Enrollment](ctx, r.collection, filter, byKey())
}

func (r *mongoEnrollmentRepository) ListActiveByCourse(ctx context.Context, courseID primitive.ObjectID) ([]domain.Enrollment, error) {
	filter := bson.M{"courseId": courseID, "status": domain.StatusActive}
	return findAll[domain.Enrollment](ctx, r.collection, filter, byKey())
}

func (r *mongoEnrollmentRepository) ListActiveByCourseAndMentor(ctx context.Context, courseID, mentorID primitive.ObjectID) ([]domain.Enrollment, error) {
	filter := bson.M{"courseId": courseID, "mentorId": mentorID, "status": domain.StatusActive}
	return findAll[domain.Enrollment](ctx, r.collection, filter, byKey())
}

// SetStatusMany flips the listed enrollments in one UpdateMany. Records that
// already have status are not counted.
func (r *mongoEnrollmentRepository) SetStatusMany(ctx context.Context, keys []string, status domain.AssignmentStatus) (int64, error) {
	if len(keys) == 0 {
		return 0, nil
	}
	filter := bson.M{"_id": bson.M{"$in": keys}, "status": bson.M{"$ne": status}}
	update := bson.M{"$set": bson.M{"status": status, "updatedAt": time.Now().UTC()}}
	result, err := r.collection.UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, err
	}
	return result.ModifiedCount, nil
}

// EnsureEnrollmentIndexes creates necessary indexes for the enrollments collection.
func EnsureEnrollmentIndexes(ctx context.Context, collection *mongo.Collection) {
	createIndexes(ctx, collection, []mongo.IndexModel{
		{Keys: bson.D{{Key: "studentId", Value: 1}, {Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "courseId", Value: 1}, {Key: "mentorId", Value: 1}, {Key: "status", Value: 1}}},
	})
}
