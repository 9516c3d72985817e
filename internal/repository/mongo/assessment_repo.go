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
	assessmentCollectionName = "assessments"
	submissionCollectionName = "submissions"
)

// mongoAssessmentRepository implements repository.AssessmentRepository
type mongoAssessmentRepository struct {
	collection *mongo.Collection
}

// NewMongoAssessmentRepository creates a new Assessment repository backed by MongoDB.
func NewMongoAssessmentRepository(db *mongo.Database) repository.AssessmentRepository {
	return &mongoAssessmentRepository{
		collection: db.Collection(assessmentCollectionName),
	}
}

func (r *mongoAssessmentRepository) Create(ctx context.Context, a *domain.Assessment) (primitive.ObjectID, error) {
	a.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	a.CreatedAt = now
	a.UpdatedAt = now

	if _, err := r.collection.InsertOne(ctx, a); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return primitive.NilObjectID, repository.ErrDuplicate
		}
		return primitive.NilObjectID, err
	}
	return a.ID, nil
}

func (r *mongoAssessmentRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Assessment, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *mongoAssessmentRepository) GetByAccessCode(ctx context.Context, code string) (*domain.Assessment, error) {
	if code == "" {
		return nil, repository.ErrNotFound
	}
	return r.findOne(ctx, bson.M{"accessCode": code})
}

func (r *mongoAssessmentRepository) findOne(ctx context.Context, filter bson.M) (*domain.Assessment, error) {
	var a domain.Assessment
	if err := r.collection.FindOne(ctx, filter).Decode(&a); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

func (r *mongoAssessmentRepository) List(ctx context.Context) ([]domain.Assessment, error) {
	return findAll[domain.Assessment](ctx, r.collection, bson.M{}, byCreatedAt())
}

// ListByOwner returns assessments the user owns or created.
func (r *mongoAssessmentRepository) ListByOwner(ctx context.Context, userID primitive.ObjectID) ([]domain.Assessment, error) {
	filter := bson.M{"$or": bson.A{bson.M{"instructorId": userID}, bson.M{"createdBy": userID}}}
	return findAll[domain.Assessment](ctx, r.collection, filter, byCreatedAt())
}

func (r *mongoAssessmentRepository) ListByCourses(ctx context.Context, courseIDs []primitive.ObjectID) ([]domain.Assessment, error) {
	if len(courseIDs) == 0 {
		return []domain.Assessment{}, nil
	}
	return findAll[domain.Assessment](ctx, r.collection, bson.M{"courseId": bson.M{"$in": courseIDs}}, byCreatedAt())
}

func (r *mongoAssessmentRepository) ListByIDs(ctx context.Context, ids []primitive.ObjectID) ([]domain.Assessment, error) {
	if len(ids) == 0 {
		return []domain.Assessment{}, nil
	}
	return findAll[domain.Assessment](ctx, r.collection, bson.M{"_id": bson.M{"$in": ids}}, byCreatedAt())
}

func (r *mongoAssessmentRepository) Update(ctx context.Context, a *domain.Assessment) error {
	update := bson.M{"$set": bson.M{
		"title":       a.Title,
		"description": a.Description,
		"questions":   a.Questions,
		"courseId":    a.CourseID,
		"accessCode":  a.AccessCode,
		"updatedAt":   time.Now().UTC(),
	}}
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": a.ID}, update)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return repository.ErrDuplicate
		}
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *mongoAssessmentRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *mongoAssessmentRepository) Count(ctx context.Context) (int64, error) {
	return r.collection.CountDocuments(ctx, bson.M{})
}

// EnsureAssessmentIndexes creates necessary indexes for the assessments collection.
func EnsureAssessmentIndexes(ctx context.Context, collection *mongo.Collection) {
	createIndexes(ctx, collection, []mongo.IndexModel{
		{
			// Only assessments with a code take part in uniqueness
			Keys: bson.D{{Key: "accessCode", Value: 1}},
			Options: options.Index().SetUnique(true).SetPartialFilterExpression(
				bson.M{"accessCode": bson.M{"$gt": ""}}),
		},
		{Keys: bson.D{{Key: "instructorId", Value: 1}}},
		{Keys: bson.D{{Key: "createdBy", Value: 1}}},
		{Keys: bson.D{{Key: "courseId", Value: 1}}, Options: options.Index().SetSparse(true)},
	})
}

// mongoSubmissionRepository implements repository.SubmissionRepository.
// Documents are keyed by domain.SubmissionKey so a second submit collides.
type mongoSubmissionRepository struct {
	collection *mongo.Collection
}

// NewMongoSubmissionRepository creates a new Submission repository backed by MongoDB.
func NewMongoSubmissionRepository(db *mongo.Database) repository.SubmissionRepository {
	return &mongoSubmissionRepository{
		collection: db.Collection(submissionCollectionName),
	}
}

func (r *mongoSubmissionRepository) Create(ctx context.Context, s *domain.Submission) error {
	if _, err := r.collection.InsertOne(ctx, s); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return repository.ErrDuplicate
		}
		return err
	}
	return nil
}

func (r *mongoSubmissionRepository) GetByKey(ctx context.Context, key string) (*domain.Submission, error) {
	var s domain.Submission
	if err := r.collection.FindOne(ctx, bson.M{"_id": key}).Decode(&s); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}

func (r *mongoSubmissionRepository) ListByAssessment(ctx context.Context, assessmentID primitive.ObjectID) ([]domain.Submission, error) {
	opts := options.Find().SetSort(bson.D{{Key: "submittedAt", Value: 1}})
	return findAll[domain.Submission](ctx, r.collection, bson.M{"assessmentId": assessmentID}, opts)
}

func (r *mongoSubmissionRepository) ListByStudent(ctx context.Context, studentID primitive.ObjectID) ([]domain.Submission, error) {
	opts := options.Find().SetSort(bson.D{{Key: "submittedAt", Value: 1}})
	return findAll[domain.Submission](ctx, r.collection, bson.M{"studentId": studentID}, opts)
}

func (r *mongoSubmissionRepository) DeleteByAssessment(ctx context.Context, assessmentID primitive.ObjectID) (int64, error) {
	result, err := r.collection.DeleteMany(ctx, bson.M{"assessmentId": assessmentID})
	if err != nil {
		return 0, err
	}
	return result.DeletedCount, nil
}

// EnsureSubmissionIndexes creates necessary indexes for the submissions collection.
func EnsureSubmissionIndexes(ctx context.Context, collection *mongo.Collection) {
	createIndexes(ctx, collection, []mongo.IndexModel{
		{Keys: bson.D{{Key: "assessmentId", Value: 1}}},
		{Keys: bson.D{{Key: "studentId", Value: 1}}},
	})
}
