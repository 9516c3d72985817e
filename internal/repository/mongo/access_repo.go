package mongo

import (
	"alcyxob/learning-platform/internal/domain"
	"alcyxob/learning-platform/internal/repository"
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const assessmentAccessCollectionName = "assessment_access"

// mongoAssessmentAccessRepository implements repository.AssessmentAccessRepository
type mongoAssessmentAccessRepository struct {
	collection *mongo.Collection
}

// NewMongoAssessmentAccessRepository creates an assessment access repository backed by MongoDB.
func NewMongoAssessmentAccessRepository(db *mongo.Database) repository.AssessmentAccessRepository {
	return &mongoAssessmentAccessRepository{collection: db.Collection(assessmentAccessCollectionName)}
}

func (r *mongoAssessmentAccessRepository) GetByKey(ctx context.Context, key string) (*domain.AssessmentAccess, error) {
	return getByKey[domain.AssessmentAccess](ctx, r.collection, key)
}

// ExistingKeys looks up all keys with a single $in query, projecting only _id.
func (r *mongoAssessmentAccessRepository) ExistingKeys(ctx context.Context, keys []string) (map[string]bool, error) {
	found := make(map[string]bool)
	if len(keys) == 0 {
		return found, nil
	}
	opts := options.Find().SetProjection(bson.M{"_id": 1})
	rows, err := findAll[struct {
		ID string `bson:"_id"`
	}](ctx, r.collection, bson.M{"_id": bson.M{"$in": keys}}, opts)
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		found[row.ID] = true
	}
	return found, nil
}

// BulkUpsert writes every grant in one unordered BulkWrite. Existing grants
// are left as they are ($setOnInsert), so the call is idempotent.
func (r *mongoAssessmentAccessRepository) BulkUpsert(ctx context.Context, grants []domain.AssessmentAccess) (int64, error) {
	if len(grants) == 0 {
		return 0, nil
	}
	now := time.Now().UTC()
	models := make([]mongo.WriteModel, 0, len(grants))
	for _, g := range grants {
		if g.GrantedAt.IsZero() {
			g.GrantedAt = now
		}
		models = append(models, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"_id": g.ID}).
			SetUpdate(bson.M{"$setOnInsert": bson.M{
				"studentId":    g.StudentID,
				"assessmentId": g.AssessmentID,
				"mentorId":     g.MentorID,
				"grantedBy":    g.GrantedBy,
				"source":       g.Source,
				"grantedAt":    g.GrantedAt,
			}}).
			SetUpsert(true))
	}
	result, err := r.collection.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(false))
	if err != nil {
		return 0, err
	}
	return result.UpsertedCount, nil
}

func (r *mongoAssessmentAccessRepository) DeleteKeys(ctx context.Context, keys []string) (int64, error) {
	if len(keys) == 0 {
		return 0, nil
	}
	return r.deleteMany(ctx, bson.M{"_id": bson.M{"$in": keys}})
}

func (r *mongoAssessmentAccessRepository) ListByStudent(ctx context.Context, studentID primitive.ObjectID) ([]domain.AssessmentAccess, error) {
	return findAll[domain.AssessmentAccess](ctx, r.collection, bson.M{"studentId": studentID}, byKey())
}

func (r *mongoAssessmentAccessRepository) DeleteByAssessment(ctx context.Context, assessmentID primitive.ObjectID) (int64, error) {
	return r.deleteMany(ctx, bson.M{"assessmentId": assessmentID})
}

func (r *mongoAssessmentAccessRepository) DeleteGrantedByMentor(ctx context.Context, mentorID primitive.ObjectID, studentID *primitive.ObjectID, assessmentIDs []primitive.ObjectID) (int64, error) {
	filter := bson.M{"mentorId": mentorID}
	if studentID != nil {
		filter["studentId"] = *studentID
	}
	if len(assessmentIDs) > 0 {
		filter["assessmentId"] = bson.M{"$in": assessmentIDs}
	}
	return r.deleteMany(ctx, filter)
}

func (r *mongoAssessmentAccessRepository) deleteMany(ctx context.Context, filter bson.M) (int64, error) {
	result, err := r.collection.DeleteMany(ctx, filter)
	if err != nil {
		return 0, err
	}
	return result.DeletedCount, nil
}

// EnsureAssessmentAccessIndexes creates necessary indexes for the assessment_access collection.
func EnsureAssessmentAccessIndexes(ctx context.Context, collection *mongo.Collection) {
	createIndexes(ctx, collection, []mongo.IndexModel{
		{Keys: bson.D{{Key: "studentId", Value: 1}}},
		{Keys: bson.D{{Key: "assessmentId", Value: 1}}},
		{Keys: bson.D{{Key: "mentorId", Value: 1}, {Key: "studentId", Value: 1}}, Options: options.Index().SetSparse(true)},
	})
}
