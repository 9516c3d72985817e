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

const progressCollectionName = "progress"

type mongoProgressRepository struct {
	collection *mongo.Collection
}

// NewMongoProgressRepository creates a new Progress repository backed by MongoDB.
func NewMongoProgressRepository(db *mongo.Database) repository.ProgressRepository {
	return &mongoProgressRepository{collection: db.Collection(progressCollectionName)}
}

func (r *mongoProgressRepository) Get(ctx context.Context, studentID, courseID primitive.ObjectID) (*domain.Progress, error) {
	return getByKey[domain.Progress](ctx, r.collection, domain.ProgressKey(studentID, courseID))
}

// AddCompletedModule records moduleID with $addToSet, creating the progress
// document on first use, and returns the updated document.
func (r *mongoProgressRepository) AddCompletedModule(ctx context.Context, studentID, courseID primitive.ObjectID, moduleID string) (*domain.Progress, error) {
	key := domain.ProgressKey(studentID, courseID)
	update := bson.M{
		"$addToSet":    bson.M{"completedModules": moduleID},
		"$set":         bson.M{"updatedAt": time.Now().UTC()},
		"$setOnInsert": bson.M{"studentId": studentID, "courseId": courseID},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var p domain.Progress
	if err := r.collection.FindOneAndUpdate(ctx, bson.M{"_id": key}, update, opts).Decode(&p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *mongoProgressRepository) ListByCourse(ctx context.Context, courseID primitive.ObjectID) ([]domain.Progress, error) {
	return findAll[domain.Progress](ctx, r.collection, bson.M{"courseId": courseID}, byKey())
}

func (r *mongoProgressRepository) ListByStudent(ctx context.Context, studentID primitive.ObjectID) ([]domain.Progress, error) {
	return findAll[domain.Progress](ctx, r.collection, bson.M{"studentId": studentID}, byKey())
}

// EnsureProgressIndexes creates necessary indexes for the progress collection.
func EnsureProgressIndexes(ctx context.Context, collection *mongo.Collection) {
	createIndexes(ctx, collection, []mongo.IndexModel{
		{Keys: bson.D{{Key: "courseId", Value: 1}}},
		{Keys: bson.D{{Key: "studentId", Value: 1}}},
	})
}
