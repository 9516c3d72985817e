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

const courseCollectionName = "courses"

// mongoCourseRepository implements repository.CourseRepository
type mongoCourseRepository struct {
	collection *mongo.Collection
}

// NewMongoCourseRepository creates a new Course repository backed by MongoDB.
func NewMongoCourseRepository(db *mongo.Database) repository.CourseRepository {
	return &mongoCourseRepository{
		collection: db.Collection(courseCollectionName),
	}
}

// Create inserts a new course. Access codes are unique.
func (r *mongoCourseRepository) Create(ctx context.Context, course *domain.Course) (primitive.ObjectID, error) {
	course.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	course.CreatedAt = now
	course.UpdatedAt = now

	if _, err := r.collection.InsertOne(ctx, course); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return primitive.NilObjectID, repository.ErrDuplicate
		}
		return primitive.NilObjectID, err
	}
	return course.ID, nil
}

func (r *mongoCourseRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Course, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *mongoCourseRepository) GetByAccessCode(ctx context.Context, code string) (*domain.Course, error) {
	return r.findOne(ctx, bson.M{"accessCode": code})
}

func (r *mongoCourseRepository) findOne(ctx context.Context, filter bson.M) (*domain.Course, error) {
	var course domain.Course
	if err := r.collection.FindOne(ctx, filter).Decode(&course); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &course, nil
}

func (r *mongoCourseRepository) List(ctx context.Context) ([]domain.Course, error) {
	return findAll[domain.Course](ctx, r.collection, bson.M{}, byCreatedAt())
}

// ListByInstructor returns courses the user owns or co-teaches.
func (r *mongoCourseRepository) ListByInstructor(ctx context.Context, instructorID primitive.ObjectID) ([]domain.Course, error) {
	filter := bson.M{"$or": bson.A{
		bson.M{"instructorId": instructorID},
		bson.M{"coInstructorIds": instructorID},
	}}
	return findAll[domain.Course](ctx, r.collection, filter, byCreatedAt())
}

func (r *mongoCourseRepository) ListByIDs(ctx context.Context, ids []primitive.ObjectID) ([]domain.Course, error) {
	if len(ids) == 0 {
		return []domain.Course{}, nil
	}
	return findAll[domain.Course](ctx, r.collection, bson.M{"_id": bson.M{"$in": ids}}, byCreatedAt())
}

// Update writes the editable course fields. totalModules is owned by
// SetTotalModules and never written here.
func (r *mongoCourseRepository) Update(ctx context.Context, course *domain.Course) error {
	update := bson.M{"$set": bson.M{
		"title":           course.Title,
		"description":     course.Description,
		"thumbnailUrl":    course.ThumbnailURL,
		"accessCode":      course.AccessCode,
		"coInstructorIds": course.CoInstructorIDs,
		"updatedAt":       time.Now().UTC(),
	}}
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": course.ID}, update)
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

func (r *mongoCourseRepository) SetTotalModules(ctx context.Context, id primitive.ObjectID, total int) error {
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"totalModules": total}})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *mongoCourseRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *mongoCourseRepository) Count(ctx context.Context) (int64, error) {
	return r.collection.CountDocuments(ctx, bson.M{})
}

func byCreatedAt() *options.FindOptions {
	return options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}})
}

// EnsureCourseIndexes creates necessary indexes for the courses collection.
func EnsureCourseIndexes(ctx context.Context, collection *mongo.Collection) {
	createIndexes(ctx, collection, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "accessCode", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "instructorId", Value: 1}},
			Options: options.Index(),
		},
		{
			Keys:    bson.D{{Key: "coInstructorIds", Value: 1}},
			Options: options.Index(),
		},
	})
}
