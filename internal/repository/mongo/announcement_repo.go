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

const announcementCollectionName = "announcements"

type mongoAnnouncementRepository struct {
	collection *mongo.Collection
}

// NewMongoAnnouncementRepository creates a new Announcement repository backed by MongoDB.
func NewMongoAnnouncementRepository(db *mongo.Database) repository.AnnouncementRepository {
	return &mongoAnnouncementRepository{collection: db.Collection(announcementCollectionName)}
}

func (r *mongoAnnouncementRepository) Create(ctx context.Context, a *domain.Announcement) (primitive.ObjectID, error) {
	a.ID = primitive.NewObjectID()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	if _, err := r.collection.InsertOne(ctx, a); err != nil {
		return primitive.NilObjectID, err
	}
	return a.ID, nil
}

func (r *mongoAnnouncementRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Announcement, error) {
	var a domain.Announcement
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&a); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

// ListByCourses returns the newest announcements across courseIDs.
func (r *mongoAnnouncementRepository) ListByCourses(ctx context.Context, courseIDs []primitive.ObjectID, limit int) ([]domain.Announcement, error) {
	if len(courseIDs) == 0 {
		return []domain.Announcement{}, nil
	}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	return findAll[domain.Announcement](ctx, r.collection, bson.M{"courseId": bson.M{"$in": courseIDs}}, opts)
}

func (r *mongoAnnouncementRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// EnsureAnnouncementIndexes creates necessary indexes for the announcements collection.
func EnsureAnnouncementIndexes(ctx context.Context, collection *mongo.Collection) {
	createIndexes(ctx, collection, []mongo.IndexModel{
		{Keys: bson.D{{Key: "courseId", Value: 1}, {Key: "createdAt", Value: -1}}},
	})
}
