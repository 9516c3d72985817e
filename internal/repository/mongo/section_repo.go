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

const sectionCollectionName = "sections"

// mongoSectionRepository implements repository.SectionRepository
type mongoSectionRepository struct {
	collection *mongo.Collection
}

// NewMongoSectionRepository creates a new Section repository backed by MongoDB.
func NewMongoSectionRepository(db *mongo.Database) repository.SectionRepository {
	return &mongoSectionRepository{
		collection: db.Collection(sectionCollectionName),
	}
}

func (r *mongoSectionRepository) Create(ctx context.Context, section *domain.Section) (primitive.ObjectID, error) {
	if section.CourseID == primitive.NilObjectID {
		return primitive.NilObjectID, errors.New("section requires courseId")
	}
	section.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	section.CreatedAt = now
	section.UpdatedAt = now

	if _, err := r.collection.InsertOne(ctx, section); err != nil {
		return primitive.NilObjectID, err
	}
	return section.ID, nil
}

func (r *mongoSectionRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Section, error) {
	var section domain.Section
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&section); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &section, nil
}

// ListByCourse returns a course's sections in display order.
func (r *mongoSectionRepository) ListByCourse(ctx context.Context, courseID primitive.ObjectID, includeDeleted bool) ([]domain.Section, error) {
	filter := bson.M{"courseId": courseID}
	if !includeDeleted {
		filter["deletedAt"] = bson.M{"$exists": false}
	}
	opts := options.Find().SetSort(bson.D{{Key: "order", Value: 1}, {Key: "_id", Value: 1}})
	return findAll[domain.Section](ctx, r.collection, filter, opts)
}

// Update replaces the section's title, order and embedded content.
func (r *mongoSectionRepository) Update(ctx context.Context, section *domain.Section) error {
	update := bson.M{"$set": bson.M{
		"title":       section.Title,
		"order":       section.Order,
		"modules":     section.Modules,
		"subSections": section.SubSections,
		"updatedAt":   time.Now().UTC(),
	}}
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": section.ID}, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// SetDeletedAt soft deletes the section, or restores it when at is nil.
func (r *mongoSectionRepository) SetDeletedAt(ctx context.Context, id primitive.ObjectID, at *time.Time) error {
	var update bson.M
	if at != nil {
		update = bson.M{"$set": bson.M{"deletedAt": at.UTC(), "updatedAt": time.Now().UTC()}}
	} else {
		update = bson.M{"$unset": bson.M{"deletedAt": ""}, "$set": bson.M{"updatedAt": time.Now().UTC()}}
	}
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *mongoSectionRepository) DeleteByCourse(ctx context.Context, courseID primitive.ObjectID) error {
	_, err := r.collection.DeleteMany(ctx, bson.M{"courseId": courseID})
	return err
}

// EnsureSectionIndexes creates necessary indexes for the sections collection.
func EnsureSectionIndexes(ctx context.Context, collection *mongo.Collection) {
	createIndexes(ctx, collection, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "courseId", Value: 1}, {Key: "order", Value: 1}},
			Options: options.Index(),
		},
	})
}
