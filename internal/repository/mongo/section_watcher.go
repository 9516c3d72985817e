package mongo

import (
	"context"
	"errors"

	"github.com/golang/glog"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// SectionChangeFunc is called with the course of every changed section.
type SectionChangeFunc func(ctx context.Context, courseID primitive.ObjectID) error

type sectionChange struct {
	FullDocument struct {
		CourseID primitive.ObjectID `bson:"courseId"`
	} `bson:"fullDocument"`
}

// WatchSections opens a change stream on the sections collection and calls
// onChange for each insert, update or replace until ctx is cancelled. Hard
// deletes are ignored; they only happen together with the course.
// Change streams need a replica set.
func WatchSections(ctx context.Context, db *mongo.Database, onChange SectionChangeFunc) error {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: "operationType", Value: bson.D{{Key: "$in", Value: bson.A{"insert", "update", "replace"}}}}}}},
	}
	opts := options.ChangeStream().SetFullDocument(options.UpdateLookup)

	stream, err := db.Collection(sectionCollectionName).Watch(ctx, pipeline, opts)
	if err != nil {
		return err
	}
	defer stream.Close(context.Background())

	glog.Info("Watching sections for module count changes")
	for stream.Next(ctx) {
		var ev sectionChange
		if err := stream.Decode(&ev); err != nil {
			glog.Warningf("section watcher: decode change event: %v", err)
			continue
		}
		if ev.FullDocument.CourseID.IsZero() {
			continue
		}
		if err := onChange(ctx, ev.FullDocument.CourseID); err != nil {
			glog.Errorf("section watcher: recompute course %s: %v", ev.FullDocument.CourseID.Hex(), err)
		}
	}
	if err := stream.Err(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
