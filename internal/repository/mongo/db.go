package mongo

import (
	"context"
	"time"

	"alcyxob/learning-platform/internal/repository"

	"github.com/golang/glog"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Default connection timeout
const defaultTimeout = 10 * time.Second

// ConnectDB establishes a connection to MongoDB using the provided URI.
// It returns the mongo.Client which can be used to access databases and collections.
func ConnectDB(uri string) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}

	// Ping the primary node to verify the connection; the connect call can
	// succeed against an unresponsive server.
	pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer pingCancel()

	if err = client.Ping(pingCtx, readpref.Primary()); err != nil {
		disconnectCtx, disconnectCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer disconnectCancel()
		if derr := client.Disconnect(disconnectCtx); derr != nil {
			glog.Warningf("mongo: disconnect after failed ping: %v", derr)
		}
		return nil, err
	}

	return client, nil
}

// DisconnectDB gracefully disconnects the MongoDB client.
func DisconnectDB(client *mongo.Client) error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()
	return client.Disconnect(ctx)
}

// NewStore wires every MongoDB repository against db. When transactions is
// true multi-collection mutations run inside a session transaction, which
// requires a replica set.
func NewStore(client *mongo.Client, db *mongo.Database, transactions bool) *repository.Store {
	return &repository.Store{
		Users:            NewMongoUserRepository(db),
		Courses:          NewMongoCourseRepository(db),
		Sections:         NewMongoSectionRepository(db),
		Assessments:      NewMongoAssessmentRepository(db),
		Submissions:      NewMongoSubmissionRepository(db),
		MentorStudents:   NewMongoMentorAssignmentRepository(db),
		MentorCourses:    NewMongoMentorCourseAssignmentRepository(db),
		Enrollments:      NewMongoEnrollmentRepository(db),
		AssessmentAccess: NewMongoAssessmentAccessRepository(db),
		Progress:         NewMongoProgressRepository(db),
		Announcements:    NewMongoAnnouncementRepository(db),
		Uploads:          NewMongoUploadRepository(db),
		Tx:               &transactor{client: client, enabled: transactions},
	}
}

// EnsureIndexes creates the indexes of every collection. Failures are logged
// and do not stop startup.
func EnsureIndexes(ctx context.Context, db *mongo.Database) {
	EnsureUserIndexes(ctx, db.Collection(userCollectionName))
	EnsureCourseIndexes(ctx, db.Collection(courseCollectionName))
	EnsureSectionIndexes(ctx, db.Collection(sectionCollectionName))
	EnsureAssessmentIndexes(ctx, db.Collection(assessmentCollectionName))
	EnsureSubmissionIndexes(ctx, db.Collection(submissionCollectionName))
	EnsureMentorAssignmentIndexes(ctx, db.Collection(mentorStudentCollectionName))
	EnsureMentorCourseAssignmentIndexes(ctx, db.Collection(mentorCourseCollectionName))
	EnsureEnrollmentIndexes(ctx, db.Collection(enrollmentCollectionName))
	EnsureAssessmentAccessIndexes(ctx, db.Collection(assessmentAccessCollectionName))
	EnsureProgressIndexes(ctx, db.Collection(progressCollectionName))
	EnsureAnnouncementIndexes(ctx, db.Collection(announcementCollectionName))
	EnsureUploadIndexes(ctx, db.Collection(uploadCollectionName))
}

func createIndexes(ctx context.Context, collection *mongo.Collection, indexes []mongo.IndexModel) {
	if _, err := collection.Indexes().CreateMany(ctx, indexes); err != nil {
		glog.Warningf("Failed to create indexes for collection %s: %v", collection.Name(), err)
		return
	}
	glog.V(1).Infof("Indexes ensured for collection %s", collection.Name())
}

type transactor struct {
	client  *mongo.Client
	enabled bool
}

// WithTransaction runs fn inside a session transaction. The session context
// passed to fn carries the session, so repository calls made with it join the
// transaction.
func (t *transactor) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if !t.enabled {
		return fn(ctx)
	}
	session, err := t.client.StartSession()
	if err != nil {
		return err
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return err
}

func (t *transactor) Atomic() bool { return t.enabled }

// findAll runs a query and decodes every document.
func findAll[T any](ctx context.Context, collection *mongo.Collection, filter interface{}, opts ...*options.FindOptions) ([]T, error) {
	cursor, err := collection.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	out := make([]T, 0)
	if err = cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	if err = cursor.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
