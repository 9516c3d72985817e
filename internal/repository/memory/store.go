// Package memory implements the repository interfaces in process memory. It
// backs the test suites and the `memory` database driver used for local runs.
//
// Documents are copied through the BSON codec on every read and write, so
// callers never share state with the store and field tags behave as they do
// against MongoDB.
package memory

import (
	"context"
	"sort"
	"sync"

	"alcyxob/learning-platform/internal/domain"
	"alcyxob/learning-platform/internal/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type db struct {
	mu sync.RWMutex

	users            map[primitive.ObjectID]domain.User
	courses          map[primitive.ObjectID]domain.Course
	sections         map[primitive.ObjectID]domain.Section
	assessments      map[primitive.ObjectID]domain.Assessment
	submissions      map[string]domain.Submission
	mentorStudents   map[string]domain.MentorAssignment
	mentorCourses    map[string]domain.MentorCourseAssignment
	enrollments      map[string]domain.Enrollment
	assessmentAccess map[string]domain.AssessmentAccess
	progress         map[string]domain.Progress
	announcements    map[primitive.ObjectID]domain.Announcement
	uploads          map[primitive.ObjectID]domain.Upload
}

// NewStore returns an empty in-memory store.
func NewStore() *repository.Store {
	d := &db{
		users:            map[primitive.ObjectID]domain.User{},
		courses:          map[primitive.ObjectID]domain.Course{},
		sections:         map[primitive.ObjectID]domain.Section{},
		assessments:      map[primitive.ObjectID]domain.Assessment{},
		submissions:      map[string]domain.Submission{},
		mentorStudents:   map[string]domain.MentorAssignment{},
		mentorCourses:    map[string]domain.MentorCourseAssignment{},
		enrollments:      map[string]domain.Enrollment{},
		assessmentAccess: map[string]domain.AssessmentAccess{},
		progress:         map[string]domain.Progress{},
		announcements:    map[primitive.ObjectID]domain.Announcement{},
		uploads:          map[primitive.ObjectID]domain.Upload{},
	}
	return &repository.Store{
		Users:            &userRepo{d},
		Courses:          &courseRepo{d},
		Sections:         &sectionRepo{d},
		Assessments:      &assessmentRepo{d},
		Submissions:      &submissionRepo{d},
		MentorStudents:   &mentorStudentRepo{d},
		MentorCourses:    &mentorCourseRepo{d},
		Enrollments:      &enrollmentRepo{d},
		AssessmentAccess: &accessRepo{d},
		Progress:         &progressRepo{d},
		Announcements:    &announcementRepo{d},
		Uploads:          &uploadRepo{d},
		Tx:               transactor{},
	}
}

// transactor has no rollback; services fall back to compensation.
type transactor struct{}

func (transactor) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (transactor) Atomic() bool { return false }

// clone deep copies a document through its BSON encoding. Domain documents
// are always encodable, so a failure is a programming error.
func clone[T any](v T) T {
	raw, err := bson.Marshal(v)
	if err != nil {
		panic("memory: encode document: " + err.Error())
	}
	var out T
	if err := bson.Unmarshal(raw, &out); err != nil {
		panic("memory: decode document: " + err.Error())
	}
	return out
}

// collect clones every value accepted by keep, ordered by less.
func collect[K comparable, T any](rows map[K]T, keep func(*T) bool, less func(a, b *T) bool) []T {
	out := make([]T, 0)
	for _, v := range rows {
		if keep == nil || keep(&v) {
			out = append(out, clone(v))
		}
	}
	if less != nil {
		sort.Slice(out, func(i, j int) bool { return less(&out[i], &out[j]) })
	}
	return out
}

func idSet(ids []primitive.ObjectID) map[primitive.ObjectID]bool {
	set := make(map[primitive.ObjectID]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}
