package repository

import (
	"alcyxob/learning-platform/internal/domain"
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Error constants for repository layer
var (
	ErrNotFound     = RepositoryError("not found")
	ErrDuplicate    = RepositoryError("duplicate key")
	ErrUpdateFailed = RepositoryError("update failed")
	ErrDeleteFailed = RepositoryError("delete failed")
)

// RepositoryError helps distinguish repository errors
type RepositoryError string

func (e RepositoryError) Error() string {
	return string(e)
}

// Transactor runs fn as one unit of work. Repositories called with the ctx
// handed to fn take part in the transaction when the store supports one.
type Transactor interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
	// Atomic reports whether a failing fn rolls back its writes. When false the
	// caller must compensate partial writes itself.
	Atomic() bool
}

// UserRepository defines the interface for interacting with user data.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (primitive.ObjectID, error) // ErrDuplicate on email
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByIDs(ctx context.Context, ids []primitive.ObjectID) ([]domain.User, error)
	List(ctx context.Context, role domain.Role) ([]domain.User, error) // empty role lists everyone
	Count(ctx context.Context) (int64, error)
	CountByRole(ctx context.Context) (map[domain.Role]int64, error)
	SetPassword(ctx context.Context, id primitive.ObjectID, passwordHash string) error
	SetRole(ctx context.Context, id primitive.ObjectID, role domain.Role) error
	SetSuspended(ctx context.Context, id primitive.ObjectID, suspended bool) error
	AddBannedCourse(ctx context.Context, id, courseID primitive.ObjectID) error
}

// CourseRepository defines the interface for interacting with course data.
type CourseRepository interface {
	Create(ctx context.Context, course *domain.Course) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Course, error)
	GetByAccessCode(ctx context.Context, code string) (*domain.Course, error)
	List(ctx context.Context) ([]domain.Course, error)
	ListByInstructor(ctx context.Context, instructorID primitive.ObjectID) ([]domain.Course, error) // owner or co-instructor
	ListByIDs(ctx context.Context, ids []primitive.ObjectID) ([]domain.Course, error)
	Update(ctx context.Context, course *domain.Course) error
	SetTotalModules(ctx context.Context, id primitive.ObjectID, total int) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	Count(ctx context.Context) (int64, error)
}

// SectionRepository defines the interface for interacting with section data.
type SectionRepository interface {
	Create(ctx context.Context, section *domain.Section) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Section, error)
	ListByCourse(ctx context.Context, courseID primitive.ObjectID, includeDeleted bool) ([]domain.Section, error)
	Update(ctx context.Context, section *domain.Section) error
	// SetDeletedAt soft deletes (non-nil) or restores (nil) a section.
	SetDeletedAt(ctx context.Context, id primitive.ObjectID, at *time.Time) error
	DeleteByCourse(ctx context.Context, courseID primitive.ObjectID) error
}

// AssessmentRepository defines the interface for interacting with assessment data.
type AssessmentRepository interface {
	Create(ctx context.Context, assessment *domain.Assessment) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Assessment, error)
	GetByAccessCode(ctx context.Context, code string) (*domain.Assessment, error)
	List(ctx context.Context) ([]domain.Assessment, error)
	ListByOwner(ctx context.Context, userID primitive.ObjectID) ([]domain.Assessment, error)
	ListByCourses(ctx context.Context, courseIDs []primitive.ObjectID) ([]domain.Assessment, error)
	ListByIDs(ctx context.Context, ids []primitive.ObjectID) ([]domain.Assessment, error)
	Update(ctx context.Context, assessment *domain.Assessment) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	Count(ctx context.Context) (int64, error)
}

// SubmissionRepository stores one submission per (assessment, student).
type SubmissionRepository interface {
	Create(ctx context.Context, submission *domain.Submission) error // ErrDuplicate if already submitted
	GetByKey(ctx context.Context, key string) (*domain.Submission, error)
	ListByAssessment(ctx context.Context, assessmentID primitive.ObjectID) ([]domain.Submission, error)
	ListByStudent(ctx context.Context, studentID primitive.ObjectID) ([]domain.Submission, error)
	DeleteByAssessment(ctx context.Context, assessmentID primitive.ObjectID) (int64, error)
}

// MentorAssignmentRepository stores mentor-student links.
type MentorAssignmentRepository interface {
	Upsert(ctx context.Context, a *domain.MentorAssignment) error
	GetByKey(ctx context.Context, key string) (*domain.MentorAssignment, error)
	ListActiveByMentor(ctx context.Context, mentorID primitive.ObjectID) ([]domain.MentorAssignment, error)
	ListActiveByStudent(ctx context.Context, studentID primitive.ObjectID) ([]domain.MentorAssignment, error)
	SetStatus(ctx context.Context, key string, status domain.AssignmentStatus) error
}

// MentorCourseAssignmentRepository stores mentor-course links.
type MentorCourseAssignmentRepository interface {
	Upsert(ctx context.Context, a *domain.MentorCourseAssignment) error
	GetByKey(ctx context.Context, key string) (*domain.MentorCourseAssignment, error)
	ListActiveByMentor(ctx context.Context, mentorID primitive.ObjectID) ([]domain.MentorCourseAssignment, error)
	ListActiveByCourse(ctx context.Context, courseID primitive.ObjectID) ([]domain.MentorCourseAssignment, error)
	SetStatus(ctx context.Context, key string, status domain.AssignmentStatus) error
}

// EnrollmentRepository stores student-course enrollments.
type EnrollmentRepository interface {
	Upsert(ctx context.Context, e *domain.Enrollment) error
	GetByKey(ctx context.Context, key string) (*domain.Enrollment, error)
	ListActiveByStudent(ctx context.Context, studentID primitive.ObjectID) ([]domain.Enrollment, error)
	ListActiveByCourse(ctx context.Context, courseID primitive.ObjectID) ([]domain.Enrollment, error)
	ListActiveByCourseAndMentor(ctx context.Context, courseID, mentorID primitive.ObjectID) ([]domain.Enrollment, error)
	// SetStatusMany flips every listed key and returns how many records changed.
	SetStatusMany(ctx context.Context, keys []string, status domain.AssignmentStatus) (int64, error)
}

// AssessmentAccessRepository stores per-student assessment grants.
type AssessmentAccessRepository interface {
	GetByKey(ctx context.Context, key string) (*domain.AssessmentAccess, error)
	// ExistingKeys returns the subset of keys that already have a record.
	ExistingKeys(ctx context.Context, keys []string) (map[string]bool, error)
	// BulkUpsert writes all records in one batch and returns how many were new.
	BulkUpsert(ctx context.Context, grants []domain.AssessmentAccess) (int64, error)
	DeleteKeys(ctx context.Context, keys []string) (int64, error)
	ListByStudent(ctx context.Context, studentID primitive.ObjectID) ([]domain.AssessmentAccess, error)
	DeleteByAssessment(ctx context.Context, assessmentID primitive.ObjectID) (int64, error)
	// DeleteGrantedByMentor removes grants made through mentorID. A nil
	// studentID or empty assessmentIDs does not narrow the match.
	DeleteGrantedByMentor(ctx context.Context, mentorID primitive.ObjectID, studentID *primitive.ObjectID, assessmentIDs []primitive.ObjectID) (int64, error)
}

// ProgressRepository tracks completed modules per student and course.
type ProgressRepository interface {
	Get(ctx context.Context, studentID, courseID primitive.ObjectID) (*domain.Progress, error)
	AddCompletedModule(ctx context.Context, studentID, courseID primitive.ObjectID, moduleID string) (*domain.Progress, error)
	ListByCourse(ctx context.Context, courseID primitive.ObjectID) ([]domain.Progress, error)
	ListByStudent(ctx context.Context, studentID primitive.ObjectID) ([]domain.Progress, error)
}

// AnnouncementRepository stores course announcements.
type AnnouncementRepository interface {
	Create(ctx context.Context, a *domain.Announcement) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Announcement, error)
	ListByCourses(ctx context.Context, courseIDs []primitive.ObjectID, limit int) ([]domain.Announcement, error) // newest first
	Delete(ctx context.Context, id primitive.ObjectID) error
}

// UploadRepository defines the interface for interacting with upload metadata.
type UploadRepository interface {
	Create(ctx context.Context, upload *domain.Upload) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Upload, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
}

// Store bundles every repository of one backend.
type Store struct {
	Users            UserRepository
	Courses          CourseRepository
	Sections         SectionRepository
	Assessments      AssessmentRepository
	Submissions      SubmissionRepository
	MentorStudents   MentorAssignmentRepository
	MentorCourses    MentorCourseAssignmentRepository
	Enrollments      EnrollmentRepository
	AssessmentAccess AssessmentAccessRepository
	Progress         ProgressRepository
	Announcements    AnnouncementRepository
	Uploads          UploadRepository
	Tx               Transactor
}
