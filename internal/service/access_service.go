package service

import (
	"alcyxob/learning-platform/internal/authz"
	"alcyxob/learning-platform/internal/domain"
	"alcyxob/learning-platform/internal/repository"
	"context"
	"errors"
	"fmt"

	"github.com/golang/glog"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// --- Error Definitions ---
var (
	ErrNotMentor                = errors.New("user is not a mentor")
	ErrNotStudent               = errors.New("user is not a student")
	ErrMentorCourseNotAssigned  = errors.New("mentor is not assigned to this course")
	ErrMentorStudentNotAssigned = errors.New("student is not assigned to this mentor")
	ErrAssignmentNotFound       = errors.New("assignment not found")
	ErrBannedFromCourse         = errors.New("student is banned from this course")
	// ErrPartialUnassign means a multi-step unassign failed and its
	// compensation failed too; the records may be left inconsistent.
	ErrPartialUnassign = errors.New("unassign partially applied and could not be rolled back")
)

// UnassignResult reports the side effects of removing a mentor from a course.
type UnassignResult struct {
	EnrollmentsDeactivated int64 `json:"enrollmentsDeactivated"`
	AccessRevoked          int64 `json:"accessRevoked"`
}

// GrantResult reports a batch assessment grant.
type GrantResult struct {
	Students int   `json:"students"`
	Granted  int64 `json:"granted"`
	Skipped  int64 `json:"skipped"`
}

// AccessService manages mentor-course, mentor-student and assessment access
// records and propagates changes between them.
type AccessService interface {
	AssignCourseToMentor(ctx context.Context, p domain.Principal, mentorID, courseID primitive.ObjectID) (*domain.MentorCourseAssignment, error)
	UnassignCourseFromMentor(ctx context.Context, p domain.Principal, mentorID, courseID primitive.ObjectID) (*UnassignResult, error)
	AssignStudentToMentor(ctx context.Context, p domain.Principal, mentorID, studentID primitive.ObjectID) (*domain.MentorAssignment, error)
	UnassignStudentFromMentor(ctx context.Context, p domain.Principal, mentorID, studentID primitive.ObjectID) (revoked int64, err error)
	AssignAssessmentsToMentorStudents(ctx context.Context, p domain.Principal, mentorID primitive.ObjectID, assessmentIDs []primitive.ObjectID) (*GrantResult, error)
	UnassignAssessmentFromMentor(ctx context.Context, p domain.Principal, mentorID, assessmentID primitive.ObjectID) (int64, error)
	EnrollStudent(ctx context.Context, p domain.Principal, mentorID, studentID, courseID primitive.ObjectID) (*domain.Enrollment, error)
	ListMentorCourses(ctx context.Context, p domain.Principal, mentorID primitive.ObjectID) ([]domain.Course, error)
	ListMentorStudents(ctx context.Context, p domain.Principal, mentorID primitive.ObjectID) ([]domain.User, error)
	HasAssessmentAccess(ctx context.Context, studentID primitive.ObjectID, assessment *domain.Assessment) (bool, error)
}

// AccessOptions tunes propagation behavior.
type AccessOptions struct {
	// CascadeOnCourseUnassign also deletes assessment grants the mentor made
	// for the course's assessments.
	CascadeOnCourseUnassign bool
}

type accessService struct {
	userRepo          repository.UserRepository
	courseRepo        repository.CourseRepository
	assessmentRepo    repository.AssessmentRepository
	mentorStudentRepo repository.MentorAssignmentRepository
	mentorCourseRepo  repository.MentorCourseAssignmentRepository
	enrollmentRepo    repository.EnrollmentRepository
	accessRepo        repository.AssessmentAccessRepository
	tx                repository.Transactor
	opts              AccessOptions
}

// NewAccessService creates a new instance of accessService.
func NewAccessService(
	userRepo repository.UserRepository,
	courseRepo repository.CourseRepository,
	assessmentRepo repository.AssessmentRepository,
	mentorStudentRepo repository.MentorAssignmentRepository,
	mentorCourseRepo repository.MentorCourseAssignmentRepository,
	enrollmentRepo repository.EnrollmentRepository,
	accessRepo repository.AssessmentAccessRepository,
	tx repository.Transactor,
	opts AccessOptions,
) AccessService {
	return &accessService{
		userRepo:          userRepo,
		courseRepo:        courseRepo,
		assessmentRepo:    assessmentRepo,
		mentorStudentRepo: mentorStudentRepo,
		mentorCourseRepo:  mentorCourseRepo,
		enrollmentRepo:    enrollmentRepo,
		accessRepo:        accessRepo,
		tx:                tx,
		opts:              opts,
	}
}

// === Mentor <-> Course ===

// AssignCourseToMentor upserts an active mentor-course link. Repeating the call
// leaves exactly one active record.
func (s *accessService) AssignCourseToMentor(ctx context.Context, p domain.Principal, mentorID, courseID primitive.ObjectID) (*domain.MentorCourseAssignment, error) {
	if err := authz.RequireAdmin(p); err != nil {
		return nil, err
	}
	if _, err := s.requireRole(ctx, mentorID, domain.RoleMentor, ErrNotMentor); err != nil {
		return nil, err
	}
	if _, err := s.courseRepo.GetByID(ctx, courseID); err != nil {
		return nil, notFound(err, ErrCourseNotFound)
	}

	a := &domain.MentorCourseAssignment{
		ID:       domain.MentorCourseKey(mentorID, courseID),
		MentorID: mentorID,
		CourseID: courseID,
		Status:   domain.StatusActive,
	}
	if err := s.mentorCourseRepo.Upsert(ctx, a); err != nil {
		return nil, err
	}
	glog.Infof("Course %s assigned to mentor %s", courseID.Hex(), mentorID.Hex())
	return a, nil
}

// UnassignCourseFromMentor deactivates the mentor-course link and every active
// enrollment the mentor holds in that course. Both steps run in one unit of
// work; without transactions a failure in the second step restores the first.
func (s *accessService) UnassignCourseFromMentor(ctx context.Context, p domain.Principal, mentorID, courseID primitive.ObjectID) (*UnassignResult, error) {
	if err := authz.RequireAdmin(p); err != nil {
		return nil, err
	}
	key := domain.MentorCourseKey(mentorID, courseID)
	existing, err := s.mentorCourseRepo.GetByKey(ctx, key)
	if err != nil {
		return nil, notFound(err, ErrAssignmentNotFound)
	}

	result := &UnassignResult{}
	err = s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		*result = UnassignResult{}
		if err := s.mentorCourseRepo.SetStatus(ctx, key, domain.StatusInactive); err != nil {
			return err
		}
		undo := func(cause error, enrollmentKeys []string) error {
			return s.compensateCourseUnassign(ctx, key, existing.Status, enrollmentKeys, cause)
		}

		enrollments, err := s.enrollmentRepo.ListActiveByCourseAndMentor(ctx, courseID, mentorID)
		if err != nil {
			return undo(err, nil)
		}
		keys := make([]string, len(enrollments))
		for i, e := range enrollments {
			keys[i] = e.ID
		}
		n, err := s.enrollmentRepo.SetStatusMany(ctx, keys, domain.StatusInactive)
		if err != nil {
			return undo(err, nil)
		}
		result.EnrollmentsDeactivated = n

		if s.opts.CascadeOnCourseUnassign {
			revoked, err := s.revokeCourseGrants(ctx, mentorID, courseID)
			if err != nil {
				return undo(err, keys)
			}
			result.AccessRevoked = revoked
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	glog.Infof("Course %s unassigned from mentor %s: %d enrollments deactivated, %d grants revoked",
		courseID.Hex(), mentorID.Hex(), result.EnrollmentsDeactivated, result.AccessRevoked)
	return result, nil
}

// compensateCourseUnassign restores the mentor-course status and reactivates
// enrollmentKeys after a failed step. Under a real transaction the rollback
// does the work and cause is returned as is.
func (s *accessService) compensateCourseUnassign(ctx context.Context, key string, prev domain.AssignmentStatus, enrollmentKeys []string, cause error) error {
	if s.tx.Atomic() {
		return cause
	}
	glog.Warningf("Unassign of %s failed (%v), restoring previous state", key, cause)

	var failures []error
	if len(enrollmentKeys) > 0 {
		if _, err := s.enrollmentRepo.SetStatusMany(ctx, enrollmentKeys, domain.StatusActive); err != nil {
			failures = append(failures, err)
		}
	}
	if err := s.mentorCourseRepo.SetStatus(ctx, key, prev); err != nil {
		failures = append(failures, err)
	}
	if len(failures) > 0 {
		glog.Errorf("Compensation for %s failed: %v", key, errors.Join(failures...))
		return fmt.Errorf("%w: %v (compensation: %v)", ErrPartialUnassign, cause, errors.Join(failures...))
	}
	return cause
}

func (s *accessService) revokeCourseGrants(ctx context.Context, mentorID, courseID primitive.ObjectID) (int64, error) {
	assessments, err := s.assessmentRepo.ListByCourses(ctx, []primitive.ObjectID{courseID})
	if err != nil {
		return 0, err
	}
	if len(assessments) == 0 {
		return 0, nil
	}
	ids := make([]primitive.ObjectID, len(assessments))
	for i := range assessments {
		ids[i] = assessments[i].ID
	}
	return s.accessRepo.DeleteGrantedByMentor(ctx, mentorID, nil, ids)
}

// === Mentor <-> Student ===

func (s *accessService) AssignStudentToMentor(ctx context.Context, p domain.Principal, mentorID, studentID primitive.ObjectID) (*domain.MentorAssignment, error) {
	if err := authz.RequireAdmin(p); err != nil {
		return nil, err
	}
	if _, err := s.requireRole(ctx, mentorID, domain.RoleMentor, ErrNotMentor); err != nil {
		return nil, err
	}
	if _, err := s.requireRole(ctx, studentID, domain.RoleStudent, ErrNotStudent); err != nil {
		return nil, err
	}

	a := &domain.MentorAssignment{
		ID:        domain.MentorStudentKey(mentorID, studentID),
		MentorID:  mentorID,
		StudentID: studentID,
		Status:    domain.StatusActive,
	}
	if err := s.mentorStudentRepo.Upsert(ctx, a); err != nil {
		return nil, err
	}
	glog.Infof("Student %s assigned to mentor %s", studentID.Hex(), mentorID.Hex())
	return a, nil
}

// UnassignStudentFromMentor deactivates the link and deletes every assessment
// grant the mentor made to that student.
func (s *accessService) UnassignStudentFromMentor(ctx context.Context, p domain.Principal, mentorID, studentID primitive.ObjectID) (int64, error) {
	if err := authz.RequireAdmin(p); err != nil {
		return 0, err
	}
	key := domain.MentorStudentKey(mentorID, studentID)
	existing, err := s.mentorStudentRepo.GetByKey(ctx, key)
	if err != nil {
		return 0, notFound(err, ErrAssignmentNotFound)
	}

	var revoked int64
	err = s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		if err := s.mentorStudentRepo.SetStatus(ctx, key, domain.StatusInactive); err != nil {
			return err
		}
		n, err := s.accessRepo.DeleteGrantedByMentor(ctx, mentorID, &studentID, nil)
		if err != nil {
			if s.tx.Atomic() {
				return err
			}
			if cerr := s.mentorStudentRepo.SetStatus(ctx, key, existing.Status); cerr != nil {
				return fmt.Errorf("%w: %v (compensation: %v)", ErrPartialUnassign, err, cerr)
			}
			return err
		}
		revoked = n
		return nil
	})
	if err != nil {
		return 0, err
	}
	glog.Infof("Student %s unassigned from mentor %s, %d grants revoked", studentID.Hex(), mentorID.Hex(), revoked)
	return revoked, nil
}

// === Assessment access ===

// AssignAssessmentsToMentorStudents grants every active student of the mentor
// access to each assessment. Existing grants are skipped, missing ones are
// written in one batch.
func (s *accessService) AssignAssessmentsToMentorStudents(ctx context.Context, p domain.Principal, mentorID primitive.ObjectID, assessmentIDs []primitive.ObjectID) (*GrantResult, error) {
	if !authz.CanActForMentor(p, mentorID) {
		return nil, ErrAccessDenied
	}
	ids := uniqueIDs(assessmentIDs)
	if len(ids) == 0 {
		return nil, invalidf("at least one assessment is required")
	}
	if _, err := s.requireRole(ctx, mentorID, domain.RoleMentor, ErrNotMentor); err != nil {
		return nil, err
	}

	assessments, err := s.assessmentRepo.ListByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	if len(assessments) != len(ids) {
		return nil, ErrAssessmentNotFound
	}
	if !p.IsAdmin() {
		for i := range assessments {
			ok, err := s.mentorMayGrant(ctx, mentorID, &assessments[i])
			if err != nil {
				return nil, err
			}
			if !ok {
				return nil, ErrAccessDenied
			}
		}
	}

	links, err := s.mentorStudentRepo.ListActiveByMentor(ctx, mentorID)
	if err != nil {
		return nil, err
	}
	result := &GrantResult{Students: len(links)}
	if len(links) == 0 {
		return result, nil
	}

	source := domain.AccessFromMentor
	if p.IsAdmin() {
		source = domain.AccessFromAdmin
	}
	grants := make([]domain.AssessmentAccess, 0, len(links)*len(ids))
	keys := make([]string, 0, cap(grants))
	for _, link := range links {
		for _, assessmentID := range ids {
			mentor := mentorID
			key := domain.AssessmentAccessKey(link.StudentID, assessmentID)
			keys = append(keys, key)
			grants = append(grants, domain.AssessmentAccess{
				ID:           key,
				StudentID:    link.StudentID,
				AssessmentID: assessmentID,
				MentorID:     &mentor,
				GrantedBy:    p.UserID,
				Source:       source,
			})
		}
	}

	existing, err := s.accessRepo.ExistingKeys(ctx, keys)
	if err != nil {
		return nil, err
	}
	missing := grants[:0]
	for _, g := range grants {
		if !existing[g.ID] {
			missing = append(missing, g)
		}
	}

	granted, err := s.accessRepo.BulkUpsert(ctx, missing)
	if err != nil {
		return nil, err
	}
	result.Granted = granted
	result.Skipped = int64(len(keys)) - granted

	glog.Infof("Mentor %s: granted %d, skipped %d assessment access records for %d students",
		mentorID.Hex(), result.Granted, result.Skipped, result.Students)
	return result, nil
}

// mentorMayGrant: the mentor owns the assessment or it belongs to one of the
// mentor's active courses.
func (s *accessService) mentorMayGrant(ctx context.Context, mentorID primitive.ObjectID, a *domain.Assessment) (bool, error) {
	if a.IsOwnedBy(mentorID) {
		return true, nil
	}
	if a.CourseID == nil {
		return false, nil
	}
	return s.mentorHasCourse(ctx, mentorID, *a.CourseID)
}

func (s *accessService) mentorHasCourse(ctx context.Context, mentorID, courseID primitive.ObjectID) (bool, error) {
	return hasActiveMentorCourse(ctx, s.mentorCourseRepo, mentorID, courseID)
}

func hasActiveMentorCourse(ctx context.Context, repo repository.MentorCourseAssignmentRepository, mentorID, courseID primitive.ObjectID) (bool, error) {
	link, err := repo.GetByKey(ctx, domain.MentorCourseKey(mentorID, courseID))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return link.Status == domain.StatusActive, nil
}

// UnassignAssessmentFromMentor deletes the access records of the mentor's
// current students for one assessment and returns how many were removed.
func (s *accessService) UnassignAssessmentFromMentor(ctx context.Context, p domain.Principal, mentorID, assessmentID primitive.ObjectID) (int64, error) {
	if !authz.CanActForMentor(p, mentorID) {
		return 0, ErrAccessDenied
	}
	links, err := s.mentorStudentRepo.ListActiveByMentor(ctx, mentorID)
	if err != nil {
		return 0, err
	}
	keys := make([]string, len(links))
	for i, link := range links {
		keys[i] = domain.AssessmentAccessKey(link.StudentID, assessmentID)
	}
	n, err := s.accessRepo.DeleteKeys(ctx, keys)
	if err != nil {
		return 0, err
	}
	glog.Infof("Mentor %s: removed %d access records for assessment %s", mentorID.Hex(), n, assessmentID.Hex())
	return n, nil
}

// HasAssessmentAccess: an explicit grant, or an active enrollment in the
// assessment's course.
func (s *accessService) HasAssessmentAccess(ctx context.Context, studentID primitive.ObjectID, a *domain.Assessment) (bool, error) {
	return hasAssessmentAccess(ctx, s.accessRepo, s.enrollmentRepo, studentID, a)
}

func hasAssessmentAccess(ctx context.Context, accessRepo repository.AssessmentAccessRepository, enrollmentRepo repository.EnrollmentRepository, studentID primitive.ObjectID, a *domain.Assessment) (bool, error) {
	_, err := accessRepo.GetByKey(ctx, domain.AssessmentAccessKey(studentID, a.ID))
	if err == nil {
		return true, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return false, err
	}
	if a.CourseID == nil {
		return false, nil
	}
	return isActivelyEnrolled(ctx, enrollmentRepo, studentID, *a.CourseID)
}

func isActivelyEnrolled(ctx context.Context, enrollmentRepo repository.EnrollmentRepository, studentID, courseID primitive.ObjectID) (bool, error) {
	e, err := enrollmentRepo.GetByKey(ctx, domain.EnrollmentKey(studentID, courseID))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return e.Status == domain.StatusActive, nil
}

// === Enrollment through a mentor ===

// EnrollStudent enrolls one of the mentor's students in one of the mentor's
// courses. Both links must be active.
func (s *accessService) EnrollStudent(ctx context.Context, p domain.Principal, mentorID, studentID, courseID primitive.ObjectID) (*domain.Enrollment, error) {
	if !authz.CanActForMentor(p, mentorID) {
		return nil, ErrAccessDenied
	}
	ok, err := s.mentorHasCourse(ctx, mentorID, courseID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrMentorCourseNotAssigned
	}
	link, err := s.mentorStudentRepo.GetByKey(ctx, domain.MentorStudentKey(mentorID, studentID))
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	if link == nil || link.Status != domain.StatusActive {
		return nil, ErrMentorStudentNotAssigned
	}
	student, err := s.userRepo.GetByID(ctx, studentID)
	if err != nil {
		return nil, notFound(err, ErrUserNotFound)
	}
	if student.IsBannedFrom(courseID) {
		return nil, ErrBannedFromCourse
	}

	mentor := mentorID
	e := &domain.Enrollment{
		ID:        domain.EnrollmentKey(studentID, courseID),
		StudentID: studentID,
		CourseID:  courseID,
		MentorID:  &mentor,
		Status:    domain.StatusActive,
	}
	if err := s.enrollmentRepo.Upsert(ctx, e); err != nil {
		return nil, err
	}
	glog.Infof("Student %s enrolled in course %s by mentor %s", studentID.Hex(), courseID.Hex(), mentorID.Hex())
	return e, nil
}

// === Listing ===

func (s *accessService) ListMentorCourses(ctx context.Context, p domain.Principal, mentorID primitive.ObjectID) ([]domain.Course, error) {
	if !authz.CanActForMentor(p, mentorID) {
		return nil, ErrAccessDenied
	}
	links, err := s.mentorCourseRepo.ListActiveByMentor(ctx, mentorID)
	if err != nil {
		return nil, err
	}
	ids := make([]primitive.ObjectID, len(links))
	for i, l := range links {
		ids[i] = l.CourseID
	}
	return s.courseRepo.ListByIDs(ctx, ids)
}

func (s *accessService) ListMentorStudents(ctx context.Context, p domain.Principal, mentorID primitive.ObjectID) ([]domain.User, error) {
	if !authz.CanActForMentor(p, mentorID) {
		return nil, ErrAccessDenied
	}
	links, err := s.mentorStudentRepo.ListActiveByMentor(ctx, mentorID)
	if err != nil {
		return nil, err
	}
	ids := make([]primitive.ObjectID, len(links))
	for i, l := range links {
		ids[i] = l.StudentID
	}
	users, err := s.userRepo.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range users {
		users[i].PasswordHash = ""
	}
	return users, nil
}

func (s *accessService) requireRole(ctx context.Context, id primitive.ObjectID, role domain.Role, wrongRole error) (*domain.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, ErrUserNotFound)
	}
	if user.Role != role {
		return nil, wrongRole
	}
	return user, nil
}

func uniqueIDs(ids []primitive.ObjectID) []primitive.ObjectID {
	seen := make(map[primitive.ObjectID]bool, len(ids))
	out := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		if id.IsZero() || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
