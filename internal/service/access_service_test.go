package service

import (
	"context"
	"errors"
	"testing"

	"alcyxob/learning-platform/internal/domain"
	"alcyxob/learning-platform/internal/repository"
	"alcyxob/learning-platform/internal/repository/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var errInjected = errors.New("injected failure")

// failingEnrollments fails SetStatusMany calls that move records to failOn.
type failingEnrollments struct {
	repository.EnrollmentRepository
	failOn domain.AssignmentStatus
}

func (r *failingEnrollments) SetStatusMany(ctx context.Context, keys []string, status domain.AssignmentStatus) (int64, error) {
	if status == r.failOn {
		return 0, errInjected
	}
	return r.EnrollmentRepository.SetStatusMany(ctx, keys, status)
}

// failingMentorCourses fails SetStatus calls that move the link to failOn.
type failingMentorCourses struct {
	repository.MentorCourseAssignmentRepository
	failOn domain.AssignmentStatus
}

func (r *failingMentorCourses) SetStatus(ctx context.Context, key string, status domain.AssignmentStatus) error {
	if status == r.failOn {
		return errInjected
	}
	return r.MentorCourseAssignmentRepository.SetStatus(ctx, key, status)
}

type failingAccess struct {
	repository.AssessmentAccessRepository
}

func (r *failingAccess) DeleteGrantedByMentor(context.Context, primitive.ObjectID, *primitive.ObjectID, []primitive.ObjectID) (int64, error) {
	return 0, errInjected
}

func TestAssignCourseToMentorIsIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	admin := f.user(t, domain.RoleAdmin)
	course := f.course(t, f.user(t, domain.RoleInstructor))
	mentor := f.user(t, domain.RoleMentor)

	for i := 0; i < 3; i++ {
		a, err := f.access.AssignCourseToMentor(ctx, admin, mentor.UserID, course.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.MentorCourseKey(mentor.UserID, course.ID), a.ID)
	}

	links, err := f.store.MentorCourses.ListActiveByMentor(ctx, mentor.UserID)
	require.NoError(t, err)
	assert.Len(t, links, 1)
}

func TestAssignCourseToMentorChecks(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	admin := f.user(t, domain.RoleAdmin)
	instructor := f.user(t, domain.RoleInstructor)
	course := f.course(t, instructor)
	mentor := f.user(t, domain.RoleMentor)

	_, err := f.access.AssignCourseToMentor(ctx, instructor, mentor.UserID, course.ID)
	assert.ErrorIs(t, err, ErrAccessDenied)

	_, err = f.access.AssignCourseToMentor(ctx, admin, instructor.UserID, course.ID)
	assert.ErrorIs(t, err, ErrNotMentor)

	_, err = f.access.AssignCourseToMentor(ctx, admin, mentor.UserID, primitive.NewObjectID())
	assert.ErrorIs(t, err, ErrCourseNotFound)
}

func TestUnassignCourseDeactivatesMentorEnrollments(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	admin := f.user(t, domain.RoleAdmin)
	course := f.course(t, f.user(t, domain.RoleInstructor))
	mentor := f.mentorWithCourse(t, admin, course)
	for i := 0; i < 3; i++ {
		f.enrolledStudent(t, admin, mentor, course)
	}
	other := f.mentorWithCourse(t, admin, course)
	untouched := f.enrolledStudent(t, admin, other, course)

	res, err := f.access.UnassignCourseFromMentor(ctx, admin, mentor.UserID, course.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 3, res.EnrollmentsDeactivated)

	link, err := f.store.MentorCourses.GetByKey(ctx, domain.MentorCourseKey(mentor.UserID, course.ID))
	require.NoError(t, err)
	assert.Equal(t, domain.StatusInactive, link.Status)

	active, err := f.store.Enrollments.ListActiveByCourse(ctx, course.ID)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, untouched.UserID, active[0].StudentID)

	again, err := f.access.UnassignCourseFromMentor(ctx, admin, mentor.UserID, course.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 0, again.EnrollmentsDeactivated)
}

func TestUnassignCourseUnknownAssignment(t *testing.T) {
	f := newFixture(t)
	admin := f.user(t, domain.RoleAdmin)
	_, err := f.access.UnassignCourseFromMentor(context.Background(), admin, primitive.NewObjectID(), primitive.NewObjectID())
	assert.ErrorIs(t, err, ErrAssignmentNotFound)
}

func TestUnassignCourseRestoresLinkWhenEnrollmentStepFails(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	f := newFixtureWith(t, store, AccessOptions{})
	admin := f.user(t, domain.RoleAdmin)
	course := f.course(t, f.user(t, domain.RoleInstructor))
	mentor := f.mentorWithCourse(t, admin, course)
	student := f.enrolledStudent(t, admin, mentor, course)

	broken := *store
	broken.Enrollments = &failingEnrollments{EnrollmentRepository: store.Enrollments, failOn: domain.StatusInactive}
	f = newFixtureWith(t, &broken, AccessOptions{})

	_, err := f.access.UnassignCourseFromMentor(ctx, admin, mentor.UserID, course.ID)
	require.ErrorIs(t, err, errInjected)
	assert.NotErrorIs(t, err, ErrPartialUnassign)

	link, err := store.MentorCourses.GetByKey(ctx, domain.MentorCourseKey(mentor.UserID, course.ID))
	require.NoError(t, err)
	assert.Equal(t, domain.StatusActive, link.Status)

	e, err := store.Enrollments.GetByKey(ctx, domain.EnrollmentKey(student.UserID, course.ID))
	require.NoError(t, err)
	assert.Equal(t, domain.StatusActive, e.Status)
}

func TestUnassignCourseReactivatesEnrollmentsWhenCascadeFails(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	f := newFixtureWith(t, store, AccessOptions{})
	admin := f.user(t, domain.RoleAdmin)
	course := f.course(t, f.user(t, domain.RoleInstructor))
	mentor := f.mentorWithCourse(t, admin, course)
	student := f.enrolledStudent(t, admin, mentor, course)
	_, err := f.assessments.CreateAssessment(ctx, mentor, AssessmentInput{Title: "t", Questions: quiz(), CourseID: &course.ID})
	require.NoError(t, err)

	broken := *store
	broken.AssessmentAccess = &failingAccess{store.AssessmentAccess}
	f = newFixtureWith(t, &broken, AccessOptions{CascadeOnCourseUnassign: true})

	_, err = f.access.UnassignCourseFromMentor(ctx, admin, mentor.UserID, course.ID)
	require.ErrorIs(t, err, errInjected)

	e, err := store.Enrollments.GetByKey(ctx, domain.EnrollmentKey(student.UserID, course.ID))
	require.NoError(t, err)
	assert.Equal(t, domain.StatusActive, e.Status)
	link, err := store.MentorCourses.GetByKey(ctx, domain.MentorCourseKey(mentor.UserID, course.ID))
	require.NoError(t, err)
	assert.Equal(t, domain.StatusActive, link.Status)
}

func TestUnassignCoursePartialWhenCompensationFails(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	f := newFixtureWith(t, store, AccessOptions{})
	admin := f.user(t, domain.RoleAdmin)
	course := f.course(t, f.user(t, domain.RoleInstructor))
	mentor := f.mentorWithCourse(t, admin, course)
	f.enrolledStudent(t, admin, mentor, course)

	broken := *store
	broken.Enrollments = &failingEnrollments{EnrollmentRepository: store.Enrollments, failOn: domain.StatusInactive}
	broken.MentorCourses = &failingMentorCourses{MentorCourseAssignmentRepository: store.MentorCourses, failOn: domain.StatusActive}
	f = newFixtureWith(t, &broken, AccessOptions{})

	_, err := f.access.UnassignCourseFromMentor(ctx, admin, mentor.UserID, course.ID)
	assert.ErrorIs(t, err, ErrPartialUnassign)
}

func TestUnassignCourseCascadeRevokesMentorGrants(t *testing.T) {
	ctx := context.Background()
	f := newFixtureWith(t, memory.NewStore(), AccessOptions{CascadeOnCourseUnassign: true})
	admin := f.user(t, domain.RoleAdmin)
	course := f.course(t, f.user(t, domain.RoleInstructor))
	mentor := f.mentorWithCourse(t, admin, course)
	f.enrolledStudent(t, admin, mentor, course)
	f.enrolledStudent(t, admin, mentor, course)
	a, err := f.assessments.CreateAssessment(ctx, mentor, AssessmentInput{Title: "t", Questions: quiz(), CourseID: &course.ID})
	require.NoError(t, err)
	grant, err := f.access.AssignAssessmentsToMentorStudents(ctx, mentor, mentor.UserID, []primitive.ObjectID{a.ID})
	require.NoError(t, err)
	require.EqualValues(t, 2, grant.Granted)

	res, err := f.access.UnassignCourseFromMentor(ctx, admin, mentor.UserID, course.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, res.EnrollmentsDeactivated)
	assert.EqualValues(t, 2, res.AccessRevoked)
}

func TestAssignAssessmentsGrantsOnlyMissingPairs(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	admin := f.user(t, domain.RoleAdmin)
	course := f.course(t, f.user(t, domain.RoleInstructor))
	mentor := f.mentorWithCourse(t, admin, course)
	f.enrolledStudent(t, admin, mentor, course)
	f.enrolledStudent(t, admin, mentor, course)

	var ids []primitive.ObjectID
	for i := 0; i < 2; i++ {
		a, err := f.assessments.CreateAssessment(ctx, mentor, AssessmentInput{Title: "t", Questions: quiz(), CourseID: &course.ID})
		require.NoError(t, err)
		ids = append(ids, a.ID)
	}

	res, err := f.access.AssignAssessmentsToMentorStudents(ctx, mentor, mentor.UserID, append(ids, ids[0]))
	require.NoError(t, err)
	assert.Equal(t, GrantResult{Students: 2, Granted: 4, Skipped: 0}, *res)

	res, err = f.access.AssignAssessmentsToMentorStudents(ctx, mentor, mentor.UserID, ids)
	require.NoError(t, err)
	assert.Equal(t, GrantResult{Students: 2, Granted: 0, Skipped: 4}, *res)

	newcomer := f.enrolledStudent(t, admin, mentor, course)
	res, err = f.access.AssignAssessmentsToMentorStudents(ctx, admin, mentor.UserID, ids)
	require.NoError(t, err)
	assert.Equal(t, GrantResult{Students: 3, Granted: 2, Skipped: 4}, *res)

	grants, err := f.store.AssessmentAccess.ListByStudent(ctx, newcomer.UserID)
	require.NoError(t, err)
	require.Len(t, grants, 2)
	assert.Equal(t, domain.AccessFromAdmin, grants[0].Source)
}

func TestAssignAssessmentsScope(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	admin := f.user(t, domain.RoleAdmin)
	instructor := f.user(t, domain.RoleInstructor)
	course := f.course(t, instructor)
	mentor := f.mentorWithCourse(t, admin, course)
	otherMentor := f.user(t, domain.RoleMentor)

	foreign, err := f.assessments.CreateAssessment(ctx, instructor, AssessmentInput{Title: "t", Questions: quiz()})
	require.NoError(t, err)

	_, err = f.access.AssignAssessmentsToMentorStudents(ctx, mentor, mentor.UserID, []primitive.ObjectID{foreign.ID})
	assert.ErrorIs(t, err, ErrAccessDenied)

	_, err = f.access.AssignAssessmentsToMentorStudents(ctx, otherMentor, mentor.UserID, []primitive.ObjectID{foreign.ID})
	assert.ErrorIs(t, err, ErrAccessDenied)

	_, err = f.access.AssignAssessmentsToMentorStudents(ctx, mentor, mentor.UserID, []primitive.ObjectID{primitive.NewObjectID()})
	assert.ErrorIs(t, err, ErrAssessmentNotFound)

	_, err = f.access.AssignAssessmentsToMentorStudents(ctx, mentor, mentor.UserID, nil)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestUnassignAssessmentRemovesStudentAccess(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	admin := f.user(t, domain.RoleAdmin)
	course := f.course(t, f.user(t, domain.RoleInstructor))
	mentor := f.mentorWithCourse(t, admin, course)
	s1 := f.enrolledStudent(t, admin, mentor, course)
	f.enrolledStudent(t, admin, mentor, course)

	// Unlinked, so access comes only from the grant.
	a, err := f.assessments.CreateAssessment(ctx, admin, AssessmentInput{Title: "t", Questions: quiz()})
	require.NoError(t, err)
	_, err = f.access.AssignAssessmentsToMentorStudents(ctx, admin, mentor.UserID, []primitive.ObjectID{a.ID})
	require.NoError(t, err)

	ok, err := f.access.HasAssessmentAccess(ctx, s1.UserID, a)
	require.NoError(t, err)
	assert.True(t, ok)

	n, err := f.access.UnassignAssessmentFromMentor(ctx, mentor, mentor.UserID, a.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	ok, err = f.access.HasAssessmentAccess(ctx, s1.UserID, a)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUnassignStudentRevokesMentorGrants(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	admin := f.user(t, domain.RoleAdmin)
	course := f.course(t, f.user(t, domain.RoleInstructor))
	mentor := f.mentorWithCourse(t, admin, course)
	student := f.enrolledStudent(t, admin, mentor, course)
	a, err := f.assessments.CreateAssessment(ctx, mentor, AssessmentInput{Title: "t", Questions: quiz(), CourseID: &course.ID})
	require.NoError(t, err)
	_, err = f.access.AssignAssessmentsToMentorStudents(ctx, mentor, mentor.UserID, []primitive.ObjectID{a.ID})
	require.NoError(t, err)

	revoked, err := f.access.UnassignStudentFromMentor(ctx, admin, mentor.UserID, student.UserID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, revoked)

	students, err := f.access.ListMentorStudents(ctx, mentor, mentor.UserID)
	require.NoError(t, err)
	assert.Empty(t, students)
}

func TestEnrollStudentRequiresActiveLinks(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	admin := f.user(t, domain.RoleAdmin)
	instructor := f.user(t, domain.RoleInstructor)
	course := f.course(t, instructor)
	other := f.course(t, instructor)
	mentor := f.mentorWithCourse(t, admin, course)
	student := f.user(t, domain.RoleStudent)

	_, err := f.access.EnrollStudent(ctx, mentor, mentor.UserID, student.UserID, course.ID)
	assert.ErrorIs(t, err, ErrMentorStudentNotAssigned)

	_, err = f.access.AssignStudentToMentor(ctx, admin, mentor.UserID, student.UserID)
	require.NoError(t, err)
	_, err = f.access.EnrollStudent(ctx, mentor, mentor.UserID, student.UserID, other.ID)
	assert.ErrorIs(t, err, ErrMentorCourseNotAssigned)

	require.NoError(t, f.users.BanFromCourse(ctx, instructor, student.UserID, course.ID))
	_, err = f.access.EnrollStudent(ctx, mentor, mentor.UserID, student.UserID, course.ID)
	assert.ErrorIs(t, err, ErrBannedFromCourse)
}

func TestListMentorCourses(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	admin := f.user(t, domain.RoleAdmin)
	course := f.course(t, f.user(t, domain.RoleInstructor))
	mentor := f.mentorWithCourse(t, admin, course)

	courses, err := f.access.ListMentorCourses(ctx, mentor, mentor.UserID)
	require.NoError(t, err)
	require.Len(t, courses, 1)
	assert.Equal(t, course.ID, courses[0].ID)

	_, err = f.access.ListMentorCourses(ctx, f.user(t, domain.RoleMentor), mentor.UserID)
	assert.ErrorIs(t, err, ErrAccessDenied)
}
