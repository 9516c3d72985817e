package service

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"alcyxob/learning-platform/internal/domain"
	"alcyxob/learning-platform/internal/repository"
	"alcyxob/learning-platform/internal/repository/memory"

	"github.com/stretchr/testify/require"
)

var userSeq int64

// fixture wires every service over one in-memory store.
type fixture struct {
	store       *repository.Store
	users       UserService
	access      AccessService
	courses     CourseService
	assessments AssessmentService
	dashboards  DashboardService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWith(t, memory.NewStore(), AccessOptions{})
}

func newFixtureWith(t *testing.T, store *repository.Store, opts AccessOptions) *fixture {
	t.Helper()
	return &fixture{
		store: store,
		users: NewUserService(store.Users, store.Courses, store.Enrollments),
		access: NewAccessService(store.Users, store.Courses, store.Assessments, store.MentorStudents,
			store.MentorCourses, store.Enrollments, store.AssessmentAccess, store.Tx, opts),
		courses: NewCourseService(store.Users, store.Courses, store.Sections, store.MentorCourses,
			store.Enrollments, store.Progress, store.Announcements),
		assessments: NewAssessmentService(store.Assessments, store.Submissions, store.Courses,
			store.MentorStudents, store.MentorCourses, store.Enrollments, store.AssessmentAccess),
		dashboards: NewDashboardService(store),
	}
}

// user stores an account directly, skipping password hashing.
func (f *fixture) user(t *testing.T, role domain.Role) domain.Principal {
	t.Helper()
	n := atomic.AddInt64(&userSeq, 1)
	u := &domain.User{Name: fmt.Sprintf("%s %d", role, n), Email: fmt.Sprintf("%s%d@example.com", role, n), Role: role}
	_, err := f.store.Users.Create(context.Background(), u)
	require.NoError(t, err)
	return domain.Principal{UserID: u.ID, Role: role}
}

func (f *fixture) course(t *testing.T, owner domain.Principal) *domain.Course {
	t.Helper()
	c, err := f.courses.CreateCourse(context.Background(), owner, CourseInput{Title: "Course"})
	require.NoError(t, err)
	return c
}

// mentorWithCourse assigns a fresh mentor to course.
func (f *fixture) mentorWithCourse(t *testing.T, admin domain.Principal, course *domain.Course) domain.Principal {
	t.Helper()
	mentor := f.user(t, domain.RoleMentor)
	_, err := f.access.AssignCourseToMentor(context.Background(), admin, mentor.UserID, course.ID)
	require.NoError(t, err)
	return mentor
}

// enrolledStudent creates a student linked to mentor and enrolled in course through them.
func (f *fixture) enrolledStudent(t *testing.T, admin, mentor domain.Principal, course *domain.Course) domain.Principal {
	t.Helper()
	ctx := context.Background()
	student := f.user(t, domain.RoleStudent)
	_, err := f.access.AssignStudentToMentor(ctx, admin, mentor.UserID, student.UserID)
	require.NoError(t, err)
	_, err = f.access.EnrollStudent(ctx, mentor, mentor.UserID, student.UserID, course.ID)
	require.NoError(t, err)
	return student
}

func intp(v int) *int { return &v }

// quiz returns two single choice questions whose answers are 0 and 1.
func quiz() []domain.Question {
	return []domain.Question{
		{Text: "first", Type: domain.QuestionSingleChoice, Options: []string{"a", "b"}, CorrectAnswer: intp(0)},
		{Text: "second", Type: domain.QuestionSingleChoice, Options: []string{"a", "b"}, CorrectAnswer: intp(1)},
	}
}
