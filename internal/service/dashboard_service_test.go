package service

import (
	"context"
	"testing"

	"alcyxob/learning-platform/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func newID() primitive.ObjectID { return primitive.NewObjectID() }

func TestDashboards(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	admin := f.user(t, domain.RoleAdmin)
	instructor := f.user(t, domain.RoleInstructor)
	course := f.course(t, instructor)
	section, err := f.courses.AddSection(ctx, instructor, course.ID, "s", 1)
	require.NoError(t, err)
	var modules []string
	for i := 0; i < 4; i++ {
		m, err := f.courses.AddModule(ctx, instructor, course.ID, section.ID, "", textModule("m"))
		require.NoError(t, err)
		modules = append(modules, m.ID)
	}
	mentor := f.mentorWithCourse(t, admin, course)
	s1 := f.enrolledStudent(t, admin, mentor, course)
	s2 := f.enrolledStudent(t, admin, mentor, course)

	for _, id := range modules[:2] {
		_, err := f.courses.MarkModuleComplete(ctx, s1, course.ID, id)
		require.NoError(t, err)
	}
	a, err := f.assessments.CreateAssessment(ctx, instructor, AssessmentInput{Title: "Quiz", Questions: quiz(), CourseID: &course.ID})
	require.NoError(t, err)
	_, err = f.assessments.Submit(ctx, s1, a.ID, map[string]domain.Answer{"0": {Choice: intp(0)}, "1": {Choice: intp(1)}})
	require.NoError(t, err)
	_, err = f.assessments.Submit(ctx, s2, a.ID, map[string]domain.Answer{"0": {Choice: intp(1)}})
	require.NoError(t, err)
	_, err = f.courses.PostAnnouncement(ctx, instructor, course.ID, "Hi", "Welcome")
	require.NoError(t, err)

	t.Run("admin", func(t *testing.T) {
		d, err := f.dashboards.Admin(ctx, admin)
		require.NoError(t, err)
		assert.EqualValues(t, 5, d.TotalUsers)
		assert.EqualValues(t, 2, d.UsersByRole[domain.RoleStudent])
		assert.EqualValues(t, 1, d.Courses)
		assert.EqualValues(t, 1, d.Assessments)

		_, err = f.dashboards.Admin(ctx, instructor)
		assert.ErrorIs(t, err, ErrAccessDenied)
	})

	t.Run("instructor", func(t *testing.T) {
		d, err := f.dashboards.Instructor(ctx, instructor)
		require.NoError(t, err)
		require.Len(t, d.Courses, 1)
		assert.Equal(t, 2, d.Courses[0].ActiveEnrollments)
		assert.InDelta(t, 25.0, d.Courses[0].AverageProgress, 0.001)
		require.Len(t, d.Assessments, 1)
		assert.Equal(t, 2, d.Assessments[0].Submissions)
		assert.InDelta(t, 50.0, d.Assessments[0].AverageScore, 0.001)
	})

	t.Run("mentor", func(t *testing.T) {
		d, err := f.dashboards.Mentor(ctx, mentor)
		require.NoError(t, err)
		require.Len(t, d.Courses, 1)
		require.Len(t, d.Students, 2)
		for _, st := range d.Students {
			require.Len(t, st.Courses, 1)
			if st.StudentID == s1.UserID {
				assert.Equal(t, 2, st.Courses[0].Completed)
				assert.InDelta(t, 50.0, st.Courses[0].Percent, 0.001)
			}
		}
	})

	t.Run("student", func(t *testing.T) {
		d, err := f.dashboards.Student(ctx, s1)
		require.NoError(t, err)
		require.Len(t, d.Courses, 1)
		assert.Equal(t, 4, d.Courses[0].TotalModules)
		require.Len(t, d.Assessments, 1)
		assert.True(t, d.Assessments[0].Submitted)
		assert.Equal(t, 2, d.Assessments[0].Score)
		require.Len(t, d.Announcements, 1)

		_, err = f.dashboards.Student(ctx, mentor)
		assert.ErrorIs(t, err, ErrAccessDenied)
	})
}

func TestStudentDashboardRegradesAgainstCurrentQuestions(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	instructor := f.user(t, domain.RoleInstructor)
	a, err := f.assessments.CreateAssessment(ctx, instructor, AssessmentInput{Title: "Quiz", Questions: quiz(), EnableAccessCode: true})
	require.NoError(t, err)

	student := f.user(t, domain.RoleStudent)
	_, err = f.assessments.RedeemAccessCode(ctx, student, a.AccessCode)
	require.NoError(t, err)
	_, err = f.assessments.Submit(ctx, student, a.ID, map[string]domain.Answer{"0": {Choice: intp(0)}, "1": {Choice: intp(1)}})
	require.NoError(t, err)

	edited := quiz()
	edited[1].CorrectAnswer = intp(0)
	_, err = f.assessments.UpdateAssessment(ctx, instructor, a.ID, AssessmentInput{Title: "Quiz", Questions: edited})
	require.NoError(t, err)

	d, err := f.dashboards.Student(ctx, student)
	require.NoError(t, err)
	require.Len(t, d.Assessments, 1)
	assert.True(t, d.Assessments[0].Submitted)
	assert.Equal(t, 1, d.Assessments[0].Score)
	assert.Equal(t, 2, d.Assessments[0].MaxScore)

	ins, err := f.dashboards.Instructor(ctx, instructor)
	require.NoError(t, err)
	require.Len(t, ins.Assessments, 1)
	assert.InDelta(t, 50.0, ins.Assessments[0].AverageScore, 0.001)
}
