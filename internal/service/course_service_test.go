package service

import (
	"context"
	"testing"

	"alcyxob/learning-platform/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func textModule(title string) domain.Module {
	return domain.Module{Title: title, Type: domain.ModuleText, Content: "body"}
}

func (f *fixture) totalModules(t *testing.T, courseID primitive.ObjectID) int {
	t.Helper()
	c, err := f.store.Courses.GetByID(context.Background(), courseID)
	require.NoError(t, err)
	return c.TotalModules
}

func TestTotalModulesFollowsSectionMutations(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	instructor := f.user(t, domain.RoleInstructor)
	course := f.course(t, instructor)

	first, err := f.courses.AddSection(ctx, instructor, course.ID, "One", 1)
	require.NoError(t, err)
	second, err := f.courses.AddSection(ctx, instructor, course.ID, "Two", 2)
	require.NoError(t, err)

	var firstModules []string
	for i := 0; i < 3; i++ {
		m, err := f.courses.AddModule(ctx, instructor, course.ID, first.ID, "", textModule("m"))
		require.NoError(t, err)
		firstModules = append(firstModules, m.ID)
	}
	withSub, err := f.courses.AddSubSection(ctx, instructor, course.ID, second.ID, "Sub", 1)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		sub := ""
		if i%2 == 0 {
			sub = withSub.SubSections[0].ID
		}
		_, err := f.courses.AddModule(ctx, instructor, course.ID, second.ID, sub, textModule("m"))
		require.NoError(t, err)
	}
	assert.Equal(t, 8, f.totalModules(t, course.ID))

	require.NoError(t, f.courses.DeleteSection(ctx, instructor, course.ID, second.ID))
	assert.Equal(t, 3, f.totalModules(t, course.ID))

	_, err = f.courses.RestoreSection(ctx, instructor, course.ID, second.ID)
	require.NoError(t, err)
	assert.Equal(t, 8, f.totalModules(t, course.ID))

	require.NoError(t, f.courses.RemoveModule(ctx, instructor, course.ID, first.ID, firstModules[0]))
	assert.Equal(t, 7, f.totalModules(t, course.ID))

	_, err = f.courses.RemoveSubSection(ctx, instructor, course.ID, second.ID, withSub.SubSections[0].ID)
	require.NoError(t, err)
	assert.Equal(t, 4, f.totalModules(t, course.ID))

	total, err := f.courses.RecomputeTotalModules(ctx, course.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, total)
}

func TestCreateCourseAccessCodes(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	instructor := f.user(t, domain.RoleInstructor)

	c, err := f.courses.CreateCourse(ctx, instructor, CourseInput{Title: "Go"})
	require.NoError(t, err)
	assert.Len(t, c.AccessCode, 8)
	assert.Equal(t, instructor.UserID, c.InstructorID)

	_, err = f.courses.CreateCourse(ctx, instructor, CourseInput{Title: "Go 2", AccessCode: c.AccessCode})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = f.courses.CreateCourse(ctx, instructor, CourseInput{Title: "  "})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = f.courses.CreateCourse(ctx, f.user(t, domain.RoleStudent), CourseInput{Title: "x"})
	assert.ErrorIs(t, err, ErrAccessDenied)
}

func TestCoInstructorCanEditButNotDelete(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	owner := f.user(t, domain.RoleInstructor)
	co := f.user(t, domain.RoleInstructor)
	course := f.course(t, owner)

	_, err := f.courses.AddCoInstructor(ctx, co, course.ID, co.UserID)
	assert.ErrorIs(t, err, ErrAccessDenied)

	updated, err := f.courses.AddCoInstructor(ctx, owner, course.ID, co.UserID)
	require.NoError(t, err)
	assert.Equal(t, []primitive.ObjectID{co.UserID}, updated.CoInstructorIDs)

	_, err = f.courses.UpdateCourse(ctx, co, course.ID, CourseInput{Title: "Renamed"})
	require.NoError(t, err)
	assert.ErrorIs(t, f.courses.DeleteCourse(ctx, co, course.ID), ErrAccessDenied)

	require.NoError(t, f.courses.DeleteCourse(ctx, owner, course.ID))
	_, err = f.courses.GetCourse(ctx, owner, course.ID)
	assert.ErrorIs(t, err, ErrCourseNotFound)
}

func TestSelfEnroll(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	admin := f.user(t, domain.RoleAdmin)
	course := f.course(t, f.user(t, domain.RoleInstructor))
	student := f.user(t, domain.RoleStudent)

	_, err := f.courses.SelfEnroll(ctx, student, "nope")
	assert.ErrorIs(t, err, ErrInvalidAccessCode)

	e, err := f.courses.SelfEnroll(ctx, student, course.AccessCode)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusActive, e.Status)
	assert.Nil(t, e.MentorID)

	banned := f.user(t, domain.RoleStudent)
	require.NoError(t, f.users.BanFromCourse(ctx, admin, banned.UserID, course.ID))
	_, err = f.courses.SelfEnroll(ctx, banned, course.AccessCode)
	assert.ErrorIs(t, err, ErrBannedFromCourse)

	suspended := f.user(t, domain.RoleStudent)
	_, err = f.users.SetSuspended(ctx, admin, suspended.UserID, true)
	require.NoError(t, err)
	_, err = f.courses.SelfEnroll(ctx, suspended, course.AccessCode)
	assert.ErrorIs(t, err, ErrAccountSuspended)
}

func TestGetCourseVisibility(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	instructor := f.user(t, domain.RoleInstructor)
	course := f.course(t, instructor)
	live, err := f.courses.AddSection(ctx, instructor, course.ID, "live", 1)
	require.NoError(t, err)
	gone, err := f.courses.AddSection(ctx, instructor, course.ID, "gone", 2)
	require.NoError(t, err)
	require.NoError(t, f.courses.DeleteSection(ctx, instructor, course.ID, gone.ID))

	student := f.user(t, domain.RoleStudent)
	_, err = f.courses.GetCourse(ctx, student, course.ID)
	assert.ErrorIs(t, err, ErrAccessDenied)

	_, err = f.courses.SelfEnroll(ctx, student, course.AccessCode)
	require.NoError(t, err)
	detail, err := f.courses.GetCourse(ctx, student, course.ID)
	require.NoError(t, err)
	require.Len(t, detail.Sections, 1)
	assert.Equal(t, live.ID, detail.Sections[0].ID)

	detail, err = f.courses.GetCourse(ctx, instructor, course.ID)
	require.NoError(t, err)
	assert.Len(t, detail.Sections, 2)

	courses, err := f.courses.ListCourses(ctx, student)
	require.NoError(t, err)
	assert.Len(t, courses, 1)
}

func TestUpdateModulePatch(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	instructor := f.user(t, domain.RoleInstructor)
	course := f.course(t, instructor)
	section, err := f.courses.AddSection(ctx, instructor, course.ID, "s", 1)
	require.NoError(t, err)
	m, err := f.courses.AddModule(ctx, instructor, course.ID, section.ID, "", textModule("old"))
	require.NoError(t, err)

	updated, err := f.courses.UpdateModule(ctx, instructor, course.ID, section.ID, m.ID, map[string]any{"title": "new"})
	require.NoError(t, err)
	assert.Equal(t, "new", updated.Title)
	assert.Equal(t, "body", updated.Content)

	_, err = f.courses.UpdateModule(ctx, instructor, course.ID, section.ID, m.ID, map[string]any{"bogus": 1})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = f.courses.UpdateModule(ctx, instructor, course.ID, section.ID, "missing", map[string]any{"title": "x"})
	assert.ErrorIs(t, err, ErrModuleNotFound)

	_, err = f.courses.AddModule(ctx, instructor, course.ID, section.ID, "", domain.Module{Title: "q", Type: domain.ModuleQuiz})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestMarkModuleComplete(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	instructor := f.user(t, domain.RoleInstructor)
	course := f.course(t, instructor)
	section, err := f.courses.AddSection(ctx, instructor, course.ID, "s", 1)
	require.NoError(t, err)
	m, err := f.courses.AddModule(ctx, instructor, course.ID, section.ID, "", textModule("m"))
	require.NoError(t, err)
	student := f.user(t, domain.RoleStudent)

	_, err = f.courses.MarkModuleComplete(ctx, student, course.ID, m.ID)
	assert.ErrorIs(t, err, ErrNotEnrolled)

	_, err = f.courses.SelfEnroll(ctx, student, course.AccessCode)
	require.NoError(t, err)
	for i := 0; i < 2; i++ {
		p, err := f.courses.MarkModuleComplete(ctx, student, course.ID, m.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{m.ID}, p.CompletedModules)
	}

	_, err = f.courses.MarkModuleComplete(ctx, student, course.ID, "missing")
	assert.ErrorIs(t, err, ErrModuleNotFound)
}

func TestAnnouncements(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	instructor := f.user(t, domain.RoleInstructor)
	course := f.course(t, instructor)
	student := f.user(t, domain.RoleStudent)

	_, err := f.courses.PostAnnouncement(ctx, student, course.ID, "t", "b")
	assert.ErrorIs(t, err, ErrAccessDenied)

	a, err := f.courses.PostAnnouncement(ctx, instructor, course.ID, "Welcome", "Hello")
	require.NoError(t, err)

	_, err = f.courses.SelfEnroll(ctx, student, course.AccessCode)
	require.NoError(t, err)
	list, err := f.courses.ListAnnouncements(ctx, student, course.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Welcome", list[0].Title)

	require.NoError(t, f.courses.DeleteAnnouncement(ctx, instructor, course.ID, a.ID))
	assert.ErrorIs(t, f.courses.DeleteAnnouncement(ctx, instructor, course.ID, a.ID), ErrAnnouncementNotFound)
}
