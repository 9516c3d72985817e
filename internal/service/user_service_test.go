package service

import (
	"context"
	"testing"

	"alcyxob/learning-platform/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestAdminUserManagement(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	admin := f.user(t, domain.RoleAdmin)
	student := f.user(t, domain.RoleStudent)

	_, err := f.users.ListUsers(ctx, student, "")
	assert.ErrorIs(t, err, ErrAccessDenied)

	created, err := f.users.CreateUser(ctx, admin, "Ines", "ines@example.com", "password1", domain.RoleInstructor)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleInstructor, created.Role)

	instructors, err := f.users.ListUsers(ctx, admin, domain.RoleInstructor)
	require.NoError(t, err)
	require.Len(t, instructors, 1)
	assert.Equal(t, created.ID, instructors[0].ID)

	promoted, err := f.users.SetRole(ctx, admin, student.UserID, domain.RoleMentor)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleMentor, promoted.Role)

	_, err = f.users.SetRole(ctx, admin, admin.UserID, domain.RoleStudent)
	assert.ErrorIs(t, err, ErrCannotModifySelf)
	_, err = f.users.SetSuspended(ctx, admin, admin.UserID, true)
	assert.ErrorIs(t, err, ErrCannotModifySelf)
	_, err = f.users.SetRole(ctx, admin, student.UserID, "wizard")
	assert.ErrorIs(t, err, domain.ErrValidation)

	me, err := f.users.GetMe(ctx, admin)
	require.NoError(t, err)
	assert.Equal(t, admin.UserID, me.ID)
}

func TestBanFromCourseDeactivatesEnrollment(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	instructor := f.user(t, domain.RoleInstructor)
	course := f.course(t, instructor)
	student := f.user(t, domain.RoleStudent)
	_, err := f.courses.SelfEnroll(ctx, student, course.AccessCode)
	require.NoError(t, err)

	assert.ErrorIs(t, f.users.BanFromCourse(ctx, f.user(t, domain.RoleInstructor), student.UserID, course.ID), ErrAccessDenied)
	require.NoError(t, f.users.BanFromCourse(ctx, instructor, student.UserID, course.ID))

	e, err := f.store.Enrollments.GetByKey(ctx, domain.EnrollmentKey(student.UserID, course.ID))
	require.NoError(t, err)
	assert.Equal(t, domain.StatusInactive, e.Status)

	u, err := f.store.Users.GetByID(ctx, student.UserID)
	require.NoError(t, err)
	assert.True(t, u.IsBannedFrom(course.ID))
}

func TestGetMeListsActiveEnrollments(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	instructor := f.user(t, domain.RoleInstructor)
	course := f.course(t, instructor)
	student := f.user(t, domain.RoleStudent)

	me, err := f.users.GetMe(ctx, student)
	require.NoError(t, err)
	assert.Empty(t, me.EnrolledCourses)

	_, err = f.courses.SelfEnroll(ctx, student, course.AccessCode)
	require.NoError(t, err)
	me, err = f.users.GetMe(ctx, student)
	require.NoError(t, err)
	assert.Equal(t, []primitive.ObjectID{course.ID}, me.EnrolledCourses)

	require.NoError(t, f.users.BanFromCourse(ctx, instructor, student.UserID, course.ID))
	me, err = f.users.GetMe(ctx, student)
	require.NoError(t, err)
	assert.Empty(t, me.EnrolledCourses)

	stored, err := f.store.Users.GetByID(ctx, student.UserID)
	require.NoError(t, err)
	assert.Nil(t, stored.EnrolledCourses)
}
