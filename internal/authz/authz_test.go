package authz

import (
	"testing"

	"alcyxob/learning-platform/internal/domain"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func principal(role domain.Role) domain.Principal {
	return domain.Principal{UserID: primitive.NewObjectID(), Role: role}
}

func TestCourseRules(t *testing.T) {
	owner := principal(domain.RoleInstructor)
	co := principal(domain.RoleInstructor)
	other := principal(domain.RoleInstructor)
	admin := principal(domain.RoleAdmin)
	course := &domain.Course{InstructorID: owner.UserID, CoInstructorIDs: []primitive.ObjectID{co.UserID}}

	assert.True(t, CanEditCourse(owner, course))
	assert.True(t, CanEditCourse(co, course))
	assert.True(t, CanEditCourse(admin, course))
	assert.False(t, CanEditCourse(other, course))

	assert.True(t, CanDeleteCourse(owner, course))
	assert.False(t, CanDeleteCourse(co, course))

	assert.True(t, CanCreateCourse(owner))
	assert.False(t, CanCreateCourse(principal(domain.RoleMentor)))
}

func TestMentorRules(t *testing.T) {
	mentor := principal(domain.RoleMentor)
	student := principal(domain.RoleStudent)

	assert.True(t, CanActForMentor(mentor, mentor.UserID))
	assert.False(t, CanActForMentor(mentor, primitive.NewObjectID()))
	assert.True(t, CanActForMentor(principal(domain.RoleAdmin), mentor.UserID))
	assert.False(t, CanActForMentor(domain.Principal{UserID: mentor.UserID, Role: domain.RoleStudent}, mentor.UserID))

	assert.True(t, CanViewStudent(student, student.UserID))
	assert.False(t, CanViewStudent(principal(domain.RoleStudent), student.UserID))
	assert.True(t, CanViewStudent(mentor, student.UserID))
}

func TestRequireRole(t *testing.T) {
	assert.NoError(t, RequireRole(principal(domain.RoleMentor), domain.RoleAdmin, domain.RoleMentor))
	assert.ErrorIs(t, RequireAdmin(principal(domain.RoleInstructor)), ErrForbidden)
	assert.ErrorIs(t, Require(false), ErrForbidden)
	assert.NoError(t, Require(true))
}
