// Package authz holds the role policy shared by every service. Checks here are
// pure; anything that needs a lookup (mentor-course links, enrollments) is done
// by the calling service before it asks.
package authz

import (
	"errors"

	"alcyxob/learning-platform/internal/domain"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ErrForbidden is returned when a principal may not perform an action.
var ErrForbidden = errors.New("forbidden")

// Require returns ErrForbidden unless ok.
func Require(ok bool) error {
	if !ok {
		return ErrForbidden
	}
	return nil
}

// RequireRole returns ErrForbidden unless the principal has one of roles.
func RequireRole(p domain.Principal, roles ...domain.Role) error {
	for _, r := range roles {
		if p.Role == r {
			return nil
		}
	}
	return ErrForbidden
}

func RequireAdmin(p domain.Principal) error {
	return RequireRole(p, domain.RoleAdmin)
}

// CanCreateCourse: instructors and admins author courses.
func CanCreateCourse(p domain.Principal) bool {
	return p.Role == domain.RoleAdmin || p.Role == domain.RoleInstructor
}

// CanEditCourse covers course fields, sections, modules and announcements.
func CanEditCourse(p domain.Principal, c *domain.Course) bool {
	return p.IsAdmin() || c.IsTaughtBy(p.UserID)
}

// CanDeleteCourse is limited to the owner; co-instructors cannot delete.
func CanDeleteCourse(p domain.Principal, c *domain.Course) bool {
	return p.IsAdmin() || c.InstructorID == p.UserID
}

func CanCreateAssessment(p domain.Principal) bool {
	switch p.Role {
	case domain.RoleAdmin, domain.RoleInstructor, domain.RoleMentor:
		return true
	}
	return false
}

func CanEditAssessment(p domain.Principal, a *domain.Assessment) bool {
	return p.IsAdmin() || a.IsOwnedBy(p.UserID)
}

// CanSeeAnswerKey decides whether correct answers are included in responses.
func CanSeeAnswerKey(p domain.Principal, a *domain.Assessment) bool {
	return CanEditAssessment(p, a)
}

// CanActForMentor allows admins, or the mentor acting on their own records.
func CanActForMentor(p domain.Principal, mentorID primitive.ObjectID) bool {
	return p.IsAdmin() || (p.Role == domain.RoleMentor && p.UserID == mentorID)
}

// CanViewStudent allows the student themself, admins, and staff roles. Mentor
// scoping to assigned students is checked by the caller.
func CanViewStudent(p domain.Principal, studentID primitive.ObjectID) bool {
	if p.UserID == studentID {
		return true
	}
	switch p.Role {
	case domain.RoleAdmin, domain.RoleInstructor, domain.RoleMentor:
		return true
	}
	return false
}
