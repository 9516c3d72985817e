package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Role type to distinguish between user roles
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleInstructor Role = "instructor"
	RoleMentor     Role = "mentor" // partner instructor scoped to assigned courses and students
	RoleStudent    Role = "student"
	RoleGuest      Role = "guest"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleInstructor, RoleMentor, RoleStudent, RoleGuest:
		return true
	}
	return false
}

// User represents a registered account.
type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name         string             `bson:"name" json:"name"`
	Email        string             `bson:"email" json:"email"`    // unique
	PasswordHash string             `bson:"passwordHash" json:"-"` // never serialized
	Role         Role               `bson:"role" json:"role"`

	// Enrollment records are the source of truth for course membership;
	// EnrolledCourses is filled from them on read and never persisted.
	EnrolledCourses []primitive.ObjectID `bson:"-" json:"enrolledCourses,omitempty"`
	BannedFrom      []primitive.ObjectID `bson:"bannedFrom,omitempty" json:"bannedFrom,omitempty"`
	Suspended       bool                 `bson:"suspended" json:"suspended"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

func (u *User) IsMentor() bool {
	return u.Role == RoleMentor
}

func (u *User) IsStudent() bool {
	return u.Role == RoleStudent
}

// IsBannedFrom reports whether the user was banned from the given course.
func (u *User) IsBannedFrom(courseID primitive.ObjectID) bool {
	return containsID(u.BannedFrom, courseID)
}

// Principal is the authenticated caller of a request. It is passed explicitly
// into every service call instead of living in shared state.
type Principal struct {
	UserID primitive.ObjectID
	Role   Role
}

func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

func (p Principal) Is(id primitive.ObjectID) bool {
	return p.UserID == id
}

func containsID(ids []primitive.ObjectID, id primitive.ObjectID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
