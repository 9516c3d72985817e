package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AssignmentStatus is the lifecycle of every join record. Records are never
// removed on unassign, they are flipped to inactive.
type AssignmentStatus string

const (
	StatusActive   AssignmentStatus = "active"
	StatusInactive AssignmentStatus = "inactive"
)

// MentorAssignment links a mentor to a student.
type MentorAssignment struct {
	ID         string             `bson:"_id" json:"id"` // MentorStudentKey
	MentorID   primitive.ObjectID `bson:"mentorId" json:"mentorId"`
	StudentID  primitive.ObjectID `bson:"studentId" json:"studentId"`
	Status     AssignmentStatus   `bson:"status" json:"status"`
	AssignedAt time.Time          `bson:"assignedAt" json:"assignedAt"`
	UpdatedAt  time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// MentorCourseAssignment links a mentor to a course they may teach.
type MentorCourseAssignment struct {
	ID         string             `bson:"_id" json:"id"` // MentorCourseKey
	MentorID   primitive.ObjectID `bson:"mentorId" json:"mentorId"`
	CourseID   primitive.ObjectID `bson:"courseId" json:"courseId"`
	Status     AssignmentStatus   `bson:"status" json:"status"`
	AssignedAt time.Time          `bson:"assignedAt" json:"assignedAt"`
	UpdatedAt  time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// Enrollment puts a student in a course, optionally through a mentor.
type Enrollment struct {
	ID         string              `bson:"_id" json:"id"` // EnrollmentKey
	StudentID  primitive.ObjectID  `bson:"studentId" json:"studentId"`
	CourseID   primitive.ObjectID  `bson:"courseId" json:"courseId"`
	MentorID   *primitive.ObjectID `bson:"mentorId,omitempty" json:"mentorId,omitempty"`
	Status     AssignmentStatus    `bson:"status" json:"status"`
	EnrolledAt time.Time           `bson:"enrolledAt" json:"enrolledAt"`
	UpdatedAt  time.Time           `bson:"updatedAt" json:"updatedAt"`
}

// AccessSource records how a student obtained access to an assessment.
type AccessSource string

const (
	AccessFromMentor     AccessSource = "mentor"
	AccessFromAccessCode AccessSource = "access_code"
	AccessFromAdmin      AccessSource = "admin"
)

// AssessmentAccess grants a student access to an assessment. Presence of the
// record is the grant.
type AssessmentAccess struct {
	ID           string              `bson:"_id" json:"id"` // AssessmentAccessKey
	StudentID    primitive.ObjectID  `bson:"studentId" json:"studentId"`
	AssessmentID primitive.ObjectID  `bson:"assessmentId" json:"assessmentId"`
	MentorID     *primitive.ObjectID `bson:"mentorId,omitempty" json:"mentorId,omitempty"`
	GrantedBy    primitive.ObjectID  `bson:"grantedBy" json:"grantedBy"`
	Source       AccessSource        `bson:"source" json:"source"`
	GrantedAt    time.Time           `bson:"grantedAt" json:"grantedAt"`
}

// Composite keys. Each join record is stored under a deterministic key so that
// writes are idempotent upserts.

func MentorStudentKey(mentorID, studentID primitive.ObjectID) string {
	return compositeKey(mentorID, studentID)
}

func MentorCourseKey(mentorID, courseID primitive.ObjectID) string {
	return compositeKey(mentorID, courseID)
}

func EnrollmentKey(studentID, courseID primitive.ObjectID) string {
	return compositeKey(studentID, courseID)
}

func AssessmentAccessKey(studentID, assessmentID primitive.ObjectID) string {
	return compositeKey(studentID, assessmentID)
}

func SubmissionKey(assessmentID, studentID primitive.ObjectID) string {
	return compositeKey(assessmentID, studentID)
}

func ProgressKey(studentID, courseID primitive.ObjectID) string {
	return compositeKey(studentID, courseID)
}

func compositeKey(a, b primitive.ObjectID) string {
	return a.Hex() + "_" + b.Hex()
}
