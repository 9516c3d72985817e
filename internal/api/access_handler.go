package api

import (
	"alcyxob/learning-platform/internal/service"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AccessHandler exposes mentor assignment management.
type AccessHandler struct {
	accessService service.AccessService
}

func NewAccessHandler(accessService service.AccessService) *AccessHandler {
	return &AccessHandler{accessService: accessService}
}

type AssignAssessmentsRequest struct {
	AssessmentIDs []string `json:"assessmentIds" binding:"required,min=1"`
}

type EnrollStudentRequest struct {
	StudentID string `json:"studentId" binding:"required"`
	CourseID  string `json:"courseId" binding:"required"`
}

// mentorAnd parses :mentorId plus one more path ID.
func mentorAnd(c *gin.Context, other string) (primitive.ObjectID, primitive.ObjectID, bool) {
	mentorID, ok := pathID(c, "mentorId")
	if !ok {
		return primitive.NilObjectID, primitive.NilObjectID, false
	}
	otherID, ok := pathID(c, other)
	return mentorID, otherID, ok
}

// AssignCourse godoc
// @Summary Assign a course to a mentor (idempotent)
// @Tags Access
// @Security BearerAuth
// @Router /access/mentors/{mentorId}/courses/{courseId} [post]
func (h *AccessHandler) AssignCourse(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	mentorID, courseID, ok := mentorAnd(c, "courseId")
	if !ok {
		return
	}
	a, err := h.accessService.AssignCourseToMentor(c.Request.Context(), p, mentorID, courseID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

// UnassignCourse godoc
// @Summary Unassign a course from a mentor and deactivate the mentor's enrollments in it
// @Tags Access
// @Security BearerAuth
// @Router /access/mentors/{mentorId}/courses/{courseId} [delete]
func (h *AccessHandler) UnassignCourse(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	mentorID, courseID, ok := mentorAnd(c, "courseId")
	if !ok {
		return
	}
	res, err := h.accessService.UnassignCourseFromMentor(c.Request.Context(), p, mentorID, courseID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *AccessHandler) AssignStudent(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	mentorID, studentID, ok := mentorAnd(c, "studentId")
	if !ok {
		return
	}
	a, err := h.accessService.AssignStudentToMentor(c.Request.Context(), p, mentorID, studentID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

func (h *AccessHandler) UnassignStudent(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	mentorID, studentID, ok := mentorAnd(c, "studentId")
	if !ok {
		return
	}
	revoked, err := h.accessService.UnassignStudentFromMentor(c.Request.Context(), p, mentorID, studentID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"accessRevoked": revoked})
}

// AssignAssessments godoc
// @Summary Grant the mentor's students access to assessments
// @Tags Access
// @Security BearerAuth
// @Router /access/mentors/{mentorId}/assessments [post]
func (h *AccessHandler) AssignAssessments(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	mentorID, ok := pathID(c, "mentorId")
	if !ok {
		return
	}
	var req AssignAssessmentsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}
	ids, err := parseIDs(req.AssessmentIDs)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, err.Error())
		return
	}
	res, err := h.accessService.AssignAssessmentsToMentorStudents(c.Request.Context(), p, mentorID, ids)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *AccessHandler) UnassignAssessment(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	mentorID, assessmentID, ok := mentorAnd(c, "assessmentId")
	if !ok {
		return
	}
	n, err := h.accessService.UnassignAssessmentFromMentor(c.Request.Context(), p, mentorID, assessmentID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"accessRevoked": n})
}

func (h *AccessHandler) EnrollStudent(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	mentorID, ok := pathID(c, "mentorId")
	if !ok {
		return
	}
	var req EnrollStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}
	ids, err := parseIDs([]string{req.StudentID, req.CourseID})
	if err != nil {
		abortWithError(c, http.StatusBadRequest, err.Error())
		return
	}
	e, err := h.accessService.EnrollStudent(c.Request.Context(), p, mentorID, ids[0], ids[1])
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, e)
}

func (h *AccessHandler) ListCourses(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	mentorID, ok := pathID(c, "mentorId")
	if !ok {
		return
	}
	courses, err := h.accessService.ListMentorCourses(c.Request.Context(), p, mentorID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, courses)
}

func (h *AccessHandler) ListStudents(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	mentorID, ok := pathID(c, "mentorId")
	if !ok {
		return
	}
	users, err := h.accessService.ListMentorStudents(c.Request.Context(), p, mentorID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, mapUsers(users))
}
