package api

import (
	"alcyxob/learning-platform/internal/domain"
	"alcyxob/learning-platform/internal/service"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type AssessmentHandler struct {
	assessmentService service.AssessmentService
}

func NewAssessmentHandler(assessmentService service.AssessmentService) *AssessmentHandler {
	return &AssessmentHandler{assessmentService: assessmentService}
}

// --- Request/Response Structs ---

type AssessmentRequest struct {
	Title            string            `json:"title" binding:"required"`
	Description      string            `json:"description"`
	Questions        []domain.Question `json:"questions" binding:"required,min=1,dive"`
	CourseID         string            `json:"courseId"`
	EnableAccessCode bool              `json:"enableAccessCode"`
}

func (r AssessmentRequest) input() (service.AssessmentInput, error) {
	in := service.AssessmentInput{
		Title:            r.Title,
		Description:      r.Description,
		Questions:        r.Questions,
		EnableAccessCode: r.EnableAccessCode,
	}
	if r.CourseID != "" {
		id, err := primitive.ObjectIDFromHex(r.CourseID)
		if err != nil {
			return in, fmt.Errorf("invalid courseId %q", r.CourseID)
		}
		in.CourseID = &id
	}
	return in, nil
}

type RedeemRequest struct {
	AccessCode string `json:"accessCode" binding:"required"`
}

// SubmitRequest keys answers by zero-based question index.
type SubmitRequest struct {
	Answers map[string]domain.Answer `json:"answers" binding:"required"`
}

func (h *AssessmentHandler) bindAssessment(c *gin.Context) (service.AssessmentInput, bool) {
	var req AssessmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return service.AssessmentInput{}, false
	}
	in, err := req.input()
	if err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return service.AssessmentInput{}, false
	}
	return in, true
}

// CreateAssessment godoc
// @Summary Create an assessment, optionally linked to a course
// @Tags Assessments
// @Security BearerAuth
// @Router /assessments [post]
func (h *AssessmentHandler) CreateAssessment(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	in, ok := h.bindAssessment(c)
	if !ok {
		return
	}
	a, err := h.assessmentService.CreateAssessment(c.Request.Context(), p, in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, a)
}

func (h *AssessmentHandler) ListAssessments(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	list, err := h.assessmentService.ListAssessments(c.Request.Context(), p)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// GetAssessment returns the assessment; the answer key is stripped for
// callers who cannot edit it.
func (h *AssessmentHandler) GetAssessment(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "assessmentId")
	if !ok {
		return
	}
	a, err := h.assessmentService.GetAssessment(c.Request.Context(), p, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

func (h *AssessmentHandler) UpdateAssessment(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "assessmentId")
	if !ok {
		return
	}
	in, ok := h.bindAssessment(c)
	if !ok {
		return
	}
	a, err := h.assessmentService.UpdateAssessment(c.Request.Context(), p, id, in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

func (h *AssessmentHandler) DeleteAssessment(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "assessmentId")
	if !ok {
		return
	}
	if err := h.assessmentService.DeleteAssessment(c.Request.Context(), p, id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *AssessmentHandler) RedeemAccessCode(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var req RedeemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}
	access, err := h.assessmentService.RedeemAccessCode(c.Request.Context(), p, req.AccessCode)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, access)
}

// Submit godoc
// @Summary Submit answers; each student may submit once
// @Tags Assessments
// @Security BearerAuth
// @Router /assessments/{assessmentId}/submissions [post]
func (h *AssessmentHandler) Submit(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "assessmentId")
	if !ok {
		return
	}
	var req SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}
	result, err := h.assessmentService.Submit(c.Request.Context(), p, id, req.Answers)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h *AssessmentHandler) ListSubmissions(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "assessmentId")
	if !ok {
		return
	}
	list, err := h.assessmentService.ListSubmissions(c.Request.Context(), p, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *AssessmentHandler) GetResult(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "assessmentId")
	if !ok {
		return
	}
	studentID, ok := pathID(c, "studentId")
	if !ok {
		return
	}
	result, err := h.assessmentService.GetResult(c.Request.Context(), p, id, studentID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
