package api

import (
	"alcyxob/learning-platform/internal/domain"
	"alcyxob/learning-platform/internal/service"
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CourseHandler serves courses, their curriculum, enrollment, progress and
// announcements.
type CourseHandler struct {
	courseService service.CourseService
}

func NewCourseHandler(courseService service.CourseService) *CourseHandler {
	return &CourseHandler{courseService: courseService}
}

// --- Request/Response Structs ---

type CourseRequest struct {
	Title        string `json:"title" binding:"required"`
	Description  string `json:"description"`
	ThumbnailURL string `json:"thumbnailUrl" binding:"omitempty,url"`
	AccessCode   string `json:"accessCode" binding:"omitempty,alphanum,min=4,max=32"`
}

func (r CourseRequest) input() service.CourseInput {
	return service.CourseInput{
		Title:        r.Title,
		Description:  r.Description,
		ThumbnailURL: r.ThumbnailURL,
		AccessCode:   r.AccessCode,
	}
}

type SectionRequest struct {
	Title string `json:"title" binding:"required"`
	Order int    `json:"order"`
}

type ModuleRequest struct {
	SubSectionID  string            `json:"subSectionId"`
	Title         string            `json:"title" binding:"required"`
	Type          domain.ModuleType `json:"type" binding:"required,oneof=video text quiz"`
	Content       string            `json:"content"`
	QuizQuestions []domain.Question `json:"quizQuestions"`
}

type EnrollRequest struct {
	AccessCode string `json:"accessCode" binding:"required"`
}

type AnnouncementRequest struct {
	Title string `json:"title" binding:"required"`
	Body  string `json:"body" binding:"required"`
}

type CourseDetailResponse struct {
	*domain.Course
	Sections []domain.Section `json:"sections"`
}

// --- Courses ---

// CreateCourse godoc
// @Summary Create a course
// @Tags Courses
// @Security BearerAuth
// @Router /courses [post]
func (h *CourseHandler) CreateCourse(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var req CourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}
	course, err := h.courseService.CreateCourse(c.Request.Context(), p, req.input())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, course)
}

// ListCourses godoc
// @Summary List the courses visible to the caller
// @Tags Courses
// @Security BearerAuth
// @Router /courses [get]
func (h *CourseHandler) ListCourses(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	courses, err := h.courseService.ListCourses(c.Request.Context(), p)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, courses)
}

func (h *CourseHandler) GetCourse(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	courseID, ok := pathID(c, "courseId")
	if !ok {
		return
	}
	detail, err := h.courseService.GetCourse(c.Request.Context(), p, courseID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, CourseDetailResponse{Course: detail.Course, Sections: detail.Sections})
}

func (h *CourseHandler) UpdateCourse(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	courseID, ok := pathID(c, "courseId")
	if !ok {
		return
	}
	var req CourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}
	course, err := h.courseService.UpdateCourse(c.Request.Context(), p, courseID, req.input())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, course)
}

func (h *CourseHandler) DeleteCourse(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	courseID, ok := pathID(c, "courseId")
	if !ok {
		return
	}
	if err := h.courseService.DeleteCourse(c.Request.Context(), p, courseID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *CourseHandler) AddCoInstructor(c *gin.Context) {
	h.coInstructor(c, h.courseService.AddCoInstructor)
}

func (h *CourseHandler) RemoveCoInstructor(c *gin.Context) {
	h.coInstructor(c, h.courseService.RemoveCoInstructor)
}

func (h *CourseHandler) coInstructor(c *gin.Context, op func(ctx context.Context, p domain.Principal, courseID, userID primitive.ObjectID) (*domain.Course, error)) {
	p, ok := principal(c)
	if !ok {
		return
	}
	courseID, ok := pathID(c, "courseId")
	if !ok {
		return
	}
	userID, ok := pathID(c, "userId")
	if !ok {
		return
	}
	course, err := op(c.Request.Context(), p, courseID, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, course)
}

// --- Sections ---

func (h *CourseHandler) AddSection(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	courseID, ok := pathID(c, "courseId")
	if !ok {
		return
	}
	var req SectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}
	section, err := h.courseService.AddSection(c.Request.Context(), p, courseID, req.Title, req.Order)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, section)
}

func (h *CourseHandler) UpdateSection(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	courseID, sectionID, ok := courseAndSection(c)
	if !ok {
		return
	}
	var req SectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}
	section, err := h.courseService.UpdateSection(c.Request.Context(), p, courseID, sectionID, req.Title, req.Order)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, section)
}

// DeleteSection godoc
// @Summary Soft delete a section; it can be restored later
// @Tags Courses
// @Security BearerAuth
// @Router /courses/{courseId}/sections/{sectionId} [delete]
func (h *CourseHandler) DeleteSection(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	courseID, sectionID, ok := courseAndSection(c)
	if !ok {
		return
	}
	if err := h.courseService.DeleteSection(c.Request.Context(), p, courseID, sectionID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *CourseHandler) RestoreSection(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	courseID, sectionID, ok := courseAndSection(c)
	if !ok {
		return
	}
	section, err := h.courseService.RestoreSection(c.Request.Context(), p, courseID, sectionID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, section)
}

func (h *CourseHandler) AddSubSection(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	courseID, sectionID, ok := courseAndSection(c)
	if !ok {
		return
	}
	var req SectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}
	section, err := h.courseService.AddSubSection(c.Request.Context(), p, courseID, sectionID, req.Title, req.Order)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, section)
}

func (h *CourseHandler) RemoveSubSection(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	courseID, sectionID, ok := courseAndSection(c)
	if !ok {
		return
	}
	section, err := h.courseService.RemoveSubSection(c.Request.Context(), p, courseID, sectionID, c.Param("subSectionId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, section)
}

// --- Modules ---

func (h *CourseHandler) AddModule(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	courseID, sectionID, ok := courseAndSection(c)
	if !ok {
		return
	}
	var req ModuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}
	module := domain.Module{
		Title:         req.Title,
		Type:          req.Type,
		Content:       req.Content,
		QuizQuestions: req.QuizQuestions,
	}
	created, err := h.courseService.AddModule(c.Request.Context(), p, courseID, sectionID, req.SubSectionID, module)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

// UpdateModule godoc
// @Summary Partially update a module; unknown fields are rejected
// @Tags Courses
// @Security BearerAuth
// @Router /courses/{courseId}/sections/{sectionId}/modules/{moduleId} [patch]
func (h *CourseHandler) UpdateModule(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	courseID, sectionID, ok := courseAndSection(c)
	if !ok {
		return
	}
	var patch map[string]any
	if err := c.ShouldBindJSON(&patch); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}
	module, err := h.courseService.UpdateModule(c.Request.Context(), p, courseID, sectionID, c.Param("moduleId"), patch)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, module)
}

func (h *CourseHandler) RemoveModule(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	courseID, sectionID, ok := courseAndSection(c)
	if !ok {
		return
	}
	if err := h.courseService.RemoveModule(c.Request.Context(), p, courseID, sectionID, c.Param("moduleId")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// --- Enrollment and progress ---

// SelfEnroll godoc
// @Summary Enroll the calling student with a course access code
// @Tags Courses
// @Security BearerAuth
// @Router /courses/enroll [post]
func (h *CourseHandler) SelfEnroll(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var req EnrollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}
	e, err := h.courseService.SelfEnroll(c.Request.Context(), p, req.AccessCode)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, e)
}

func (h *CourseHandler) CompleteModule(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	courseID, ok := pathID(c, "courseId")
	if !ok {
		return
	}
	progress, err := h.courseService.MarkModuleComplete(c.Request.Context(), p, courseID, c.Param("moduleId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, progress)
}

// --- Announcements ---

func (h *CourseHandler) PostAnnouncement(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	courseID, ok := pathID(c, "courseId")
	if !ok {
		return
	}
	var req AnnouncementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}
	a, err := h.courseService.PostAnnouncement(c.Request.Context(), p, courseID, req.Title, req.Body)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, a)
}

func (h *CourseHandler) ListAnnouncements(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	courseID, ok := pathID(c, "courseId")
	if !ok {
		return
	}
	list, err := h.courseService.ListAnnouncements(c.Request.Context(), p, courseID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *CourseHandler) DeleteAnnouncement(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	courseID, ok := pathID(c, "courseId")
	if !ok {
		return
	}
	announcementID, ok := pathID(c, "announcementId")
	if !ok {
		return
	}
	if err := h.courseService.DeleteAnnouncement(c.Request.Context(), p, courseID, announcementID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func courseAndSection(c *gin.Context) (primitive.ObjectID, primitive.ObjectID, bool) {
	courseID, ok := pathID(c, "courseId")
	if !ok {
		return primitive.NilObjectID, primitive.NilObjectID, false
	}
	sectionID, ok := pathID(c, "sectionId")
	return courseID, sectionID, ok
}
