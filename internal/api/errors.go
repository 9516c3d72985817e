package api

import (
	"alcyxob/learning-platform/internal/domain"
	"alcyxob/learning-platform/internal/service"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/golang/glog"
)

// errorStatuses maps service sentinels to HTTP status codes. The first match
// wins, so more specific errors come first.
var errorStatuses = []struct {
	err    error
	status int
}{
	{domain.ErrValidation, http.StatusBadRequest},
	{service.ErrUnsupportedContentType, http.StatusBadRequest},
	{service.ErrUploadMissing, http.StatusBadRequest},
	{service.ErrNotMentor, http.StatusBadRequest},
	{service.ErrNotStudent, http.StatusBadRequest},

	{service.ErrAuthenticationFailed, http.StatusUnauthorized},
	{service.ErrInvalidResetToken, http.StatusUnauthorized},

	{service.ErrAccessDenied, http.StatusForbidden},
	{service.ErrAccountSuspended, http.StatusForbidden},
	{service.ErrBannedFromCourse, http.StatusForbidden},
	{service.ErrNoAssessmentAccess, http.StatusForbidden},
	{service.ErrNotEnrolled, http.StatusForbidden},
	{service.ErrMentorCourseNotAssigned, http.StatusForbidden},
	{service.ErrMentorStudentNotAssigned, http.StatusForbidden},
	{service.ErrCannotModifySelf, http.StatusForbidden},

	{service.ErrUserNotFound, http.StatusNotFound},
	{service.ErrCourseNotFound, http.StatusNotFound},
	{service.ErrSectionNotFound, http.StatusNotFound},
	{service.ErrSubSectionNotFound, http.StatusNotFound},
	{service.ErrModuleNotFound, http.StatusNotFound},
	{service.ErrAnnouncementNotFound, http.StatusNotFound},
	{service.ErrAssessmentNotFound, http.StatusNotFound},
	{service.ErrSubmissionNotFound, http.StatusNotFound},
	{service.ErrAssignmentNotFound, http.StatusNotFound},
	{service.ErrUploadNotFound, http.StatusNotFound},
	{service.ErrInvalidAccessCode, http.StatusNotFound},

	{service.ErrUserAlreadyExists, http.StatusConflict},
	{service.ErrAlreadySubmitted, http.StatusConflict},

	{service.ErrStorageUnavailable, http.StatusServiceUnavailable},
}

// respondError writes the status matching err. Unknown errors become a
// generic 500 and are logged.
func respondError(c *gin.Context, err error) {
	for _, m := range errorStatuses {
		if errors.Is(err, m.err) {
			abortWithError(c, m.status, err.Error())
			return
		}
	}
	glog.Errorf("%s %s: %v", c.Request.Method, c.FullPath(), err)
	if errors.Is(err, service.ErrPartialUnassign) {
		abortWithError(c, http.StatusInternalServerError, err.Error())
		return
	}
	abortWithError(c, http.StatusInternalServerError, "An unexpected error occurred")
}
