package api

import (
	"alcyxob/learning-platform/internal/domain"
	"alcyxob/learning-platform/internal/service"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// MediaHandler hands out presigned URLs; file bytes never pass through the API.
type MediaHandler struct {
	mediaService service.MediaService
}

func NewMediaHandler(mediaService service.MediaService) *MediaHandler {
	return &MediaHandler{mediaService: mediaService}
}

type UploadURLRequest struct {
	Purpose     domain.UploadPurpose `json:"purpose" binding:"required"`
	FileName    string               `json:"fileName" binding:"required"`
	ContentType string               `json:"contentType" binding:"required"`
}

type ConfirmUploadRequest struct {
	ObjectKey string `json:"objectKey" binding:"required"`
	FileName  string `json:"fileName"`
}

// RequestUploadURL godoc
// @Summary Get a presigned PUT URL for uploading a file
// @Tags Media
// @Security BearerAuth
// @Router /media/upload-url [post]
func (h *MediaHandler) RequestUploadURL(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var req UploadURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}
	ticket, err := h.mediaService.RequestUploadURL(c.Request.Context(), p, req.Purpose, req.FileName, req.ContentType)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ticket)
}

// ConfirmUpload records an object after the client finished the PUT.
func (h *MediaHandler) ConfirmUpload(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var req ConfirmUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}
	upload, err := h.mediaService.ConfirmUpload(c.Request.Context(), p, req.ObjectKey, req.FileName)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, upload)
}

func (h *MediaHandler) GetDownloadURL(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	uploadID, ok := pathID(c, "uploadId")
	if !ok {
		return
	}
	url, err := h.mediaService.GetDownloadURL(c.Request.Context(), p, uploadID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"downloadUrl": url})
}

func (h *MediaHandler) DeleteUpload(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	uploadID, ok := pathID(c, "uploadId")
	if !ok {
		return
	}
	if err := h.mediaService.DeleteUpload(c.Request.Context(), p, uploadID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
