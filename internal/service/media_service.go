package service

import (
	"alcyxob/learning-platform/internal/domain"
	"alcyxob/learning-platform/internal/repository"
	"alcyxob/learning-platform/internal/storage"
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/golang/glog"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// --- Error Definitions ---
var (
	ErrStorageUnavailable     = errors.New("file storage is not configured")
	ErrUnsupportedContentType = errors.New("content type is not allowed")
	ErrUploadNotFound         = errors.New("upload not found")
	ErrUploadMissing          = errors.New("no object was uploaded under this key")
)

// UploadTicket is handed to the client to PUT the file directly to storage.
type UploadTicket struct {
	UploadURL string    `json:"uploadUrl"`
	ObjectKey string    `json:"objectKey"`
	PublicURL string    `json:"publicUrl"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// MediaService issues presigned upload URLs and tracks uploaded files.
type MediaService interface {
	RequestUploadURL(ctx context.Context, p domain.Principal, purpose domain.UploadPurpose, fileName, contentType string) (*UploadTicket, error)
	// ConfirmUpload records metadata once the client finished the PUT.
	ConfirmUpload(ctx context.Context, p domain.Principal, objectKey, fileName string) (*domain.Upload, error)
	GetDownloadURL(ctx context.Context, p domain.Principal, uploadID primitive.ObjectID) (string, error)
	DeleteUpload(ctx context.Context, p domain.Principal, uploadID primitive.ObjectID) error
}

type mediaService struct {
	uploadRepo  repository.UploadRepository
	fileStorage storage.FileStorage
}

// NewMediaService creates a new instance of mediaService. fileStorage may be
// nil, in which case every call returns ErrStorageUnavailable.
func NewMediaService(uploadRepo repository.UploadRepository, fileStorage storage.FileStorage) MediaService {
	return &mediaService{uploadRepo: uploadRepo, fileStorage: fileStorage}
}

const mediaPrefix = "media"

func (s *mediaService) RequestUploadURL(ctx context.Context, p domain.Principal, purpose domain.UploadPurpose, fileName, contentType string) (*UploadTicket, error) {
	if s.fileStorage == nil {
		return nil, ErrStorageUnavailable
	}
	if !purpose.Valid() {
		return nil, invalidf("unknown upload purpose %q", purpose)
	}
	if purpose != domain.UploadDocument && !isStaff(p) {
		return nil, ErrAccessDenied
	}
	if strings.TrimSpace(fileName) == "" {
		return nil, invalidf("file name is required")
	}
	if !allowedContentType(contentType) {
		return nil, ErrUnsupportedContentType
	}

	objectKey := fmt.Sprintf("%s/%s/%s/%s%s", mediaPrefix, purpose, p.UserID.Hex(), uuid.NewString(), strings.ToLower(path.Ext(fileName)))
	url, err := s.fileStorage.GeneratePresignedUploadURL(ctx, objectKey, contentType, storage.DefaultPresignedURLExpiry)
	if err != nil {
		glog.Errorf("Failed to presign upload for %s: %v", objectKey, err)
		return nil, err
	}
	return &UploadTicket{
		UploadURL: url,
		ObjectKey: objectKey,
		PublicURL: s.fileStorage.PublicURL(objectKey),
		ExpiresAt: time.Now().Add(storage.DefaultPresignedURLExpiry).UTC(),
	}, nil
}

func (s *mediaService) ConfirmUpload(ctx context.Context, p domain.Principal, objectKey, fileName string) (*domain.Upload, error) {
	if s.fileStorage == nil {
		return nil, ErrStorageUnavailable
	}
	purpose, owner, ok := parseObjectKey(objectKey)
	if !ok {
		return nil, invalidf("object key %q was not issued by this service", objectKey)
	}
	if owner != p.UserID {
		return nil, ErrAccessDenied
	}

	info, err := s.fileStorage.StatObject(ctx, objectKey)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, ErrUploadMissing
		}
		return nil, err
	}
	if fileName == "" {
		fileName = path.Base(objectKey)
	}
	upload := &domain.Upload{
		OwnerID:     p.UserID,
		Purpose:     purpose,
		ObjectKey:   objectKey,
		PublicURL:   s.fileStorage.PublicURL(objectKey),
		FileName:    fileName,
		ContentType: info.ContentType,
		Size:        info.Size,
	}
	if _, err := s.uploadRepo.Create(ctx, upload); err != nil {
		return nil, err
	}
	glog.Infof("Upload %s confirmed for %s (%d bytes)", upload.ID.Hex(), p.UserID.Hex(), upload.Size)
	return upload, nil
}

func (s *mediaService) GetDownloadURL(ctx context.Context, p domain.Principal, uploadID primitive.ObjectID) (string, error) {
	if s.fileStorage == nil {
		return "", ErrStorageUnavailable
	}
	upload, err := s.uploadRepo.GetByID(ctx, uploadID)
	if err != nil {
		return "", notFound(err, ErrUploadNotFound)
	}
	return s.fileStorage.GeneratePresignedDownloadURL(ctx, upload.ObjectKey, storage.DefaultPresignedURLExpiry)
}

// DeleteUpload removes the object and its metadata. Owner or admin only.
func (s *mediaService) DeleteUpload(ctx context.Context, p domain.Principal, uploadID primitive.ObjectID) error {
	if s.fileStorage == nil {
		return ErrStorageUnavailable
	}
	upload, err := s.uploadRepo.GetByID(ctx, uploadID)
	if err != nil {
		return notFound(err, ErrUploadNotFound)
	}
	if !p.IsAdmin() && !p.Is(upload.OwnerID) {
		return ErrAccessDenied
	}
	if err := s.fileStorage.DeleteObject(ctx, upload.ObjectKey); err != nil {
		return err
	}
	return notFound(s.uploadRepo.Delete(ctx, uploadID), ErrUploadNotFound)
}

func isStaff(p domain.Principal) bool {
	switch p.Role {
	case domain.RoleAdmin, domain.RoleInstructor, domain.RoleMentor:
		return true
	}
	return false
}

func allowedContentType(ct string) bool {
	ct = strings.ToLower(strings.TrimSpace(ct))
	return strings.HasPrefix(ct, "image/") || strings.HasPrefix(ct, "video/") || ct == "application/pdf"
}

// parseObjectKey splits media/<purpose>/<owner>/<file>.
func parseObjectKey(key string) (domain.UploadPurpose, primitive.ObjectID, bool) {
	parts := strings.Split(key, "/")
	if len(parts) != 4 || parts[0] != mediaPrefix || parts[3] == "" {
		return "", primitive.NilObjectID, false
	}
	purpose := domain.UploadPurpose(parts[1])
	owner, err := primitive.ObjectIDFromHex(parts[2])
	if err != nil || !purpose.Valid() {
		return "", primitive.NilObjectID, false
	}
	return purpose, owner, true
}
