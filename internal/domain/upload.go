package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UploadPurpose groups object keys in the bucket.
type UploadPurpose string

const (
	UploadCourseThumbnail UploadPurpose = "course-thumbnail"
	UploadModuleVideo     UploadPurpose = "module-video"
	UploadQuestionImage   UploadPurpose = "question-image"
	UploadDocument        UploadPurpose = "document"
)

func (p UploadPurpose) Valid() bool {
	switch p {
	case UploadCourseThumbnail, UploadModuleVideo, UploadQuestionImage, UploadDocument:
		return true
	}
	return false
}

// Upload stores metadata about a file in object storage. The bytes live in S3.
type Upload struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	OwnerID     primitive.ObjectID `bson:"ownerId" json:"ownerId"`
	Purpose     UploadPurpose      `bson:"purpose" json:"purpose"`
	ObjectKey   string             `bson:"objectKey" json:"-"` // internal use
	PublicURL   string             `bson:"publicUrl" json:"publicUrl"`
	FileName    string             `bson:"fileName" json:"fileName"`
	ContentType string             `bson:"contentType" json:"contentType"`
	Size        int64              `bson:"size" json:"size"`
	UploadedAt  time.Time          `bson:"uploadedAt" json:"uploadedAt"`
}
