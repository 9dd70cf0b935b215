package models

import (
	"time"

	"github.com/google/uuid"
)

// A stored file. The bytes live in the storage bucket under S3Key.
type Asset struct {
	ID         uuid.UUID `db:"id"`
	UploaderID *int      `db:"uploader_id"`

	S3Key    string `db:"s3_key"`
	Filename string `db:"filename"`
	Size     int    `db:"size"`
	MimeType string `db:"mime_type"`
	Sha1Sum  string `db:"sha1sum"`

	CreatedAt time.Time `db:"created_at"`
}
