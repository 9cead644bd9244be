/*
Package storage provides access to the S3-compatible bucket holding creator
media: stream thumbnails, overlays and room posters.

Large files are uploaded by the browser through presigned URLs; small
overlay assets go through the server directly.
*/
package storage

import (
	"context"
	"io"
	"time"
)

// ServiceConfig holds the connection settings for the media bucket.
type ServiceConfig struct {
	S3BucketName      string
	S3Endpoint        string
	S3AccessKeyID     string
	S3SecretAccessKey string
}

// MediaStorage is the public interface of the media storage service.
type MediaStorage interface {
	// PresignUpload generates a presigned URL for a direct browser upload
	// of the given key, pinned to the declared MIME type and size.
	PresignUpload(ctx context.Context, key, mimeType string, fileSize int64, duration time.Duration) (string, error)

	// PresignDownload generates a short-lived presigned download URL.
	PresignDownload(ctx context.Context, key string, duration time.Duration) (string, error)

	// Upload stores a small asset server-side.
	Upload(ctx context.Context, key, mimeType string, body io.Reader) error

	// Delete removes the object with the given key.
	Delete(ctx context.Context, key string) error

	// ObjectMetadata returns the content type and length of an object.
	ObjectMetadata(ctx context.Context, key string) (map[string]string, error)
}

// NewMediaStorage constructs the S3-compatible implementation.
func NewMediaStorage(cfg ServiceConfig) (MediaStorage, error) {
	return newS3Client(cfg)
}
