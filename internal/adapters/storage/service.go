// Package storage stores compliance artifacts (Item 23 signature images and
// signed receipt PDFs) in S3-compatible object storage.
package storage

import (
	"context"
	"time"
)

// PresignedURL contains the URL and metadata for a presigned download.
type PresignedURL struct {
	URL       string    `json:"url"`
	FileKey   string    `json:"fileKey"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// ObjectStore is what the access and webhook contexts need from storage.
type ObjectStore interface {
	// PutObject writes data under key, replacing any previous object.
	PutObject(ctx context.Context, bucket, key, contentType string, data []byte) error

	// GenerateDownloadURL creates a presigned URL for downloading a file.
	GenerateDownloadURL(ctx context.Context, bucket, fileKey string) (*PresignedURL, error)
}
