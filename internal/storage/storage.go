package storage

import (
	"context"
	"errors"
	"time"
)

// Default expiry duration for presigned URLs
const DefaultPresignedURLExpiry = 15 * time.Minute

var ErrStorageDisabled = errors.New("object storage is not configured")

// FileStorage defines the interface for object storage operations.
type FileStorage interface {
	// GeneratePresignedUploadURL creates a temporary URL that allows PUT requests
	// for uploading an object directly to the storage provider.
	GeneratePresignedUploadURL(ctx context.Context, objectKey string, contentType string, expires time.Duration) (string, error)

	// ObjectExists reports whether the object has been uploaded.
	ObjectExists(ctx context.Context, objectKey string) (bool, error)

	// PublicURL is the stable address stored on profiles (e.g. photoUrl).
	PublicURL(objectKey string) string

	// DeleteObject removes an object from the storage provider.
	DeleteObject(ctx context.Context, objectKey string) error
}

// Disabled is used when no bucket is configured; every call fails.
type Disabled struct{}

func (Disabled) GeneratePresignedUploadURL(context.Context, string, string, time.Duration) (string, error) {
	return "", ErrStorageDisabled
}

func (Disabled) ObjectExists(context.Context, string) (bool, error) { return false, ErrStorageDisabled }

func (Disabled) PublicURL(string) string { return "" }

func (Disabled) DeleteObject(context.Context, string) error { return ErrStorageDisabled }
