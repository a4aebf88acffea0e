// Package storage keeps avatar images in Google Cloud Storage.
package storage

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"

	gcs "cloud.google.com/go/storage"
	"github.com/google/uuid"

	"github.com/collabhub/collabhub/internal/domain/gateway"
	"github.com/collabhub/collabhub/pkg/helpers"
)

var (
	ErrNotConfigured   = errors.New("storage: gcs not configured")
	ErrUnsupportedType = errors.New("storage: unsupported avatar type")
)

var allowedAvatarTypes = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

type AvatarStore struct {
	client *gcs.Client
	bucket string
}

func NewAvatarStore(client *gcs.Client, bucket string) *AvatarStore {
	return &AvatarStore{client: client, bucket: bucket}
}

var _ gateway.AvatarStore = (*AvatarStore)(nil)

func (s *AvatarStore) Upload(ctx context.Context, userID string, r io.Reader, filename, contentType string) (string, error) {
	if s.client == nil || s.bucket == "" {
		return "", ErrNotConfigured
	}
	objectPath, err := AvatarObjectPath(userID, filename, contentType)
	if err != nil {
		return "", err
	}
	return helpers.UploadObject(ctx, s.client, s.bucket, objectPath, contentType, r)
}

// AvatarObjectPath places each upload under avatars/<user>/ with a fresh
// name so CDN caches never serve a stale image.
func AvatarObjectPath(userID, filename, contentType string) (string, error) {
	ext, ok := allowedAvatarTypes[strings.ToLower(contentType)]
	if !ok {
		return "", ErrUnsupportedType
	}
	if fe := strings.ToLower(path.Ext(filename)); fe == ".jpeg" || fe == ext {
		ext = fe
	}
	return path.Join("avatars", userID, uuid.NewString()+ext), nil
}
