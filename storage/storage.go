// Package storage archives turn attachments on the local filesystem or S3.
package storage

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"legalcheck-backend/config"

	"github.com/google/uuid"
)

// Storage stores attachment bytes.
type Storage interface {
	// Upload stores an attachment and returns its storage path
	Upload(ctx context.Context, fileID uuid.UUID, filename string, data io.Reader) (string, error)

	// Download retrieves an attachment by storage path
	Download(ctx context.Context, storagePath string) (io.ReadCloser, error)
}

// Backend types.
const (
	TypeLocal = "local"
	TypeS3    = "s3"
)

// New builds the configured backend. An empty type disables archiving and
// returns (nil, nil).
func New(ctx context.Context, cfg *config.Config) (Storage, error) {
	switch strings.ToLower(cfg.StorageType) {
	case "", "none":
		return nil, nil
	case TypeLocal:
		s, err := NewLocalStorage(cfg.StorageLocalPath)
		if err != nil {
			return nil, err
		}
		return s, nil
	case TypeS3:
		if cfg.S3Bucket == "" {
			return nil, fmt.Errorf("AWS_S3_BUCKET is required for s3 storage")
		}
		s, err := NewS3Storage(ctx, S3Options{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.AWSAccessKey,
			SecretKey: cfg.AWSSecretKey,
		})
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.StorageType)
	}
}

// objectKey places attachments under a two-character fan-out prefix.
func objectKey(fileID uuid.UUID, filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	base := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	base = strings.NewReplacer(" ", "_", "/", "_", "\\", "_").Replace(base)
	id := fileID.String()
	return fmt.Sprintf("attachments/%s/%s_%s%s", id[:2], id, base, ext)
}

func contentType(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	default:
		return "application/octet-stream"
	}
}
