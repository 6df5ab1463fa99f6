// Package storage keeps opaque blobs, such as synthesized speech, on local disk or in a MinIO bucket.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"fourall/internal/config"
)

// ErrNotFound is returned by Download when the key does not exist
var ErrNotFound = errors.New("object not found")

// Storage is a flat key/blob store
type Storage interface {
	Upload(ctx context.Context, key string, reader io.Reader) error
	Download(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// New returns the backend selected by cfg.Backend
func New(ctx context.Context, cfg config.Storage, localDir string) (Storage, error) {
	switch strings.ToLower(cfg.Backend) {
	case "", "local":
		return NewLocal(localDir)
	case "minio":
		mc, err := minio.New(cfg.Minio.Endpoint, &minio.Options{
			Creds:  credentials.NewStaticV4(cfg.Minio.AccessKey, cfg.Minio.SecretKey, ""),
			Secure: cfg.Minio.UseSSL,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create minio client: %w", err)
		}
		return NewMinio(ctx, mc, cfg.Minio.Bucket)
	default:
		return nil, fmt.Errorf("unsupported storage backend: %s", cfg.Backend)
	}
}
