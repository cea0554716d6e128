package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/nikhilbhutani/memorylane/internal/config"
)

// Storage keeps uploaded media and generated story assets in one bucket.
type Storage interface {
	Upload(ctx context.Context, path string, data io.Reader, size int64, contentType string) error
	Delete(ctx context.Context, path string) error
	// URL returns an address the AI providers and clients can fetch the object from.
	URL(ctx context.Context, path string) (string, error)
}

func New(ctx context.Context, cfg config.StorageConfig) (Storage, error) {
	switch cfg.Backend {
	case "supabase":
		return NewSupabaseStorage(cfg.SupabaseURL, cfg.SupabaseKey, cfg.Bucket), nil
	case "minio":
		return NewMinioStorage(ctx, MinioConfig{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			UseSSL:    cfg.MinioUseSSL,
			Bucket:    cfg.Bucket,
			PublicURL: cfg.MinioPublicURL,
		})
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}
