// internal/storage/provider.go
package storage

import (
	"context"
	"strings"

	"github.com/unlockd/unlockd-backend/internal/apperrors"
	"github.com/unlockd/unlockd-backend/internal/config"
)

// Provider is the object-store contract shared by both backends. Keys are
// hierarchical slash-separated strings; round trips are byte-identical.
type Provider interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

// New picks the backend once at startup. Exactly one is active per process.
func New(cfg config.StorageConfig) (Provider, error) {
	switch cfg.Backend {
	case "s3":
		return NewS3Provider(cfg)
	default:
		return NewLocalProvider(cfg.LocalPath)
	}
}

// validateKey rejects keys that could escape the store's namespace.
func validateKey(key string) error {
	if key == "" {
		return apperrors.New(apperrors.KindValidation, "storage key is empty")
	}
	if strings.HasPrefix(key, "/") {
		return apperrors.New(apperrors.KindValidation, "storage key must be relative: %q", key)
	}
	for _, segment := range strings.Split(key, "/") {
		if segment == ".." {
			return apperrors.New(apperrors.KindValidation, "storage key contains parent segment: %q", key)
		}
	}
	return nil
}
