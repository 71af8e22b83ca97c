// internal/storage/local.go
package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/unlockd/unlockd-backend/internal/apperrors"
)

// LocalProvider stores objects as files under a base directory. Content types
// are not persisted; callers that need them keep them in their own records.
type LocalProvider struct {
	basePath string
}

func NewLocalProvider(basePath string) (*LocalProvider, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &LocalProvider{basePath: basePath}, nil
}

func (p *LocalProvider) Put(ctx context.Context, key string, data []byte, contentType string) error {
	if err := validateKey(key); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	path := filepath.Join(p.basePath, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return apperrors.Wrap(apperrors.KindStorageFailure, err, "failed to prepare directory for %q", key)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return apperrors.Wrap(apperrors.KindStorageFailure, err, "failed to write object %q", key)
	}
	return nil
}

func (p *LocalProvider) Get(ctx context.Context, key string) ([]byte, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filepath.Join(p.basePath, filepath.FromSlash(key)))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, apperrors.New(apperrors.KindNotFound, "object %q not found", key)
		}
		return nil, apperrors.Wrap(apperrors.KindStorageFailure, err, "failed to read object %q", key)
	}
	return data, nil
}

func (p *LocalProvider) Delete(ctx context.Context, key string) error {
	if err := validateKey(key); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := os.Remove(filepath.Join(p.basePath, filepath.FromSlash(key))); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return apperrors.New(apperrors.KindNotFound, "object %q not found", key)
		}
		return apperrors.Wrap(apperrors.KindStorageFailure, err, "failed to delete object %q", key)
	}
	return nil
}
