// internal/vault/vault.go
package vault

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"

	"github.com/unlockd/unlockd-backend/internal/apperrors"
	"github.com/unlockd/unlockd-backend/internal/cryptobox"
	"github.com/unlockd/unlockd-backend/internal/models"
	"github.com/unlockd/unlockd-backend/internal/storage"
)

// Vault persists content blobs encrypted at rest and retrieves them on
// redemption. Previews are stored in the clear; they are the free sample.
type Vault struct {
	objects storage.Provider
}

func New(objects storage.Provider) *Vault {
	return &Vault{objects: objects}
}

// SealedBlob describes one encrypted object the caller attaches to its
// ContentRecord.
type SealedBlob struct {
	StorageKey  string
	Envelope    models.EncryptionEnvelope
	ContentHash string
}

func blobKey(contentID uuid.UUID) string {
	return fmt.Sprintf("content/%s/blob", contentID)
}

func previewKey(contentID uuid.UUID) string {
	return fmt.Sprintf("content/%s/preview", contentID)
}

// Seal encrypts plaintext under a fresh per-item key and writes the
// ciphertext to object storage.
func (v *Vault) Seal(ctx context.Context, contentID uuid.UUID, plaintext []byte) (*SealedBlob, error) {
	ciphertext, env, err := cryptobox.EncryptBlob(plaintext)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt content: %w", err)
	}

	key := blobKey(contentID)
	if err := v.objects.Put(ctx, key, ciphertext, "application/octet-stream"); err != nil {
		return nil, err
	}

	hash := sha256.Sum256(plaintext)
	return &SealedBlob{
		StorageKey: key,
		Envelope: models.EncryptionEnvelope{
			Key:     base64.StdEncoding.EncodeToString(env.Key),
			Nonce:   base64.StdEncoding.EncodeToString(env.Nonce),
			AuthTag: base64.StdEncoding.EncodeToString(env.Tag),
		},
		ContentHash: hex.EncodeToString(hash[:]),
	}, nil
}

// Open fetches and decrypts a content record's blob. A tampered object or a
// corrupted envelope fails authentication; no partial plaintext escapes.
func (v *Vault) Open(ctx context.Context, record *models.ContentRecord) ([]byte, error) {
	ciphertext, err := v.objects.Get(ctx, record.StorageKey)
	if err != nil {
		return nil, err
	}

	env, err := decodeEnvelope(record.Envelope)
	if err != nil {
		return nil, err
	}

	return cryptobox.DecryptBlob(ciphertext, env)
}

// StorePreview writes the optional unencrypted preview.
func (v *Vault) StorePreview(ctx context.Context, contentID uuid.UUID, data []byte, contentType string) (string, error) {
	key := previewKey(contentID)
	if err := v.objects.Put(ctx, key, data, contentType); err != nil {
		return "", err
	}
	return key, nil
}

// Preview fetches the preview bytes, NotFound when the record has none.
func (v *Vault) Preview(ctx context.Context, record *models.ContentRecord) ([]byte, error) {
	if record.PreviewKey == "" {
		return nil, apperrors.New(apperrors.KindNotFound, "content %s has no preview", record.ID)
	}
	return v.objects.Get(ctx, record.PreviewKey)
}

func decodeEnvelope(env models.EncryptionEnvelope) (*cryptobox.BlobEnvelope, error) {
	key, err := base64.StdEncoding.DecodeString(env.Key)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindStorageFailure, err, "envelope key is not valid base64")
	}
	nonce, err := base64.StdEncoding.DecodeString(env.Nonce)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindStorageFailure, err, "envelope nonce is not valid base64")
	}
	tag, err := base64.StdEncoding.DecodeString(env.AuthTag)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindStorageFailure, err, "envelope tag is not valid base64")
	}
	return &cryptobox.BlobEnvelope{Key: key, Nonce: nonce, Tag: tag}, nil
}
