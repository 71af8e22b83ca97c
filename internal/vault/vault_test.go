// internal/vault/vault_test.go
package vault

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unlockd/unlockd-backend/internal/apperrors"
	"github.com/unlockd/unlockd-backend/internal/models"
	"github.com/unlockd/unlockd-backend/internal/storage"
)

func newTestVault(t *testing.T) (*Vault, storage.Provider) {
	t.Helper()
	provider, err := storage.NewLocalProvider(t.TempDir())
	require.NoError(t, err)
	return New(provider), provider
}

func TestSealOpenRoundTrip(t *testing.T) {
	v, provider := newTestVault(t)
	ctx := context.Background()
	contentID := uuid.New()

	plaintext := []byte("original upload bytes")
	sealed, err := v.Seal(ctx, contentID, plaintext)
	require.NoError(t, err)
	assert.NotEmpty(t, sealed.ContentHash)

	// What landed in storage must not be the plaintext.
	stored, err := provider.Get(ctx, sealed.StorageKey)
	require.NoError(t, err)
	assert.NotEqual(t, plaintext, stored)

	record := &models.ContentRecord{
		StorageKey: sealed.StorageKey,
		Envelope:   sealed.Envelope,
	}
	record.ID = contentID

	opened, err := v.Open(ctx, record)
	require.NoError(t, err)
	assert.Equal(t, plaintext, opened)
}

func TestOpenTamperedObject(t *testing.T) {
	v, provider := newTestVault(t)
	ctx := context.Background()
	contentID := uuid.New()

	sealed, err := v.Seal(ctx, contentID, []byte("secret contents"))
	require.NoError(t, err)

	stored, err := provider.Get(ctx, sealed.StorageKey)
	require.NoError(t, err)
	stored[0] ^= 0xFF
	require.NoError(t, provider.Put(ctx, sealed.StorageKey, stored, "application/octet-stream"))

	record := &models.ContentRecord{StorageKey: sealed.StorageKey, Envelope: sealed.Envelope}
	record.ID = contentID

	out, err := v.Open(ctx, record)
	assert.Nil(t, out)
	assert.True(t, apperrors.IsKind(err, apperrors.KindAuthenticationFailed))
}

func TestPreview(t *testing.T) {
	v, _ := newTestVault(t)
	ctx := context.Background()
	contentID := uuid.New()

	record := &models.ContentRecord{}
	record.ID = contentID

	_, err := v.Preview(ctx, record)
	assert.True(t, apperrors.IsKind(err, apperrors.KindNotFound))

	key, err := v.StorePreview(ctx, contentID, []byte("free sample"), "image/png")
	require.NoError(t, err)
	record.PreviewKey = key

	preview, err := v.Preview(ctx, record)
	require.NoError(t, err)
	assert.Equal(t, []byte("free sample"), preview)
}
