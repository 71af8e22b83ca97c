// internal/cryptobox/cryptobox_test.go
package cryptobox

import (
	"bytes"
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unlockd/unlockd-backend/internal/apperrors"
)

func TestBlobRoundTrip(t *testing.T) {
	plaintexts := [][]byte{
		[]byte("hello"),
		[]byte(""),
		bytes.Repeat([]byte{0xAB}, 1<<16),
	}

	for _, plaintext := range plaintexts {
		ciphertext, env, err := EncryptBlob(plaintext)
		require.NoError(t, err)
		assert.Len(t, env.Key, 32)
		assert.Len(t, env.Nonce, 12)
		assert.Len(t, env.Tag, 16)

		decrypted, err := DecryptBlob(ciphertext, env)
		require.NoError(t, err)
		// bytes.Equal, not Equal: an empty plaintext legitimately round-trips
		// to a nil slice.
		assert.True(t, bytes.Equal(plaintext, decrypted), "round trip changed %d-byte plaintext", len(plaintext))
	}
}

func TestBlobFreshKeyPerCall(t *testing.T) {
	_, env1, err := EncryptBlob([]byte("same input"))
	require.NoError(t, err)
	_, env2, err := EncryptBlob([]byte("same input"))
	require.NoError(t, err)

	assert.NotEqual(t, env1.Key, env2.Key)
	assert.NotEqual(t, env1.Nonce, env2.Nonce)
}

func TestBlobTamperDetection(t *testing.T) {
	plaintext := []byte("the quick brown fox jumps over the lazy dog")
	ciphertext, env, err := EncryptBlob(plaintext)
	require.NoError(t, err)

	// Flip one bit in every ciphertext position and in the tag. All of them
	// must fail authentication; none may return plaintext bytes.
	for i := range ciphertext {
		mangled := append([]byte(nil), ciphertext...)
		mangled[i] ^= 0x01
		out, err := DecryptBlob(mangled, env)
		assert.Nil(t, out)
		assert.True(t, apperrors.IsKind(err, apperrors.KindAuthenticationFailed), "position %d", i)
	}

	for i := range env.Tag {
		badTag := append([]byte(nil), env.Tag...)
		badTag[i] ^= 0x01
		out, err := DecryptBlob(ciphertext, &BlobEnvelope{Key: env.Key, Nonce: env.Nonce, Tag: badTag})
		assert.Nil(t, out)
		assert.True(t, apperrors.IsKind(err, apperrors.KindAuthenticationFailed), "tag position %d", i)
	}
}

func TestBlobWrongKey(t *testing.T) {
	ciphertext, env, err := EncryptBlob([]byte("secret"))
	require.NoError(t, err)

	wrongKey := make([]byte, 32)
	_, err = rand.Read(wrongKey)
	require.NoError(t, err)

	_, err = DecryptBlob(ciphertext, &BlobEnvelope{Key: wrongKey, Nonce: env.Nonce, Tag: env.Tag})
	assert.True(t, apperrors.IsKind(err, apperrors.KindAuthenticationFailed))
}

func testLocatorKey(t *testing.T) []byte {
	t.Helper()
	key := make([]byte, 32)
	_, err := rand.Read(key)
	require.NoError(t, err)
	return key
}

func TestLocatorRoundTrip(t *testing.T) {
	key := testLocatorKey(t)

	locator := "bafybeigdyrzt5sfp7udm7hu76uh7y26nf3efuylqabf3oclgtqy55fbzdi"
	encoded, err := EncryptLocator(locator, key)
	require.NoError(t, err)

	decoded, err := DecryptLocator(encoded, key)
	require.NoError(t, err)
	assert.Equal(t, locator, decoded)
}

func TestLocatorCorruptCiphertext(t *testing.T) {
	key := testLocatorKey(t)

	// Locators come from stored records, so unparseable ones are corrupt
	// storage rather than bad client input.
	_, err := DecryptLocator("not hex!", key)
	assert.True(t, apperrors.IsKind(err, apperrors.KindStorageFailure))

	// Valid hex, but shorter than nonce+tag.
	_, err = DecryptLocator("deadbeef", key)
	assert.True(t, apperrors.IsKind(err, apperrors.KindStorageFailure))
}

func TestLocatorWrongKey(t *testing.T) {
	key := testLocatorKey(t)
	otherKey := testLocatorKey(t)

	encoded, err := EncryptLocator("ipfs://some-cid", key)
	require.NoError(t, err)

	_, err = DecryptLocator(encoded, otherKey)
	assert.True(t, apperrors.IsKind(err, apperrors.KindAuthenticationFailed))
}
