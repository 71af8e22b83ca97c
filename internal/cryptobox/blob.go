// internal/cryptobox/blob.go
package cryptobox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"

	"github.com/unlockd/unlockd-backend/internal/apperrors"
)

const (
	blobKeySize   = 32
	blobNonceSize = 12
	blobTagSize   = 16
)

// BlobEnvelope is the per-item symmetric material returned by EncryptBlob.
// The caller persists it alongside the ciphertext; nothing here is ever
// reused for another blob.
type BlobEnvelope struct {
	Key   []byte
	Nonce []byte
	Tag   []byte
}

// EncryptBlob encrypts plaintext under a freshly generated AES-256-GCM key
// and nonce. The authentication tag is returned separately from the
// ciphertext so the caller can store the three envelope parts individually.
func EncryptBlob(plaintext []byte) ([]byte, *BlobEnvelope, error) {
	key := make([]byte, blobKeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, nil, err
	}

	nonce := make([]byte, blobNonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, nil, err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, nil, err
	}

	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, nil, err
	}

	sealed := aesgcm.Seal(nil, nonce, plaintext, nil)
	cut := len(sealed) - blobTagSize

	return sealed[:cut], &BlobEnvelope{
		Key:   key,
		Nonce: nonce,
		Tag:   sealed[cut:],
	}, nil
}

// DecryptBlob verifies the authentication tag and returns the plaintext.
// A tag that does not verify (tampered ciphertext or wrong key) fails with
// AuthenticationFailed before any plaintext bytes are produced.
func DecryptBlob(ciphertext []byte, env *BlobEnvelope) ([]byte, error) {
	if len(env.Key) != blobKeySize || len(env.Nonce) != blobNonceSize || len(env.Tag) != blobTagSize {
		return nil, apperrors.New(apperrors.KindStorageFailure, "invalid blob envelope dimensions")
	}

	block, err := aes.NewCipher(env.Key)
	if err != nil {
		return nil, err
	}

	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	sealed := make([]byte, 0, len(ciphertext)+blobTagSize)
	sealed = append(sealed, ciphertext...)
	sealed = append(sealed, env.Tag...)

	plaintext, err := aesgcm.Open(nil, env.Nonce, sealed, nil)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindAuthenticationFailed, err, "blob authentication failed")
	}

	return plaintext, nil
}
