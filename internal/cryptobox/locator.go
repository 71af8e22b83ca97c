// internal/cryptobox/locator.go
package cryptobox

import (
	"crypto/rand"
	"encoding/hex"

	"golang.org/x/crypto/chacha20poly1305"

	"github.com/unlockd/unlockd-backend/internal/apperrors"
)

// Locators are small and numerous, so they share one static process-wide key
// instead of per-item keys. The wire form is nonce(12) || ciphertext ||
// tag(16), hex-encoded. Real access control is the on-ledger receipt check;
// locator secrecy is only the second layer.

const locatorMinLen = chacha20poly1305.NonceSize + chacha20poly1305.Overhead

// EncryptLocator seals a short locator string under the shared static key.
func EncryptLocator(text string, staticKey []byte) (string, error) {
	aead, err := chacha20poly1305.New(staticKey)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, chacha20poly1305.NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}

	sealed := aead.Seal(nonce, nonce, []byte(text), nil)
	return hex.EncodeToString(sealed), nil
}

// DecryptLocator is the inverse of EncryptLocator. The only source of a
// locator is stored record state, so bad hex or a truncated blob is corrupt
// storage, not bad client input; a tag mismatch fails AuthenticationFailed.
func DecryptLocator(encoded string, staticKey []byte) (string, error) {
	raw, err := hex.DecodeString(encoded)
	if err != nil {
		return "", apperrors.Wrap(apperrors.KindStorageFailure, err, "locator is not valid hex")
	}
	if len(raw) < locatorMinLen {
		return "", apperrors.New(apperrors.KindStorageFailure, "locator too short: %d bytes", len(raw))
	}

	aead, err := chacha20poly1305.New(staticKey)
	if err != nil {
		return "", err
	}

	nonce, sealed := raw[:chacha20poly1305.NonceSize], raw[chacha20poly1305.NonceSize:]
	plaintext, err := aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", apperrors.Wrap(apperrors.KindAuthenticationFailed, err, "locator authentication failed")
	}

	return string(plaintext), nil
}
