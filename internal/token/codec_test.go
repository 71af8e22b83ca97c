// internal/token/codec_test.go
package token

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unlockd/unlockd-backend/internal/apperrors"
)

var secret = []byte("unit-test-secret")

func TestIssueVerifyRoundTrip(t *testing.T) {
	codec := NewCodec(secret)

	encoded, issued, err := codec.Issue("content-1", "buyer-1", 5*time.Minute)
	require.NoError(t, err)
	require.NotEmpty(t, issued.TokenID)

	payload, err := codec.Verify(encoded)
	require.NoError(t, err)
	assert.Equal(t, issued, payload)
}

func TestVerifyExpiredStillReturnsPayload(t *testing.T) {
	now := time.Now()
	clock := now
	codec := NewCodecWithClock(secret, func() time.Time { return clock })

	encoded, issued, err := codec.Issue("content-1", "buyer-1", 300*time.Second)
	require.NoError(t, err)

	// 301 seconds after issuance the token is expired, but the payload comes
	// back so the caller can log which token it was.
	clock = now.Add(301 * time.Second)
	payload, err := codec.Verify(encoded)
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindTokenExpired))
	assert.Equal(t, issued.TokenID, payload.TokenID)
}

func TestVerifyTamperedPayload(t *testing.T) {
	codec := NewCodec(secret)

	encoded, _, err := codec.Issue("content-1", "buyer-1", time.Minute)
	require.NoError(t, err)

	payloadSeg, sigSeg, _ := strings.Cut(encoded, ".")

	// Flipping any single payload character must yield InvalidSignature (or
	// Malformed when the flip breaks base64url decoding).
	for i := 0; i < len(payloadSeg); i++ {
		mangled := []byte(payloadSeg)
		if mangled[i] == 'A' {
			mangled[i] = 'B'
		} else {
			mangled[i] = 'A'
		}
		_, err := codec.Verify(string(mangled) + "." + sigSeg)
		require.Error(t, err, "position %d", i)
		kind := apperrors.KindOf(err)
		assert.Contains(t, []apperrors.Kind{apperrors.KindInvalidSignature, apperrors.KindMalformed}, kind, "position %d", i)
	}
}

func TestVerifyWrongSecret(t *testing.T) {
	encoded, _, err := NewCodec(secret).Issue("content-1", "buyer-1", time.Minute)
	require.NoError(t, err)

	_, err = NewCodec([]byte("other-secret")).Verify(encoded)
	assert.True(t, apperrors.IsKind(err, apperrors.KindInvalidSignature))
}

func TestVerifyMalformed(t *testing.T) {
	codec := NewCodec(secret)

	for _, tok := range []string{"", "noseparator", "bad base64!.also bad"} {
		_, err := codec.Verify(tok)
		assert.True(t, apperrors.IsKind(err, apperrors.KindMalformed), "token %q", tok)
	}
}

func TestTokenIDsUnique(t *testing.T) {
	codec := NewCodec(secret)

	_, first, err := codec.Issue("c", "b", time.Minute)
	require.NoError(t, err)
	_, second, err := codec.Issue("c", "b", time.Minute)
	require.NoError(t, err)

	assert.NotEqual(t, first.TokenID, second.TokenID)
}
