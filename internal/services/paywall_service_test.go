// internal/services/paywall_service_test.go
package services

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unlockd/unlockd-backend/internal/apperrors"
	"github.com/unlockd/unlockd-backend/internal/config"
	"github.com/unlockd/unlockd-backend/internal/models"
	"github.com/unlockd/unlockd-backend/internal/storage"
	"github.com/unlockd/unlockd-backend/internal/store"
	"github.com/unlockd/unlockd-backend/internal/token"
	"github.com/unlockd/unlockd-backend/internal/vault"
)

// countingVerifier fakes the ledger verification step. Its result is switchable
// between calls so a failed confirmation can be retried against the same
// service instance.
type countingVerifier struct {
	mu    sync.Mutex
	err   error
	calls int32
}

func (v *countingVerifier) Verify(ctx context.Context, settlementRef string, expectedAmount uint64, recipient string, asset models.AssetKind) error {
	atomic.AddInt32(&v.calls, 1)
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.err
}

func (v *countingVerifier) setErr(err error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.err = err
}

func (v *countingVerifier) callCount() int32 {
	return atomic.LoadInt32(&v.calls)
}

type paywallFixture struct {
	service  *PaywallService
	stores   *store.Stores
	verifier *countingVerifier
	vault    *vault.Vault
	content  *models.ContentRecord
	payload  []byte
}

func newPaywallFixture(t *testing.T) *paywallFixture {
	t.Helper()

	cfg := &config.Config{
		Server: config.ServerConfig{PublicBaseURL: "http://localhost:8080"},
		Access: config.AccessConfig{
			TokenSecret:      "test-secret",
			TokenTTLSeconds:  300,
			IntentTTLSeconds: 600,
		},
	}

	provider, err := storage.NewLocalProvider(t.TempDir())
	require.NoError(t, err)
	contentVault := vault.New(provider)

	payload := []byte("the full premium track, every byte of it")
	contentID := uuid.New()
	sealed, err := contentVault.Seal(context.Background(), contentID, payload)
	require.NoError(t, err)

	content := &models.ContentRecord{
		CreatorID:     uuid.New(),
		Title:         "Track one",
		Price:         1_000_000,
		AssetKind:     models.AssetKindNative,
		PayoutAddress: "CreatorPayoutAddr1111111111111111",
		StorageKey:    sealed.StorageKey,
		Envelope:      sealed.Envelope,
		ContentType:   "audio/mpeg",
		FileName:      "track-one.mp3",
		ContentHash:   sealed.ContentHash,
	}
	content.ID = contentID

	stores := store.NewMemoryStores()
	require.NoError(t, stores.Content.Put(context.Background(), content))

	verifier := &countingVerifier{}
	codec := token.NewCodec([]byte(cfg.Access.TokenSecret))
	service := NewPaywallService(stores, verifier, codec, contentVault, cfg)

	return &paywallFixture{
		service:  service,
		stores:   stores,
		verifier: verifier,
		vault:    contentVault,
		content:  content,
		payload:  payload,
	}
}

func TestRequestUnlockCreatesPendingIntent(t *testing.T) {
	fx := newPaywallFixture(t)

	offer, err := fx.service.RequestUnlock(context.Background(), fx.content.ID, "buyer-1")
	require.NoError(t, err)

	assert.False(t, offer.Replay)
	assert.Equal(t, models.IntentStatusPending, offer.Intent.Status)
	assert.Equal(t, fx.content.Price, offer.Intent.Amount)
	assert.Equal(t, fx.content.PayoutAddress, offer.Intent.PayoutAddress)
	assert.WithinDuration(t, time.Now().Add(10*time.Minute), offer.Intent.ExpiresAt, 5*time.Second)
}

func TestRequestUnlockRequiresBuyer(t *testing.T) {
	fx := newPaywallFixture(t)

	_, err := fx.service.RequestUnlock(context.Background(), fx.content.ID, "")
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))
}

func TestRequestUnlockUnknownContent(t *testing.T) {
	fx := newPaywallFixture(t)

	_, err := fx.service.RequestUnlock(context.Background(), uuid.New(), "buyer-1")
	assert.True(t, apperrors.IsKind(err, apperrors.KindNotFound))
}

func TestConfirmIssuesTokenAndGrant(t *testing.T) {
	fx := newPaywallFixture(t)

	offer, err := fx.service.RequestUnlock(context.Background(), fx.content.ID, "buyer-1")
	require.NoError(t, err)

	result, err := fx.service.Confirm(context.Background(), fx.content.ID, &ConfirmRequest{
		PaymentID:     offer.Intent.ID.String(),
		SettlementRef: "settlement-abc",
		BuyerID:       "buyer-1",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, result.AccessToken)
	assert.Contains(t, result.DownloadURL, fx.content.ID.String())
	assert.WithinDuration(t, time.Now().Add(5*time.Minute), result.ExpiresAt, 5*time.Second)

	stored, err := fx.stores.Intents.Get(context.Background(), offer.Intent.ID)
	require.NoError(t, err)
	assert.Equal(t, models.IntentStatusConfirmed, stored.Status)
	assert.Equal(t, "settlement-abc", stored.SettlementRef)
	assert.Equal(t, result.DownloadURL, stored.RedemptionURL)
}

func TestConfirmReplayReturnsOriginalResult(t *testing.T) {
	fx := newPaywallFixture(t)

	offer, err := fx.service.RequestUnlock(context.Background(), fx.content.ID, "buyer-1")
	require.NoError(t, err)

	req := &ConfirmRequest{
		PaymentID:     offer.Intent.ID.String(),
		SettlementRef: "settlement-abc",
		BuyerID:       "buyer-1",
	}

	first, err := fx.service.Confirm(context.Background(), fx.content.ID, req)
	require.NoError(t, err)

	second, err := fx.service.Confirm(context.Background(), fx.content.ID, req)
	require.NoError(t, err)

	assert.Equal(t, first.DownloadURL, second.DownloadURL)
	assert.Equal(t, first.AccessToken, second.AccessToken)
	assert.Equal(t, int32(1), fx.verifier.callCount(), "replay must not hit the ledger")
}

func TestConfirmConcurrentVerifiesOnce(t *testing.T) {
	fx := newPaywallFixture(t)

	offer, err := fx.service.RequestUnlock(context.Background(), fx.content.ID, "buyer-1")
	require.NoError(t, err)

	req := &ConfirmRequest{
		PaymentID:     offer.Intent.ID.String(),
		SettlementRef: "settlement-abc",
		BuyerID:       "buyer-1",
	}

	const callers = 8
	results := make([]*ConfirmResult, callers)
	errs := make([]error, callers)

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = fx.service.Confirm(context.Background(), fx.content.ID, req)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), fx.verifier.callCount(), "exactly one caller performs ledger verification")
	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, results[0].DownloadURL, results[i].DownloadURL)
	}
}

func TestConfirmInsufficientLeavesIntentPending(t *testing.T) {
	fx := newPaywallFixture(t)
	fx.verifier.setErr(apperrors.New(apperrors.KindInsufficientPayment, "expected 1000000, observed 400000"))

	offer, err := fx.service.RequestUnlock(context.Background(), fx.content.ID, "buyer-1")
	require.NoError(t, err)

	req := &ConfirmRequest{
		PaymentID:     offer.Intent.ID.String(),
		SettlementRef: "settlement-short",
		BuyerID:       "buyer-1",
	}

	_, err = fx.service.Confirm(context.Background(), fx.content.ID, req)
	assert.True(t, apperrors.IsKind(err, apperrors.KindInsufficientPayment))

	stored, err := fx.stores.Intents.Get(context.Background(), offer.Intent.ID)
	require.NoError(t, err)
	assert.Equal(t, models.IntentStatusPending, stored.Status)

	// The buyer tops up and retries with a new settlement.
	fx.verifier.setErr(nil)
	req.SettlementRef = "settlement-full"
	result, err := fx.service.Confirm(context.Background(), fx.content.ID, req)
	require.NoError(t, err)
	assert.NotEmpty(t, result.AccessToken)
}

func TestConfirmExpiredIntent(t *testing.T) {
	fx := newPaywallFixture(t)

	intent := &models.PaymentIntent{
		ContentID:     fx.content.ID,
		BuyerID:       "buyer-1",
		Amount:        fx.content.Price,
		AssetKind:     fx.content.AssetKind,
		PayoutAddress: fx.content.PayoutAddress,
		Status:        models.IntentStatusPending,
		ExpiresAt:     time.Now().Add(-time.Minute),
	}
	intent.ID = uuid.New()
	require.NoError(t, fx.stores.Intents.Put(context.Background(), intent))

	_, err := fx.service.Confirm(context.Background(), fx.content.ID, &ConfirmRequest{
		PaymentID:     intent.ID.String(),
		SettlementRef: "settlement-late",
		BuyerID:       "buyer-1",
	})
	assert.True(t, apperrors.IsKind(err, apperrors.KindIntentExpired))
	assert.Equal(t, int32(0), fx.verifier.callCount())
}

func TestConfirmBuyerMismatch(t *testing.T) {
	fx := newPaywallFixture(t)

	offer, err := fx.service.RequestUnlock(context.Background(), fx.content.ID, "buyer-1")
	require.NoError(t, err)

	_, err = fx.service.Confirm(context.Background(), fx.content.ID, &ConfirmRequest{
		PaymentID:     offer.Intent.ID.String(),
		SettlementRef: "settlement-abc",
		BuyerID:       "someone-else",
	})
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))
	assert.Equal(t, int32(0), fx.verifier.callCount())
}

func TestConfirmWrongContent(t *testing.T) {
	fx := newPaywallFixture(t)

	offer, err := fx.service.RequestUnlock(context.Background(), fx.content.ID, "buyer-1")
	require.NoError(t, err)

	_, err = fx.service.Confirm(context.Background(), uuid.New(), &ConfirmRequest{
		PaymentID:     offer.Intent.ID.String(),
		SettlementRef: "settlement-abc",
		BuyerID:       "buyer-1",
	})
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))
}

func TestRedeemReturnsPlaintext(t *testing.T) {
	fx := newPaywallFixture(t)

	offer, err := fx.service.RequestUnlock(context.Background(), fx.content.ID, "buyer-1")
	require.NoError(t, err)

	result, err := fx.service.Confirm(context.Background(), fx.content.ID, &ConfirmRequest{
		PaymentID:     offer.Intent.ID.String(),
		SettlementRef: "settlement-abc",
		BuyerID:       "buyer-1",
	})
	require.NoError(t, err)

	plaintext, record, err := fx.service.Redeem(context.Background(), fx.content.ID, result.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, fx.payload, plaintext)
	assert.Equal(t, fx.content.ID, record.ID)
}

func TestRedeemTamperedToken(t *testing.T) {
	fx := newPaywallFixture(t)

	offer, err := fx.service.RequestUnlock(context.Background(), fx.content.ID, "buyer-1")
	require.NoError(t, err)

	result, err := fx.service.Confirm(context.Background(), fx.content.ID, &ConfirmRequest{
		PaymentID:     offer.Intent.ID.String(),
		SettlementRef: "settlement-abc",
		BuyerID:       "buyer-1",
	})
	require.NoError(t, err)

	tampered := "x" + result.AccessToken[1:]
	_, _, err = fx.service.Redeem(context.Background(), fx.content.ID, tampered)
	require.Error(t, err)
	kind := apperrors.KindOf(err)
	assert.Contains(t, []apperrors.Kind{apperrors.KindInvalidSignature, apperrors.KindMalformed}, kind)
}

func TestRedeemUnknownGrant(t *testing.T) {
	fx := newPaywallFixture(t)

	// A token signed with the right secret but never granted: simulate a
	// second instance issuing tokens with no shared grant store.
	codec := token.NewCodec([]byte("test-secret"))
	orphan, _, err := codec.Issue(fx.content.ID.String(), "buyer-1", 5*time.Minute)
	require.NoError(t, err)

	_, _, err = fx.service.Redeem(context.Background(), fx.content.ID, orphan)
	assert.True(t, apperrors.IsKind(err, apperrors.KindGrantMismatch))
}

func TestRedeemContentMismatch(t *testing.T) {
	fx := newPaywallFixture(t)

	offer, err := fx.service.RequestUnlock(context.Background(), fx.content.ID, "buyer-1")
	require.NoError(t, err)

	result, err := fx.service.Confirm(context.Background(), fx.content.ID, &ConfirmRequest{
		PaymentID:     offer.Intent.ID.String(),
		SettlementRef: "settlement-abc",
		BuyerID:       "buyer-1",
	})
	require.NoError(t, err)

	_, _, err = fx.service.Redeem(context.Background(), uuid.New(), result.AccessToken)
	assert.True(t, apperrors.IsKind(err, apperrors.KindGrantMismatch))
}

// flakyGrantStore fails a set number of Record calls before behaving.
type flakyGrantStore struct {
	store.GrantStore
	failures int
}

func (s *flakyGrantStore) Record(ctx context.Context, grant *models.AccessGrant) error {
	if s.failures > 0 {
		s.failures--
		return apperrors.New(apperrors.KindStorageFailure, "grant write failed")
	}
	return s.GrantStore.Record(ctx, grant)
}

func TestConfirmGrantWriteFailureLeavesIntentPending(t *testing.T) {
	fx := newPaywallFixture(t)

	// First grant write fails; the intent must stay pending so the buyer's
	// retry can still succeed and produce a redeemable token.
	flaky := &flakyGrantStore{GrantStore: fx.stores.Grants, failures: 1}
	fx.stores.Grants = flaky
	fx.service.grants = flaky

	offer, err := fx.service.RequestUnlock(context.Background(), fx.content.ID, "buyer-1")
	require.NoError(t, err)

	req := &ConfirmRequest{
		PaymentID:     offer.Intent.ID.String(),
		SettlementRef: "settlement-abc",
		BuyerID:       "buyer-1",
	}

	_, err = fx.service.Confirm(context.Background(), fx.content.ID, req)
	assert.True(t, apperrors.IsKind(err, apperrors.KindStorageFailure))

	stored, err := fx.stores.Intents.Get(context.Background(), offer.Intent.ID)
	require.NoError(t, err)
	assert.Equal(t, models.IntentStatusPending, stored.Status, "a confirmed intent without a grant strands the buyer")

	result, err := fx.service.Confirm(context.Background(), fx.content.ID, req)
	require.NoError(t, err)

	plaintext, _, err := fx.service.Redeem(context.Background(), fx.content.ID, result.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, fx.payload, plaintext)
}

func TestConfirmReleasesIntentLock(t *testing.T) {
	fx := newPaywallFixture(t)

	offer, err := fx.service.RequestUnlock(context.Background(), fx.content.ID, "buyer-1")
	require.NoError(t, err)

	req := &ConfirmRequest{
		PaymentID:     offer.Intent.ID.String(),
		SettlementRef: "settlement-abc",
		BuyerID:       "buyer-1",
	}

	_, err = fx.service.Confirm(context.Background(), fx.content.ID, req)
	require.NoError(t, err)

	// Replays after confirmation must not re-grow the map either.
	_, err = fx.service.Confirm(context.Background(), fx.content.ID, req)
	require.NoError(t, err)

	fx.service.locksMtx.Lock()
	held := len(fx.service.locks)
	fx.service.locksMtx.Unlock()
	assert.Zero(t, held, "confirmed intents must not pin their mutexes")
}

func TestGetPaywallAfterConfirmReplays(t *testing.T) {
	fx := newPaywallFixture(t)

	offer, err := fx.service.RequestUnlock(context.Background(), fx.content.ID, "buyer-1")
	require.NoError(t, err)

	result, err := fx.service.Confirm(context.Background(), fx.content.ID, &ConfirmRequest{
		PaymentID:     offer.Intent.ID.String(),
		SettlementRef: "settlement-abc",
		BuyerID:       "buyer-1",
	})
	require.NoError(t, err)

	replay, err := fx.service.RequestUnlock(context.Background(), fx.content.ID, "buyer-1")
	require.NoError(t, err)
	assert.True(t, replay.Replay)
	assert.Equal(t, result.DownloadURL, replay.Intent.RedemptionURL)
}
