// internal/services/paywall_service.go
package services

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/unlockd/unlockd-backend/internal/apperrors"
	"github.com/unlockd/unlockd-backend/internal/config"
	"github.com/unlockd/unlockd-backend/internal/models"
	"github.com/unlockd/unlockd-backend/internal/store"
	"github.com/unlockd/unlockd-backend/internal/token"
	"github.com/unlockd/unlockd-backend/internal/vault"
)

// PaymentVerifier is the one blocking, externally dependent step of the
// confirmation flow. Injected so tests can observe call counts.
type PaymentVerifier interface {
	Verify(ctx context.Context, settlementRef string, expectedAmount uint64, recipient string, asset models.AssetKind) error
}

// PaywallService implements the off-ledger intent flow: issue an intent,
// verify the buyer's settlement against the ledger, and exchange it for a
// time-boxed bearer token redeemable against encrypted storage.
type PaywallService struct {
	contents store.ContentStore
	intents  store.IntentStore
	grants   store.GrantStore
	verifier PaymentVerifier
	codec    *token.Codec
	vault    *vault.Vault
	cfg      *config.Config

	// One critical section per intent id: under a confirmation race exactly
	// one caller performs the ledger verification, the loser observes the
	// confirmed intent.
	locksMtx sync.Mutex
	locks    map[uuid.UUID]*sync.Mutex
}

func NewPaywallService(stores *store.Stores, verifier PaymentVerifier, codec *token.Codec, contentVault *vault.Vault, cfg *config.Config) *PaywallService {
	return &PaywallService{
		contents: stores.Content,
		intents:  stores.Intents,
		grants:   stores.Grants,
		verifier: verifier,
		codec:    codec,
		vault:    contentVault,
		cfg:      cfg,
		locks:    make(map[uuid.UUID]*sync.Mutex),
	}
}

type UnlockOffer struct {
	Intent  *models.PaymentIntent
	Content *models.ContentRecord
	// Replay is set when the buyer already holds a confirmed intent; the
	// caller should short-circuit to the existing redemption URL.
	Replay bool
}

type ConfirmRequest struct {
	PaymentID     string `json:"payment_id" validate:"required,uuid"`
	SettlementRef string `json:"settlement_ref" validate:"required"`
	BuyerID       string `json:"buyer_id" validate:"required"`
}

type ConfirmResult struct {
	AccessToken string    `json:"access_token"`
	DownloadURL string    `json:"download_url"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// RequestUnlock creates a pending intent for (content, buyer), or surfaces
// the already-confirmed one so retries do not pay twice.
func (s *PaywallService) RequestUnlock(ctx context.Context, contentID uuid.UUID, buyerID string) (*UnlockOffer, error) {
	if buyerID == "" {
		return nil, apperrors.New(apperrors.KindValidation, "buyer is required")
	}

	content, err := s.contents.Get(ctx, contentID)
	if err != nil {
		return nil, err
	}

	if confirmed, err := s.intents.FindConfirmed(ctx, contentID, buyerID); err == nil {
		return &UnlockOffer{Intent: confirmed, Content: content, Replay: true}, nil
	}

	intent := &models.PaymentIntent{
		ContentID:     contentID,
		BuyerID:       buyerID,
		Amount:        content.Price,
		AssetKind:     content.AssetKind,
		PayoutAddress: content.PayoutAddress,
		Status:        models.IntentStatusPending,
		ExpiresAt:     time.Now().Add(time.Duration(s.cfg.Access.IntentTTLSeconds) * time.Second),
	}
	intent.ID = uuid.New()

	if err := s.intents.Put(ctx, intent); err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"intent_id":  intent.ID,
		"content_id": contentID,
		"buyer_id":   buyerID,
		"amount":     intent.Amount,
	}).Info("Payment intent created")

	return &UnlockOffer{Intent: intent, Content: content}, nil
}

// GetIntent fetches an intent by id.
func (s *PaywallService) GetIntent(ctx context.Context, id uuid.UUID) (*models.PaymentIntent, error) {
	return s.intents.Get(ctx, id)
}

// Confirm verifies the settlement and, on success, issues the bearer token
// and records its grant. Idempotent: replaying an already-confirmed intent
// returns the original result without touching the ledger again. If the
// verifier fails or times out, the intent stays pending and no grant exists.
func (s *PaywallService) Confirm(ctx context.Context, contentID uuid.UUID, req *ConfirmRequest) (*ConfirmResult, error) {
	paymentID, err := uuid.Parse(req.PaymentID)
	if err != nil {
		return nil, apperrors.New(apperrors.KindValidation, "invalid payment id")
	}

	lock := s.intentLock(paymentID)
	lock.Lock()
	defer lock.Unlock()

	intent, err := s.intents.Get(ctx, paymentID)
	if err != nil {
		return nil, err
	}

	if intent.ContentID != contentID {
		return nil, apperrors.New(apperrors.KindValidation, "payment %s does not belong to content %s", paymentID, contentID)
	}
	if intent.BuyerID != req.BuyerID {
		return nil, apperrors.New(apperrors.KindValidation, "buyer does not match payment intent")
	}

	if intent.Status == models.IntentStatusConfirmed {
		s.releaseIntentLock(paymentID)
		return s.replayResult(intent)
	}

	// Expiry is enforced here, at confirmation time, regardless of how the
	// intent got this far.
	if intent.Expired(time.Now()) {
		return nil, apperrors.New(apperrors.KindIntentExpired, "payment intent %s expired at %s", paymentID, intent.ExpiresAt.Format(time.RFC3339))
	}

	if err := s.verifier.Verify(ctx, req.SettlementRef, intent.Amount, intent.PayoutAddress, intent.AssetKind); err != nil {
		logrus.WithFields(logrus.Fields{
			"intent_id":      paymentID,
			"settlement_ref": req.SettlementRef,
		}).WithError(err).Warn("Payment verification failed")
		return nil, err
	}

	tokenTTL := time.Duration(s.cfg.Access.TokenTTLSeconds) * time.Second
	accessToken, payload, err := s.codec.Issue(contentID.String(), intent.BuyerID, tokenTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to issue access token: %w", err)
	}

	downloadURL := s.downloadURL(contentID, accessToken)

	// The grant goes in before the intent flips to confirmed. The reverse
	// order can strand a paid buyer: a confirmed intent whose redemption URL
	// has no grant replays forever and every redemption fails. An orphaned
	// grant from a lost race is harmless; its token is never handed out.
	grant := &models.AccessGrant{
		TokenID:       payload.TokenID,
		ContentID:     contentID,
		BuyerID:       intent.BuyerID,
		SettlementRef: req.SettlementRef,
		ExpiresAt:     time.Unix(payload.Exp, 0),
	}
	if err := s.grants.Record(ctx, grant); err != nil {
		return nil, err
	}

	stored, swapped, err := s.intents.ConfirmPending(ctx, paymentID, req.SettlementRef, downloadURL)
	if err != nil {
		return nil, err
	}
	if !swapped {
		// Another instance won the compare-and-set. Its token stands.
		s.releaseIntentLock(paymentID)
		return s.replayResult(stored)
	}

	logrus.WithFields(logrus.Fields{
		"intent_id":  paymentID,
		"content_id": contentID,
		"token_id":   payload.TokenID,
	}).Info("Payment confirmed, access granted")

	s.releaseIntentLock(paymentID)

	return &ConfirmResult{
		AccessToken: accessToken,
		DownloadURL: downloadURL,
		ExpiresAt:   time.Unix(payload.Exp, 0),
	}, nil
}

// Redeem exchanges a bearer token for the decrypted content bytes. The token
// signature, the stored grant, and the request must all agree.
func (s *PaywallService) Redeem(ctx context.Context, contentID uuid.UUID, accessToken string) ([]byte, *models.ContentRecord, error) {
	payload, err := s.codec.Verify(accessToken)
	if err != nil {
		if apperrors.IsKind(err, apperrors.KindTokenExpired) {
			logrus.WithField("token_id", payload.TokenID).Info("Expired token presented")
		}
		return nil, nil, err
	}

	grant, err := s.grants.Lookup(ctx, payload.TokenID)
	if err != nil {
		if apperrors.IsKind(err, apperrors.KindNotFound) {
			return nil, nil, apperrors.New(apperrors.KindGrantMismatch, "no grant for token %s", payload.TokenID)
		}
		return nil, nil, err
	}

	if grant.Expired(time.Now()) {
		return nil, nil, apperrors.New(apperrors.KindTokenExpired, "grant %s expired", payload.TokenID)
	}

	// A syntactically valid token must also match its grant field by field;
	// a forged token referencing an unrelated grant fails here.
	if grant.ContentID.String() != payload.ContentID ||
		grant.BuyerID != payload.BuyerID ||
		grant.ContentID != contentID {
		return nil, nil, apperrors.New(apperrors.KindGrantMismatch, "token payload does not match grant")
	}

	content, err := s.contents.Get(ctx, contentID)
	if err != nil {
		return nil, nil, err
	}

	plaintext, err := s.vault.Open(ctx, content)
	if err != nil {
		return nil, nil, err
	}

	return plaintext, content, nil
}

func (s *PaywallService) replayResult(intent *models.PaymentIntent) (*ConfirmResult, error) {
	result := &ConfirmResult{DownloadURL: intent.RedemptionURL}

	if parsed, err := url.Parse(intent.RedemptionURL); err == nil {
		result.AccessToken = parsed.Query().Get("token")
	}
	if payload, err := s.codec.Verify(result.AccessToken); err == nil || payload.TokenID != "" {
		result.ExpiresAt = time.Unix(payload.Exp, 0)
	}

	return result, nil
}

func (s *PaywallService) downloadURL(contentID uuid.UUID, accessToken string) string {
	return fmt.Sprintf("%s/content/%s/asset?token=%s",
		s.cfg.Server.PublicBaseURL, contentID, url.QueryEscape(accessToken))
}

func (s *PaywallService) intentLock(id uuid.UUID) *sync.Mutex {
	s.locksMtx.Lock()
	defer s.locksMtx.Unlock()

	lock, ok := s.locks[id]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[id] = lock
	}
	return lock
}

// releaseIntentLock drops the per-intent mutex once the intent is durably
// confirmed; waiters already holding the old mutex re-read the intent and
// take the replay path, late arrivals get a fresh mutex and see the same
// confirmed state. Keeps the map from growing one entry per intent forever.
func (s *PaywallService) releaseIntentLock(id uuid.UUID) {
	s.locksMtx.Lock()
	defer s.locksMtx.Unlock()
	delete(s.locks, id)
}
