// internal/store/store.go
package store

import (
	"context"

	"github.com/google/uuid"

	"github.com/unlockd/unlockd-backend/internal/models"
)

// Stores are keyed collections with per-key linearizability. Both backends
// (in-memory for tests and dev, Postgres for production) satisfy the same
// contracts, and the confirmation path is deliberately narrow: the only way
// to move an intent out of pending is the compare-and-set ConfirmPending.

type ContentStore interface {
	Put(ctx context.Context, record *models.ContentRecord) error
	Get(ctx context.Context, id uuid.UUID) (*models.ContentRecord, error)
	// Update persists preview and payout-address corrections. Everything else
	// on a ContentRecord is immutable; callers enforce that.
	Update(ctx context.Context, record *models.ContentRecord) error
	ListByCreator(ctx context.Context, creatorID uuid.UUID) ([]models.ContentRecord, error)
}

type IntentStore interface {
	Put(ctx context.Context, intent *models.PaymentIntent) error
	Get(ctx context.Context, id uuid.UUID) (*models.PaymentIntent, error)
	// FindConfirmed returns the confirmed intent for a (content, buyer) pair,
	// or NotFound.
	FindConfirmed(ctx context.Context, contentID uuid.UUID, buyerID string) (*models.PaymentIntent, error)
	// ConfirmPending atomically transitions pending -> confirmed, recording
	// the settlement reference and redemption URL. It returns the stored
	// intent and whether this call performed the transition; a false return
	// with a nil error means the intent was already confirmed.
	ConfirmPending(ctx context.Context, id uuid.UUID, settlementRef, redemptionURL string) (*models.PaymentIntent, bool, error)
}

type GrantStore interface {
	Record(ctx context.Context, grant *models.AccessGrant) error
	Lookup(ctx context.Context, tokenID string) (*models.AccessGrant, error)
}

type CreatorStore interface {
	Create(ctx context.Context, creator *models.Creator) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Creator, error)
	GetByEmail(ctx context.Context, email string) (*models.Creator, error)
	GetByUsername(ctx context.Context, username string) (*models.Creator, error)
	Update(ctx context.Context, creator *models.Creator) error
}

// Stores bundles the four collections so the router can wire one backend.
type Stores struct {
	Content  ContentStore
	Intents  IntentStore
	Grants   GrantStore
	Creators CreatorStore
}
