// internal/receipt/resolver.go
package receipt

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	"github.com/google/uuid"

	"github.com/unlockd/unlockd-backend/internal/apperrors"
	"github.com/unlockd/unlockd-backend/internal/cryptobox"
	"github.com/unlockd/unlockd-backend/internal/ledger"
	"github.com/unlockd/unlockd-backend/internal/models"
)

// addressDomain separates receipt addresses from every other use of the same
// hash. Changing it orphans all existing receipts.
const addressDomain = "unlockd/receipt/v1"

// Resolver implements the on-ledger access path: a receipt account created by
// the ledger program at a derived address proves that (buyer, content) paid.
type Resolver struct {
	client    ledger.Client
	staticKey []byte
}

func NewResolver(client ledger.Client, staticKey []byte) *Resolver {
	return &Resolver{client: client, staticKey: staticKey}
}

// DeriveAddress maps a (buyer, content) pair to its receipt address. Pure
// function of the inputs so any client can derive it independently.
func DeriveAddress(buyerID string, contentID uuid.UUID) string {
	h := sha256.New()
	h.Write([]byte(addressDomain))
	h.Write([]byte{0})
	h.Write([]byte(buyerID))
	h.Write([]byte{0})
	h.Write([]byte(contentID.String()))
	return hex.EncodeToString(h.Sum(nil))
}

// CheckAccess reports whether a receipt exists for the pair. Absence is the
// normal not-yet-paid state, not an error.
func (r *Resolver) CheckAccess(ctx context.Context, buyerID string, contentID uuid.UUID) (bool, error) {
	return r.client.AccountExists(ctx, DeriveAddress(buyerID, contentID))
}

// ResolveLocator finds the matching entry in a creator's published list and
// decrypts its locator.
func (r *Resolver) ResolveLocator(entries []models.PublishedEntry, contentID uuid.UUID) (string, error) {
	for _, entry := range entries {
		if entry.ContentID == contentID {
			return cryptobox.DecryptLocator(entry.EncryptedLocator, r.staticKey)
		}
	}
	return "", apperrors.New(apperrors.KindNotFound, "content %s not in creator list", contentID)
}
