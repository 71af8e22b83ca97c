// internal/services/access_service.go
package services

import (
	"context"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/unlockd/unlockd-backend/internal/apperrors"
	"github.com/unlockd/unlockd-backend/internal/models"
	"github.com/unlockd/unlockd-backend/internal/receipt"
)

// AccessService implements the on-ledger receipt flow. No tokens are issued:
// the ledger program created the receipt when payment cleared, and its
// existence at the derived address is the whole authorization signal.
type AccessService struct {
	contents *ContentService
	resolver *receipt.Resolver
}

func NewAccessService(contents *ContentService, resolver *receipt.Resolver) *AccessService {
	return &AccessService{contents: contents, resolver: resolver}
}

// AccessDecision is either a decrypted locator (receipt found) or the terms
// the buyer still has to meet.
type AccessDecision struct {
	HasAccess bool
	Locator   string
	// Payment terms, populated when HasAccess is false.
	ContentID     uuid.UUID
	Price         uint64
	AssetKind     models.AssetKind
	PayoutAddress string
}

// Check resolves a buyer's access to one item in a creator's published list.
// A missing receipt is the normal unpaid state and yields the payment terms,
// not an error.
func (s *AccessService) Check(ctx context.Context, creatorID, contentID uuid.UUID, buyerID string) (*AccessDecision, error) {
	if buyerID == "" {
		return nil, apperrors.New(apperrors.KindValidation, "buyer is required")
	}

	entries, err := s.contents.PublishedList(ctx, creatorID)
	if err != nil {
		return nil, err
	}

	var entry *models.PublishedEntry
	for i := range entries {
		if entries[i].ContentID == contentID {
			entry = &entries[i]
			break
		}
	}
	if entry == nil {
		return nil, apperrors.New(apperrors.KindNotFound, "content %s not found for creator %s", contentID, creatorID)
	}

	hasAccess, err := s.resolver.CheckAccess(ctx, buyerID, contentID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindLedgerUnavailable, err, "receipt lookup failed")
	}

	if !hasAccess {
		return &AccessDecision{
			HasAccess:     false,
			ContentID:     contentID,
			Price:         entry.Price,
			AssetKind:     entry.AssetKind,
			PayoutAddress: entry.PayoutAddress,
		}, nil
	}

	locator, err := s.resolver.ResolveLocator(entries, contentID)
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"content_id": contentID,
		"buyer_id":   buyerID,
	}).Info("Receipt found, locator resolved")

	return &AccessDecision{HasAccess: true, Locator: locator}, nil
}
