// internal/models/payment.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// PaymentIntent records one expected future payment. It is mutated exactly
// once (pending -> confirmed) by a successful ledger verification; after
// ExpiresAt it is still readable but confirmation is rejected.
type PaymentIntent struct {
	BaseModel
	ContentID     uuid.UUID    `json:"content_id" gorm:"type:uuid;not null;index"`
	BuyerID       string       `json:"buyer_id" gorm:"size:128;not null;index"`
	Amount        uint64       `json:"amount" gorm:"not null"`
	AssetKind     AssetKind    `json:"asset_kind" gorm:"type:varchar(20);not null"`
	PayoutAddress string       `json:"payout_address" gorm:"size:128;not null"`
	Status        IntentStatus `json:"status" gorm:"type:varchar(20);default:'pending';index"`
	ExpiresAt     time.Time    `json:"expires_at" gorm:"not null"`
	SettlementRef string       `json:"settlement_ref,omitempty" gorm:"size:255"`
	RedemptionURL string       `json:"redemption_url,omitempty" gorm:"size:512"`
}

func (PaymentIntent) TableName() string {
	return "payment_intents"
}

func (p *PaymentIntent) Expired(now time.Time) bool {
	return !now.Before(p.ExpiresAt)
}

// AccessGrant binds an issued bearer token to the purchase it authorizes.
// Created exactly once per confirmed intent, consulted on every redemption,
// never mutated; it expires by wall-clock comparison.
type AccessGrant struct {
	TokenID       string    `json:"token_id" gorm:"primaryKey;size:64"`
	ContentID     uuid.UUID `json:"content_id" gorm:"type:uuid;not null;index"`
	BuyerID       string    `json:"buyer_id" gorm:"size:128;not null"`
	SettlementRef string    `json:"settlement_ref" gorm:"size:255"`
	ExpiresAt     time.Time `json:"expires_at" gorm:"not null"`
	CreatedAt     time.Time `json:"created_at"`
}

func (AccessGrant) TableName() string {
	return "access_grants"
}

func (g *AccessGrant) Expired(now time.Time) bool {
	return now.After(g.ExpiresAt)
}
