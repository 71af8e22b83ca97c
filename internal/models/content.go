// internal/models/content.go
package models

import (
	"github.com/google/uuid"
	"github.com/lib/pq"
)

// EncryptionEnvelope holds the per-item symmetric material for one encrypted
// blob. The key never exists anywhere except attached to its ContentRecord.
type EncryptionEnvelope struct {
	Key     string `json:"-" gorm:"size:64;not null"`
	Nonce   string `json:"-" gorm:"size:32;not null"`
	AuthTag string `json:"-" gorm:"size:64;not null"`
}

// ContentRecord is immutable after creation except for the preview fields and
// a creator payout-address correction.
type ContentRecord struct {
	BaseModel
	CreatorID        uuid.UUID          `json:"creator_id" gorm:"type:uuid;not null;index"`
	Title            string             `json:"title" gorm:"size:255;not null"`
	Description      string             `json:"description" gorm:"type:text"`
	Price            uint64             `json:"price" gorm:"not null"` // integer base units
	AssetKind        AssetKind          `json:"asset_kind" gorm:"type:varchar(20);not null"`
	PayoutAddress    string             `json:"payout_address" gorm:"size:128;not null"`
	StorageKey       string             `json:"-" gorm:"size:255;not null"`
	Envelope         EncryptionEnvelope `json:"-" gorm:"embedded;embeddedPrefix:env_"`
	ContentType      string             `json:"content_type" gorm:"size:100"`
	FileName         string             `json:"file_name" gorm:"size:255"`
	ContentHash      string             `json:"content_hash" gorm:"size:64"`
	EncryptedLocator string             `json:"-" gorm:"size:512"`
	PreviewKey       string             `json:"-" gorm:"size:255"`
	PreviewType      string             `json:"preview_type,omitempty" gorm:"size:100"`
	Tags             pq.StringArray     `json:"tags,omitempty" gorm:"type:text[]"`
}

func (ContentRecord) TableName() string {
	return "content_records"
}

// PublishedEntry is the public shape of one item in a creator's content list.
// The locator ciphertext is published here; it only becomes useful to a buyer
// whose receipt exists on the ledger.
type PublishedEntry struct {
	ContentID        uuid.UUID `json:"content_id"`
	Title            string    `json:"title"`
	Price            uint64    `json:"price"`
	AssetKind        AssetKind `json:"asset_kind"`
	PayoutAddress    string    `json:"payout_address"`
	EncryptedLocator string    `json:"encrypted_locator"`
}

func (c *ContentRecord) Published() PublishedEntry {
	return PublishedEntry{
		ContentID:        c.ID,
		Title:            c.Title,
		Price:            c.Price,
		AssetKind:        c.AssetKind,
		PayoutAddress:    c.PayoutAddress,
		EncryptedLocator: c.EncryptedLocator,
	}
}
