// internal/models/common.go
package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base model with common fields
type BaseModel struct {
	ID        uuid.UUID      `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

// JSONB type for PostgreSQL
type JSONB map[string]interface{}

func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}

	return json.Unmarshal(bytes, j)
}

// Enums

// AssetKind identifies which balance on the ledger a payment moves.
type AssetKind string

const (
	AssetKindNative    AssetKind = "native"
	AssetKindSecondary AssetKind = "secondary"
)

func (k AssetKind) Valid() bool {
	return k == AssetKindNative || k == AssetKindSecondary
}

type IntentStatus string

const (
	IntentStatusPending   IntentStatus = "pending"
	IntentStatusConfirmed IntentStatus = "confirmed"
)

type CreatorStatus string

const (
	CreatorStatusActive    CreatorStatus = "active"
	CreatorStatusSuspended CreatorStatus = "suspended"
)
