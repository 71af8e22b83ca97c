// internal/models/creator.go
package models

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

type Creator struct {
	BaseModel
	Username      string        `json:"username" gorm:"uniqueIndex;size:50;not null"`
	Email         string        `json:"email" gorm:"uniqueIndex;size:255;not null"`
	PasswordHash  string        `json:"-" gorm:"size:255;not null"`
	PayoutAddress string        `json:"payout_address" gorm:"size:128"`
	Status        CreatorStatus `json:"status" gorm:"type:varchar(20);default:'active'"`
	ProfileData   JSONB         `json:"profile_data" gorm:"type:jsonb"`
	LastLoginAt   *time.Time    `json:"last_login_at"`
}

func (c *Creator) SetPassword(password string) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	c.PasswordHash = string(hashedPassword)
	return nil
}

func (c *Creator) CheckPassword(password string) error {
	return bcrypt.CompareHashAndPassword([]byte(c.PasswordHash), []byte(password))
}
