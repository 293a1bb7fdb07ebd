package models

import (
	"time"
)

// OAuthToken is an issued access token. Deleting the row revokes the token.
type OAuthToken struct {
	ID          uint      `gorm:"primaryKey"`
	ClientID    string    `gorm:"not null;index"`
	UserID      *string   // nil for clients without an owner
	AccessToken string    `gorm:"uniqueIndex;not null"`
	Scopes      string
	ExpiresAt   time.Time `gorm:"not null;index"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (OAuthToken) TableName() string {
	return "oauth_tokens"
}
