package models

import (
	"strconv"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// OAuthClient is a registered API client. It implements oauth2.ClientInfo
// and oauth2.ClientPasswordVerifier so the token manager can use it directly.
type OAuthClient struct {
	ID          string         `gorm:"primaryKey" json:"client_id"`
	Secret      string         `json:"-"` // bcrypt hash; empty for public clients
	Name        string         `json:"name"`
	Domain      string         `json:"domain"`
	UserID      uint           `json:"user_id"` // 0 for the first-party web client
	Scopes      string         `json:"scopes"`
	GrantTypes  string         `json:"grant_types"`
	RedirectURI string         `json:"redirect_uri"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"-"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

func (OAuthClient) TableName() string {
	return "oauth_clients"
}

func (c *OAuthClient) GetID() string {
	return c.ID
}

func (c *OAuthClient) GetSecret() string {
	return c.Secret
}

func (c *OAuthClient) GetDomain() string {
	return c.Domain
}

// IsPublic reports clients without a secret; they cannot use client_credentials.
func (c *OAuthClient) IsPublic() bool {
	return c.Secret == ""
}

func (c *OAuthClient) GetUserID() string {
	if c.UserID == 0 {
		return ""
	}
	return strconv.FormatUint(uint64(c.UserID), 10)
}

// VerifyPassword checks a plain text secret against the stored bcrypt hash
func (c *OAuthClient) VerifyPassword(secret string) bool {
	if c.Secret == "" {
		return secret == ""
	}
	return bcrypt.CompareHashAndPassword([]byte(c.Secret), []byte(secret)) == nil
}
