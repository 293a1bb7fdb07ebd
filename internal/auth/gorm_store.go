package auth

import (
	"context"
	"errors"
	"time"

	internalmodels "github.com/franciscosanchezn/gin-foodgram-api/internal/models"
	"github.com/go-oauth2/oauth2/v4"
	oautherrors "github.com/go-oauth2/oauth2/v4/errors"
	"github.com/go-oauth2/oauth2/v4/models"
	"gorm.io/gorm"
)

type GormClientStore struct {
	db *gorm.DB
}

func NewGormClientStore(db *gorm.DB) *GormClientStore {
	return &GormClientStore{db: db}
}

func (s *GormClientStore) GetByID(ctx context.Context, id string) (oauth2.ClientInfo, error) {
	var client internalmodels.OAuthClient
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&client).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, oautherrors.ErrInvalidClient
		}
		return nil, err
	}

	// OAuthClient implements ClientPasswordVerifier, so the manager checks bcrypt secrets
	return &client, nil
}

// GormTokenStore keeps access tokens in oauth_tokens. Only access tokens are
// issued: there are no refresh tokens and no authorization codes.
type GormTokenStore struct {
	db *gorm.DB
}

func NewGormTokenStore(db *gorm.DB) *GormTokenStore {
	return &GormTokenStore{db: db}
}

func (s *GormTokenStore) Create(ctx context.Context, info oauth2.TokenInfo) error {
	if info.GetCode() != "" {
		return oautherrors.ErrUnsupportedResponseType
	}

	uid := info.GetUserID()
	if uid == "" {
		// client_credentials tokens act as the client's owner
		owner, err := s.clientOwner(ctx, info.GetClientID())
		if err != nil {
			return err
		}
		uid = owner
	}
	var userID *string
	if uid != "" {
		userID = &uid
	}

	createdAt := info.GetAccessCreateAt()
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	token := &internalmodels.OAuthToken{
		ClientID:    info.GetClientID(),
		UserID:      userID,
		AccessToken: info.GetAccess(),
		Scopes:      info.GetScope(),
		ExpiresAt:   createdAt.Add(info.GetAccessExpiresIn()),
		CreatedAt:   createdAt,
	}

	return s.db.WithContext(ctx).Create(token).Error
}

func (s *GormTokenStore) clientOwner(ctx context.Context, clientID string) (string, error) {
	var client internalmodels.OAuthClient
	if err := s.db.WithContext(ctx).Select("id", "user_id").Where("id = ?", clientID).First(&client).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", oautherrors.ErrInvalidClient
		}
		return "", err
	}
	return client.GetUserID(), nil
}

func (s *GormTokenStore) RemoveByAccess(ctx context.Context, access string) error {
	return s.db.WithContext(ctx).Where("access_token = ?", access).Delete(&internalmodels.OAuthToken{}).Error
}

func (s *GormTokenStore) RemoveByRefresh(ctx context.Context, refresh string) error {
	return nil
}

func (s *GormTokenStore) RemoveByCode(ctx context.Context, code string) error {
	return nil
}

// GetByAccess returns nil when the token is unknown; the manager then reports
// it as invalid.
func (s *GormTokenStore) GetByAccess(ctx context.Context, access string) (oauth2.TokenInfo, error) {
	var token internalmodels.OAuthToken
	if err := s.db.WithContext(ctx).Where("access_token = ?", access).First(&token).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	info := &models.Token{
		ClientID:        token.ClientID,
		Access:          token.AccessToken,
		AccessCreateAt:  token.CreatedAt,
		AccessExpiresIn: token.ExpiresAt.Sub(token.CreatedAt),
		Scope:           token.Scopes,
	}
	if token.UserID != nil {
		info.UserID = *token.UserID
	}
	return info, nil
}

func (s *GormTokenStore) GetByRefresh(ctx context.Context, refresh string) (oauth2.TokenInfo, error) {
	return nil, nil
}

func (s *GormTokenStore) GetByCode(ctx context.Context, code string) (oauth2.TokenInfo, error) {
	return nil, nil
}

// PurgeExpired deletes tokens whose lifetime has ended
func (s *GormTokenStore) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	result := s.db.WithContext(ctx).Where("expires_at < ?", now).Delete(&internalmodels.OAuthToken{})
	return result.RowsAffected, result.Error
}
