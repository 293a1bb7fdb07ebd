package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/franciscosanchezn/gin-foodgram-api/internal/models"
	"github.com/go-oauth2/oauth2/v4"
	oautherrors "github.com/go-oauth2/oauth2/v4/errors"
	"github.com/go-oauth2/oauth2/v4/manage"
	"github.com/go-oauth2/oauth2/v4/server"
	"github.com/golang-jwt/jwt/v5"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// OAuthService issues and revokes access tokens. Users log in through the
// first-party web client; API clients use the client_credentials grant.
type OAuthService struct {
	server      *server.Server
	tokens      *GormTokenStore
	db          *gorm.DB
	webClientID string
}

func NewOAuthService(db *gorm.DB, jwtSecret string, tokenTTL time.Duration, webClientID string) *OAuthService {
	manager := manage.NewDefaultManager()

	tokenCfg := &manage.Config{AccessTokenExp: tokenTTL, IsGenerateRefresh: false}
	manager.SetPasswordTokenCfg(tokenCfg)
	manager.SetClientTokenCfg(tokenCfg)

	manager.MapAccessGenerate(NewCustomJWTAccessGenerate([]byte(jwtSecret), jwt.SigningMethodHS256, db))

	tokenStore := NewGormTokenStore(db)
	manager.MustTokenStorage(tokenStore, nil)
	manager.MapClientStorage(NewGormClientStore(db))

	srv := server.NewDefaultServer(manager)
	srv.SetAllowedGrantType(oauth2.ClientCredentials)
	srv.SetClientInfoHandler(server.ClientFormHandler)
	srv.SetClientScopeHandler(clientScopeHandler(db))
	srv.SetInternalErrorHandler(func(err error) *oautherrors.Response {
		log.WithError(err).Error("OAuth2 internal error")
		return nil
	})

	return &OAuthService{
		server:      srv,
		tokens:      tokenStore,
		db:          db,
		webClientID: webClientID,
	}
}

func (o *OAuthService) GetServer() *server.Server {
	return o.server
}

// clientScopeHandler only grants scopes registered on the client
func clientScopeHandler(db *gorm.DB) server.ClientScopeHandler {
	return func(tgr *oauth2.TokenGenerateRequest) (bool, error) {
		if tgr.Scope == "" {
			return true, nil
		}
		var client models.OAuthClient
		if err := db.Select("id", "scopes").Where("id = ?", tgr.ClientID).First(&client).Error; err != nil {
			return false, nil
		}
		allowed := map[string]bool{}
		for _, s := range strings.Fields(client.Scopes) {
			allowed[s] = true
		}
		for _, s := range strings.Fields(tgr.Scope) {
			if !allowed[s] {
				return false, nil
			}
		}
		return true, nil
	}
}

// EnsureWebClient registers the public client that login tokens are issued to
func (o *OAuthService) EnsureWebClient(ctx context.Context) error {
	var client models.OAuthClient
	err := o.db.WithContext(ctx).Where("id = ?", o.webClientID).First(&client).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	client = models.OAuthClient{
		ID:         o.webClientID,
		Name:       "Foodgram web",
		Scopes:     "read write",
		GrantTypes: string(oauth2.PasswordCredentials),
	}
	if err := o.db.WithContext(ctx).Create(&client).Error; err != nil {
		return fmt.Errorf("create web client: %w", err)
	}
	log.WithField("client_id", o.webClientID).Info("Web client registered")
	return nil
}

// IssueUserToken creates an access token for a user who has already proven
// their password.
func (o *OAuthService) IssueUserToken(ctx context.Context, userID uint) (string, error) {
	ti, err := o.server.Manager.GenerateAccessToken(ctx, oauth2.PasswordCredentials, &oauth2.TokenGenerateRequest{
		ClientID: o.webClientID,
		UserID:   strconv.FormatUint(uint64(userID), 10),
		Scope:    "read write",
	})
	if err != nil {
		return "", fmt.Errorf("issue token for user %d: %w", userID, err)
	}
	return ti.GetAccess(), nil
}

// LoadAccessToken returns the stored token, or an error when it was revoked or has expired
func (o *OAuthService) LoadAccessToken(ctx context.Context, access string) (oauth2.TokenInfo, error) {
	return o.server.Manager.LoadAccessToken(ctx, access)
}

// RevokeToken deletes the token so later requests presenting it are rejected
func (o *OAuthService) RevokeToken(ctx context.Context, access string) error {
	return o.server.Manager.RemoveAccessToken(ctx, access)
}

// PurgeExpiredTokens removes tokens that can no longer authenticate anyone
func (o *OAuthService) PurgeExpiredTokens(ctx context.Context) (int64, error) {
	return o.tokens.PurgeExpired(ctx, time.Now())
}
