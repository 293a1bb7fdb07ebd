package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/franciscosanchezn/gin-foodgram-api/internal/models"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// ClientInput registers a machine client acting on behalf of its owner
type ClientInput struct {
	Name        string `json:"name" validate:"required,max=100"`
	Domain      string `json:"domain" validate:"omitempty,url"`
	Scopes      string `json:"scopes"`
	RedirectURI string `json:"redirect_uri" validate:"omitempty,url"`
}

type ClientService interface {
	// CreateClient stores a client with a generated secret and returns the plain secret once
	CreateClient(ctx context.Context, userID uint, in ClientInput) (*models.OAuthClient, string, error)
	GetClientsByUserID(ctx context.Context, userID uint) ([]models.OAuthClient, error)
	GetClientByID(ctx context.Context, id string) (*models.OAuthClient, error)
	DeleteClient(ctx context.Context, clientID string, userID uint) error
}

type clientService struct {
	db *gorm.DB
}

func NewClientService(db *gorm.DB) ClientService {
	return &clientService{db: db}
}

func (s *clientService) CreateClient(ctx context.Context, userID uint, in ClientInput) (*models.OAuthClient, string, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := validateStruct(&in).OrNil(); err != nil {
		return nil, "", err
	}

	secret := uuid.New().String()
	hashedSecret, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", fmt.Errorf("hash client secret: %w", err)
	}

	scopes := in.Scopes
	if scopes == "" {
		scopes = "read write"
	}

	client := &models.OAuthClient{
		ID:          uuid.New().String(),
		Secret:      string(hashedSecret),
		Name:        in.Name,
		Domain:      in.Domain,
		UserID:      userID,
		Scopes:      scopes,
		GrantTypes:  "client_credentials",
		RedirectURI: in.RedirectURI,
	}
	if err := s.db.WithContext(ctx).Create(client).Error; err != nil {
		return nil, "", err
	}
	return client, secret, nil
}

func (s *clientService) GetClientsByUserID(ctx context.Context, userID uint) ([]models.OAuthClient, error) {
	clients := []models.OAuthClient{}
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at").Find(&clients).Error; err != nil {
		return nil, err
	}
	return clients, nil
}

func (s *clientService) GetClientByID(ctx context.Context, id string) (*models.OAuthClient, error) {
	var client models.OAuthClient
	if err := s.db.WithContext(ctx).Where("id = ?", id).Take(&client).Error; err != nil {
		return nil, notFoundOr(err, "client %s", id)
	}
	return &client, nil
}

// DeleteClient removes the client and every access token issued to it
func (s *clientService) DeleteClient(ctx context.Context, clientID string, userID uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Where("id = ? AND user_id = ?", clientID, userID).Delete(&models.OAuthClient{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("%w: client %s", ErrNotFound, clientID)
		}
		return tx.Where("client_id = ?", clientID).Delete(&models.OAuthToken{}).Error
	})
}
