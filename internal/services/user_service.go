package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/franciscosanchezn/gin-foodgram-api/internal/models"
	"gorm.io/gorm"
)

// RegisterInput is the self-registration payload
type RegisterInput struct {
	Email     string `json:"email" validate:"required,email,max=254"`
	Username  string `json:"username" validate:"required,max=150,username"`
	FirstName string `json:"first_name" validate:"required,max=150"`
	LastName  string `json:"last_name" validate:"required,max=150"`
	Password  string `json:"password" validate:"required,min=8,max=128"`
}

// SetPasswordInput changes the password of the current user
type SetPasswordInput struct {
	NewPassword     string `json:"new_password" validate:"required,min=8,max=128"`
	CurrentPassword string `json:"current_password" validate:"required"`
}

type UserService interface {
	CreateUser(ctx context.Context, in RegisterInput) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id uint) (*models.User, error)
	// Authenticate returns the user owning email if password matches
	Authenticate(ctx context.Context, email, password string) (*models.User, error)
	SetPassword(ctx context.Context, userID uint, in SetPasswordInput) error
	// GetProfile and ListUsers annotate is_subscribed relative to viewerID
	GetProfile(ctx context.Context, viewerID, id uint) (*models.User, error)
	ListUsers(ctx context.Context, viewerID uint, page Page) ([]models.User, int64, error)
	// ListSubscriptions returns the authors viewerID follows with up to recipesLimit recipes each (0 = all)
	ListSubscriptions(ctx context.Context, viewerID uint, page Page, recipesLimit int) ([]models.Subscription, int64, error)
	GetSubscription(ctx context.Context, viewerID, authorID uint, recipesLimit int) (*models.Subscription, error)
}

type userService struct {
	db *gorm.DB
}

func NewUserService(db *gorm.DB) UserService {
	return &userService{db: db}
}

func (s *userService) CreateUser(ctx context.Context, in RegisterInput) (*models.User, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Username = strings.TrimSpace(in.Username)

	verr := validateStruct(&in)
	db := s.db.WithContext(ctx)

	var existing int64
	if in.Email != "" {
		if err := db.Model(&models.User{}).Where("email = ?", in.Email).Count(&existing).Error; err != nil {
			return nil, err
		}
		if existing > 0 {
			verr.Add("email", "A user with that email already exists.")
		}
	}
	if in.Username != "" {
		if err := db.Model(&models.User{}).Where("username = ?", in.Username).Count(&existing).Error; err != nil {
			return nil, err
		}
		if existing > 0 {
			verr.Add("username", "A user with that username already exists.")
		}
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	user := &models.User{
		Email:     in.Email,
		Username:  in.Username,
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Password:  in.Password,
		Role:      models.RoleUser,
	}
	if err := user.HashPassword(); err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	if err := db.Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("%w: email or username is taken", ErrAlreadyExists)
		}
		return nil, err
	}
	log.WithField("user_id", user.ID).Info("User registered")
	return user, nil
}

func (s *userService) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("email = ?", strings.ToLower(email)).Take(&user).Error; err != nil {
		return nil, notFoundOr(err, "user %s", email)
	}
	return &user, nil
}

func (s *userService) GetUserByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Take(&user, id).Error; err != nil {
		return nil, notFoundOr(err, "user %d", id)
	}
	return &user, nil
}

func (s *userService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.GetUserByEmail(ctx, email)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !user.CheckPassword(password) {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

func (s *userService) SetPassword(ctx context.Context, userID uint, in SetPasswordInput) error {
	if err := validateStruct(&in).OrNil(); err != nil {
		return err
	}

	user, err := s.GetUserByID(ctx, userID)
	if err != nil {
		return err
	}
	if !user.CheckPassword(in.CurrentPassword) {
		return newValidationError("current_password", "Invalid password.")
	}

	user.Password = in.NewPassword
	if err := user.HashPassword(); err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return s.db.WithContext(ctx).Model(user).Update("password", user.Password).Error
}

// subscribedUsers selects users with is_subscribed computed for viewerID
func subscribedUsers(db *gorm.DB, viewerID uint) *gorm.DB {
	return db.Model(&models.User{}).Select(
		"users.*, EXISTS (SELECT 1 FROM follows fl WHERE fl.followed_id = users.id AND fl.follower_id = ?) AS is_subscribed",
		viewerID)
}

func (s *userService) GetProfile(ctx context.Context, viewerID, id uint) (*models.User, error) {
	var user models.User
	if err := subscribedUsers(s.db.WithContext(ctx), viewerID).Where("users.id = ?", id).Take(&user).Error; err != nil {
		return nil, notFoundOr(err, "user %d", id)
	}
	return &user, nil
}

func (s *userService) ListUsers(ctx context.Context, viewerID uint, page Page) ([]models.User, int64, error) {
	db := s.db.WithContext(ctx)

	var total int64
	if err := db.Model(&models.User{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	users := []models.User{}
	if err := subscribedUsers(db, viewerID).Scopes(page.scope).Order("users.id").Find(&users).Error; err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

// followedUsers restricts users to the authors viewerID follows
func followedUsers(db *gorm.DB, viewerID uint) *gorm.DB {
	return db.Model(&models.User{}).
		Joins("JOIN follows ON follows.followed_id = users.id AND follows.follower_id = ?", viewerID)
}

func (s *userService) ListSubscriptions(ctx context.Context, viewerID uint, page Page, recipesLimit int) ([]models.Subscription, int64, error) {
	db := s.db.WithContext(ctx)

	var total int64
	if err := followedUsers(db, viewerID).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	authors := []models.User{}
	err := followedUsers(db, viewerID).
		Select("users.*, (SELECT COUNT(*) FROM recipes r WHERE r.author_id = users.id) AS recipes_count").
		Scopes(page.scope).
		Order("users.id DESC").
		Find(&authors).Error
	if err != nil {
		return nil, 0, err
	}

	subs, err := withRecipePreviews(db, authors, recipesLimit)
	if err != nil {
		return nil, 0, err
	}
	return subs, total, nil
}

func (s *userService) GetSubscription(ctx context.Context, viewerID, authorID uint, recipesLimit int) (*models.Subscription, error) {
	db := s.db.WithContext(ctx)

	var author models.User
	err := db.Model(&models.User{}).
		Select("users.*, "+
			"EXISTS (SELECT 1 FROM follows fl WHERE fl.followed_id = users.id AND fl.follower_id = ?) AS is_subscribed, "+
			"(SELECT COUNT(*) FROM recipes r WHERE r.author_id = users.id) AS recipes_count", viewerID).
		Where("users.id = ?", authorID).
		Take(&author).Error
	if err != nil {
		return nil, notFoundOr(err, "user %d", authorID)
	}

	subs, err := withRecipePreviews(db, []models.User{author}, recipesLimit)
	if err != nil {
		return nil, err
	}
	subs[0].IsSubscribed = author.IsSubscribed
	return &subs[0], nil
}

// withRecipePreviews loads the recipes of all authors in one query and
// attaches at most limit of each author's newest recipes.
func withRecipePreviews(db *gorm.DB, authors []models.User, limit int) ([]models.Subscription, error) {
	subs := make([]models.Subscription, len(authors))
	if len(authors) == 0 {
		return subs, nil
	}

	ids := make([]uint, len(authors))
	for i, a := range authors {
		ids[i] = a.ID
	}

	var recipes []models.RecipeShort
	err := db.Model(&models.Recipe{}).
		Select("id, name, image, cooking_time, author_id").
		Where("author_id IN ?", ids).
		Order("created_at DESC").Order("id DESC").
		Find(&recipes).Error
	if err != nil {
		return nil, err
	}

	byAuthor := make(map[uint][]models.RecipeShort, len(authors))
	for _, r := range recipes {
		if limit > 0 && len(byAuthor[r.AuthorID]) >= limit {
			continue
		}
		byAuthor[r.AuthorID] = append(byAuthor[r.AuthorID], r)
	}

	for i, a := range authors {
		a.IsSubscribed = true
		previews := byAuthor[a.ID]
		if previews == nil {
			previews = []models.RecipeShort{}
		}
		subs[i] = models.Subscription{User: a, Recipes: previews, RecipesCount: a.RecipesCount}
	}
	return subs, nil
}
