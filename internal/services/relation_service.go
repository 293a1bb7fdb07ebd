package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/franciscosanchezn/gin-foodgram-api/internal/models"
	"gorm.io/gorm"
)

// RelationService toggles favorites, shopping cart entries and follows.
// Each pair is either absent or present: adding twice and removing an absent
// pair are errors, never silent no-ops.
type RelationService interface {
	AddFavorite(ctx context.Context, userID, recipeID uint) (*models.RecipeShort, error)
	RemoveFavorite(ctx context.Context, userID, recipeID uint) error
	AddToShoppingCart(ctx context.Context, userID, recipeID uint) (*models.RecipeShort, error)
	RemoveFromShoppingCart(ctx context.Context, userID, recipeID uint) error
	Follow(ctx context.Context, followerID, authorID uint) error
	Unfollow(ctx context.Context, followerID, authorID uint) error
}

type relationService struct {
	db *gorm.DB
}

func NewRelationService(db *gorm.DB) RelationService {
	return &relationService{db: db}
}

func (s *relationService) AddFavorite(ctx context.Context, userID, recipeID uint) (*models.RecipeShort, error) {
	return s.addRecipeRelation(ctx, &models.Favorite{UserID: userID, RecipeID: recipeID}, "favorites")
}

func (s *relationService) RemoveFavorite(ctx context.Context, userID, recipeID uint) error {
	return s.removeRecipeRelation(ctx, &models.Favorite{}, userID, recipeID, "favorites")
}

func (s *relationService) AddToShoppingCart(ctx context.Context, userID, recipeID uint) (*models.RecipeShort, error) {
	return s.addRecipeRelation(ctx, &models.ShoppingCartEntry{UserID: userID, RecipeID: recipeID}, "shopping cart")
}

func (s *relationService) RemoveFromShoppingCart(ctx context.Context, userID, recipeID uint) error {
	return s.removeRecipeRelation(ctx, &models.ShoppingCartEntry{}, userID, recipeID, "shopping cart")
}

func (s *relationService) addRecipeRelation(ctx context.Context, row interface{}, list string) (*models.RecipeShort, error) {
	userID, recipeID := relationKeys(row)
	db := s.db.WithContext(ctx)

	var recipe models.Recipe
	if err := db.Take(&recipe, recipeID).Error; err != nil {
		return nil, notFoundOr(err, "recipe %d", recipeID)
	}

	var count int64
	if err := db.Model(row).Where("user_id = ? AND recipe_id = ?", userID, recipeID).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, fmt.Errorf("%w: recipe %d is already in the %s", ErrAlreadyExists, recipeID, list)
	}

	// A concurrent request can still win the race; the unique index decides.
	if err := db.Create(row).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("%w: recipe %d is already in the %s", ErrAlreadyExists, recipeID, list)
		}
		return nil, err
	}

	short := recipe.Short()
	return &short, nil
}

func (s *relationService) removeRecipeRelation(ctx context.Context, model interface{}, userID, recipeID uint, list string) error {
	db := s.db.WithContext(ctx)

	var recipe models.Recipe
	if err := db.Select("id").Take(&recipe, recipeID).Error; err != nil {
		return notFoundOr(err, "recipe %d", recipeID)
	}

	result := db.Where("user_id = ? AND recipe_id = ?", userID, recipeID).Delete(model)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: recipe %d is not in the %s", ErrNotFound, recipeID, list)
	}
	return nil
}

func relationKeys(row interface{}) (uint, uint) {
	switch r := row.(type) {
	case *models.Favorite:
		return r.UserID, r.RecipeID
	case *models.ShoppingCartEntry:
		return r.UserID, r.RecipeID
	default:
		panic(fmt.Sprintf("unsupported relation %T", row))
	}
}

func (s *relationService) Follow(ctx context.Context, followerID, authorID uint) error {
	db := s.db.WithContext(ctx)

	var author models.User
	if err := db.Select("id").Take(&author, authorID).Error; err != nil {
		return notFoundOr(err, "user %d", authorID)
	}
	if followerID == authorID {
		return newValidationError("errors", "You cannot subscribe to yourself.")
	}

	var count int64
	err := db.Model(&models.Follow{}).Where("follower_id = ? AND followed_id = ?", followerID, authorID).Count(&count).Error
	if err != nil {
		return err
	}
	if count > 0 {
		return fmt.Errorf("%w: already subscribed to user %d", ErrAlreadyExists, authorID)
	}

	if err := db.Create(&models.Follow{FollowerID: followerID, FollowedID: authorID}).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("%w: already subscribed to user %d", ErrAlreadyExists, authorID)
		}
		return err
	}
	return nil
}

func (s *relationService) Unfollow(ctx context.Context, followerID, authorID uint) error {
	db := s.db.WithContext(ctx)

	var author models.User
	if err := db.Select("id").Take(&author, authorID).Error; err != nil {
		return notFoundOr(err, "user %d", authorID)
	}

	result := db.Where("follower_id = ? AND followed_id = ?", followerID, authorID).Delete(&models.Follow{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: not subscribed to user %d", ErrNotFound, authorID)
	}
	return nil
}
