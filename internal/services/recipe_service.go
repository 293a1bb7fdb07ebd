package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/franciscosanchezn/gin-foodgram-api/internal/models"
	"github.com/franciscosanchezn/gin-foodgram-api/internal/storage"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var log = logrus.New()

func init() {
	log.SetFormatter(&logrus.JSONFormatter{})
}

// RecipeFilter narrows a recipe listing. Tag slugs are OR-matched.
type RecipeFilter struct {
	TagSlugs      []string
	AuthorID      *uint
	FavoritedOnly bool
	InCartOnly    bool
}

// IngredientAmount is one entry of a recipe write payload
type IngredientAmount struct {
	ID     uint `json:"id" validate:"required"`
	Amount int  `json:"amount" validate:"min=1"`
}

// RecipeInput is the write representation of a recipe. Image is a base64
// data URI; it is required on create and optional on update.
type RecipeInput struct {
	Name        string             `json:"name" validate:"required,max=200"`
	Text        string             `json:"text" validate:"required"`
	CookingTime int                `json:"cooking_time" validate:"min=1"`
	Image       string             `json:"image"`
	Tags        []uint             `json:"tags"`
	Ingredients []IngredientAmount `json:"ingredients" validate:"required,min=1,dive"`
}

// RecipeService provides recipe listing and the recipe write path
type RecipeService interface {
	// ListRecipes returns one page of recipes, newest first, with flags relative to viewerID (0 = anonymous)
	ListRecipes(ctx context.Context, viewerID uint, filter RecipeFilter, page Page) ([]models.Recipe, int64, error)
	// GetRecipe returns a single annotated recipe
	GetRecipe(ctx context.Context, viewerID, id uint) (*models.Recipe, error)
	// CreateRecipe validates and stores a recipe with its tags and ingredient amounts
	CreateRecipe(ctx context.Context, authorID uint, in RecipeInput) (*models.Recipe, error)
	// UpdateRecipe replaces every field, the tag set and the ingredient list of a recipe
	UpdateRecipe(ctx context.Context, actorID, recipeID uint, in RecipeInput) (*models.Recipe, error)
	// DeleteRecipe removes a recipe and everything that references it
	DeleteRecipe(ctx context.Context, actorID, recipeID uint) error
}

type recipeService struct {
	db    *gorm.DB
	blobs storage.BlobStore
}

func NewRecipeService(db *gorm.DB, blobs storage.BlobStore) RecipeService {
	return &recipeService{db: db, blobs: blobs}
}

// annotatedRecipes selects recipes together with the viewer's favorite and
// cart flags, computed by correlated subqueries in the same statement.
func annotatedRecipes(db *gorm.DB, viewerID uint) *gorm.DB {
	return db.Model(&models.Recipe{}).Select(
		"recipes.*, "+
			"EXISTS (SELECT 1 FROM favorites fv WHERE fv.recipe_id = recipes.id AND fv.user_id = ?) AS is_favorited, "+
			"EXISTS (SELECT 1 FROM shopping_cart_entries sc WHERE sc.recipe_id = recipes.id AND sc.user_id = ?) AS is_in_shopping_cart",
		viewerID, viewerID)
}

// withRecipeDetails loads tags, ingredient amounts and the author, one query each.
func withRecipeDetails(db *gorm.DB, viewerID uint) *gorm.DB {
	return db.
		Preload("Tags", func(db *gorm.DB) *gorm.DB { return db.Order("tags.id") }).
		Preload("Ingredients", func(db *gorm.DB) *gorm.DB { return db.Order("recipe_ingredients.id") }).
		Preload("Ingredients.Ingredient").
		Preload("Author", func(db *gorm.DB) *gorm.DB {
			return db.Select("users.*, EXISTS (SELECT 1 FROM follows fl WHERE fl.followed_id = users.id AND fl.follower_id = ?) AS is_subscribed", viewerID)
		})
}

func (f RecipeFilter) scope(viewerID uint) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if len(f.TagSlugs) > 0 {
			db = db.Where("EXISTS (SELECT 1 FROM recipe_tags rt JOIN tags t ON t.id = rt.tag_id WHERE rt.recipe_id = recipes.id AND t.slug IN ?)", f.TagSlugs)
		}
		if f.AuthorID != nil {
			db = db.Where("recipes.author_id = ?", *f.AuthorID)
		}
		if f.FavoritedOnly {
			db = db.Where("EXISTS (SELECT 1 FROM favorites fo WHERE fo.recipe_id = recipes.id AND fo.user_id = ?)", viewerID)
		}
		if f.InCartOnly {
			db = db.Where("EXISTS (SELECT 1 FROM shopping_cart_entries co WHERE co.recipe_id = recipes.id AND co.user_id = ?)", viewerID)
		}
		return db
	}
}

func (s *recipeService) ListRecipes(ctx context.Context, viewerID uint, filter RecipeFilter, page Page) ([]models.Recipe, int64, error) {
	db := s.db.WithContext(ctx)

	var total int64
	if err := db.Model(&models.Recipe{}).Scopes(filter.scope(viewerID)).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	recipes := []models.Recipe{}
	err := withRecipeDetails(annotatedRecipes(db, viewerID), viewerID).
		Scopes(filter.scope(viewerID), page.scope).
		Order("recipes.created_at DESC").
		Order("recipes.id DESC").
		Find(&recipes).Error
	if err != nil {
		return nil, 0, err
	}
	return recipes, total, nil
}

func (s *recipeService) GetRecipe(ctx context.Context, viewerID, id uint) (*models.Recipe, error) {
	return getRecipe(s.db.WithContext(ctx), viewerID, id)
}

func getRecipe(db *gorm.DB, viewerID, id uint) (*models.Recipe, error) {
	var recipe models.Recipe
	err := withRecipeDetails(annotatedRecipes(db, viewerID), viewerID).
		Where("recipes.id = ?", id).
		Take(&recipe).Error
	if err != nil {
		return nil, notFoundOr(err, "recipe %d", id)
	}
	return &recipe, nil
}

// validate checks the payload and decodes the image when one is present.
func (in *RecipeInput) validate(requireImage bool) (*storage.Image, error) {
	in.Name = strings.TrimSpace(in.Name)
	verr := validateStruct(in)

	seenIngredients := make(map[uint]bool, len(in.Ingredients))
	for _, item := range in.Ingredients {
		if seenIngredients[item.ID] {
			verr.Add("ingredients", fmt.Sprintf("Ingredient %d is listed more than once.", item.ID))
		}
		seenIngredients[item.ID] = true
	}

	seenTags := make(map[uint]bool, len(in.Tags))
	for _, id := range in.Tags {
		if seenTags[id] {
			verr.Add("tags", fmt.Sprintf("Tag %d is listed more than once.", id))
		}
		seenTags[id] = true
	}

	var img *storage.Image
	switch {
	case in.Image == "" && requireImage:
		verr.Add("image", "This field is required.")
	case in.Image != "":
		var err error
		if img, err = storage.DecodeDataURI(in.Image); err != nil {
			verr.Add("image", "Upload a valid image as a base64 data URI.")
		}
	}

	return img, verr.OrNil()
}

func (s *recipeService) CreateRecipe(ctx context.Context, authorID uint, in RecipeInput) (*models.Recipe, error) {
	img, err := in.validate(true)
	if err != nil {
		return nil, err
	}

	key, url, err := s.upload(ctx, img)
	if err != nil {
		return nil, err
	}

	recipe := models.Recipe{
		AuthorID:    authorID,
		Name:        in.Name,
		Text:        in.Text,
		CookingTime: in.CookingTime,
		Image:       url,
		ImageKey:    key,
	}

	var created *models.Recipe
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		tags, err := findTags(tx, in.Tags)
		if err != nil {
			return err
		}
		if err := checkIngredientsExist(tx, in.Ingredients); err != nil {
			return err
		}
		if err := tx.Omit(clause.Associations).Create(&recipe).Error; err != nil {
			return err
		}
		if err := writeRecipeRelations(tx, &recipe, tags, in.Ingredients); err != nil {
			return err
		}
		created, err = getRecipe(tx, authorID, recipe.ID)
		return err
	})
	if err != nil {
		s.discard(ctx, key)
		return nil, err
	}

	log.WithFields(logrus.Fields{"recipe_id": created.ID, "author_id": authorID}).Info("Recipe created")
	return created, nil
}

func (s *recipeService) UpdateRecipe(ctx context.Context, actorID, recipeID uint, in RecipeInput) (*models.Recipe, error) {
	existing, err := s.ownedRecipe(ctx, actorID, recipeID)
	if err != nil {
		return nil, err
	}

	img, err := in.validate(false)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{
		"name":         in.Name,
		"text":         in.Text,
		"cooking_time": in.CookingTime,
	}
	var newKey string
	if img != nil {
		var url string
		if newKey, url, err = s.upload(ctx, img); err != nil {
			return nil, err
		}
		updates["image"] = url
		updates["image_key"] = newKey
	}

	var updated *models.Recipe
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		tags, err := findTags(tx, in.Tags)
		if err != nil {
			return err
		}
		if err := checkIngredientsExist(tx, in.Ingredients); err != nil {
			return err
		}
		if err := tx.Model(existing).Updates(updates).Error; err != nil {
			return err
		}
		if err := tx.Where("recipe_id = ?", existing.ID).Delete(&models.RecipeIngredient{}).Error; err != nil {
			return err
		}
		if err := writeRecipeRelations(tx, existing, tags, in.Ingredients); err != nil {
			return err
		}
		updated, err = getRecipe(tx, actorID, existing.ID)
		return err
	})
	if err != nil {
		s.discard(ctx, newKey)
		return nil, err
	}

	if img != nil {
		s.discard(ctx, existing.ImageKey)
	}
	return updated, nil
}

func (s *recipeService) DeleteRecipe(ctx context.Context, actorID, recipeID uint) error {
	existing, err := s.ownedRecipe(ctx, actorID, recipeID)
	if err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(existing).Association("Tags").Clear(); err != nil {
			return err
		}
		for _, dependent := range []interface{}{&models.RecipeIngredient{}, &models.Favorite{}, &models.ShoppingCartEntry{}} {
			if err := tx.Where("recipe_id = ?", existing.ID).Delete(dependent).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&models.Recipe{}, existing.ID).Error
	})
	if err != nil {
		return err
	}

	s.discard(ctx, existing.ImageKey)
	log.WithFields(logrus.Fields{"recipe_id": recipeID, "author_id": actorID}).Info("Recipe deleted")
	return nil
}

// ownedRecipe loads a recipe and checks that actorID wrote it
func (s *recipeService) ownedRecipe(ctx context.Context, actorID, recipeID uint) (*models.Recipe, error) {
	var recipe models.Recipe
	if err := s.db.WithContext(ctx).Take(&recipe, recipeID).Error; err != nil {
		return nil, notFoundOr(err, "recipe %d", recipeID)
	}
	if recipe.AuthorID != actorID {
		return nil, fmt.Errorf("%w: only the author can change recipe %d", ErrPermissionDenied, recipeID)
	}
	return &recipe, nil
}

func (s *recipeService) upload(ctx context.Context, img *storage.Image) (string, string, error) {
	key := storage.NewRecipeImageKey(img.Extension)
	url, err := s.blobs.Put(ctx, key, img.Data, img.ContentType)
	if err != nil {
		return "", "", fmt.Errorf("store recipe image: %w", err)
	}
	return key, url, nil
}

// discard removes a blob that is no longer referenced; failures are only logged.
func (s *recipeService) discard(ctx context.Context, key string) {
	if key == "" {
		return
	}
	if err := s.blobs.Delete(ctx, key); err != nil {
		log.WithError(err).WithField("key", key).Warn("Failed to delete recipe image")
	}
}

func findTags(tx *gorm.DB, ids []uint) ([]models.Tag, error) {
	tags := []models.Tag{}
	if len(ids) == 0 {
		return tags, nil
	}
	if err := tx.Where("id IN ?", ids).Order("id").Find(&tags).Error; err != nil {
		return nil, err
	}
	if len(tags) != len(ids) {
		found := make(map[uint]bool, len(tags))
		for _, t := range tags {
			found[t.ID] = true
		}
		for _, id := range ids {
			if !found[id] {
				return nil, fmt.Errorf("%w: tag %d", ErrNotFound, id)
			}
		}
	}
	return tags, nil
}

func checkIngredientsExist(tx *gorm.DB, items []IngredientAmount) error {
	ids := make([]uint, len(items))
	for i, item := range items {
		ids[i] = item.ID
	}

	var found []uint
	if err := tx.Model(&models.Ingredient{}).Where("id IN ?", ids).Pluck("id", &found).Error; err != nil {
		return err
	}
	if len(found) == len(ids) {
		return nil
	}

	known := make(map[uint]bool, len(found))
	for _, id := range found {
		known[id] = true
	}
	for _, id := range ids {
		if !known[id] {
			return fmt.Errorf("%w: ingredient %d", ErrNotFound, id)
		}
	}
	return nil
}

// writeRecipeRelations sets the tag set and inserts the ingredient rows in payload order.
func writeRecipeRelations(tx *gorm.DB, recipe *models.Recipe, tags []models.Tag, items []IngredientAmount) error {
	tagAssoc := tx.Model(recipe).Association("Tags")
	if len(tags) == 0 {
		if err := tagAssoc.Clear(); err != nil {
			return err
		}
	} else if err := tagAssoc.Replace(tags); err != nil {
		return err
	}

	rows := make([]models.RecipeIngredient, len(items))
	for i, item := range items {
		rows[i] = models.RecipeIngredient{RecipeID: recipe.ID, IngredientID: item.ID, Amount: item.Amount}
	}
	err := tx.Omit(clause.Associations).Create(&rows).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return newValidationError("ingredients", "Ingredients must be unique.")
	}
	return err
}
