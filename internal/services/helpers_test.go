package services

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/franciscosanchezn/gin-foodgram-api/internal/database"
	"github.com/franciscosanchezn/gin-foodgram-api/internal/models"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var testImage = "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"))

// memBlobStore keeps blobs in memory and can be told to fail uploads
type memBlobStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	failPut bool
}

func newMemBlobStore() *memBlobStore {
	return &memBlobStore{objects: map[string][]byte{}}
}

func (m *memBlobStore) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failPut {
		return "", errors.New("storage unavailable")
	}
	m.objects[key] = data
	return "http://media.test/" + key, nil
}

func (m *memBlobStore) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

func (m *memBlobStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.InitDatabase(database.DatabaseConfig{Driver: "sqlite", Path: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return db
}

type fixture struct {
	db        *gorm.DB
	blobs     *memBlobStore
	recipes   RecipeService
	relations RelationService
	users     UserService
}

func newFixture(t *testing.T) *fixture {
	db := setupTestDB(t)
	blobs := newMemBlobStore()
	return &fixture{
		db:        db,
		blobs:     blobs,
		recipes:   NewRecipeService(db, blobs),
		relations: NewRelationService(db),
		users:     NewUserService(db),
	}
}

func (f *fixture) user(t *testing.T, username string) models.User {
	t.Helper()
	u := models.User{
		Email:     username + "@example.com",
		Username:  username,
		FirstName: "First",
		LastName:  "Last",
		Password:  "unused",
		Role:      models.RoleUser,
	}
	require.NoError(t, f.db.Create(&u).Error)
	return u
}

func (f *fixture) tag(t *testing.T, slug string) models.Tag {
	t.Helper()
	tag := models.Tag{Name: slug, Slug: slug, Color: "#E26C2D"}
	require.NoError(t, f.db.Create(&tag).Error)
	return tag
}

func (f *fixture) ingredient(t *testing.T, name, unit string) models.Ingredient {
	t.Helper()
	ing := models.Ingredient{Name: name, MeasurementUnit: unit}
	require.NoError(t, f.db.Create(&ing).Error)
	return ing
}

func recipeInput(name string, tags []uint, items ...IngredientAmount) RecipeInput {
	return RecipeInput{
		Name:        name,
		Text:        fmt.Sprintf("How to cook %s", name),
		CookingTime: 10,
		Image:       testImage,
		Tags:        tags,
		Ingredients: items,
	}
}

func (f *fixture) recipe(t *testing.T, authorID uint, name string, tags []uint, items ...IngredientAmount) *models.Recipe {
	t.Helper()
	r, err := f.recipes.CreateRecipe(context.Background(), authorID, recipeInput(name, tags, items...))
	require.NoError(t, err)
	return r
}

func fieldsOf(t *testing.T, err error) map[string][]string {
	t.Helper()
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	return verr.Fields
}
