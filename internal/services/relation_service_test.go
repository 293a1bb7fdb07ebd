package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecipeToggles(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	author := f.user(t, "chef")
	fan := f.user(t, "fan")
	salt := f.ingredient(t, "Salt", "g")
	r := f.recipe(t, author.ID, "Soup", nil, IngredientAmount{ID: salt.ID, Amount: 1})

	toggles := []struct {
		name   string
		add    func(ctx context.Context, userID, recipeID uint) error
		remove func(ctx context.Context, userID, recipeID uint) error
	}{
		{
			name: "favorite",
			add: func(ctx context.Context, u, r uint) error {
				_, err := f.relations.AddFavorite(ctx, u, r)
				return err
			},
			remove: f.relations.RemoveFavorite,
		},
		{
			name: "shopping cart",
			add: func(ctx context.Context, u, r uint) error {
				_, err := f.relations.AddToShoppingCart(ctx, u, r)
				return err
			},
			remove: f.relations.RemoveFromShoppingCart,
		},
	}

	for _, tt := range toggles {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, tt.add(ctx, fan.ID, r.ID))
			assert.ErrorIs(t, tt.add(ctx, fan.ID, r.ID), ErrAlreadyExists)

			require.NoError(t, tt.remove(ctx, fan.ID, r.ID))
			assert.ErrorIs(t, tt.remove(ctx, fan.ID, r.ID), ErrNotFound)

			assert.ErrorIs(t, tt.add(ctx, fan.ID, 4242), ErrNotFound)
			assert.ErrorIs(t, tt.remove(ctx, fan.ID, 4242), ErrNotFound)
		})
	}
}

func TestAddFavoriteReturnsShortRecipe(t *testing.T) {
	f := newFixture(t)
	author := f.user(t, "chef")
	salt := f.ingredient(t, "Salt", "g")
	r := f.recipe(t, author.ID, "Soup", nil, IngredientAmount{ID: salt.ID, Amount: 1})

	short, err := f.relations.AddFavorite(context.Background(), author.ID, r.ID)
	require.NoError(t, err)
	assert.Equal(t, r.ID, short.ID)
	assert.Equal(t, "Soup", short.Name)
	assert.Equal(t, r.Image, short.Image)
	assert.Equal(t, 10, short.CookingTime)
}

func TestFollow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.user(t, "alice")
	b := f.user(t, "bob")

	err := f.relations.Follow(ctx, a.ID, a.ID)
	assert.Contains(t, fieldsOf(t, err), "errors")

	require.NoError(t, f.relations.Follow(ctx, a.ID, b.ID))
	assert.ErrorIs(t, f.relations.Follow(ctx, a.ID, b.ID), ErrAlreadyExists)

	// following is directional
	require.NoError(t, f.relations.Follow(ctx, b.ID, a.ID))

	require.NoError(t, f.relations.Unfollow(ctx, a.ID, b.ID))
	assert.ErrorIs(t, f.relations.Unfollow(ctx, a.ID, b.ID), ErrNotFound)

	assert.ErrorIs(t, f.relations.Follow(ctx, a.ID, 999), ErrNotFound)
	assert.ErrorIs(t, f.relations.Unfollow(ctx, a.ID, 999), ErrNotFound)
}
