package services

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShoppingListSumsAcrossRecipes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	author := f.user(t, "chef")
	shopper := f.user(t, "shopper")
	salt := f.ingredient(t, "Salt", "g")
	eggs := f.ingredient(t, "Eggs", "pcs")
	flour := f.ingredient(t, "Flour", "g")

	soup := f.recipe(t, author.ID, "Soup", nil, IngredientAmount{ID: salt.ID, Amount: 5}, IngredientAmount{ID: eggs.ID, Amount: 2})
	bread := f.recipe(t, author.ID, "Bread", nil, IngredientAmount{ID: salt.ID, Amount: 10}, IngredientAmount{ID: flour.ID, Amount: 500})
	// in someone else's cart only
	f.recipe(t, author.ID, "Cake", nil, IngredientAmount{ID: flour.ID, Amount: 300})

	for _, id := range []uint{soup.ID, bread.ID} {
		_, err := f.relations.AddToShoppingCart(ctx, shopper.ID, id)
		require.NoError(t, err)
	}

	lines, err := NewShoppingListService(f.db).Lines(ctx, shopper.ID)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteShoppingList(&buf, lines))

	got := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	assert.ElementsMatch(t, []string{"Salt  g  15", "Eggs  pcs  2", "Flour  g  500"}, got)
	assert.True(t, strings.HasSuffix(buf.String(), "\n"))
}

func TestShoppingListEmptyCart(t *testing.T) {
	f := newFixture(t)
	shopper := f.user(t, "shopper")

	lines, err := NewShoppingListService(f.db).Lines(context.Background(), shopper.ID)
	require.NoError(t, err)
	assert.Empty(t, lines)

	var buf bytes.Buffer
	require.NoError(t, WriteShoppingList(&buf, lines))
	assert.Empty(t, buf.String())
}
