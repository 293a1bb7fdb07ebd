package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIngredientSearchIsCaseInsensitivePrefix(t *testing.T) {
	f := newFixture(t)
	svc := NewIngredientService(f.db)
	ctx := context.Background()
	f.ingredient(t, "Salt", "g")
	f.ingredient(t, "salmon", "g")
	f.ingredient(t, "Sea salt", "g")
	f.ingredient(t, "100%_juice", "ml")

	found, err := svc.ListIngredients(ctx, "SAL")
	require.NoError(t, err)
	names := []string{}
	for _, i := range found {
		names = append(names, i.Name)
	}
	assert.ElementsMatch(t, []string{"Salt", "salmon"}, names)

	found, err = svc.ListIngredients(ctx, "100%_")
	require.NoError(t, err)
	require.Len(t, found, 1)

	found, err = svc.ListIngredients(ctx, "1%")
	require.NoError(t, err)
	assert.Empty(t, found, "wildcards in the search are literal")

	all, err := svc.ListIngredients(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestIngredientCreateAndImport(t *testing.T) {
	f := newFixture(t)
	svc := NewIngredientService(f.db)
	ctx := context.Background()

	created, err := svc.CreateIngredient(ctx, IngredientInput{Name: " Salt ", MeasurementUnit: "g"})
	require.NoError(t, err)
	assert.Equal(t, "Salt", created.Name)

	_, err = svc.CreateIngredient(ctx, IngredientInput{Name: "Salt", MeasurementUnit: "g"})
	assert.Contains(t, fieldsOf(t, err), "name")

	// same name, different unit is a different ingredient
	_, err = svc.CreateIngredient(ctx, IngredientInput{Name: "Salt", MeasurementUnit: "pinch"})
	require.NoError(t, err)

	added, err := svc.ImportIngredients(ctx, []IngredientInput{
		{Name: "Salt", MeasurementUnit: "g"},
		{Name: "Sugar", MeasurementUnit: "g"},
		{Name: "Sugar", MeasurementUnit: "g"},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), added)

	_, err = svc.ImportIngredients(ctx, []IngredientInput{{Name: "", MeasurementUnit: "g"}})
	assert.Contains(t, fieldsOf(t, err), "[0].name")

	_, err = svc.GetIngredient(ctx, 999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTags(t *testing.T) {
	f := newFixture(t)
	svc := NewTagService(f.db)
	ctx := context.Background()

	tag, err := svc.CreateTag(ctx, TagInput{Name: "Breakfast", Color: "#e26c2d", Slug: "breakfast"})
	require.NoError(t, err)
	assert.Equal(t, "#E26C2D", tag.Color)

	_, err = svc.CreateTag(ctx, TagInput{Name: "Again", Color: "#000000", Slug: "breakfast"})
	assert.Contains(t, fieldsOf(t, err), "slug")

	_, err = svc.CreateTag(ctx, TagInput{Name: "Bad", Color: "red", Slug: "not a slug"})
	fields := fieldsOf(t, err)
	assert.Contains(t, fields, "color")
	assert.Contains(t, fields, "slug")

	added, err := svc.ImportTags(ctx, []TagInput{
		{Name: "Breakfast", Color: "#E26C2D", Slug: "breakfast"},
		{Name: "Lunch", Color: "#49B64E", Slug: "lunch"},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), added)

	tags, err := svc.ListTags(ctx)
	require.NoError(t, err)
	require.Len(t, tags, 2)
	assert.Equal(t, "breakfast", tags[0].Slug)

	got, err := svc.GetTag(ctx, tags[1].ID)
	require.NoError(t, err)
	assert.Equal(t, "lunch", got.Slug)

	_, err = svc.GetTag(ctx, 999)
	assert.ErrorIs(t, err, ErrNotFound)
}
