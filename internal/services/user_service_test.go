package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validRegistration() RegisterInput {
	return RegisterInput{
		Email:     "Cook@Example.com",
		Username:  "cook",
		FirstName: "Julia",
		LastName:  "Child",
		Password:  "s3cret-pass",
	}
}

func TestCreateUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	user, err := f.users.CreateUser(ctx, validRegistration())
	require.NoError(t, err)
	assert.NotZero(t, user.ID)
	assert.Equal(t, "cook@example.com", user.Email)
	assert.Equal(t, "user", user.Role)
	assert.NotEqual(t, "s3cret-pass", user.Password)
	assert.True(t, user.CheckPassword("s3cret-pass"))

	_, err = f.users.CreateUser(ctx, validRegistration())
	fields := fieldsOf(t, err)
	assert.Contains(t, fields, "email")
	assert.Contains(t, fields, "username")
}

func TestCreateUserValidation(t *testing.T) {
	f := newFixture(t)

	_, err := f.users.CreateUser(context.Background(), RegisterInput{
		Email:    "not-an-email",
		Username: "bad name!",
		Password: "short",
	})

	fields := fieldsOf(t, err)
	for _, field := range []string{"email", "username", "first_name", "last_name", "password"} {
		assert.Contains(t, fields, field)
	}
}

func TestAuthenticate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.users.CreateUser(ctx, validRegistration())
	require.NoError(t, err)

	user, err := f.users.Authenticate(ctx, "cook@example.com", "s3cret-pass")
	require.NoError(t, err)
	assert.Equal(t, "cook", user.Username)

	_, err = f.users.Authenticate(ctx, "cook@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = f.users.Authenticate(ctx, "nobody@example.com", "s3cret-pass")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestSetPassword(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user, err := f.users.CreateUser(ctx, validRegistration())
	require.NoError(t, err)

	err = f.users.SetPassword(ctx, user.ID, SetPasswordInput{NewPassword: "another-pass", CurrentPassword: "wrong"})
	assert.Contains(t, fieldsOf(t, err), "current_password")

	require.NoError(t, f.users.SetPassword(ctx, user.ID, SetPasswordInput{NewPassword: "another-pass", CurrentPassword: "s3cret-pass"}))

	_, err = f.users.Authenticate(ctx, "cook@example.com", "another-pass")
	assert.NoError(t, err)
	_, err = f.users.Authenticate(ctx, "cook@example.com", "s3cret-pass")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestProfilesAreAnnotated(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	viewer := f.user(t, "viewer")
	followed := f.user(t, "followed")
	stranger := f.user(t, "stranger")
	require.NoError(t, f.relations.Follow(ctx, viewer.ID, followed.ID))

	profile, err := f.users.GetProfile(ctx, viewer.ID, followed.ID)
	require.NoError(t, err)
	assert.True(t, profile.IsSubscribed)

	profile, err = f.users.GetProfile(ctx, viewer.ID, stranger.ID)
	require.NoError(t, err)
	assert.False(t, profile.IsSubscribed)

	_, err = f.users.GetProfile(ctx, viewer.ID, 999)
	assert.ErrorIs(t, err, ErrNotFound)

	users, total, err := f.users.ListUsers(ctx, viewer.ID, Page{Number: 1, Size: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, users, 3)
	for _, u := range users {
		assert.Equal(t, u.ID == followed.ID, u.IsSubscribed, "user %s", u.Username)
	}

	anonymous, _, err := f.users.ListUsers(ctx, 0, Page{})
	require.NoError(t, err)
	for _, u := range anonymous {
		assert.False(t, u.IsSubscribed)
	}
}

func TestListSubscriptions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	viewer := f.user(t, "viewer")
	prolific := f.user(t, "prolific")
	quiet := f.user(t, "quiet")
	f.user(t, "ignored")
	salt := f.ingredient(t, "Salt", "g")
	item := IngredientAmount{ID: salt.ID, Amount: 1}

	first := f.recipe(t, prolific.ID, "First", nil, item)
	second := f.recipe(t, prolific.ID, "Second", nil, item)
	third := f.recipe(t, prolific.ID, "Third", nil, item)
	_ = first

	require.NoError(t, f.relations.Follow(ctx, viewer.ID, prolific.ID))
	require.NoError(t, f.relations.Follow(ctx, viewer.ID, quiet.ID))

	subs, total, err := f.users.ListSubscriptions(ctx, viewer.ID, Page{Number: 1, Size: 10}, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, subs, 2)

	byName := map[string]int{}
	for i, s := range subs {
		byName[s.Username] = i
		assert.True(t, s.IsSubscribed)
	}
	p := subs[byName["prolific"]]
	assert.Equal(t, int64(3), p.RecipesCount)
	require.Len(t, p.Recipes, 2, "recipes_limit caps the preview")
	assert.Equal(t, third.ID, p.Recipes[0].ID)
	assert.Equal(t, second.ID, p.Recipes[1].ID)

	q := subs[byName["quiet"]]
	assert.Zero(t, q.RecipesCount)
	assert.NotNil(t, q.Recipes)
	assert.Empty(t, q.Recipes)

	all, _, err := f.users.ListSubscriptions(ctx, viewer.ID, Page{}, 0)
	require.NoError(t, err)
	for _, s := range all {
		if s.Username == "prolific" {
			assert.Len(t, s.Recipes, 3)
		}
	}
}

func TestGetSubscription(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	viewer := f.user(t, "viewer")
	author := f.user(t, "author")
	salt := f.ingredient(t, "Salt", "g")
	f.recipe(t, author.ID, "Soup", nil, IngredientAmount{ID: salt.ID, Amount: 1})
	require.NoError(t, f.relations.Follow(ctx, viewer.ID, author.ID))

	sub, err := f.users.GetSubscription(ctx, viewer.ID, author.ID, 0)
	require.NoError(t, err)
	assert.True(t, sub.IsSubscribed)
	assert.Equal(t, int64(1), sub.RecipesCount)
	assert.Len(t, sub.Recipes, 1)

	_, err = f.users.GetSubscription(ctx, viewer.ID, 999, 0)
	assert.ErrorIs(t, err, ErrNotFound)
}
