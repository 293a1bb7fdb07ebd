package controllers

import (
	"bytes"
	"net/http"
	"strconv"
	"strings"

	"github.com/franciscosanchezn/gin-foodgram-api/internal/services"
	"github.com/gin-gonic/gin"
)

// RecipeController serves recipes and the per-user recipe toggles
type RecipeController struct {
	recipes      services.RecipeService
	relations    services.RelationService
	shoppingList services.ShoppingListService
	pageSize     int
}

func NewRecipeController(recipes services.RecipeService, relations services.RelationService, shoppingList services.ShoppingListService, pageSize int) *RecipeController {
	return &RecipeController{
		recipes:      recipes,
		relations:    relations,
		shoppingList: shoppingList,
		pageSize:     pageSize,
	}
}

// recipeFilter reads the listing filters. Tags may be repeated or comma separated.
func recipeFilter(c *gin.Context) services.RecipeFilter {
	var filter services.RecipeFilter
	for _, v := range c.QueryArray("tags") {
		for _, slug := range strings.Split(v, ",") {
			if slug = strings.TrimSpace(slug); slug != "" {
				filter.TagSlugs = append(filter.TagSlugs, slug)
			}
		}
	}
	if author, err := strconv.ParseUint(c.Query("author"), 10, 32); err == nil {
		id := uint(author)
		filter.AuthorID = &id
	}
	filter.FavoritedOnly = truthy(c.Query("is_favorited"))
	filter.InCartOnly = truthy(c.Query("is_in_shopping_cart"))
	return filter
}

func truthy(v string) bool {
	switch strings.ToLower(v) {
	case "1", "true":
		return true
	}
	return false
}

// ListRecipes godoc
// @Summary List recipes
// @Description Newest first. Flags are relative to the caller; anonymous callers see them false.
// @Tags recipes
// @Produce json
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Param tags query []string false "Tag slugs, any of" collectionFormat(multi)
// @Param author query int false "Author ID"
// @Param is_favorited query int false "1 to list only favorites"
// @Param is_in_shopping_cart query int false "1 to list only the shopping cart"
// @Success 200 {object} Paginated
// @Router /api/recipes/ [get]
func (rc *RecipeController) ListRecipes(c *gin.Context) {
	page := pageFromQuery(c, rc.pageSize)
	recipes, total, err := rc.recipes.ListRecipes(c.Request.Context(), currentUserID(c), recipeFilter(c), page)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, paginated(c, page, total, recipes))
}

// GetRecipe godoc
// @Summary Get a recipe
// @Tags recipes
// @Produce json
// @Param id path int true "Recipe ID"
// @Success 200 {object} models.Recipe
// @Failure 404 {object} models.APIError
// @Router /api/recipes/{id}/ [get]
func (rc *RecipeController) GetRecipe(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	recipe, err := rc.recipes.GetRecipe(c.Request.Context(), currentUserID(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, recipe)
}

// CreateRecipe godoc
// @Summary Publish a recipe
// @Description The image is a base64 data URI. Every validation problem is reported at once.
// @Tags recipes
// @Accept json
// @Produce json
// @Param recipe body services.RecipeInput true "Recipe"
// @Success 201 {object} models.Recipe
// @Failure 400 {object} models.APIError
// @Failure 401 {object} models.OAuth2Error
// @Failure 429 {object} models.APIError
// @Security BearerAuth
// @Router /api/recipes/ [post]
func (rc *RecipeController) CreateRecipe(c *gin.Context) {
	var req services.RecipeInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	recipe, err := rc.recipes.CreateRecipe(c.Request.Context(), currentUserID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, recipe)
}

// UpdateRecipe godoc
// @Summary Update a recipe
// @Description Replaces every field, the tags and the ingredient list. The image may be omitted to keep the current one.
// @Tags recipes
// @Accept json
// @Produce json
// @Param id path int true "Recipe ID"
// @Param recipe body services.RecipeInput true "Recipe"
// @Success 200 {object} models.Recipe
// @Failure 400 {object} models.APIError
// @Failure 403 {object} models.APIError
// @Failure 404 {object} models.APIError
// @Security BearerAuth
// @Router /api/recipes/{id}/ [patch]
// @Router /api/recipes/{id}/ [put]
func (rc *RecipeController) UpdateRecipe(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req services.RecipeInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	recipe, err := rc.recipes.UpdateRecipe(c.Request.Context(), currentUserID(c), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, recipe)
}

// DeleteRecipe godoc
// @Summary Delete a recipe
// @Tags recipes
// @Param id path int true "Recipe ID"
// @Success 204
// @Failure 403 {object} models.APIError
// @Failure 404 {object} models.APIError
// @Security BearerAuth
// @Router /api/recipes/{id}/ [delete]
func (rc *RecipeController) DeleteRecipe(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := rc.recipes.DeleteRecipe(c.Request.Context(), currentUserID(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// AddFavorite godoc
// @Summary Add to favorites
// @Tags recipes
// @Produce json
// @Param id path int true "Recipe ID"
// @Success 201 {object} models.RecipeShort
// @Failure 400 {object} models.APIError
// @Failure 404 {object} models.APIError
// @Security BearerAuth
// @Router /api/recipes/{id}/favorite/ [post]
func (rc *RecipeController) AddFavorite(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	short, err := rc.relations.AddFavorite(c.Request.Context(), currentUserID(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, short)
}

// RemoveFavorite godoc
// @Summary Remove from favorites
// @Tags recipes
// @Param id path int true "Recipe ID"
// @Success 204
// @Failure 404 {object} models.APIError
// @Security BearerAuth
// @Router /api/recipes/{id}/favorite/ [delete]
func (rc *RecipeController) RemoveFavorite(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := rc.relations.RemoveFavorite(c.Request.Context(), currentUserID(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// AddToShoppingCart godoc
// @Summary Add to the shopping cart
// @Tags recipes
// @Produce json
// @Param id path int true "Recipe ID"
// @Success 201 {object} models.RecipeShort
// @Failure 400 {object} models.APIError
// @Failure 404 {object} models.APIError
// @Security BearerAuth
// @Router /api/recipes/{id}/shopping_cart/ [post]
func (rc *RecipeController) AddToShoppingCart(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	short, err := rc.relations.AddToShoppingCart(c.Request.Context(), currentUserID(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, short)
}

// RemoveFromShoppingCart godoc
// @Summary Remove from the shopping cart
// @Tags recipes
// @Param id path int true "Recipe ID"
// @Success 204
// @Failure 404 {object} models.APIError
// @Security BearerAuth
// @Router /api/recipes/{id}/shopping_cart/ [delete]
func (rc *RecipeController) RemoveFromShoppingCart(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := rc.relations.RemoveFromShoppingCart(c.Request.Context(), currentUserID(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// DownloadShoppingCart godoc
// @Summary Download the shopping list
// @Description One line per ingredient with the amounts of all recipes in the cart summed up
// @Tags recipes
// @Produce plain
// @Success 200 {string} string "shopping list"
// @Security BearerAuth
// @Router /api/download_shopping_cart/ [get]
func (rc *RecipeController) DownloadShoppingCart(c *gin.Context) {
	lines, err := rc.shoppingList.Lines(c.Request.Context(), currentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	var buf bytes.Buffer
	if err := services.WriteShoppingList(&buf, lines); err != nil {
		respondError(c, err)
		return
	}

	c.Header("Content-Disposition", "attachment; filename=my-file.txt")
	c.Data(http.StatusOK, "text/plain; charset=utf-8", buf.Bytes())
}
