package controllers

import (
	"net/http"

	"github.com/franciscosanchezn/gin-foodgram-api/internal/services"
	"github.com/gin-gonic/gin"
)

// ReferenceController serves tags and ingredients. Both lists are small and unpaginated.
type ReferenceController struct {
	tags        services.TagService
	ingredients services.IngredientService
}

func NewReferenceController(tags services.TagService, ingredients services.IngredientService) *ReferenceController {
	return &ReferenceController{tags: tags, ingredients: ingredients}
}

// ListTags godoc
// @Summary List tags
// @Tags tags
// @Produce json
// @Success 200 {array} models.Tag
// @Router /api/tags/ [get]
func (rc *ReferenceController) ListTags(c *gin.Context) {
	tags, err := rc.tags.ListTags(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tags)
}

// GetTag godoc
// @Summary Get a tag
// @Tags tags
// @Produce json
// @Param id path int true "Tag ID"
// @Success 200 {object} models.Tag
// @Failure 404 {object} models.APIError
// @Router /api/tags/{id}/ [get]
func (rc *ReferenceController) GetTag(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	tag, err := rc.tags.GetTag(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tag)
}

// CreateTag godoc
// @Summary Create a tag
// @Tags tags
// @Accept json
// @Produce json
// @Param tag body services.TagInput true "Tag"
// @Success 201 {object} models.Tag
// @Failure 400 {object} models.APIError
// @Failure 403 {object} models.APIError
// @Security BearerAuth
// @Router /api/tags/ [post]
func (rc *ReferenceController) CreateTag(c *gin.Context) {
	var req services.TagInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	tag, err := rc.tags.CreateTag(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, tag)
}

// ListIngredients godoc
// @Summary List ingredients
// @Tags ingredients
// @Produce json
// @Param name query string false "Case-insensitive name prefix"
// @Success 200 {array} models.Ingredient
// @Router /api/ingredients/ [get]
func (rc *ReferenceController) ListIngredients(c *gin.Context) {
	ingredients, err := rc.ingredients.ListIngredients(c.Request.Context(), c.Query("name"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ingredients)
}

// GetIngredient godoc
// @Summary Get an ingredient
// @Tags ingredients
// @Produce json
// @Param id path int true "Ingredient ID"
// @Success 200 {object} models.Ingredient
// @Failure 404 {object} models.APIError
// @Router /api/ingredients/{id}/ [get]
func (rc *ReferenceController) GetIngredient(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	ingredient, err := rc.ingredients.GetIngredient(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ingredient)
}

// CreateIngredient godoc
// @Summary Create an ingredient
// @Tags ingredients
// @Accept json
// @Produce json
// @Param ingredient body services.IngredientInput true "Ingredient"
// @Success 201 {object} models.Ingredient
// @Failure 400 {object} models.APIError
// @Failure 403 {object} models.APIError
// @Security BearerAuth
// @Router /api/ingredients/ [post]
func (rc *ReferenceController) CreateIngredient(c *gin.Context) {
	var req services.IngredientInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	ingredient, err := rc.ingredients.CreateIngredient(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, ingredient)
}
