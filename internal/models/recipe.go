package models

import (
	"encoding/json"
	"time"
)

// Recipe is the main published entity. Tags and ingredient amounts are
// owned by the recipe and removed with it.
type Recipe struct {
	ID          uint               `gorm:"primaryKey" json:"id"`
	Tags        []Tag              `gorm:"many2many:recipe_tags;constraint:OnDelete:CASCADE" json:"tags"`
	AuthorID    uint               `gorm:"not null;index" json:"-"`
	Author      User               `gorm:"constraint:OnDelete:CASCADE" json:"author"`
	Ingredients []RecipeIngredient `gorm:"constraint:OnDelete:CASCADE" json:"ingredients"`
	Name        string             `gorm:"size:200;not null" json:"name"`
	Text        string             `gorm:"type:text;not null" json:"text"`
	CookingTime int                `gorm:"not null;check:cooking_time >= 1" json:"cooking_time"`
	Image       string             `gorm:"size:512;not null" json:"image"`
	ImageKey    string             `gorm:"size:255" json:"-"`
	CreatedAt   time.Time          `gorm:"index" json:"-"`
	UpdatedAt   time.Time          `json:"-"`

	IsFavorited      bool `gorm:"->;-:migration" json:"is_favorited"`
	IsInShoppingCart bool `gorm:"->;-:migration" json:"is_in_shopping_cart"`
}

// RecipeIngredient stores the amount of one ingredient in one recipe.
type RecipeIngredient struct {
	ID           uint       `gorm:"primaryKey"`
	RecipeID     uint       `gorm:"not null;uniqueIndex:idx_recipe_ingredient"`
	IngredientID uint       `gorm:"not null;uniqueIndex:idx_recipe_ingredient;index"`
	Ingredient   Ingredient `gorm:"constraint:OnDelete:CASCADE"`
	Amount       int        `gorm:"not null;check:amount >= 1"`
}

// MarshalJSON flattens the ingredient into the amount row.
func (ri RecipeIngredient) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ID              uint   `json:"id"`
		Name            string `json:"name"`
		MeasurementUnit string `json:"measurement_unit"`
		Amount          int    `json:"amount"`
	}{
		ID:              ri.IngredientID,
		Name:            ri.Ingredient.Name,
		MeasurementUnit: ri.Ingredient.MeasurementUnit,
		Amount:          ri.Amount,
	})
}

// RecipeShort is the compact form used by toggles and subscription previews.
type RecipeShort struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"`
	Image       string `json:"image"`
	CookingTime int    `json:"cooking_time"`
	AuthorID    uint   `json:"-"`
}

// Short returns the compact representation of the recipe
func (r *Recipe) Short() RecipeShort {
	return RecipeShort{ID: r.ID, Name: r.Name, Image: r.Image, CookingTime: r.CookingTime, AuthorID: r.AuthorID}
}
