package services

import (
	"context"
	"fmt"
	"io"

	"gorm.io/gorm"
)

// ShoppingListLine is the total amount of one ingredient across a cart
type ShoppingListLine struct {
	Name            string
	MeasurementUnit string
	Amount          int64
}

type ShoppingListService interface {
	// Lines aggregates the ingredients of every recipe in the user's cart
	Lines(ctx context.Context, userID uint) ([]ShoppingListLine, error)
}

type shoppingListService struct {
	db *gorm.DB
}

func NewShoppingListService(db *gorm.DB) ShoppingListService {
	return &shoppingListService{db: db}
}

func (s *shoppingListService) Lines(ctx context.Context, userID uint) ([]ShoppingListLine, error) {
	lines := []ShoppingListLine{}
	err := s.db.WithContext(ctx).
		Table("shopping_cart_entries AS c").
		Select("i.name AS name, i.measurement_unit AS measurement_unit, SUM(ri.amount) AS amount").
		Joins("JOIN recipe_ingredients ri ON ri.recipe_id = c.recipe_id").
		Joins("JOIN ingredients i ON i.id = ri.ingredient_id").
		Where("c.user_id = ?", userID).
		Group("i.id, i.name, i.measurement_unit").
		Order("i.name, i.measurement_unit").
		Scan(&lines).Error
	if err != nil {
		return nil, err
	}
	return lines, nil
}

// WriteShoppingList renders one "<name>  <unit>  <amount>" line per ingredient
func WriteShoppingList(w io.Writer, lines []ShoppingListLine) error {
	for _, l := range lines {
		if _, err := fmt.Fprintf(w, "%s  %s  %d\n", l.Name, l.MeasurementUnit, l.Amount); err != nil {
			return err
		}
	}
	return nil
}
