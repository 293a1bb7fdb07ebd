package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/franciscosanchezn/gin-foodgram-api/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// IngredientInput creates an ingredient
type IngredientInput struct {
	Name            string `json:"name" validate:"required,max=100"`
	MeasurementUnit string `json:"measurement_unit" validate:"required,max=15"`
}

type IngredientService interface {
	// ListIngredients returns ingredients whose name starts with search, case-insensitively
	ListIngredients(ctx context.Context, search string) ([]models.Ingredient, error)
	GetIngredient(ctx context.Context, id uint) (*models.Ingredient, error)
	CreateIngredient(ctx context.Context, in IngredientInput) (*models.Ingredient, error)
	// ImportIngredients skips (name, unit) pairs that already exist
	ImportIngredients(ctx context.Context, items []IngredientInput) (int64, error)
}

type ingredientService struct {
	db *gorm.DB
}

func NewIngredientService(db *gorm.DB) IngredientService {
	return &ingredientService{db: db}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func (s *ingredientService) ListIngredients(ctx context.Context, search string) ([]models.Ingredient, error) {
	q := s.db.WithContext(ctx).Model(&models.Ingredient{})
	if search = strings.TrimSpace(search); search != "" {
		q = q.Where(`LOWER(name) LIKE ? ESCAPE '\'`, likeEscaper.Replace(strings.ToLower(search))+"%")
	}

	ingredients := []models.Ingredient{}
	if err := q.Order("name").Order("id").Find(&ingredients).Error; err != nil {
		return nil, err
	}
	return ingredients, nil
}

func (s *ingredientService) GetIngredient(ctx context.Context, id uint) (*models.Ingredient, error) {
	var ingredient models.Ingredient
	if err := s.db.WithContext(ctx).Take(&ingredient, id).Error; err != nil {
		return nil, notFoundOr(err, "ingredient %d", id)
	}
	return &ingredient, nil
}

func (s *ingredientService) CreateIngredient(ctx context.Context, in IngredientInput) (*models.Ingredient, error) {
	in.normalize()
	if err := validateStruct(&in).OrNil(); err != nil {
		return nil, err
	}

	ingredient := &models.Ingredient{Name: in.Name, MeasurementUnit: in.MeasurementUnit}
	if err := s.db.WithContext(ctx).Create(ingredient).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, newValidationError("name", "This ingredient already exists with that measurement unit.")
		}
		return nil, err
	}
	return ingredient, nil
}

func (s *ingredientService) ImportIngredients(ctx context.Context, items []IngredientInput) (int64, error) {
	verr := &ValidationError{}
	rows := make([]models.Ingredient, 0, len(items))
	for i := range items {
		in := items[i]
		in.normalize()
		if fieldErr := validateStruct(&in); len(fieldErr.Fields) > 0 {
			for field, msgs := range fieldErr.Fields {
				for _, m := range msgs {
					verr.Add(fmt.Sprintf("[%d].%s", i, field), m)
				}
			}
			continue
		}
		rows = append(rows, models.Ingredient{Name: in.Name, MeasurementUnit: in.MeasurementUnit})
	}
	if err := verr.OrNil(); err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}

	result := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "name"}, {Name: "measurement_unit"}}, DoNothing: true}).
		CreateInBatches(&rows, 500)
	return result.RowsAffected, result.Error
}

func (in *IngredientInput) normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.MeasurementUnit = strings.TrimSpace(in.MeasurementUnit)
}
