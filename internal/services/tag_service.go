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

// TagInput creates a tag
type TagInput struct {
	Name  string `json:"name" validate:"required,max=100"`
	Color string `json:"color" validate:"required,hexcolor6"`
	Slug  string `json:"slug" validate:"required,max=100,slug"`
}

type TagService interface {
	ListTags(ctx context.Context) ([]models.Tag, error)
	GetTag(ctx context.Context, id uint) (*models.Tag, error)
	CreateTag(ctx context.Context, in TagInput) (*models.Tag, error)
	// ImportTags inserts tags whose slug is not known yet and reports how many were added
	ImportTags(ctx context.Context, tags []TagInput) (int64, error)
}

type tagService struct {
	db *gorm.DB
}

func NewTagService(db *gorm.DB) TagService {
	return &tagService{db: db}
}

func (s *tagService) ListTags(ctx context.Context) ([]models.Tag, error) {
	tags := []models.Tag{}
	if err := s.db.WithContext(ctx).Order("id").Find(&tags).Error; err != nil {
		return nil, err
	}
	return tags, nil
}

func (s *tagService) GetTag(ctx context.Context, id uint) (*models.Tag, error) {
	var tag models.Tag
	if err := s.db.WithContext(ctx).Take(&tag, id).Error; err != nil {
		return nil, notFoundOr(err, "tag %d", id)
	}
	return &tag, nil
}

func (s *tagService) CreateTag(ctx context.Context, in TagInput) (*models.Tag, error) {
	in.normalize()
	if err := validateStruct(&in).OrNil(); err != nil {
		return nil, err
	}

	tag := &models.Tag{Name: in.Name, Color: in.Color, Slug: in.Slug}
	if err := s.db.WithContext(ctx).Create(tag).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, newValidationError("slug", "A tag with this slug already exists.")
		}
		return nil, err
	}
	return tag, nil
}

func (s *tagService) ImportTags(ctx context.Context, inputs []TagInput) (int64, error) {
	verr := &ValidationError{}
	tags := make([]models.Tag, 0, len(inputs))
	for i := range inputs {
		in := inputs[i]
		in.normalize()
		if fieldErr := validateStruct(&in); len(fieldErr.Fields) > 0 {
			for field, msgs := range fieldErr.Fields {
				for _, m := range msgs {
					verr.Add(fmt.Sprintf("[%d].%s", i, field), m)
				}
			}
			continue
		}
		tags = append(tags, models.Tag{Name: in.Name, Color: in.Color, Slug: in.Slug})
	}
	if err := verr.OrNil(); err != nil {
		return 0, err
	}
	if len(tags) == 0 {
		return 0, nil
	}

	result := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "slug"}}, DoNothing: true}).
		CreateInBatches(&tags, 100)
	return result.RowsAffected, result.Error
}

func (in *TagInput) normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.Slug = strings.TrimSpace(in.Slug)
	in.Color = strings.ToUpper(strings.TrimSpace(in.Color))
}
