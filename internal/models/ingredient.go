package models

type Ingredient struct {
	ID              uint   `gorm:"primaryKey" json:"id"`
	Name            string `gorm:"size:100;not null;uniqueIndex:idx_ingredient_name_unit" json:"name"`
	MeasurementUnit string `gorm:"size:15;not null;uniqueIndex:idx_ingredient_name_unit" json:"measurement_unit"`
}
