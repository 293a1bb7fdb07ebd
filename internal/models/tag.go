package models

// Tag labels recipes; referenced by slug in listing filters.
type Tag struct {
	ID    uint   `gorm:"primaryKey" json:"id"`
	Name  string `gorm:"size:100;not null" json:"name"`
	Color string `gorm:"size:15;not null" json:"color"`
	Slug  string `gorm:"size:100;uniqueIndex;not null" json:"slug"`
}
