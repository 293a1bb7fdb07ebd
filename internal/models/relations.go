package models

import "time"

// Favorite, ShoppingCartEntry and Follow are toggle relations: rows are only
// ever created or deleted, and each pair may exist once.

type Favorite struct {
	ID        uint      `gorm:"primaryKey"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_favorite_user_recipe"`
	RecipeID  uint      `gorm:"not null;uniqueIndex:idx_favorite_user_recipe;index"`
	User      User      `gorm:"constraint:OnDelete:CASCADE"`
	Recipe    Recipe    `gorm:"constraint:OnDelete:CASCADE"`
	CreatedAt time.Time
}

type ShoppingCartEntry struct {
	ID        uint      `gorm:"primaryKey"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_cart_user_recipe"`
	RecipeID  uint      `gorm:"not null;uniqueIndex:idx_cart_user_recipe;index"`
	User      User      `gorm:"constraint:OnDelete:CASCADE"`
	Recipe    Recipe    `gorm:"constraint:OnDelete:CASCADE"`
	CreatedAt time.Time
}

func (ShoppingCartEntry) TableName() string {
	return "shopping_cart_entries"
}

type Follow struct {
	ID         uint      `gorm:"primaryKey"`
	FollowerID uint      `gorm:"not null;uniqueIndex:idx_follow_pair;check:follower_id <> followed_id"`
	FollowedID uint      `gorm:"not null;uniqueIndex:idx_follow_pair;index"`
	Follower   User      `gorm:"constraint:OnDelete:CASCADE"`
	Followed   User      `gorm:"constraint:OnDelete:CASCADE"`
	CreatedAt  time.Time
}
