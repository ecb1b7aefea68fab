package models

import "time"

// Badge is a static catalog row seeded on migrate.
type Badge struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	Name           string    `gorm:"uniqueIndex;size:60;not null" json:"name"`
	Description    string    `gorm:"size:255" json:"description"`
	Icon           string    `gorm:"size:60" json:"icon"`
	PointsRequired int64     `gorm:"not null;default:0" json:"points_required"`
	IsActive       bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
}

func (Badge) TableName() string { return "badges" }

type UserBadge struct {
	ID       uint      `gorm:"primaryKey" json:"id"`
	UserID   uint      `gorm:"not null;uniqueIndex:idx_user_badge,priority:1" json:"user_id"`
	BadgeID  uint      `gorm:"not null;uniqueIndex:idx_user_badge,priority:2" json:"badge_id"`
	EarnedAt time.Time `gorm:"not null" json:"earned_at"`

	Badge Badge `gorm:"foreignKey:BadgeID" json:"badge"`
}

func (UserBadge) TableName() string { return "user_badges" }
