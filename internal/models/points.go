package models

import (
	"time"

	"reviewhub/internal/domain"
)

type UserPoints struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	UserID      uint   `gorm:"uniqueIndex;not null" json:"user_id"`
	Points      int64  `gorm:"not null;default:0;index" json:"points"`
	Level       string `gorm:"size:30;not null;default:'Bronze'" json:"level"`
	TotalEarned int64  `gorm:"not null;default:0" json:"total_earned"`
	StreakDays  int    `gorm:"not null;default:0" json:"streak_days"`
	// LastLoginDate is a calendar date (YYYY-MM-DD) in the app timezone.
	LastLoginDate *string   `gorm:"size:10" json:"last_login_date"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`

	User User `gorm:"foreignKey:UserID" json:"-"`
}

func (UserPoints) TableName() string { return "user_points" }

// LevelSetting is one bracket of the level ladder. MaxPoints nil means open-ended.
type LevelSetting struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	LevelName   string `gorm:"uniqueIndex;size:30;not null" json:"level_name"`
	MinPoints   int64  `gorm:"not null" json:"min_points"`
	MaxPoints   *int64 `json:"max_points"`
	LevelOrder  int    `gorm:"not null;index" json:"level_order"`
	BonusPoints int64  `gorm:"not null;default:0" json:"bonus_points"`
}

func (LevelSetting) TableName() string { return "level_settings" }

type PointTransaction struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	UserID        uint      `gorm:"not null;index" json:"user_id"`
	Points        int64     `gorm:"not null" json:"points"`
	Type          string    `gorm:"size:30;not null;index" json:"type"`
	Description   string    `gorm:"size:255" json:"description"`
	ReferenceType *string   `gorm:"size:30" json:"reference_type"`
	ReferenceID   *uint     `json:"reference_id"`
	CreatedAt     time.Time `gorm:"index" json:"created_at"`
}

func (PointTransaction) TableName() string { return "point_transactions" }

// Ref returns the typed provenance of the transaction.
func (t *PointTransaction) Ref() domain.PointRef {
	return domain.ParsePointRef(t.ReferenceType, t.ReferenceID)
}
