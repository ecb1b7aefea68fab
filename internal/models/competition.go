package models

import (
	"time"

	"gorm.io/gorm"
)

type Competition struct {
	ID              uint           `gorm:"primaryKey" json:"id"`
	Title           string         `gorm:"size:255;not null" json:"title"`
	Slug            string         `gorm:"uniqueIndex;size:255;not null" json:"slug"`
	Description     string         `gorm:"type:text" json:"description"`
	Metric          string         `gorm:"size:20;not null" json:"metric"` // points | tasks | referrals
	Prize           string         `gorm:"size:255" json:"prize"`
	StartAt         time.Time      `gorm:"not null;index" json:"start_at"`
	EndAt           time.Time      `gorm:"not null;index" json:"end_at"`
	MaxParticipants int            `gorm:"not null;default:0" json:"max_participants"` // 0 = unlimited
	Status          string         `gorm:"size:20;not null;index" json:"status"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Competition) TableName() string { return "competitions" }

// IsOpen reports whether the competition accepts entries and activity at t.
func (c *Competition) IsOpen(t time.Time) bool {
	return c.Status == "active" && !t.Before(c.StartAt) && t.Before(c.EndAt)
}

// CompetitionParticipant caches score and rank per entrant. Rank is rewritten
// by the recompute job and after each recorded activity.
type CompetitionParticipant struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	CompetitionID uint      `gorm:"not null;uniqueIndex:idx_competition_user,priority:1;index" json:"competition_id"`
	UserID        uint      `gorm:"not null;uniqueIndex:idx_competition_user,priority:2;index" json:"user_id"`
	MetricValue   int64     `gorm:"not null;default:0" json:"metric_value"`
	Rank          int       `gorm:"not null;default:0" json:"rank"`
	JoinedAt      time.Time `gorm:"not null" json:"joined_at"`
	UpdatedAt     time.Time `json:"updated_at"`

	User        User        `gorm:"foreignKey:UserID" json:"-"`
	Competition Competition `gorm:"foreignKey:CompetitionID" json:"competition,omitempty"`
}

func (CompetitionParticipant) TableName() string { return "competition_participants" }
