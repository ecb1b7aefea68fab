package models

import (
	"time"

	"gorm.io/gorm"
)

type DeepLink struct {
	ID             uint           `gorm:"primaryKey" json:"id"`
	UserID         uint           `gorm:"not null;index" json:"user_id"`
	ShortCode      string         `gorm:"uniqueIndex;size:16;not null" json:"short_code"`
	DestinationURL string         `gorm:"size:2048;not null" json:"destination_url"`
	Title          string         `gorm:"size:255" json:"title"`
	Description    string         `gorm:"type:text" json:"description"`
	Metadata       string         `gorm:"type:text" json:"metadata"` // JSON
	ClickCount     int64          `gorm:"not null;default:0" json:"click_count"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`
}

func (DeepLink) TableName() string { return "deep_links" }

type DeepLinkClick struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	DeepLinkID uint      `gorm:"not null;index" json:"deep_link_id"`
	IP         string    `gorm:"size:45" json:"ip"`
	UserAgent  string    `gorm:"size:512" json:"user_agent"`
	Referrer   string    `gorm:"size:1024" json:"referrer"`
	ClickedAt  time.Time `gorm:"not null;index" json:"clicked_at"`
}

func (DeepLinkClick) TableName() string { return "deep_link_clicks" }
