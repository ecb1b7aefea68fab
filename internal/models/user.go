package models

import (
	"time"

	"reviewhub/internal/domain"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type User struct {
	ID                 uint            `gorm:"primaryKey" json:"id"`
	Name               string          `gorm:"size:120;not null;default:''" json:"name"`
	Email              string          `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Mobile             *string         `gorm:"uniqueIndex;size:20" json:"mobile"` // nil when not provided (avoids duplicate '' on unique index)
	PasswordHash       string          `gorm:"size:255" json:"-"`
	GoogleID           *string         `gorm:"uniqueIndex;size:255" json:"-"`
	AvatarURL          string          `gorm:"size:512" json:"avatar_url"`
	Role               string          `gorm:"size:20;not null;index" json:"role"` // USER | SELLER | ADMIN
	ReferralCode       *string         `gorm:"uniqueIndex;size:20" json:"referral_code"`
	ReferredBy         *uint           `gorm:"index" json:"referred_by"`
	WalletBalance      decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"wallet_balance"`
	KYCVerified        bool            `gorm:"default:false" json:"kyc_verified"`
	ProfileCompletedAt *time.Time      `json:"profile_completed_at"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
	DeletedAt          gorm.DeletedAt  `gorm:"index" json:"-"`
}

func (User) TableName() string { return "users" }

func (u *User) IsAdmin() bool  { return u.Role == domain.RoleAdmin }
func (u *User) IsSeller() bool { return u.Role == domain.RoleSeller }

// ProfileComplete reports whether every field counted for the profile bonus is filled in.
func (u *User) ProfileComplete() bool {
	return u.Name != "" && u.Email != "" && u.Mobile != nil && *u.Mobile != "" && u.AvatarURL != ""
}
