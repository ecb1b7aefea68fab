package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Referral is one row per ancestor level per referee. Level 1 is the direct
// referrer; levels 2..N are backfilled by walking referred_by upward.
type Referral struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	ReferrerID  uint       `gorm:"not null;uniqueIndex:idx_referral_chain,priority:1;index" json:"referrer_id"`
	RefereeID   uint       `gorm:"not null;uniqueIndex:idx_referral_chain,priority:2;index" json:"referee_id"`
	Level       int        `gorm:"not null;uniqueIndex:idx_referral_chain,priority:3" json:"level"`
	Status      string     `gorm:"size:20;not null;default:'pending';index" json:"status"`
	ActivatedAt *time.Time `json:"activated_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`

	Referrer User `gorm:"foreignKey:ReferrerID" json:"-"`
	Referee  User `gorm:"foreignKey:RefereeID" json:"referee,omitempty"`
}

func (Referral) TableName() string { return "referrals" }

// ReferralEarning is the commission ledger. The unique key makes a retried
// fan-out for the same task a no-op per beneficiary and level.
type ReferralEarning struct {
	ID         uint            `gorm:"primaryKey" json:"id"`
	UserID     uint            `gorm:"not null;uniqueIndex:idx_earning_source,priority:1;index" json:"user_id"`
	FromUserID uint            `gorm:"not null;uniqueIndex:idx_earning_source,priority:2" json:"from_user_id"`
	TaskID     uint            `gorm:"not null;uniqueIndex:idx_earning_source,priority:3" json:"task_id"`
	Level      int             `gorm:"not null;uniqueIndex:idx_earning_source,priority:4" json:"level"`
	Amount     decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	Status     string          `gorm:"size:20;not null;default:'pending'" json:"status"`
	CreditedAt *time.Time      `json:"credited_at"`
	CreatedAt  time.Time       `json:"created_at"`
}

func (ReferralEarning) TableName() string { return "referral_earnings" }
