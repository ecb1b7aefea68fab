package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Payment struct {
	ID                uint            `gorm:"primaryKey" json:"id"`
	UserID            uint            `gorm:"not null;index" json:"user_id"`
	Amount            decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	Currency          string          `gorm:"size:3;default:'INR'" json:"currency"`
	Provider          string          `gorm:"size:50;not null" json:"provider"`
	ProviderRef       string          `gorm:"size:255;uniqueIndex" json:"provider_ref"` // gateway order id
	ProviderPaymentID string          `gorm:"size:255" json:"provider_payment_id"`
	Status            string          `gorm:"size:20;not null;index" json:"status"` // PENDING, COMPLETED, FAILED, EXPIRED
	Purpose           string          `gorm:"size:30;not null" json:"purpose"`
	Metadata          string          `gorm:"type:text" json:"metadata"` // JSON
	ExpiresAt         *time.Time      `gorm:"index" json:"expires_at"`
	CompletedAt       *time.Time      `json:"completed_at"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`

	User User `gorm:"foreignKey:UserID" json:"-"`
}

func (Payment) TableName() string {
	return "payments"
}
