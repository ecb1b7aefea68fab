package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// WalletTransaction records every movement of users.wallet_balance.
type WalletTransaction struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	UserID       uint            `gorm:"not null;index" json:"user_id"`
	Amount       decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"` // positive = credit, negative = debit
	BalanceAfter decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"balance_after"`
	Type         string          `gorm:"size:30;not null;index" json:"type"`
	Reference    string          `gorm:"size:128" json:"reference"` // e.g. task:12, review_request:3
	CreatedAt    time.Time       `json:"created_at"`

	User User `gorm:"foreignKey:UserID" json:"-"`
}

func (WalletTransaction) TableName() string {
	return "wallet_transactions"
}
