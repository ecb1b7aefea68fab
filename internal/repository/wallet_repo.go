package repository

import (
	"context"
	"errors"

	"reviewhub/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	ErrInsufficientBalance = errors.New("insufficient wallet balance")
	ErrInvalidAmount       = errors.New("amount must be positive")
)

// WalletRepository moves users.wallet_balance and appends a wallet_transactions
// row for every movement.
type WalletRepository struct {
	db *gorm.DB
}

func NewWalletRepository(db *gorm.DB) *WalletRepository {
	return &WalletRepository{db: db}
}

func (r *WalletRepository) WithTx(tx *gorm.DB) *WalletRepository {
	return &WalletRepository{db: tx}
}

func (r *WalletRepository) Balance(ctx context.Context, userID uint) (decimal.Decimal, error) {
	var u models.User
	if err := r.db.WithContext(ctx).Select("id", "wallet_balance").First(&u, userID).Error; err != nil {
		return decimal.Zero, err
	}
	return u.WalletBalance, nil
}

// Credit adds amount to the balance.
func (r *WalletRepository) Credit(ctx context.Context, userID uint, amount decimal.Decimal, txType, reference string) (*models.WalletTransaction, error) {
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	var out *models.WalletTransaction
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.User{}).Where("id = ?", userID).
			UpdateColumn("wallet_balance", gorm.Expr("wallet_balance + CAST(? AS DECIMAL(12,2))", amount))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		wt, err := r.record(tx, userID, amount, txType, reference)
		out = wt
		return err
	})
	return out, err
}

// Debit subtracts amount, failing with ErrInsufficientBalance instead of going negative.
func (r *WalletRepository) Debit(ctx context.Context, userID uint, amount decimal.Decimal, txType, reference string) (*models.WalletTransaction, error) {
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	var out *models.WalletTransaction
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.User{}).
			Where("id = ? AND wallet_balance >= CAST(? AS DECIMAL(12,2))", userID, amount).
			UpdateColumn("wallet_balance", gorm.Expr("wallet_balance - CAST(? AS DECIMAL(12,2))", amount))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			var u models.User
			if err := tx.Select("id").First(&u, userID).Error; err != nil {
				return err
			}
			return ErrInsufficientBalance
		}
		wt, err := r.record(tx, userID, amount.Neg(), txType, reference)
		out = wt
		return err
	})
	return out, err
}

func (r *WalletRepository) record(tx *gorm.DB, userID uint, amount decimal.Decimal, txType, reference string) (*models.WalletTransaction, error) {
	var u models.User
	if err := tx.Select("id", "wallet_balance").First(&u, userID).Error; err != nil {
		return nil, err
	}
	wt := &models.WalletTransaction{
		UserID:       userID,
		Amount:       amount,
		BalanceAfter: u.WalletBalance,
		Type:         txType,
		Reference:    reference,
	}
	if err := tx.Create(wt).Error; err != nil {
		return nil, err
	}
	return wt, nil
}

func (r *WalletRepository) ListTransactions(ctx context.Context, userID uint, limit, offset int) ([]models.WalletTransaction, error) {
	var list []models.WalletTransaction
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).
		Order("id DESC").Limit(limit).Offset(offset).Find(&list).Error
	return list, err
}

// SumByType totals all movements of one type, e.g. commissions paid out.
func (r *WalletRepository) SumByType(ctx context.Context, txType string) (decimal.Decimal, error) {
	var row struct{ Total decimal.Decimal }
	err := r.db.WithContext(ctx).Model(&models.WalletTransaction{}).
		Select("COALESCE(SUM(amount), 0) AS total").Where("type = ?", txType).Scan(&row).Error
	return row.Total, err
}
