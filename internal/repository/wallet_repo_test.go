package repository

import (
	"context"
	"testing"

	"reviewhub/internal/domain"
	"reviewhub/internal/testutil"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestWalletCreditAndDebit(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewWalletRepository(db)
	ctx := context.Background()
	u := testutil.CreateUser(t, db, "alice")

	wt, err := repo.Credit(ctx, u.ID, decimal.RequireFromString("150.50"), domain.WalletTxAdjustment, "seed")
	require.NoError(t, err)
	assert.Equal(t, "150.50", wt.BalanceAfter.StringFixed(2))

	wt, err = repo.Debit(ctx, u.ID, decimal.RequireFromString("50.25"), domain.WalletTxReviewRequestPayment, "rr:1")
	require.NoError(t, err)
	assert.Equal(t, "-50.25", wt.Amount.StringFixed(2))
	assert.Equal(t, "100.25", wt.BalanceAfter.StringFixed(2))

	bal, err := repo.Balance(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "100.25", bal.StringFixed(2))

	list, err := repo.ListTransactions(ctx, u.ID, 10, 0)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestWalletDebitInsufficient(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewWalletRepository(db)
	ctx := context.Background()
	u := testutil.CreateUser(t, db, "bob")
	testutil.SetBalance(t, db, u.ID, "10")

	_, err := repo.Debit(ctx, u.ID, decimal.NewFromInt(11), domain.WalletTxReviewRequestPayment, "rr:2")
	assert.ErrorIs(t, err, ErrInsufficientBalance)
	assert.Equal(t, "10.00", testutil.Balance(t, db, u.ID).StringFixed(2))

	list, err := repo.ListTransactions(ctx, u.ID, 10, 0)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestWalletRejectsBadInput(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewWalletRepository(db)
	ctx := context.Background()

	_, err := repo.Credit(ctx, 1, decimal.Zero, domain.WalletTxAdjustment, "")
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = repo.Credit(ctx, 9999, decimal.NewFromInt(1), domain.WalletTxAdjustment, "")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
