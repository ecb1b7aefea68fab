// Package testutil provides an in-memory SQLite database migrated and seeded
// the same way production is, plus small fixture helpers.
package testutil

import (
	"fmt"
	"testing"
	"time"

	"reviewhub/internal/database"
	"reviewhub/internal/domain"
	"reviewhub/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDB returns a fresh migrated and seeded database. A single connection is
// used so every statement sees the same in-memory store.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.AutoMigrate(db))
	require.NoError(t, database.Seed(db))
	return db
}

// CreateUser inserts a USER with a referral code derived from its id.
func CreateUser(t testing.TB, db *gorm.DB, name string) *models.User {
	t.Helper()
	return createUser(t, db, name, domain.RoleUser)
}

func CreateSeller(t testing.TB, db *gorm.DB, name string) *models.User {
	t.Helper()
	return createUser(t, db, name, domain.RoleSeller)
}

func CreateAdmin(t testing.TB, db *gorm.DB, name string) *models.User {
	t.Helper()
	return createUser(t, db, name, domain.RoleAdmin)
}

func createUser(t testing.TB, db *gorm.DB, name, role string) *models.User {
	u := &models.User{
		Name:          name,
		Email:         name + "@example.com",
		Role:          role,
		WalletBalance: decimal.Zero,
	}
	require.NoError(t, db.Create(u).Error)
	code := fmt.Sprintf("REF%06d", u.ID)
	require.NoError(t, db.Model(u).Update("referral_code", code).Error)
	u.ReferralCode = &code
	return u
}

// SetBalance overwrites a user's wallet balance.
func SetBalance(t testing.TB, db *gorm.DB, userID uint, amount string) {
	t.Helper()
	require.NoError(t, db.Model(&models.User{}).Where("id = ?", userID).
		Update("wallet_balance", decimal.RequireFromString(amount)).Error)
}

// Balance reads a user's wallet balance.
func Balance(t testing.TB, db *gorm.DB, userID uint) decimal.Decimal {
	t.Helper()
	var u models.User
	require.NoError(t, db.First(&u, userID).Error)
	return u.WalletBalance
}

// FixedClock returns a clock that always reports t.
func FixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
