package database

import (
	"errors"

	"reviewhub/internal/domain"
	"reviewhub/internal/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func int64Ptr(v int64) *int64 { return &v }

// DefaultLevels is the level ladder seeded on migrate.
var DefaultLevels = []models.LevelSetting{
	{LevelName: "Bronze", MinPoints: 0, MaxPoints: int64Ptr(499), LevelOrder: 1, BonusPoints: 0},
	{LevelName: "Silver", MinPoints: 500, MaxPoints: int64Ptr(1999), LevelOrder: 2, BonusPoints: 50},
	{LevelName: "Gold", MinPoints: 2000, MaxPoints: int64Ptr(4999), LevelOrder: 3, BonusPoints: 100},
	{LevelName: "Platinum", MinPoints: 5000, MaxPoints: int64Ptr(9999), LevelOrder: 4, BonusPoints: 200},
	{LevelName: "Diamond", MinPoints: 10000, MaxPoints: nil, LevelOrder: 5, BonusPoints: 500},
}

// DefaultBadges is the achievement catalog seeded on migrate.
var DefaultBadges = []models.Badge{
	{Name: domain.BadgeFirstTask, Description: "Completed your first task", Icon: "task-1", IsActive: true},
	{Name: domain.BadgeTaskAchiever, Description: "Completed 10 tasks", Icon: "task-10", IsActive: true},
	{Name: domain.BadgeTaskMaster, Description: "Completed 50 tasks", Icon: "task-50", IsActive: true},
	{Name: domain.BadgeTaskLegend, Description: "Completed 100 tasks", Icon: "task-100", IsActive: true},
	{Name: domain.BadgeFirstReferral, Description: "Referred your first friend", Icon: "referral-1", IsActive: true},
	{Name: domain.BadgeReferralChampion, Description: "Referred 10 friends", Icon: "referral-10", IsActive: true},
	{Name: domain.BadgeVerifiedUser, Description: "Completed KYC verification", Icon: "kyc", IsActive: true},
	{Name: domain.BadgeStreakMaster, Description: "Logged in 30 days in a row", Icon: "streak-30", IsActive: true},
}

// Seed inserts default settings, level brackets and badges. Existing rows are left untouched.
func Seed(db *gorm.DB) error {
	for k, v := range domain.DefaultSettings {
		s := models.SystemSetting{Key: k, Value: v}
		if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&s).Error; err != nil {
			return err
		}
	}
	for _, l := range DefaultLevels {
		l := l
		if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&l).Error; err != nil {
			return err
		}
	}
	for _, b := range DefaultBadges {
		b := b
		if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&b).Error; err != nil {
			return err
		}
	}
	return nil
}

// SeedAdmin creates the admin account when it does not exist yet.
func SeedAdmin(db *gorm.DB, email, password string) error {
	if email == "" || password == "" {
		return nil
	}
	var existing models.User
	err := db.Where("email = ?", email).First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return db.Create(&models.User{
		Name:         "Administrator",
		Email:        email,
		PasswordHash: string(hash),
		Role:         domain.RoleAdmin,
		KYCVerified:  true,
	}).Error
}
