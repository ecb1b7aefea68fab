package database

import (
	"reviewhub/config"
	"reviewhub/internal/models"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func NewDB(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	db, err := gorm.Open(mysql.Open(cfg.DSN), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Error),
	})
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	return db, nil
}

// AutoMigrate runs Gorm auto-migration for all models.
func AutoMigrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.User{},
		&models.Referral{},
		&models.ReferralEarning{},
		&models.UserPoints{},
		&models.LevelSetting{},
		&models.PointTransaction{},
		&models.Badge{},
		&models.UserBadge{},
		&models.ReviewRequest{},
		&models.Task{},
		&models.TaskStep{},
		&models.Competition{},
		&models.CompetitionParticipant{},
		&models.DeepLink{},
		&models.DeepLinkClick{},
		&models.Payment{},
		&models.WalletTransaction{},
		&models.SystemSetting{},
		&models.Notification{},
		&models.Conversation{},
		&models.ChatMessage{},
		&models.AuditLog{},
	)
	if err != nil {
		return err
	}
	for _, stmt := range caseSensitiveColumns(db.Dialector.Name()) {
		if err := db.Exec(stmt).Error; err != nil {
			return err
		}
	}
	return nil
}

// caseSensitiveColumns returns DDL giving mixed-case code columns a binary
// collation. MySQL's default utf8mb4 collation folds case; SQLite compares bytes.
func caseSensitiveColumns(dialect string) []string {
	if dialect != "mysql" {
		return nil
	}
	return []string{
		"ALTER TABLE deep_links MODIFY short_code varchar(16) CHARACTER SET utf8mb4 COLLATE utf8mb4_bin NOT NULL",
	}
}
