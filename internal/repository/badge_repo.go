package repository

import (
	"context"
	"time"

	"reviewhub/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type BadgeRepository struct {
	db *gorm.DB
}

func NewBadgeRepository(db *gorm.DB) *BadgeRepository {
	return &BadgeRepository{db: db}
}

func (r *BadgeRepository) WithTx(tx *gorm.DB) *BadgeRepository {
	return &BadgeRepository{db: tx}
}

func (r *BadgeRepository) GetByName(ctx context.Context, name string) (*models.Badge, error) {
	var b models.Badge
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&b).Error; err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *BadgeRepository) Has(ctx context.Context, userID, badgeID uint) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.UserBadge{}).
		Where("user_id = ? AND badge_id = ?", userID, badgeID).Count(&n).Error
	return n > 0, err
}

// Award inserts the user badge unless it already exists. It reports whether a row was written.
func (r *BadgeRepository) Award(ctx context.Context, userID, badgeID uint, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.UserBadge{UserID: userID, BadgeID: badgeID, EarnedAt: at})
	return res.RowsAffected > 0, res.Error
}

func (r *BadgeRepository) ListForUser(ctx context.Context, userID uint) ([]models.UserBadge, error) {
	var list []models.UserBadge
	err := r.db.WithContext(ctx).Preload("Badge").Where("user_id = ?", userID).
		Order("earned_at ASC").Find(&list).Error
	return list, err
}

func (r *BadgeRepository) ListActive(ctx context.Context) ([]models.Badge, error) {
	var list []models.Badge
	err := r.db.WithContext(ctx).Where("is_active = ?", true).Order("id ASC").Find(&list).Error
	return list, err
}

func (r *BadgeRepository) SetActive(ctx context.Context, name string, active bool) error {
	return r.db.WithContext(ctx).Model(&models.Badge{}).Where("name = ?", name).
		Update("is_active", active).Error
}
