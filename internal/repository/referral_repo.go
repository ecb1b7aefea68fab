package repository

import (
	"context"
	"time"

	"reviewhub/internal/domain"
	"reviewhub/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ReferralRepository struct {
	db *gorm.DB
}

func NewReferralRepository(db *gorm.DB) *ReferralRepository {
	return &ReferralRepository{db: db}
}

func (r *ReferralRepository) WithTx(tx *gorm.DB) *ReferralRepository {
	return &ReferralRepository{db: tx}
}

// Create inserts the row unless (referrer, referee, level) already exists. It reports whether a row was written.
func (r *ReferralRepository) Create(ctx context.Context, ref *models.Referral) (bool, error) {
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(ref)
	return res.RowsAffected > 0, res.Error
}

// ActivateForReferee flips every pending row of the referee to active.
func (r *ReferralRepository) ActivateForReferee(ctx context.Context, refereeID uint, at time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.Referral{}).
		Where("referee_id = ? AND status = ?", refereeID, domain.ReferralStatusPending).
		Updates(map[string]interface{}{"status": domain.ReferralStatusActive, "activated_at": at})
	return res.RowsAffected, res.Error
}

func (r *ReferralRepository) ListActiveByReferee(ctx context.Context, refereeID uint) ([]models.Referral, error) {
	var list []models.Referral
	err := r.db.WithContext(ctx).
		Where("referee_id = ? AND status = ?", refereeID, domain.ReferralStatusActive).
		Order("level ASC").Find(&list).Error
	return list, err
}

func (r *ReferralRepository) ListByReferee(ctx context.Context, refereeID uint) ([]models.Referral, error) {
	var list []models.Referral
	err := r.db.WithContext(ctx).Where("referee_id = ?", refereeID).Order("level ASC").Find(&list).Error
	return list, err
}

// ListByReferrer returns the referrer's downline; level 0 means every level.
func (r *ReferralRepository) ListByReferrer(ctx context.Context, referrerID uint, level, limit, offset int) ([]models.Referral, error) {
	q := r.db.WithContext(ctx).Where("referrer_id = ?", referrerID)
	if level > 0 {
		q = q.Where("level = ?", level)
	}
	var list []models.Referral
	err := q.Preload("Referee").Order("created_at DESC").Limit(limit).Offset(offset).Find(&list).Error
	return list, err
}

func (r *ReferralRepository) CountByReferrer(ctx context.Context, referrerID uint, level int) (int64, error) {
	q := r.db.WithContext(ctx).Model(&models.Referral{}).Where("referrer_id = ?", referrerID)
	if level > 0 {
		q = q.Where("level = ?", level)
	}
	var n int64
	err := q.Count(&n).Error
	return n, err
}

type LevelCount struct {
	Level  int    `json:"level"`
	Status string `json:"status"`
	Count  int64  `json:"count"`
}

func (r *ReferralRepository) CountByLevel(ctx context.Context, referrerID uint) ([]LevelCount, error) {
	var rows []LevelCount
	err := r.db.WithContext(ctx).Model(&models.Referral{}).
		Select("level, status, COUNT(*) AS count").
		Where("referrer_id = ?", referrerID).
		Group("level, status").Order("level ASC").
		Scan(&rows).Error
	return rows, err
}

func (r *ReferralRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Referral{}).Where("level = 1").Count(&n).Error
	return n, err
}

// CreateEarning inserts a pending earning unless one already exists for the same
// beneficiary, referee, task and level. It reports whether a row was written.
func (r *ReferralRepository) CreateEarning(ctx context.Context, e *models.ReferralEarning) (bool, error) {
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(e)
	return res.RowsAffected > 0, res.Error
}

func (r *ReferralRepository) EarningExists(ctx context.Context, userID, fromUserID, taskID uint, level int) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.ReferralEarning{}).
		Where("user_id = ? AND from_user_id = ? AND task_id = ? AND level = ?", userID, fromUserID, taskID, level).
		Count(&n).Error
	return n > 0, err
}

func (r *ReferralRepository) MarkEarningCredited(ctx context.Context, id uint, at time.Time) error {
	return r.db.WithContext(ctx).Model(&models.ReferralEarning{}).
		Where("id = ? AND status = ?", id, domain.EarningStatusPending).
		Updates(map[string]interface{}{"status": domain.EarningStatusCredited, "credited_at": at}).Error
}

func (r *ReferralRepository) ListEarnings(ctx context.Context, userID uint, limit, offset int) ([]models.ReferralEarning, error) {
	var list []models.ReferralEarning
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).
		Order("id DESC").Limit(limit).Offset(offset).Find(&list).Error
	return list, err
}

func (r *ReferralRepository) ListEarningsForTask(ctx context.Context, fromUserID, taskID uint) ([]models.ReferralEarning, error) {
	var list []models.ReferralEarning
	err := r.db.WithContext(ctx).Where("from_user_id = ? AND task_id = ?", fromUserID, taskID).
		Order("level ASC").Find(&list).Error
	return list, err
}

func (r *ReferralRepository) SumCredited(ctx context.Context, userID uint) (decimal.Decimal, error) {
	var row struct{ Total decimal.Decimal }
	err := r.db.WithContext(ctx).Model(&models.ReferralEarning{}).
		Select("COALESCE(SUM(amount), 0) AS total").
		Where("user_id = ? AND status = ?", userID, domain.EarningStatusCredited).
		Scan(&row).Error
	return row.Total, err
}
