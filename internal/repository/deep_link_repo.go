package repository

import (
	"context"
	"time"

	"reviewhub/internal/models"

	"gorm.io/gorm"
)

type DeepLinkRepository struct {
	db *gorm.DB
}

func NewDeepLinkRepository(db *gorm.DB) *DeepLinkRepository {
	return &DeepLinkRepository{db: db}
}

func (r *DeepLinkRepository) WithTx(tx *gorm.DB) *DeepLinkRepository {
	return &DeepLinkRepository{db: tx}
}

func (r *DeepLinkRepository) Create(ctx context.Context, l *models.DeepLink) error {
	return r.db.WithContext(ctx).Create(l).Error
}

func (r *DeepLinkRepository) CodeExists(ctx context.Context, code string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Unscoped().Model(&models.DeepLink{}).Where("short_code = ?", code).Count(&n).Error
	return n > 0, err
}

func (r *DeepLinkRepository) GetByCode(ctx context.Context, code string) (*models.DeepLink, error) {
	var l models.DeepLink
	if err := r.db.WithContext(ctx).Where("short_code = ?", code).First(&l).Error; err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *DeepLinkRepository) GetByID(ctx context.Context, id uint) (*models.DeepLink, error) {
	var l models.DeepLink
	if err := r.db.WithContext(ctx).First(&l, id).Error; err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *DeepLinkRepository) ListByUser(ctx context.Context, userID uint, limit, offset int) ([]models.DeepLink, error) {
	var list []models.DeepLink
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).
		Order("id DESC").Limit(limit).Offset(offset).Find(&list).Error
	return list, err
}

func (r *DeepLinkRepository) IncrementClicks(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Model(&models.DeepLink{}).Where("id = ?", id).
		UpdateColumn("click_count", gorm.Expr("click_count + 1")).Error
}

func (r *DeepLinkRepository) CreateClick(ctx context.Context, c *models.DeepLinkClick) error {
	return r.db.WithContext(ctx).Create(c).Error
}

type ClickTotals struct {
	TotalClicks int64
	UniqueIPs   int64
}

func (r *DeepLinkRepository) Totals(ctx context.Context, linkID uint) (ClickTotals, error) {
	var t ClickTotals
	err := r.db.WithContext(ctx).Model(&models.DeepLinkClick{}).
		Select("COUNT(*) AS total_clicks, COUNT(DISTINCT ip) AS unique_ips").
		Where("deep_link_id = ?", linkID).Scan(&t).Error
	return t, err
}

func (r *DeepLinkRepository) LastClick(ctx context.Context, linkID uint) (*models.DeepLinkClick, error) {
	var c models.DeepLinkClick
	err := r.db.WithContext(ctx).Where("deep_link_id = ?", linkID).Order("clicked_at DESC").First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ClickTimesSince returns the click timestamps from since onward; callers bucket them by day.
func (r *DeepLinkRepository) ClickTimesSince(ctx context.Context, linkID uint, since time.Time) ([]time.Time, error) {
	var clicks []models.DeepLinkClick
	err := r.db.WithContext(ctx).Select("clicked_at").
		Where("deep_link_id = ? AND clicked_at >= ?", linkID, since).
		Order("clicked_at ASC").Find(&clicks).Error
	if err != nil {
		return nil, err
	}
	out := make([]time.Time, len(clicks))
	for i, c := range clicks {
		out[i] = c.ClickedAt
	}
	return out, nil
}

type ReferrerCount struct {
	Referrer string `json:"referrer"`
	Clicks   int64  `json:"clicks"`
}

func (r *DeepLinkRepository) TopReferrers(ctx context.Context, linkID uint, limit int) ([]ReferrerCount, error) {
	var rows []ReferrerCount
	err := r.db.WithContext(ctx).Model(&models.DeepLinkClick{}).
		Select("referrer, COUNT(*) AS clicks").
		Where("deep_link_id = ? AND referrer <> ''", linkID).
		Group("referrer").Order("clicks DESC, referrer ASC").Limit(limit).
		Scan(&rows).Error
	return rows, err
}

func (r *DeepLinkRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.DeepLink{}).Count(&n).Error
	return n, err
}
