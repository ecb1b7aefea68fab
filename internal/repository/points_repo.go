package repository

import (
	"context"
	"time"

	"reviewhub/internal/domain"
	"reviewhub/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PointsRepository struct {
	db *gorm.DB
}

func NewPointsRepository(db *gorm.DB) *PointsRepository {
	return &PointsRepository{db: db}
}

func (r *PointsRepository) WithTx(tx *gorm.DB) *PointsRepository {
	return &PointsRepository{db: tx}
}

func (r *PointsRepository) Get(ctx context.Context, userID uint) (*models.UserPoints, error) {
	var up models.UserPoints
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&up).Error; err != nil {
		return nil, err
	}
	return &up, nil
}

// Ensure creates the zero-baseline row if the user has none.
func (r *PointsRepository) Ensure(ctx context.Context, userID uint) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.UserPoints{UserID: userID, Level: domain.DefaultLevel}).Error
}

// Add increments points and total_earned by delta.
func (r *PointsRepository) Add(ctx context.Context, userID uint, delta int64) error {
	return r.db.WithContext(ctx).Model(&models.UserPoints{}).Where("user_id = ?", userID).
		UpdateColumns(map[string]interface{}{
			"points":       gorm.Expr("points + ?", delta),
			"total_earned": gorm.Expr("total_earned + ?", delta),
		}).Error
}

func (r *PointsRepository) SetLevel(ctx context.Context, userID uint, level string) error {
	return r.db.WithContext(ctx).Model(&models.UserPoints{}).Where("user_id = ?", userID).
		UpdateColumn("level", level).Error
}

// TouchLogin records today's login only if last_login_date still equals prev,
// so two concurrent first logins of the day cannot both succeed.
func (r *PointsRepository) TouchLogin(ctx context.Context, userID uint, prev *string, today string, streak int) (bool, error) {
	q := r.db.WithContext(ctx).Model(&models.UserPoints{}).Where("user_id = ?", userID)
	if prev == nil {
		q = q.Where("last_login_date IS NULL")
	} else {
		q = q.Where("last_login_date = ?", *prev)
	}
	res := q.UpdateColumns(map[string]interface{}{"last_login_date": today, "streak_days": streak})
	return res.RowsAffected == 1, res.Error
}

func (r *PointsRepository) CreateTransaction(ctx context.Context, t *models.PointTransaction) error {
	return r.db.WithContext(ctx).Create(t).Error
}

func (r *PointsRepository) ListTransactions(ctx context.Context, userID uint, limit, offset int) ([]models.PointTransaction, error) {
	var list []models.PointTransaction
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).
		Order("id DESC").Limit(limit).Offset(offset).Find(&list).Error
	return list, err
}

// LevelFor returns the bracket containing points. On overlapping brackets the
// highest level_order wins.
func (r *PointsRepository) LevelFor(ctx context.Context, points int64) (*models.LevelSetting, error) {
	var l models.LevelSetting
	err := r.db.WithContext(ctx).
		Where("min_points <= ? AND (max_points IS NULL OR max_points >= ?)", points, points).
		Order("level_order DESC").First(&l).Error
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *PointsRepository) CountLevels(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.LevelSetting{}).Count(&n).Error
	return n, err
}

func (r *PointsRepository) ListLevels(ctx context.Context) ([]models.LevelSetting, error) {
	var list []models.LevelSetting
	err := r.db.WithContext(ctx).Order("level_order ASC").Find(&list).Error
	return list, err
}

// CountAbove counts users holding strictly more than points.
func (r *PointsRepository) CountAbove(ctx context.Context, points int64) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.UserPoints{}).Where("points > ?", points).Count(&n).Error
	return n, err
}

type LeaderboardRow struct {
	UserID       uint   `json:"user_id"`
	Name         string `json:"name"`
	AvatarURL    string `json:"avatar_url"`
	Points       int64  `json:"points"`
	Level        string `json:"level"`
	PeriodPoints int64  `json:"period_points"`
	Rank         int    `json:"rank"`
}

// Leaderboard orders by all-time points.
func (r *PointsRepository) Leaderboard(ctx context.Context, limit int) ([]LeaderboardRow, error) {
	var rows []LeaderboardRow
	err := r.db.WithContext(ctx).Table("user_points AS up").
		Select("up.user_id, u.name, u.avatar_url, up.points, up.level").
		Joins("JOIN users u ON u.id = up.user_id AND u.deleted_at IS NULL").
		Order("up.points DESC, up.user_id ASC").
		Limit(limit).
		Scan(&rows).Error
	return rows, err
}

// PointsSince sums point transactions per user from since onward.
func (r *PointsRepository) PointsSince(ctx context.Context, userIDs []uint, since time.Time) (map[uint]int64, error) {
	out := make(map[uint]int64, len(userIDs))
	if len(userIDs) == 0 {
		return out, nil
	}
	var rows []struct {
		UserID uint
		Total  int64
	}
	err := r.db.WithContext(ctx).Model(&models.PointTransaction{}).
		Select("user_id, SUM(points) AS total").
		Where("user_id IN ? AND created_at >= ?", userIDs, since).
		Group("user_id").Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.UserID] = row.Total
	}
	return out, nil
}
