package repository

import (
	"context"
	"time"

	"reviewhub/internal/domain"
	"reviewhub/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CompetitionRepository struct {
	db *gorm.DB
}

func NewCompetitionRepository(db *gorm.DB) *CompetitionRepository {
	return &CompetitionRepository{db: db}
}

func (r *CompetitionRepository) WithTx(tx *gorm.DB) *CompetitionRepository {
	return &CompetitionRepository{db: tx}
}

func (r *CompetitionRepository) Create(ctx context.Context, c *models.Competition) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *CompetitionRepository) GetByID(ctx context.Context, id uint) (*models.Competition, error) {
	var c models.Competition
	if err := r.db.WithContext(ctx).First(&c, id).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *CompetitionRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Unscoped().Model(&models.Competition{}).Where("slug = ?", slug).Count(&n).Error
	return n > 0, err
}

// ListActive returns competitions running at now, ending soonest first.
func (r *CompetitionRepository) ListActive(ctx context.Context, now time.Time) ([]models.Competition, error) {
	var list []models.Competition
	err := r.db.WithContext(ctx).
		Where("status = ? AND start_at <= ? AND end_at > ?", domain.CompetitionActive, now, now).
		Order("end_at ASC").Find(&list).Error
	return list, err
}

// ListExpired returns active competitions whose end has passed.
func (r *CompetitionRepository) ListExpired(ctx context.Context, now time.Time) ([]models.Competition, error) {
	var list []models.Competition
	err := r.db.WithContext(ctx).
		Where("status = ? AND end_at <= ?", domain.CompetitionActive, now).Find(&list).Error
	return list, err
}

func (r *CompetitionRepository) End(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Model(&models.Competition{}).Where("id = ?", id).
		Update("status", domain.CompetitionEnded).Error
}

func (r *CompetitionRepository) CountParticipants(ctx context.Context, competitionID uint) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.CompetitionParticipant{}).
		Where("competition_id = ?", competitionID).Count(&n).Error
	return n, err
}

// Join inserts the participant unless already present. It reports whether a row was written.
func (r *CompetitionRepository) Join(ctx context.Context, p *models.CompetitionParticipant) (bool, error) {
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(p)
	return res.RowsAffected > 0, res.Error
}

func (r *CompetitionRepository) GetParticipant(ctx context.Context, competitionID, userID uint) (*models.CompetitionParticipant, error) {
	var p models.CompetitionParticipant
	err := r.db.WithContext(ctx).Where("competition_id = ? AND user_id = ?", competitionID, userID).First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

type CompetitionStanding struct {
	UserID      uint      `json:"user_id"`
	Name        string    `json:"name"`
	AvatarURL   string    `json:"avatar_url"`
	MetricValue int64     `json:"metric_value"`
	Rank        int       `json:"rank"`
	Position    int       `json:"position" gorm:"-"`
	JoinedAt    time.Time `json:"joined_at"`
}

// Standings orders participants by score, earliest joiner first on ties.
func (r *CompetitionRepository) Standings(ctx context.Context, competitionID uint, limit int) ([]CompetitionStanding, error) {
	var rows []CompetitionStanding
	q := r.db.WithContext(ctx).Table("competition_participants AS cp").
		Select("cp.user_id, u.name, u.avatar_url, cp.metric_value, cp.`rank`, cp.joined_at").
		Joins("JOIN users u ON u.id = cp.user_id").
		Where("cp.competition_id = ?", competitionID).
		Order("cp.metric_value DESC, cp.joined_at ASC, cp.user_id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Scan(&rows).Error
	return rows, err
}

func (r *CompetitionRepository) ListParticipantsByScore(ctx context.Context, competitionID uint) ([]models.CompetitionParticipant, error) {
	var list []models.CompetitionParticipant
	err := r.db.WithContext(ctx).Where("competition_id = ?", competitionID).
		Order("metric_value DESC, joined_at ASC, user_id ASC").Find(&list).Error
	return list, err
}

func (r *CompetitionRepository) SetRank(ctx context.Context, participantID uint, rank int) error {
	return r.db.WithContext(ctx).Model(&models.CompetitionParticipant{}).Where("id = ?", participantID).
		UpdateColumn("rank", rank).Error
}

func (r *CompetitionRepository) ListByUser(ctx context.Context, userID uint) ([]models.CompetitionParticipant, error) {
	var list []models.CompetitionParticipant
	err := r.db.WithContext(ctx).Preload("Competition").Where("user_id = ?", userID).
		Order("joined_at DESC").Find(&list).Error
	return list, err
}

// OpenCompetitionIDs lists the running competitions with the given metric that userID has joined.
func (r *CompetitionRepository) OpenCompetitionIDs(ctx context.Context, userID uint, metric string, now time.Time) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).Table("competition_participants AS cp").
		Joins("JOIN competitions c ON c.id = cp.competition_id AND c.deleted_at IS NULL").
		Where("cp.user_id = ? AND c.metric = ? AND c.status = ? AND c.start_at <= ? AND c.end_at > ?",
			userID, metric, domain.CompetitionActive, now, now).
		Pluck("cp.competition_id", &ids).Error
	return ids, err
}

func (r *CompetitionRepository) AddMetric(ctx context.Context, competitionIDs []uint, userID uint, delta int64) error {
	if len(competitionIDs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Model(&models.CompetitionParticipant{}).
		Where("competition_id IN ? AND user_id = ?", competitionIDs, userID).
		UpdateColumn("metric_value", gorm.Expr("metric_value + ?", delta)).Error
}
