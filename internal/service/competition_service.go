package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"reviewhub/internal/domain"
	"reviewhub/internal/models"
	"reviewhub/internal/repository"

	"github.com/gosimple/slug"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

var (
	ErrCompetitionNotFound = errors.New("competition not found")
	ErrCompetitionClosed   = errors.New("competition is not open")
	ErrCompetitionFull     = errors.New("competition is full")
	ErrAlreadyJoined       = errors.New("already joined this competition")
	ErrInvalidCompetition  = errors.New("invalid competition")
)

type CompetitionService struct {
	db       *gorm.DB
	repo     *repository.CompetitionRepository
	notifier Notifier
	now      func() time.Time
}

func NewCompetitionService(db *gorm.DB, repo *repository.CompetitionRepository, notifier Notifier) *CompetitionService {
	return &CompetitionService{db: db, repo: repo, notifier: notifier, now: time.Now}
}

func (s *CompetitionService) GetActiveCompetitions(ctx context.Context) ([]models.Competition, error) {
	return s.repo.ListActive(ctx, s.now().UTC())
}

func (s *CompetitionService) JoinCompetition(ctx context.Context, competitionID, userID uint) (*models.CompetitionParticipant, error) {
	now := s.now().UTC()
	var p *models.CompetitionParticipant
	var comp *models.Competition
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		c, err := repo.GetByID(ctx, competitionID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrCompetitionNotFound
		}
		if err != nil {
			return err
		}
		comp = c
		if !c.IsOpen(now) {
			return ErrCompetitionClosed
		}
		if _, err := repo.GetParticipant(ctx, c.ID, userID); err == nil {
			return ErrAlreadyJoined
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if c.MaxParticipants > 0 {
			n, err := repo.CountParticipants(ctx, c.ID)
			if err != nil {
				return err
			}
			if n >= int64(c.MaxParticipants) {
				return ErrCompetitionFull
			}
		}
		p = &models.CompetitionParticipant{CompetitionID: c.ID, UserID: userID, JoinedAt: now}
		ok, err := repo.Join(ctx, p)
		if err != nil {
			return err
		}
		if !ok {
			return ErrAlreadyJoined
		}
		return rankParticipants(ctx, repo, c.ID)
	})
	if err != nil {
		return nil, err
	}
	notify(ctx, s.notifier, userID, domain.NotifyCompetitionJoined, "Competition joined",
		fmt.Sprintf("You joined %s", comp.Title), map[string]interface{}{"competition_id": comp.ID})
	return s.repo.GetParticipant(ctx, competitionID, userID)
}

// CompetitionLeaderboard carries both the stored rank and the row position of
// each standing. The stored rank is authoritative.
type CompetitionLeaderboard struct {
	Competition *models.Competition              `json:"competition"`
	Standings   []repository.CompetitionStanding `json:"standings"`
}

func (s *CompetitionService) GetCompetitionLeaderboard(ctx context.Context, competitionID uint, limit int) (*CompetitionLeaderboard, error) {
	c, err := s.repo.GetByID(ctx, competitionID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrCompetitionNotFound
	}
	if err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	rows, err := s.repo.Standings(ctx, c.ID, limit)
	if err != nil {
		return nil, err
	}
	for i := range rows {
		rows[i].Position = i + 1
	}
	return &CompetitionLeaderboard{Competition: c, Standings: rows}, nil
}

func (s *CompetitionService) ListUserCompetitions(ctx context.Context, userID uint) ([]models.CompetitionParticipant, error) {
	return s.repo.ListByUser(ctx, userID)
}

// RecordActivity adds delta to the user's score in every running competition
// with the given metric that the user has joined, then re-ranks those competitions.
func (s *CompetitionService) RecordActivity(ctx context.Context, userID uint, metric string, delta int64) error {
	if delta == 0 {
		return nil
	}
	ids, err := s.repo.OpenCompetitionIDs(ctx, userID, metric, s.now().UTC())
	if err != nil || len(ids) == 0 {
		return err
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.AddMetric(ctx, ids, userID, delta); err != nil {
			return err
		}
		for _, id := range ids {
			if err := rankParticipants(ctx, repo, id); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *CompetitionService) PointsAwarded(ctx context.Context, userID uint, points int64) {
	if err := s.RecordActivity(ctx, userID, domain.MetricPoints, points); err != nil {
		log.Warn().Err(err).Str("component", "competition").Uint("user_id", userID).Msg("record points activity failed")
	}
}

func (s *CompetitionService) ReferralCreated(ctx context.Context, referrerID uint) {
	if err := s.RecordActivity(ctx, referrerID, domain.MetricReferrals, 1); err != nil {
		log.Warn().Err(err).Str("component", "competition").Uint("user_id", referrerID).Msg("record referral activity failed")
	}
}

// RecomputeRanks rewrites the stored ranks of one competition.
func (s *CompetitionService) RecomputeRanks(ctx context.Context, competitionID uint) error {
	if _, err := s.repo.GetByID(ctx, competitionID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrCompetitionNotFound
		}
		return err
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return rankParticipants(ctx, s.repo.WithTx(tx), competitionID)
	})
}

// rankParticipants applies competition ranking: equal scores share a rank and
// the next score skips the shared places.
func rankParticipants(ctx context.Context, repo *repository.CompetitionRepository, competitionID uint) error {
	list, err := repo.ListParticipantsByScore(ctx, competitionID)
	if err != nil {
		return err
	}
	rank := 0
	for i, p := range list {
		if i == 0 || p.MetricValue != list[i-1].MetricValue {
			rank = i + 1
		}
		if p.Rank == rank {
			continue
		}
		if err := repo.SetRank(ctx, p.ID, rank); err != nil {
			return err
		}
	}
	return nil
}

// RecomputeActive re-ranks every running competition.
func (s *CompetitionService) RecomputeActive(ctx context.Context) error {
	list, err := s.repo.ListActive(ctx, s.now().UTC())
	if err != nil {
		return err
	}
	for _, c := range list {
		if err := s.RecomputeRanks(ctx, c.ID); err != nil {
			return err
		}
	}
	return nil
}

// EndExpired freezes final ranks and ends competitions past their end time.
func (s *CompetitionService) EndExpired(ctx context.Context) (int, error) {
	list, err := s.repo.ListExpired(ctx, s.now().UTC())
	if err != nil {
		return 0, err
	}
	for _, c := range list {
		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			repo := s.repo.WithTx(tx)
			if err := rankParticipants(ctx, repo, c.ID); err != nil {
				return err
			}
			return repo.End(ctx, c.ID)
		})
		if err != nil {
			return 0, err
		}
		log.Info().Str("component", "competition").Uint("competition_id", c.ID).Msg("competition ended")
	}
	return len(list), nil
}

type CompetitionInput struct {
	Title           string    `json:"title" binding:"required"`
	Description     string    `json:"description"`
	Metric          string    `json:"metric" binding:"required"`
	Prize           string    `json:"prize"`
	StartAt         time.Time `json:"start_at" binding:"required"`
	EndAt           time.Time `json:"end_at" binding:"required"`
	MaxParticipants int       `json:"max_participants"`
}

func (s *CompetitionService) CreateCompetition(ctx context.Context, in CompetitionInput) (*models.Competition, error) {
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidCompetition)
	}
	switch in.Metric {
	case domain.MetricPoints, domain.MetricTasks, domain.MetricReferrals:
	default:
		return nil, fmt.Errorf("%w: metric must be points, tasks or referrals", ErrInvalidCompetition)
	}
	if !in.EndAt.After(in.StartAt) {
		return nil, fmt.Errorf("%w: end_at must be after start_at", ErrInvalidCompetition)
	}
	if in.MaxParticipants < 0 {
		return nil, fmt.Errorf("%w: max_participants cannot be negative", ErrInvalidCompetition)
	}
	sl, err := s.uniqueSlug(ctx, in.Title)
	if err != nil {
		return nil, err
	}
	c := &models.Competition{
		Title:           in.Title,
		Slug:            sl,
		Description:     in.Description,
		Metric:          in.Metric,
		Prize:           in.Prize,
		StartAt:         in.StartAt.UTC(),
		EndAt:           in.EndAt.UTC(),
		MaxParticipants: in.MaxParticipants,
		Status:          domain.CompetitionActive,
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *CompetitionService) uniqueSlug(ctx context.Context, title string) (string, error) {
	base := slug.Make(title)
	if base == "" {
		base = "competition"
	}
	candidate := base
	for i := 2; ; i++ {
		exists, err := s.repo.SlugExists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, i)
	}
}
