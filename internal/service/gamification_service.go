package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"reviewhub/internal/domain"
	"reviewhub/internal/models"
	"reviewhub/internal/repository"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

var (
	ErrAwardFailed       = errors.New("failed to award points")
	ErrInvalidPoints     = errors.New("points must be positive")
	ErrInvalidPeriod     = errors.New("period must be daily, weekly, monthly or all")
	ErrProfileIncomplete = errors.New("profile needs name, email, mobile and avatar")
	ErrUserNotFound      = errors.New("user not found")
)

const dateLayout = "2006-01-02"

// PointsListener is told about every committed point award, bonuses included.
type PointsListener interface {
	PointsAwarded(ctx context.Context, userID uint, points int64)
}

// GamificationService owns points, levels, streaks and badges.
type GamificationService struct {
	db        *gorm.DB
	users     *repository.UserRepository
	points    *repository.PointsRepository
	badges    *repository.BadgeRepository
	tasks     *repository.TaskRepository
	referrals *repository.ReferralRepository
	settings  *SettingsService
	notifier  Notifier
	listeners []PointsListener
	loc       *time.Location
	now       func() time.Time
}

func NewGamificationService(
	db *gorm.DB,
	users *repository.UserRepository,
	points *repository.PointsRepository,
	badges *repository.BadgeRepository,
	tasks *repository.TaskRepository,
	referrals *repository.ReferralRepository,
	settings *SettingsService,
	notifier Notifier,
	loc *time.Location,
) *GamificationService {
	if loc == nil {
		loc = time.UTC
	}
	return &GamificationService{
		db:        db,
		users:     users,
		points:    points,
		badges:    badges,
		tasks:     tasks,
		referrals: referrals,
		settings:  settings,
		notifier:  notifier,
		loc:       loc,
		now:       time.Now,
	}
}

// AddListener registers l for committed point awards.
func (s *GamificationService) AddListener(l PointsListener) {
	s.listeners = append(s.listeners, l)
}

// award collects what a committed award has to announce.
type award struct {
	userID      uint
	points      int64
	description string
	levels      []models.LevelSetting
	badges      []models.Badge
}

func (s *GamificationService) GetUserPoints(ctx context.Context, userID uint) (*models.UserPoints, error) {
	up, err := s.points.Get(ctx, userID)
	if err == nil {
		return up, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if err := s.points.Ensure(ctx, userID); err != nil {
		return nil, err
	}
	return s.points.Get(ctx, userID)
}

// AwardPoints credits points, recomputes the level and re-evaluates badges in
// one transaction. Any failure rolls the whole award back.
func (s *GamificationService) AwardPoints(ctx context.Context, userID uint, points int64, pointType, description string, ref domain.PointRef) (*models.UserPoints, error) {
	if points <= 0 {
		return nil, ErrInvalidPoints
	}
	var a *award
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		a, err = s.awardTx(ctx, tx, userID, points, pointType, description, ref)
		return err
	})
	if err != nil {
		log.Error().Err(err).Str("component", "gamification").Uint("user_id", userID).Str("type", pointType).Msg("award points failed")
		return nil, fmt.Errorf("%w: %w", ErrAwardFailed, err)
	}
	s.announce(ctx, a)
	return s.points.Get(ctx, userID)
}

func (s *GamificationService) awardTx(ctx context.Context, tx *gorm.DB, userID uint, points int64, pointType, description string, ref domain.PointRef) (*award, error) {
	pr := s.points.WithTx(tx)
	if err := pr.Ensure(ctx, userID); err != nil {
		return nil, err
	}
	if err := s.credit(ctx, pr, userID, points, pointType, description, ref); err != nil {
		return nil, err
	}
	a := &award{userID: userID, points: points, description: description}

	levels, bonus, err := s.updateLevel(ctx, pr, userID)
	if err != nil {
		return nil, err
	}
	a.levels = levels
	a.points += bonus

	badges, err := s.checkBadges(ctx, tx, userID)
	if err != nil {
		return nil, err
	}
	a.badges = badges
	return a, nil
}

func (s *GamificationService) credit(ctx context.Context, pr *repository.PointsRepository, userID uint, points int64, pointType, description string, ref domain.PointRef) error {
	refType, refID := ref.Columns()
	if err := pr.CreateTransaction(ctx, &models.PointTransaction{
		UserID:        userID,
		Points:        points,
		Type:          pointType,
		Description:   description,
		ReferenceType: refType,
		ReferenceID:   refID,
		CreatedAt:     s.now().UTC(),
	}); err != nil {
		return err
	}
	return pr.Add(ctx, userID, points)
}

// updateLevel moves the stored level to the bracket containing the current
// points and pays each reached level's bonus. A bonus may cross another
// bracket; the loop is bounded by the number of configured levels.
func (s *GamificationService) updateLevel(ctx context.Context, pr *repository.PointsRepository, userID uint) ([]models.LevelSetting, int64, error) {
	n, err := pr.CountLevels(ctx)
	if err != nil {
		return nil, 0, err
	}
	var reached []models.LevelSetting
	var bonus int64
	for i := int64(0); i < n; i++ {
		up, err := pr.Get(ctx, userID)
		if err != nil {
			return nil, 0, err
		}
		lvl, err := pr.LevelFor(ctx, up.Points)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			break
		}
		if err != nil {
			return nil, 0, err
		}
		if lvl.LevelName == up.Level {
			break
		}
		if err := pr.SetLevel(ctx, userID, lvl.LevelName); err != nil {
			return nil, 0, err
		}
		reached = append(reached, *lvl)
		if lvl.BonusPoints <= 0 {
			break
		}
		desc := fmt.Sprintf("Level up bonus: %s", lvl.LevelName)
		if err := s.credit(ctx, pr, userID, lvl.BonusPoints, domain.PointsLevelUp, desc, domain.LevelRef(lvl.ID)); err != nil {
			return nil, 0, err
		}
		bonus += lvl.BonusPoints
	}
	return reached, bonus, nil
}

func (s *GamificationService) announce(ctx context.Context, a *award) {
	if a == nil {
		return
	}
	notifyPoints(ctx, s.notifier, a.userID, a.points, a.description)
	for _, l := range a.levels {
		notify(ctx, s.notifier, a.userID, domain.NotifyLevelUp, "Level up",
			fmt.Sprintf("You reached %s", l.LevelName),
			map[string]interface{}{"level": l.LevelName, "bonus_points": l.BonusPoints})
	}
	s.announceBadges(ctx, a.userID, a.badges)
	for _, l := range s.listeners {
		l.PointsAwarded(ctx, a.userID, a.points)
	}
}

func (s *GamificationService) announceBadges(ctx context.Context, userID uint, badges []models.Badge) {
	for _, b := range badges {
		notify(ctx, s.notifier, userID, domain.NotifyBadgeEarned, "Badge earned",
			fmt.Sprintf("You earned the %s badge", b.Name),
			map[string]interface{}{"badge": b.Name, "icon": b.Icon})
	}
}

// UpdateLoginStreak records today's login and pays the daily bonus. It returns
// the points awarded, zero when today was already counted.
func (s *GamificationService) UpdateLoginStreak(ctx context.Context, userID uint) (int64, error) {
	up, err := s.GetUserPoints(ctx, userID)
	if err != nil {
		return 0, err
	}
	today := s.now().In(s.loc).Format(dateLayout)
	if up.LastLoginDate != nil && *up.LastLoginDate == today {
		return 0, nil
	}
	streak := 1
	if up.LastLoginDate != nil {
		last, err := time.ParseInLocation(dateLayout, *up.LastLoginDate, s.loc)
		if err == nil && last.AddDate(0, 0, 1).Format(dateLayout) == today {
			streak = up.StreakDays + 1
		}
	}
	points := StreakBonus(streak)

	var a *award
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ok, err := s.points.WithTx(tx).TouchLogin(ctx, userID, up.LastLoginDate, today, streak)
		if err != nil {
			return err
		}
		if !ok {
			// Another request already counted today.
			points = 0
			return nil
		}
		desc := fmt.Sprintf("Daily login (day %d)", streak)
		a, err = s.awardTx(ctx, tx, userID, points, domain.PointsDailyLogin, desc, domain.LoginRef(uint(streak)))
		if err != nil {
			return err
		}
		if streak >= domain.StreakMasterThreshold {
			b, ok, err := s.awardBadge(ctx, tx, userID, domain.BadgeStreakMaster)
			if err != nil {
				return err
			}
			if ok {
				a.badges = append(a.badges, *b)
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrAwardFailed, err)
	}
	s.announce(ctx, a)
	return points, nil
}

// StreakBonus is 5 points plus 5 per full week of streak, the weekly part capped at 20.
func StreakBonus(streak int) int64 {
	extra := (streak / 7) * 5
	if extra > 20 {
		extra = 20
	}
	return int64(5 + extra)
}

// CheckBadgeAchievements awards every threshold badge the user now qualifies for.
func (s *GamificationService) CheckBadgeAchievements(ctx context.Context, userID uint) ([]models.Badge, error) {
	badges, err := s.checkBadges(ctx, s.db, userID)
	if err != nil {
		return nil, err
	}
	s.announceBadges(ctx, userID, badges)
	return badges, nil
}

var taskBadges = []struct {
	min  int64
	name string
}{
	{1, domain.BadgeFirstTask},
	{10, domain.BadgeTaskAchiever},
	{50, domain.BadgeTaskMaster},
	{100, domain.BadgeTaskLegend},
}

var referralBadges = []struct {
	min  int64
	name string
}{
	{1, domain.BadgeFirstReferral},
	{10, domain.BadgeReferralChampion},
}

func (s *GamificationService) checkBadges(ctx context.Context, db *gorm.DB, userID uint) ([]models.Badge, error) {
	completed, err := s.tasks.WithTx(db).CountByStatus(ctx, userID, domain.TaskStatusCompleted)
	if err != nil {
		return nil, err
	}
	referred, err := s.referrals.WithTx(db).CountByReferrer(ctx, userID, 1)
	if err != nil {
		return nil, err
	}
	u, err := s.users.WithTx(db).GetByID(ctx, userID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	var names []string
	for _, tb := range taskBadges {
		if completed >= tb.min {
			names = append(names, tb.name)
		}
	}
	for _, rb := range referralBadges {
		if referred >= rb.min {
			names = append(names, rb.name)
		}
	}
	if u != nil && u.KYCVerified {
		names = append(names, domain.BadgeVerifiedUser)
	}

	var earned []models.Badge
	for _, name := range names {
		b, ok, err := s.awardBadge(ctx, db, userID, name)
		if err != nil {
			return nil, err
		}
		if ok {
			earned = append(earned, *b)
		}
	}
	return earned, nil
}

// AwardBadge grants a badge once. Unknown or inactive names are ignored.
func (s *GamificationService) AwardBadge(ctx context.Context, userID uint, name string) (bool, error) {
	b, ok, err := s.awardBadge(ctx, s.db, userID, name)
	if err != nil || !ok {
		return false, err
	}
	s.announceBadges(ctx, userID, []models.Badge{*b})
	return true, nil
}

func (s *GamificationService) awardBadge(ctx context.Context, db *gorm.DB, userID uint, name string) (*models.Badge, bool, error) {
	br := s.badges.WithTx(db)
	b, err := br.GetByName(ctx, name)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if !b.IsActive {
		return nil, false, nil
	}
	ok, err := br.Award(ctx, userID, b.ID, s.now().UTC())
	if err != nil {
		return nil, false, err
	}
	return b, ok, nil
}

// GetLeaderboard ranks by all-time points. The period only selects what
// period_points shows; equal points share a rank.
func (s *GamificationService) GetLeaderboard(ctx context.Context, period string, limit int) ([]repository.LeaderboardRow, error) {
	since, err := s.periodStart(period)
	if err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	rows, err := s.points.Leaderboard(ctx, limit)
	if err != nil {
		return nil, err
	}
	for i := range rows {
		if i > 0 && rows[i].Points == rows[i-1].Points {
			rows[i].Rank = rows[i-1].Rank
		} else {
			rows[i].Rank = i + 1
		}
		rows[i].PeriodPoints = rows[i].Points
	}
	if since.IsZero() || len(rows) == 0 {
		return rows, nil
	}
	ids := make([]uint, len(rows))
	for i, r := range rows {
		ids[i] = r.UserID
	}
	byUser, err := s.points.PointsSince(ctx, ids, since.UTC())
	if err != nil {
		return nil, err
	}
	for i := range rows {
		rows[i].PeriodPoints = byUser[rows[i].UserID]
	}
	return rows, nil
}

func (s *GamificationService) periodStart(period string) (time.Time, error) {
	now := s.now().In(s.loc)
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.loc)
	switch period {
	case "", "all":
		return time.Time{}, nil
	case "daily":
		return day, nil
	case "weekly":
		offset := (int(day.Weekday()) + 6) % 7
		return day.AddDate(0, 0, -offset), nil
	case "monthly":
		return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, s.loc), nil
	}
	return time.Time{}, ErrInvalidPeriod
}

type UserRank struct {
	Rank   int64  `json:"rank"`
	Points int64  `json:"points"`
	Level  string `json:"level"`
}

// GetUserRank is 1 plus the number of users with strictly more points.
func (s *GamificationService) GetUserRank(ctx context.Context, userID uint) (*UserRank, error) {
	up, err := s.GetUserPoints(ctx, userID)
	if err != nil {
		return nil, err
	}
	above, err := s.points.CountAbove(ctx, up.Points)
	if err != nil {
		return nil, err
	}
	return &UserRank{Rank: above + 1, Points: up.Points, Level: up.Level}, nil
}

// CompleteProfile pays the profile bonus the first time the profile is full.
// It reports whether this call paid it.
func (s *GamificationService) CompleteProfile(ctx context.Context, userID uint) (bool, error) {
	u, err := s.users.GetByID(ctx, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, ErrUserNotFound
	}
	if err != nil {
		return false, err
	}
	if u.ProfileCompletedAt != nil {
		return false, nil
	}
	if !u.ProfileComplete() {
		return false, ErrProfileIncomplete
	}
	points := int64(s.settings.GetInt(ctx, domain.SettingPointsProfileCompletion, 25))

	var a *award
	paid := false
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ok, err := s.users.WithTx(tx).MarkProfileCompleted(ctx, userID, s.now().UTC())
		if err != nil || !ok || points <= 0 {
			return err
		}
		a, err = s.awardTx(ctx, tx, userID, points, domain.PointsProfileCompletion, "Profile completed", domain.ProfileRef(userID))
		paid = err == nil
		return err
	})
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrAwardFailed, err)
	}
	s.announce(ctx, a)
	return paid, nil
}

func (s *GamificationService) ListPointHistory(ctx context.Context, userID uint, limit, offset int) ([]models.PointTransaction, error) {
	return s.points.ListTransactions(ctx, userID, limit, offset)
}

func (s *GamificationService) ListUserBadges(ctx context.Context, userID uint) ([]models.UserBadge, error) {
	return s.badges.ListForUser(ctx, userID)
}

func (s *GamificationService) ListBadges(ctx context.Context) ([]models.Badge, error) {
	return s.badges.ListActive(ctx)
}

func (s *GamificationService) ListLevels(ctx context.Context) ([]models.LevelSetting, error) {
	return s.points.ListLevels(ctx)
}
