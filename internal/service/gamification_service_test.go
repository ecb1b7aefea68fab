package service

import (
	"sync"
	"testing"
	"time"

	"reviewhub/internal/domain"
	"reviewhub/internal/models"
	"reviewhub/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetUserPointsCreatesBaseline(t *testing.T) {
	e := newEnv(t)
	u := testutil.CreateUser(t, e.db, "alice")

	up, err := e.gamification.GetUserPoints(e.ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), up.Points)
	assert.Equal(t, domain.DefaultLevel, up.Level)
	assert.Nil(t, up.LastLoginDate)

	again, err := e.gamification.GetUserPoints(e.ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, up.ID, again.ID)
}

func TestAwardPointsRejectsNonPositive(t *testing.T) {
	e := newEnv(t)
	u := testutil.CreateUser(t, e.db, "alice")

	_, err := e.gamification.AwardPoints(e.ctx, u.ID, 0, domain.PointsAdminAdjustment, "zero", domain.NoRef())
	assert.ErrorIs(t, err, ErrInvalidPoints)
}

func TestAwardPointsLevelUpCascade(t *testing.T) {
	e := newEnv(t)
	u := testutil.CreateUser(t, e.db, "alice")

	// 1950 lands in Silver; its 50 bonus reaches 2000 which is Gold and pays 100 more.
	up, err := e.gamification.AwardPoints(e.ctx, u.ID, 1950, domain.PointsAdminAdjustment, "grant", domain.NoRef())
	require.NoError(t, err)
	assert.Equal(t, int64(2100), up.Points)
	assert.Equal(t, int64(2100), up.TotalEarned)
	assert.Equal(t, "Gold", up.Level)
	assert.Equal(t, 2, e.notifier.count(u.ID, domain.NotifyLevelUp))

	var bonuses []models.PointTransaction
	require.NoError(t, e.db.Where("user_id = ? AND type = ?", u.ID, domain.PointsLevelUp).Order("id").Find(&bonuses).Error)
	require.Len(t, bonuses, 2)
	assert.Equal(t, int64(50), bonuses[0].Points)
	assert.Equal(t, int64(100), bonuses[1].Points)
	require.NotNil(t, bonuses[0].ReferenceType)
	assert.Equal(t, "level", *bonuses[0].ReferenceType)
}

func TestLevelCascadeIsBounded(t *testing.T) {
	e := newEnv(t)
	u := testutil.CreateUser(t, e.db, "alice")
	require.NoError(t, e.db.Where("1 = 1").Delete(&models.LevelSetting{}).Error)
	ladder := []models.LevelSetting{
		{LevelName: "L1", MinPoints: 0, MaxPoints: int64Ptr(9), LevelOrder: 1, BonusPoints: 10},
		{LevelName: "L2", MinPoints: 10, MaxPoints: int64Ptr(19), LevelOrder: 2, BonusPoints: 10},
		{LevelName: "L3", MinPoints: 20, MaxPoints: nil, LevelOrder: 3, BonusPoints: 10},
	}
	require.NoError(t, e.db.Create(&ladder).Error)
	require.NoError(t, e.db.Create(&models.UserPoints{UserID: u.ID, Level: "none"}).Error)

	up, err := e.gamification.AwardPoints(e.ctx, u.ID, 1, domain.PointsAdminAdjustment, "seed", domain.NoRef())
	require.NoError(t, err)
	// Each bonus crosses into the next bracket; the walk stops after three levels.
	assert.Equal(t, int64(31), up.Points)
	assert.Equal(t, "L3", up.Level)
}

func int64Ptr(v int64) *int64 { return &v }

func TestStreakBonus(t *testing.T) {
	cases := map[int]int64{1: 5, 6: 5, 7: 10, 13: 10, 14: 15, 21: 20, 28: 25, 35: 25, 365: 25}
	for streak, want := range cases {
		assert.Equal(t, want, StreakBonus(streak), "streak %d", streak)
	}
}

func TestUpdateLoginStreak(t *testing.T) {
	e := newEnv(t)
	u := testutil.CreateUser(t, e.db, "alice")

	pts, err := e.gamification.UpdateLoginStreak(e.ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(5), pts)

	pts, err = e.gamification.UpdateLoginStreak(e.ctx, u.ID)
	require.NoError(t, err)
	assert.Zero(t, pts, "second login on the same day")

	e.gamification.now = testutil.FixedClock(testNow.AddDate(0, 0, 1))
	_, err = e.gamification.UpdateLoginStreak(e.ctx, u.ID)
	require.NoError(t, err)
	up, err := e.gamification.GetUserPoints(e.ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, up.StreakDays)
	assert.Equal(t, int64(10), up.Points)

	// A missed day resets the streak.
	e.gamification.now = testutil.FixedClock(testNow.AddDate(0, 0, 3))
	_, err = e.gamification.UpdateLoginStreak(e.ctx, u.ID)
	require.NoError(t, err)
	up, err = e.gamification.GetUserPoints(e.ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, up.StreakDays)
}

func TestUpdateLoginStreakWeeklyBonusAndStreakMaster(t *testing.T) {
	e := newEnv(t)
	u := testutil.CreateUser(t, e.db, "alice")
	yesterday := testNow.AddDate(0, 0, -1).Format(dateLayout)
	require.NoError(t, e.db.Create(&models.UserPoints{
		UserID: u.ID, Level: domain.DefaultLevel, StreakDays: 29, LastLoginDate: &yesterday,
	}).Error)

	pts, err := e.gamification.UpdateLoginStreak(e.ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(25), pts)

	has, err := e.gamification.badges.Has(e.ctx, u.ID, badgeID(t, e, domain.BadgeStreakMaster))
	require.NoError(t, err)
	assert.True(t, has)
}

func TestUpdateLoginStreakAwardsOncePerDay(t *testing.T) {
	e := newEnv(t)
	u := testutil.CreateUser(t, e.db, "alice")
	_, err := e.gamification.GetUserPoints(e.ctx, u.ID)
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([]int64, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			pts, err := e.gamification.UpdateLoginStreak(e.ctx, u.ID)
			assert.NoError(t, err)
			results[i] = pts
		}(i)
	}
	wg.Wait()

	var total int64
	for _, r := range results {
		total += r
	}
	assert.Equal(t, int64(5), total)

	var n int64
	require.NoError(t, e.db.Model(&models.PointTransaction{}).
		Where("user_id = ? AND type = ?", u.ID, domain.PointsDailyLogin).Count(&n).Error)
	assert.Equal(t, int64(1), n)
}

func TestLeaderboardTiesAndPeriods(t *testing.T) {
	e := newEnv(t)
	a := testutil.CreateUser(t, e.db, "alice")
	b := testutil.CreateUser(t, e.db, "bob")
	c := testutil.CreateUser(t, e.db, "carol")

	_, err := e.gamification.AwardPoints(e.ctx, a.ID, 100, domain.PointsAdminAdjustment, "x", domain.NoRef())
	require.NoError(t, err)
	e.gamification.now = testutil.FixedClock(testNow.AddDate(0, -1, 0))
	_, err = e.gamification.AwardPoints(e.ctx, b.ID, 100, domain.PointsAdminAdjustment, "x", domain.NoRef())
	require.NoError(t, err)
	e.gamification.now = testutil.FixedClock(testNow)
	_, err = e.gamification.AwardPoints(e.ctx, c.ID, 50, domain.PointsAdminAdjustment, "x", domain.NoRef())
	require.NoError(t, err)

	rows, err := e.gamification.GetLeaderboard(e.ctx, "all", 0)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []int{1, 1, 3}, []int{rows[0].Rank, rows[1].Rank, rows[2].Rank})
	assert.Equal(t, int64(100), rows[1].PeriodPoints)

	weekly, err := e.gamification.GetLeaderboard(e.ctx, "weekly", 10)
	require.NoError(t, err)
	byUser := map[uint]int64{}
	for _, r := range weekly {
		byUser[r.UserID] = r.PeriodPoints
	}
	assert.Equal(t, int64(100), byUser[a.ID])
	assert.Equal(t, int64(0), byUser[b.ID])
	assert.Equal(t, int64(50), byUser[c.ID])

	_, err = e.gamification.GetLeaderboard(e.ctx, "yearly", 10)
	assert.ErrorIs(t, err, ErrInvalidPeriod)

	rank, err := e.gamification.GetUserRank(e.ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), rank.Rank)
	rank, err = e.gamification.GetUserRank(e.ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), rank.Rank)
}

func TestPeriodStartWeekBeginsMonday(t *testing.T) {
	e := newEnv(t)
	start, err := e.gamification.periodStart("weekly")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC), start)

	start, err = e.gamification.periodStart("monthly")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), start)
}

func TestAwardBadgeOnce(t *testing.T) {
	e := newEnv(t)
	u := testutil.CreateUser(t, e.db, "alice")

	ok, err := e.gamification.AwardBadge(e.ctx, u.ID, domain.BadgeVerifiedUser)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = e.gamification.AwardBadge(e.ctx, u.ID, domain.BadgeVerifiedUser)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = e.gamification.AwardBadge(e.ctx, u.ID, "No Such Badge")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 1, e.notifier.count(u.ID, domain.NotifyBadgeEarned))
}

func TestCompleteProfile(t *testing.T) {
	e := newEnv(t)
	u := testutil.CreateUser(t, e.db, "alice")

	_, err := e.gamification.CompleteProfile(e.ctx, u.ID)
	assert.ErrorIs(t, err, ErrProfileIncomplete)

	mobile, avatar := "9990001111", "https://img.test/a.png"
	updated, err := e.profile.Update(e.ctx, u.ID, ProfileUpdate{Mobile: &mobile, AvatarURL: &avatar})
	require.NoError(t, err)
	assert.NotNil(t, updated.ProfileCompletedAt)

	up, err := e.gamification.GetUserPoints(e.ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(25), up.Points)

	paid, err := e.gamification.CompleteProfile(e.ctx, u.ID)
	require.NoError(t, err)
	assert.False(t, paid)
}
