package service

import (
	"testing"
	"time"

	"reviewhub/internal/domain"
	"reviewhub/internal/models"
	"reviewhub/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (e *env) competitionFor(metric string, max int) *models.Competition {
	e.t.Helper()
	c, err := e.competition.CreateCompetition(e.ctx, CompetitionInput{
		Title:           "March Madness",
		Metric:          metric,
		StartAt:         testNow.Add(-time.Hour),
		EndAt:           testNow.Add(7 * 24 * time.Hour),
		MaxParticipants: max,
	})
	require.NoError(e.t, err)
	return c
}

func TestCreateCompetitionSlugs(t *testing.T) {
	e := newEnv(t)
	first := e.competitionFor(domain.MetricPoints, 0)
	second := e.competitionFor(domain.MetricPoints, 0)
	assert.Equal(t, "march-madness", first.Slug)
	assert.Equal(t, "march-madness-2", second.Slug)

	_, err := e.competition.CreateCompetition(e.ctx, CompetitionInput{Title: "x", Metric: "likes", StartAt: testNow, EndAt: testNow.Add(time.Hour)})
	assert.ErrorIs(t, err, ErrInvalidCompetition)
	_, err = e.competition.CreateCompetition(e.ctx, CompetitionInput{Title: "x", Metric: domain.MetricTasks, StartAt: testNow, EndAt: testNow})
	assert.ErrorIs(t, err, ErrInvalidCompetition)
}

func TestJoinCompetition(t *testing.T) {
	e := newEnv(t)
	c := e.competitionFor(domain.MetricPoints, 2)
	a := testutil.CreateUser(t, e.db, "alice")
	b := testutil.CreateUser(t, e.db, "bob")
	d := testutil.CreateUser(t, e.db, "dave")

	p, err := e.competition.JoinCompetition(e.ctx, c.ID, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, p.Rank)

	_, err = e.competition.JoinCompetition(e.ctx, c.ID, a.ID)
	assert.ErrorIs(t, err, ErrAlreadyJoined)

	_, err = e.competition.JoinCompetition(e.ctx, c.ID, b.ID)
	require.NoError(t, err)
	_, err = e.competition.JoinCompetition(e.ctx, c.ID, d.ID)
	assert.ErrorIs(t, err, ErrCompetitionFull)

	_, err = e.competition.JoinCompetition(e.ctx, 999, a.ID)
	assert.ErrorIs(t, err, ErrCompetitionNotFound)
	assert.Equal(t, 1, e.notifier.count(a.ID, domain.NotifyCompetitionJoined))
}

func TestJoinClosedCompetition(t *testing.T) {
	e := newEnv(t)
	c, err := e.competition.CreateCompetition(e.ctx, CompetitionInput{
		Title: "Later", Metric: domain.MetricTasks,
		StartAt: testNow.Add(24 * time.Hour), EndAt: testNow.Add(48 * time.Hour),
	})
	require.NoError(t, err)
	u := testutil.CreateUser(t, e.db, "alice")

	_, err = e.competition.JoinCompetition(e.ctx, c.ID, u.ID)
	assert.ErrorIs(t, err, ErrCompetitionClosed)
}

func TestCompetitionRanksFollowPoints(t *testing.T) {
	e := newEnv(t)
	c := e.competitionFor(domain.MetricPoints, 0)
	a := testutil.CreateUser(t, e.db, "alice")
	b := testutil.CreateUser(t, e.db, "bob")
	d := testutil.CreateUser(t, e.db, "dave")
	for _, u := range []*models.User{a, b, d} {
		_, err := e.competition.JoinCompetition(e.ctx, c.ID, u.ID)
		require.NoError(t, err)
	}

	// Points awarded anywhere feed competitions through the listener.
	_, err := e.gamification.AwardPoints(e.ctx, b.ID, 40, domain.PointsAdminAdjustment, "x", domain.NoRef())
	require.NoError(t, err)
	_, err = e.gamification.AwardPoints(e.ctx, d.ID, 40, domain.PointsAdminAdjustment, "x", domain.NoRef())
	require.NoError(t, err)
	_, err = e.gamification.AwardPoints(e.ctx, a.ID, 10, domain.PointsAdminAdjustment, "x", domain.NoRef())
	require.NoError(t, err)

	lb, err := e.competition.GetCompetitionLeaderboard(e.ctx, c.ID, 0)
	require.NoError(t, err)
	require.Len(t, lb.Standings, 3)
	got := map[uint]int{}
	for _, s := range lb.Standings {
		got[s.UserID] = s.Rank
	}
	assert.Equal(t, map[uint]int{b.ID: 1, d.ID: 1, a.ID: 3}, got)
	assert.Equal(t, 1, lb.Standings[0].Position)
	assert.Equal(t, 3, lb.Standings[2].Position)
	assert.Equal(t, int64(40), lb.Standings[0].MetricValue)
}

func TestRecordActivityIgnoresOtherMetrics(t *testing.T) {
	e := newEnv(t)
	tasks := e.competitionFor(domain.MetricTasks, 0)
	u := testutil.CreateUser(t, e.db, "alice")
	_, err := e.competition.JoinCompetition(e.ctx, tasks.ID, u.ID)
	require.NoError(t, err)

	require.NoError(t, e.competition.RecordActivity(e.ctx, u.ID, domain.MetricPoints, 100))
	require.NoError(t, e.competition.RecordActivity(e.ctx, u.ID, domain.MetricTasks, 1))

	rows, err := e.competition.ListUserCompetitions(e.ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(1), rows[0].MetricValue)
}

func TestEndExpired(t *testing.T) {
	e := newEnv(t)
	c := e.competitionFor(domain.MetricPoints, 0)

	n, err := e.competition.EndExpired(e.ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	e.competition.now = testutil.FixedClock(testNow.Add(8 * 24 * time.Hour))
	n, err = e.competition.EndExpired(e.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	var got models.Competition
	require.NoError(t, e.db.First(&got, c.ID).Error)
	assert.Equal(t, domain.CompetitionEnded, got.Status)

	active, err := e.competition.GetActiveCompetitions(e.ctx)
	require.NoError(t, err)
	assert.Empty(t, active)
}
