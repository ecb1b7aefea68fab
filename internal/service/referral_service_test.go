package service

import (
	"testing"

	"reviewhub/internal/domain"
	"reviewhub/internal/models"
	"reviewhub/internal/testutil"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateReferralCode(t *testing.T) {
	assert.Equal(t, "REF000001", GenerateReferralCode(1))
	assert.Equal(t, "REF123456", GenerateReferralCode(123456))
	assert.Equal(t, "REF1234567", GenerateReferralCode(1234567))
}

func TestClaimCodeBuildsChain(t *testing.T) {
	e := newEnv(t)
	a := testutil.CreateUser(t, e.db, "alice")
	b := testutil.CreateUser(t, e.db, "bob")
	c := testutil.CreateUser(t, e.db, "carol")

	rows, err := e.referral.ClaimCode(e.ctx, b.ID, *a.ReferralCode)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	rows, err = e.referral.ClaimCode(e.ctx, c.ID, *b.ReferralCode)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, b.ID, rows[0].ReferrerID)
	assert.Equal(t, 1, rows[0].Level)
	assert.Equal(t, a.ID, rows[1].ReferrerID)
	assert.Equal(t, 2, rows[1].Level)
	for _, r := range rows {
		assert.Equal(t, domain.ReferralStatusPending, r.Status)
	}

	// Referrer gets signup points and a notification.
	up, err := e.gamification.GetUserPoints(e.ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(50), up.Points)
	assert.Equal(t, 1, e.notifier.count(b.ID, domain.NotifyReferralJoined))

	has, err := e.gamification.badges.Has(e.ctx, b.ID, badgeID(t, e, domain.BadgeFirstReferral))
	require.NoError(t, err)
	assert.True(t, has)

	st, err := e.referral.Stats(e.ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), st.Direct)
	assert.Equal(t, int64(2), st.Total)
}

func badgeID(t *testing.T, e *env, name string) uint {
	t.Helper()
	b, err := e.gamification.badges.GetByName(e.ctx, name)
	require.NoError(t, err)
	return b.ID
}

func TestClaimCodeErrors(t *testing.T) {
	e := newEnv(t)
	a := testutil.CreateUser(t, e.db, "alice")
	b := testutil.CreateUser(t, e.db, "bob")
	c := testutil.CreateUser(t, e.db, "carol")

	_, err := e.referral.ClaimCode(e.ctx, a.ID, *a.ReferralCode)
	assert.ErrorIs(t, err, ErrSelfReferral)

	_, err = e.referral.ClaimCode(e.ctx, a.ID, "REF999999")
	assert.ErrorIs(t, err, ErrReferrerNotFound)

	_, err = e.referral.ClaimCode(e.ctx, a.ID, "  ")
	assert.ErrorIs(t, err, ErrInvalidReferralCode)

	_, err = e.referral.ClaimCode(e.ctx, c.ID, *a.ReferralCode)
	require.NoError(t, err)
	_, err = e.referral.ClaimCode(e.ctx, c.ID, *b.ReferralCode)
	assert.ErrorIs(t, err, ErrAlreadyReferred)

	var u models.User
	require.NoError(t, e.db.First(&u, c.ID).Error)
	require.NotNil(t, u.ReferredBy)
	assert.Equal(t, a.ID, *u.ReferredBy)
}

func TestCreateReferralStopsAtMaxLevels(t *testing.T) {
	e := newEnv(t)
	chain := make([]*models.User, 5)
	for i := range chain {
		chain[i] = testutil.CreateUser(t, e.db, string(rune('a'+i))+"user")
		if i > 0 {
			_, err := e.referral.CreateReferral(e.ctx, chain[i-1].ID, chain[i].ID)
			require.NoError(t, err)
		}
	}
	var rows []models.Referral
	require.NoError(t, e.db.Where("referee_id = ?", chain[4].ID).Order("level").Find(&rows).Error)
	require.Len(t, rows, 3)
	assert.Equal(t, chain[3].ID, rows[0].ReferrerID)
	assert.Equal(t, chain[2].ID, rows[1].ReferrerID)
	assert.Equal(t, chain[1].ID, rows[2].ReferrerID)
}

func TestCreateReferralStopsOnCycle(t *testing.T) {
	e := newEnv(t)
	a := testutil.CreateUser(t, e.db, "alice")
	b := testutil.CreateUser(t, e.db, "bob")

	_, err := e.referral.CreateReferral(e.ctx, a.ID, b.ID)
	require.NoError(t, err)
	rows, err := e.referral.CreateReferral(e.ctx, b.ID, a.ID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, b.ID, rows[0].ReferrerID)
}

func TestCommissionFanOutAndRetry(t *testing.T) {
	e := newEnv(t)
	a := testutil.CreateUser(t, e.db, "alice")
	b := testutil.CreateUser(t, e.db, "bob")
	c := testutil.CreateUser(t, e.db, "carol")
	seller := testutil.CreateSeller(t, e.db, "shop")

	_, err := e.referral.CreateReferral(e.ctx, a.ID, b.ID)
	require.NoError(t, err)
	_, err = e.referral.CreateReferral(e.ctx, b.ID, c.ID)
	require.NoError(t, err)

	rr := e.fundedRequest(seller, 1, "1000.00")
	task := e.refundRequestedTask(c, rr)
	_, err = e.task.CompleteTask(e.ctx, task.ID, "ok")
	require.NoError(t, err)

	assert.Equal(t, "1000.00", testutil.Balance(t, e.db, c.ID).StringFixed(2))
	assert.Equal(t, "100.00", testutil.Balance(t, e.db, b.ID).StringFixed(2))
	assert.Equal(t, "50.00", testutil.Balance(t, e.db, a.ID).StringFixed(2))

	var earnings []models.ReferralEarning
	require.NoError(t, e.db.Where("from_user_id = ? AND task_id = ?", c.ID, task.ID).Find(&earnings).Error)
	require.Len(t, earnings, 2)
	for _, en := range earnings {
		assert.Equal(t, domain.EarningStatusCredited, en.Status)
		assert.NotNil(t, en.CreditedAt)
	}

	again, err := e.referral.CreditReferralCommission(e.ctx, c.ID, task.ID, decimal.RequireFromString("1000"))
	require.NoError(t, err)
	assert.Empty(t, again)
	assert.Equal(t, "100.00", testutil.Balance(t, e.db, b.ID).StringFixed(2))
	assert.Equal(t, "50.00", testutil.Balance(t, e.db, a.ID).StringFixed(2))

	var active int64
	require.NoError(t, e.db.Model(&models.Referral{}).
		Where("referee_id = ? AND status = ?", c.ID, domain.ReferralStatusActive).Count(&active).Error)
	assert.Equal(t, int64(2), active)
}

func TestCommissionSkipsPendingReferrals(t *testing.T) {
	e := newEnv(t)
	a := testutil.CreateUser(t, e.db, "alice")
	b := testutil.CreateUser(t, e.db, "bob")
	_, err := e.referral.CreateReferral(e.ctx, a.ID, b.ID)
	require.NoError(t, err)

	credited, err := e.referral.CreditReferralCommission(e.ctx, b.ID, 1, decimal.NewFromInt(1000))
	require.NoError(t, err)
	assert.Empty(t, credited)
	assert.True(t, testutil.Balance(t, e.db, a.ID).IsZero())
}

func TestCommissionUsesConfiguredPercent(t *testing.T) {
	e := newEnv(t)
	a := testutil.CreateUser(t, e.db, "alice")
	b := testutil.CreateUser(t, e.db, "bob")
	_, err := e.referral.CreateReferral(e.ctx, a.ID, b.ID)
	require.NoError(t, err)
	_, err = e.referral.ActivateReferral(e.ctx, b.ID)
	require.NoError(t, err)
	require.NoError(t, e.settings.Set(e.ctx, "referral_level_1_commission", "12.5"))

	credited, err := e.referral.CreditReferralCommission(e.ctx, b.ID, 7, decimal.RequireFromString("333.33"))
	require.NoError(t, err)
	require.Len(t, credited, 1)
	assert.Equal(t, "41.67", credited[0].Amount.StringFixed(2))
	assert.Equal(t, "41.67", testutil.Balance(t, e.db, a.ID).StringFixed(2))
}

func TestReferralCodeAssignsMissing(t *testing.T) {
	e := newEnv(t)
	u := &models.User{Name: "nocode", Email: "nocode@example.com", Role: domain.RoleUser}
	require.NoError(t, e.db.Create(u).Error)

	code, err := e.referral.ReferralCode(e.ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, GenerateReferralCode(u.ID), code)

	_, err = e.referral.ReferralCode(e.ctx, 9999)
	assert.ErrorIs(t, err, ErrUserNotFound)
}
