package service

import (
	"testing"

	"reviewhub/internal/auth"
	"reviewhub/internal/domain"
	"reviewhub/internal/models"
	"reviewhub/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterAndLogin(t *testing.T) {
	e := newEnv(t)
	ref := testutil.CreateUser(t, e.db, "alice")

	sess, err := e.auth.Register(e.ctx, RegisterInput{
		Name:         "Bob",
		Email:        "Bob@Example.com",
		Mobile:       "9000000001",
		Password:     "hunter22",
		Role:         "seller",
		ReferralCode: *ref.ReferralCode,
	})
	require.NoError(t, err)
	assert.True(t, sess.IsNew)
	assert.Equal(t, "bob@example.com", sess.User.Email)
	assert.Equal(t, domain.RoleSeller, sess.User.Role)
	require.NotNil(t, sess.User.ReferralCode)
	assert.Equal(t, GenerateReferralCode(sess.User.ID), *sess.User.ReferralCode)
	require.NotNil(t, sess.User.ReferredBy)
	assert.Equal(t, ref.ID, *sess.User.ReferredBy)

	_, err = e.auth.Register(e.ctx, RegisterInput{Name: "B", Email: "bob@example.com", Password: "hunter22"})
	assert.ErrorIs(t, err, ErrEmailExists)
	_, err = e.auth.Register(e.ctx, RegisterInput{Name: "B", Email: "b2@example.com", Mobile: "9000000001", Password: "hunter22"})
	assert.ErrorIs(t, err, ErrMobileExists)
	_, err = e.auth.Register(e.ctx, RegisterInput{Name: "B", Email: "b3@example.com", Password: "hunter22", Role: "ADMIN"})
	assert.ErrorIs(t, err, ErrInvalidRole)
	_, err = e.auth.Register(e.ctx, RegisterInput{Name: "B", Email: "b4@example.com", Password: "short"})
	assert.ErrorIs(t, err, ErrPasswordTooShort)
	_, err = e.auth.Register(e.ctx, RegisterInput{Name: "B", Email: "b5@example.com", Password: "hunter22", ReferralCode: "REF424242"})
	assert.ErrorIs(t, err, ErrInvalidReferralCode)

	byMobile, err := e.auth.Login(e.ctx, "9000000001", "hunter22")
	require.NoError(t, err)
	assert.Equal(t, int64(5), byMobile.LoginBonus)
	byEmail, err := e.auth.Login(e.ctx, "bob@example.com", "hunter22")
	require.NoError(t, err)
	assert.Zero(t, byEmail.LoginBonus, "streak counted once per day")

	_, err = e.auth.Login(e.ctx, "bob@example.com", "wrong-pass")
	assert.ErrorIs(t, err, ErrInvalidCreds)
	_, err = e.auth.Login(e.ctx, "nobody@example.com", "hunter22")
	assert.ErrorIs(t, err, ErrInvalidCreds)

	claims, err := auth.ParseAccessToken(&e.auth.cfg.JWT, byEmail.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, sess.User.ID, claims.UserID)
}

func TestRefreshAndChangePassword(t *testing.T) {
	e := newEnv(t)
	sess, err := e.auth.Register(e.ctx, RegisterInput{Name: "Bob", Email: "bob@example.com", Password: "hunter22"})
	require.NoError(t, err)

	next, err := e.auth.RefreshToken(e.ctx, sess.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, next.AccessToken)
	_, err = e.auth.RefreshToken(e.ctx, sess.AccessToken)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)

	assert.ErrorIs(t, e.auth.ChangePassword(e.ctx, sess.User.ID, "nope-nope", "newpass99"), ErrInvalidCreds)
	assert.ErrorIs(t, e.auth.ChangePassword(e.ctx, sess.User.ID, "hunter22", "short"), ErrPasswordTooShort)
	require.NoError(t, e.auth.ChangePassword(e.ctx, sess.User.ID, "hunter22", "newpass99"))
	_, err = e.auth.Login(e.ctx, "bob@example.com", "newpass99")
	require.NoError(t, err)
}

func TestLoginWithGoogle(t *testing.T) {
	e := newEnv(t)
	existing := testutil.CreateUser(t, e.db, "alice")

	linked, err := e.auth.LoginWithGoogle(e.ctx, "g-1", "alice@example.com", "Alice", "https://img.test/a.png")
	require.NoError(t, err)
	assert.False(t, linked.IsNew)
	assert.Equal(t, existing.ID, linked.User.ID)

	var u models.User
	require.NoError(t, e.db.First(&u, existing.ID).Error)
	require.NotNil(t, u.GoogleID)
	assert.Equal(t, "g-1", *u.GoogleID)
	assert.Equal(t, "https://img.test/a.png", u.AvatarURL)

	fresh, err := e.auth.LoginWithGoogle(e.ctx, "g-2", "new@example.com", "", "")
	require.NoError(t, err)
	assert.True(t, fresh.IsNew)
	assert.Equal(t, "new", fresh.User.Name)
	assert.Equal(t, domain.RoleUser, fresh.User.Role)

	again, err := e.auth.LoginWithGoogle(e.ctx, "g-2", "new@example.com", "", "")
	require.NoError(t, err)
	assert.Equal(t, fresh.User.ID, again.User.ID)

	// Google-only accounts cannot use password login.
	_, err = e.auth.Login(e.ctx, "new@example.com", "")
	assert.ErrorIs(t, err, ErrInvalidCreds)
}

func TestAdminKYCAndSettings(t *testing.T) {
	e := newEnv(t)
	u := testutil.CreateUser(t, e.db, "alice")
	admin := testutil.CreateAdmin(t, e.db, "root")
	actor := Actor{UserID: admin.ID, IP: "10.0.0.1"}

	require.NoError(t, e.admin.SetKYC(e.ctx, actor, u.ID, true))
	has, err := e.gamification.badges.Has(e.ctx, u.ID, badgeID(t, e, domain.BadgeVerifiedUser))
	require.NoError(t, err)
	assert.True(t, has)
	assert.ErrorIs(t, e.admin.SetKYC(e.ctx, actor, 9999, true), ErrUserNotFound)

	assert.ErrorIs(t, e.admin.UpdateSettings(e.ctx, actor, map[string]string{"nope": "1"}), ErrUnknownSetting)
	assert.ErrorIs(t, e.admin.UpdateSettings(e.ctx, actor, map[string]string{domain.SettingPointsReferral: "lots"}), ErrUnknownSetting)
	require.NoError(t, e.admin.UpdateSettings(e.ctx, actor, map[string]string{
		domain.SettingPointsReferral:  "75",
		"referral_level_4_commission": "1",
	}))
	assert.Equal(t, 75, e.settings.GetInt(e.ctx, domain.SettingPointsReferral, 0))

	logs, err := e.admin.AuditLog(e.ctx, "", 10, 0)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, "settings.update", logs[0].Action)
	assert.Equal(t, "user.kyc", logs[1].Action)

	stats, err := e.admin.Dashboard(e.ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.TotalUsers)
	assert.Equal(t, int64(1), stats.KYCVerified)
	assert.Zero(t, stats.TotalSellers)
}
