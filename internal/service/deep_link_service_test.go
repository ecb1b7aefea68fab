package service

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"reviewhub/internal/models"
	"reviewhub/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noShuffle(int, func(i, j int)) {}

func TestGenerateUniqueShortCode(t *testing.T) {
	calls := 0
	code, err := GenerateUniqueShortCode(context.Background(), func(context.Context, string) (bool, error) {
		calls++
		return calls < 3, nil
	}, noShuffle)
	require.NoError(t, err)
	assert.Equal(t, "abcdefgh", code)
	assert.Equal(t, 3, calls)
	assert.Len(t, code, shortCodeLength)
}

func TestGenerateUniqueShortCodeExhausted(t *testing.T) {
	calls := 0
	_, err := GenerateUniqueShortCode(context.Background(), func(context.Context, string) (bool, error) {
		calls++
		return true, nil
	}, noShuffle)
	assert.ErrorIs(t, err, ErrShortCodeExhausted)
	assert.Equal(t, shortCodeAttempts, calls)
}

func TestGenerateUniqueShortCodeCharset(t *testing.T) {
	code, err := GenerateUniqueShortCode(context.Background(), func(context.Context, string) (bool, error) {
		return false, nil
	}, func(n int, swap func(i, j int)) {
		for i := 0; i < n/2; i++ {
			swap(i, n-1-i)
		}
	})
	require.NoError(t, err)
	assert.Equal(t, "98765432", code)
	for _, r := range code {
		assert.True(t, strings.ContainsRune(shortCodeCharset, r))
	}
}

func TestDeepLinkCreateValidates(t *testing.T) {
	e := newEnv(t)
	u := testutil.CreateUser(t, e.db, "alice")

	_, err := e.links.Create(e.ctx, u.ID, DeepLinkInput{DestinationURL: "ftp://example.com"})
	assert.ErrorIs(t, err, ErrInvalidDestination)
	_, err = e.links.Create(e.ctx, u.ID, DeepLinkInput{DestinationURL: "/relative"})
	assert.ErrorIs(t, err, ErrInvalidDestination)
	_, err = e.links.Create(e.ctx, u.ID, DeepLinkInput{DestinationURL: "https://example.com", Metadata: json.RawMessage(`{bad`)})
	assert.ErrorIs(t, err, ErrInvalidLinkMetadata)

	created, err := e.links.Create(e.ctx, u.ID, DeepLinkInput{
		DestinationURL: "https://example.com/p/1",
		Title:          "Promo",
		Metadata:       json.RawMessage(`{"campaign":"spring"}`),
	})
	require.NoError(t, err)
	assert.Len(t, created.ShortCode, shortCodeLength)
	assert.Equal(t, "https://rh.test/l/"+created.ShortCode, created.ShortURL)
}

func TestDeepLinkResolveAndAnalytics(t *testing.T) {
	e := newEnv(t)
	owner := testutil.CreateUser(t, e.db, "alice")
	stranger := testutil.CreateUser(t, e.db, "bob")
	created, err := e.links.Create(e.ctx, owner.ID, DeepLinkInput{DestinationURL: "https://example.com/p/1"})
	require.NoError(t, err)

	for i, ip := range []string{"1.1.1.1", "1.1.1.1", "2.2.2.2"} {
		ref := "https://social.test"
		if i == 2 {
			ref = ""
		}
		link, err := e.links.Resolve(e.ctx, created.ShortCode, ClickInfo{IP: ip, UserAgent: "ua", Referrer: ref})
		require.NoError(t, err)
		assert.Equal(t, "https://example.com/p/1", link.DestinationURL)
	}
	// One click two days ago.
	require.NoError(t, e.db.Create(&models.DeepLinkClick{
		DeepLinkID: created.ID, IP: "3.3.3.3", ClickedAt: testNow.Add(-48 * time.Hour),
	}).Error)

	_, err = e.links.Resolve(e.ctx, "missing1", ClickInfo{})
	assert.ErrorIs(t, err, ErrDeepLinkNotFound)

	_, err = e.links.Analytics(e.ctx, created.ID, stranger.ID)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = e.links.Analytics(e.ctx, 999, owner.ID)
	assert.ErrorIs(t, err, ErrDeepLinkNotFound)

	a, err := e.links.Analytics(e.ctx, created.ID, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), a.Link.ClickCount)
	assert.Equal(t, int64(4), a.TotalClicks)
	assert.Equal(t, int64(3), a.UniqueIPs)
	require.NotNil(t, a.LastClickAt)
	assert.True(t, a.LastClickAt.Equal(testNow))

	require.Len(t, a.Daily, analyticsDays)
	assert.Equal(t, "2026-02-10", a.Daily[0].Date)
	last := a.Daily[analyticsDays-1]
	assert.Equal(t, "2026-03-11", last.Date)
	assert.Equal(t, int64(3), last.Clicks)
	assert.Equal(t, int64(1), a.Daily[analyticsDays-3].Clicks)
	assert.Equal(t, int64(0), a.Daily[analyticsDays-2].Clicks)

	require.NotEmpty(t, a.TopReferrers)
	assert.Equal(t, "https://social.test", a.TopReferrers[0].Referrer)
	assert.Equal(t, int64(2), a.TopReferrers[0].Clicks)
}

func TestTruncateKeepsRunesWhole(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "ab", truncate("abé", 3))
	assert.Equal(t, "abé", truncate("abé", 4))
	assert.Equal(t, "", truncate("日本", 2))
	assert.Equal(t, "日", truncate("日本", 5))
}

func TestDeepLinkResolveLongMultibyteHeaders(t *testing.T) {
	e := newEnv(t)
	owner := testutil.CreateUser(t, e.db, "alice")
	created, err := e.links.Create(e.ctx, owner.ID, DeepLinkInput{DestinationURL: "https://example.com/p/2"})
	require.NoError(t, err)

	ref := strings.Repeat("a", 1023) + "é"
	ua := strings.Repeat("b", 511) + "日本"
	_, err = e.links.Resolve(e.ctx, created.ShortCode, ClickInfo{IP: "1.1.1.1", UserAgent: ua, Referrer: ref})
	require.NoError(t, err)

	var click models.DeepLinkClick
	require.NoError(t, e.db.Where("deep_link_id = ?", created.ID).First(&click).Error)
	assert.True(t, utf8.ValidString(click.Referrer))
	assert.True(t, utf8.ValidString(click.UserAgent))
	assert.Equal(t, strings.Repeat("a", 1023), click.Referrer)
	assert.Equal(t, strings.Repeat("b", 511), click.UserAgent)
}
