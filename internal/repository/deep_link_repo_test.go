package repository

import (
	"context"
	"errors"
	"testing"

	"reviewhub/internal/models"
	"reviewhub/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestShortCodeLookupIsCaseSensitive(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewDeepLinkRepository(db)
	ctx := context.Background()
	u := testutil.CreateUser(t, db, "linker")

	require.NoError(t, repo.Create(ctx, &models.DeepLink{UserID: u.ID, ShortCode: "AbCdEfGh", DestinationURL: "https://a.test"}))
	require.NoError(t, repo.Create(ctx, &models.DeepLink{UserID: u.ID, ShortCode: "abcdefgh", DestinationURL: "https://b.test"}))

	l, err := repo.GetByCode(ctx, "abcdefgh")
	require.NoError(t, err)
	assert.Equal(t, "https://b.test", l.DestinationURL)

	_, err = repo.GetByCode(ctx, "ABCDEFGH")
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))

	ok, err := repo.CodeExists(ctx, "ABCDEFGH")
	require.NoError(t, err)
	assert.False(t, ok)
}
