package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPointRefColumns(t *testing.T) {
	typ, id := TaskRef(42).Columns()
	require.NotNil(t, typ)
	require.NotNil(t, id)
	assert.Equal(t, "task", *typ)
	assert.Equal(t, uint(42), *id)

	typ, id = NoRef().Columns()
	assert.Nil(t, typ)
	assert.Nil(t, id)
}

func TestParsePointRef(t *testing.T) {
	for _, ref := range []PointRef{TaskRef(1), ReferralRef(2), LevelRef(3), ProfileRef(4), BadgeRef(5), LoginRef(6)} {
		typ, id := ref.Columns()
		assert.Equal(t, ref, ParsePointRef(typ, id))
	}

	bogus := "invoice"
	n := uint(9)
	assert.True(t, ParsePointRef(&bogus, &n).IsZero())
	assert.True(t, ParsePointRef(nil, &n).IsZero())
}
