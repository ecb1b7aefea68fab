package service

import (
	"testing"

	"reviewhub/internal/domain"
	"reviewhub/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatAccessAndReplies(t *testing.T) {
	e := newEnv(t)
	u := testutil.CreateUser(t, e.db, "alice")
	stranger := testutil.CreateUser(t, e.db, "bob")
	admin := testutil.CreateAdmin(t, e.db, "root")
	me := Viewer{UserID: u.ID}
	staff := Viewer{UserID: admin.ID, IsAdmin: true}

	_, _, err := e.chat.Open(e.ctx, u.ID, "Refund", "   ")
	assert.ErrorIs(t, err, ErrEmptyMessage)

	c, first, err := e.chat.Open(e.ctx, u.ID, "", "Where is my refund?")
	require.NoError(t, err)
	assert.Equal(t, "Support request", c.Subject)
	assert.False(t, first.FromAdmin)

	_, err = e.chat.Get(e.ctx, Viewer{UserID: stranger.ID}, c.ID)
	assert.ErrorIs(t, err, ErrConversationNotFound)
	_, err = e.chat.Send(e.ctx, Viewer{UserID: stranger.ID}, c.ID, "hi", "")
	assert.ErrorIs(t, err, ErrConversationNotFound)

	reply, err := e.chat.Send(e.ctx, staff, c.ID, "Processing today", "")
	require.NoError(t, err)
	assert.True(t, reply.FromAdmin)
	assert.Equal(t, 1, e.notifier.count(u.ID, domain.NotifySupportReply))
	assert.Len(t, e.rooms.payloads[c.ID], 2)

	msgs, err := e.chat.Messages(e.ctx, me, c.ID, 50, 0)
	require.NoError(t, err)
	assert.Len(t, msgs, 2)

	mine, err := e.chat.List(e.ctx, me, "", 10, 0)
	require.NoError(t, err)
	assert.Len(t, mine, 1)
	theirs, err := e.chat.List(e.ctx, Viewer{UserID: stranger.ID}, "", 10, 0)
	require.NoError(t, err)
	assert.Empty(t, theirs)
	all, err := e.chat.List(e.ctx, staff, domain.ConversationOpen, 10, 0)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	require.NoError(t, e.chat.Close(e.ctx, me, c.ID))
	_, err = e.chat.Send(e.ctx, me, c.ID, "one more", "")
	assert.ErrorIs(t, err, ErrConversationClosed)
	require.NoError(t, e.chat.Close(e.ctx, staff, c.ID))
}
