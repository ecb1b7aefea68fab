package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"reviewhub/internal/domain"
	"reviewhub/internal/models"
	"reviewhub/internal/repository"

	"gorm.io/gorm"
)

var (
	ErrConversationNotFound = errors.New("conversation not found")
	ErrConversationClosed   = errors.New("conversation is closed")
	ErrEmptyMessage         = errors.New("message body or media is required")
)

const maxMessageLength = 4000

// RoomBroadcaster fans a persisted message out to a conversation's live sockets.
// ws.ChatHub implements it.
type RoomBroadcaster interface {
	BroadcastToConversation(conversationID uint, payload interface{})
}

// Viewer is who is acting on a conversation.
type Viewer struct {
	UserID  uint
	IsAdmin bool
}

type ChatService struct {
	repo     *repository.ChatRepository
	rooms    RoomBroadcaster
	notifier Notifier
	now      func() time.Time
}

func NewChatService(repo *repository.ChatRepository, rooms RoomBroadcaster, notifier Notifier) *ChatService {
	return &ChatService{repo: repo, rooms: rooms, notifier: notifier, now: time.Now}
}

// Open starts a support thread with its first message.
func (s *ChatService) Open(ctx context.Context, userID uint, subject, body string) (*models.Conversation, *models.ChatMessage, error) {
	subject = strings.TrimSpace(subject)
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, nil, ErrEmptyMessage
	}
	if subject == "" {
		subject = "Support request"
	}
	c := &models.Conversation{UserID: userID, Subject: truncate(subject, 255), Status: domain.ConversationOpen}
	if err := s.repo.CreateConversation(ctx, c); err != nil {
		return nil, nil, err
	}
	m, err := s.post(ctx, c, Viewer{UserID: userID}, body, "")
	if err != nil {
		return nil, nil, err
	}
	c.LastMessageAt = &m.CreatedAt
	return c, m, nil
}

func (s *ChatService) List(ctx context.Context, v Viewer, status string, limit, offset int) ([]models.Conversation, error) {
	userID := v.UserID
	if v.IsAdmin {
		userID = 0
	}
	return s.repo.ListConversations(ctx, userID, status, limit, offset)
}

// Get returns the conversation if v may see it.
func (s *ChatService) Get(ctx context.Context, v Viewer, conversationID uint) (*models.Conversation, error) {
	c, err := s.repo.GetConversation(ctx, conversationID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrConversationNotFound
	}
	if err != nil {
		return nil, err
	}
	if !v.IsAdmin && c.UserID != v.UserID {
		return nil, ErrConversationNotFound
	}
	return c, nil
}

// Messages lists the thread and marks the other side's messages read.
func (s *ChatService) Messages(ctx context.Context, v Viewer, conversationID uint, limit, offset int) ([]models.ChatMessage, error) {
	c, err := s.Get(ctx, v, conversationID)
	if err != nil {
		return nil, err
	}
	list, err := s.repo.ListMessages(ctx, c.ID, limit, offset)
	if err != nil {
		return nil, err
	}
	if err := s.repo.MarkRead(ctx, c.ID, v.IsAdmin, s.now().UTC()); err != nil {
		return nil, err
	}
	return list, nil
}

func (s *ChatService) Send(ctx context.Context, v Viewer, conversationID uint, body, mediaURL string) (*models.ChatMessage, error) {
	c, err := s.Get(ctx, v, conversationID)
	if err != nil {
		return nil, err
	}
	if c.Status != domain.ConversationOpen {
		return nil, ErrConversationClosed
	}
	body = strings.TrimSpace(body)
	if body == "" && mediaURL == "" {
		return nil, ErrEmptyMessage
	}
	return s.post(ctx, c, v, body, mediaURL)
}

func (s *ChatService) post(ctx context.Context, c *models.Conversation, v Viewer, body, mediaURL string) (*models.ChatMessage, error) {
	if len(body) > maxMessageLength {
		body = body[:maxMessageLength]
	}
	m := &models.ChatMessage{
		ConversationID: c.ID,
		SenderID:       v.UserID,
		FromAdmin:      v.IsAdmin,
		Body:           body,
		MediaURL:       mediaURL,
		CreatedAt:      s.now().UTC(),
	}
	if err := s.repo.CreateMessage(ctx, m); err != nil {
		return nil, err
	}
	if s.rooms != nil {
		s.rooms.BroadcastToConversation(c.ID, map[string]interface{}{"type": "message", "message": m})
	}
	if v.IsAdmin && c.UserID != v.UserID {
		notify(ctx, s.notifier, c.UserID, domain.NotifySupportReply, "Support replied", truncate(body, 140),
			map[string]interface{}{"conversation_id": c.ID})
	}
	return m, nil
}

func (s *ChatService) Close(ctx context.Context, v Viewer, conversationID uint) error {
	c, err := s.Get(ctx, v, conversationID)
	if err != nil {
		return err
	}
	if c.Status == domain.ConversationClosed {
		return nil
	}
	if err := s.repo.Close(ctx, c.ID); err != nil {
		return err
	}
	if s.rooms != nil {
		s.rooms.BroadcastToConversation(c.ID, map[string]interface{}{"type": "closed", "conversation_id": c.ID})
	}
	return nil
}
