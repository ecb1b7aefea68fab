package repository

import (
	"context"
	"time"

	"reviewhub/internal/domain"
	"reviewhub/internal/models"

	"gorm.io/gorm"
)

type ChatRepository struct {
	db *gorm.DB
}

func NewChatRepository(db *gorm.DB) *ChatRepository {
	return &ChatRepository{db: db}
}

func (r *ChatRepository) WithTx(tx *gorm.DB) *ChatRepository {
	return &ChatRepository{db: tx}
}

func (r *ChatRepository) CreateConversation(ctx context.Context, c *models.Conversation) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *ChatRepository) GetConversation(ctx context.Context, id uint) (*models.Conversation, error) {
	var c models.Conversation
	if err := r.db.WithContext(ctx).First(&c, id).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// ListConversations returns a user's threads, or every thread when userID is 0.
func (r *ChatRepository) ListConversations(ctx context.Context, userID uint, status string, limit, offset int) ([]models.Conversation, error) {
	q := r.db.WithContext(ctx)
	if userID != 0 {
		q = q.Where("user_id = ?", userID)
	}
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var list []models.Conversation
	err := q.Order("last_message_at DESC, id DESC").Limit(limit).Offset(offset).Find(&list).Error
	return list, err
}

func (r *ChatRepository) CountOpen(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Conversation{}).
		Where("status = ?", domain.ConversationOpen).Count(&n).Error
	return n, err
}

func (r *ChatRepository) Close(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Model(&models.Conversation{}).Where("id = ?", id).
		Update("status", domain.ConversationClosed).Error
}

// CreateMessage stores the message and bumps the thread's last_message_at.
func (r *ChatRepository) CreateMessage(ctx context.Context, m *models.ChatMessage) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(m).Error; err != nil {
			return err
		}
		return tx.Model(&models.Conversation{}).Where("id = ?", m.ConversationID).
			UpdateColumn("last_message_at", m.CreatedAt).Error
	})
}

func (r *ChatRepository) ListMessages(ctx context.Context, conversationID uint, limit, offset int) ([]models.ChatMessage, error) {
	var list []models.ChatMessage
	err := r.db.WithContext(ctx).Where("conversation_id = ?", conversationID).
		Order("id ASC").Limit(limit).Offset(offset).Find(&list).Error
	return list, err
}

// MarkRead stamps messages from the other side of the thread as read.
func (r *ChatRepository) MarkRead(ctx context.Context, conversationID uint, readerIsAdmin bool, at time.Time) error {
	return r.db.WithContext(ctx).Model(&models.ChatMessage{}).
		Where("conversation_id = ? AND from_admin = ? AND read_at IS NULL", conversationID, !readerIsAdmin).
		Update("read_at", at).Error
}
