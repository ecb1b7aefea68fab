package models

import "time"

// Conversation is a support thread opened by a user and answered by admins.
type Conversation struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	UserID        uint       `gorm:"not null;index" json:"user_id"`
	Subject       string     `gorm:"size:255;not null" json:"subject"`
	Status        string     `gorm:"size:20;not null;index" json:"status"` // open | closed
	LastMessageAt *time.Time `gorm:"index" json:"last_message_at"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`

	User User `gorm:"foreignKey:UserID" json:"-"`
}

func (Conversation) TableName() string {
	return "conversations"
}

type ChatMessage struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	ConversationID uint       `gorm:"not null;index" json:"conversation_id"`
	SenderID       uint       `gorm:"not null;index" json:"sender_id"`
	FromAdmin      bool       `gorm:"not null;default:false" json:"from_admin"`
	Body           string     `gorm:"type:text" json:"body"`
	MediaURL       string     `gorm:"size:512" json:"media_url"`
	ReadAt         *time.Time `json:"read_at"`
	CreatedAt      time.Time  `json:"created_at"`

	Conversation Conversation `gorm:"foreignKey:ConversationID" json:"-"`
}

func (ChatMessage) TableName() string {
	return "chat_messages"
}
