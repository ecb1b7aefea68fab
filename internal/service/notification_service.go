package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"reviewhub/internal/domain"
	"reviewhub/internal/models"
	"reviewhub/internal/repository"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// Pusher delivers a payload to a user's live connections. ws.Hub implements it.
type Pusher interface {
	BroadcastToUser(userID uint, payload interface{})
}

// Notifier is what the domain services need from notifications.
type Notifier interface {
	Notify(ctx context.Context, userID uint, notifType, title, body string, data map[string]interface{}) error
}

type NotificationService struct {
	repo   *repository.NotificationRepository
	pusher Pusher
	now    func() time.Time
}

func NewNotificationService(repo *repository.NotificationRepository, pusher Pusher) *NotificationService {
	return &NotificationService{repo: repo, pusher: pusher, now: time.Now}
}

// Notify stores the notification and pushes it to any open websocket of the user.
func (s *NotificationService) Notify(ctx context.Context, userID uint, notifType, title, body string, data map[string]interface{}) error {
	var dataJSON string
	if data != nil {
		b, _ := json.Marshal(data)
		dataJSON = string(b)
	}
	n := &models.Notification{
		UserID: userID,
		Type:   notifType,
		Title:  title,
		Body:   body,
		Data:   dataJSON,
	}
	if err := s.repo.Create(ctx, n); err != nil {
		return err
	}
	if s.pusher != nil {
		s.pusher.BroadcastToUser(userID, map[string]interface{}{
			"type":         "notification",
			"notification": n,
		})
	}
	return nil
}

func (s *NotificationService) List(ctx context.Context, userID uint, limit, offset int) ([]models.Notification, int64, error) {
	list, err := s.repo.ListByUserID(ctx, userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	unread, err := s.repo.CountUnread(ctx, userID)
	return list, unread, err
}

func (s *NotificationService) MarkRead(ctx context.Context, id, userID uint) error {
	return s.repo.MarkRead(ctx, id, userID, s.now())
}

func (s *NotificationService) MarkAllRead(ctx context.Context, userID uint) (int64, error) {
	return s.repo.MarkAllRead(ctx, userID, s.now())
}

// notify is the fire-and-forget path used after a transaction commits.
func notify(ctx context.Context, n Notifier, userID uint, notifType, title, body string, data map[string]interface{}) {
	if n == nil {
		return
	}
	if err := n.Notify(ctx, userID, notifType, title, body, data); err != nil {
		log.Warn().Err(err).Str("component", "notification").Uint("user_id", userID).Str("type", notifType).Msg("notify failed")
	}
}

func notifyPoints(ctx context.Context, n Notifier, userID uint, points int64, description string) {
	notify(ctx, n, userID, domain.NotifyPointsAwarded, "Points earned",
		fmt.Sprintf("You earned %d points: %s", points, description),
		map[string]interface{}{"points": points})
}

func notifyCommission(ctx context.Context, n Notifier, userID uint, amount decimal.Decimal, level int) {
	notify(ctx, n, userID, domain.NotifyCommission, "Referral commission",
		fmt.Sprintf("You earned %s from a level %d referral", amount.StringFixed(2), level),
		map[string]interface{}{"amount": amount.StringFixed(2), "level": level})
}
