package service

import (
	"context"
	"errors"
	"strings"

	"reviewhub/internal/models"
	"reviewhub/internal/repository"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type ProfileUpdate struct {
	Name      *string `json:"name"`
	Mobile    *string `json:"mobile"`
	AvatarURL *string `json:"avatar_url"`
}

// Wallet is the balance plus the most recent ledger entries.
type Wallet struct {
	Balance      decimal.Decimal            `json:"balance"`
	Transactions []models.WalletTransaction `json:"transactions"`
}

type ProfileService struct {
	users        *repository.UserRepository
	wallet       *repository.WalletRepository
	gamification *GamificationService
}

func NewProfileService(users *repository.UserRepository, wallet *repository.WalletRepository, gamification *GamificationService) *ProfileService {
	return &ProfileService{users: users, wallet: wallet, gamification: gamification}
}

func (s *ProfileService) Get(ctx context.Context, userID uint) (*models.User, error) {
	u, err := s.users.GetByID(ctx, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	return u, err
}

// Update writes the given fields. The first time the profile becomes full the
// completion bonus is paid.
func (s *ProfileService) Update(ctx context.Context, userID uint, in ProfileUpdate) (*models.User, error) {
	fields := map[string]interface{}{}
	if in.Name != nil {
		fields["name"] = strings.TrimSpace(*in.Name)
	}
	if in.Mobile != nil {
		m := strings.TrimSpace(*in.Mobile)
		if m == "" {
			fields["mobile"] = nil
		} else {
			if other, err := s.users.GetByMobile(ctx, m); err == nil && other.ID != userID {
				return nil, ErrMobileExists
			} else if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, err
			}
			fields["mobile"] = m
		}
	}
	if in.AvatarURL != nil {
		fields["avatar_url"] = strings.TrimSpace(*in.AvatarURL)
	}
	if err := s.users.UpdateProfile(ctx, userID, fields); err != nil {
		return nil, err
	}
	u, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u.ProfileCompletedAt == nil && u.ProfileComplete() {
		if _, err := s.gamification.CompleteProfile(ctx, userID); err != nil {
			log.Error().Err(err).Str("component", "profile").Uint("user_id", userID).Msg("profile completion bonus failed")
		} else if fresh, err := s.Get(ctx, userID); err == nil {
			u = fresh
		}
	}
	return u, nil
}

func (s *ProfileService) Wallet(ctx context.Context, userID uint, limit int) (*Wallet, error) {
	bal, err := s.wallet.Balance(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	list, err := s.wallet.ListTransactions(ctx, userID, limit, 0)
	if err != nil {
		return nil, err
	}
	return &Wallet{Balance: bal, Transactions: list}, nil
}

func (s *ProfileService) WalletTransactions(ctx context.Context, userID uint, limit, offset int) ([]models.WalletTransaction, error) {
	return s.wallet.ListTransactions(ctx, userID, limit, offset)
}
