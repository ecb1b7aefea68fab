package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"reviewhub/internal/domain"
	"reviewhub/internal/models"
	"reviewhub/internal/repository"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	ErrAlreadyReferred     = errors.New("user already has a referrer")
	ErrSelfReferral        = errors.New("cannot use your own referral code")
	ErrReferrerNotFound    = errors.New("referral code not found")
	ErrInvalidReferralCode = errors.New("invalid referral code")
)

// ReferralListener is told when a referrer gains a direct referee.
type ReferralListener interface {
	ReferralCreated(ctx context.Context, referrerID uint)
}

// ReferralService records referral chains and pays commissions up the chain.
type ReferralService struct {
	db           *gorm.DB
	users        *repository.UserRepository
	referrals    *repository.ReferralRepository
	wallet       *repository.WalletRepository
	settings     *SettingsService
	gamification *GamificationService
	notifier     Notifier
	listeners    []ReferralListener
	now          func() time.Time
}

func NewReferralService(
	db *gorm.DB,
	users *repository.UserRepository,
	referrals *repository.ReferralRepository,
	wallet *repository.WalletRepository,
	settings *SettingsService,
	gamification *GamificationService,
	notifier Notifier,
) *ReferralService {
	return &ReferralService{
		db:           db,
		users:        users,
		referrals:    referrals,
		wallet:       wallet,
		settings:     settings,
		gamification: gamification,
		notifier:     notifier,
		now:          time.Now,
	}
}

func (s *ReferralService) AddListener(l ReferralListener) {
	s.listeners = append(s.listeners, l)
}

// GenerateReferralCode is "REF" followed by the user id zero-padded to six digits.
func GenerateReferralCode(userID uint) string {
	return fmt.Sprintf("REF%06d", userID)
}

// ClaimCode links userID to the owner of code.
func (s *ReferralService) ClaimCode(ctx context.Context, userID uint, code string) ([]models.Referral, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, ErrInvalidReferralCode
	}
	referrer, err := s.users.GetByReferralCode(ctx, code)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrReferrerNotFound
	}
	if err != nil {
		return nil, err
	}
	if referrer.ID == userID {
		return nil, ErrSelfReferral
	}
	return s.CreateReferral(ctx, referrer.ID, userID)
}

// CreateReferral sets the referee's referrer once and writes one pending row
// per ancestor level up to the configured maximum. Self-referral must be
// rejected by the caller.
func (s *ReferralService) CreateReferral(ctx context.Context, referrerID, refereeID uint) ([]models.Referral, error) {
	maxLevels := s.settings.GetInt(ctx, domain.SettingReferralMaxLevels, 3)
	if maxLevels < 1 {
		maxLevels = 1
	}
	now := s.now().UTC()

	var created []models.Referral
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		users := s.users.WithTx(tx)
		refs := s.referrals.WithTx(tx)

		referee, err := users.GetByID(ctx, refereeID)
		if err != nil {
			return err
		}
		if referee.ReferredBy != nil {
			return ErrAlreadyReferred
		}
		if _, err := users.GetByID(ctx, referrerID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrReferrerNotFound
			}
			return err
		}
		ok, err := users.SetReferredBy(ctx, refereeID, referrerID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrAlreadyReferred
		}

		ancestor := referrerID
		for level := 1; level <= maxLevels; level++ {
			row := models.Referral{
				ReferrerID: ancestor,
				RefereeID:  refereeID,
				Level:      level,
				Status:     domain.ReferralStatusPending,
				CreatedAt:  now,
				UpdatedAt:  now,
			}
			inserted, err := refs.Create(ctx, &row)
			if err != nil {
				return err
			}
			if inserted {
				created = append(created, row)
			}
			if level == maxLevels {
				break
			}
			next, err := users.GetByID(ctx, ancestor)
			if err != nil {
				return err
			}
			if next.ReferredBy == nil || *next.ReferredBy == refereeID {
				break
			}
			ancestor = *next.ReferredBy
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	log.Info().Str("component", "referral").Uint("referrer_id", referrerID).Uint("referee_id", refereeID).
		Int("levels", len(created)).Msg("referral created")
	s.afterReferral(ctx, referrerID, refereeID)
	return created, nil
}

func (s *ReferralService) afterReferral(ctx context.Context, referrerID, refereeID uint) {
	notify(ctx, s.notifier, referrerID, domain.NotifyReferralJoined, "New referral",
		"Someone joined with your referral code", map[string]interface{}{"referee_id": refereeID})

	if s.gamification != nil {
		points := int64(s.settings.GetInt(ctx, domain.SettingPointsReferral, 50))
		if points > 0 {
			// AwardPoints re-evaluates badges, which covers the referral badges.
			if _, err := s.gamification.AwardPoints(ctx, referrerID, points, domain.PointsReferral,
				"Referral signup", domain.ReferralRef(refereeID)); err != nil {
				log.Warn().Err(err).Str("component", "referral").Uint("user_id", referrerID).Msg("referral points failed")
			}
		} else if _, err := s.gamification.CheckBadgeAchievements(ctx, referrerID); err != nil {
			log.Warn().Err(err).Str("component", "referral").Uint("user_id", referrerID).Msg("badge check failed")
		}
	}
	for _, l := range s.listeners {
		l.ReferralCreated(ctx, referrerID)
	}
}

// ActivateReferral flips every pending row of the referee to active.
func (s *ReferralService) ActivateReferral(ctx context.Context, refereeID uint) (int64, error) {
	return s.referrals.ActivateForReferee(ctx, refereeID, s.now().UTC())
}

// CreditReferralCommission pays each active ancestor of the referee its level
// percentage of amount, all in one transaction. An earning already recorded
// for the same beneficiary, task and level is skipped, so retries pay nothing twice.
func (s *ReferralService) CreditReferralCommission(ctx context.Context, refereeID, taskID uint, amount decimal.Decimal) ([]models.ReferralEarning, error) {
	if !amount.IsPositive() {
		return nil, nil
	}
	active, err := s.referrals.ListActiveByReferee(ctx, refereeID)
	if err != nil {
		return nil, err
	}
	if len(active) == 0 {
		return nil, nil
	}
	percents := make(map[int]decimal.Decimal, len(active))
	for _, ref := range active {
		percents[ref.Level] = s.levelPercent(ctx, ref.Level)
	}
	now := s.now().UTC()
	reference := fmt.Sprintf("task:%d", taskID)

	var credited []models.ReferralEarning
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		refs := s.referrals.WithTx(tx)
		wallet := s.wallet.WithTx(tx)
		for _, ref := range active {
			commission := amount.Mul(percents[ref.Level]).Div(decimal.NewFromInt(100)).Round(2)
			if !commission.IsPositive() {
				continue
			}
			e := models.ReferralEarning{
				UserID:     ref.ReferrerID,
				FromUserID: refereeID,
				TaskID:     taskID,
				Level:      ref.Level,
				Amount:     commission,
				Status:     domain.EarningStatusPending,
				CreatedAt:  now,
			}
			inserted, err := refs.CreateEarning(ctx, &e)
			if err != nil {
				return err
			}
			if !inserted {
				continue
			}
			if _, err := wallet.Credit(ctx, ref.ReferrerID, commission, domain.WalletTxReferralCommission, reference); err != nil {
				return err
			}
			if err := refs.MarkEarningCredited(ctx, e.ID, now); err != nil {
				return err
			}
			e.Status = domain.EarningStatusCredited
			e.CreditedAt = &now
			credited = append(credited, e)
		}
		return nil
	})
	if err != nil {
		log.Error().Err(err).Str("component", "referral").Uint("referee_id", refereeID).Uint("task_id", taskID).Msg("commission fan-out failed")
		return nil, err
	}
	for _, e := range credited {
		notifyCommission(ctx, s.notifier, e.UserID, e.Amount, e.Level)
	}
	return credited, nil
}

func (s *ReferralService) levelPercent(ctx context.Context, level int) decimal.Decimal {
	fallback := decimal.Zero
	switch level {
	case 1:
		fallback = decimal.NewFromInt(10)
	case 2:
		fallback = decimal.NewFromInt(5)
	case 3:
		fallback = decimal.NewFromInt(2)
	}
	return s.settings.GetDecimal(ctx, fmt.Sprintf(domain.SettingReferralLevelCommissionFmt, level), fallback)
}

// ReferralStats summarises a referrer's downline.
type ReferralStats struct {
	ReferralCode string                  `json:"referral_code"`
	Direct       int64                   `json:"direct_referrals"`
	Total        int64                   `json:"total_referrals"`
	ByLevel      []repository.LevelCount `json:"by_level"`
	TotalEarned  decimal.Decimal         `json:"total_earned"`
}

func (s *ReferralService) Stats(ctx context.Context, userID uint) (*ReferralStats, error) {
	u, err := s.users.GetByID(ctx, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	byLevel, err := s.referrals.CountByLevel(ctx, userID)
	if err != nil {
		return nil, err
	}
	earned, err := s.referrals.SumCredited(ctx, userID)
	if err != nil {
		return nil, err
	}
	st := &ReferralStats{ByLevel: byLevel, TotalEarned: earned}
	if u.ReferralCode != nil {
		st.ReferralCode = *u.ReferralCode
	}
	for _, lc := range byLevel {
		st.Total += lc.Count
		if lc.Level == 1 {
			st.Direct += lc.Count
		}
	}
	return st, nil
}

// ListReferrals returns the downline; level 0 means all levels.
func (s *ReferralService) ListReferrals(ctx context.Context, referrerID uint, level, limit, offset int) ([]models.Referral, error) {
	return s.referrals.ListByReferrer(ctx, referrerID, level, limit, offset)
}

func (s *ReferralService) ListEarnings(ctx context.Context, userID uint, limit, offset int) ([]models.ReferralEarning, error) {
	return s.referrals.ListEarnings(ctx, userID, limit, offset)
}

// ReferralCode returns the user's code, assigning it if the user has none yet.
func (s *ReferralService) ReferralCode(ctx context.Context, userID uint) (string, error) {
	u, err := s.users.GetByID(ctx, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", ErrUserNotFound
	}
	if err != nil {
		return "", err
	}
	if u.ReferralCode != nil && *u.ReferralCode != "" {
		return *u.ReferralCode, nil
	}
	code := GenerateReferralCode(u.ID)
	if err := s.users.SetReferralCode(ctx, u.ID, code); err != nil {
		return "", err
	}
	return code, nil
}
