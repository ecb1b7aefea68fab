package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"reviewhub/internal/domain"
	"reviewhub/internal/models"
	"reviewhub/internal/repository"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

var ErrUnknownSetting = errors.New("unknown setting key")

// Actor identifies who performed an admin action, for the audit log.
type Actor struct {
	UserID    uint
	IP        string
	UserAgent string
}

type AdminService struct {
	admin        *repository.AdminRepository
	audit        *repository.AuditLogRepository
	users        *repository.UserRepository
	settings     *SettingsService
	gamification *GamificationService
}

func NewAdminService(
	admin *repository.AdminRepository,
	audit *repository.AuditLogRepository,
	users *repository.UserRepository,
	settings *SettingsService,
	gamification *GamificationService,
) *AdminService {
	return &AdminService{admin: admin, audit: audit, users: users, settings: settings, gamification: gamification}
}

func (s *AdminService) Dashboard(ctx context.Context) (*repository.DashboardStats, error) {
	return s.admin.GetDashboardStats(ctx)
}

func (s *AdminService) Settings(ctx context.Context) ([]models.SystemSetting, error) {
	return s.settings.All(ctx)
}

// UpdateSettings writes known keys only; numeric keys must parse.
func (s *AdminService) UpdateSettings(ctx context.Context, actor Actor, values map[string]string) error {
	for k, v := range values {
		if !knownSetting(k) {
			return fmt.Errorf("%w: %s", ErrUnknownSetting, k)
		}
		if _, err := strconv.ParseFloat(v, 64); err != nil {
			return fmt.Errorf("%w: %s must be numeric", ErrUnknownSetting, k)
		}
	}
	for k, v := range values {
		if err := s.settings.Set(ctx, k, v); err != nil {
			return err
		}
	}
	s.record(ctx, actor, "settings.update", "system_settings", "", values)
	return nil
}

func knownSetting(key string) bool {
	if _, ok := domain.DefaultSettings[key]; ok {
		return true
	}
	var level int
	n, err := fmt.Sscanf(key, domain.SettingReferralLevelCommissionFmt, &level)
	return err == nil && n == 1 && level > 0 && fmt.Sprintf(domain.SettingReferralLevelCommissionFmt, level) == key
}

// SetKYC flips the verified flag. Verifying re-runs the badge checks so the
// Verified User badge lands immediately.
func (s *AdminService) SetKYC(ctx context.Context, actor Actor, userID uint, verified bool) error {
	if err := s.users.SetKYC(ctx, userID, verified); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	if verified {
		if _, err := s.gamification.CheckBadgeAchievements(ctx, userID); err != nil {
			log.Error().Err(err).Str("component", "admin").Uint("user_id", userID).Msg("badge check after kyc failed")
		}
	}
	s.record(ctx, actor, "user.kyc", "users", strconv.FormatUint(uint64(userID), 10), map[string]bool{"verified": verified})
	return nil
}

// Record stores an audit entry for an action performed elsewhere.
func (s *AdminService) Record(ctx context.Context, actor Actor, action, resource string, resourceID uint, meta interface{}) {
	s.record(ctx, actor, action, resource, strconv.FormatUint(uint64(resourceID), 10), meta)
}

func (s *AdminService) record(ctx context.Context, actor Actor, action, resource, resourceID string, meta interface{}) {
	entry := &models.AuditLog{
		Action:     action,
		Resource:   resource,
		ResourceID: resourceID,
		IP:         actor.IP,
		UserAgent:  truncate(actor.UserAgent, 512),
		CreatedAt:  time.Now().UTC(),
	}
	if actor.UserID != 0 {
		id := actor.UserID
		entry.UserID = &id
	}
	if meta != nil {
		if b, err := json.Marshal(meta); err == nil {
			entry.Metadata = string(b)
		}
	}
	if err := s.audit.Create(ctx, entry); err != nil {
		log.Error().Err(err).Str("component", "audit").Str("action", action).Msg("write audit log failed")
	}
}

func (s *AdminService) AuditLog(ctx context.Context, resource string, limit, offset int) ([]models.AuditLog, error) {
	return s.audit.List(ctx, resource, limit, offset)
}

func (s *AdminService) Users(ctx context.Context, search, role string, limit, offset int) ([]models.User, int64, error) {
	return s.users.List(ctx, search, role, limit, offset)
}
