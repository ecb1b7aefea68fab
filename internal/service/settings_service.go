package service

import (
	"context"
	"errors"
	"strconv"
	"time"

	"reviewhub/internal/models"
	"reviewhub/internal/repository"

	"github.com/puzpuzpuz/xsync"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type cachedSetting struct {
	value   string
	found   bool
	expires time.Time
}

// SettingsService reads system_settings through a per-process TTL cache.
// Set invalidates the key so the writing instance sees its change at once.
type SettingsService struct {
	repo  *repository.SettingRepository
	ttl   time.Duration
	now   func() time.Time
	cache *xsync.MapOf[string, cachedSetting]
}

func NewSettingsService(repo *repository.SettingRepository, ttl time.Duration) *SettingsService {
	return &SettingsService{
		repo:  repo,
		ttl:   ttl,
		now:   time.Now,
		cache: xsync.NewMapOf[cachedSetting](),
	}
}

// Get returns the raw value and whether the key exists.
func (s *SettingsService) Get(ctx context.Context, key string) (string, bool) {
	if c, ok := s.cache.Load(key); ok && s.now().Before(c.expires) {
		return c.value, c.found
	}
	val, err := s.repo.Get(ctx, key)
	found := err == nil
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		log.Warn().Err(err).Str("component", "settings").Str("key", key).Msg("settings lookup failed")
		return "", false
	}
	s.cache.Store(key, cachedSetting{value: val, found: found, expires: s.now().Add(s.ttl)})
	return val, found
}

func (s *SettingsService) GetInt(ctx context.Context, key string, fallback int) int {
	val, ok := s.Get(ctx, key)
	if !ok || val == "" {
		return fallback
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return n
}

func (s *SettingsService) GetDecimal(ctx context.Context, key string, fallback decimal.Decimal) decimal.Decimal {
	val, ok := s.Get(ctx, key)
	if !ok || val == "" {
		return fallback
	}
	d, err := decimal.NewFromString(val)
	if err != nil {
		return fallback
	}
	return d
}

func (s *SettingsService) Set(ctx context.Context, key, value string) error {
	if err := s.repo.Set(ctx, key, value); err != nil {
		return err
	}
	s.cache.Delete(key)
	return nil
}

func (s *SettingsService) All(ctx context.Context) ([]models.SystemSetting, error) {
	return s.repo.GetAll(ctx)
}
