package service

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand/v2"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"reviewhub/internal/models"
	"reviewhub/internal/repository"

	"gorm.io/gorm"
)

var (
	ErrDeepLinkNotFound    = errors.New("deep link not found")
	ErrForbidden           = errors.New("forbidden")
	ErrShortCodeExhausted  = errors.New("could not generate a unique short code")
	ErrInvalidDestination  = errors.New("destination_url must be an absolute http or https URL")
	ErrInvalidLinkMetadata = errors.New("metadata must be valid JSON")
)

const (
	shortCodeCharset  = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	shortCodeLength   = 8
	shortCodeAttempts = 10
	analyticsDays     = 30
	topReferrerLimit  = 10
)

// Shuffler permutes n elements through swap, like rand.Shuffle.
type Shuffler func(n int, swap func(i, j int))

// GenerateUniqueShortCode shuffles the alphanumeric charset and takes the first
// eight characters, retrying on collision. It fails with ErrShortCodeExhausted
// after ten collisions.
func GenerateUniqueShortCode(ctx context.Context, exists func(context.Context, string) (bool, error), shuffle Shuffler) (string, error) {
	chars := []byte(shortCodeCharset)
	for i := 0; i < shortCodeAttempts; i++ {
		shuffle(len(chars), func(a, b int) { chars[a], chars[b] = chars[b], chars[a] })
		code := string(chars[:shortCodeLength])
		taken, err := exists(ctx, code)
		if err != nil {
			return "", err
		}
		if !taken {
			return code, nil
		}
	}
	return "", ErrShortCodeExhausted
}

type DeepLinkService struct {
	db      *gorm.DB
	repo    *repository.DeepLinkRepository
	baseURL string
	loc     *time.Location
	shuffle Shuffler
	now     func() time.Time
}

func NewDeepLinkService(db *gorm.DB, repo *repository.DeepLinkRepository, baseURL string, loc *time.Location) *DeepLinkService {
	if loc == nil {
		loc = time.UTC
	}
	return &DeepLinkService{
		db:      db,
		repo:    repo,
		baseURL: strings.TrimRight(baseURL, "/"),
		loc:     loc,
		shuffle: rand.Shuffle,
		now:     time.Now,
	}
}

type DeepLinkInput struct {
	DestinationURL string          `json:"destination_url" binding:"required"`
	Title          string          `json:"title"`
	Description    string          `json:"description"`
	Metadata       json.RawMessage `json:"metadata"`
}

type DeepLinkCreated struct {
	ID             uint   `json:"id"`
	ShortCode      string `json:"short_code"`
	ShortURL       string `json:"short_url"`
	DestinationURL string `json:"destination_url"`
}

func (s *DeepLinkService) Create(ctx context.Context, userID uint, in DeepLinkInput) (*DeepLinkCreated, error) {
	dest := strings.TrimSpace(in.DestinationURL)
	u, err := url.Parse(dest)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, ErrInvalidDestination
	}
	var meta string
	if len(in.Metadata) > 0 && string(in.Metadata) != "null" {
		if !json.Valid(in.Metadata) {
			return nil, ErrInvalidLinkMetadata
		}
		meta = string(in.Metadata)
	}
	code, err := GenerateUniqueShortCode(ctx, s.repo.CodeExists, s.shuffle)
	if err != nil {
		return nil, err
	}
	link := &models.DeepLink{
		UserID:         userID,
		ShortCode:      code,
		DestinationURL: dest,
		Title:          strings.TrimSpace(in.Title),
		Description:    in.Description,
		Metadata:       meta,
	}
	if err := s.repo.Create(ctx, link); err != nil {
		return nil, err
	}
	return &DeepLinkCreated{
		ID:             link.ID,
		ShortCode:      link.ShortCode,
		ShortURL:       s.ShortURL(link.ShortCode),
		DestinationURL: link.DestinationURL,
	}, nil
}

func (s *DeepLinkService) ShortURL(code string) string {
	return s.baseURL + "/l/" + code
}

// ClickInfo describes the request that followed a link.
type ClickInfo struct {
	IP        string
	UserAgent string
	Referrer  string
}

// Resolve counts a click and returns the link.
func (s *DeepLinkService) Resolve(ctx context.Context, code string, click ClickInfo) (*models.DeepLink, error) {
	var link *models.DeepLink
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		l, err := repo.GetByCode(ctx, code)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrDeepLinkNotFound
		}
		if err != nil {
			return err
		}
		if err := repo.IncrementClicks(ctx, l.ID); err != nil {
			return err
		}
		l.ClickCount++
		link = l
		return repo.CreateClick(ctx, &models.DeepLinkClick{
			DeepLinkID: l.ID,
			IP:         truncate(click.IP, 45),
			UserAgent:  truncate(click.UserAgent, 512),
			Referrer:   truncate(click.Referrer, 1024),
			ClickedAt:  s.now().UTC(),
		})
	})
	if err != nil {
		return nil, err
	}
	return link, nil
}

func (s *DeepLinkService) ListMine(ctx context.Context, userID uint, limit, offset int) ([]models.DeepLink, error) {
	return s.repo.ListByUser(ctx, userID, limit, offset)
}

type DailyClicks struct {
	Date   string `json:"date"`
	Clicks int64  `json:"clicks"`
}

type DeepLinkAnalytics struct {
	Link         *models.DeepLink           `json:"link"`
	ShortURL     string                     `json:"short_url"`
	TotalClicks  int64                      `json:"total_clicks"`
	UniqueIPs    int64                      `json:"unique_ips"`
	LastClickAt  *time.Time                 `json:"last_click_at"`
	Daily        []DailyClicks              `json:"daily"`
	TopReferrers []repository.ReferrerCount `json:"top_referrers"`
}

// Analytics reports click statistics for a link owned by userID.
func (s *DeepLinkService) Analytics(ctx context.Context, linkID, userID uint) (*DeepLinkAnalytics, error) {
	link, err := s.repo.GetByID(ctx, linkID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrDeepLinkNotFound
	}
	if err != nil {
		return nil, err
	}
	if link.UserID != userID {
		return nil, ErrForbidden
	}
	totals, err := s.repo.Totals(ctx, link.ID)
	if err != nil {
		return nil, err
	}
	out := &DeepLinkAnalytics{
		Link:        link,
		ShortURL:    s.ShortURL(link.ShortCode),
		TotalClicks: totals.TotalClicks,
		UniqueIPs:   totals.UniqueIPs,
	}
	last, err := s.repo.LastClick(ctx, link.ID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if last != nil {
		at := last.ClickedAt
		out.LastClickAt = &at
	}

	now := s.now().In(s.loc)
	first := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.loc).AddDate(0, 0, -(analyticsDays - 1))
	times, err := s.repo.ClickTimesSince(ctx, link.ID, first.UTC())
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int64, analyticsDays)
	for _, t := range times {
		counts[t.In(s.loc).Format(dateLayout)]++
	}
	out.Daily = make([]DailyClicks, analyticsDays)
	for i := 0; i < analyticsDays; i++ {
		day := first.AddDate(0, 0, i).Format(dateLayout)
		out.Daily[i] = DailyClicks{Date: day, Clicks: counts[day]}
	}

	out.TopReferrers, err = s.repo.TopReferrers(ctx, link.ID, topReferrerLimit)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
