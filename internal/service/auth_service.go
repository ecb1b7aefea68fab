package service

import (
	"context"
	"errors"
	"strings"

	"reviewhub/config"
	"reviewhub/internal/auth"
	"reviewhub/internal/domain"
	"reviewhub/internal/models"
	"reviewhub/internal/repository"

	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	ErrEmailExists      = errors.New("email already registered")
	ErrMobileExists     = errors.New("mobile already registered")
	ErrInvalidCreds     = errors.New("invalid credentials")
	ErrInvalidRole      = errors.New("role must be USER or SELLER")
	ErrNoPasswordSet    = errors.New("account uses Google sign-in; set a password first")
	ErrPasswordTooShort = errors.New("password must be at least 8 characters")
)

const minPasswordLength = 8

type RegisterInput struct {
	Name         string `json:"name" binding:"required"`
	Email        string `json:"email" binding:"required,email"`
	Mobile       string `json:"mobile"`
	Password     string `json:"password" binding:"required"`
	Role         string `json:"role"`
	ReferralCode string `json:"referral_code"`
}

// Session is a user plus a fresh token pair.
type Session struct {
	User         *models.User `json:"user"`
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	IsNew        bool         `json:"is_new,omitempty"`
	LoginBonus   int64        `json:"login_bonus,omitempty"`
}

type AuthService struct {
	cfg          *config.Config
	users        *repository.UserRepository
	referrals    *ReferralService
	gamification *GamificationService
}

func NewAuthService(cfg *config.Config, users *repository.UserRepository, referrals *ReferralService, gamification *GamificationService) *AuthService {
	return &AuthService{cfg: cfg, users: users, referrals: referrals, gamification: gamification}
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	role := strings.ToUpper(strings.TrimSpace(in.Role))
	if role == "" {
		role = domain.RoleUser
	}
	if role != domain.RoleUser && role != domain.RoleSeller {
		return nil, ErrInvalidRole
	}
	if len(in.Password) < minPasswordLength {
		return nil, ErrPasswordTooShort
	}
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, ErrEmailExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	var mobile *string
	if m := strings.TrimSpace(in.Mobile); m != "" {
		if _, err := s.users.GetByMobile(ctx, m); err == nil {
			return nil, ErrMobileExists
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		mobile = &m
	}
	// Validate the code up front so a bad code doesn't leave an orphan account.
	if code := strings.TrimSpace(in.ReferralCode); code != "" {
		if _, err := s.users.GetByReferralCode(ctx, code); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrInvalidReferralCode
			}
			return nil, err
		}
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	u := &models.User{
		Name:         strings.TrimSpace(in.Name),
		Email:        email,
		Mobile:       mobile,
		PasswordHash: string(hash),
		Role:         role,
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}
	code := GenerateReferralCode(u.ID)
	if err := s.users.SetReferralCode(ctx, u.ID, code); err != nil {
		return nil, err
	}
	u.ReferralCode = &code

	if rc := strings.TrimSpace(in.ReferralCode); rc != "" {
		if _, err := s.referrals.ClaimCode(ctx, u.ID, rc); err != nil {
			// The account exists at this point; a failed claim is logged, not fatal.
			log.Warn().Err(err).Str("component", "auth").Uint("user_id", u.ID).Msg("referral claim at signup failed")
		} else if fresh, err := s.users.GetByID(ctx, u.ID); err == nil {
			u = fresh
		}
	}
	log.Info().Str("component", "auth").Uint("user_id", u.ID).Str("role", u.Role).Msg("user registered")
	return s.session(u, true)
}

// Login accepts an email or mobile number as identifier.
func (s *AuthService) Login(ctx context.Context, identifier, password string) (*Session, error) {
	u, err := s.users.GetByIdentifier(ctx, strings.TrimSpace(identifier))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCreds
		}
		return nil, err
	}
	if u.PasswordHash == "" {
		return nil, ErrInvalidCreds
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCreds
	}
	sess, err := s.session(u, false)
	if err != nil {
		return nil, err
	}
	sess.LoginBonus = s.touchStreak(ctx, u.ID)
	return sess, nil
}

func (s *AuthService) touchStreak(ctx context.Context, userID uint) int64 {
	if s.gamification == nil {
		return 0
	}
	bonus, err := s.gamification.UpdateLoginStreak(ctx, userID)
	if err != nil {
		log.Error().Err(err).Str("component", "auth").Uint("user_id", userID).Msg("login streak update failed")
		return 0
	}
	return bonus
}

// LoginWithGoogle finds the user by Google id, links an existing account by
// email, or creates a USER.
func (s *AuthService) LoginWithGoogle(ctx context.Context, googleID, email, name, avatarURL string) (*Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	u, err := s.users.GetByGoogleID(ctx, googleID)
	if err == nil {
		sess, err := s.session(u, false)
		if err != nil {
			return nil, err
		}
		sess.LoginBonus = s.touchStreak(ctx, u.ID)
		return sess, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if existing, err := s.users.GetByEmail(ctx, email); err == nil {
		avatar := ""
		if existing.AvatarURL == "" {
			avatar = avatarURL
		}
		if err := s.users.LinkGoogle(ctx, existing.ID, googleID, avatar); err != nil {
			return nil, err
		}
		existing.GoogleID = &googleID
		if avatar != "" {
			existing.AvatarURL = avatar
		}
		sess, err := s.session(existing, false)
		if err != nil {
			return nil, err
		}
		sess.LoginBonus = s.touchStreak(ctx, existing.ID)
		return sess, nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	if name == "" {
		name = strings.Split(email, "@")[0]
	}
	gid := googleID
	u = &models.User{
		Name:      name,
		Email:     email,
		GoogleID:  &gid,
		Role:      domain.RoleUser,
		AvatarURL: avatarURL,
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}
	code := GenerateReferralCode(u.ID)
	if err := s.users.SetReferralCode(ctx, u.ID, code); err != nil {
		return nil, err
	}
	u.ReferralCode = &code
	return s.session(u, true)
}

func (s *AuthService) ChangePassword(ctx context.Context, userID uint, currentPassword, newPassword string) error {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return ErrInvalidCreds
	}
	if u.PasswordHash == "" {
		return ErrNoPasswordSet
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(currentPassword)); err != nil {
		return ErrInvalidCreds
	}
	if len(newPassword) < minPasswordLength {
		return ErrPasswordTooShort
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.users.UpdatePassword(ctx, userID, string(hash))
}

func (s *AuthService) RefreshToken(ctx context.Context, refreshToken string) (*Session, error) {
	userID, err := auth.ParseRefreshToken(&s.cfg.JWT, refreshToken)
	if err != nil {
		return nil, err
	}
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, auth.ErrInvalidToken
		}
		return nil, err
	}
	return s.session(u, false)
}

func (s *AuthService) session(u *models.User, isNew bool) (*Session, error) {
	access, err := auth.GenerateAccessToken(&s.cfg.JWT, u.ID, u.Email, u.Role)
	if err != nil {
		return nil, err
	}
	refresh, err := auth.GenerateRefreshToken(&s.cfg.JWT, u.ID)
	if err != nil {
		return nil, err
	}
	return &Session{User: u, AccessToken: access, RefreshToken: refresh, IsNew: isNew}, nil
}
