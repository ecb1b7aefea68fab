package repository

import (
	"context"
	"strings"
	"time"

	"reviewhub/internal/models"

	"gorm.io/gorm"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// WithTx returns a copy bound to tx.
func (r *UserRepository) WithTx(tx *gorm.DB) *UserRepository {
	return &UserRepository{db: tx}
}

func (r *UserRepository) Create(ctx context.Context, u *models.User) error {
	return r.db.WithContext(ctx).Create(u).Error
}

func (r *UserRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var u models.User
	err := r.db.WithContext(ctx).First(&u, id).Error
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	err := r.db.WithContext(ctx).Where("email = ?", strings.ToLower(email)).First(&u).Error
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) GetByMobile(ctx context.Context, mobile string) (*models.User, error) {
	var u models.User
	err := r.db.WithContext(ctx).Where("mobile = ?", mobile).First(&u).Error
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByIdentifier looks a user up by email when the identifier contains '@', by mobile otherwise.
func (r *UserRepository) GetByIdentifier(ctx context.Context, identifier string) (*models.User, error) {
	if strings.Contains(identifier, "@") {
		return r.GetByEmail(ctx, identifier)
	}
	return r.GetByMobile(ctx, identifier)
}

func (r *UserRepository) GetByGoogleID(ctx context.Context, googleID string) (*models.User, error) {
	var u models.User
	err := r.db.WithContext(ctx).Where("google_id = ?", googleID).First(&u).Error
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) GetByReferralCode(ctx context.Context, code string) (*models.User, error) {
	var u models.User
	err := r.db.WithContext(ctx).Where("referral_code = ?", strings.ToUpper(code)).First(&u).Error
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) SetReferralCode(ctx context.Context, id uint, code string) error {
	return r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).
		UpdateColumn("referral_code", code).Error
}

// SetReferredBy sets referred_by only if it is still NULL. It reports whether the row changed.
func (r *UserRepository) SetReferredBy(ctx context.Context, refereeID, referrerID uint) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ? AND referred_by IS NULL", refereeID).
		UpdateColumn("referred_by", referrerID)
	return res.RowsAffected == 1, res.Error
}

// UpdateProfile writes only the given columns so balance and referral fields are never clobbered.
func (r *UserRepository) UpdateProfile(ctx context.Context, id uint, fields map[string]interface{}) error {
	if len(fields) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Updates(fields).Error
}

func (r *UserRepository) LinkGoogle(ctx context.Context, id uint, googleID, avatarURL string) error {
	fields := map[string]interface{}{"google_id": googleID}
	if avatarURL != "" {
		fields["avatar_url"] = avatarURL
	}
	return r.UpdateProfile(ctx, id, fields)
}

func (r *UserRepository) UpdatePassword(ctx context.Context, id uint, hash string) error {
	return r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).
		Update("password_hash", hash).Error
}

func (r *UserRepository) SetKYC(ctx context.Context, id uint, verified bool) error {
	res := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Update("kyc_verified", verified)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// MarkProfileCompleted stamps profile_completed_at once. It reports whether this call set it.
func (r *UserRepository) MarkProfileCompleted(ctx context.Context, id uint, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ? AND profile_completed_at IS NULL", id).
		UpdateColumn("profile_completed_at", at)
	return res.RowsAffected == 1, res.Error
}

// List returns users with search, role filter, and pagination.
func (r *UserRepository) List(ctx context.Context, search, role string, limit, offset int) ([]models.User, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.User{})
	if search != "" {
		q = q.Where("name LIKE ? OR email LIKE ?", "%"+search+"%", "%"+search+"%")
	}
	if role != "" {
		q = q.Where("role = ?", role)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var users []models.User
	err := q.Order("id DESC").Limit(limit).Offset(offset).Find(&users).Error
	return users, total, err
}
