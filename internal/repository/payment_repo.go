package repository

import (
	"context"
	"time"

	"reviewhub/internal/domain"
	"reviewhub/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type PaymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

func (r *PaymentRepository) WithTx(tx *gorm.DB) *PaymentRepository {
	return &PaymentRepository{db: tx}
}

func (r *PaymentRepository) Create(ctx context.Context, p *models.Payment) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *PaymentRepository) GetByID(ctx context.Context, id uint) (*models.Payment, error) {
	var p models.Payment
	err := r.db.WithContext(ctx).First(&p, id).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PaymentRepository) GetByProviderRef(ctx context.Context, ref string) (*models.Payment, error) {
	var p models.Payment
	err := r.db.WithContext(ctx).Where("provider_ref = ?", ref).First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Complete moves a PENDING payment to COMPLETED. It reports whether this call did it,
// so a replayed callback is a no-op.
func (r *PaymentRepository) Complete(ctx context.Context, id uint, providerPaymentID string, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Payment{}).
		Where("id = ? AND status = ?", id, domain.PaymentStatusPending).
		Updates(map[string]interface{}{
			"status":              domain.PaymentStatusCompleted,
			"provider_payment_id": providerPaymentID,
			"completed_at":        at,
		})
	return res.RowsAffected == 1, res.Error
}

func (r *PaymentRepository) MarkFailed(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Model(&models.Payment{}).
		Where("id = ? AND status = ?", id, domain.PaymentStatusPending).
		Update("status", domain.PaymentStatusFailed).Error
}

// ExpirePending marks PENDING payments past expires_at as EXPIRED.
func (r *PaymentRepository) ExpirePending(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.Payment{}).
		Where("status = ? AND expires_at IS NOT NULL AND expires_at <= ?", domain.PaymentStatusPending, now).
		Update("status", domain.PaymentStatusExpired)
	return res.RowsAffected, res.Error
}

func (r *PaymentRepository) SumCompleted(ctx context.Context) (decimal.Decimal, error) {
	var row struct{ Total decimal.Decimal }
	err := r.db.WithContext(ctx).Model(&models.Payment{}).
		Select("COALESCE(SUM(amount), 0) AS total").
		Where("status = ?", domain.PaymentStatusCompleted).Scan(&row).Error
	return row.Total, err
}
