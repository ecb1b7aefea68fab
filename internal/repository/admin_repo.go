package repository

import (
	"context"

	"reviewhub/internal/domain"
	"reviewhub/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type DashboardStats struct {
	TotalUsers         int64           `json:"total_users"`
	TotalSellers       int64           `json:"total_sellers"`
	KYCVerified        int64           `json:"kyc_verified"`
	ActiveRequests     int64           `json:"active_review_requests"`
	PendingRefunds     int64           `json:"pending_refunds"`
	CompletedTasks     int64           `json:"completed_tasks"`
	TotalReferrals     int64           `json:"total_referrals"`
	ActiveCompetitions int64           `json:"active_competitions"`
	TotalDeepLinks     int64           `json:"total_deep_links"`
	OpenConversations  int64           `json:"open_conversations"`
	TotalRevenue       decimal.Decimal `json:"total_revenue"`
	CommissionsPaid    decimal.Decimal `json:"commissions_paid"`
	RefundsPaid        decimal.Decimal `json:"refunds_paid"`
}

type AdminRepository struct {
	db *gorm.DB
}

func NewAdminRepository(db *gorm.DB) *AdminRepository {
	return &AdminRepository{db: db}
}

func (r *AdminRepository) GetDashboardStats(ctx context.Context) (*DashboardStats, error) {
	db := r.db.WithContext(ctx)
	var s DashboardStats
	counts := []struct {
		dst   *int64
		model interface{}
		where string
		args  []interface{}
	}{
		{&s.TotalUsers, &models.User{}, "role = ?", []interface{}{domain.RoleUser}},
		{&s.TotalSellers, &models.User{}, "role = ?", []interface{}{domain.RoleSeller}},
		{&s.KYCVerified, &models.User{}, "kyc_verified = ?", []interface{}{true}},
		{&s.ActiveRequests, &models.ReviewRequest{}, "status = ?", []interface{}{domain.ReviewRequestActive}},
		{&s.PendingRefunds, &models.Task{}, "status = ?", []interface{}{domain.TaskStatusRefundRequested}},
		{&s.CompletedTasks, &models.Task{}, "status = ?", []interface{}{domain.TaskStatusCompleted}},
		{&s.TotalReferrals, &models.Referral{}, "level = ?", []interface{}{1}},
		{&s.ActiveCompetitions, &models.Competition{}, "status = ?", []interface{}{domain.CompetitionActive}},
		{&s.TotalDeepLinks, &models.DeepLink{}, "1 = 1", nil},
		{&s.OpenConversations, &models.Conversation{}, "status = ?", []interface{}{domain.ConversationOpen}},
	}
	for _, c := range counts {
		if err := db.Model(c.model).Where(c.where, c.args...).Count(c.dst).Error; err != nil {
			return nil, err
		}
	}

	sums := []struct {
		dst   *decimal.Decimal
		model interface{}
		where string
		arg   string
	}{
		{&s.TotalRevenue, &models.Payment{}, "status = ?", domain.PaymentStatusCompleted},
		{&s.CommissionsPaid, &models.WalletTransaction{}, "type = ?", domain.WalletTxReferralCommission},
		{&s.RefundsPaid, &models.WalletTransaction{}, "type = ?", domain.WalletTxTaskRefund},
	}
	for _, sm := range sums {
		var row struct{ Total decimal.Decimal }
		if err := db.Model(sm.model).Select("COALESCE(SUM(amount), 0) AS total").
			Where(sm.where, sm.arg).Scan(&row).Error; err != nil {
			return nil, err
		}
		*sm.dst = row.Total
	}
	return &s, nil
}
