package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"reviewhub/internal/domain"
	"reviewhub/internal/models"
	"reviewhub/internal/repository"
	"reviewhub/pkg/payment"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	ErrInvalidReviewRequest = errors.New("invalid review request")
	ErrInvalidSignature     = errors.New("invalid payment signature")
	ErrPaymentNotFound      = errors.New("payment not found")
	ErrPaymentNotPending    = errors.New("payment is no longer pending")
)

const maxReviewQuantity = 1000

type ReviewRequestInput struct {
	ProductName   string          `json:"product_name" binding:"required"`
	ProductURL    string          `json:"product_url" binding:"required"`
	Platform      string          `json:"platform"`
	Instructions  string          `json:"instructions"`
	Quantity      int             `json:"quantity" binding:"required"`
	AmountPerTask decimal.Decimal `json:"amount_per_task"`
	PayWithWallet bool            `json:"pay_with_wallet"`
}

// Checkout is what the client needs to pay. Payment and OrderID are empty for wallet payments.
type Checkout struct {
	ReviewRequest *models.ReviewRequest `json:"review_request"`
	Payment       *models.Payment       `json:"payment,omitempty"`
	Provider      string                `json:"provider,omitempty"`
	KeyID         string                `json:"key_id,omitempty"`
	OrderID       string                `json:"order_id,omitempty"`
	AmountMinor   int64                 `json:"amount_minor,omitempty"`
	Currency      string                `json:"currency,omitempty"`
}

type ReviewRequestService struct {
	db       *gorm.DB
	requests *repository.ReviewRequestRepository
	payments *repository.PaymentRepository
	wallet   *repository.WalletRepository
	gateway  payment.Gateway
	settings *SettingsService
	notifier Notifier
	currency string
	now      func() time.Time
}

func NewReviewRequestService(
	db *gorm.DB,
	requests *repository.ReviewRequestRepository,
	payments *repository.PaymentRepository,
	wallet *repository.WalletRepository,
	gateway payment.Gateway,
	settings *SettingsService,
	notifier Notifier,
	currency string,
) *ReviewRequestService {
	if currency == "" {
		currency = "INR"
	}
	return &ReviewRequestService{
		db:       db,
		requests: requests,
		payments: payments,
		wallet:   wallet,
		gateway:  gateway,
		settings: settings,
		notifier: notifier,
		currency: currency,
		now:      time.Now,
	}
}

func (s *ReviewRequestService) validate(ctx context.Context, in *ReviewRequestInput) error {
	in.ProductName = strings.TrimSpace(in.ProductName)
	in.ProductURL = strings.TrimSpace(in.ProductURL)
	if in.ProductName == "" {
		return fmt.Errorf("%w: product_name is required", ErrInvalidReviewRequest)
	}
	u, err := url.Parse(in.ProductURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: product_url must be an absolute http or https URL", ErrInvalidReviewRequest)
	}
	if in.Quantity < 1 || in.Quantity > maxReviewQuantity {
		return fmt.Errorf("%w: quantity must be between 1 and %d", ErrInvalidReviewRequest, maxReviewQuantity)
	}
	minAmount := s.settings.GetDecimal(ctx, domain.SettingMinTaskAmount, decimal.NewFromInt(1))
	if in.AmountPerTask.LessThan(minAmount) || !in.AmountPerTask.IsPositive() {
		return fmt.Errorf("%w: amount_per_task must be at least %s", ErrInvalidReviewRequest, minAmount.StringFixed(2))
	}
	if !in.AmountPerTask.Equal(in.AmountPerTask.Round(2)) {
		return fmt.Errorf("%w: amount_per_task has more than two decimals", ErrInvalidReviewRequest)
	}
	return nil
}

// Create stores a review request. Paid from the wallet it is active at once;
// otherwise a gateway order is opened and the request waits for payment.
func (s *ReviewRequestService) Create(ctx context.Context, sellerID uint, in ReviewRequestInput) (*Checkout, error) {
	if err := s.validate(ctx, &in); err != nil {
		return nil, err
	}
	total := in.AmountPerTask.Mul(decimal.NewFromInt(int64(in.Quantity)))
	rr := &models.ReviewRequest{
		SellerID:      sellerID,
		ProductName:   in.ProductName,
		ProductURL:    in.ProductURL,
		Platform:      in.Platform,
		Instructions:  in.Instructions,
		Quantity:      in.Quantity,
		AmountPerTask: in.AmountPerTask,
		TotalAmount:   total,
	}

	if in.PayWithWallet {
		rr.Status = domain.ReviewRequestActive
		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := s.requests.WithTx(tx).Create(ctx, rr); err != nil {
				return err
			}
			_, err := s.wallet.WithTx(tx).Debit(ctx, sellerID, total,
				domain.WalletTxReviewRequestPayment, fmt.Sprintf("review_request:%d", rr.ID))
			return err
		})
		if err != nil {
			return nil, err
		}
		return &Checkout{ReviewRequest: rr}, nil
	}

	expiry := time.Duration(s.settings.GetInt(ctx, domain.SettingPaymentExpiryMinutes, 30)) * time.Minute
	receipt := "rr_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:20]
	order, err := s.gateway.CreateOrder(ctx, payment.OrderRequest{
		Amount:   total,
		Currency: s.currency,
		Receipt:  receipt,
		Notes:    map[string]string{"seller_id": fmt.Sprint(sellerID), "product": in.ProductName},
	})
	if err != nil {
		log.Error().Err(err).Str("component", "payment").Uint("seller_id", sellerID).Msg("create gateway order failed")
		return nil, fmt.Errorf("create payment order: %w", err)
	}

	expiresAt := s.now().UTC().Add(expiry)
	rr.Status = domain.ReviewRequestPendingPayment
	p := &models.Payment{
		UserID:      sellerID,
		Amount:      total,
		Currency:    s.currency,
		Provider:    s.gateway.Name(),
		ProviderRef: order.ID,
		Status:      domain.PaymentStatusPending,
		Purpose:     domain.PaymentPurposeReviewRequest,
		ExpiresAt:   &expiresAt,
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		requests := s.requests.WithTx(tx)
		if err := requests.Create(ctx, rr); err != nil {
			return err
		}
		meta, _ := json.Marshal(map[string]interface{}{"review_request_id": rr.ID, "receipt": receipt})
		p.Metadata = string(meta)
		if err := s.payments.WithTx(tx).Create(ctx, p); err != nil {
			return err
		}
		rr.PaymentID = &p.ID
		return requests.SetPayment(ctx, rr.ID, p.ID)
	})
	if err != nil {
		return nil, err
	}
	return &Checkout{
		ReviewRequest: rr,
		Payment:       p,
		Provider:      s.gateway.Name(),
		KeyID:         s.gateway.KeyID(),
		OrderID:       order.ID,
		AmountMinor:   payment.MinorUnits(total),
		Currency:      s.currency,
	}, nil
}

// VerifyPayment checks the checkout signature and completes the payment.
// Repeating it for a completed payment returns the request unchanged.
func (s *ReviewRequestService) VerifyPayment(ctx context.Context, userID uint, orderID, paymentID, signature string) (*models.ReviewRequest, error) {
	if !s.gateway.VerifyPaymentSignature(orderID, paymentID, signature) {
		return nil, ErrInvalidSignature
	}
	p, err := s.payments.GetByProviderRef(ctx, orderID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPaymentNotFound
	}
	if err != nil {
		return nil, err
	}
	if p.UserID != userID {
		return nil, ErrForbidden
	}
	return s.complete(ctx, p, paymentID)
}

// HandleWebhook applies a signed gateway event.
func (s *ReviewRequestService) HandleWebhook(ctx context.Context, body []byte, signature string) error {
	if !s.gateway.VerifyWebhookSignature(body, signature) {
		return ErrInvalidSignature
	}
	ev, err := payment.ParseWebhook(body)
	if err != nil {
		return err
	}
	p, err := s.payments.GetByProviderRef(ctx, ev.OrderID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrPaymentNotFound
	}
	if err != nil {
		return err
	}
	switch ev.Event {
	case "payment.captured", "order.paid":
		_, err = s.complete(ctx, p, ev.PaymentID)
		if errors.Is(err, ErrPaymentNotPending) {
			log.Warn().Str("component", "payment").Str("order_id", ev.OrderID).Str("status", p.Status).Msg("capture for non-pending payment")
			return nil
		}
		return err
	case "payment.failed":
		return s.payments.MarkFailed(ctx, p.ID)
	}
	log.Debug().Str("component", "payment").Str("event", ev.Event).Msg("ignored webhook event")
	return nil
}

func (s *ReviewRequestService) complete(ctx context.Context, p *models.Payment, providerPaymentID string) (*models.ReviewRequest, error) {
	switch p.Status {
	case domain.PaymentStatusCompleted:
		return s.requests.GetByPaymentID(ctx, p.ID)
	case domain.PaymentStatusPending:
	default:
		return nil, ErrPaymentNotPending
	}
	now := s.now().UTC()
	completed := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ok, err := s.payments.WithTx(tx).Complete(ctx, p.ID, providerPaymentID, now)
		if err != nil || !ok {
			return err
		}
		completed = true
		rr, err := s.requests.WithTx(tx).GetByPaymentID(ctx, p.ID)
		if err != nil {
			return err
		}
		_, err = s.requests.WithTx(tx).Activate(ctx, rr.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	rr, err := s.requests.GetByPaymentID(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	if completed {
		log.Info().Str("component", "payment").Uint("payment_id", p.ID).Uint("review_request_id", rr.ID).Msg("payment completed")
		notify(ctx, s.notifier, p.UserID, domain.NotifyPaymentConfirmed, "Payment confirmed",
			fmt.Sprintf("Your review request for %s is live", rr.ProductName),
			map[string]interface{}{"review_request_id": rr.ID, "amount": p.Amount.StringFixed(2)})
	}
	return rr, nil
}

func (s *ReviewRequestService) ListAvailable(ctx context.Context, limit, offset int) ([]models.ReviewRequest, error) {
	return s.requests.ListAvailable(ctx, limit, offset)
}

func (s *ReviewRequestService) ListMine(ctx context.Context, sellerID uint, limit, offset int) ([]models.ReviewRequest, error) {
	return s.requests.ListBySeller(ctx, sellerID, limit, offset)
}

// ExpirePayments marks overdue pending payments as expired.
func (s *ReviewRequestService) ExpirePayments(ctx context.Context) (int64, error) {
	return s.payments.ExpirePending(ctx, s.now().UTC())
}
