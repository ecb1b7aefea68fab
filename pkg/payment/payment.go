package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var ErrInvalidWebhook = errors.New("payment: malformed webhook payload")

type OrderRequest struct {
	Amount   decimal.Decimal
	Currency string
	Receipt  string
	Notes    map[string]string
}

type Order struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"` // minor units
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

// Gateway is a hosted checkout: the server creates an order, the client pays
// it, and the gateway returns a signed (order, payment) pair.
type Gateway interface {
	Name() string
	KeyID() string
	CreateOrder(ctx context.Context, req OrderRequest) (*Order, error)
	VerifyPaymentSignature(orderID, paymentID, signature string) bool
	VerifyWebhookSignature(body []byte, signature string) bool
}

// MinorUnits converts a major-unit amount to paise/cents.
func MinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

// Sign returns the hex HMAC-SHA256 of message under secret.
func Sign(secret, message string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(message))
	return hex.EncodeToString(mac.Sum(nil))
}

func verify(secret, message, signature string) bool {
	if secret == "" || signature == "" {
		return false
	}
	return hmac.Equal([]byte(signature), []byte(Sign(secret, message)))
}

// PaymentSignatureMessage is the string the checkout signature covers.
func PaymentSignatureMessage(orderID, paymentID string) string {
	return orderID + "|" + paymentID
}

type WebhookEvent struct {
	Event     string
	OrderID   string
	PaymentID string
	Status    string
}

// ParseWebhook reads a payment.captured / payment.failed / order.paid event.
func ParseWebhook(body []byte) (*WebhookEvent, error) {
	var raw struct {
		Event   string `json:"event"`
		Payload struct {
			Payment struct {
				Entity struct {
					ID      string `json:"id"`
					OrderID string `json:"order_id"`
					Status  string `json:"status"`
				} `json:"entity"`
			} `json:"payment"`
		} `json:"payload"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidWebhook, err)
	}
	e := raw.Payload.Payment.Entity
	if raw.Event == "" || e.OrderID == "" {
		return nil, ErrInvalidWebhook
	}
	return &WebhookEvent{Event: raw.Event, OrderID: e.OrderID, PaymentID: e.ID, Status: e.Status}, nil
}
