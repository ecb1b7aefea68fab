package payment

import (
	"context"
	"strings"

	"github.com/google/uuid"
)

// StubGateway issues local order ids and verifies signatures with the
// configured secrets, for development and tests.
type StubGateway struct {
	keySecret     string
	webhookSecret string
}

func NewStubGateway(keySecret, webhookSecret string) *StubGateway {
	return &StubGateway{keySecret: keySecret, webhookSecret: webhookSecret}
}

func (g *StubGateway) Name() string  { return "stub" }
func (g *StubGateway) KeyID() string { return "stub_key" }

func (g *StubGateway) CreateOrder(ctx context.Context, r OrderRequest) (*Order, error) {
	return &Order{
		ID:       "order_stub_" + strings.ReplaceAll(uuid.NewString(), "-", ""),
		Amount:   MinorUnits(r.Amount),
		Currency: r.Currency,
		Receipt:  r.Receipt,
		Status:   "created",
	}, nil
}

func (g *StubGateway) VerifyPaymentSignature(orderID, paymentID, signature string) bool {
	return verify(g.keySecret, PaymentSignatureMessage(orderID, paymentID), signature)
}

func (g *StubGateway) VerifyWebhookSignature(body []byte, signature string) bool {
	return verify(g.webhookSecret, string(body), signature)
}
