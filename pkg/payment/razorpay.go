package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultRazorpayURL = "https://api.razorpay.com"

// RazorpayGateway creates orders through the Razorpay REST API and verifies
// checkout and webhook signatures.
type RazorpayGateway struct {
	BaseURL       string
	keyID         string
	keySecret     string
	webhookSecret string
	client        *http.Client
}

func NewRazorpayGateway(baseURL, keyID, keySecret, webhookSecret string) *RazorpayGateway {
	if baseURL == "" {
		baseURL = defaultRazorpayURL
	}
	return &RazorpayGateway{
		BaseURL:       baseURL,
		keyID:         keyID,
		keySecret:     keySecret,
		webhookSecret: webhookSecret,
		client:        &http.Client{Timeout: 15 * time.Second},
	}
}

func (g *RazorpayGateway) Name() string  { return "razorpay" }
func (g *RazorpayGateway) KeyID() string { return g.keyID }

type razorpayOrderReq struct {
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt"`
	Notes    map[string]string `json:"notes,omitempty"`
}

func (g *RazorpayGateway) CreateOrder(ctx context.Context, r OrderRequest) (*Order, error) {
	body, err := json.Marshal(razorpayOrderReq{
		Amount:   MinorUnits(r.Amount),
		Currency: r.Currency,
		Receipt:  r.Receipt,
		Notes:    r.Notes,
	})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.BaseURL+"/v1/orders", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(g.keyID, g.keySecret)
	resp, err := g.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("razorpay create order: %d %s", resp.StatusCode, string(respBody))
	}
	var out Order
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, err
	}
	if out.ID == "" {
		return nil, fmt.Errorf("razorpay create order: empty order id")
	}
	return &out, nil
}

func (g *RazorpayGateway) VerifyPaymentSignature(orderID, paymentID, signature string) bool {
	return verify(g.keySecret, PaymentSignatureMessage(orderID, paymentID), signature)
}

func (g *RazorpayGateway) VerifyWebhookSignature(body []byte, signature string) bool {
	return verify(g.webhookSecret, string(body), signature)
}
