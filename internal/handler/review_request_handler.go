package handler

import (
	"io"
	"net/http"

	"reviewhub/internal/middleware"
	"reviewhub/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const maxWebhookBody = 1 << 20

type ReviewRequestHandler struct {
	svc *service.ReviewRequestService
}

func NewReviewRequestHandler(svc *service.ReviewRequestService) *ReviewRequestHandler {
	return &ReviewRequestHandler{svc: svc}
}

// Create returns the review request plus checkout data when a gateway payment is needed.
func (h *ReviewRequestHandler) Create(c *gin.Context) {
	var req service.ReviewRequestInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	co, err := h.svc.Create(c.Request.Context(), middleware.GetUserID(c), req)
	if err != nil {
		respondError(c, err, "create review request")
		return
	}
	c.JSON(http.StatusCreated, co)
}

func (h *ReviewRequestHandler) ListMine(c *gin.Context) {
	limit, offset := parsePagination(c)
	list, err := h.svc.ListMine(c.Request.Context(), middleware.GetUserID(c), limit, offset)
	if err != nil {
		respondError(c, err, "list review requests")
		return
	}
	c.JSON(http.StatusOK, gin.H{"review_requests": list})
}

func (h *ReviewRequestHandler) VerifyPayment(c *gin.Context) {
	var req struct {
		OrderID   string `json:"order_id" binding:"required"`
		PaymentID string `json:"payment_id" binding:"required"`
		Signature string `json:"signature" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	rr, err := h.svc.VerifyPayment(c.Request.Context(), middleware.GetUserID(c), req.OrderID, req.PaymentID, req.Signature)
	if err != nil {
		respondError(c, err, "verify payment")
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "review_request": rr})
}

// Webhook verifies X-Razorpay-Signature over the raw body.
func (h *ReviewRequestHandler) Webhook(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
		return
	}
	sig := c.GetHeader("X-Razorpay-Signature")
	if sig == "" {
		sig = c.GetHeader("X-Webhook-Signature")
	}
	if err := h.svc.HandleWebhook(c.Request.Context(), body, sig); err != nil {
		log.Warn().Err(err).Str("component", "payment").Msg("webhook rejected")
		respondError(c, err, "process webhook")
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
