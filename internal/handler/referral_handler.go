package handler

import (
	"net/http"
	"strconv"

	"reviewhub/internal/middleware"
	"reviewhub/internal/service"

	"github.com/gin-gonic/gin"
)

type ReferralHandler struct {
	svc *service.ReferralService
}

func NewReferralHandler(svc *service.ReferralService) *ReferralHandler {
	return &ReferralHandler{svc: svc}
}

func (h *ReferralHandler) GetCode(c *gin.Context) {
	code, err := h.svc.ReferralCode(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		respondError(c, err, "load referral code")
		return
	}
	c.JSON(http.StatusOK, gin.H{"referral_code": code})
}

// Claim links the caller to the owner of code. A user can be referred once.
func (h *ReferralHandler) Claim(c *gin.Context) {
	var req struct {
		Code string `json:"code" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	rows, err := h.svc.ClaimCode(c.Request.Context(), middleware.GetUserID(c), req.Code)
	if err != nil {
		respondError(c, err, "claim referral code")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"referrals": rows})
}

func (h *ReferralHandler) List(c *gin.Context) {
	limit, offset := parsePagination(c)
	level, _ := strconv.Atoi(c.Query("level"))
	rows, err := h.svc.ListReferrals(c.Request.Context(), middleware.GetUserID(c), level, limit, offset)
	if err != nil {
		respondError(c, err, "list referrals")
		return
	}
	c.JSON(http.StatusOK, gin.H{"referrals": rows})
}

func (h *ReferralHandler) Stats(c *gin.Context) {
	stats, err := h.svc.Stats(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		respondError(c, err, "load referral stats")
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *ReferralHandler) Earnings(c *gin.Context) {
	limit, offset := parsePagination(c)
	rows, err := h.svc.ListEarnings(c.Request.Context(), middleware.GetUserID(c), limit, offset)
	if err != nil {
		respondError(c, err, "list referral earnings")
		return
	}
	c.JSON(http.StatusOK, gin.H{"earnings": rows})
}
