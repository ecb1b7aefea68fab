package handler

import (
	"net/http"

	"reviewhub/internal/middleware"
	"reviewhub/internal/service"

	"github.com/gin-gonic/gin"
)

type WalletHandler struct {
	profile *service.ProfileService
}

func NewWalletHandler(profile *service.ProfileService) *WalletHandler {
	return &WalletHandler{profile: profile}
}

func (h *WalletHandler) GetBalance(c *gin.Context) {
	w, err := h.profile.Wallet(c.Request.Context(), middleware.GetUserID(c), 10)
	if err != nil {
		respondError(c, err, "load wallet")
		return
	}
	c.JSON(http.StatusOK, w)
}

func (h *WalletHandler) GetTransactions(c *gin.Context) {
	limit, offset := parsePagination(c)
	list, err := h.profile.WalletTransactions(c.Request.Context(), middleware.GetUserID(c), limit, offset)
	if err != nil {
		respondError(c, err, "list wallet transactions")
		return
	}
	c.JSON(http.StatusOK, gin.H{"transactions": list})
}
