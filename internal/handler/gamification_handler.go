package handler

import (
	"net/http"
	"strconv"

	"reviewhub/internal/middleware"
	"reviewhub/internal/service"

	"github.com/gin-gonic/gin"
)

type GamificationHandler struct {
	svc *service.GamificationService
}

func NewGamificationHandler(svc *service.GamificationService) *GamificationHandler {
	return &GamificationHandler{svc: svc}
}

func (h *GamificationHandler) Points(c *gin.Context) {
	up, err := h.svc.GetUserPoints(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		respondError(c, err, "load points")
		return
	}
	c.JSON(http.StatusOK, up)
}

func (h *GamificationHandler) History(c *gin.Context) {
	limit, offset := parsePagination(c)
	list, err := h.svc.ListPointHistory(c.Request.Context(), middleware.GetUserID(c), limit, offset)
	if err != nil {
		respondError(c, err, "list point history")
		return
	}
	c.JSON(http.StatusOK, gin.H{"transactions": list})
}

func (h *GamificationHandler) MyBadges(c *gin.Context) {
	list, err := h.svc.ListUserBadges(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		respondError(c, err, "list badges")
		return
	}
	c.JSON(http.StatusOK, gin.H{"badges": list})
}

func (h *GamificationHandler) Rank(c *gin.Context) {
	r, err := h.svc.GetUserRank(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		respondError(c, err, "load rank")
		return
	}
	c.JSON(http.StatusOK, r)
}

func (h *GamificationHandler) Badges(c *gin.Context) {
	list, err := h.svc.ListBadges(c.Request.Context())
	if err != nil {
		respondError(c, err, "list badges")
		return
	}
	c.JSON(http.StatusOK, gin.H{"badges": list})
}

func (h *GamificationHandler) Levels(c *gin.Context) {
	list, err := h.svc.ListLevels(c.Request.Context())
	if err != nil {
		respondError(c, err, "list levels")
		return
	}
	c.JSON(http.StatusOK, gin.H{"levels": list})
}

// Leaderboard handles GET /leaderboard?period=daily|weekly|monthly|all&limit=N.
func (h *GamificationHandler) Leaderboard(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	rows, err := h.svc.GetLeaderboard(c.Request.Context(), c.DefaultQuery("period", "all"), limit)
	if err != nil {
		respondError(c, err, "load leaderboard")
		return
	}
	c.JSON(http.StatusOK, gin.H{"leaderboard": rows})
}
