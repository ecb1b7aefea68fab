package handler

import (
	"net/http"
	"strconv"

	"reviewhub/internal/middleware"
	"reviewhub/internal/service"

	"github.com/gin-gonic/gin"
)

type CompetitionHandler struct {
	svc   *service.CompetitionService
	admin *service.AdminService
}

func NewCompetitionHandler(svc *service.CompetitionService, admin *service.AdminService) *CompetitionHandler {
	return &CompetitionHandler{svc: svc, admin: admin}
}

func (h *CompetitionHandler) ListActive(c *gin.Context) {
	list, err := h.svc.GetActiveCompetitions(c.Request.Context())
	if err != nil {
		respondError(c, err, "list competitions")
		return
	}
	c.JSON(http.StatusOK, gin.H{"competitions": list})
}

func (h *CompetitionHandler) Join(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	p, err := h.svc.JoinCompetition(c.Request.Context(), id, middleware.GetUserID(c))
	if err != nil {
		respondError(c, err, "join competition")
		return
	}
	c.JSON(http.StatusCreated, p)
}

func (h *CompetitionHandler) Leaderboard(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	lb, err := h.svc.GetCompetitionLeaderboard(c.Request.Context(), id, limit)
	if err != nil {
		respondError(c, err, "load competition leaderboard")
		return
	}
	c.JSON(http.StatusOK, lb)
}

func (h *CompetitionHandler) ListMine(c *gin.Context) {
	list, err := h.svc.ListUserCompetitions(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		respondError(c, err, "list competitions")
		return
	}
	c.JSON(http.StatusOK, gin.H{"competitions": list})
}

func (h *CompetitionHandler) Create(c *gin.Context) {
	var req service.CompetitionInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	comp, err := h.svc.CreateCompetition(c.Request.Context(), req)
	if err != nil {
		respondError(c, err, "create competition")
		return
	}
	h.admin.Record(c.Request.Context(), actor(c), "competition.create", "competitions", comp.ID, gin.H{"slug": comp.Slug})
	c.JSON(http.StatusCreated, comp)
}

func (h *CompetitionHandler) Recompute(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.RecomputeRanks(c.Request.Context(), id); err != nil {
		respondError(c, err, "recompute ranks")
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
