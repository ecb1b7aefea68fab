package handler

import (
	"net/http"

	"reviewhub/internal/middleware"
	"reviewhub/internal/service"

	"github.com/gin-gonic/gin"
)

type MeHandler struct {
	profile *service.ProfileService
}

func NewMeHandler(profile *service.ProfileService) *MeHandler {
	return &MeHandler{profile: profile}
}

func (h *MeHandler) GetProfile(c *gin.Context) {
	u, err := h.profile.Get(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		respondError(c, err, "load profile")
		return
	}
	c.JSON(http.StatusOK, u)
}

// UpdateProfile patches name, mobile and avatar_url. Completing the profile pays a one-time bonus.
func (h *MeHandler) UpdateProfile(c *gin.Context) {
	var req service.ProfileUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	u, err := h.profile.Update(c.Request.Context(), middleware.GetUserID(c), req)
	if err != nil {
		respondError(c, err, "update profile")
		return
	}
	c.JSON(http.StatusOK, u)
}
