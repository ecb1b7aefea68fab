package handler

import (
	"net/http"

	"reviewhub/internal/middleware"
	"reviewhub/internal/service"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	svc   *service.AuthService
	admin *service.AdminService
}

func NewAuthHandler(svc *service.AuthService, admin *service.AdminService) *AuthHandler {
	return &AuthHandler{svc: svc, admin: admin}
}

type LoginRequest struct {
	Identifier string `json:"identifier" binding:"required"`
	Password   string `json:"password" binding:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req service.RegisterInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	sess, err := h.svc.Register(c.Request.Context(), req)
	if err != nil {
		respondError(c, err, "register")
		return
	}
	h.audit(c, sess.User.ID, "auth.register")
	c.JSON(http.StatusCreated, sess)
}

// Login accepts an email or mobile number and counts the daily login streak.
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	sess, err := h.svc.Login(c.Request.Context(), req.Identifier, req.Password)
	if err != nil {
		respondError(c, err, "log in")
		return
	}
	h.audit(c, sess.User.ID, "auth.login")
	c.JSON(http.StatusOK, sess)
}

func (h *AuthHandler) ChangePassword(c *gin.Context) {
	var req struct {
		CurrentPassword string `json:"current_password" binding:"required"`
		NewPassword     string `json:"new_password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	userID := middleware.GetUserID(c)
	if err := h.svc.ChangePassword(c.Request.Context(), userID, req.CurrentPassword, req.NewPassword); err != nil {
		respondError(c, err, "change password")
		return
	}
	h.audit(c, userID, "auth.change_password")
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *AuthHandler) Refresh(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	sess, err := h.svc.RefreshToken(c.Request.Context(), req.RefreshToken)
	if err != nil {
		respondError(c, err, "refresh token")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"access_token":  sess.AccessToken,
		"refresh_token": sess.RefreshToken,
	})
}

func (h *AuthHandler) audit(c *gin.Context, userID uint, action string) {
	if h.admin == nil {
		return
	}
	a := actor(c)
	a.UserID = userID
	h.admin.Record(c.Request.Context(), a, action, "auth", userID, nil)
}
