package handler

import (
	"net/http"

	"reviewhub/internal/middleware"
	"reviewhub/internal/service"

	"github.com/gin-gonic/gin"
)

type ChatHandler struct {
	svc *service.ChatService
}

func NewChatHandler(svc *service.ChatService) *ChatHandler {
	return &ChatHandler{svc: svc}
}

// ListConversations returns the caller's threads; admins see all, filterable by ?status=.
func (h *ChatHandler) ListConversations(c *gin.Context) {
	limit, offset := parsePagination(c)
	list, err := h.svc.List(c.Request.Context(), viewer(c), c.Query("status"), limit, offset)
	if err != nil {
		respondError(c, err, "list conversations")
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversations": list})
}

func (h *ChatHandler) OpenConversation(c *gin.Context) {
	var req struct {
		Subject string `json:"subject"`
		Body    string `json:"body" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	conv, msg, err := h.svc.Open(c.Request.Context(), middleware.GetUserID(c), req.Subject, req.Body)
	if err != nil {
		respondError(c, err, "open conversation")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"conversation": conv, "message": msg})
}

func (h *ChatHandler) GetMessages(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	limit, offset := parsePagination(c)
	list, err := h.svc.Messages(c.Request.Context(), viewer(c), id, limit, offset)
	if err != nil {
		respondError(c, err, "list messages")
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": list})
}

func (h *ChatHandler) SendMessage(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req struct {
		Body     string `json:"body"`
		MediaURL string `json:"media_url"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	msg, err := h.svc.Send(c.Request.Context(), viewer(c), id, req.Body, req.MediaURL)
	if err != nil {
		respondError(c, err, "send message")
		return
	}
	c.JSON(http.StatusCreated, msg)
}

func (h *ChatHandler) Close(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Close(c.Request.Context(), viewer(c), id); err != nil {
		respondError(c, err, "close conversation")
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
