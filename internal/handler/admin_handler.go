package handler

import (
	"net/http"

	"reviewhub/internal/service"

	"github.com/gin-gonic/gin"
)

type AdminHandler struct {
	admin *service.AdminService
	tasks *service.TaskService
}

func NewAdminHandler(admin *service.AdminService, tasks *service.TaskService) *AdminHandler {
	return &AdminHandler{admin: admin, tasks: tasks}
}

func (h *AdminHandler) Dashboard(c *gin.Context) {
	stats, err := h.admin.Dashboard(c.Request.Context())
	if err != nil {
		respondError(c, err, "load dashboard")
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *AdminHandler) GetSettings(c *gin.Context) {
	list, err := h.admin.Settings(c.Request.Context())
	if err != nil {
		respondError(c, err, "load settings")
		return
	}
	c.JSON(http.StatusOK, gin.H{"settings": list})
}

// UpdateSettings takes a flat {"key": "value"} object. Unknown keys reject the whole batch.
func (h *AdminHandler) UpdateSettings(c *gin.Context) {
	var values map[string]string
	if err := c.ShouldBindJSON(&values); err != nil {
		badRequest(c, err)
		return
	}
	if len(values) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no settings given"})
		return
	}
	if err := h.admin.UpdateSettings(c.Request.Context(), actor(c), values); err != nil {
		respondError(c, err, "update settings")
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "updated": len(values)})
}

type reviewNotes struct {
	Notes string `json:"notes"`
}

func (h *AdminHandler) CompleteTask(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req reviewNotes
	_ = c.ShouldBindJSON(&req)
	task, err := h.tasks.CompleteTask(c.Request.Context(), id, req.Notes)
	if err != nil {
		respondError(c, err, "complete task")
		return
	}
	h.admin.Record(c.Request.Context(), actor(c), "task.complete", "tasks", id, req)
	c.JSON(http.StatusOK, task)
}

func (h *AdminHandler) RejectRefund(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req reviewNotes
	_ = c.ShouldBindJSON(&req)
	task, err := h.tasks.RejectRefund(c.Request.Context(), id, req.Notes)
	if err != nil {
		respondError(c, err, "reject refund")
		return
	}
	h.admin.Record(c.Request.Context(), actor(c), "task.reject", "tasks", id, req)
	c.JSON(http.StatusOK, task)
}

func (h *AdminHandler) RefundRequests(c *gin.Context) {
	limit, offset := parsePagination(c)
	list, err := h.tasks.ListRefundRequests(c.Request.Context(), limit, offset)
	if err != nil {
		respondError(c, err, "list refund requests")
		return
	}
	c.JSON(http.StatusOK, gin.H{"tasks": list})
}

func (h *AdminHandler) SetKYC(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req struct {
		Verified *bool `json:"verified" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := h.admin.SetKYC(c.Request.Context(), actor(c), id, *req.Verified); err != nil {
		respondError(c, err, "update kyc")
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "kyc_verified": *req.Verified})
}

func (h *AdminHandler) Users(c *gin.Context) {
	limit, offset := parsePagination(c)
	list, total, err := h.admin.Users(c.Request.Context(), c.Query("q"), c.Query("role"), limit, offset)
	if err != nil {
		respondError(c, err, "list users")
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": list, "total": total})
}

func (h *AdminHandler) AuditLog(c *gin.Context) {
	limit, offset := parsePagination(c)
	list, err := h.admin.AuditLog(c.Request.Context(), c.Query("resource"), limit, offset)
	if err != nil {
		respondError(c, err, "list audit log")
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": list})
}
