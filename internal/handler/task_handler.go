package handler

import (
	"net/http"
	"strconv"

	"reviewhub/internal/middleware"
	"reviewhub/internal/service"

	"github.com/gin-gonic/gin"
)

type TaskHandler struct {
	tasks    *service.TaskService
	requests *service.ReviewRequestService
}

func NewTaskHandler(tasks *service.TaskService, requests *service.ReviewRequestService) *TaskHandler {
	return &TaskHandler{tasks: tasks, requests: requests}
}

// Available lists active review requests that still have open slots.
func (h *TaskHandler) Available(c *gin.Context) {
	limit, offset := parsePagination(c)
	list, err := h.requests.ListAvailable(c.Request.Context(), limit, offset)
	if err != nil {
		respondError(c, err, "list available tasks")
		return
	}
	c.JSON(http.StatusOK, gin.H{"review_requests": list})
}

func (h *TaskHandler) Claim(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	task, err := h.tasks.ClaimTask(c.Request.Context(), middleware.GetUserID(c), id)
	if err != nil {
		respondError(c, err, "claim task")
		return
	}
	c.JSON(http.StatusCreated, task)
}

func (h *TaskHandler) ListMine(c *gin.Context) {
	limit, offset := parsePagination(c)
	list, err := h.tasks.ListMine(c.Request.Context(), middleware.GetUserID(c), c.Query("status"), limit, offset)
	if err != nil {
		respondError(c, err, "list tasks")
		return
	}
	c.JSON(http.StatusOK, gin.H{"tasks": list})
}

func (h *TaskHandler) Get(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	p, err := h.tasks.GetProgress(c.Request.Context(), middleware.GetUserID(c), id)
	if err != nil {
		respondError(c, err, "load task")
		return
	}
	c.JSON(http.StatusOK, p)
}

// SubmitStep handles POST /tasks/:id/steps/:step. Steps unlock in order and
// step 4 sends the task to admin review.
func (h *TaskHandler) SubmitStep(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	step, err := strconv.Atoi(c.Param("step"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid step"})
		return
	}
	var req service.StepInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	saved, err := h.tasks.SubmitStep(c.Request.Context(), middleware.GetUserID(c), id, step, req)
	if err != nil {
		respondError(c, err, "submit step")
		return
	}
	c.JSON(http.StatusOK, saved)
}
