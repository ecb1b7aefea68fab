package handler

import (
	"net/http"

	"reviewhub/internal/middleware"
	"reviewhub/internal/service"

	"github.com/gin-gonic/gin"
)

type DeepLinkHandler struct {
	svc *service.DeepLinkService
}

func NewDeepLinkHandler(svc *service.DeepLinkService) *DeepLinkHandler {
	return &DeepLinkHandler{svc: svc}
}

func (h *DeepLinkHandler) Create(c *gin.Context) {
	var req service.DeepLinkInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	out, err := h.svc.Create(c.Request.Context(), middleware.GetUserID(c), req)
	if err != nil {
		respondError(c, err, "create deep link")
		return
	}
	c.JSON(http.StatusCreated, out)
}

func (h *DeepLinkHandler) ListMine(c *gin.Context) {
	limit, offset := parsePagination(c)
	list, err := h.svc.ListMine(c.Request.Context(), middleware.GetUserID(c), limit, offset)
	if err != nil {
		respondError(c, err, "list deep links")
		return
	}
	c.JSON(http.StatusOK, gin.H{"deep_links": list})
}

func clickInfo(c *gin.Context) service.ClickInfo {
	return service.ClickInfo{IP: c.ClientIP(), UserAgent: c.Request.UserAgent(), Referrer: c.Request.Referer()}
}

// Resolve counts the click and returns the destination as JSON.
func (h *DeepLinkHandler) Resolve(c *gin.Context) {
	link, err := h.svc.Resolve(c.Request.Context(), c.Param("code"), clickInfo(c))
	if err != nil {
		respondError(c, err, "resolve deep link")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"short_code":      link.ShortCode,
		"destination_url": link.DestinationURL,
		"title":           link.Title,
		"description":     link.Description,
		"metadata":        rawJSON(link.Metadata),
	})
}

// Redirect serves GET /l/:code.
func (h *DeepLinkHandler) Redirect(c *gin.Context) {
	link, err := h.svc.Resolve(c.Request.Context(), c.Param("code"), clickInfo(c))
	if err != nil {
		respondError(c, err, "resolve deep link")
		return
	}
	c.Redirect(http.StatusFound, link.DestinationURL)
}

func (h *DeepLinkHandler) Analytics(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	a, err := h.svc.Analytics(c.Request.Context(), id, middleware.GetUserID(c))
	if err != nil {
		respondError(c, err, "load deep link analytics")
		return
	}
	c.JSON(http.StatusOK, a)
}
