package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"reviewhub/internal/auth"
	"reviewhub/internal/middleware"
	"reviewhub/internal/repository"
	"reviewhub/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// errorStatus maps service errors to HTTP statuses. Anything else is a 500.
var errorStatus = []struct {
	err    error
	status int
}{
	{service.ErrInvalidCreds, http.StatusUnauthorized},
	{auth.ErrInvalidToken, http.StatusUnauthorized},
	{service.ErrForbidden, http.StatusForbidden},
	{service.ErrOwnReviewRequest, http.StatusForbidden},

	{service.ErrUserNotFound, http.StatusNotFound},
	{service.ErrTaskNotFound, http.StatusNotFound},
	{service.ErrReviewRequestNotFound, http.StatusNotFound},
	{service.ErrCompetitionNotFound, http.StatusNotFound},
	{service.ErrDeepLinkNotFound, http.StatusNotFound},
	{service.ErrConversationNotFound, http.StatusNotFound},
	{service.ErrPaymentNotFound, http.StatusNotFound},
	{service.ErrReferrerNotFound, http.StatusNotFound},

	{service.ErrEmailExists, http.StatusConflict},
	{service.ErrMobileExists, http.StatusConflict},
	{service.ErrAlreadyReferred, http.StatusConflict},
	{service.ErrAlreadyClaimed, http.StatusConflict},
	{service.ErrAlreadyJoined, http.StatusConflict},
	{service.ErrStepLocked, http.StatusConflict},
	{service.ErrTaskLocked, http.StatusConflict},
	{service.ErrTaskNotAwaitingReview, http.StatusConflict},
	{service.ErrReviewRequestInactive, http.StatusConflict},
	{service.ErrNoSlotsLeft, http.StatusConflict},
	{service.ErrCompetitionClosed, http.StatusConflict},
	{service.ErrCompetitionFull, http.StatusConflict},
	{service.ErrConversationClosed, http.StatusConflict},
	{service.ErrPaymentNotPending, http.StatusConflict},
	{repository.ErrInsufficientBalance, http.StatusConflict},

	{service.ErrInvalidRole, http.StatusBadRequest},
	{service.ErrPasswordTooShort, http.StatusBadRequest},
	{service.ErrNoPasswordSet, http.StatusBadRequest},
	{service.ErrSelfReferral, http.StatusBadRequest},
	{service.ErrInvalidReferralCode, http.StatusBadRequest},
	{service.ErrInvalidStep, http.StatusBadRequest},
	{service.ErrInvalidStepPayload, http.StatusBadRequest},
	{service.ErrInvalidReviewRequest, http.StatusBadRequest},
	{service.ErrInvalidSignature, http.StatusBadRequest},
	{service.ErrInvalidCompetition, http.StatusBadRequest},
	{service.ErrInvalidDestination, http.StatusBadRequest},
	{service.ErrInvalidLinkMetadata, http.StatusBadRequest},
	{service.ErrInvalidPeriod, http.StatusBadRequest},
	{service.ErrInvalidPoints, http.StatusBadRequest},
	{service.ErrProfileIncomplete, http.StatusBadRequest},
	{service.ErrEmptyMessage, http.StatusBadRequest},
	{service.ErrUnknownSetting, http.StatusBadRequest},
}

// respondError writes the mapped status for known errors. Unknown errors are
// logged and answered with a generic "failed to <action>".
func respondError(c *gin.Context, err error, action string) {
	for _, e := range errorStatus {
		if errors.Is(err, e.err) {
			c.JSON(e.status, gin.H{"error": err.Error()})
			return
		}
	}
	log.Error().Err(err).
		Str("component", "http").
		Str("path", c.FullPath()).
		Uint("user_id", middleware.GetUserID(c)).
		Msg("failed to " + action)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to " + action})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

// parsePagination reads limit and offset (or page) with limit capped at 100.
func parsePagination(c *gin.Context) (limit, offset int) {
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "20"))
	if limit < 1 || limit > 100 {
		limit = 20
	}
	if p, err := strconv.Atoi(c.Query("page")); err == nil && p > 1 {
		return limit, (p - 1) * limit
	}
	offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func parseID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return uint(id), true
}

func actor(c *gin.Context) service.Actor {
	return service.Actor{UserID: middleware.GetUserID(c), IP: c.ClientIP(), UserAgent: c.Request.UserAgent()}
}

func viewer(c *gin.Context) service.Viewer {
	return service.Viewer{UserID: middleware.GetUserID(c), IsAdmin: middleware.IsAdmin(c)}
}

// rawJSON embeds a stored JSON text column as-is.
func rawJSON(s string) json.RawMessage {
	if s == "" || !json.Valid([]byte(s)) {
		return nil
	}
	return json.RawMessage(s)
}
