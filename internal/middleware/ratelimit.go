package middleware

import (
	"fmt"
	"math"
	"net/http"
	"strconv"

	"reviewhub/internal/ratelimit"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// RateLimit allows limit requests per window for action. The identity is the
// authenticated user when AuthRequired ran first, the client IP otherwise.
// Store failures let the request through.
func RateLimit(limiter *ratelimit.Limiter, action string, limit int) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limit <= 0 {
			c.Next()
			return
		}
		identity := "ip:" + c.ClientIP()
		if id := GetUserID(c); id != 0 {
			identity = fmt.Sprintf("user:%d", id)
		}
		res, err := limiter.Allow(c.Request.Context(), identity, action, limit)
		if err != nil {
			log.Warn().Err(err).Str("component", "ratelimit").Str("action", action).Msg("limiter unavailable")
		}
		c.Header("X-RateLimit-Limit", strconv.Itoa(res.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
		if !res.Allowed {
			retry := int(math.Ceil(res.RetryAfter.Seconds()))
			if retry < 1 {
				retry = 1
			}
			c.Header("Retry-After", strconv.Itoa(retry))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "rate limit exceeded",
				"retry_after": retry,
			})
			return
		}
		c.Next()
	}
}
