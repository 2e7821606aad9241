package middleware

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
)

// unmeteredPaths are health checks and scrapes that must not consume client quota.
var unmeteredPaths = map[string]bool{
	"/health":  true,
	"/metrics": true,
}

// RateLimit limits requests per client IP. Rejected requests get 429 with
// Retry-After in seconds until the window resets.
func RateLimit(rl *limiter.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if unmeteredPaths[c.Request.URL.Path] {
			c.Next()
			return
		}
		ip := c.ClientIP()
		logger := GetLoggerFromCtx(c.Request.Context())

		quota, err := rl.Get(c.Request.Context(), ip)
		if err != nil {
			logger.Error("Rate limit store failed", slog.String("ip", ip), slog.String("error", err.Error()))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error during rate limit check"})
			return
		}

		c.Header("X-RateLimit-Limit", strconv.FormatInt(quota.Limit, 10))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(quota.Remaining, 10))
		if quota.Reached {
			c.Header("Retry-After", strconv.FormatInt(max(quota.Reset-time.Now().Unix(), 1), 10))
			logger.Warn("Rate limit exceeded", slog.String("ip", ip), slog.Int64("limit", quota.Limit))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests. Please try again later."})
			return
		}

		c.Next()
	}
}

// NewRateLimiter builds an in-memory limiter from a formatted rate such as "300-M".
func NewRateLimiter(formatted string) (*limiter.Limiter, error) {
	rate, err := limiter.NewRateFromFormatted(formatted)
	if err != nil {
		return nil, err
	}
	return limiter.New(memory.NewStore(), rate), nil
}
