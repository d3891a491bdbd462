package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"github.com/liliang-cn/docuchat/internal/domain"
)

// RateLimit returns a per-client rate limiting middleware allowing
// requestsPerHour requests per client IP. Idle clients are forgotten
// after an hour.
func RateLimit(requestsPerHour int) gin.HandlerFunc {
	if requestsPerHour <= 0 {
		return func(c *gin.Context) { c.Next() }
	}

	limiters := cache.New(time.Hour, 10*time.Minute)
	every := time.Hour / time.Duration(requestsPerHour)

	return func(c *gin.Context) {
		ip := c.ClientIP()

		var limiter *rate.Limiter
		if v, ok := limiters.Get(ip); ok {
			limiter = v.(*rate.Limiter)
		} else {
			limiter = rate.NewLimiter(rate.Every(every), requestsPerHour)
			// Another request may have raced us; keep whichever landed first.
			if err := limiters.Add(ip, limiter, cache.DefaultExpiration); err != nil {
				if v, ok := limiters.Get(ip); ok {
					limiter = v.(*rate.Limiter)
				}
			}
		}
		limiters.Set(ip, limiter, cache.DefaultExpiration)

		if !limiter.Allow() {
			c.Header("Retry-After", "60")
			c.JSON(http.StatusTooManyRequests, gin.H{"error": domain.ErrRateLimited.Error()})
			c.Abort()
			return
		}

		c.Next()
	}
}
