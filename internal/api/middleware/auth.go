package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/liliang-cn/docuchat/internal/domain"
)

// APIKeyHeader carries the admin key. A bearer token is accepted as well.
const APIKeyHeader = "X-API-Key"

// Auth guards the admin API with a static key. An empty key leaves the
// routes open.
func Auth(apiKey string) gin.HandlerFunc {
	if apiKey == "" {
		return func(c *gin.Context) { c.Next() }
	}
	want := []byte(apiKey)

	return func(c *gin.Context) {
		if subtle.ConstantTimeCompare([]byte(requestKey(c)), want) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": domain.ErrUnauthorized.Error()})
			return
		}
		c.Next()
	}
}

func requestKey(c *gin.Context) string {
	if key := c.GetHeader(APIKeyHeader); key != "" {
		return key
	}
	if token, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	// Browsers cannot set headers on a WebSocket handshake.
	return c.Query("api_key")
}
