package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/argussec/argus/internal/gatekeeper"
)

// Gatekeeper runs every request through the admission check. Denied requests
// get a generic body so callers learn nothing about the decision internals.
func Gatekeeper(gk *gatekeeper.Gatekeeper) gin.HandlerFunc {
	return func(c *gin.Context) {
		ok, reason := gk.CheckRequest(
			c.Request.Context(),
			c.ClientIP(),
			c.Request.URL.Path,
			c.Request.Method,
			c.Request.UserAgent(),
		)
		if !ok {
			if reason == gatekeeper.DenyRateLimit {
				c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
				return
			}
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		c.Next()
	}
}
