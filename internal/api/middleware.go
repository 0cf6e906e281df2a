package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"storefront/internal/service"
	"storefront/internal/util"

	"github.com/gin-gonic/gin"
)

const userIDKey = "user_id"

// sessionToken extracts the session token from the Authorization header or
// the session cookie
func sessionToken(c *gin.Context) string {
	if auth := c.GetHeader("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	if cookie, err := c.Cookie("session_token"); err == nil {
		return cookie
	}
	return ""
}

// requireAuth resolves the session and aborts with 401 when there is none
func requireAuth(accounts *service.AccountService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := accounts.Authenticate(c.Request.Context(), sessionToken(c))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Authentication required",
			})
			return
		}
		c.Set(userIDKey, userID)
		c.Next()
	}
}

// optionalAuth resolves the session if present; anonymous requests proceed
// with no user set
func optionalAuth(accounts *service.AccountService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if userID, err := accounts.Authenticate(c.Request.Context(), sessionToken(c)); err == nil {
			c.Set(userIDKey, userID)
		}
		c.Next()
	}
}

func currentUser(c *gin.Context) int64 {
	return c.GetInt64(userIDKey)
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
