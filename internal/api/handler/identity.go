package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// UserIDHeader carries the caller's identity. Authentication is out of
// scope; the gateway in front of this service is trusted to set it.
const UserIDHeader = "X-User-ID"

const userIDContextKey = "user_id"

// IdentityMiddleware rejects requests without a caller identity and makes
// it available to handlers.
func IdentityMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetHeader(UserIDHeader)
		if userID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "X-User-ID header is required",
			})
			return
		}

		c.Set(userIDContextKey, userID)
		c.Next()
	}
}

// CurrentUserID returns the identity IdentityMiddleware stored.
func CurrentUserID(c *gin.Context) string {
	return c.GetString(userIDContextKey)
}
