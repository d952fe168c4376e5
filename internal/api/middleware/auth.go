package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sshwebca/sshwebca/internal/session"
)

// UserIDKey is the gin context key holding the authenticated user id.
const UserIDKey = "user_id"

// RequireSession rejects anonymous callers before any protected handler runs.
// On success the authenticated user id is placed on the request context.
func RequireSession(sessions *session.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := sessions.UserID(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "unauthorized",
				"message": "Authentication required",
			})
			return
		}

		c.Set(UserIDKey, userID)
		c.Next()
	}
}
