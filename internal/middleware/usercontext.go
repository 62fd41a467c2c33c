package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ieltsprep/ielts-backend/internal/response"
)

const userIDKey = "user_id"

// RequireUser extracts the candidate identity from the X-User-ID header
// set by the authenticating gateway in front of this service. WebSocket
// handshakes cannot carry custom headers from the browser, so a user_id
// query parameter is accepted as a fallback. Requests without a valid
// UUID are rejected.
func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader("X-User-ID")
		if raw == "" {
			raw = c.Query("user_id")
		}
		if raw == "" {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrUserRequired)
			return
		}
		userID, err := uuid.Parse(raw)
		if err != nil {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrUserRequired)
			return
		}
		c.Set(userIDKey, userID)
		c.Next()
	}
}

// GetUserID returns the authenticated candidate's ID, or uuid.Nil when
// RequireUser did not run.
func GetUserID(c *gin.Context) uuid.UUID {
	v, ok := c.Get(userIDKey)
	if !ok {
		return uuid.Nil
	}
	id, ok := v.(uuid.UUID)
	if !ok {
		return uuid.Nil
	}
	return id
}
