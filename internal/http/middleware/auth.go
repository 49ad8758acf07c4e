// Package middleware holds the gin middleware shared by all routes.
package middleware

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/6ixplatform/6ix-sub001/internal/model"
	"github.com/6ixplatform/6ix-sub001/internal/service"
)

const (
	// SessionCookieName is also set by the auth handler on login.
	SessionCookieName = "six_session"
	SessionIDHeader   = "X-Session-ID"

	userContextKey = "six.user"
)

// Auth validates the login session on every request and stores the
// resolved user on the gin context.
func Auth(authService service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader(SessionIDHeader)
		if raw == "" {
			raw, _ = c.Cookie(SessionCookieName)
		}
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
			return
		}

		sessionID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid session"})
			return
		}

		user, err := authService.ValidateSession(c.Request.Context(), sessionID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "session expired"})
			return
		}

		c.Set(userContextKey, user)
		c.Next()
	}
}

// CurrentUser returns the authenticated user set by Auth.
func CurrentUser(c *gin.Context) *model.User {
	if v, ok := c.Get(userContextKey); ok {
		if user, ok := v.(*model.User); ok {
			return user
		}
	}
	return nil
}
