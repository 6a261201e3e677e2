package middleware

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/leadscout/backend/internal/models"
	"github.com/leadscout/backend/internal/n8n"
	"github.com/leadscout/backend/pkg/utils"
)

const (
	SessionCookie = "session"
	userKey       = "user"
)

// Authenticator resolves a session token to its user.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*models.User, error)
}

// SessionToken reads the token from the session cookie or a Bearer header.
func SessionToken(c *gin.Context) string {
	if cookie, err := c.Cookie(SessionCookie); err == nil && cookie != "" {
		return cookie
	}
	header := c.GetHeader("Authorization")
	if len(header) > len("Bearer ") && strings.EqualFold(header[:len("Bearer ")], "Bearer ") {
		return strings.TrimSpace(header[len("Bearer "):])
	}
	return ""
}

// RequireAuth rejects requests without a valid session and stores the user
// on the context.
func RequireAuth(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := auth.Authenticate(c.Request.Context(), SessionToken(c))
		if err != nil {
			_ = c.Error(err)
			utils.AbortWithError(c, http.StatusUnauthorized, "Unauthorized")
			return
		}
		c.Set(userKey, user)
		c.Next()
	}
}

// CurrentUser returns the user stored by RequireAuth.
func CurrentUser(c *gin.Context) *models.User {
	if v, ok := c.Get(userKey); ok {
		if user, ok := v.(*models.User); ok {
			return user
		}
	}
	return nil
}

// WebhookAuth checks the shared workflow secret. An empty configured secret
// rejects every request.
func WebhookAuth(secret string) gin.HandlerFunc {
	expected := []byte(secret)
	return func(c *gin.Context) {
		provided := []byte(c.GetHeader(n8n.APIKeyHeader))
		if len(expected) == 0 || subtle.ConstantTimeCompare(provided, expected) != 1 {
			utils.AbortWithError(c, http.StatusForbidden, "Forbidden: Invalid API key")
			return
		}
		c.Next()
	}
}
