package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/student-registry/internal/model"
	"github.com/stemsi/student-registry/internal/response"
	"github.com/stemsi/student-registry/internal/service"
	"github.com/stemsi/student-registry/internal/session"
)

const (
	// ContextKeySession is the Gin context key for the resolved *model.Session.
	ContextKeySession = "session"
	// ContextKeyToken is the Gin context key for the raw session token.
	ContextKeyToken = "session_token"
)

// LoadSession resolves the caller's token, if any, and stores the session in
// the context. Requests without a live session continue anonymously.
func LoadSession(authService *service.AuthService, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c)
		if token == "" {
			c.Next()
			return
		}
		c.Set(ContextKeyToken, token)

		sess, err := authService.Resolve(c.Request.Context(), token)
		switch {
		case err == nil:
			c.Set(ContextKeySession, sess)
		case errors.Is(err, service.ErrSessionNotFound), errors.Is(err, service.ErrSessionExpired):
			// Anonymous.
		default:
			log.Error().Err(err).Str("request_id", response.RequestID(c)).Msg("Failed to resolve session")
			response.AbortFail(c, http.StatusInternalServerError, response.ErrInternal)
			return
		}
		c.Next()
	}
}

// RequireSession rejects anonymous callers with 401.
func RequireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		if GetSession(c) == nil {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrUnauthenticated)
			return
		}
		c.Next()
	}
}

// RequireRole rejects callers whose session does not hold role with 403.
// Anonymous callers get the same 403.
func RequireRole(authService *service.AuthService, role model.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := authService.Authorize(GetSession(c), role); err != nil {
			response.AbortFail(c, http.StatusForbidden, response.ErrForbidden)
			return
		}
		c.Next()
	}
}

// GetSession retrieves the resolved session from the Gin context, or nil.
func GetSession(c *gin.Context) *model.Session {
	val, exists := c.Get(ContextKeySession)
	if !exists {
		return nil
	}
	sess, ok := val.(*model.Session)
	if !ok {
		return nil
	}
	return sess
}

// GetToken returns the raw token the caller presented, or "".
func GetToken(c *gin.Context) string {
	return c.GetString(ContextKeyToken)
}

// extractToken looks at the Authorization header, then the session cookie,
// then the token query parameter used by WebSocket clients.
func extractToken(c *gin.Context) string {
	if authHeader := c.GetHeader("Authorization"); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return strings.TrimSpace(parts[1])
		}
	}
	if cookie, err := c.Cookie(session.CookieName); err == nil && cookie != "" {
		return cookie
	}
	return c.Query("token")
}
