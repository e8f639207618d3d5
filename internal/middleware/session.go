package middleware

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"pistore/internal/models"
	"pistore/internal/store"
)

const sessionContextKey = "session"

// SessionAuth resolves the session cookie (or a Bearer token) into the
// request context. When required is false, anonymous requests pass through.
func SessionAuth(sessions *store.SessionStore, cookieName string, required bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := tokenFromRequest(c, cookieName)
		if token == "" {
			if required {
				log.Println("[AUTH] [ERROR] missing session")
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": "login required"})
				return
			}
			c.Next()
			return
		}

		session, err := sessions.Verify(c.Request.Context(), token)
		if err != nil {
			if !errors.Is(err, store.ErrSessionNotFound) && !errors.Is(err, store.ErrInvalidSession) {
				log.Println("[AUTH] [ERROR] session lookup failed:", err)
			}
			if required {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": "unauthorized"})
				return
			}
			c.Next()
			return
		}

		c.Set(sessionContextKey, session)
		c.Next()
	}
}

// SessionFrom returns the session stored by SessionAuth.
func SessionFrom(c *gin.Context) (models.Session, bool) {
	value, ok := c.Get(sessionContextKey)
	if !ok {
		return models.Session{}, false
	}
	session, ok := value.(models.Session)
	return session, ok
}

// SessionToken returns the raw session token from the cookie or a Bearer header.
func SessionToken(c *gin.Context, cookieName string) string {
	return tokenFromRequest(c, cookieName)
}

func tokenFromRequest(c *gin.Context, cookieName string) string {
	if cookie, err := c.Cookie(cookieName); err == nil && strings.TrimSpace(cookie) != "" {
		return strings.TrimSpace(cookie)
	}

	raw := strings.TrimSpace(c.GetHeader("Authorization"))
	parts := strings.Split(raw, " ")
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return strings.TrimSpace(parts[1])
	}
	return ""
}
