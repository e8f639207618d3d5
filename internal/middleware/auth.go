package middleware

import (
	"crypto/subtle"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"pistore/internal/models"
	"pistore/internal/store"
)

const (
	AdminKeyHeader = "X-Admin-Key"
	roleContextKey = "role"
)

// AdminKey gates a route behind the static shared admin secret. An empty
// secret disables the route entirely.
func AdminKey(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret == "" {
			log.Println("[ADMIN] [ERROR] ADMIN_KEY not configured")
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"success": false, "error": "admin access disabled"})
			return
		}

		if !HasAdminKey(c, secret) {
			log.Println("[ADMIN] [ERROR] invalid admin key")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": "unauthorized"})
			return
		}
		c.Next()
	}
}

// HasAdminKey reports whether the request carries secret in the admin header
// or the adminKey query parameter.
func HasAdminKey(c *gin.Context, secret string) bool {
	if secret == "" {
		return false
	}
	provided := strings.TrimSpace(c.GetHeader(AdminKeyHeader))
	if provided == "" {
		provided = strings.TrimSpace(c.Query("adminKey"))
	}
	return subtle.ConstantTimeCompare([]byte(provided), []byte(secret)) == 1
}

// RequireRole must run after SessionAuth(required=true). It loads the role of
// the session user and rejects anyone outside allowedRoles.
func RequireRole(roles *store.RoleStore, allowedRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		session, ok := SessionFrom(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": "login required"})
			return
		}

		role, err := roles.GetRole(c.Request.Context(), session.Username)
		if err != nil {
			log.Println("[AUTH] [ERROR] role lookup failed:", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"success": false, "error": "role lookup failed"})
			return
		}

		if len(allowedRoles) > 0 {
			match := false
			for _, r := range allowedRoles {
				if role == r {
					match = true
					break
				}
			}
			if !match {
				log.Printf("[AUTH] [ERROR] %s with role %s denied", session.Username, role)
				c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"success": false, "error": "forbidden"})
				return
			}
		}

		c.Set(roleContextKey, role)
		c.Next()
	}
}

// RoleFrom returns the role resolved by RequireRole.
func RoleFrom(c *gin.Context) string {
	if role, ok := c.Get(roleContextKey); ok {
		if s, ok := role.(string); ok {
			return s
		}
	}
	return models.RoleBuyer
}
