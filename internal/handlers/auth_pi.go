package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"pistore/internal/middleware"
	"pistore/internal/models"
	"pistore/internal/pi"
	"pistore/internal/store"
)

// IdentityVerifier resolves an SDK access token to a Pi user.
type IdentityVerifier interface {
	Me(ctx context.Context, accessToken string) (models.Identity, error)
}

// CookieOptions controls the session cookie.
type CookieOptions struct {
	Name   string
	Domain string
	Secure bool
}

type piLoginRequest struct {
	AccessToken string `json:"accessToken" binding:"required"`
}

// PiLogin verifies the access token with the provider and opens a session.
func PiLogin(verifier IdentityVerifier, sessions *store.SessionStore, roles *store.RoleStore, cookie CookieOptions) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /auth/pi"
		defer handlePanic(c, route)

		var req piLoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, route, err)
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		identity, err := verifier.Me(ctx, strings.TrimSpace(req.AccessToken))
		if err != nil {
			var upstream *pi.UpstreamError
			if errors.As(err, &upstream) && (upstream.StatusCode == http.StatusUnauthorized || upstream.StatusCode == http.StatusForbidden) {
				log.Println("[AUTH] [ERROR] pi rejected access token")
				respondWithError(c, http.StatusUnauthorized, route, "invalid access token")
				return
			}
			respondUpstreamError(c, route, err)
			return
		}

		token, session, err := sessions.Issue(ctx, identity)
		if err != nil {
			log.Println("[AUTH] [ERROR] session issue failed:", err)
			respondWithError(c, http.StatusInternalServerError, route, "session could not be created")
			return
		}

		role, err := roles.GetRole(ctx, session.Username)
		if err != nil {
			log.Println("[AUTH] [WARN] role lookup failed, assuming buyer:", err)
			role = models.RoleBuyer
		}

		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(cookie.Name, token, int(sessions.TTL().Seconds()), "/", cookie.Domain, cookie.Secure, true)

		log.Println("[AUTH] [INFO] pi login succeeded:", session.Username)
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"token":   token,
			"user": gin.H{
				"uid":      session.UID,
				"username": session.Username,
				"role":     role,
			},
			"expiresAt": session.ExpiresAt,
		})
	}
}

func GetMe(roles *store.RoleStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /auth/me"
		defer handlePanic(c, route)

		session, ok := middleware.SessionFrom(c)
		if !ok {
			respondWithError(c, http.StatusUnauthorized, route, "unauthorized")
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		user, err := roles.Get(ctx, session.Username)
		if err != nil {
			respondStoreError(c, route, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"user": gin.H{
				"uid":           session.UID,
				"username":      session.Username,
				"role":          user.Role,
				"walletAddress": user.WalletAddress,
			},
			"expiresAt": session.ExpiresAt,
		})
	}
}

func Logout(sessions *store.SessionStore, cookie CookieOptions) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /auth/logout"
		defer handlePanic(c, route)

		if token := middleware.SessionToken(c, cookie.Name); token != "" {
			ctx, cancel := requestContext(c)
			defer cancel()
			if err := sessions.Revoke(ctx, token); err != nil && !errors.Is(err, store.ErrInvalidSession) {
				log.Println("[AUTH] [ERROR] session revoke failed:", err)
			}
		}

		c.SetCookie(cookie.Name, "", -1, "/", cookie.Domain, cookie.Secure, true)
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "logged out"})
	}
}
