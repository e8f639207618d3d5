package handlers

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"pistore/internal/middleware"
	"pistore/internal/models"
	"pistore/internal/store"
)

type setRoleRequest struct {
	Username      string `json:"username" binding:"required"`
	Role          string `json:"role" binding:"required"`
	WalletAddress string `json:"walletAddress"`
}

func GetAddress(profiles *store.ProfileStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /address"
		defer handlePanic(c, route)

		session, ok := middleware.SessionFrom(c)
		if !ok {
			respondWithError(c, http.StatusUnauthorized, route, "unauthorized")
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		address, err := profiles.Address(ctx, session.Username)
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusOK, gin.H{"success": true, "address": nil})
			return
		}
		if err != nil {
			respondStoreError(c, route, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"success": true, "address": address})
	}
}

func SaveAddress(profiles *store.ProfileStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /address"
		defer handlePanic(c, route)

		session, ok := middleware.SessionFrom(c)
		if !ok {
			respondWithError(c, http.StatusUnauthorized, route, "unauthorized")
			return
		}

		var req models.Address
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, route, err)
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		address, err := profiles.SaveAddress(ctx, session.Username, req)
		if err != nil {
			respondStoreError(c, route, err)
			return
		}

		log.Println("[ADDRESS] [INFO] address saved:", session.Username)
		c.JSON(http.StatusOK, gin.H{"success": true, "address": address})
	}
}

// GetRole reads ?username, falling back to the session user.
func GetRole(roles *store.RoleStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /users/role"
		defer handlePanic(c, route)

		username := strings.TrimSpace(c.Query("username"))
		if username == "" {
			if session, ok := middleware.SessionFrom(c); ok {
				username = session.Username
			}
		}
		if username == "" {
			respondWithError(c, http.StatusBadRequest, route, "username is required")
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		user, err := roles.Get(ctx, username)
		if err != nil {
			respondStoreError(c, route, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"success": true, "username": user.Username, "role": user.Role})
	}
}

// SetRole writes a role tag. Granting admin needs the admin key.
func SetRole(roles *store.RoleStore, adminKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /users/role"
		defer handlePanic(c, route)

		var req setRoleRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, route, err)
			return
		}

		role := strings.ToLower(strings.TrimSpace(req.Role))
		if !models.IsValidRole(role) {
			respondWithError(c, http.StatusBadRequest, route, "invalid role")
			return
		}
		if role == models.RoleAdmin {
			if !middleware.HasAdminKey(c, adminKey) {
				log.Println("[ROLE] [WARN] admin grant without admin key:", req.Username)
				respondWithError(c, http.StatusForbidden, route, "admin key required")
				return
			}
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		user, err := roles.SetRole(ctx, req.Username, role, req.WalletAddress)
		if err != nil {
			respondStoreError(c, route, err)
			return
		}

		log.Printf("[ROLE] [INFO] role set: %s -> %s", user.Username, user.Role)
		c.JSON(http.StatusOK, gin.H{"success": true, "user": user})
	}
}

func ListUsers(roles *store.RoleStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /admin/users"
		defer handlePanic(c, route)

		ctx, cancel := requestContext(c)
		defer cancel()

		users, err := roles.List(ctx)
		if err != nil {
			respondStoreError(c, route, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"success": true, "data": users, "total": len(users)})
	}
}

// GetAvatar reads ?username, falling back to the session user.
func GetAvatar(profiles *store.ProfileStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /avatar"
		defer handlePanic(c, route)

		username := strings.TrimSpace(c.Query("username"))
		if username == "" {
			if session, ok := middleware.SessionFrom(c); ok {
				username = session.Username
			}
		}
		if username == "" {
			respondWithError(c, http.StatusBadRequest, route, "username is required")
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		url, err := profiles.Avatar(ctx, username)
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusOK, gin.H{"success": true, "url": ""})
			return
		}
		if err != nil {
			respondStoreError(c, route, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"success": true, "url": url})
	}
}
