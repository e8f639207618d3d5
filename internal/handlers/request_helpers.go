package handlers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"pistore/internal/payment"
	"pistore/internal/pi"
	"pistore/internal/store"
)

const requestTimeout = 5 * time.Second

func handlePanic(c *gin.Context, route string) {
	if r := recover(); r != nil {
		log.Printf("[%s] panic recovered: %v", route, r)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"success": false, "error": "internal server error"})
	}
}

func requestContext(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), requestTimeout)
}

func respondWithError(c *gin.Context, status int, route string, message string) {
	log.Printf("[%s] returning error %d: %s", route, status, message)
	c.AbortWithStatusJSON(status, gin.H{"success": false, "error": message})
}

// respondStoreError maps repository errors onto the error envelope.
func respondStoreError(c *gin.Context, route string, err error) {
	switch {
	case errors.Is(err, store.ErrOrderNotFound):
		respondWithError(c, http.StatusNotFound, route, "order not found")
	case errors.Is(err, store.ErrProductNotFound):
		respondWithError(c, http.StatusNotFound, route, "product not found")
	case errors.Is(err, store.ErrNotFound):
		respondWithError(c, http.StatusNotFound, route, "not found")
	case errors.Is(err, store.ErrInvalidStatus):
		respondWithError(c, http.StatusBadRequest, route, "invalid status")
	case errors.Is(err, store.ErrInvalidRole):
		respondWithError(c, http.StatusBadRequest, route, "invalid role")
	case errors.Is(err, store.ErrDuplicateOrder):
		respondWithError(c, http.StatusConflict, route, "order id already exists")
	case errors.Is(err, store.ErrConflict):
		respondWithError(c, http.StatusConflict, route, "concurrent update, retry")
	default:
		log.Printf("[%s] storage error: %v", route, err)
		respondWithError(c, http.StatusInternalServerError, route, "storage error")
	}
}

// respondUpstreamError reports a failed provider call, attaching the
// provider's message when it sent one.
func respondUpstreamError(c *gin.Context, route string, err error) {
	if payment.IsValidation(err) {
		respondWithError(c, http.StatusBadRequest, route, err.Error())
		return
	}

	var upstream *pi.UpstreamError
	if errors.As(err, &upstream) {
		log.Printf("[%s] upstream error: %v", route, upstream)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"success":        false,
			"error":          "payment provider error",
			"message":        upstream.Message,
			"upstreamStatus": upstream.StatusCode,
		})
		return
	}

	if errors.Is(err, store.ErrConflict) || errors.Is(err, store.ErrDuplicateOrder) {
		respondStoreError(c, route, err)
		return
	}

	log.Printf("[%s] upstream call failed: %v", route, err)
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
		"success": false,
		"error":   "payment provider unreachable",
		"message": err.Error(),
	})
}

func respondValidationError(c *gin.Context, route string, err error) {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		details := make([]string, 0, len(validationErrors))
		for _, fieldError := range validationErrors {
			field := lowerCamel(fieldError.Field())
			switch fieldError.Tag() {
			case "required":
				details = append(details, fmt.Sprintf("%s is required", field))
			default:
				details = append(details, fmt.Sprintf("%s is invalid", field))
			}
		}
		log.Printf("[%s] validation failed: %v", route, details)
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   strings.Join(details, ", "),
			"details": details,
		})
		return
	}

	respondWithError(c, http.StatusBadRequest, route, "invalid body")
}

func lowerCamel(field string) string {
	if field == "" {
		return field
	}
	return strings.ToLower(field[:1]) + field[1:]
}
