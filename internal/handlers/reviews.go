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

type createReviewRequest struct {
	OrderID  models.FlexibleID `json:"orderId" binding:"required"`
	Rating   int               `json:"rating" binding:"required,min=1,max=5"`
	Comment  string            `json:"comment"`
	Username string            `json:"username"`
}

// CreateReview stores a review and flags its order as reviewed.
func CreateReview(reviews *store.ReviewRepository, orders *store.OrderRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /reviews"
		defer handlePanic(c, route)

		var req createReviewRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, route, err)
			return
		}

		username := strings.TrimSpace(req.Username)
		if session, ok := middleware.SessionFrom(c); ok {
			username = session.Username
		}
		if username == "" {
			respondWithError(c, http.StatusBadRequest, route, "username is required")
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		orderID := req.OrderID.String()
		if _, err := orders.Find(ctx, orderID); err != nil {
			respondStoreError(c, route, err)
			return
		}

		review, err := reviews.Create(ctx, models.Review{
			OrderID:  req.OrderID,
			Rating:   req.Rating,
			Comment:  strings.TrimSpace(req.Comment),
			Username: username,
		})
		if err != nil {
			respondStoreError(c, route, err)
			return
		}

		if _, err := orders.MarkReviewed(ctx, orderID); err != nil && !errors.Is(err, store.ErrOrderNotFound) {
			log.Printf("[REVIEW] [WARN] order %s not flagged as reviewed: %v", orderID, err)
		}

		log.Printf("[REVIEW] [INFO] review %s created for order %s", review.ID, orderID)
		c.JSON(http.StatusCreated, gin.H{"success": true, "review": review})
	}
}

func GetReviews(reviews *store.ReviewRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /reviews"
		defer handlePanic(c, route)

		ctx, cancel := requestContext(c)
		defer cancel()

		list := reviews.Filter(ctx, c.Query("orderId"), c.Query("username"))
		c.JSON(http.StatusOK, gin.H{"success": true, "reviews": list})
	}
}
