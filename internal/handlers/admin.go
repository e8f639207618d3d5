package handlers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"pistore/internal/store"
)

// ClearTestData wipes orders and reviews. It refuses to run in production.
func ClearTestData(isProduction bool, orders *store.OrderRepository, reviews *store.ReviewRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /admin/clear"
		defer handlePanic(c, route)

		if isProduction {
			log.Println("[ADMIN] [ERROR] clear requested in production")
			respondWithError(c, http.StatusForbidden, route, "not available in production")
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		if err := orders.Clear(ctx); err != nil {
			respondStoreError(c, route, err)
			return
		}
		if err := reviews.Clear(ctx); err != nil {
			respondStoreError(c, route, err)
			return
		}

		log.Println("[ADMIN] [INFO] orders and reviews cleared")
		c.JSON(http.StatusOK, gin.H{"success": true, "cleared": []string{store.OrdersKey, store.ReviewsKey}})
	}
}
