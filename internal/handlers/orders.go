package handlers

import (
	"errors"
	"log"
	"math"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"pistore/internal/middleware"
	"pistore/internal/models"
	"pistore/internal/store"
)

/* =========================
   REQUEST DTOs
========================= */

type createOrderItemRequest struct {
	ProductID models.FlexibleID `json:"productId"`
	Name      string            `json:"name" binding:"required"`
	Price     float64           `json:"price"`
	Quantity  int               `json:"quantity" binding:"required"`
}

type createOrderRequest struct {
	ID     models.FlexibleID        `json:"id"`
	Buyer  string                   `json:"buyer"`
	Items  []createOrderItemRequest `json:"items" binding:"required,dive"`
	Total  float64                  `json:"total"`
	Status string                   `json:"status"`
	Note   string                   `json:"note"`
}

type updateOrderRequest struct {
	Status string `json:"status" binding:"required"`
}

type cancelOrderRequest struct {
	ID models.FlexibleID `json:"id"`
}

/* =========================
   CREATE ORDER
========================= */

func CreateOrder(orders *store.OrderRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /orders"
		defer handlePanic(c, route)

		var req createOrderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, route, err)
			return
		}

		order, err := buildOrderFromRequest(req)
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, err.Error())
			return
		}
		if session, ok := middleware.SessionFrom(c); ok {
			order.Buyer = session.Username
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		saved, err := orders.Append(ctx, order)
		if err != nil {
			respondStoreError(c, route, err)
			return
		}

		log.Printf("[ORDER] [INFO] order %s created for %s", saved.ID, saved.Buyer)
		c.JSON(http.StatusCreated, gin.H{"success": true, "order": saved})
	}
}

/* =========================
   GET ORDERS
========================= */

func GetOrders(orders *store.OrderRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /orders"
		defer handlePanic(c, route)

		ctx, cancel := requestContext(c)
		defer cancel()

		var list []models.Order
		if buyer := strings.TrimSpace(c.Query("buyer")); buyer != "" {
			list = orders.ListByBuyer(ctx, buyer)
		} else {
			list = orders.List(ctx)
		}

		if status := strings.TrimSpace(c.Query("status")); status != "" {
			filtered := make([]models.Order, 0, len(list))
			for _, order := range list {
				if order.Status == status {
					filtered = append(filtered, order)
				}
			}
			list = filtered
		}

		c.JSON(http.StatusOK, gin.H{"success": true, "orders": list})
	}
}

func GetOrder(orders *store.OrderRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /orders/:id"
		defer handlePanic(c, route)

		ctx, cancel := requestContext(c)
		defer cancel()

		order, err := orders.Find(ctx, c.Param("id"))
		if err != nil {
			respondStoreError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "order": order})
	}
}

/* =========================
   STATUS CHANGES
========================= */

func UpdateOrderStatus(orders *store.OrderRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PATCH /orders/:id"
		defer handlePanic(c, route)

		var req updateOrderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, route, err)
			return
		}

		status := strings.TrimSpace(req.Status)
		if !models.IsValidOrderStatus(status) {
			respondWithError(c, http.StatusBadRequest, route, "invalid status: "+status)
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		order, err := orders.UpdateStatus(ctx, c.Param("id"), status)
		if err != nil {
			respondStoreError(c, route, err)
			return
		}

		log.Printf("[ORDER] [INFO] order %s status set to %q", order.ID, order.Status)
		c.JSON(http.StatusOK, gin.H{"success": true, "order": order})
	}
}

func CancelOrder(orders *store.OrderRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /orders/cancel"
		defer handlePanic(c, route)

		var req cancelOrderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, route, err)
			return
		}
		if req.ID == "" {
			respondWithError(c, http.StatusBadRequest, route, "id is required")
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		order, err := orders.Cancel(ctx, req.ID.String())
		if err != nil {
			respondStoreError(c, route, err)
			return
		}

		log.Println("[ORDER] [INFO] order cancelled:", order.ID)
		c.JSON(http.StatusOK, gin.H{"success": true, "order": order})
	}
}

/* =========================
   BUILD ORDER
========================= */

func buildOrderFromRequest(req createOrderRequest) (models.Order, error) {
	if len(req.Items) == 0 {
		return models.Order{}, errors.New("at least one item is required")
	}

	status := strings.TrimSpace(req.Status)
	if status != "" && !models.IsValidOrderStatus(status) {
		return models.Order{}, errors.New("invalid status: " + status)
	}

	items := make([]models.OrderItem, 0, len(req.Items))
	var total float64

	for _, item := range req.Items {
		if item.Quantity <= 0 {
			return models.Order{}, errors.New("quantity must be greater than zero")
		}
		if item.Price < 0 {
			return models.Order{}, errors.New("price must not be negative")
		}

		items = append(items, models.OrderItem{
			ProductID: item.ProductID,
			Name:      strings.TrimSpace(item.Name),
			Price:     item.Price,
			Quantity:  item.Quantity,
		})
		total += item.Price * float64(item.Quantity)
	}

	if req.Total < 0 {
		return models.Order{}, errors.New("total must not be negative")
	}
	if req.Total > 0 {
		total = req.Total
	}

	return models.Order{
		ID:     req.ID,
		Buyer:  store.NormalizeUsername(req.Buyer),
		Items:  items,
		Total:  math.Round(total*1e7) / 1e7,
		Status: status,
		Note:   strings.TrimSpace(req.Note),
	}, nil
}
