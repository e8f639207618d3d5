package handlers

import (
	"context"
	"log"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"pistore/internal/middleware"
	"pistore/internal/models"
	"pistore/internal/store"
)

// ProductCatalog is the product persistence the handlers need.
// *store.ProductStore implements it over MongoDB.
type ProductCatalog interface {
	List(ctx context.Context, f store.ProductFilter) ([]models.Product, int64, error)
	Get(ctx context.Context, id primitive.ObjectID) (models.Product, error)
	View(ctx context.Context, id primitive.ObjectID) (models.Product, error)
	Create(ctx context.Context, product models.Product) (models.Product, error)
	Update(ctx context.Context, id primitive.ObjectID, set, unset bson.M) (models.Product, error)
	Delete(ctx context.Context, id primitive.ObjectID) (models.Product, error)
}

var _ ProductCatalog = (*store.ProductStore)(nil)

/* =======================
   REQUEST MODELS
======================= */

type createProductRequest struct {
	Name        string            `json:"name" binding:"required"`
	Price       float64           `json:"price" binding:"required,gt=0"`
	SalePrice   float64           `json:"salePrice"`
	SaleStart   *time.Time        `json:"saleStart"`
	SaleEnd     *time.Time        `json:"saleEnd"`
	Description string            `json:"description"`
	CategoryID  string            `json:"categoryId"`
	Images      models.StringList `json:"images"`
	Stock       int               `json:"stock" binding:"min=0"`
	Seller      string            `json:"seller"`
}

type updateProductRequest struct {
	Name        *string            `json:"name"`
	Price       *float64           `json:"price"`
	SalePrice   *float64           `json:"salePrice"`
	SaleStart   *time.Time         `json:"saleStart"`
	SaleEnd     *time.Time         `json:"saleEnd"`
	ClearSale   bool               `json:"clearSale"`
	Description *string            `json:"description"`
	CategoryID  *string            `json:"categoryId"`
	Images      *models.StringList `json:"images"`
	Stock       *int               `json:"stock"`
}

/* =======================
   PUBLIC
======================= */

// GetProducts lists the catalog. Pagination applies only when page or limit
// is given.
func GetProducts(products ProductCatalog) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /products"
		defer handlePanic(c, route)

		page, limit, err := parsePaginationParams(c.Query("page"), c.Query("limit"))
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, err.Error())
			return
		}

		filter := store.ProductFilter{
			CategoryID: c.Query("category"),
			Seller:     c.Query("seller"),
			Search:     c.Query("search"),
			Page:       page,
			Limit:      limit,
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		list, total, err := products.List(ctx, filter)
		if err != nil {
			respondStoreError(c, route, err)
			return
		}

		response := gin.H{
			"success": true,
			"data":    presentProducts(list, time.Now()),
			"total":   total,
		}
		if limit > 0 {
			response["pagination"] = gin.H{
				"page":       page,
				"limit":      limit,
				"total":      total,
				"totalPages": int64(math.Ceil(float64(total) / float64(limit))),
			}
		}

		log.Printf("[%s] returning %d products", route, len(list))
		c.JSON(http.StatusOK, response)
	}
}

// GetProduct returns one product and counts the view.
func GetProduct(products ProductCatalog) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /products/:id"
		defer handlePanic(c, route)

		id, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid id")
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		product, err := products.View(ctx, id)
		if err != nil {
			respondStoreError(c, route, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"success": true, "product": presentProduct(product, time.Now())})
	}
}

/* =======================
   SELLER
======================= */

func CreateProduct(products ProductCatalog) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /products"
		defer handlePanic(c, route)

		session, ok := middleware.SessionFrom(c)
		if !ok {
			respondWithError(c, http.StatusUnauthorized, route, "unauthorized")
			return
		}

		var req createProductRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, route, err)
			return
		}

		if err := validateSaleFields(req.Price, req.SalePrice, req.SaleStart, req.SaleEnd); err != nil {
			respondWithError(c, http.StatusBadRequest, route, err.Error())
			return
		}

		seller := session.Username
		if middleware.RoleFrom(c) == models.RoleAdmin && strings.TrimSpace(req.Seller) != "" {
			seller = req.Seller
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		product, err := products.Create(ctx, models.Product{
			Name:        strings.TrimSpace(req.Name),
			Price:       req.Price,
			SalePrice:   req.SalePrice,
			SaleStart:   req.SaleStart,
			SaleEnd:     req.SaleEnd,
			Description: strings.TrimSpace(req.Description),
			CategoryID:  strings.TrimSpace(req.CategoryID),
			Images:      req.Images,
			Stock:       req.Stock,
			Seller:      seller,
		})
		if err != nil {
			respondStoreError(c, route, err)
			return
		}

		log.Printf("[PRODUCT] [INFO] product %s created by %s", product.ID.Hex(), product.Seller)
		c.JSON(http.StatusCreated, gin.H{"success": true, "product": presentProduct(product, time.Now())})
	}
}

// loadOwnedProduct fetches the product and checks the caller may change it.
func loadOwnedProduct(c *gin.Context, route string, products ProductCatalog) (models.Product, bool) {
	session, ok := middleware.SessionFrom(c)
	if !ok {
		respondWithError(c, http.StatusUnauthorized, route, "unauthorized")
		return models.Product{}, false
	}

	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		respondWithError(c, http.StatusBadRequest, route, "invalid id")
		return models.Product{}, false
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	existing, err := products.Get(ctx, id)
	if err != nil {
		respondStoreError(c, route, err)
		return models.Product{}, false
	}

	if middleware.RoleFrom(c) != models.RoleAdmin && existing.Seller != store.NormalizeUsername(session.Username) {
		log.Printf("[PRODUCT] [ERROR] %s is not the seller of %s", session.Username, existing.ID.Hex())
		respondWithError(c, http.StatusForbidden, route, "forbidden")
		return models.Product{}, false
	}
	return existing, true
}

func UpdateProduct(products ProductCatalog, blob store.Blob) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PUT /products/:id"
		defer handlePanic(c, route)

		var req updateProductRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid body")
			return
		}

		existing, ok := loadOwnedProduct(c, route, products)
		if !ok {
			return
		}

		updateSet := bson.M{}
		updateUnset := bson.M{}

		if req.Name != nil {
			name := strings.TrimSpace(*req.Name)
			if name == "" {
				respondWithError(c, http.StatusBadRequest, route, "name is required")
				return
			}
			updateSet["name"] = name
		}
		if req.Price != nil {
			if *req.Price <= 0 {
				respondWithError(c, http.StatusBadRequest, route, "invalid price")
				return
			}
			updateSet["price"] = *req.Price
		}
		if req.Description != nil {
			updateSet["description"] = strings.TrimSpace(*req.Description)
		}
		if req.CategoryID != nil {
			if category := strings.TrimSpace(*req.CategoryID); category == "" {
				updateUnset["categoryId"] = ""
			} else {
				updateSet["categoryId"] = category
			}
		}
		if req.Stock != nil {
			if *req.Stock < 0 {
				respondWithError(c, http.StatusBadRequest, route, "stock must be zero or greater")
				return
			}
			updateSet["stock"] = *req.Stock
		}

		var removedImages []string
		if req.Images != nil {
			images := *req.Images
			if images == nil {
				images = models.StringList{}
			}
			updateSet["images"] = images
			removedImages = droppedImages(existing.Images, images)
		}

		if req.Price != nil || req.SalePrice != nil || req.SaleStart != nil || req.SaleEnd != nil || req.ClearSale {
			sale, err := resolveSaleUpdate(existing, saleUpdateInput{
				Price:     req.Price,
				SalePrice: req.SalePrice,
				SaleStart: req.SaleStart,
				SaleEnd:   req.SaleEnd,
				ClearSale: req.ClearSale,
			})
			if err != nil {
				respondWithError(c, http.StatusBadRequest, route, err.Error())
				return
			}
			if sale.Cleared {
				updateUnset["salePrice"] = ""
				updateUnset["saleStart"] = ""
				updateUnset["saleEnd"] = ""
			}
			if sale.SetSale {
				updateSet["salePrice"] = sale.SalePrice
			}
			if sale.SetSaleStart {
				updateSet["saleStart"] = sale.SaleStart
			}
			if sale.SetSaleEnd {
				updateSet["saleEnd"] = sale.SaleEnd
			}
		}

		if len(updateSet) == 0 && len(updateUnset) == 0 {
			respondWithError(c, http.StatusBadRequest, route, "no fields to update")
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		updated, err := products.Update(ctx, existing.ID, updateSet, updateUnset)
		if err != nil {
			respondStoreError(c, route, err)
			return
		}

		for _, image := range removedImages {
			if err := safeDeleteUpload(ctx, blob, image); err != nil {
				log.Printf("[PRODUCT] [WARN] image %s not removed: %v", image, err)
			}
		}

		log.Printf("[PRODUCT] [INFO] product %s updated", updated.ID.Hex())
		c.JSON(http.StatusOK, gin.H{"success": true, "product": presentProduct(updated, time.Now())})
	}
}

// DeleteProduct removes the product and its uploaded images.
func DeleteProduct(products ProductCatalog, blob store.Blob) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "DELETE /products/:id"
		defer handlePanic(c, route)

		existing, ok := loadOwnedProduct(c, route, products)
		if !ok {
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		deleted, err := products.Delete(ctx, existing.ID)
		if err != nil {
			respondStoreError(c, route, err)
			return
		}

		for _, image := range deleted.Images {
			if err := safeDeleteUpload(ctx, blob, image); err != nil {
				log.Printf("[PRODUCT] [WARN] image %s not removed: %v", image, err)
			}
		}

		log.Printf("[PRODUCT] [INFO] product %s deleted", deleted.ID.Hex())
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "product deleted"})
	}
}

func droppedImages(before, after []string) []string {
	kept := make(map[string]struct{}, len(after))
	for _, image := range after {
		kept[image] = struct{}{}
	}
	var dropped []string
	for _, image := range before {
		if _, ok := kept[image]; !ok {
			dropped = append(dropped, image)
		}
	}
	return dropped
}
