package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"pistore/internal/config"
	"pistore/internal/database"
	"pistore/internal/handlers"
	"pistore/internal/middleware"
	"pistore/internal/models"
	"pistore/internal/payment"
	"pistore/internal/pi"
	"pistore/internal/store"
)

const uploadsBucket = "uploads"

func main() {
	cfg := config.Load()

	client, err := database.Connect(cfg.MongoURI)
	if err != nil {
		log.Fatal(err)
	}
	defer client.Disconnect(context.Background())

	db := client.Database(cfg.DBName)
	log.Println("MongoDB connected to:", db.Name())

	if err := database.EnsureProductIndexes(db); err != nil {
		log.Printf("[DB] [WARN] product index warning: %v", err)
	}
	if err := database.EnsureBlobIndexes(db, uploadsBucket); err != nil {
		log.Printf("[DB] [WARN] blob index warning: %v", err)
	}

	rdb, err := database.ConnectRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		log.Fatal(err)
	}
	defer rdb.Close()
	log.Println("Redis connected to:", cfg.RedisAddr)

	kv := store.NewRedisKV(rdb)
	blob := store.NewGridFSBlob(db, uploadsBucket)

	var ordersDoc store.Document = store.NewKVDocument(kv, store.OrdersKey)
	if cfg.OrdersBackend == config.OrdersBackendBlob {
		ordersDoc = store.NewBlobDocument(blob, store.OrdersBlobName)
	}
	log.Println("orders backend:", cfg.OrdersBackend)

	orders := store.NewOrderRepository(ordersDoc)
	reviews := store.NewReviewRepository(store.NewKVDocument(kv, store.ReviewsKey))
	sessions := store.NewSessionStore(kv, cfg.SessionSecret, cfg.SessionTTL)
	roles := store.NewRoleStore(kv)
	profiles := store.NewProfileStore(kv)
	products := store.NewProductStore(db)

	piClient := pi.NewClient(cfg.PiBaseURL(), cfg.PiAPIKey, cfg.PiHTTPTimeout)
	bridge := payment.NewBridge(piClient, orders)
	log.Println("pi api:", cfg.PiBaseURL())

	cookie := handlers.CookieOptions{
		Name:   cfg.SessionCookie,
		Domain: cfg.CookieDomain,
		Secure: cfg.CookieSecure,
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.Default()
	r.Use(middleware.SessionAuth(sessions, cfg.SessionCookie, false))
	requireSession := middleware.SessionAuth(sessions, cfg.SessionCookie, true)

	r.GET("/healthz", handlers.Health(map[string]handlers.HealthCheck{
		"mongo": func(ctx context.Context) error { return pingMongo(ctx, client) },
		"redis": func(ctx context.Context) error { return pingRedis(ctx, rdb) },
	}))

	r.POST("/auth/pi", handlers.PiLogin(piClient, sessions, roles, cookie))
	r.GET("/auth/me", requireSession, handlers.GetMe(roles))
	r.POST("/auth/logout", handlers.Logout(sessions, cookie))

	r.GET("/address", requireSession, handlers.GetAddress(profiles))
	r.POST("/address", requireSession, handlers.SaveAddress(profiles))

	r.GET("/orders", handlers.GetOrders(orders))
	r.POST("/orders", handlers.CreateOrder(orders))
	r.POST("/orders/cancel", handlers.CancelOrder(orders))
	r.GET("/orders/:id", handlers.GetOrder(orders))
	r.PATCH("/orders/:id", handlers.UpdateOrderStatus(orders))

	piRoutes := r.Group("/pi")
	{
		piRoutes.POST("/create", handlers.CreatePayment(bridge))
		piRoutes.POST("/approve", handlers.ApprovePayment(bridge))
		piRoutes.POST("/complete", handlers.CompletePayment(bridge))
		piRoutes.POST("/cancel", handlers.CancelPayment(bridge))
		piRoutes.POST("/incomplete", handlers.ResolveIncompletePayment(bridge))
		piRoutes.GET("/payments/:id", handlers.GetPayment(bridge))
	}

	r.GET("/users/role", handlers.GetRole(roles))
	r.POST("/users/role", handlers.SetRole(roles, cfg.AdminKey))
	r.GET("/avatar", handlers.GetAvatar(profiles))

	r.GET("/reviews", handlers.GetReviews(reviews))
	r.POST("/reviews", handlers.CreateReview(reviews, orders))

	r.GET("/products", handlers.GetProducts(products))
	r.GET("/products/:id", handlers.GetProduct(products))

	seller := r.Group("/")
	seller.Use(requireSession, middleware.RequireRole(roles, models.RoleSeller, models.RoleAdmin))
	{
		seller.POST("/products", handlers.CreateProduct(products))
		seller.PUT("/products/:id", handlers.UpdateProduct(products, blob))
		seller.DELETE("/products/:id", handlers.DeleteProduct(products, blob))
	}

	r.POST("/upload", handlers.UploadImage(blob, cfg.PublicBaseURL))
	r.POST("/upload-icon", handlers.UploadIcon(blob, cfg.PublicBaseURL))
	r.POST("/uploadAvatar", requireSession, handlers.UploadAvatar(blob, profiles, cfg.PublicBaseURL))
	r.GET("/files/*name", handlers.ServeFile(blob))

	admin := r.Group("/admin")
	admin.Use(middleware.AdminKey(cfg.AdminKey))
	{
		admin.GET("/users", handlers.ListUsers(roles))
		admin.POST("/clear", handlers.ClearTestData(cfg.IsProduction(), orders, reviews))
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("HTTP server listening on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("http shutdown: %v", err)
	}
	log.Println("HTTP server stopped")
}

func pingMongo(ctx context.Context, client *mongo.Client) error {
	return client.Ping(ctx, readpref.Primary())
}

func pingRedis(ctx context.Context, rdb *redis.Client) error {
	return rdb.Ping(ctx).Err()
}
