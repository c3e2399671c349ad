package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MoVahedi1/gym/cache"
	"github.com/MoVahedi1/gym/catalog"
	"github.com/MoVahedi1/gym/checkout"
	"github.com/MoVahedi1/gym/circuitbreaker"
	"github.com/MoVahedi1/gym/database"
	"github.com/MoVahedi1/gym/handlers"
	"github.com/MoVahedi1/gym/kafka"
	"github.com/MoVahedi1/gym/middleware"
	"github.com/MoVahedi1/gym/orders"
	"github.com/MoVahedi1/gym/payment"
	"github.com/MoVahedi1/gym/pricing"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
)

func main() {
	// Initialize logger
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	// Initialize database
	db, err := database.InitDB(logger)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	// Initialize Redis cache
	redisClient, err := cache.InitRedis(logger)
	if err != nil {
		logger.Fatal("Failed to initialize Redis", zap.Error(err))
	}
	defer redisClient.Close()

	// Initialize Kafka producer
	producer, err := kafka.InitProducer(logger)
	if err != nil {
		logger.Fatal("Failed to initialize Kafka producer", zap.Error(err))
	}
	defer producer.Close()

	// Initialize OpenTelemetry
	shutdownTracing, err := middleware.InitTracing("gym-shop")
	if err != nil {
		logger.Fatal("Failed to initialize tracing", zap.Error(err))
	}

	// Wire the checkout core
	catalogStore := catalog.NewPostgresStore(db, logger)
	orderRepo := orders.NewPostgresRepo(db, logger)
	gateway := payment.NewMockGateway(logger)
	engine := pricing.NewEngine(pricing.PercentDiscount{Percent: 10}, nil)
	breaker := circuitbreaker.NewCircuitBreaker(5, 30*time.Second)
	checkoutService := checkout.NewService(
		catalogStore, orderRepo, gateway, engine, breaker, producer, logger)

	// Setup Gin router
	router := gin.New()
	router.Use(gin.Recovery())
	// OpenTelemetry middleware must be first to extract trace context
	router.Use(otelgin.Middleware("gym-shop"))
	router.Use(middleware.LoggerMiddleware(logger))
	router.Use(middleware.MetricsMiddleware())

	// Health check endpoint
	router.GET("/health", handlers.HealthCheck)

	// Metrics endpoint
	router.GET("/metrics", middleware.PrometheusHandler())

	// Product endpoints
	productHandler := handlers.NewProductHandler(db, redisClient, logger)
	router.GET("/products", productHandler.GetProducts)
	router.GET("/products/:id", productHandler.GetProduct)

	adminProducts := router.Group("/products")
	adminProducts.Use(middleware.AuthMiddleware(), middleware.AdminMiddleware())
	adminProducts.POST("", productHandler.CreateProduct)
	adminProducts.PUT("/:id", productHandler.UpdateProduct)
	adminProducts.DELETE("/:id", productHandler.DeleteProduct)

	// Order endpoints
	orderHandler := handlers.NewOrderHandler(checkoutService, logger)
	authOrders := router.Group("/orders")
	authOrders.Use(middleware.AuthMiddleware())
	authOrders.POST("", orderHandler.CreateOrder)
	authOrders.POST("/:id/payment", orderHandler.CapturePayment)
	authOrders.GET("/my-orders", orderHandler.GetMyOrders)
	authOrders.GET("/:id", orderHandler.GetOrder)

	adminOrders := router.Group("/orders")
	adminOrders.Use(middleware.AuthMiddleware(), middleware.AdminMiddleware())
	adminOrders.GET("", orderHandler.GetAllOrders)
	adminOrders.PUT("/:id/status", orderHandler.UpdateOrderStatus)

	// Start server
	srv := &http.Server{
		Addr:    ":" + getEnv("PORT", "8080"),
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	logger.Info("Gym shop API started", zap.String("addr", srv.Addr))

	gracefulShutdown(srv, db, redisClient, producer, shutdownTracing, logger)
}

// gracefulShutdown handles SIGINT/SIGTERM and shuts down all services gracefully
func gracefulShutdown(
	srv *http.Server,
	db *sql.DB,
	redisClient *redis.Client,
	producer *kafka.Producer,
	shutdownTracing func(context.Context) error,
	logger *zap.Logger,
) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutdown signal received. Exiting...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("HTTP server forced to shutdown", zap.Error(err))
	} else {
		logger.Info("HTTP server stopped gracefully")
	}

	if err := producer.Close(); err != nil {
		logger.Error("Failed to close Kafka producer", zap.Error(err))
	} else {
		logger.Info("Kafka producer closed gracefully")
	}

	if err := db.Close(); err != nil {
		logger.Error("Failed to close database", zap.Error(err))
	} else {
		logger.Info("Database connection closed gracefully")
	}

	if err := redisClient.Close(); err != nil {
		logger.Error("Failed to close Redis cache", zap.Error(err))
	} else {
		logger.Info("Redis cache closed gracefully")
	}

	if err := shutdownTracing(ctx); err != nil {
		logger.Error("Failed to shut down tracing", zap.Error(err))
	}
	logger.Info("Gym shop exited gracefully")
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
