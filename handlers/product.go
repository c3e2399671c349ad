package handlers

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/MoVahedi1/gym/cache"
	"github.com/MoVahedi1/gym/circuitbreaker"
	"github.com/MoVahedi1/gym/models"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const productColumns = `id, name, description, category, brand, price, image,
	stock_quantity, low_stock_threshold, status, created_at, updated_at`

type ProductHandler struct {
	db             *sql.DB
	redisClient    *redis.Client
	logger         *zap.Logger
	circuitBreaker *circuitbreaker.CircuitBreaker
}

func NewProductHandler(db *sql.DB, redisClient *redis.Client, logger *zap.Logger) *ProductHandler {
	return &ProductHandler{
		db:             db,
		redisClient:    redisClient,
		logger:         logger,
		circuitBreaker: circuitbreaker.NewCircuitBreaker(5, 30*time.Second),
	}
}

func scanProduct(row interface{ Scan(dest ...any) error }, p *models.Product) error {
	return row.Scan(
		&p.ID, &p.Name, &p.Description, &p.Category, &p.Brand, &p.Price, &p.Image,
		&p.StockQuantity, &p.LowStockThreshold, &p.Status, &p.CreatedAt, &p.UpdatedAt,
	)
}

func (h *ProductHandler) GetProducts(c *gin.Context) {
	ctx, span := otel.Tracer("gym-shop").Start(c.Request.Context(), "GetProducts")
	defer span.End()

	query := "SELECT " + productColumns + " FROM products"
	args := []interface{}{}
	if category := c.Query("category"); category != "" {
		query += " WHERE category = $1"
		args = append(args, category)
	}
	query += " ORDER BY id"

	rows, err := h.db.QueryContext(ctx, query, args...)
	if err != nil {
		span.RecordError(err)
		h.logger.Error("Failed to fetch products", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	defer rows.Close()

	var products []models.Product
	for rows.Next() {
		var p models.Product
		if err := scanProduct(rows, &p); err != nil {
			span.RecordError(err)
			h.logger.Error("Failed to scan product", zap.Error(err))
			continue
		}
		products = append(products, p)
	}

	span.SetAttributes(attribute.Int("products.count", len(products)))
	c.JSON(http.StatusOK, products)
}

func (h *ProductHandler) GetProduct(c *gin.Context) {
	ctx, span := otel.Tracer("gym-shop").Start(c.Request.Context(), "GetProduct")
	defer span.End()

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid product ID"})
		return
	}
	span.SetAttributes(attribute.Int64("product.id", id))

	// Try to get from cache first
	if product, err := cache.GetProduct(ctx, h.redisClient, id); err == nil {
		span.SetAttributes(attribute.Bool("cache.hit", true))
		h.logger.Info("Cache hit", zap.Int64("product_id", id))
		c.JSON(http.StatusOK, product)
		return
	}
	span.SetAttributes(attribute.Bool("cache.hit", false))

	// Get from database with circuit breaker
	var product models.Product
	dbErr := h.circuitBreaker.Execute(ctx, func() error {
		row := h.db.QueryRowContext(ctx,
			"SELECT "+productColumns+" FROM products WHERE id = $1", id)
		return scanProduct(row, &product)
	})

	if dbErr != nil {
		if errors.Is(dbErr, circuitbreaker.ErrCircuitOpen) {
			span.SetAttributes(attribute.String("circuit.state", "open"))
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Service temporarily unavailable"})
			return
		}
		if errors.Is(dbErr, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
			return
		}
		span.RecordError(dbErr)
		h.logger.Error("Failed to fetch product", zap.Error(dbErr))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	cache.SetProduct(ctx, h.redisClient, &product)

	c.JSON(http.StatusOK, product)
}

func (h *ProductHandler) CreateProduct(c *gin.Context) {
	ctx, span := otel.Tracer("gym-shop").Start(c.Request.Context(), "CreateProduct")
	defer span.End()

	var req models.CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	status := models.ProductStatusActive
	if req.StockQuantity == 0 {
		status = models.ProductStatusOutOfStock
	}

	var product models.Product
	err := h.db.QueryRowContext(ctx,
		`INSERT INTO products (name, description, category, brand, price, image,
			stock_quantity, low_stock_threshold, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING `+productColumns,
		req.Name, req.Description, req.Category, req.Brand, req.Price, req.Image,
		req.StockQuantity, req.LowStockThreshold, status,
	).Scan(
		&product.ID, &product.Name, &product.Description, &product.Category,
		&product.Brand, &product.Price, &product.Image, &product.StockQuantity,
		&product.LowStockThreshold, &product.Status, &product.CreatedAt, &product.UpdatedAt,
	)

	if err != nil {
		span.RecordError(err)
		h.logger.Error("Failed to create product", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	span.SetAttributes(attribute.Int64("product.id", product.ID))
	h.logger.Info("Product created", zap.Int64("product_id", product.ID))
	c.JSON(http.StatusCreated, product)
}

func (h *ProductHandler) UpdateProduct(c *gin.Context) {
	ctx, span := otel.Tracer("gym-shop").Start(c.Request.Context(), "UpdateProduct")
	defer span.End()

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid product ID"})
		return
	}
	span.SetAttributes(attribute.Int64("product.id", id))

	var req models.UpdateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// Build update query dynamically
	query := "UPDATE products SET updated_at = CURRENT_TIMESTAMP"
	args := []interface{}{}
	argPos := 1

	addField := func(column string, value interface{}) {
		query += ", " + column + " = $" + strconv.Itoa(argPos)
		args = append(args, value)
		argPos++
	}

	if req.Name != "" {
		addField("name", req.Name)
	}
	if req.Description != "" {
		addField("description", req.Description)
	}
	if req.Category != "" {
		addField("category", req.Category)
	}
	if req.Brand != "" {
		addField("brand", req.Brand)
	}
	if req.Price > 0 {
		addField("price", req.Price)
	}
	if req.Image != "" {
		addField("image", req.Image)
	}
	if req.StockQuantity != nil {
		addField("stock_quantity", *req.StockQuantity)
		if *req.StockQuantity == 0 {
			addField("status", models.ProductStatusOutOfStock)
		} else if req.Status == "" {
			addField("status", models.ProductStatusActive)
		}
	}
	if req.LowStockThreshold != nil {
		addField("low_stock_threshold", *req.LowStockThreshold)
	}
	if req.Status != "" && (req.StockQuantity == nil || *req.StockQuantity > 0) {
		addField("status", models.ProductStatus(req.Status))
	}

	query += " WHERE id = $" + strconv.Itoa(argPos) + " RETURNING " + productColumns
	args = append(args, id)

	var product models.Product
	err = scanProduct(h.db.QueryRowContext(ctx, query, args...), &product)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
			return
		}
		span.RecordError(err)
		h.logger.Error("Failed to update product", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	// Invalidate cache
	cache.DeleteProduct(ctx, h.redisClient, id)

	h.logger.Info("Product updated", zap.Int64("product_id", id))
	c.JSON(http.StatusOK, product)
}

func (h *ProductHandler) DeleteProduct(c *gin.Context) {
	ctx, span := otel.Tracer("gym-shop").Start(c.Request.Context(), "DeleteProduct")
	defer span.End()

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid product ID"})
		return
	}
	span.SetAttributes(attribute.Int64("product.id", id))

	result, err := h.db.ExecContext(ctx, "DELETE FROM products WHERE id = $1", id)
	if err != nil {
		span.RecordError(err)
		h.logger.Error("Failed to delete product", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
		return
	}

	// Invalidate cache
	cache.DeleteProduct(ctx, h.redisClient, id)

	h.logger.Info("Product deleted", zap.Int64("product_id", id))
	c.JSON(http.StatusOK, gin.H{"message": "Product deleted successfully"})
}
