package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/MoVahedi1/gym/models"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap/zaptest"
)

func setupProductTest(t *testing.T) (sqlmock.Sqlmock, *gin.Engine) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create mock database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	// Unreachable Redis: every lookup is a cache miss and writes are dropped
	redisClient := redis.NewClient(&redis.Options{Addr: "localhost:1"})

	handler := NewProductHandler(db, redisClient, zaptest.NewLogger(t))

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/products", handler.GetProducts)
	router.GET("/products/:id", handler.GetProduct)
	router.POST("/products", handler.CreateProduct)
	router.DELETE("/products/:id", handler.DeleteProduct)

	return mock, router
}

func productRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "name", "description", "category", "brand", "price", "image",
		"stock_quantity", "low_stock_threshold", "status", "created_at", "updated_at",
	})
}

func TestProductHandler_GetProducts(t *testing.T) {
	mock, router := setupProductTest(t)

	rows := productRows().
		AddRow(1, "Whey Protein 2kg", "", "supplements", "GymFuel", 185000, "",
			10, 5, models.ProductStatusActive, time.Now(), time.Now()).
		AddRow(2, "Creatine Monohydrate", "", "supplements", "GymFuel", 95000, "",
			0, 5, models.ProductStatusOutOfStock, time.Now(), time.Now())

	mock.ExpectQuery("FROM products ORDER BY id").WillReturnRows(rows)

	req := httptest.NewRequest(http.MethodGet, "/products", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status %d, got %d", http.StatusOK, w.Code)
	}

	var products []models.Product
	if err := json.Unmarshal(w.Body.Bytes(), &products); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(products) != 2 {
		t.Errorf("Expected 2 products, got %d", len(products))
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Database expectations were not met: %v", err)
	}
}

func TestProductHandler_GetProduct(t *testing.T) {
	mock, router := setupProductTest(t)

	rows := productRows().
		AddRow(1, "Whey Protein 2kg", "", "supplements", "GymFuel", 185000, "",
			10, 5, models.ProductStatusActive, time.Now(), time.Now())

	mock.ExpectQuery("FROM products WHERE id = \\$1").
		WithArgs(int64(1)).
		WillReturnRows(rows)

	req := httptest.NewRequest(http.MethodGet, "/products/1", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status %d, got %d: %s", http.StatusOK, w.Code, w.Body.String())
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Database expectations were not met: %v", err)
	}
}

func TestProductHandler_GetProduct_NotFound(t *testing.T) {
	mock, router := setupProductTest(t)

	mock.ExpectQuery("FROM products WHERE id = \\$1").
		WithArgs(int64(99)).
		WillReturnRows(productRows())

	req := httptest.NewRequest(http.MethodGet, "/products/99", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status %d, got %d", http.StatusNotFound, w.Code)
	}
}

func TestProductHandler_CreateProduct(t *testing.T) {
	mock, router := setupProductTest(t)

	rows := productRows().
		AddRow(1, "Pre-Workout Blast", "", "supplements", "GymFuel", 145000, "",
			20, 5, models.ProductStatusActive, time.Now(), time.Now())

	mock.ExpectQuery("INSERT INTO products").WillReturnRows(rows)

	body, _ := json.Marshal(models.CreateProductRequest{
		Name:          "Pre-Workout Blast",
		Category:      "supplements",
		Brand:         "GymFuel",
		Price:         145000,
		StockQuantity: 20,
	})
	req := httptest.NewRequest(http.MethodPost, "/products", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status %d, got %d: %s", http.StatusCreated, w.Code, w.Body.String())
	}
}

func TestProductHandler_CreateProduct_MissingName(t *testing.T) {
	_, router := setupProductTest(t)

	body, _ := json.Marshal(map[string]any{"category": "supplements", "price": 1000})
	req := httptest.NewRequest(http.MethodPost, "/products", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status %d, got %d", http.StatusBadRequest, w.Code)
	}
}

func TestProductHandler_DeleteProduct_NotFound(t *testing.T) {
	mock, router := setupProductTest(t)

	mock.ExpectExec("DELETE FROM products").
		WithArgs(int64(42)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	req := httptest.NewRequest(http.MethodDelete, "/products/42", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status %d, got %d", http.StatusNotFound, w.Code)
	}
}
